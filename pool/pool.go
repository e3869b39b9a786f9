// Package pool implements a fixed-cell arena allocator addressed by 30-bit
// pointers, plus a write-log overlay that buffers mutations until commit.
// It is the storage substrate the trie engine builds its node graph on.
package pool

import (
	"fmt"

	"github.com/composable-guest/guestchain/xerrors"
)

// CellSize is the fixed size, in bytes, of every allocated cell.
const CellSize = 72

// Cell is one fixed-size allocator slot.
type Cell [CellSize]byte

// Ptr is a 30-bit non-zero pointer identifying a cell. The two high bits
// are reserved by callers (the trie codec) to tag the reference; this
// package only ever sees the low 30 bits.
type Ptr uint32

// MaxPtr is the largest representable Ptr value (2^30 - 2), leaving
// pointer 0 reserved for "no pointer" and capping the cell count so the
// two high bits of a 32-bit word are always free for tagging.
const MaxPtr = (1 << 30) - 2

// None is the reserved "no pointer" value.
const None Ptr = 0

// Pool is a fixed-cell arena. Pointers are stable until Free'd; reading a
// freed or never-allocated pointer is caller error and may panic.
type Pool struct {
	cells    []Cell
	occupied []bool
	freeList []Ptr
}

// New creates an empty Pool.
func New() *Pool {
	return &Pool{}
}

// Len returns the number of cells ever allocated (including currently-free
// slots awaiting reuse).
func (p *Pool) Len() int { return len(p.cells) }

// Stats summarises allocator occupancy for metrics/debugging.
type Stats struct {
	Cells    int
	Occupied int
	Free     int
}

// Stats reports current allocator occupancy.
func (p *Pool) Stats() Stats {
	occ := 0
	for _, o := range p.occupied {
		if o {
			occ++
		}
	}
	return Stats{Cells: len(p.cells), Occupied: occ, Free: len(p.cells) - occ}
}

// Alloc reserves a new cell, returning its pointer, or ErrOutOfMemory if
// the pool has reached MaxPtr cells.
func (p *Pool) Alloc(value Cell) (Ptr, error) {
	if len(p.freeList) > 0 {
		ptr := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		p.cells[ptr-1] = value
		p.occupied[ptr-1] = true
		return ptr, nil
	}
	if len(p.cells) >= MaxPtr {
		return None, xerrors.ErrOutOfMemory
	}
	p.cells = append(p.cells, value)
	p.occupied = append(p.occupied, true)
	return Ptr(len(p.cells)), nil
}

// Get returns the cell at ptr. Panics on an invalid or freed pointer.
func (p *Pool) Get(ptr Ptr) Cell {
	p.mustBeLive(ptr)
	return p.cells[ptr-1]
}

// GetMut returns a pointer to the cell storage at ptr for in-place
// mutation. Panics on an invalid or freed pointer.
func (p *Pool) GetMut(ptr Ptr) *Cell {
	p.mustBeLive(ptr)
	return &p.cells[ptr-1]
}

// Set overwrites the cell at ptr. Panics on an invalid or freed pointer.
func (p *Pool) Set(ptr Ptr, value Cell) {
	p.mustBeLive(ptr)
	p.cells[ptr-1] = value
}

// Free releases ptr back to the allocator. Panics on an invalid or
// already-freed pointer.
func (p *Pool) Free(ptr Ptr) {
	p.mustBeLive(ptr)
	p.occupied[ptr-1] = false
	p.freeList = append(p.freeList, ptr)
}

func (p *Pool) mustBeLive(ptr Ptr) {
	if ptr == None || int(ptr) > len(p.cells) {
		panic(fmt.Sprintf("pool: pointer %d out of range (%d cells)", ptr, len(p.cells)))
	}
	if !p.occupied[ptr-1] {
		panic(fmt.Sprintf("pool: use of freed pointer %d", ptr))
	}
}

// Snapshot returns a deep copy of the pool's cells and occupancy, so
// hostglue can persist it to an account buffer.
func (p *Pool) Snapshot() ([]Cell, []bool) {
	cells := append([]Cell(nil), p.cells...)
	occ := append([]bool(nil), p.occupied...)
	return cells, occ
}

// Restore rebuilds a Pool from a prior Snapshot.
func Restore(cells []Cell, occupied []bool) *Pool {
	p := &Pool{
		cells:    append([]Cell(nil), cells...),
		occupied: append([]bool(nil), occupied...),
	}
	for i, o := range p.occupied {
		if !o {
			p.freeList = append(p.freeList, Ptr(i+1))
		}
	}
	return p
}
