// Package hostglue bridges the trie/chain-manager core to a host
// runtime's account model (spec.md §4.10): an account-backed allocator
// that can grow in place while preserving pointers, sysvar-style host
// time, and structured event emission. It is the only package in this
// module that knows about an external byte-addressed account store;
// everything above it (trie, guestchain, lightclient) stays storage
// agnostic.
package hostglue

import (
	"encoding/binary"

	"github.com/composable-guest/guestchain/pool"
	"github.com/composable-guest/guestchain/xerrors"
)

// AccountStore is the contract hostglue needs from a host account: a
// single resizable byte buffer addressed by key. It stands in for a
// Solana account's data buffer, the same way the spec describes the
// backing account as "a contiguous byte region."
type AccountStore interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, data []byte) error
}

// headerSize is the fixed prefix of a trie account: root pointer, root
// hash, and cell count (spec.md §6 "Trie account").
const headerSize = 4 + 32 + 4

// TrieAccountHeader is the root pointer and root hash kept in a trie
// account's fixed prefix. After the cells themselves the account holds
// one occupancy byte per cell recording whether it currently holds a
// live node. The spec's
// header sketch mentions a free-list head instead of a separate
// occupancy table; this module's pool package tracks free cells as an
// explicit free list plus an occupied slice (see pool.Pool), so the
// account layout here persists that representation directly rather
// than re-deriving a linked free list from cell contents on every load.
type TrieAccountHeader struct {
	RootPtr  pool.Ptr
	RootHash [32]byte
}

// EncodeTrieAccount serialises p's cells and occupancy alongside header
// into the account byte layout described in spec.md §6.
func EncodeTrieAccount(p *pool.Pool, header TrieAccountHeader) []byte {
	cells, occupied := p.Snapshot()

	buf := make([]byte, headerSize+len(cells)*pool.CellSize+len(occupied))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(header.RootPtr))
	copy(buf[4:36], header.RootHash[:])
	binary.LittleEndian.PutUint32(buf[36:40], uint32(len(cells)))

	off := headerSize
	for _, c := range cells {
		copy(buf[off:off+pool.CellSize], c[:])
		off += pool.CellSize
	}
	for i, o := range occupied {
		if o {
			buf[off+i] = 1
		}
	}
	return buf
}

// DecodeTrieAccount is the inverse of EncodeTrieAccount: it rebuilds the
// pool and header from a previously-persisted account buffer.
func DecodeTrieAccount(data []byte) (*pool.Pool, TrieAccountHeader, error) {
	if len(data) < headerSize {
		return nil, TrieAccountHeader{}, xerrors.ErrBadWireFormat
	}
	var header TrieAccountHeader
	header.RootPtr = pool.Ptr(binary.LittleEndian.Uint32(data[0:4]))
	copy(header.RootHash[:], data[4:36])
	cellCount := int(binary.LittleEndian.Uint32(data[36:40]))

	wantLen := headerSize + cellCount*pool.CellSize + cellCount
	if len(data) != wantLen {
		return nil, TrieAccountHeader{}, xerrors.ErrBadWireFormat
	}

	cells := make([]pool.Cell, cellCount)
	off := headerSize
	for i := range cells {
		copy(cells[i][:], data[off:off+pool.CellSize])
		off += pool.CellSize
	}
	occupied := make([]bool, cellCount)
	for i := range occupied {
		occupied[i] = data[off+i] != 0
	}

	return pool.Restore(cells, occupied), header, nil
}

// AccountSize returns the byte length a trie account needs to hold
// cellCount cells, used by Grow to size the resize request before the
// new cells actually exist.
func AccountSize(cellCount int) int {
	return headerSize + cellCount*(pool.CellSize+1)
}

// Payer charges lamports for the rent-exemption of bytesAdded additional
// account bytes, the caller-supplied payer account spec.md §4.10
// requires to keep a grown account rent-exempt.
type Payer func(bytesAdded int) error

// Grow appends extraCells worth of empty, unoccupied cells to a
// previously-encoded trie account buffer, preserving every existing
// pointer (no cell is moved, since growth only ever appends). payer is
// charged for the added bytes before the resize is applied; a payer
// failure leaves data untouched.
func Grow(data []byte, extraCells int, payer Payer) ([]byte, error) {
	if extraCells <= 0 {
		return data, nil
	}
	added := extraCells * (pool.CellSize + 1)
	if payer != nil {
		if err := payer(added); err != nil {
			return nil, err
		}
	}

	if len(data) < headerSize {
		return nil, xerrors.ErrBadWireFormat
	}
	cellCount := int(binary.LittleEndian.Uint32(data[36:40]))
	oldCellsEnd := headerSize + cellCount*pool.CellSize
	if len(data) < oldCellsEnd+cellCount {
		return nil, xerrors.ErrBadWireFormat
	}

	newCellCount := cellCount + extraCells
	grown := make([]byte, headerSize+newCellCount*pool.CellSize+newCellCount)

	copy(grown[0:4], data[0:4])
	copy(grown[4:36], data[4:36])
	binary.LittleEndian.PutUint32(grown[36:40], uint32(newCellCount))

	copy(grown[headerSize:oldCellsEnd], data[headerSize:oldCellsEnd])
	newCellsEnd := headerSize + newCellCount*pool.CellSize
	copy(grown[newCellsEnd:newCellsEnd+cellCount], data[oldCellsEnd:oldCellsEnd+cellCount])

	return grown, nil
}
