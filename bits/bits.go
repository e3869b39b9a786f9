// Package bits implements a typed view over a bit range within a byte
// buffer: an offset within the first byte, a length in bits, and
// equality/prefix operations that respect misalignment. It underlies the
// trie's Extension keys and lookup keys.
package bits

import "fmt"

// MaxExtKeyBits is the largest number of bits an Extension key may span
// (34 bytes of payload).
const MaxExtKeyBits = 34 * 8

// Slice is a read-only view of Length bits starting Offset bits into the
// first byte of Bytes. Bytes outside [Offset, Offset+Length) are
// unspecified and must never be inspected.
type Slice struct {
	Bytes  []byte
	Offset uint8  // 0..7
	Length uint16 // number of bits covered
}

// New constructs a Slice, panicking if the offset or length don't fit the
// backing buffer — this is a programmer error, never a data error.
func New(b []byte, offset uint8, length uint16) Slice {
	if offset >= 8 {
		panic(fmt.Sprintf("bits: offset %d out of range", offset))
	}
	if int(offset)+int(length) > len(b)*8 {
		panic(fmt.Sprintf("bits: length %d at offset %d overruns %d-byte buffer", length, offset, len(b)))
	}
	return Slice{Bytes: b, Offset: offset, Length: length}
}

// FromBytes returns a Slice covering every bit of b.
func FromBytes(b []byte) Slice {
	return Slice{Bytes: b, Offset: 0, Length: uint16(len(b)) * 8}
}

// IsEmpty reports whether the slice covers zero bits.
func (s Slice) IsEmpty() bool { return s.Length == 0 }

// Misaligned reports whether the slice's start is not a byte boundary.
func (s Slice) Misaligned() bool { return s.Offset != 0 }

// bitAt returns the value of the i'th bit of the slice (0 = MSB-first
// index from the start of the slice).
func (s Slice) bitAt(i uint16) bool {
	pos := uint32(s.Offset) + uint32(i)
	byteIdx := pos / 8
	bitIdx := 7 - (pos % 8)
	return s.Bytes[byteIdx]&(1<<bitIdx) != 0
}

// Equal reports whether two slices cover the same bits, value for value.
// Offsets and underlying buffers may differ.
func (s Slice) Equal(o Slice) bool {
	if s.Length != o.Length {
		return false
	}
	for i := uint16(0); i < s.Length; i++ {
		if s.bitAt(i) != o.bitAt(i) {
			return false
		}
	}
	return true
}

// PopFront removes and returns the first bit, and the remaining suffix.
// Panics if the slice is empty.
func (s Slice) PopFront() (bit bool, rest Slice) {
	if s.IsEmpty() {
		panic("bits: PopFront on empty slice")
	}
	bit = s.bitAt(0)
	rest = s.sub(1, s.Length)
	return
}

// PopBack removes and returns the last bit, and the remaining prefix.
// Panics if the slice is empty.
func (s Slice) PopBack() (bit bool, rest Slice) {
	if s.IsEmpty() {
		panic("bits: PopBack on empty slice")
	}
	bit = s.bitAt(s.Length - 1)
	rest = s.sub(0, s.Length-1)
	return
}

// sub returns the bit range [from, to) of s, preserving the original
// backing buffer (just moving offset/length).
func (s Slice) sub(from, to uint16) Slice {
	pos := uint32(s.Offset) + uint32(from)
	return Slice{
		Bytes:  s.Bytes[pos/8:],
		Offset: uint8(pos % 8),
		Length: to - from,
	}
}

// SplitAt splits s into [0, n) and [n, Length). Panics if n > Length.
func (s Slice) SplitAt(n uint16) (head, tail Slice) {
	if n > s.Length {
		panic("bits: SplitAt index out of range")
	}
	return s.sub(0, n), s.sub(n, s.Length)
}

// StartsWith reports whether s begins with all the bits of prefix.
func (s Slice) StartsWith(prefix Slice) bool {
	if prefix.Length > s.Length {
		return false
	}
	head, _ := s.SplitAt(prefix.Length)
	return head.Equal(prefix)
}

// StripPrefix removes prefix from the front of s if present.
func (s Slice) StripPrefix(prefix Slice) (rest Slice, ok bool) {
	if !s.StartsWith(prefix) {
		return Slice{}, false
	}
	_, rest = s.SplitAt(prefix.Length)
	return rest, true
}

// ForwardCommonPrefix consumes the longest common prefix of s and other
// from the front of s, returning the (possibly empty) shared prefix and,
// if other has bits left afterwards, the suffix of other as an ExtKey.
// s itself is left holding only its own suffix after the shared part.
func (s Slice) ForwardCommonPrefix(other Slice) (prefix Slice, selfSuffix Slice, otherSuffix ExtKey, hasOtherSuffix bool) {
	n := s.Length
	if other.Length < n {
		n = other.Length
	}
	var common uint16
	for common < n && s.bitAt(common) == other.bitAt(common) {
		common++
	}
	prefix, selfSuffix = s.SplitAt(common)
	_, rest := other.SplitAt(common)
	if rest.IsEmpty() {
		return prefix, selfSuffix, ExtKey{}, false
	}
	ek, err := NewExtKey(rest)
	if err != nil {
		panic(err) // rest.Length <= other.Length <= MaxExtKeyBits by construction of callers
	}
	return prefix, selfSuffix, ek, true
}

// Chunks splits s into a sequence of slices, each spanning at most
// MaxExtKeyBits bits and at most 34 bytes of backing storage, in order.
func (s Slice) Chunks() []Slice {
	var out []Slice
	rem := s
	for rem.Length > 0 {
		n := uint16(MaxExtKeyBits) - uint16(rem.Offset)
		if rem.Length < n {
			n = rem.Length
		}
		head, tail := rem.SplitAt(n)
		out = append(out, head)
		rem = tail
	}
	return out
}

// Packed returns a copy of the bits covered by s, placed at the same
// [Offset, Offset+Length) bit range within out that they occupy in s's
// own first byte: out-of-range bits before Offset and after Offset+Length
// in the first and last byte of the result are zero. Callers that need
// the payload pulled down to offset 0 must shift it themselves; this
// preserves s.Offset so the result round-trips through bits.New(out,
// s.Offset, s.Length).
func (s Slice) Packed() []byte {
	nbytes := (int(s.Offset) + int(s.Length) + 7) / 8
	out := make([]byte, nbytes)
	for i := uint16(0); i < s.Length; i++ {
		if s.bitAt(i) {
			pos := uint32(s.Offset) + uint32(i) // position within out, MSB-first starting at bit 0 of out[0]
			out[pos/8] |= 1 << (7 - pos%8)
		}
	}
	return out
}
