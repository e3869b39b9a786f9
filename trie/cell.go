package trie

import (
	"encoding/binary"
	"fmt"

	"github.com/composable-guest/guestchain/bits"
	"github.com/composable-guest/guestchain/pool"
)

// Cell layout (all variants are exactly pool.CellSize = 72 bytes):
//
//	Branch:    u32 ptr1 | [32]hash1 | u32 ptr2 | [32]hash2
//	Extension: u16 tag  | [34]key   | u32 ptr  | [32]hash
//	Value:     u32 vflags | [32]value_hash | u32 cptr | [32]child_hash
//
// The node kind lives in the top two bits of the cell's first word: 00
// for Branch (a bare pointer, whose top two bits are naturally zero
// since pointers are 30-bit), 01 for Extension (forced via the ExtKey
// tag), 10 for Value (set explicitly in vflags).
const (
	extTag   = uint16(kindExtension) << 14
	valueTag = uint32(kindValue) << 30
	sealBit  = uint32(1) << 29
)

func cellKind(c pool.Cell) nodeKind {
	top2 := c[0] >> 6
	return nodeKind(top2)
}

func encodeNode(n node) pool.Cell {
	var c pool.Cell
	switch n.kind {
	case kindBranch:
		putPtrHash(c[0:36], n.children[0])
		putPtrHash(c[36:72], n.children[1])
	case kindExtension:
		buf := n.key.Encode(extTag)
		copy(c[0:36], buf[:])
		putPtrHash(c[36:72], n.child)
	case kindValue:
		vflags := valueTag
		if n.isSealed {
			vflags |= sealBit
		}
		binary.BigEndian.PutUint32(c[0:4], vflags)
		copy(c[4:36], n.valueHash[:])
		binary.BigEndian.PutUint32(c[36:40], uint32(n.child.Ptr))
		copy(c[40:72], n.child.Hash[:])
	default:
		panic(fmt.Sprintf("trie: unknown node kind %d", n.kind))
	}
	return c
}

func decodeNode(c pool.Cell) (node, error) {
	switch cellKind(c) {
	case kindBranch:
		left := getPtrHash(c[0:36])
		right := getPtrHash(c[36:72])
		return branchNode(left, right), nil
	case kindExtension:
		var buf [36]byte
		copy(buf[:], c[0:36])
		ek, err := bits.DecodeExtKey(buf, extTag)
		if err != nil {
			return node{}, err
		}
		child := getPtrHash(c[36:72])
		return extensionNode(ek, child), nil
	case kindValue:
		vflags := binary.BigEndian.Uint32(c[0:4])
		var vh Hash
		copy(vh[:], c[4:36])
		childPtr := pool.Ptr(binary.BigEndian.Uint32(c[36:40]))
		var ch Hash
		copy(ch[:], c[40:72])
		return valueNode(vh, vflags&sealBit != 0, NodeRef{Ptr: childPtr, Hash: ch}), nil
	default:
		return node{}, fmt.Errorf("trie: unrecognised cell discriminant")
	}
}

// putPtrHash writes a NodeRef as u32(ptr) || [32]hash into a 36-byte span.
func putPtrHash(dst []byte, ref NodeRef) {
	binary.BigEndian.PutUint32(dst[0:4], uint32(ref.Ptr))
	copy(dst[4:36], ref.Hash[:])
}

func getPtrHash(src []byte) NodeRef {
	ptr := pool.Ptr(binary.BigEndian.Uint32(src[0:4]))
	var h Hash
	copy(h[:], src[4:36])
	return NodeRef{Ptr: ptr, Hash: h}
}
