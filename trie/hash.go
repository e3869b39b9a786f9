package trie

import (
	"crypto/sha256"

	"github.com/composable-guest/guestchain/bits"
)

// Node-kind domain separation bytes mixed into every hash so that no two
// variants can collide regardless of payload.
const (
	domainBranch    = byte(0x00)
	domainExtension = byte(0x01)
	domainValue     = byte(0x02)
)

// hashNode computes the canonical hash of n. Children are represented by
// their already-cached NodeRef.Hash, so hashing a node is O(1) in the
// size of its own payload — the recursive definition in spec §3 is
// realised by maintaining each NodeRef's Hash field bottom-up as the trie
// is mutated, never by re-walking subtrees.
func hashNode(n node) Hash {
	h := sha256.New()
	switch n.kind {
	case kindBranch:
		h.Write([]byte{domainBranch})
		h.Write(n.children[0].Hash[:])
		h.Write(n.children[1].Hash[:])
	case kindExtension:
		h.Write([]byte{domainExtension})
		buf := n.key.Encode(extTag)
		h.Write(buf[:])
		h.Write(n.child.Hash[:])
	case kindValue:
		// isSealed is deliberately excluded from the hash: sealing a value
		// must leave hash() unchanged (spec §8 property 4), since sealing
		// only prunes storage and never alters the committed state.
		h.Write([]byte{domainValue})
		h.Write(n.valueHash[:])
		h.Write(n.child.Hash[:])
	default:
		panic("trie: hashNode of unknown kind")
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// hashChunkedExtension computes the hash of a logical Extension key wider
// than bits.MaxExtKeyBits by folding its bits.Chunks() right-to-left,
// each chunk hashed as a single-chunk Extension node wrapping the
// previous fold. This is exactly the hash nested, per-chunk Extension
// cells chained by pointer would produce (see trie.go, where long keys
// are in fact materialised that way) — it lets a caller recompute the
// same hash before committing cells, per spec §4.3's "slow path".
func hashChunkedExtension(chunks []bits.Slice, childHash Hash) Hash {
	acc := childHash
	for i := len(chunks) - 1; i >= 0; i-- {
		ek, err := bits.NewExtKey(chunks[i])
		if err != nil {
			panic(err)
		}
		acc = hashNode(extensionNode(ek, NodeRef{Hash: acc}))
	}
	return acc
}
