// Package trie implements the sealable Merkle Patricia trie: a
// bit-addressed, 32-byte-value-hash-only authenticated map with
// irrevocable value sealing and compact (non-)membership proofs.
package trie

import (
	"github.com/composable-guest/guestchain/bits"
	"github.com/composable-guest/guestchain/pool"
)

// Hash is a 32-byte digest: a subtree hash, a value hash, or a root hash.
type Hash [32]byte

// EmptyRootHash is the fixed root hash of an empty trie.
var EmptyRootHash = Hash{}

// NodeRef is a reference to a child node: a pool pointer plus the cached
// hash of the subtree it roots. Ptr == pool.None means the referenced
// subtree has been sealed and its cells freed — Hash is all that remains.
type NodeRef struct {
	Ptr  pool.Ptr
	Hash Hash
}

// Sealed reports whether the reference points at a sealed (pruned)
// subtree. It is only meaningful for references that are known to have
// held something at some point (Branch/Extension children, a Value's
// own slot); the trie root and a fresh Value's child slot additionally
// use Hash == zero to mean "never held anything", which Sealed does not
// distinguish from true sealing on its own.
func (r NodeRef) Sealed() bool { return r.Ptr == pool.None }

// nodeKind discriminates the three node variants. It is stored in the top
// two bits of the first word of a node's 72-byte cell.
type nodeKind uint8

const (
	kindBranch nodeKind = iota
	kindExtension
	kindValue
)

// node is the decoded, in-memory form of a trie node. Exactly one of
// Branch/Extension/Value is populated, mirroring the cell's discriminant.
type node struct {
	kind nodeKind

	// Branch
	children [2]NodeRef

	// Extension
	key   bits.ExtKey
	child NodeRef // Extension's one child (also used by Value below)

	// Value
	valueHash Hash
	isSealed  bool
}

func branchNode(left, right NodeRef) node {
	return node{kind: kindBranch, children: [2]NodeRef{left, right}}
}

func extensionNode(key bits.ExtKey, child NodeRef) node {
	return node{kind: kindExtension, key: key, child: child}
}

func valueNode(valueHash Hash, isSealed bool, child NodeRef) node {
	return node{kind: kindValue, valueHash: valueHash, isSealed: isSealed, child: child}
}
