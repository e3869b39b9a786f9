package trie

import (
	"github.com/composable-guest/guestchain/bits"
	"github.com/composable-guest/guestchain/pool"
	"github.com/composable-guest/guestchain/xerrors"
)

// Trie is a sealable Merkle Patricia trie over bit-addressed keys,
// storing only 32-byte value hashes. It owns no pool of its own: callers
// supply one (typically backed by an account buffer via hostglue), which
// lets several tries or a trie-plus-scratch-space share one arena.
type Trie struct {
	pool *pool.Pool
	root NodeRef
}

// New creates an empty trie backed by p.
func New(p *pool.Pool) *Trie {
	return &Trie{pool: p, root: NodeRef{Ptr: pool.None, Hash: EmptyRootHash}}
}

// Hash returns the current root hash. EmptyRootHash for an empty trie.
func (t *Trie) Hash() Hash { return t.root.Hash }

// IsEmpty reports whether the trie has never had a value set. A trie whose
// values have all been sealed is not empty: its root keeps the sealed
// subtree's hash.
func (t *Trie) IsEmpty() bool { return t.root.Ptr == pool.None && t.root.Hash == EmptyRootHash }

// emptyRef is the canonical "nothing here" reference: used for the root
// of a fresh trie and for a Value node's terminal (no further subtrie)
// child. None pointer + zero hash is unambiguous since a sealed
// reference always carries a non-zero hash (the hash of whatever it
// used to contain).
var emptyRef = NodeRef{Ptr: pool.None, Hash: Hash{}}

// Get looks up key, returning the stored value hash.
func (t *Trie) Get(key bits.Slice) (Hash, error) {
	ref := t.root
	for {
		if ref.Ptr == pool.None {
			if ref.Hash == (Hash{}) {
				return Hash{}, xerrors.ErrNotFound
			}
			return Hash{}, xerrors.ErrSealed
		}
		n, err := decodeNode(t.pool.Get(ref.Ptr))
		if err != nil {
			return Hash{}, err
		}
		switch n.kind {
		case kindBranch:
			if key.IsEmpty() {
				return Hash{}, xerrors.ErrNotFound
			}
			bit, rest := key.PopFront()
			ref, key = n.children[boolIndex(bit)], rest
		case kindExtension:
			rest, ok := key.StripPrefix(n.key.Slice())
			if !ok {
				return Hash{}, xerrors.ErrNotFound
			}
			ref, key = n.child, rest
		case kindValue:
			if key.IsEmpty() {
				if n.isSealed {
					return Hash{}, xerrors.ErrSealed
				}
				return n.valueHash, nil
			}
			ref = n.child
		}
	}
}

func boolIndex(b bool) int {
	if b {
		return 1
	}
	return 0
}

// replaceInPlace overwrites the cell at ptr with n's encoding, keeping
// the same pointer. Used whenever a mutation changes a node's payload
// (a child's hash bubbling up, a value being sealed in place) without
// changing the tree's shape at that position.
func (t *Trie) replaceInPlace(wl *pool.WriteLog, ptr pool.Ptr, n node) NodeRef {
	wl.Set(ptr, encodeNode(n))
	return NodeRef{Ptr: ptr, Hash: hashNode(n)}
}

// allocNew stores n in a brand-new cell.
func (t *Trie) allocNew(wl *pool.WriteLog, n node) (NodeRef, error) {
	ptr, err := wl.Alloc(encodeNode(n))
	if err != nil {
		return NodeRef{}, err
	}
	return NodeRef{Ptr: ptr, Hash: hashNode(n)}, nil
}
