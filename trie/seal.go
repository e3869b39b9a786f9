package trie

import (
	"github.com/composable-guest/guestchain/bits"
	"github.com/composable-guest/guestchain/pool"
	"github.com/composable-guest/guestchain/xerrors"
)

// Seal marks the value at key as irrevocably sealed: its hash remains
// reachable for proofs, but storage for it (and, transitively, any
// ancestor Extension above it and any ancestor Branch whose other child
// is also sealed) is freed. hash()
// never changes as a result (spec §8 property 4), since a value's own
// sealed flag is excluded from its hash.
func (t *Trie) Seal(key bits.Slice) error {
	wl := pool.Open(t.pool)
	newRoot, err := t.sealAt(wl, t.root, key)
	if err != nil {
		wl.Drop()
		return err
	}
	wl.Commit()
	t.root = newRoot
	return nil
}

func (t *Trie) sealAt(wl *pool.WriteLog, ref NodeRef, key bits.Slice) (NodeRef, error) {
	if ref.Ptr == pool.None {
		if ref.Hash == (Hash{}) {
			return NodeRef{}, xerrors.ErrNotFound
		}
		return NodeRef{}, xerrors.ErrSealed
	}
	n, err := decodeNode(wl.Get(ref.Ptr))
	if err != nil {
		return NodeRef{}, err
	}

	switch n.kind {
	case kindBranch:
		if key.IsEmpty() {
			return NodeRef{}, xerrors.ErrNotFound
		}
		bit, rest := key.PopFront()
		idx := boolIndex(bit)
		newChild, err := t.sealAt(wl, n.children[idx], rest)
		if err != nil {
			return NodeRef{}, err
		}
		n.children[idx] = newChild
		if n.children[0].Sealed() && n.children[1].Sealed() {
			// Both sides sealed: the Branch itself collapses to a bare
			// sealed reference, propagating the seal toward the root.
			h := hashNode(n)
			wl.Free(ref.Ptr)
			return NodeRef{Ptr: pool.None, Hash: h}, nil
		}
		return t.replaceInPlace(wl, ref.Ptr, n), nil

	case kindExtension:
		rest, ok := key.StripPrefix(n.key.Slice())
		if !ok {
			return NodeRef{}, xerrors.ErrNotFound
		}
		newChild, err := t.sealAt(wl, n.child, rest)
		if err != nil {
			return NodeRef{}, err
		}
		n.child = newChild
		if newChild.Sealed() {
			// Nothing live remains below: the Extension collapses to a
			// bare sealed reference too, so a Branch above it sees a
			// sealed child and can collapse in turn.
			h := hashNode(n)
			wl.Free(ref.Ptr)
			return NodeRef{Ptr: pool.None, Hash: h}, nil
		}
		return t.replaceInPlace(wl, ref.Ptr, n), nil

	case kindValue:
		if !key.IsEmpty() {
			newChild, err := t.sealAt(wl, n.child, key)
			if err != nil {
				return NodeRef{}, err
			}
			n.child = newChild
			return t.replaceInPlace(wl, ref.Ptr, n), nil
		}
		if n.isSealed {
			return NodeRef{}, xerrors.ErrSealed
		}
		h := hashNode(n) // unaffected by isSealed, computed before any mutation
		if n.child.Ptr == pool.None {
			// No live continuation below this value: the whole node can
			// be freed and replaced by a bare sealed reference.
			wl.Free(ref.Ptr)
			return NodeRef{Ptr: pool.None, Hash: h}, nil
		}
		// A live subtrie continues below: keep the cell (future lookups
		// for longer keys must still find its child pointer) but flip
		// the sealed flag in place.
		n.isSealed = true
		return t.replaceInPlace(wl, ref.Ptr, n), nil
	}
	panic("trie: unreachable node kind")
}
