package trie

import (
	"github.com/composable-guest/guestchain/bits"
	"github.com/composable-guest/guestchain/pool"
	"github.com/composable-guest/guestchain/xerrors"
)

// Set inserts or updates the value hash stored at key, rolling back
// through the write-log on any failure so no partial mutation is ever
// observable (spec §4.4).
func (t *Trie) Set(key bits.Slice, valueHash Hash) error {
	if t.IsEmpty() && key.IsEmpty() {
		return xerrors.ErrEmptyKey
	}
	wl := pool.Open(t.pool)
	newRoot, err := t.setAt(wl, t.root, key, valueHash)
	if err != nil {
		wl.Drop()
		return err
	}
	wl.Commit()
	t.root = newRoot
	return nil
}

func (t *Trie) setAt(wl *pool.WriteLog, ref NodeRef, key bits.Slice, valueHash Hash) (NodeRef, error) {
	if ref.Ptr == pool.None {
		if ref.Hash != (Hash{}) {
			return NodeRef{}, xerrors.ErrSealed
		}
		return t.buildLeafChain(wl, key, valueHash)
	}

	n, err := decodeNode(wl.Get(ref.Ptr))
	if err != nil {
		return NodeRef{}, err
	}

	if key.IsEmpty() {
		if n.kind == kindValue {
			n.valueHash = valueHash
			return t.replaceInPlace(wl, ref.Ptr, n), nil
		}
		// key is a strict prefix of an existing, longer key: wrap the
		// existing branch/extension subtrie under a new Value node.
		return t.allocNew(wl, valueNode(valueHash, false, ref))
	}

	switch n.kind {
	case kindBranch:
		bit, rest := key.PopFront()
		idx := boolIndex(bit)
		newChild, err := t.setAt(wl, n.children[idx], rest, valueHash)
		if err != nil {
			return NodeRef{}, err
		}
		n.children[idx] = newChild
		return t.replaceInPlace(wl, ref.Ptr, n), nil

	case kindExtension:
		extSlice := n.key.Slice()
		if rest, ok := key.StripPrefix(extSlice); ok {
			newChild, err := t.setAt(wl, n.child, rest, valueHash)
			if err != nil {
				return NodeRef{}, err
			}
			n.child = newChild
			return t.replaceInPlace(wl, ref.Ptr, n), nil
		}
		return t.splitExtension(wl, ref.Ptr, n, key, valueHash)

	case kindValue:
		newChild, err := t.setAt(wl, n.child, key, valueHash)
		if err != nil {
			return NodeRef{}, err
		}
		n.child = newChild
		return t.replaceInPlace(wl, ref.Ptr, n), nil
	}
	panic("trie: unreachable node kind")
}

// buildLeafChain materialises a value at key under an empty slot: a
// Value node, optionally wrapped in one or more Extension nodes (one per
// bits.Slice.Chunks() segment) covering key's bits. An empty key yields
// a bare Value node — extensions are never materialised empty.
func (t *Trie) buildLeafChain(wl *pool.WriteLog, key bits.Slice, valueHash Hash) (NodeRef, error) {
	leaf, err := t.allocNew(wl, valueNode(valueHash, false, emptyRef))
	if err != nil {
		return NodeRef{}, err
	}
	if key.IsEmpty() {
		return leaf, nil
	}
	chunks := key.Chunks()
	cur := leaf
	for i := len(chunks) - 1; i >= 0; i-- {
		ek, err := bits.NewExtKey(chunks[i])
		if err != nil {
			return NodeRef{}, err
		}
		cur, err = t.allocNew(wl, extensionNode(ek, cur))
		if err != nil {
			return NodeRef{}, err
		}
	}
	return cur, nil
}

// splitExtension handles inserting a value whose key diverges from an
// Extension node's key partway through. It frees the original cell and
// rebuilds: an optional outer Extension over the common prefix, wrapping
// either a two-way Branch (both the old subtrie and the new value have
// bits left after the common prefix) or a Value node (the new key ends
// exactly at the common prefix, so it becomes a prefix of the old key).
func (t *Trie) splitExtension(wl *pool.WriteLog, ptr pool.Ptr, extN node, key bits.Slice, valueHash Hash) (NodeRef, error) {
	extSlice := extN.key.Slice()
	prefix, extSuffix, keySuffixKey, keyHasSuffix := extSlice.ForwardCommonPrefix(key)

	// extSuffix is guaranteed non-empty: had it been empty, key would have
	// started with the whole extension and setAt would have taken the
	// matching-prefix branch instead of calling splitExtension.
	inner, err := t.splitExtensionInner(wl, extSuffix, extN.child, keySuffixKey, keyHasSuffix, valueHash)
	if err != nil {
		return NodeRef{}, err
	}

	wl.Free(ptr)
	if prefix.IsEmpty() {
		return inner, nil
	}
	ek, err := bits.NewExtKey(prefix)
	if err != nil {
		return NodeRef{}, err
	}
	return t.allocNew(wl, extensionNode(ek, inner))
}

// splitExtensionInner builds the node immediately below the shared
// prefix: a two-way Branch if both the old extension and the new key
// have bits left after the prefix, otherwise a Value node wrapping the
// old continuation (the new key is itself the shorter of the two).
func (t *Trie) splitExtensionInner(wl *pool.WriteLog, extSuffix bits.Slice, oldChild NodeRef, keySuffixKey bits.ExtKey, keyHasSuffix bool, valueHash Hash) (NodeRef, error) {
	if !keyHasSuffix {
		remaining, err := t.wrapRemainder(wl, extSuffix, oldChild)
		if err != nil {
			return NodeRef{}, err
		}
		return t.allocNew(wl, valueNode(valueHash, false, remaining))
	}

	oldBit, oldRest := extSuffix.PopFront()
	oldSide, err := t.wrapRemainder(wl, oldRest, oldChild)
	if err != nil {
		return NodeRef{}, err
	}
	newBit, newRest := keySuffixKey.Slice().PopFront()
	newSide, err := t.buildLeafChain(wl, newRest, valueHash)
	if err != nil {
		return NodeRef{}, err
	}
	var children [2]NodeRef
	children[boolIndex(oldBit)] = oldSide
	children[boolIndex(newBit)] = newSide
	return t.allocNew(wl, branchNode(children[0], children[1]))
}

// wrapRemainder wraps child in an Extension over rest if rest is
// non-empty (never materialising an empty Extension), otherwise returns
// child unchanged.
func (t *Trie) wrapRemainder(wl *pool.WriteLog, rest bits.Slice, child NodeRef) (NodeRef, error) {
	if rest.IsEmpty() {
		return child, nil
	}
	ek, err := bits.NewExtKey(rest)
	if err != nil {
		return NodeRef{}, err
	}
	return t.allocNew(wl, extensionNode(ek, child))
}
