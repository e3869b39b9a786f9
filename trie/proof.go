package trie

import (
	"github.com/composable-guest/guestchain/bits"
	"github.com/composable-guest/guestchain/pool"
	"github.com/composable-guest/guestchain/xerrors"
)

// itemKind discriminates the three shapes a proof step can take.
type itemKind uint8

const (
	itemBranch itemKind = iota
	itemExtension
	itemValue
)

// Item is one step of a proof, ordered from the node nearest the looked-up
// value up toward (but not including) the root.
type Item struct {
	Kind itemKind

	// Branch: the hash of the child not on our path.
	Sibling Hash

	// Extension: number of bits this extension's key covers. The bits
	// themselves are re-derived from the lookup key during verification,
	// never stored — a verifier and a prover walk the same key.
	Bits uint16

	// Value: whichever of (stored value hash, child node hash) is not on
	// our path.
	OtherHash Hash
}

// actualKind discriminates the three ways a lookup can terminate short of
// a Branch/Extension/Value pair on its own path, for a non-membership
// proof.
type actualKind uint8

const (
	actualBranch actualKind = iota
	actualExtension
	actualLookupKeyLeft
)

// Actual describes what was really found in place of the looked-up key,
// for a non-membership proof.
type Actual struct {
	Kind actualKind

	// Branch: both children, since the lookup key ran out exactly here.
	Left, Right Hash

	// Extension: the extension actually present (its bit-offset within
	// EncodedKey's first byte, its bit-length, and its packed key bits,
	// since they diverge from the lookup key and so cannot be re-derived
	// the way a matching Item's bits can), its child's hash, and how many
	// lookup-key bits were still unconsumed when the mismatch was found.
	// ExtOffset must be carried alongside EncodedKey/ExtBits: hashNode
	// mixes an Extension's bit-offset into its encoding (see
	// bits.ExtKey.Encode), so reconstructing the node at the wrong
	// offset yields the wrong hash even when the bits themselves match.
	ExtOffset     uint8
	ExtBits       uint16
	EncodedKey    []byte
	Child         Hash
	BitsRemaining uint16

	// LookupKeyLeft: the value found at a Value node whose continuation
	// was empty, and how many lookup-key bits were still unconsumed.
	ValueHash     Hash
	LeftoverBits  uint16
}

// Proof is either Positive (the key is a member) or Negative (it is not,
// with Actual describing what the trie holds instead).
type Proof struct {
	Positive bool
	Actual   *Actual // nil when Positive
	Items    []Item
}

// Prove walks key from the root exactly as Get does, but records a Proof
// that can later be checked against Hash() by Verify without access to
// the trie itself.
func (t *Trie) Prove(key bits.Slice) (Hash, bool, Proof, error) {
	if t.IsEmpty() {
		return Hash{}, false, Proof{Positive: false}, nil
	}

	var items []Item
	ref := t.root
	for {
		if ref.Ptr == pool.None {
			// Only reachable via a Value's empty continuation (handled
			// below before ever assigning ref to it) or a genuinely
			// sealed subtree; the root-empty case was excluded above.
			return Hash{}, false, Proof{}, xerrors.ErrSealed
		}
		n, err := decodeNode(t.pool.Get(ref.Ptr))
		if err != nil {
			return Hash{}, false, Proof{}, err
		}

		switch n.kind {
		case kindBranch:
			if key.IsEmpty() {
				return Hash{}, false, Proof{
					Actual: &Actual{Kind: actualBranch, Left: n.children[0].Hash, Right: n.children[1].Hash},
					Items:  items,
				}, nil
			}
			bit, rest := key.PopFront()
			idx := boolIndex(bit)
			items = append([]Item{{Kind: itemBranch, Sibling: n.children[1-idx].Hash}}, items...)
			ref, key = n.children[idx], rest

		case kindExtension:
			extSlice := n.key.Slice()
			rest, ok := key.StripPrefix(extSlice)
			if !ok {
				return Hash{}, false, Proof{
					Actual: &Actual{
						Kind:          actualExtension,
						ExtOffset:     extSlice.Offset,
						ExtBits:       extSlice.Length,
						EncodedKey:    extSlice.Packed(),
						Child:         n.child.Hash,
						BitsRemaining: key.Length,
					},
					Items: items,
				}, nil
			}
			items = append([]Item{{Kind: itemExtension, Bits: extSlice.Length}}, items...)
			ref, key = n.child, rest

		case kindValue:
			if key.IsEmpty() {
				if n.isSealed {
					return Hash{}, false, Proof{}, xerrors.ErrSealed
				}
				items = append([]Item{{Kind: itemValue, OtherHash: n.child.Hash}}, items...)
				return n.valueHash, true, Proof{Positive: true, Items: items}, nil
			}
			if n.child.Ptr == pool.None && n.child.Hash == (Hash{}) {
				return Hash{}, false, Proof{
					Actual: &Actual{Kind: actualLookupKeyLeft, ValueHash: n.valueHash, LeftoverBits: key.Length},
					Items:  items,
				}, nil
			}
			items = append([]Item{{Kind: itemValue, OtherHash: n.valueHash}}, items...)
			ref = n.child
		}
	}
}

// reference is the folding value threaded through Verify: a 32-byte hash
// tagged with whether it currently represents a value hash (only true
// for the very first, deepest fold step of a positive proof) or an
// already-folded node hash (true everywhere else, including every
// synthesised Actual).
type reference struct {
	isValue bool
	hash    Hash
}

// Verify checks proof against root for key, accepting iff proof is a
// correctly constructed (non-)membership proof: for a positive proof,
// that expectedHash is the value stored at key; for a negative proof,
// that key is genuinely absent. expectedHash is ignored for negative
// proofs.
func Verify(root Hash, key bits.Slice, expectedHash Hash, proof Proof) (bool, error) {
	if root == EmptyRootHash {
		return !proof.Positive, nil
	}

	var want reference
	var leftoverWant uint16
	if proof.Positive {
		if proof.Actual != nil {
			return false, xerrors.ErrBadProof
		}
		want = reference{isValue: true, hash: expectedHash}
	} else {
		if proof.Actual == nil {
			return false, xerrors.ErrBadProof
		}
		switch proof.Actual.Kind {
		case actualBranch:
			h := hashNode(branchNode(NodeRef{Hash: proof.Actual.Left}, NodeRef{Hash: proof.Actual.Right}))
			want = reference{isValue: false, hash: h}
			leftoverWant = 0
		case actualExtension:
			if proof.Actual.ExtBits == 0 || proof.Actual.ExtBits > bits.MaxExtKeyBits {
				return false, xerrors.ErrBadProof
			}
			if proof.Actual.ExtOffset >= 8 {
				return false, xerrors.ErrBadProof
			}
			if int(proof.Actual.ExtOffset)+int(proof.Actual.ExtBits) > len(proof.Actual.EncodedKey)*8 {
				return false, xerrors.ErrBadProof
			}
			ek, err := bits.NewExtKey(bits.New(proof.Actual.EncodedKey, proof.Actual.ExtOffset, proof.Actual.ExtBits))
			if err != nil {
				return false, xerrors.Wrap(err, "xerrors: malformed extension actual")
			}
			h := hashNode(extensionNode(ek, NodeRef{Hash: proof.Actual.Child}))
			want = reference{isValue: false, hash: h}
			leftoverWant = proof.Actual.BitsRemaining
		case actualLookupKeyLeft:
			if proof.Actual.LeftoverBits == 0 {
				return false, xerrors.ErrBadProof
			}
			h := hashNode(valueNode(proof.Actual.ValueHash, false, NodeRef{Ptr: pool.None, Hash: Hash{}}))
			want = reference{isValue: false, hash: h}
			leftoverWant = proof.Actual.LeftoverBits
		default:
			return false, xerrors.ErrBadProof
		}
	}

	// The unconsumed lookup-key bits are key's suffix; the items fold back
	// over the prefix before them.
	if leftoverWant > key.Length {
		return false, xerrors.ErrBadProof
	}
	remaining, _ := key.SplitAt(key.Length - leftoverWant)
	for _, it := range proof.Items {
		switch it.Kind {
		case itemBranch:
			if want.isValue || remaining.IsEmpty() {
				return false, xerrors.ErrBadProof
			}
			bit, rest := remaining.PopBack()
			var left, right Hash
			if bit {
				left, right = it.Sibling, want.hash
			} else {
				left, right = want.hash, it.Sibling
			}
			want = reference{isValue: false, hash: hashNode(branchNode(NodeRef{Hash: left}, NodeRef{Hash: right}))}
			remaining = rest

		case itemExtension:
			if want.isValue || it.Bits == 0 || it.Bits > bits.MaxExtKeyBits || remaining.Length < it.Bits {
				return false, xerrors.ErrBadProof
			}
			head, tail := remaining.SplitAt(remaining.Length - it.Bits)
			ek, err := bits.NewExtKey(tail)
			if err != nil {
				return false, xerrors.Wrap(err, "xerrors: malformed extension item")
			}
			want = reference{isValue: false, hash: hashNode(extensionNode(ek, NodeRef{Hash: want.hash}))}
			remaining = head

		case itemValue:
			var vh, ch Hash
			if want.isValue {
				vh, ch = want.hash, it.OtherHash
			} else {
				vh, ch = it.OtherHash, want.hash
			}
			want = reference{isValue: false, hash: hashNode(valueNode(vh, false, NodeRef{Hash: ch}))}

		default:
			return false, xerrors.ErrBadProof
		}
	}

	if want.isValue || remaining.Length != 0 {
		return false, xerrors.ErrBadProof
	}
	return want.hash == root, nil
}
