package trie

import (
	"testing"

	"github.com/composable-guest/guestchain/bits"
	"github.com/composable-guest/guestchain/pool"
	"github.com/composable-guest/guestchain/xerrors"
)

func keyOf(s string) bits.Slice {
	return bits.FromBytes([]byte(s))
}

func hashOf(s string) Hash {
	var h Hash
	copy(h[:], s)
	return h
}

func TestEmptyTrieHashAndLookup(t *testing.T) {
	tr := New(pool.New())
	if tr.Hash() != EmptyRootHash {
		t.Fatalf("fresh trie hash = %x, want EmptyRootHash", tr.Hash())
	}
	if !tr.IsEmpty() {
		t.Fatal("fresh trie should be empty")
	}
	if _, err := tr.Get(keyOf("foo")); err != xerrors.ErrNotFound {
		t.Fatalf("Get on empty trie = %v, want ErrNotFound", err)
	}
}

// TestSetGetRoundTrip covers scenario S1: several overlapping keys set and
// retrieved, with near-miss keys confirmed absent.
func TestSetGetRoundTrip(t *testing.T) {
	tr := New(pool.New())
	entries := map[string]Hash{
		"foo": hashOf("foo-value"),
		"bar": hashOf("bar-value"),
		"baz": hashOf("baz-value"),
		"qux": hashOf("qux-value"),
	}
	for k, v := range entries {
		if err := tr.Set(keyOf(k), v); err != nil {
			t.Fatalf("Set(%q) failed: %v", k, err)
		}
	}
	for k, want := range entries {
		got, err := tr.Get(keyOf(k))
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", k, err)
		}
		if got != want {
			t.Fatalf("Get(%q) = %x, want %x", k, got, want)
		}
	}
	for _, miss := range []string{"fo", "foobar", "ba", "nope"} {
		if _, err := tr.Get(keyOf(miss)); err != xerrors.ErrNotFound {
			t.Fatalf("Get(%q) = %v, want ErrNotFound", miss, err)
		}
	}
}

// TestSetOverwritesExistingValue ensures re-setting an existing key updates
// its value in place and changes the root hash.
func TestSetOverwritesExistingValue(t *testing.T) {
	tr := New(pool.New())
	if err := tr.Set(keyOf("foo"), hashOf("v1")); err != nil {
		t.Fatal(err)
	}
	before := tr.Hash()
	if err := tr.Set(keyOf("foo"), hashOf("v2")); err != nil {
		t.Fatal(err)
	}
	if tr.Hash() == before {
		t.Fatal("root hash unchanged after overwriting value")
	}
	got, err := tr.Get(keyOf("foo"))
	if err != nil {
		t.Fatal(err)
	}
	if got != hashOf("v2") {
		t.Fatalf("Get after overwrite = %x, want v2", got)
	}
}

// TestSetKeyIsPrefixOfExisting covers inserting a value at a key that is a
// strict prefix of an already-set, longer key: the shorter key's Value node
// must wrap the longer key's subtrie rather than replacing it.
func TestSetKeyIsPrefixOfExisting(t *testing.T) {
	tr := New(pool.New())
	long := bits.New([]byte{0xAB, 0xCD}, 0, 16)
	short, _ := long.SplitAt(8)

	if err := tr.Set(long, hashOf("long")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Set(short, hashOf("short")); err != nil {
		t.Fatal(err)
	}
	gotLong, err := tr.Get(long)
	if err != nil {
		t.Fatal(err)
	}
	if gotLong != hashOf("long") {
		t.Fatalf("long key value corrupted: %x", gotLong)
	}
	gotShort, err := tr.Get(short)
	if err != nil {
		t.Fatal(err)
	}
	if gotShort != hashOf("short") {
		t.Fatalf("short key value corrupted: %x", gotShort)
	}
}

// TestSetDivergingKeysSplitExtension covers keys sharing a long common
// prefix before diverging, exercising splitExtension/splitExtensionInner.
func TestSetDivergingKeysSplitExtension(t *testing.T) {
	tr := New(pool.New())
	a := bits.New([]byte{0b11110000, 0x00}, 0, 16)
	b := bits.New([]byte{0b11110000, 0xFF}, 0, 16)
	c := bits.New([]byte{0b11110001, 0x00}, 0, 16)

	for _, kv := range []struct {
		k bits.Slice
		v string
	}{{a, "a"}, {b, "b"}, {c, "c"}} {
		if err := tr.Set(kv.k, hashOf(kv.v)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	for _, kv := range []struct {
		k bits.Slice
		v string
	}{{a, "a"}, {b, "b"}, {c, "c"}} {
		got, err := tr.Get(kv.k)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != hashOf(kv.v) {
			t.Fatalf("Get mismatch: got %x want %s", got, kv.v)
		}
	}
}

// TestSetWideKeySpansMultipleChunks covers scenario S2: a key wider than
// bits.MaxExtKeyBits forces buildLeafChain to materialise more than one
// chained Extension node, and the slow-path hash fold in hashChunkedExtension
// must agree with the hash actually produced by the chained cells.
func TestSetWideKeySpansMultipleChunks(t *testing.T) {
	wide := make([]byte, 40) // 320 bits > 272-bit MaxExtKeyBits
	for i := range wide {
		wide[i] = byte(i + 1)
	}
	key := bits.FromBytes(wide)
	if len(key.Chunks()) < 2 {
		t.Fatalf("expected the test key to span multiple chunks, got %d", len(key.Chunks()))
	}

	tr := New(pool.New())
	val := hashOf("wide-value")
	if err := tr.Set(key, val); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := tr.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != val {
		t.Fatalf("Get = %x, want %x", got, val)
	}

	leafRef, err := t2LeafRef(val)
	if err != nil {
		t.Fatal(err)
	}
	folded := hashChunkedExtension(key.Chunks(), leafRef)
	if folded != tr.Hash() {
		t.Fatalf("slow-path chunked hash %x disagrees with chained-cell root hash %x", folded, tr.Hash())
	}
}

// t2LeafRef computes the hash a bare Value leaf (no further subtrie) storing
// val would have, matching what buildLeafChain allocates at the bottom of
// its chain.
func t2LeafRef(val Hash) (Hash, error) {
	n := valueNode(val, false, NodeRef{Ptr: pool.None, Hash: Hash{}})
	return hashNode(n), nil
}

// TestSealLeafValue covers a straightforward seal: Get afterwards reports
// ErrSealed, and the root hash is unchanged (spec §8 property 4).
func TestSealLeafValue(t *testing.T) {
	tr := New(pool.New())
	if err := tr.Set(keyOf("foo"), hashOf("v")); err != nil {
		t.Fatal(err)
	}
	before := tr.Hash()
	if err := tr.Seal(keyOf("foo")); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if tr.Hash() != before {
		t.Fatalf("root hash changed after seal: %x != %x", tr.Hash(), before)
	}
	if _, err := tr.Get(keyOf("foo")); err != xerrors.ErrSealed {
		t.Fatalf("Get after seal = %v, want ErrSealed", err)
	}
	if err := tr.Seal(keyOf("foo")); err != xerrors.ErrSealed {
		t.Fatalf("double Seal = %v, want ErrSealed", err)
	}
}

// TestSealNotFound covers sealing an absent key.
func TestSealNotFound(t *testing.T) {
	tr := New(pool.New())
	if err := tr.Set(keyOf("foo"), hashOf("v")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Seal(keyOf("bar")); err != xerrors.ErrNotFound {
		t.Fatalf("Seal(missing) = %v, want ErrNotFound", err)
	}
}

// TestSealPropagatesThroughBranch covers scenario S3: sealing both values
// under a Branch collapses the Branch itself into a bare sealed reference,
// freeing its cell, while the trie's root hash is preserved throughout.
func TestSealPropagatesThroughBranch(t *testing.T) {
	tr := New(pool.New())
	a := bits.New([]byte{0x00}, 0, 8)
	b := bits.New([]byte{0x80}, 0, 8) // diverges from a on the first bit

	if err := tr.Set(a, hashOf("a")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Set(b, hashOf("b")); err != nil {
		t.Fatal(err)
	}
	beforeSeal := tr.Hash()
	statsBefore := poolStatsOf(tr)

	if err := tr.Seal(a); err != nil {
		t.Fatalf("seal a failed: %v", err)
	}
	if tr.Hash() != beforeSeal {
		t.Fatal("root hash changed after sealing one of two branch children")
	}
	if err := tr.Seal(b); err != nil {
		t.Fatalf("seal b failed: %v", err)
	}
	if tr.Hash() != beforeSeal {
		t.Fatal("root hash changed after sealing both branch children")
	}

	statsAfter := poolStatsOf(tr)
	if statsAfter.Occupied >= statsBefore.Occupied {
		t.Fatalf("expected cells to be freed by full seal propagation: before=%+v after=%+v", statsBefore, statsAfter)
	}

	if _, err := tr.Get(a); err != xerrors.ErrSealed {
		t.Fatalf("Get(a) after full seal = %v, want ErrSealed", err)
	}
	if _, err := tr.Get(b); err != xerrors.ErrSealed {
		t.Fatalf("Get(b) after full seal = %v, want ErrSealed", err)
	}
}

func poolStatsOf(tr *Trie) pool.Stats {
	return tr.pool.Stats()
}

func TestSetEmptyKeyOnEmptyTrieRejected(t *testing.T) {
	tr := New(pool.New())
	if err := tr.Set(bits.Slice{}, hashOf("v")); err != xerrors.ErrEmptyKey {
		t.Fatalf("Set(empty key) on empty trie = %v, want ErrEmptyKey", err)
	}
}

func TestSetEmptyKeyAfterRootEstablished(t *testing.T) {
	tr := New(pool.New())
	if err := tr.Set(keyOf("foo"), hashOf("v")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Set(bits.Slice{}, hashOf("root-value")); err != nil {
		t.Fatalf("Set(empty key) once non-empty = %v, want nil", err)
	}
	got, err := tr.Get(bits.Slice{})
	if err != nil {
		t.Fatal(err)
	}
	if got != hashOf("root-value") {
		t.Fatalf("Get(empty key) = %x, want root-value", got)
	}
	// The longer key set first must still be reachable afterwards.
	gotFoo, err := tr.Get(keyOf("foo"))
	if err != nil {
		t.Fatal(err)
	}
	if gotFoo != hashOf("v") {
		t.Fatalf("Get(foo) after wrapping = %x", gotFoo)
	}
}

func TestFailedSealLeavesTrieUnchanged(t *testing.T) {
	tr := New(pool.New())
	if err := tr.Set(keyOf("foo"), hashOf("v")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Seal(keyOf("foo")); err != nil {
		t.Fatal(err)
	}
	before := tr.Hash()
	statsBefore := poolStatsOf(tr)

	if err := tr.Seal(keyOf("foo")); err != xerrors.ErrSealed {
		t.Fatalf("second Seal = %v, want ErrSealed", err)
	}
	if tr.Hash() != before {
		t.Fatal("hash drifted across a failed operation")
	}
	if poolStatsOf(tr) != statsBefore {
		t.Fatal("pool occupancy drifted across a failed operation")
	}
}
