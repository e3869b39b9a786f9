package trie

import (
	"testing"

	"github.com/composable-guest/guestchain/bits"
	"github.com/composable-guest/guestchain/pool"
)

// TestProveEmptyTrie covers the empty-trie non-membership special case:
// always valid regardless of key, without inspecting proof contents.
func TestProveEmptyTrie(t *testing.T) {
	tr := New(pool.New())
	_, found, proof, err := tr.Prove(keyOf("anything"))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("empty trie reported a value present")
	}
	ok, err := Verify(tr.Hash(), keyOf("anything"), Hash{}, proof)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("empty-trie non-membership proof did not verify")
	}
}

// TestProvePositiveRoundTrip covers spec property 1: every inserted
// (k, v) pair both Gets correctly and produces a membership proof that
// verifies against the current root.
func TestProvePositiveRoundTrip(t *testing.T) {
	tr := New(pool.New())
	entries := map[string]Hash{
		"foo": hashOf("foo-value"),
		"bar": hashOf("bar-value"),
		"baz": hashOf("baz-value"),
		"qux": hashOf("qux-value"),
	}
	for k, v := range entries {
		if err := tr.Set(keyOf(k), v); err != nil {
			t.Fatal(err)
		}
	}
	root := tr.Hash()
	for k, want := range entries {
		got, found, proof, err := tr.Prove(keyOf(k))
		if err != nil {
			t.Fatalf("Prove(%q) failed: %v", k, err)
		}
		if !found || got != want {
			t.Fatalf("Prove(%q) found=%v got=%x want=%x", k, found, got, want)
		}
		ok, err := Verify(root, keyOf(k), want, proof)
		if err != nil {
			t.Fatalf("Verify(%q) error: %v", k, err)
		}
		if !ok {
			t.Fatalf("membership proof for %q did not verify", k)
		}
	}
}

// TestProveNegativeRoundTrip covers spec property 2: keys never inserted
// report absence and produce a non-membership proof that verifies.
func TestProveNegativeRoundTrip(t *testing.T) {
	tr := New(pool.New())
	for _, k := range []string{"foo", "bar", "baz", "qux"} {
		if err := tr.Set(keyOf(k), hashOf(k+"-value")); err != nil {
			t.Fatal(err)
		}
	}
	root := tr.Hash()
	for _, miss := range []string{"Foo", "fo", "ba", "bay", "foobar"} {
		_, found, proof, err := tr.Prove(keyOf(miss))
		if err != nil {
			t.Fatalf("Prove(%q) failed: %v", miss, err)
		}
		if found {
			t.Fatalf("Prove(%q) reported membership", miss)
		}
		ok, err := Verify(root, keyOf(miss), Hash{}, proof)
		if err != nil {
			t.Fatalf("Verify(%q) error: %v", miss, err)
		}
		if !ok {
			t.Fatalf("non-membership proof for %q did not verify", miss)
		}
	}
}

// TestProveSoundness covers spec property 3: a proof generated for one
// (key, root) pair must not verify against a different root, nor against
// a different claimed value for the same key.
func TestProveSoundness(t *testing.T) {
	tr := New(pool.New())
	if err := tr.Set(keyOf("foo"), hashOf("v1")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Set(keyOf("bar"), hashOf("v2")); err != nil {
		t.Fatal(err)
	}
	root := tr.Hash()
	_, found, proof, err := tr.Prove(keyOf("foo"))
	if err != nil || !found {
		t.Fatalf("Prove(foo) = found=%v err=%v", found, err)
	}

	if ok, _ := Verify(root, keyOf("foo"), hashOf("not-v1"), proof); ok {
		t.Fatal("proof verified against the wrong expected value")
	}

	var otherRoot Hash
	copy(otherRoot[:], "completely-different-root------")
	if ok, _ := Verify(otherRoot, keyOf("foo"), hashOf("v1"), proof); ok {
		t.Fatal("proof verified against an unrelated root")
	}

	if err := tr.Set(keyOf("baz"), hashOf("v3")); err != nil {
		t.Fatal(err)
	}
	newRoot := tr.Hash()
	if ok, _ := Verify(newRoot, keyOf("foo"), hashOf("v1"), proof); ok {
		t.Fatal("stale proof verified against the post-mutation root")
	}
}

// TestProveWideKeyMultiChunk covers scenario S2 for the proof path: a key
// spanning multiple chained Extension cells still produces a verifiable
// membership proof (one Item per chained Extension).
func TestProveWideKeyMultiChunk(t *testing.T) {
	wide := make([]byte, 40)
	for i := range wide {
		wide[i] = byte(i*7 + 3)
	}
	key := bits.FromBytes(wide)

	tr := New(pool.New())
	val := hashOf("wide-value")
	if err := tr.Set(key, val); err != nil {
		t.Fatal(err)
	}
	root := tr.Hash()
	got, found, proof, err := tr.Prove(key)
	if err != nil || !found || got != val {
		t.Fatalf("Prove wide key: found=%v got=%x err=%v", found, got, err)
	}
	extItems := 0
	for _, it := range proof.Items {
		if it.Kind == itemExtension {
			extItems++
		}
	}
	if extItems < 2 {
		t.Fatalf("expected at least 2 chained Extension items, got %d", extItems)
	}
	ok, err := Verify(root, key, val, proof)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("wide-key membership proof did not verify")
	}
}

// TestProveBranchActual covers the non-membership case where the lookup
// key runs out exactly at a Branch node.
func TestProveBranchActual(t *testing.T) {
	tr := New(pool.New())
	a := bits.New([]byte{0x00}, 0, 8)
	b := bits.New([]byte{0x80}, 0, 8)
	if err := tr.Set(a, hashOf("a")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Set(b, hashOf("b")); err != nil {
		t.Fatal(err)
	}
	root := tr.Hash()
	shortKey := bits.Slice{}
	_, found, proof, err := tr.Prove(shortKey)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("empty key should not be present")
	}
	if proof.Actual == nil || proof.Actual.Kind != actualBranch {
		t.Fatalf("expected a Branch actual, got %+v", proof.Actual)
	}
	ok, err := Verify(root, shortKey, Hash{}, proof)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("branch-actual non-membership proof did not verify")
	}
}

// TestProveExtensionActualMisaligned covers the non-membership case where
// the lookup key diverges inside an Extension node whose key starts at a
// non-zero bit offset (not a byte boundary), exercising the Actual's
// ExtOffset round-trip through both Prove/Verify and the wire codec.
func TestProveExtensionActualMisaligned(t *testing.T) {
	tr := New(pool.New())
	// k1, k2 share a 5-bit common prefix (00111) and diverge at bit 5,
	// leaving each side a 10-bit continuation Extension starting at
	// offset 6 — not byte-aligned.
	k1 := bits.New([]byte{0x38, 0x00}, 0, 16) // 00111000 00000000
	k2 := bits.New([]byte{0x3C, 0x00}, 0, 16) // 00111100 00000000
	if err := tr.Set(k1, hashOf("k1")); err != nil {
		t.Fatalf("Set(k1) failed: %v", err)
	}
	if err := tr.Set(k2, hashOf("k2")); err != nil {
		t.Fatalf("Set(k2) failed: %v", err)
	}
	root := tr.Hash()

	// q shares k1's first 6 bits (following the branch into k1's side)
	// then diverges immediately inside k1's offset-6 continuation.
	q := bits.New([]byte{0x3A, 0x00}, 0, 16) // 00111010 00000000
	_, found, proof, err := tr.Prove(q)
	if err != nil {
		t.Fatalf("Prove(q) failed: %v", err)
	}
	if found {
		t.Fatal("q should not be present")
	}
	if proof.Actual == nil || proof.Actual.Kind != actualExtension {
		t.Fatalf("expected an Extension actual, got %+v", proof.Actual)
	}
	if proof.Actual.ExtOffset != 6 {
		t.Fatalf("expected the diverging extension's offset to be 6, got %d", proof.Actual.ExtOffset)
	}

	ok, err := Verify(root, q, Hash{}, proof)
	if err != nil {
		t.Fatalf("Verify(q) error: %v", err)
	}
	if !ok {
		t.Fatal("misaligned-extension non-membership proof did not verify")
	}

	// The wire codec must carry ExtOffset through Marshal/Unmarshal too.
	wire, err := Unmarshal(proof.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	ok, err = Verify(root, q, Hash{}, wire)
	if err != nil {
		t.Fatalf("Verify(wire) error: %v", err)
	}
	if !ok {
		t.Fatal("misaligned-extension non-membership proof did not verify after a wire round-trip")
	}
}

// TestMarshalUnmarshalRoundTrip exercises the wire codec end-to-end for
// both proof shapes.
func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	tr := New(pool.New())
	if err := tr.Set(keyOf("foo"), hashOf("v1")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Set(keyOf("bar"), hashOf("v2")); err != nil {
		t.Fatal(err)
	}
	root := tr.Hash()

	for _, key := range []string{"foo", "nope"} {
		_, _, proof, err := tr.Prove(keyOf(key))
		if err != nil {
			t.Fatal(err)
		}
		wire := proof.Marshal()
		decoded, err := Unmarshal(wire)
		if err != nil {
			t.Fatalf("Unmarshal(%q) failed: %v", key, err)
		}
		want := hashOf("v1")
		if key != "foo" {
			want = Hash{}
		}
		ok, err := Verify(root, keyOf(key), want, decoded)
		if err != nil {
			t.Fatalf("Verify decoded proof for %q: %v", key, err)
		}
		if !ok {
			t.Fatalf("decoded proof for %q did not verify", key)
		}
	}
}

func TestUnmarshalRejectsTruncatedInput(t *testing.T) {
	tr := New(pool.New())
	if err := tr.Set(keyOf("foo"), hashOf("v1")); err != nil {
		t.Fatal(err)
	}
	_, _, proof, err := tr.Prove(keyOf("foo"))
	if err != nil {
		t.Fatal(err)
	}
	wire := proof.Marshal()
	for n := 0; n < len(wire); n++ {
		if _, err := Unmarshal(wire[:n]); err == nil {
			t.Fatalf("Unmarshal accepted truncated input of length %d", n)
		}
	}
}

func TestVerifiedCacheMatchesDirectVerify(t *testing.T) {
	tr := New(pool.New())
	if err := tr.Set(keyOf("foo"), hashOf("v1")); err != nil {
		t.Fatal(err)
	}
	root := tr.Hash()
	_, _, proof, err := tr.Prove(keyOf("foo"))
	if err != nil {
		t.Fatal(err)
	}
	vc := NewVerifiedCache(1024 * 1024)
	for i := 0; i < 3; i++ {
		ok, err := vc.Verify(root, keyOf("foo"), hashOf("v1"), proof)
		if err != nil || !ok {
			t.Fatalf("cached Verify iteration %d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := vc.Verify(root, keyOf("foo"), hashOf("wrong"), proof)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("cache returned true for a mismatched expected value")
	}
}
