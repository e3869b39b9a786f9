package hostglue

import (
	"testing"

	"github.com/composable-guest/guestchain/pool"
)

func TestLevelDBStorePersistsTrieAccount(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLevelDBStore(dir)
	if err != nil {
		t.Fatalf("NewLevelDBStore: %v", err)
	}
	defer store.Close()

	p := pool.New()
	ptr, err := p.Alloc(pool.Cell{1, 2, 3})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	header := TrieAccountHeader{RootPtr: ptr, RootHash: [32]byte{7}}
	data := EncodeTrieAccount(p, header)

	if err := store.Put("trie", data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	loaded, ok, err := store.Get("trie")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected stored data to be found")
	}

	restored, gotHeader, err := DecodeTrieAccount(loaded)
	if err != nil {
		t.Fatalf("DecodeTrieAccount: %v", err)
	}
	if gotHeader != header {
		t.Fatalf("header = %+v, want %+v", gotHeader, header)
	}
	if restored.Get(ptr) != p.Get(ptr) {
		t.Fatal("cell content did not survive the store round trip")
	}
}

func TestLevelDBStoreGetMissingKey(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLevelDBStore(dir)
	if err != nil {
		t.Fatalf("NewLevelDBStore: %v", err)
	}
	defer store.Close()

	_, ok, err := store.Get("missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected missing key to report not found")
	}
}

func TestGrowThroughStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLevelDBStore(dir)
	if err != nil {
		t.Fatalf("NewLevelDBStore: %v", err)
	}
	defer store.Close()

	p := pool.New()
	ptr, err := p.Alloc(pool.Cell{9})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	data := EncodeTrieAccount(p, TrieAccountHeader{RootPtr: ptr})
	if err := store.Put("trie", data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	current, _, err := store.Get("trie")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	grown, err := Grow(current, 2, nil)
	if err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if err := store.Put("trie", grown); err != nil {
		t.Fatalf("Put(grown): %v", err)
	}

	loaded, _, err := store.Get("trie")
	if err != nil {
		t.Fatalf("Get after growth: %v", err)
	}
	restored, _, err := DecodeTrieAccount(loaded)
	if err != nil {
		t.Fatalf("DecodeTrieAccount: %v", err)
	}
	if restored.Len() != 3 {
		t.Fatalf("grown+persisted pool length = %d, want 3", restored.Len())
	}
}
