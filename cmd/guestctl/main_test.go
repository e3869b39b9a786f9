package main

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/composable-guest/guestchain/guestchain"
	"github.com/composable-guest/guestchain/hostglue"
	"github.com/composable-guest/guestchain/pool"
	"github.com/composable-guest/guestchain/trie"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name: "guestctl",
		Commands: []*cli.Command{
			trieRootCommand(),
			chainHeadCommand(),
			verifyCommand(),
		},
	}
}

func TestTrieRootCommandReadsAccountFile(t *testing.T) {
	p := pool.New()
	ptr, err := p.Alloc(pool.Cell{})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	data := hostglue.EncodeTrieAccount(p, hostglue.TrieAccountHeader{RootPtr: ptr})

	dir := t.TempDir()
	path := filepath.Join(dir, "trie.bin")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := newApp().Run([]string{"guestctl", "trie-root", path}); err != nil {
		t.Fatalf("trie-root: %v", err)
	}
}

func TestTrieRootCommandRequiresArgument(t *testing.T) {
	if err := newApp().Run([]string{"guestctl", "trie-root"}); err == nil {
		t.Fatal("expected an error when no account file is given")
	}
}

func TestVerifyCommandOnEmptyTrie(t *testing.T) {
	p := pool.New()
	tr := trie.New(p)
	root := tr.Hash()

	dir := t.TempDir()
	proofPath := filepath.Join(dir, "proof.bin")
	if err := os.WriteFile(proofPath, trie.Proof{}.Marshal(), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	rootHex := hex.EncodeToString(root[:])
	keyHex := "00"
	valueHashHex := hex.EncodeToString(bytes.Repeat([]byte{0}, 32))

	err := newApp().Run([]string{"guestctl", "verify", rootHex, keyHex, valueHashHex, proofPath})
	if err != nil {
		t.Fatalf("verify on empty trie should succeed (absence proof trivially holds): %v", err)
	}
}

func TestChainHeadCommandReadsAccountFile(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pk, err := guestchain.NewPubKey(pub)
	if err != nil {
		t.Fatalf("NewPubKey: %v", err)
	}
	epoch, err := guestchain.NewEpoch([]guestchain.Validator{{PubKey: pk, Stake: 1}}, func(total uint64) uint64 { return total })
	if err != nil {
		t.Fatalf("NewEpoch: %v", err)
	}
	genesis, err := guestchain.GenerateGenesisBlock(1, 1, guestchain.Hash{}, epoch)
	if err != nil {
		t.Fatalf("GenerateGenesisBlock: %v", err)
	}
	mgr, err := guestchain.NewChainManager(guestchain.Config{MaxValidators: 1}, genesis)
	if err != nil {
		t.Fatalf("NewChainManager: %v", err)
	}
	data, err := mgr.MarshalBorsh(nil)
	if err != nil {
		t.Fatalf("MarshalBorsh: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "chain.bin")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := newApp().Run([]string{"guestctl", "chain-head", path}); err != nil {
		t.Fatalf("chain-head: %v", err)
	}
}

func TestVerifyCommandRejectsBadRootHex(t *testing.T) {
	dir := t.TempDir()
	proofPath := filepath.Join(dir, "proof.bin")
	if err := os.WriteFile(proofPath, trie.Proof{}.Marshal(), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	err := newApp().Run([]string{"guestctl", "verify", "not-hex", "00", hex.EncodeToString(make([]byte, 32)), proofPath})
	if err == nil {
		t.Fatal("expected an error for malformed root hex")
	}
}
