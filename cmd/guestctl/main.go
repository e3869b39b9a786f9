// Command guestctl is a read-only inspection tool for guest-chain
// account snapshots (SPEC_FULL.md "CLI"): it prints a trie's root hash,
// a chain manager's head block and candidate set, and verifies a
// supplied inclusion/exclusion proof. It is not part of the on-chain
// core — an operator or relayer runs it against a dump of account bytes
// to sanity-check state without writing a one-off script.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/composable-guest/guestchain/bits"
	"github.com/composable-guest/guestchain/guestchain"
	"github.com/composable-guest/guestchain/hostglue"
	"github.com/composable-guest/guestchain/trie"
)

func main() {
	app := &cli.App{
		Name:  "guestctl",
		Usage: "inspect guest-chain trie and chain-manager account snapshots",
		Commands: []*cli.Command{
			trieRootCommand(),
			chainHeadCommand(),
			verifyCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "guestctl:", err)
		os.Exit(1)
	}
}

func trieRootCommand() *cli.Command {
	return &cli.Command{
		Name:      "trie-root",
		Usage:     "print a trie account's root hash and cell occupancy",
		ArgsUsage: "<account-file>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.Exit("missing <account-file>", 1)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			p, header, err := hostglue.DecodeTrieAccount(data)
			if err != nil {
				return err
			}
			t := trie.New(p)
			fmt.Printf("root:       %s\n", hex.EncodeToString(t.Hash()[:]))
			fmt.Printf("root ptr:   %d\n", header.RootPtr)
			stats := p.Stats()
			fmt.Printf("cells:      %d (occupied %d, free %d)\n", stats.Cells, stats.Occupied, stats.Free)
			return nil
		},
	}
}

func chainHeadCommand() *cli.Command {
	return &cli.Command{
		Name:      "chain-head",
		Usage:     "print a chain account's head block and candidate set",
		ArgsUsage: "<account-file>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.Exit("missing <account-file>", 1)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			var mgr guestchain.ChainManager
			if _, err := (&mgr).UnmarshalBorsh(data); err != nil {
				return err
			}

			finalised, header := mgr.Head()
			genesis := mgr.Genesis()
			fmt.Printf("genesis:    %s\n", hex.EncodeToString(genesis[:]))
			fmt.Printf("height:     %d\n", header.BlockHeight)
			fmt.Printf("finalised:  %v\n", finalised)
			fmt.Printf("host height: %d\n", header.HostHeight)
			fmt.Printf("state root: %s\n", hex.EncodeToString(header.StateRoot[:]))

			fmt.Println("validators:")
			for _, v := range mgr.Validators() {
				fmt.Printf("  %s stake=%d\n", hex.EncodeToString(v.PubKey.Bytes()), v.Stake)
			}
			fmt.Println("candidates:")
			for _, cand := range mgr.Candidates() {
				fmt.Printf("  %s stake=%d\n", hex.EncodeToString(cand.PubKey.Bytes()), cand.Stake)
			}
			return nil
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "verify a proof for a key against a root hash",
		ArgsUsage: "<root-hex> <key-hex> <value-hash-hex> <proof-file>",
		Action: func(c *cli.Context) error {
			args := c.Args()
			if args.Len() != 4 {
				return cli.Exit("want exactly 4 arguments: <root-hex> <key-hex> <value-hash-hex> <proof-file>", 1)
			}
			rootBytes, err := hex.DecodeString(args.Get(0))
			if err != nil || len(rootBytes) != 32 {
				return cli.Exit("root-hex must be a 32-byte hex string", 1)
			}
			keyBytes, err := hex.DecodeString(args.Get(1))
			if err != nil {
				return cli.Exit("key-hex must be a hex string", 1)
			}
			valueHashBytes, err := hex.DecodeString(args.Get(2))
			if err != nil || len(valueHashBytes) != 32 {
				return cli.Exit("value-hash-hex must be a 32-byte hex string", 1)
			}
			proofData, err := os.ReadFile(args.Get(3))
			if err != nil {
				return err
			}

			var root trie.Hash
			copy(root[:], rootBytes)
			var valueHash trie.Hash
			copy(valueHash[:], valueHashBytes)

			proof, err := trie.Unmarshal(proofData)
			if err != nil {
				return fmt.Errorf("parsing proof: %w", err)
			}

			ok, err := trie.Verify(root, bits.FromBytes(keyBytes), valueHash, proof)
			if err != nil {
				return err
			}
			if ok {
				fmt.Println("OK: proof verifies")
				return nil
			}
			fmt.Println("FAIL: proof does not verify")
			return cli.Exit("", 1)
		},
	}
}
