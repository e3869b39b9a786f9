// Package guestchain implements the guest-chain block/epoch model and
// the chain manager that produces and finalises blocks under
// quorum-signature rules (spec §4.6-§4.7): block headers and
// fingerprints, validator/candidate bookkeeping, and the state machine
// that gates new-block generation and signature collection.
package guestchain

import (
	"crypto/sha256"

	"github.com/composable-guest/guestchain/internal/borsh"
	"github.com/composable-guest/guestchain/trie"
)

// Hash is the guest chain's content-addressing digest. It is the same
// 32-byte sha256 type the trie package uses for node and root hashes,
// so a block header's StateRoot can be assigned directly from
// (*trie.Trie).Hash() without a conversion at the hostglue boundary.
type Hash = trie.Hash

// calcHash borsh-serialises val and returns its sha256 digest. Used by
// BlockHeader.CalcHash and Epoch.CalcCommitment: both are "hash of my
// canonical wire encoding" in the same way the trie package's node
// hashing is "domain byte plus canonical child hashes".
func calcHash(val interface{}) (Hash, error) {
	b, err := borsh.Marshal(val)
	if err != nil {
		return Hash{}, err
	}
	return Hash(sha256.Sum256(b)), nil
}

// appendBorsh is the common MarshalBorsh body shared by the types in
// this package that hold their wire shape in an unexported helper
// struct (Epoch, Candidates, ChainManager): the borsh reflection walk
// only sees exported fields, so these types encode through a wire twin
// instead.
func appendBorsh(out []byte, val interface{}) ([]byte, error) {
	b, err := borsh.Marshal(val)
	if err != nil {
		return nil, err
	}
	return append(out, b...), nil
}

// unmarshalBorshPrefix decodes one value from the front of data and
// returns the unconsumed remainder, the common UnmarshalBorsh body
// counterpart to appendBorsh.
func unmarshalBorshPrefix(data []byte, val interface{}) ([]byte, error) {
	dec := borsh.NewDecoder(data)
	if err := dec.Decode(val); err != nil {
		return nil, err
	}
	return data[len(data)-dec.Remaining():], nil
}
