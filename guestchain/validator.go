package guestchain

import (
	"crypto/ed25519"

	"github.com/composable-guest/guestchain/xerrors"
)

// PubKey is an Ed25519 validator public key. It is a fixed-size array
// (not the stdlib's ed25519.PublicKey slice type) so it can be used as a
// map key and sorted by value, the way candidates.rs keeps an ordered,
// deduplicated candidate set.
type PubKey [ed25519.PublicKeySize]byte

// Signature is a raw Ed25519 signature.
type Signature [ed25519.SignatureSize]byte

// NewPubKey validates and wraps a raw Ed25519 public key.
func NewPubKey(raw []byte) (PubKey, error) {
	var pk PubKey
	if len(raw) != ed25519.PublicKeySize {
		return pk, xerrors.ErrBadValidator
	}
	copy(pk[:], raw)
	return pk, nil
}

// Bytes returns k as the stdlib ed25519 public key type.
func (k PubKey) Bytes() ed25519.PublicKey { return ed25519.PublicKey(k[:]) }

// Verify reports whether sig is a valid signature by k over msg.
func (k PubKey) Verify(msg []byte, sig Signature) bool {
	return ed25519.Verify(k.Bytes(), msg, sig[:])
}

// Less orders public keys by their raw byte representation, used to
// break ties in candidate ordering (spec: "ordered by (-stake, pubkey)").
func (k PubKey) Less(other PubKey) bool {
	for i := range k {
		if k[i] != other[i] {
			return k[i] < other[i]
		}
	}
	return false
}

// Signer produces signatures over a fingerprint's raw bytes. A validator
// signs with its own private key; the chain manager never holds one
// itself, it only verifies.
type Signer interface {
	PubKey() PubKey
	Sign(msg []byte) Signature
}

type ed25519Signer struct {
	pub  PubKey
	priv ed25519.PrivateKey
}

// NewSigner wraps an Ed25519 private key as a Signer.
func NewSigner(priv ed25519.PrivateKey) (Signer, error) {
	pk, err := NewPubKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return ed25519Signer{pub: pk, priv: priv}, nil
}

func (s ed25519Signer) PubKey() PubKey { return s.pub }

func (s ed25519Signer) Sign(msg []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(s.priv, msg))
	return sig
}

// Validator is a committee member with its staked weight.
type Validator struct {
	PubKey PubKey
	Stake  uint64
}
