package guestchain

import (
	"github.com/holiman/uint256"

	"github.com/composable-guest/guestchain/xerrors"
)

// Epoch is an ordered validator set together with the quorum stake a
// pending block needs to accumulate to be finalised while this epoch is
// in effect. Epochs are content-addressed: a block that starts one
// commits to Epoch.CalcCommitment(), and later blocks reference the
// epoch by the hash of the block that introduced it (epoch_id).
type Epoch struct {
	validators  []Validator
	quorumStake uint64
}

// epochWire is Epoch's Borsh wire shape, used both for CalcCommitment
// and for persisted chain-manager state.
type epochWire struct {
	Validators  []Validator
	QuorumStake uint64
}

// NewEpoch builds an epoch from validators, deriving the quorum stake
// from their total via quorumFn(total). Matches the Rust
// Epoch::new_with constructor: the caller supplies the clamp policy
// (spec §4.7: quorum = clamp(total/2+1, min_quorum_stake, total)) rather
// than NewEpoch hard-coding it, since the chain manager is the only
// caller that knows the configured minimum.
func NewEpoch(validators []Validator, quorumFn func(total uint64) uint64) (Epoch, error) {
	if len(validators) == 0 {
		return Epoch{}, xerrors.ErrBadValidator
	}
	total := uint256.NewInt(0)
	for _, v := range validators {
		total.Add(total, uint256.NewInt(v.Stake))
	}
	if !total.IsUint64() {
		return Epoch{}, xerrors.ErrOutOfMemory
	}
	return Epoch{validators: validators, quorumStake: quorumFn(total.Uint64())}, nil
}

// Validators returns the epoch's validator set in its fixed order.
func (e *Epoch) Validators() []Validator { return e.validators }

// Validator looks up a validator by public key.
func (e *Epoch) Validator(pk PubKey) (Validator, bool) {
	for _, v := range e.validators {
		if v.PubKey == pk {
			return v, true
		}
	}
	return Validator{}, false
}

// ValidatorByIndex looks up a validator by its position in Validators(),
// used by the light client's header verification (spec §4.8), which
// addresses validators by index rather than by key to keep headers
// small.
func (e *Epoch) ValidatorByIndex(idx int) (Validator, bool) {
	if idx < 0 || idx >= len(e.validators) {
		return Validator{}, false
	}
	return e.validators[idx], true
}

// QuorumStake is the staked weight a pending block must accumulate
// before it is promoted.
func (e *Epoch) QuorumStake() uint64 { return e.quorumStake }

// CalcCommitment returns the content-addressed identifier of the epoch.
func (e Epoch) CalcCommitment() (Hash, error) {
	return calcHash(epochWire{Validators: e.validators, QuorumStake: e.quorumStake})
}

// MarshalBorsh implements borsh.Marshaler, encoding through epochWire
// since Epoch's own fields are unexported (the reflection-based
// encoder only walks exported struct fields).
func (e Epoch) MarshalBorsh(out []byte) ([]byte, error) {
	return appendBorsh(out, epochWire{Validators: e.validators, QuorumStake: e.quorumStake})
}

// UnmarshalBorsh implements borsh.Unmarshaler.
func (e *Epoch) UnmarshalBorsh(data []byte) ([]byte, error) {
	var w epochWire
	rest, err := unmarshalBorshPrefix(data, &w)
	if err != nil {
		return nil, err
	}
	e.validators = w.Validators
	e.quorumStake = w.QuorumStake
	return rest, nil
}
