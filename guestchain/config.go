package guestchain

import "github.com/composable-guest/guestchain/xerrors"

// Config bounds block/epoch generation and committee membership (spec
// §4.6-§4.7): how young a block may be before a new one can replace it,
// how long an epoch must last before rotating, and the stake/validator
// minimums candidates and quorum must respect.
type Config struct {
	MinValidators     uint16
	MaxValidators     uint16
	MinValidatorStake uint64
	MinTotalStake     uint64
	MinQuorumStake    uint64
	MinBlockLength    uint64 // in host-height units
	MaxBlockAgeNs     uint64
	MinEpochLength    uint64 // in host-height units
}

// UpdateConfig carries optional replacements for each Config field; a
// nil field leaves the corresponding value unchanged.
type UpdateConfig struct {
	MinValidators     *uint16
	MaxValidators     *uint16
	MinValidatorStake *uint64
	MinTotalStake     *uint64
	MinQuorumStake    *uint64
	MinBlockLength    *uint64
	MaxBlockAgeNs     *uint64
	MinEpochLength    *uint64
}

// Update applies u to cfg, rejecting any change that would invalidate
// the chain's current state: a min_validators raise above the current
// validator count, or a min_total_stake/min_quorum_stake raise above
// the current candidate head stake (the two checks share the same
// current value, since the head stake is also the chain's current
// total staked weight).
func (cfg *Config) Update(currentHeadStake uint64, currentValidatorCount int, u UpdateConfig) error {
	if u.MinValidators != nil && int(*u.MinValidators) > currentValidatorCount {
		return xerrors.ErrMinValidatorsHigherThanExisting
	}
	if u.MinTotalStake != nil && *u.MinTotalStake > currentHeadStake {
		return xerrors.ErrMinTotalStakeHigherThanExisting
	}
	if u.MinQuorumStake != nil && *u.MinQuorumStake > currentHeadStake {
		return xerrors.ErrMinQuorumStakeHigherThanTotal
	}

	if u.MinValidators != nil {
		cfg.MinValidators = *u.MinValidators
	}
	if u.MaxValidators != nil {
		cfg.MaxValidators = *u.MaxValidators
	}
	if u.MinValidatorStake != nil {
		cfg.MinValidatorStake = *u.MinValidatorStake
	}
	if u.MinTotalStake != nil {
		cfg.MinTotalStake = *u.MinTotalStake
	}
	if u.MinQuorumStake != nil {
		cfg.MinQuorumStake = *u.MinQuorumStake
	}
	if u.MinBlockLength != nil {
		cfg.MinBlockLength = *u.MinBlockLength
	}
	if u.MaxBlockAgeNs != nil {
		cfg.MaxBlockAgeNs = *u.MaxBlockAgeNs
	}
	if u.MinEpochLength != nil {
		cfg.MinEpochLength = *u.MinEpochLength
	}
	return nil
}
