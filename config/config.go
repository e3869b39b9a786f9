// Package config loads the chain manager's tunable parameters from YAML
// (spec SPEC_FULL.md §4 "C7 — config loading"), the way an operator's
// deployment manifest configures a guest-chain instance outside of any
// on-chain instruction.
package config

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/composable-guest/guestchain/guestchain"
)

// ChainConfig is the YAML-facing mirror of guestchain.Config: same
// fields, snake_case tags, so an operator's manifest reads naturally
// while the core package's field names stay Go-idiomatic.
type ChainConfig struct {
	MinValidators     uint16 `yaml:"min_validators"`
	MaxValidators     uint16 `yaml:"max_validators"`
	MinValidatorStake uint64 `yaml:"min_validator_stake"`
	MinTotalStake     uint64 `yaml:"min_total_stake"`
	MinQuorumStake    uint64 `yaml:"min_quorum_stake"`
	MinBlockLength    uint64 `yaml:"min_block_length"`
	MaxBlockAgeNs     uint64 `yaml:"max_block_age_ns"`
	MinEpochLength    uint64 `yaml:"min_epoch_length"`
}

// ToGuestchainConfig converts a loaded ChainConfig into the
// guestchain.Config the chain manager actually operates on.
func (c ChainConfig) ToGuestchainConfig() guestchain.Config {
	return guestchain.Config{
		MinValidators:     c.MinValidators,
		MaxValidators:     c.MaxValidators,
		MinValidatorStake: c.MinValidatorStake,
		MinTotalStake:     c.MinTotalStake,
		MinQuorumStake:    c.MinQuorumStake,
		MinBlockLength:    c.MinBlockLength,
		MaxBlockAgeNs:     c.MaxBlockAgeNs,
		MinEpochLength:    c.MinEpochLength,
	}
}

// FromGuestchainConfig builds a ChainConfig from a live
// guestchain.Config, the inverse of ToGuestchainConfig, useful for
// guestctl to print or re-emit a running chain's effective
// configuration as YAML.
func FromGuestchainConfig(cfg guestchain.Config) ChainConfig {
	return ChainConfig{
		MinValidators:     cfg.MinValidators,
		MaxValidators:     cfg.MaxValidators,
		MinValidatorStake: cfg.MinValidatorStake,
		MinTotalStake:     cfg.MinTotalStake,
		MinQuorumStake:    cfg.MinQuorumStake,
		MinBlockLength:    cfg.MinBlockLength,
		MaxBlockAgeNs:     cfg.MaxBlockAgeNs,
		MinEpochLength:    cfg.MinEpochLength,
	}
}

// Load reads and parses a ChainConfig from a YAML file at path.
func Load(path string) (ChainConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ChainConfig{}, err
	}
	return Parse(data)
}

// Parse parses a ChainConfig from YAML bytes already in memory, the
// path Load and any in-process caller (e.g. a test fixture) both funnel
// through.
func Parse(data []byte) (ChainConfig, error) {
	var c ChainConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return ChainConfig{}, err
	}
	return c, nil
}

// Marshal renders c back to YAML.
func (c ChainConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
