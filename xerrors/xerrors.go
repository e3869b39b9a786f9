// Package xerrors defines the stable error taxonomy shared by the trie,
// guestchain, and lightclient packages (spec §7). Sentinel errors are
// wrapped with github.com/cockroachdb/errors so callers keep a stable
// code to branch on (via errors.Is) while still getting a stack-trace
// capable, human-readable message at the point of failure.
package xerrors

import "github.com/cockroachdb/errors"

// Structural errors.
var (
	ErrKeyTooLong      = errors.New("xerrors: key too long")
	ErrEmptyKey        = errors.New("xerrors: empty key")
	ErrBadProof        = errors.New("xerrors: malformed or spurious proof")
	ErrBadWireFormat   = errors.New("xerrors: malformed wire format")
	ErrBadIdentifier   = errors.New("xerrors: malformed identifier")
	ErrUnsupportedPath = errors.New("xerrors: path has no trie key representation")
)

// Authorisation errors.
var (
	ErrBadValidator  = errors.New("xerrors: not a recognised validator")
	ErrBadSignature  = errors.New("xerrors: signature verification failed")
	ErrDuplicate     = errors.New("xerrors: duplicate submission")
	ErrInvalidCPICall = errors.New("xerrors: unexpected calling program")
)

// State errors.
var (
	ErrNotFound                  = errors.New("xerrors: key not found")
	ErrSealed                    = errors.New("xerrors: value is sealed")
	ErrChainAlreadyInitialised   = errors.New("xerrors: chain already initialised")
	ErrChainNotInitialised       = errors.New("xerrors: chain not initialised")
	ErrHasPendingBlock           = errors.New("xerrors: a pending block already exists")
	ErrBlockTooYoung             = errors.New("xerrors: host height has not advanced enough")
	ErrUnchangedState            = errors.New("xerrors: state root and timestamp unchanged")
	ErrBadHostHeight             = errors.New("xerrors: host height did not increase")
	ErrBadHostTimestamp          = errors.New("xerrors: host timestamp did not increase")
	ErrGenerationAlreadyAttempted = errors.New("xerrors: block generation already attempted this slot")
	ErrNoPendingBlock             = errors.New("xerrors: no pending block awaits signatures")
	ErrBadGenesis                 = errors.New("xerrors: genesis block is invalid")
)

// Capacity errors.
var (
	ErrOutOfMemory                     = errors.New("xerrors: allocator exhausted")
	ErrMinValidatorsHigherThanExisting = errors.New("xerrors: min_validators exceeds current validator count")
	ErrMinTotalStakeHigherThanExisting = errors.New("xerrors: min_total_stake exceeds current head stake")
	ErrMinQuorumStakeHigherThanTotal   = errors.New("xerrors: min_quorum_stake exceeds current total stake")

	// Candidate-update specific capacity errors (distinct from the
	// update_config errors above, which check proposed config changes
	// against current state rather than a single candidate update).
	ErrNotEnoughValidatorStake = errors.New("xerrors: candidate stake below min_validator_stake")
	ErrNotEnoughTotalStake     = errors.New("xerrors: removing candidate would drop total stake below min_total_stake")
	ErrNotEnoughValidators     = errors.New("xerrors: removing candidate would drop validator count below min_validators")
)

// Light-client errors.
var (
	ErrClientStateNotFound    = errors.New("xerrors: client state not found")
	ErrConsensusStateNotFound = errors.New("xerrors: consensus state not found")
	ErrInvalidProofHeight     = errors.New("xerrors: invalid proof height")
	ErrFrozen                 = errors.New("xerrors: client is frozen")
	ErrExpired                = errors.New("xerrors: client state has expired")
	ErrUpgradeUnsupported     = errors.New("xerrors: client upgrades are not supported")
)

// Wrap annotates err with a contextual message while preserving errors.Is
// matching against the original sentinel.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
