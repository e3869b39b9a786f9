// Package lightclient implements the guest light client (spec §4.8):
// header and misbehaviour verification against a tracked validator set,
// a bounded consensus-state store, and the client status rules (Active/
// Expired/Frozen) an IBC relayer or connected chain checks before
// trusting a submitted header.
package lightclient

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/composable-guest/guestchain/guestchain"
	"github.com/composable-guest/guestchain/xerrors"
)

// Hash is the guest chain's content hash type, reused here so consensus
// states and client state fields compare directly against guestchain
// block hashes without conversion.
type Hash = guestchain.Hash

// ClientState is the light client's tracked view of a counterparty
// guest chain.
type ClientState struct {
	GenesisHash         Hash
	LatestHeight        guestchain.BlockHeight
	EpochCommitment     Hash
	PrevEpochCommitment Hash
	TrustingPeriodNs    uint64
	IsFrozen            bool
}

// ConsensusState is the light client's record of a single tracked
// height: enough to detect a conflicting header at that height and to
// check neighbouring timestamps are strictly increasing.
type ConsensusState struct {
	BlockHash Hash
	Timestamp uint64
}

// HeaderSignature is one validator's signature over a header, addressed
// by its index into the header's epoch rather than by public key, to
// keep headers compact (spec §4.8).
type HeaderSignature struct {
	ValidatorIndex uint16
	Signature      guestchain.Signature
}

// Header is what a relayer submits to advance or check the light
// client: a block identity plus enough signatures to prove quorum.
type Header struct {
	GenesisHash     Hash
	BlockHeight     guestchain.BlockHeight
	BlockHash       Hash
	Timestamp       uint64
	EpochCommitment Hash
	Epoch           guestchain.Epoch
	Signatures      []HeaderSignature
}

// ConsensusStateOf derives the consensus state a valid header commits
// to, used both by UpdateState and by misbehaviour detection to compare
// a header against what's already stored at its height.
func ConsensusStateOf(h *Header) ConsensusState {
	return ConsensusState{BlockHash: h.BlockHash, Timestamp: h.Timestamp}
}

// VerifyHeader checks a header against the client's tracked state (spec
// §4.8): the header's genesis must match, its epoch commitment must be
// one of the client's current or immediately previous epoch, and its
// signature list must reach the epoch's quorum stake with no
// out-of-range or duplicate validator indices and no bad signatures.
func VerifyHeader(cs *ClientState, h *Header) error {
	if h.GenesisHash != cs.GenesisHash {
		return xerrors.ErrBadWireFormat
	}
	if h.EpochCommitment != cs.EpochCommitment && h.EpochCommitment != cs.PrevEpochCommitment {
		return xerrors.ErrInvalidProofHeight
	}

	fp := guestchain.NewFingerprint(h.GenesisHash, h.BlockHeight, h.BlockHash)

	seen := bitset.New(uint(len(h.Epoch.Validators())))
	quorumLeft := h.Epoch.QuorumStake()

	for _, sig := range h.Signatures {
		idx := uint(sig.ValidatorIndex)
		validator, ok := h.Epoch.ValidatorByIndex(int(sig.ValidatorIndex))
		if !ok {
			return xerrors.ErrBadValidator
		}
		if seen.Test(idx) {
			return xerrors.ErrDuplicate
		}
		seen.Set(idx)

		if !fp.Verify(validator.PubKey, sig.Signature) {
			return xerrors.ErrBadSignature
		}

		if quorumLeft <= validator.Stake {
			return nil
		}
		quorumLeft -= validator.Stake
	}
	return xerrors.ErrBadSignature
}

// VerifyMisbehaviour checks that two headers purporting to show
// misbehaviour both individually verify and share a genesis hash.
func VerifyMisbehaviour(cs *ClientState, h1, h2 *Header) error {
	if h1.GenesisHash != h2.GenesisHash {
		return xerrors.ErrBadWireFormat
	}
	if err := VerifyHeader(cs, h1); err != nil {
		return err
	}
	return VerifyHeader(cs, h2)
}

// CheckMisbehaviourForHeader reports whether header conflicts with what
// the store already knows at its height or with its immediate
// neighbours' timestamps (spec §4.8). This is a detection check, not a
// verification failure: returning (true, nil) means misbehaviour was
// found, not that an error occurred.
func CheckMisbehaviourForHeader(store *Store, h *Header) (bool, error) {
	if existing, ok := store.Get(h.BlockHeight); ok {
		if existing != ConsensusStateOf(h) {
			return true, nil
		}
	}

	_, prev, hasPrev := store.Prev(h.BlockHeight)
	if hasPrev && !(prev.Timestamp < h.Timestamp) {
		return true, nil
	}
	_, next, hasNext := store.Next(h.BlockHeight)
	if hasNext && !(h.Timestamp < next.Timestamp) {
		return true, nil
	}
	return false, nil
}

// CheckMisbehaviourForMessage reports whether two headers describe
// misbehaviour by the heights/timestamps ordering rule (spec §4.8):
// equal heights require equal hashes, and differing heights must agree
// in ordering between height and timestamp.
func CheckMisbehaviourForMessage(h1, h2 *Header) bool {
	if h1.BlockHeight == h2.BlockHeight {
		return h1.BlockHash != h2.BlockHash
	}
	heightLess := h1.BlockHeight < h2.BlockHeight
	timestampLess := h1.Timestamp < h2.Timestamp
	if h1.Timestamp == h2.Timestamp {
		return true
	}
	return heightLess != timestampLess
}

// UpdateState records a verified header's consensus state, pruning the
// oldest tracked state if it has expired, and advances LatestHeight. It
// returns the heights written, matching the original's "heights
// touched" result relayers use to know what changed.
func UpdateState(store *Store, cs *ClientState, h *Header, hostNowNs uint64) ([]guestchain.BlockHeight, error) {
	if oldestHeight, oldest, ok := store.Oldest(); ok {
		if oldest.Timestamp+cs.TrustingPeriodNs <= hostNowNs {
			store.Delete(oldestHeight)
		}
	}

	if _, exists := store.Get(h.BlockHeight); exists {
		return nil, nil
	}
	store.Put(h.BlockHeight, ConsensusStateOf(h))
	if h.BlockHeight > cs.LatestHeight {
		cs.LatestHeight = h.BlockHeight
	}
	return []guestchain.BlockHeight{h.BlockHeight}, nil
}

// UpdateOnMisbehaviour freezes the client, the terminal response to
// confirmed misbehaviour.
func UpdateOnMisbehaviour(cs *ClientState) { cs.IsFrozen = true }

// Status is the client's trust state as reported to callers.
type Status int

const (
	Active Status = iota
	Expired
	Frozen
)

// StatusOf computes a client's status (spec §4.8): frozen clients always
// report Frozen; otherwise the client is Expired if its latest tracked
// consensus state is missing or past its trusting period, and Active
// otherwise. A missing client state (nil) is always Active, the status
// of a not-yet-created client.
func StatusOf(cs *ClientState, store *Store, hostNowNs uint64) Status {
	if cs == nil {
		return Active
	}
	if cs.IsFrozen {
		return Frozen
	}
	latest, ok := store.Get(cs.LatestHeight)
	if !ok || latest.Timestamp+cs.TrustingPeriodNs <= hostNowNs {
		return Expired
	}
	return Active
}
