package guestchain

import (
	"github.com/holiman/uint256"

	"github.com/composable-guest/guestchain/xerrors"
)

// maxConsensusStates bounds how many recent local consensus states the
// manager retains for the light client's misbehaviour checks; older
// entries are evicted front-first once the bound is hit.
const maxConsensusStates = 20

// LocalConsensusState is a lightweight record of a block the chain
// manager has generated, kept around for the light client to cross
// check headers against without re-deriving them from full blocks.
type LocalConsensusState struct {
	Height    BlockHeight
	Timestamp uint64
	BlockHash Hash
}

// PendingBlock is the next block waiting for quorum signatures before it
// is promoted to the chain's head.
type PendingBlock struct {
	NextBlock   Block
	Fingerprint Fingerprint

	signers      map[PubKey]struct{}
	signingStake *uint256.Int
}

// Signers returns the set of validators who have signed so far.
func (p *PendingBlock) Signers() []PubKey {
	out := make([]PubKey, 0, len(p.signers))
	for pk := range p.signers {
		out = append(out, pk)
	}
	return out
}

// SigningStake returns the accumulated staked weight behind the pending
// block's signatures so far.
func (p *PendingBlock) SigningStake() uint64 {
	if p.signingStake == nil {
		return 0
	}
	return p.signingStake.Uint64()
}

type pendingBlockWire struct {
	NextBlock    Block
	Fingerprint  Fingerprint
	Signers      []PubKey
	SigningStake uint64
}

// AddSignatureEffect reports what AddSignature did to the pending block.
type AddSignatureEffect int

const (
	// NoQuorumYet means the signature was accepted but quorum stake has
	// not yet been reached.
	NoQuorumYet AddSignatureEffect = iota
	// GotQuorum means this signature brought the pending block's
	// signing stake to quorum, promoting it to the chain's head.
	GotQuorum
	// Duplicate means the validator had already signed this block.
	Duplicate
)

// GotNewSignature reports whether e represents a signature that was not
// already on file.
func (e AddSignatureEffect) GotNewSignature() bool { return e != Duplicate }

// GotQuorum reports whether e promoted the pending block.
func (e AddSignatureEffect) GotQuorum() bool { return e == GotQuorum }

// ChainManager drives block generation and signature collection for a
// single guest chain instance (spec §4.7): it holds the finalised head,
// the pending block awaiting quorum, the epoch that governs the
// pending block's validator set, and the candidate pool epochs rotate
// from.
type ChainManager struct {
	config          Config
	genesis         Hash
	header          BlockHeader
	nextEpoch       Epoch
	pendingBlock    *PendingBlock
	epochHeight     HostHeight
	candidates      *Candidates
	consensusStates []LocalConsensusState
}

type chainManagerWire struct {
	Config          Config
	Genesis         Hash
	Header          BlockHeader
	NextEpoch       Epoch
	PendingBlock    *pendingBlockWire
	EpochHeight     HostHeight
	Candidates      Candidates
	ConsensusStates []LocalConsensusState
}

// NewChainManager constructs a manager from a genesis block. The block
// must satisfy BlockHeader.IsGenesis and must commit to the chain's
// first epoch; there is no prior block for the manager to otherwise
// learn a validator set from.
func NewChainManager(config Config, genesis Block) (*ChainManager, error) {
	if !genesis.Header.IsGenesis() {
		return nil, xerrors.ErrBadGenesis
	}
	if genesis.NextEpoch == nil {
		return nil, xerrors.ErrBadGenesis
	}
	genesisHash, err := genesis.Header.CalcHash()
	if err != nil {
		return nil, err
	}
	candidates := NewCandidates(config.MaxValidators, genesis.NextEpoch.Validators())
	return &ChainManager{
		config:      config,
		genesis:     genesisHash,
		header:      genesis.Header,
		nextEpoch:   *genesis.NextEpoch,
		epochHeight: genesis.Header.HostHeight,
		candidates:  candidates,
	}, nil
}

// Head returns the chain's current head and whether it has been
// finalised by quorum signatures. While a block is pending, the head is
// the pending block itself (unfinalised); once quorum is reached it
// becomes the finalised header.
func (m *ChainManager) Head() (finalised bool, header *BlockHeader) {
	if m.pendingBlock == nil {
		return true, &m.header
	}
	return false, &m.pendingBlock.NextBlock.Header
}

// PendingEpoch returns the epoch governing the pending block's
// validator set, or nil if there is no pending block.
func (m *ChainManager) PendingEpoch() *Epoch {
	if m.pendingBlock == nil {
		return nil
	}
	return &m.nextEpoch
}

// PendingBlock returns the block awaiting quorum signatures, or nil.
func (m *ChainManager) PendingBlock() *PendingBlock { return m.pendingBlock }

// Genesis returns the hash of the chain's genesis block.
func (m *ChainManager) Genesis() Hash { return m.genesis }

// EpochHeight returns the host height at which the current epoch was
// defined.
func (m *ChainManager) EpochHeight() HostHeight { return m.epochHeight }

// Validators returns the validator set of the epoch governing the next
// block.
func (m *ChainManager) Validators() []Validator { return m.nextEpoch.Validators() }

// Candidates returns the current validator candidate pool.
func (m *ChainManager) Candidates() []Candidate { return m.candidates.Candidates() }

// UpdateConfig applies a configuration change, rejecting one that would
// invalidate the chain's current state (see Config.Update), and
// propagates a max_validators change to the candidate pool's head-stake
// bookkeeping.
func (m *ChainManager) UpdateConfig(payload UpdateConfig) error {
	if err := m.config.Update(m.candidates.CurrentHeadStake(), len(m.Validators()), payload); err != nil {
		return err
	}
	if payload.MaxValidators != nil {
		m.candidates.UpdateMaxValidators(*payload.MaxValidators)
	}
	return nil
}

// ValidateGenerateNext checks whether a new block can be generated
// without mutating the manager, returning the epoch the new block
// should commit to (nil if it stays in the current epoch).
func (m *ChainManager) ValidateGenerateNext(hostHeight HostHeight, hostTimestampNs uint64, stateRoot Hash) (*Epoch, error) {
	if m.pendingBlock != nil {
		return nil, xerrors.ErrHasPendingBlock
	}
	if !hostHeight.CheckDelta(m.header.HostHeight, m.config.MinBlockLength) {
		return nil, xerrors.ErrBlockTooYoung
	}

	nextEpoch := m.maybeGenerateNextEpoch(hostHeight)

	age := saturatingSub(hostTimestampNs, m.header.TimestampNs)
	if nextEpoch == nil && stateRoot == m.header.StateRoot && age < m.config.MaxBlockAgeNs {
		return nil, xerrors.ErrUnchangedState
	}
	return nextEpoch, nil
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}

// maybeGenerateNextEpoch builds the epoch the next block should carry,
// if the current epoch is old enough to rotate and the candidate set's
// head has changed since the last rotation.
func (m *ChainManager) maybeGenerateNextEpoch(hostHeight HostHeight) *Epoch {
	if !hostHeight.CheckDelta(m.epochHeight, m.config.MinEpochLength) {
		return nil
	}
	head, ok := m.candidates.MaybeGetHead()
	if !ok {
		return nil
	}
	minQuorum := m.config.MinQuorumStake
	epoch, err := NewEpoch(head, func(total uint64) uint64 {
		quorum := total/2 + 1
		if quorum < minQuorum {
			quorum = minQuorum
		}
		if quorum > total {
			quorum = total
		}
		return quorum
	})
	if err != nil {
		return nil
	}
	return &epoch
}

// GenerateNext generates a new block from the current head and sets it
// as pending, replacing the need to sign it with a fresh
// ValidateGenerateNext + manual construction every call site would
// otherwise repeat.
func (m *ChainManager) GenerateNext(hostHeight HostHeight, hostTimestampNs uint64, stateRoot Hash) error {
	nextEpoch, err := m.ValidateGenerateNext(hostHeight, hostTimestampNs, stateRoot)
	if err != nil {
		return err
	}

	var commitment *Hash
	if nextEpoch != nil {
		c, err := nextEpoch.CalcCommitment()
		if err != nil {
			return err
		}
		commitment = &c
	}

	header, err := m.header.GenerateNext(hostHeight, hostTimestampNs, stateRoot, commitment)
	if err != nil {
		return err
	}
	block := Block{Header: header, NextEpoch: nextEpoch}

	fingerprint, err := FingerprintOf(m.genesis, &block.Header)
	if err != nil {
		return err
	}

	if len(m.consensusStates) == maxConsensusStates {
		m.consensusStates = m.consensusStates[1:]
	}
	m.consensusStates = append(m.consensusStates, LocalConsensusState{
		Height:    block.Header.BlockHeight,
		Timestamp: block.Header.TimestampNs,
		BlockHash: fingerprint.BlockHash(),
	})

	m.pendingBlock = &PendingBlock{
		NextBlock:    block,
		Fingerprint:  fingerprint,
		signers:      make(map[PubKey]struct{}),
		signingStake: uint256.NewInt(0),
	}

	if nextEpoch != nil {
		m.candidates.ClearChangedFlag()
	}
	return nil
}

// AddSignature validates and records a validator's signature over the
// pending block's fingerprint, promoting it to the chain's head once
// quorum stake is reached.
func (m *ChainManager) AddSignature(pubkey PubKey, sig Signature) (AddSignatureEffect, error) {
	if m.pendingBlock == nil {
		return 0, xerrors.ErrNoPendingBlock
	}
	validator, ok := m.nextEpoch.Validator(pubkey)
	if !ok {
		return 0, xerrors.ErrBadValidator
	}
	if !m.pendingBlock.Fingerprint.Verify(pubkey, sig) {
		return 0, xerrors.ErrBadSignature
	}

	if _, seen := m.pendingBlock.signers[pubkey]; seen {
		return Duplicate, nil
	}
	m.pendingBlock.signers[pubkey] = struct{}{}
	m.pendingBlock.signingStake.Add(m.pendingBlock.signingStake, uint256.NewInt(validator.Stake))

	quorum := uint256.NewInt(m.nextEpoch.QuorumStake())
	if m.pendingBlock.signingStake.Lt(quorum) {
		return NoQuorumYet, nil
	}

	block := m.pendingBlock.NextBlock
	m.header = block.Header
	m.pendingBlock = nil
	if block.NextEpoch != nil {
		m.nextEpoch = *block.NextEpoch
		m.epochHeight = m.header.HostHeight
	}
	return GotQuorum, nil
}

// UpdateCandidate adds, updates, or removes (when newStakeFn returns
// zero) a validator candidate, delegating to Candidates.Update under
// this manager's config.
func (m *ChainManager) UpdateCandidate(pubkey PubKey, newStakeFn func(*Candidate) (uint64, error)) error {
	return m.candidates.Update(&m.config, pubkey, newStakeFn)
}

func (m *ChainManager) MarshalBorsh(out []byte) ([]byte, error) {
	var pending *pendingBlockWire
	if m.pendingBlock != nil {
		pending = &pendingBlockWire{
			NextBlock:    m.pendingBlock.NextBlock,
			Fingerprint:  m.pendingBlock.Fingerprint,
			Signers:      m.pendingBlock.Signers(),
			SigningStake: m.pendingBlock.SigningStake(),
		}
	}
	return appendBorsh(out, chainManagerWire{
		Config:          m.config,
		Genesis:         m.genesis,
		Header:          m.header,
		NextEpoch:       m.nextEpoch,
		PendingBlock:    pending,
		EpochHeight:     m.epochHeight,
		Candidates:      *m.candidates,
		ConsensusStates: m.consensusStates,
	})
}

func (m *ChainManager) UnmarshalBorsh(data []byte) ([]byte, error) {
	var w chainManagerWire
	rest, err := unmarshalBorshPrefix(data, &w)
	if err != nil {
		return nil, err
	}
	m.config = w.Config
	m.genesis = w.Genesis
	m.header = w.Header
	m.nextEpoch = w.NextEpoch
	m.epochHeight = w.EpochHeight
	m.candidates = &w.Candidates
	m.consensusStates = w.ConsensusStates
	if w.PendingBlock == nil {
		m.pendingBlock = nil
		return rest, nil
	}
	signers := make(map[PubKey]struct{}, len(w.PendingBlock.Signers))
	for _, pk := range w.PendingBlock.Signers {
		signers[pk] = struct{}{}
	}
	m.pendingBlock = &PendingBlock{
		NextBlock:    w.PendingBlock.NextBlock,
		Fingerprint:  w.PendingBlock.Fingerprint,
		signers:      signers,
		signingStake: uint256.NewInt(w.PendingBlock.SigningStake),
	}
	return rest, nil
}
