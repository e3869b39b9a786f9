package guestchain

import (
	"github.com/composable-guest/guestchain/xerrors"
)

// headerVersion is the only BlockHeader wire version this module
// produces or accepts.
const headerVersion uint8 = 0

// BlockHeader is the part of a block that is hashed and signed. Its
// Borsh encoding (used by CalcHash) always includes NextEpochCommitment;
// Block's own encoding omits it and recomputes it from NextEpoch, the
// same split block.rs makes between the header type and the tuple it
// actually serialises.
type BlockHeader struct {
	Version             uint8
	PrevBlockHash       Hash
	BlockHeight         BlockHeight
	HostHeight          HostHeight
	TimestampNs         uint64
	StateRoot           Hash
	EpochID             Hash
	NextEpochCommitment *Hash
}

// BlockHeight counts guest blocks from genesis.
type BlockHeight uint64

// Next returns the height that follows h.
func (h BlockHeight) Next() BlockHeight { return h + 1 }

// HostHeight is the height of the host chain the guest chain is
// embedded in, used to throttle block generation against host-chain
// progress rather than wall-clock time alone.
type HostHeight uint64

// CheckDelta reports whether h is at least delta past base, the Go
// equivalent of the Rust HostHeight::check_delta_from helper manager.go
// uses to gate both minimum block spacing and minimum epoch length.
func (h HostHeight) CheckDelta(base HostHeight, delta uint64) bool {
	return uint64(h) >= uint64(base)+delta
}

// IsGenesis reports whether h is the chain's first block: prev_block_hash
// and epoch_id are both the all-zero hash only at genesis.
func (h *BlockHeader) IsGenesis() bool {
	return h.PrevBlockHash == (Hash{}) && h.EpochID == (Hash{})
}

// CalcHash returns the header's content hash, used as both the block
// hash and (when the header commits to a new epoch) the next epoch's id.
func (h *BlockHeader) CalcHash() (Hash, error) {
	return calcHash(*h)
}

// GenerateGenesisHeader builds the header for block height zero: its
// prev_block_hash and epoch_id are the all-zero hash, and it must
// commit to the genesis epoch since there is no prior block to inherit
// one from.
func GenerateGenesisHeader(hostHeight HostHeight, timestampNs uint64, stateRoot Hash, nextEpochCommitment Hash) BlockHeader {
	return BlockHeader{
		Version:             headerVersion,
		PrevBlockHash:       Hash{},
		BlockHeight:         0,
		HostHeight:          hostHeight,
		TimestampNs:         timestampNs,
		StateRoot:           stateRoot,
		EpochID:             Hash{},
		NextEpochCommitment: &nextEpochCommitment,
	}
}

// GenerateNext builds the header that follows h. hostHeight and
// timestampNs must strictly exceed h's own, and the new epoch_id
// carries forward from h unless h itself introduced a new epoch, in
// which case the new block's epoch starts at h's own hash.
func (h *BlockHeader) GenerateNext(hostHeight HostHeight, timestampNs uint64, stateRoot Hash, nextEpochCommitment *Hash) (BlockHeader, error) {
	if uint64(hostHeight) <= uint64(h.HostHeight) {
		return BlockHeader{}, xerrors.ErrBadHostHeight
	}
	if timestampNs <= h.TimestampNs {
		return BlockHeader{}, xerrors.ErrBadHostTimestamp
	}

	prevHash, err := h.CalcHash()
	if err != nil {
		return BlockHeader{}, err
	}

	epochID := h.EpochID
	if h.NextEpochCommitment != nil {
		epochID = prevHash
	}

	return BlockHeader{
		Version:             headerVersion,
		PrevBlockHash:       prevHash,
		BlockHeight:         h.BlockHeight.Next(),
		HostHeight:          hostHeight,
		TimestampNs:         timestampNs,
		StateRoot:           stateRoot,
		EpochID:             epochID,
		NextEpochCommitment: nextEpochCommitment,
	}, nil
}

// Block couples a header with the epoch it introduces, if any. Its wire
// encoding omits NextEpochCommitment (blockWire has no such field) and
// recomputes it from NextEpoch on decode, mirroring the hand-written
// BorshSerialize/BorshDeserialize impl block.rs uses instead of a plain
// derive: the commitment is redundant with NextEpoch and keeping both on
// the wire would let them silently disagree.
type Block struct {
	Header    BlockHeader
	NextEpoch *Epoch
}

// blockWire is Block's wire shape: the header fields verbatim except for
// NextEpochCommitment, plus NextEpoch itself in its place.
type blockWire struct {
	Version       uint8
	PrevBlockHash Hash
	BlockHeight   BlockHeight
	HostHeight    HostHeight
	TimestampNs   uint64
	StateRoot     Hash
	EpochID       Hash
	NextEpoch     *Epoch
}

func (b Block) MarshalBorsh(out []byte) ([]byte, error) {
	h := b.Header
	return appendBorsh(out, blockWire{
		Version:       h.Version,
		PrevBlockHash: h.PrevBlockHash,
		BlockHeight:   h.BlockHeight,
		HostHeight:    h.HostHeight,
		TimestampNs:   h.TimestampNs,
		StateRoot:     h.StateRoot,
		EpochID:       h.EpochID,
		NextEpoch:     b.NextEpoch,
	})
}

func (b *Block) UnmarshalBorsh(data []byte) ([]byte, error) {
	var w blockWire
	rest, err := unmarshalBorshPrefix(data, &w)
	if err != nil {
		return nil, err
	}

	var commitment *Hash
	if w.NextEpoch != nil {
		h, err := w.NextEpoch.CalcCommitment()
		if err != nil {
			return nil, err
		}
		commitment = &h
	}

	b.Header = BlockHeader{
		Version:             w.Version,
		PrevBlockHash:       w.PrevBlockHash,
		BlockHeight:         w.BlockHeight,
		HostHeight:          w.HostHeight,
		TimestampNs:         w.TimestampNs,
		StateRoot:           w.StateRoot,
		EpochID:             w.EpochID,
		NextEpochCommitment: commitment,
	}
	b.NextEpoch = w.NextEpoch
	return rest, nil
}

// GenerateGenesisBlock builds the chain's first block, which must
// always introduce the genesis epoch.
func GenerateGenesisBlock(hostHeight HostHeight, timestampNs uint64, stateRoot Hash, genesisEpoch Epoch) (Block, error) {
	commitment, err := genesisEpoch.CalcCommitment()
	if err != nil {
		return Block{}, err
	}
	return Block{
		Header:    GenerateGenesisHeader(hostHeight, timestampNs, stateRoot, commitment),
		NextEpoch: &genesisEpoch,
	}, nil
}

// Fingerprint is the value validators actually sign: a block identity
// that is unambiguous across forks and across the chain's whole
// lifetime, since it pins both the chain's genesis and the specific
// height rather than the block hash alone.
type Fingerprint [32 + 8 + 32]byte

// NewFingerprint builds a fingerprint for a block at the given height
// with the given hash, under the chain identified by genesisHash.
func NewFingerprint(genesisHash Hash, height BlockHeight, blockHash Hash) Fingerprint {
	var fp Fingerprint
	copy(fp[0:32], genesisHash[:])
	putUint64LE(fp[32:40], uint64(height))
	copy(fp[40:72], blockHash[:])
	return fp
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// FingerprintOf computes the fingerprint of a header, hashing it in the
// process.
func FingerprintOf(genesisHash Hash, header *BlockHeader) (Fingerprint, error) {
	h, err := header.CalcHash()
	if err != nil {
		return Fingerprint{}, err
	}
	return NewFingerprint(genesisHash, header.BlockHeight, h), nil
}

// GenesisHash returns the genesis hash component of the fingerprint.
func (fp Fingerprint) GenesisHash() Hash {
	var h Hash
	copy(h[:], fp[0:32])
	return h
}

// BlockHeight returns the height component of the fingerprint.
func (fp Fingerprint) BlockHeight() BlockHeight {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(fp[32+i])
	}
	return BlockHeight(v)
}

// BlockHash returns the block hash component of the fingerprint.
func (fp Fingerprint) BlockHash() Hash {
	var h Hash
	copy(h[:], fp[40:72])
	return h
}

// Sign produces a validator signature over the fingerprint's raw bytes.
func (fp Fingerprint) Sign(signer Signer) Signature {
	return signer.Sign(fp[:])
}

// Verify reports whether sig is pk's signature over the fingerprint.
func (fp Fingerprint) Verify(pk PubKey, sig Signature) bool {
	return pk.Verify(fp[:], sig)
}
