package hostglue

import (
	"github.com/composable-guest/guestchain/guestchain"
	"github.com/composable-guest/guestchain/log"
	"github.com/composable-guest/guestchain/metrics"
)

// Initialised is emitted once, when a chain account is first created
// from a genesis block.
type Initialised struct {
	Genesis guestchain.Hash
}

// NewBlock is emitted whenever GenerateNext succeeds, before the block
// has collected any signatures.
type NewBlock struct {
	Height    guestchain.BlockHeight
	Timestamp uint64
}

// BlockSigned is emitted on every accepted (non-duplicate) validator
// signature on the pending block.
type BlockSigned struct {
	Height    guestchain.BlockHeight
	Validator guestchain.PubKey
}

// BlockFinalised is emitted once a pending block reaches quorum and is
// promoted to the chain's head.
type BlockFinalised struct {
	Height guestchain.BlockHeight
	Hash   guestchain.Hash
}

// Emitter records the four chain events (spec.md §4.10) as both
// structured log records and Prometheus counters, so operators get a
// human-readable trail and an alertable liveness signal (e.g. no
// NewBlock events within an expected window) from the same call sites.
type Emitter struct {
	log     *log.Logger
	metrics *metrics.Collectors
}

// NewEmitter builds an Emitter writing to logger and collectors. A nil
// logger falls back to log.Default(); nil collectors skip the metrics
// side — useful for tests that only care about the log.
func NewEmitter(logger *log.Logger, collectors *metrics.Collectors) *Emitter {
	if logger == nil {
		logger = log.Default()
	}
	return &Emitter{log: logger.Module("hostglue"), metrics: collectors}
}

func (e *Emitter) observe(kind string) {
	if e.metrics != nil {
		e.metrics.ObserveEvent(kind)
	}
}

// Initialised records a chain initialisation event.
func (e *Emitter) Initialised(ev Initialised) {
	e.log.Info("chain initialised", "genesis", ev.Genesis)
	e.observe("initialised")
}

// NewBlock records a block-generation event.
func (e *Emitter) NewBlock(ev NewBlock) {
	e.log.Info("new block generated", "height", ev.Height, "timestamp_ns", ev.Timestamp)
	e.observe("new_block")
}

// BlockSigned records a validator signature event.
func (e *Emitter) BlockSigned(ev BlockSigned) {
	e.log.Debug("block signed", "height", ev.Height, "validator", ev.Validator)
	e.observe("block_signed")
}

// BlockFinalised records a block-finalisation event.
func (e *Emitter) BlockFinalised(ev BlockFinalised) {
	e.log.Info("block finalised", "height", ev.Height, "hash", ev.Hash)
	e.observe("block_finalised")
}
