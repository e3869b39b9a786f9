package guestchain

import (
	"sort"

	"github.com/composable-guest/guestchain/xerrors"
)

// Candidate is a would-be validator with its proposed stake, ordered
// (spec §4.6) by (-stake, pubkey): highest stake first, ties broken by
// ascending public key.
type Candidate struct {
	PubKey PubKey
	Stake  uint64
}

func candidateLess(a, b Candidate) bool {
	if a.Stake != b.Stake {
		return a.Stake > b.Stake
	}
	return a.PubKey.Less(b.PubKey)
}

// Candidates is the set of validator candidates considered at the next
// epoch rotation. The slice is kept sorted by candidateLess; headStake
// is always the sum of the top maxValidators candidates' stakes, and
// changed is set whenever a mutation touches that head.
type Candidates struct {
	maxValidators uint16
	candidates    []Candidate
	changed       bool
	headStake     uint64
}

type candidatesWire struct {
	MaxValidators uint16
	Candidates    []Candidate
	Changed       bool
}

// NewCandidates builds a candidate set from a genesis validator list. If
// the list is longer than maxValidators, it is marked changed so the
// next epoch rotation trims it down.
func NewCandidates(maxValidators uint16, validators []Validator) *Candidates {
	cands := make([]Candidate, len(validators))
	for i, v := range validators {
		cands[i] = Candidate{PubKey: v.PubKey, Stake: v.Stake}
	}
	return newCandidatesFrom(maxValidators, cands)
}

func newCandidatesFrom(maxValidators uint16, cands []Candidate) *Candidates {
	sort.Slice(cands, func(i, j int) bool { return candidateLess(cands[i], cands[j]) })
	changed := len(cands) > int(maxValidators)
	c := &Candidates{
		maxValidators: maxValidators,
		candidates:    cands,
		changed:       changed,
		headStake:     sumHeadStake(maxValidators, cands),
	}
	return c
}

func sumHeadStake(count uint16, candidates []Candidate) uint64 {
	n := int(count)
	if n > len(candidates) {
		n = len(candidates)
	}
	var sum uint64
	for _, c := range candidates[:n] {
		sum += c.Stake
	}
	return sum
}

// Candidates returns the current candidate list, highest stake first.
func (c *Candidates) Candidates() []Candidate { return c.candidates }

// CurrentHeadStake is the sum of the top maxValidators candidates'
// stakes, used by update_config to reject a min_total_stake increase
// that would invalidate the current state.
func (c *Candidates) CurrentHeadStake() uint64 { return c.headStake }

// MaybeGetHead returns the top maxValidators candidates as a validator
// set, if the head has changed since the last clearChangedFlag, or
// (nil, false) otherwise.
func (c *Candidates) MaybeGetHead() ([]Validator, bool) {
	if !c.changed {
		return nil, false
	}
	n := int(c.maxValidators)
	if n > len(c.candidates) {
		n = len(c.candidates)
	}
	out := make([]Validator, n)
	for i, cand := range c.candidates[:n] {
		out[i] = Validator{PubKey: cand.PubKey, Stake: cand.Stake}
	}
	return out, true
}

// ClearChangedFlag resets the changed flag, called once a new epoch
// built from MaybeGetHead has been installed.
func (c *Candidates) ClearChangedFlag() { c.changed = false }

// UpdateMaxValidators changes the committee size cap without otherwise
// touching the candidate set (head_stake is recomputed against the new
// cap immediately).
func (c *Candidates) UpdateMaxValidators(n uint16) {
	c.maxValidators = n
	c.headStake = sumHeadStake(c.maxValidators, c.candidates)
}

func (c *Candidates) indexOf(pk PubKey) (int, bool) {
	for i, cand := range c.candidates {
		if cand.PubKey == pk {
			return i, true
		}
	}
	return 0, false
}

// Update adds, updates, or removes (newStake == 0) a candidate under
// cfg's minimums. newStakeFn receives the existing candidate (nil if
// absent) and returns the desired new stake.
func (c *Candidates) Update(cfg *Config, pubkey PubKey, newStakeFn func(*Candidate) (uint64, error)) error {
	pos, found := c.indexOf(pubkey)
	var existing *Candidate
	if found {
		existing = &c.candidates[pos]
	}
	stake, err := newStakeFn(existing)
	if err != nil {
		return err
	}

	if stake != 0 {
		if stake < cfg.MinValidatorStake {
			return xerrors.ErrNotEnoughValidatorStake
		}
		var oldPos *int
		if found {
			oldPos = &pos
		}
		return c.doUpdate(cfg, oldPos, Candidate{PubKey: pubkey, Stake: stake})
	}
	if found {
		return c.doRemove(cfg, pos)
	}
	return nil
}

func (c *Candidates) doUpdate(cfg *Config, oldPos *int, cand Candidate) error {
	newPos := sort.Search(len(c.candidates), func(i int) bool {
		return !candidateLess(c.candidates[i], cand)
	})
	if oldPos == nil {
		c.addCandidate(newPos, cand)
		return nil
	}
	if newPos > *oldPos {
		newPos--
	}
	return c.updateCandidate(cfg, *oldPos, newPos, cand)
}

func (c *Candidates) doRemove(cfg *Config, pos int) error {
	if len(c.candidates) <= int(cfg.MinValidators) {
		return xerrors.ErrNotEnoughValidators
	}
	if err := c.updateStakeForRemove(cfg, pos); err != nil {
		return err
	}
	c.candidates = append(c.candidates[:pos], c.candidates[pos+1:]...)
	return nil
}

func (c *Candidates) addCandidate(newPos int, cand Candidate) {
	max := int(c.maxValidators)
	c.candidates = append(c.candidates, Candidate{})
	copy(c.candidates[newPos+1:], c.candidates[newPos:])
	c.candidates[newPos] = cand
	if newPos < max {
		var old uint64
		if max < len(c.candidates) {
			old = c.candidates[max].Stake
		}
		c.addHeadStake(cand.Stake - old)
	}
}

func (c *Candidates) updateCandidate(cfg *Config, oldPos, newPos int, cand Candidate) error {
	max := int(c.maxValidators)
	switch {
	case newPos >= max:
		if err := c.updateStakeForRemove(cfg, oldPos); err != nil {
			return err
		}
	case oldPos >= max:
		var old uint64
		if max-1 < len(c.candidates) {
			old = c.candidates[max-1].Stake
		}
		c.addHeadStake(cand.Stake - old)
	default:
		oldStake := c.candidates[oldPos].Stake
		switch {
		case oldStake < cand.Stake:
			c.addHeadStake(cand.Stake - oldStake)
		case oldStake > cand.Stake:
			if err := c.subHeadStake(cfg, oldStake-cand.Stake); err != nil {
				return err
			}
		}
	}
	rotate(c.candidates, oldPos, newPos)
	c.candidates[newPos].Stake = cand.Stake
	return nil
}

func (c *Candidates) updateStakeForRemove(cfg *Config, pos int) error {
	max := int(c.maxValidators)
	if pos >= max {
		return nil
	}
	old := c.candidates[pos].Stake
	var next uint64
	if max < len(c.candidates) {
		next = c.candidates[max].Stake
	}
	return c.subHeadStake(cfg, old-next)
}

func (c *Candidates) addHeadStake(delta uint64) {
	c.headStake += delta
	c.changed = true
}

func (c *Candidates) subHeadStake(cfg *Config, delta uint64) error {
	if c.headStake < delta || c.headStake-delta < cfg.MinTotalStake {
		return xerrors.ErrNotEnoughTotalStake
	}
	c.headStake -= delta
	c.changed = true
	return nil
}

// rotate moves the element at oldPos to newPos, shifting the elements
// between them, mirroring candidates.rs's rotate helper.
func rotate(s []Candidate, oldPos, newPos int) {
	switch {
	case oldPos < newPos:
		tmp := s[oldPos]
		copy(s[oldPos:newPos], s[oldPos+1:newPos+1])
		s[newPos] = tmp
	case oldPos > newPos:
		tmp := s[oldPos]
		copy(s[newPos+1:oldPos+1], s[newPos:oldPos])
		s[newPos] = tmp
	}
}

// MarshalBorsh encodes through candidatesWire with a value receiver
// (unlike UnmarshalBorsh) so a plain Candidates value - not just a
// *Candidates - satisfies Marshaler: ChainManager embeds this type the
// way the original's Box<Candidates> does, wire-identical to a plain
// struct with no Option wrapper.
func (c Candidates) MarshalBorsh(out []byte) ([]byte, error) {
	return appendBorsh(out, candidatesWire{
		MaxValidators: c.maxValidators,
		Candidates:    c.candidates,
		Changed:       c.changed,
	})
}

func (c *Candidates) UnmarshalBorsh(data []byte) ([]byte, error) {
	var w candidatesWire
	rest, err := unmarshalBorshPrefix(data, &w)
	if err != nil {
		return nil, err
	}
	c.maxValidators = w.MaxValidators
	c.candidates = w.Candidates
	c.changed = w.Changed
	c.headStake = sumHeadStake(c.maxValidators, c.candidates)
	return rest, nil
}
