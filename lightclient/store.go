package lightclient

import (
	"sort"

	"github.com/composable-guest/guestchain/guestchain"
)

// Store is the consensus-state neighbourhood store the spec describes
// as "consumed from the collaborator" (spec §4.8): given a height, it
// answers either "this is the state at that height" or "here are the
// states immediately before/after it", the query shape misbehaviour
// detection needs to check timestamp ordering across gaps.
type Store struct {
	states map[guestchain.BlockHeight]ConsensusState
}

// NewStore returns an empty consensus-state store.
func NewStore() *Store {
	return &Store{states: make(map[guestchain.BlockHeight]ConsensusState)}
}

// Get returns the state stored at height, if any.
func (s *Store) Get(height guestchain.BlockHeight) (ConsensusState, bool) {
	cs, ok := s.states[height]
	return cs, ok
}

// Put stores (or overwrites) the state at height.
func (s *Store) Put(height guestchain.BlockHeight, cs ConsensusState) {
	s.states[height] = cs
}

// Delete removes the state at height.
func (s *Store) Delete(height guestchain.BlockHeight) {
	delete(s.states, height)
}

func (s *Store) sortedHeights() []guestchain.BlockHeight {
	out := make([]guestchain.BlockHeight, 0, len(s.states))
	for h := range s.states {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Prev returns the state stored at the greatest height strictly less
// than height.
func (s *Store) Prev(height guestchain.BlockHeight) (guestchain.BlockHeight, ConsensusState, bool) {
	var best guestchain.BlockHeight
	var bestState ConsensusState
	found := false
	for h, cs := range s.states {
		if h < height && (!found || h > best) {
			best, bestState, found = h, cs, true
		}
	}
	return best, bestState, found
}

// Next returns the state stored at the smallest height strictly greater
// than height.
func (s *Store) Next(height guestchain.BlockHeight) (guestchain.BlockHeight, ConsensusState, bool) {
	var best guestchain.BlockHeight
	var bestState ConsensusState
	found := false
	for h, cs := range s.states {
		if h > height && (!found || h < best) {
			best, bestState, found = h, cs, true
		}
	}
	return best, bestState, found
}

// Oldest returns the state stored at the smallest height, used by
// UpdateState to find the pruning candidate.
func (s *Store) Oldest() (guestchain.BlockHeight, ConsensusState, bool) {
	heights := s.sortedHeights()
	if len(heights) == 0 {
		return 0, ConsensusState{}, false
	}
	h := heights[0]
	return h, s.states[h], true
}

// Len reports how many heights are currently tracked.
func (s *Store) Len() int { return len(s.states) }
