package guestchain

import "testing"

func testPK(c byte) PubKey {
	var pk PubKey
	pk[0] = c
	return pk
}

func testCandidate(c byte, stake uint64) Candidate {
	return Candidate{PubKey: testPK(c), Stake: stake}
}

func testConfig() *Config {
	return &Config{
		MinValidators:     1,
		MaxValidators:     65535,
		MinValidatorStake: 1,
		MinTotalStake:     1,
		MinQuorumStake:    1,
	}
}

func TestCandidateLess(t *testing.T) {
	cases := []struct {
		a, b Candidate
		want bool
	}{
		{testCandidate('C', 20), testCandidate('A', 10), false}, // higher stake sorts first
		{testCandidate('A', 10), testCandidate('C', 20), true},
		{testCandidate('C', 10), testCandidate('C', 20), false},
		{testCandidate('A', 20), testCandidate('C', 20), true}, // tie broken by pubkey
	}
	for _, c := range cases {
		if got := candidateLess(c.a, c.b); got != c.want {
			t.Errorf("candidateLess(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestRotate(t *testing.T) {
	run := func(oldPos, newPos int) [8]int {
		s := make([]Candidate, 8)
		for i := range s {
			s[i] = Candidate{Stake: uint64(i)}
		}
		rotate(s, oldPos, newPos)
		var out [8]int
		for i, c := range s {
			out[i] = int(c.Stake)
		}
		return out
	}

	cases := []struct {
		oldPos, newPos int
		want           [8]int
	}{
		{0, 0, [8]int{0, 1, 2, 3, 4, 5, 6, 7}},
		{7, 7, [8]int{0, 1, 2, 3, 4, 5, 6, 7}},
		{0, 7, [8]int{1, 2, 3, 4, 5, 6, 7, 0}},
		{7, 0, [8]int{7, 0, 1, 2, 3, 4, 5, 6}},
		{2, 5, [8]int{0, 1, 3, 4, 5, 2, 6, 7}},
		{5, 2, [8]int{0, 1, 5, 2, 3, 4, 6, 7}},
	}
	for _, c := range cases {
		if got := run(c.oldPos, c.newPos); got != c.want {
			t.Errorf("rotate(%d, %d) = %v, want %v", c.oldPos, c.newPos, got, c.want)
		}
	}
}

func TestCandidatesUpdateAddRespectsMinValidatorStake(t *testing.T) {
	c := NewCandidates(2, nil)
	cfg := testConfig()
	cfg.MinValidatorStake = 10

	err := c.Update(cfg, testPK('A'), func(_ *Candidate) (uint64, error) { return 5, nil })
	if err == nil {
		t.Fatal("expected an error for stake below min_validator_stake")
	}
}

func TestCandidatesUpdateAddAndHeadStake(t *testing.T) {
	c := NewCandidates(2, nil)
	cfg := testConfig()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	must(c.Update(cfg, testPK('A'), func(_ *Candidate) (uint64, error) { return 10, nil }))
	must(c.Update(cfg, testPK('B'), func(_ *Candidate) (uint64, error) { return 20, nil }))
	must(c.Update(cfg, testPK('C'), func(_ *Candidate) (uint64, error) { return 5, nil }))

	if got := c.CurrentHeadStake(); got != 30 {
		t.Fatalf("head stake = %d, want 30 (top 2 of A=10,B=20,C=5)", got)
	}

	head, changed := c.MaybeGetHead()
	if !changed {
		t.Fatal("expected changed flag to be set")
	}
	if len(head) != 2 || head[0].PubKey != testPK('B') || head[1].PubKey != testPK('A') {
		t.Fatalf("unexpected head: %+v", head)
	}

	c.ClearChangedFlag()
	if _, changed := c.MaybeGetHead(); changed {
		t.Fatal("expected changed flag to be cleared")
	}
}

func TestCandidatesUpdateRemoveBelowMinValidatorsFails(t *testing.T) {
	c := NewCandidates(5, []Validator{{PubKey: testPK('A'), Stake: 10}})
	cfg := testConfig()
	cfg.MinValidators = 1

	err := c.Update(cfg, testPK('A'), func(_ *Candidate) (uint64, error) { return 0, nil })
	if err == nil {
		t.Fatal("expected removing the last validator below min_validators to fail")
	}
}

func TestCandidatesUpdateRemove(t *testing.T) {
	c := NewCandidates(5, []Validator{
		{PubKey: testPK('A'), Stake: 10},
		{PubKey: testPK('B'), Stake: 20},
	})
	cfg := testConfig()

	if err := c.Update(cfg, testPK('A'), func(_ *Candidate) (uint64, error) { return 0, nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.CurrentHeadStake(); got != 20 {
		t.Fatalf("head stake after removal = %d, want 20", got)
	}
	if len(c.Candidates()) != 1 {
		t.Fatalf("candidates after removal = %v, want len 1", c.Candidates())
	}
}
