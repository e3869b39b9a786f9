package lightclient

import (
	"crypto/ed25519"
	"testing"

	"github.com/composable-guest/guestchain/guestchain"
)

type testSigner struct {
	pk   guestchain.PubKey
	priv ed25519.PrivateKey
}

func newTestSigner(t *testing.T) testSigner {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pk, err := guestchain.NewPubKey(pub)
	if err != nil {
		t.Fatalf("NewPubKey: %v", err)
	}
	return testSigner{pk: pk, priv: priv}
}

func (s testSigner) PubKey() guestchain.PubKey { return s.pk }
func (s testSigner) Sign(msg []byte) guestchain.Signature {
	var sig guestchain.Signature
	copy(sig[:], ed25519.Sign(s.priv, msg))
	return sig
}

func testHeaderAndEpoch(t *testing.T) (*Header, guestchain.Epoch, testSigner, testSigner) {
	t.Helper()
	ali := newTestSigner(t)
	bob := newTestSigner(t)

	epoch, err := guestchain.NewEpoch([]guestchain.Validator{
		{PubKey: ali.PubKey(), Stake: 2},
		{PubKey: bob.PubKey(), Stake: 2},
	}, func(total uint64) uint64 { return total/2 + 1 })
	if err != nil {
		t.Fatalf("NewEpoch: %v", err)
	}

	genesisHash := guestchain.Hash{1}
	blockHash := guestchain.Hash{2}
	commitment, err := epoch.CalcCommitment()
	if err != nil {
		t.Fatalf("CalcCommitment: %v", err)
	}

	fp := guestchain.NewFingerprint(genesisHash, 5, blockHash)

	h := &Header{
		GenesisHash:     genesisHash,
		BlockHeight:     5,
		BlockHash:       blockHash,
		Timestamp:       1000,
		EpochCommitment: commitment,
		Epoch:           epoch,
		Signatures: []HeaderSignature{
			{ValidatorIndex: 0, Signature: fp.Sign(ali)},
			{ValidatorIndex: 1, Signature: fp.Sign(bob)},
		},
	}
	return h, epoch, ali, bob
}

func TestVerifyHeaderSuccess(t *testing.T) {
	h, _, _, _ := testHeaderAndEpoch(t)
	cs := &ClientState{GenesisHash: h.GenesisHash, EpochCommitment: h.EpochCommitment}
	if err := VerifyHeader(cs, h); err != nil {
		t.Fatalf("VerifyHeader: %v", err)
	}
}

func TestVerifyHeaderRejectsWrongGenesis(t *testing.T) {
	h, _, _, _ := testHeaderAndEpoch(t)
	cs := &ClientState{GenesisHash: guestchain.Hash{9}, EpochCommitment: h.EpochCommitment}
	if err := VerifyHeader(cs, h); err == nil {
		t.Fatal("expected an error for mismatched genesis hash")
	}
}

func TestVerifyHeaderRejectsDuplicateIndex(t *testing.T) {
	h, _, _, _ := testHeaderAndEpoch(t)
	h.Signatures = append(h.Signatures, h.Signatures[0])
	cs := &ClientState{GenesisHash: h.GenesisHash, EpochCommitment: h.EpochCommitment}
	if err := VerifyHeader(cs, h); err == nil {
		t.Fatal("expected an error for a duplicate validator index")
	}
}

func TestVerifyHeaderFailsWithoutQuorum(t *testing.T) {
	h, _, _, _ := testHeaderAndEpoch(t)
	h.Signatures = h.Signatures[:1]
	cs := &ClientState{GenesisHash: h.GenesisHash, EpochCommitment: h.EpochCommitment}
	if err := VerifyHeader(cs, h); err == nil {
		t.Fatal("expected an error when signatures don't reach quorum")
	}
}

func TestUpdateStateThenStatus(t *testing.T) {
	h, _, _, _ := testHeaderAndEpoch(t)
	cs := &ClientState{GenesisHash: h.GenesisHash, EpochCommitment: h.EpochCommitment, TrustingPeriodNs: 500}
	store := NewStore()

	if _, err := UpdateState(store, cs, h, 1000); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	if cs.LatestHeight != h.BlockHeight {
		t.Fatalf("LatestHeight = %v, want %v", cs.LatestHeight, h.BlockHeight)
	}

	if got := StatusOf(cs, store, 1200); got != Active {
		t.Fatalf("status at hostNow=1200 = %v, want Active", got)
	}
	if got := StatusOf(cs, store, 1600); got != Expired {
		t.Fatalf("status at hostNow=1600 = %v, want Expired", got)
	}
}

func TestCheckMisbehaviourForHeaderDetectsConflict(t *testing.T) {
	h, _, _, _ := testHeaderAndEpoch(t)
	store := NewStore()
	store.Put(h.BlockHeight, ConsensusState{BlockHash: guestchain.Hash{99}, Timestamp: h.Timestamp})

	got, err := CheckMisbehaviourForHeader(store, h)
	if err != nil {
		t.Fatalf("CheckMisbehaviourForHeader: %v", err)
	}
	if !got {
		t.Fatal("expected misbehaviour to be detected for a conflicting stored state")
	}
}

func TestCheckMisbehaviourForMessage(t *testing.T) {
	h1, _, _, _ := testHeaderAndEpoch(t)
	h2 := *h1
	h2.BlockHeight = h1.BlockHeight
	h2.BlockHash = guestchain.Hash{77}
	if !CheckMisbehaviourForMessage(h1, &h2) {
		t.Fatal("equal heights with differing hashes should be misbehaviour")
	}

	h3 := *h1
	h3.BlockHeight = h1.BlockHeight + 1
	h3.Timestamp = h1.Timestamp - 1
	if !CheckMisbehaviourForMessage(h1, &h3) {
		t.Fatal("height/timestamp order disagreement should be misbehaviour")
	}
}
