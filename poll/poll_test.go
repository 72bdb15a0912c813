package poll

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

func testConfig() PollConfiguration {
	return PollConfiguration{
		SignupPeriod:        10,
		VotingPeriod:        10,
		MaxRegistrations:    16,
		MaxInteractions:     16,
		RegistrationDepth:   4,
		InteractionDepth:    2,
		ProcessSubtreeDepth: 2,
		TallySubtreeDepth:   2,
		VoteOptionTreeDepth: 2,
		VoteOptions:         []uint64{1, 2, 3},
	}
}

func newTestPoll(t *testing.T) *Poll {
	t.Helper()
	cfg := testConfig()
	state, err := NewState(cfg.RegistrationDepth, cfg.InteractionDepth)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	return &Poll{ID: 1, Coordinator: "alice", CreatedAt: 0, Config: cfg, State: state}
}

func TestPollConfigurationValidate(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tooFewOptions := testConfig()
	tooFewOptions.VoteOptions = []uint64{1}
	if err := tooFewOptions.Validate(); err == nil {
		t.Fatal("expected error for fewer than two vote options")
	}

	zeroSignup := testConfig()
	zeroSignup.SignupPeriod = 0
	if err := zeroSignup.Validate(); err == nil {
		t.Fatal("expected error for zero signup period")
	}
}

func TestLifecycleWindows(t *testing.T) {
	p := newTestPoll(t)

	if !p.IsRegistrationPeriod(0) {
		t.Fatal("block 0 should be within the registration window")
	}
	if p.IsRegistrationPeriod(10) {
		t.Fatal("block 10 should be past the registration window (signup period 10)")
	}
	if !p.IsVotingPeriod(10) {
		t.Fatal("block 10 should be within the voting window")
	}
	if !p.IsOver(21) {
		t.Fatal("block 21 should be past the voting window (signup 10 + voting 10)")
	}
	if p.IsOver(20) {
		t.Fatal("block 20 is the inclusive last voting block, not yet over")
	}
}

func TestRegisterParticipantAndInteract(t *testing.T) {
	p := newTestPoll(t)

	var pk PublicKey
	pk.X[31] = 1
	pk.Y[31] = 2

	count, err := p.RegisterParticipant(pk, 0)
	if err != nil {
		t.Fatalf("RegisterParticipant: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	var data InteractionData
	data[0][31] = 9
	if _, err := p.ConsumeInteraction(pk, data); err != nil {
		t.Fatalf("ConsumeInteraction: %v", err)
	}
	if p.State.Interactions.Count != 1 {
		t.Fatalf("expected interaction count 1, got %d", p.State.Interactions.Count)
	}
}

func TestMergeRegistrationsThenInteractions(t *testing.T) {
	p := newTestPoll(t)

	var pk PublicKey
	pk.X[31] = 1

	if _, err := p.RegisterParticipant(pk, 0); err != nil {
		t.Fatalf("RegisterParticipant: %v", err)
	}
	var data InteractionData
	if _, err := p.ConsumeInteraction(pk, data); err != nil {
		t.Fatalf("ConsumeInteraction: %v", err)
	}

	if err := p.MergeRegistrations(); err != nil {
		t.Fatalf("MergeRegistrations: %v", err)
	}
	if p.State.Registrations.Root == nil {
		t.Fatal("expected registrations root to be set after merge")
	}
	if p.State.Commitment.Process.Digest.IsZero() {
		t.Fatal("expected a non-zero process commitment seed after merging registrations")
	}

	if err := p.MergeInteractions(); err != nil {
		t.Fatalf("MergeInteractions: %v", err)
	}
	if p.State.Interactions.Root == nil {
		t.Fatal("expected interactions root to be set after merge")
	}
	if p.State.Commitment.ExpectedProcess == 0 {
		t.Fatal("expected a nonzero ExpectedProcess batch count")
	}
	if p.State.Commitment.ExpectedTally == 0 {
		t.Fatal("expected a nonzero ExpectedTally batch count")
	}
}

func TestCanNullify(t *testing.T) {
	p := newTestPoll(t)

	if p.CanNullify(0) {
		t.Fatal("should not be nullifiable during registration with zero block elapsed incorrectly classified")
	}
	if !p.CanNullify(10) {
		t.Fatal("expected nullifiable once registration closed with zero registrations")
	}

	var pk PublicKey
	if _, err := p.RegisterParticipant(pk, 0); err != nil {
		t.Fatalf("RegisterParticipant: %v", err)
	}
	if p.CanNullify(10) {
		t.Fatal("should not be nullifiable once a registration exists, before voting ends")
	}
	if !p.CanNullify(21) {
		t.Fatal("expected nullifiable once voting is over with zero interactions")
	}
}

func TestProofPublicInputsRequiresMergedState(t *testing.T) {
	p := newTestPoll(t)
	var pk PublicKey
	_, _, err := p.ProofPublicInputs(0, pk, fr.Element{}, fr.Element{})
	if err != ErrPollStateNotMerged {
		t.Fatalf("expected ErrPollStateNotMerged, got %v", err)
	}
}
