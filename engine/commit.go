package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/infimum-network/infimum/pkg/verifier"
	"github.com/infimum-network/infimum/poll"
	"github.com/infimum-network/infimum/storage"
)

// Batch is one coordinator-submitted proof in a commit_outcome call: the
// chained commitment digest the circuit attests to, plus the Groth16 proof
// over the public inputs poll.ProofPublicInputs derives from chain state.
type Batch struct {
	NewCommitment fr.Element
	Proof         verifier.RawProof
}

// CommitOutcome is extrinsic #4. Batches are applied left-to-right,
// all-or-nothing: any verification failure aborts the whole call without
// persisting a partial commitment advance, per spec.md §4.6.
func (e *Engine) CommitOutcome(ctx context.Context, id poll.PollID, outcomeIndex *uint32, batches []Batch) error {
	p, err := e.store.GetPoll(ctx, id)
	if err != nil {
		return newErr(KindPollDoesNotExist)
	}
	if p.IsFulfilled() {
		return newErr(KindPollOutcomeAlreadyDetermined)
	}
	if p.State.Registrations.Root == nil || p.State.Interactions.Root == nil {
		return newErr(KindPollStateNotMerged)
	}

	rec, err := e.store.GetCoordinator(ctx, p.Coordinator)
	if err != nil {
		return fmt.Errorf("engine: commit outcome: %w", err)
	}

	saved := p.State.Commitment
	for _, batch := range batches {
		if err := e.applyBatch(p, rec, batch); err != nil {
			p.State.Commitment = saved
			return err
		}
	}

	if outcomeIndex != nil {
		finalizeOutcome(p, *outcomeIndex)
	}

	if err := e.store.PutPoll(ctx, p); err != nil {
		return fmt.Errorf("engine: commit outcome: %w", err)
	}

	if p.IsFulfilled() {
		e.logger.Info("poll outcome determined", zap.Uint32("poll_id", uint32(id)), zap.Uint32("outcome", *p.State.Outcome))
		e.bus.Emit(PollOutcome{PollID: id, Outcome: uint64(*p.State.Outcome)})
	} else {
		e.logger.Info("poll commitment advanced", zap.Uint32("poll_id", uint32(id)))
		e.bus.Emit(PollCommitmentUpdated{PollID: id, Commitment: p.State.Commitment})
	}
	return nil
}

// applyBatch determines which commitment chain the next proof index
// targets, verifies it against the coordinator's corresponding verify key,
// and advances that chain's entry in place.
//
// The chain is decided by comparing the process chain's own index against
// Commitment.ExpectedProcess (set by MergeInteractions with the same
// batch-size formula poll.targetCircuit uses internally), never by probing
// with the other chain's index: Tally.Index resets to 0 every poll, so
// calling ProofPublicInputs with it would always resolve back to
// CircuitProcess regardless of how far the process chain has actually
// advanced.
func (e *Engine) applyBatch(p *poll.Poll, rec *storage.Coordinator, batch Batch) error {
	entry := &p.State.Commitment.Process
	rawVK := rawVerifyKey(rec.ProcessVerify)
	if p.State.Commitment.Process.Index >= p.State.Commitment.ExpectedProcess {
		entry = &p.State.Commitment.Tally
		rawVK = rawVerifyKey(rec.TallyVerify)
	}

	_, inputs, err := p.ProofPublicInputs(p.State.Commitment.Process.Index, rec.PublicKey, entry.Digest, batch.NewCommitment)
	if err != nil {
		return fmt.Errorf("engine: commit outcome: %w", err)
	}

	vk, err := verifier.DecodeVerifyKey(rawVK)
	if err != nil {
		return newErr(KindMalformedKeys)
	}
	proof, err := verifier.DecodeProof(batch.Proof)
	if err != nil {
		return newErr(KindMalformedProof)
	}

	ok, err := verifier.Verify(vk, proof, inputs)
	if err != nil || !ok {
		return newErr(KindMalformedProof)
	}

	entry.Index++
	entry.Digest = batch.NewCommitment
	return nil
}

// finalizeOutcome applies spec.md §4.6's terminal check: both chains must
// have reached their expected proof counts and the chosen option must be in
// range, otherwise the call only advances commitments without concluding.
func finalizeOutcome(p *poll.Poll, outcomeIndex uint32) {
	c := p.State.Commitment
	if c.Process.Index == c.ExpectedProcess && c.Tally.Index == c.ExpectedTally && outcomeIndex < uint32(len(p.Config.VoteOptions)) {
		idx := outcomeIndex
		p.State.Outcome = &idx
	}
}
