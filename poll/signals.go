package poll

import (
	"errors"
	"math"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/infimum-network/infimum/config"
	"github.com/infimum-network/infimum/pkg/poseidon"
)

// ErrPollStateNotMerged is returned when public-input construction is
// attempted before the relevant accumulator has a root.
var ErrPollStateNotMerged = errors.New("poll: state not merged")

// Circuit identifies which Groth16 circuit a proof batch targets.
type Circuit int

const (
	CircuitProcess Circuit = iota
	CircuitTally
)

// targetCircuit determines, from the current proof index and the
// interaction batch size, whether the next batch targets the process or
// tally circuit — a computed tag, never stored (spec.md §9).
func (p *Poll) targetCircuit(proofIndex uint32) (Circuit, uint32, uint32) {
	batchSize := uint32(math.Pow(float64(config.InteractionArity), float64(p.Config.ProcessSubtreeDepth)))

	currentBatchIndex := p.State.Interactions.Count
	if currentBatchIndex > 0 {
		r := currentBatchIndex % batchSize
		if r == 0 {
			currentBatchIndex -= batchSize
		} else {
			currentBatchIndex -= r
		}
	}
	indexOffset := proofIndex * batchSize

	if indexOffset <= currentBatchIndex {
		return CircuitProcess, currentBatchIndex - indexOffset, batchSize
	}
	return CircuitTally, 0, batchSize
}

// ProofPublicInputs builds the public-input vector for the next proof
// batch and reports which circuit it targets, per spec.md §4.6. Inputs are
// a pure function of (poll state before the call, proofIndex,
// newCommitment) and never of coordinator-supplied values beyond
// newCommitment, as spec.md requires.
func (p *Poll) ProofPublicInputs(proofIndex uint32, coordinatorPK PublicKey, currCommitment, newCommitment fr.Element) (Circuit, []fr.Element, error) {
	circuit, currentBatchIndex, batchSize := p.targetCircuit(proofIndex)

	coordPubKeyHash, err := poseidon.HashN(coordinatorPK.XElement(), coordinatorPK.YElement())
	if err != nil {
		return circuit, nil, err
	}

	if circuit == CircuitProcess {
		if p.State.Interactions.Root == nil {
			return circuit, nil, ErrPollStateNotMerged
		}

		endBatchIndex := currentBatchIndex + batchSize
		if endBatchIndex > p.State.Interactions.Count {
			endBatchIndex = p.State.Interactions.Count
		}

		var regsCountPlusOne, votingEnd, regsDepth, endIdx, curIdx fr.Element
		regsCountPlusOne.SetUint64(uint64(p.State.Registrations.Count) + 1)
		votingEnd.SetUint64(uint64(p.GetVotingPeriodEnd()))
		regsDepth.SetUint64(uint64(p.State.Registrations.Depth))
		endIdx.SetUint64(uint64(endBatchIndex))
		curIdx.SetUint64(uint64(currentBatchIndex))

		inputs := []fr.Element{
			regsCountPlusOne,
			votingEnd,
			*p.State.Interactions.Root,
			regsDepth,
			endIdx,
			curIdx,
			coordPubKeyHash,
			currCommitment,
			newCommitment,
		}
		return circuit, inputs, nil
	}

	return p.tallyPublicInputs(coordPubKeyHash, currCommitment, newCommitment)
}

// tallyPublicInputs implements the Open Question resolution recorded in
// SPEC_FULL.md §6: mirror the process-circuit structure, substituting
// registrations.root for interactions.root and tally_subtree_depth for
// process_subtree_depth, with the vote-option-tree depth and a
// spent-votes hash inserted as the final two signals before the chained
// commitments.
func (p *Poll) tallyPublicInputs(coordPubKeyHash, currCommitment, newCommitment fr.Element) (Circuit, []fr.Element, error) {
	if p.State.Registrations.Root == nil {
		return CircuitTally, nil, ErrPollStateNotMerged
	}

	spentVotesHash := fr.Element{}
	if p.State.TallyOutcome != nil {
		h, err := poseidon.HashN(p.numberElement(p.State.TallyOutcome.TotalSpent), p.State.TallyOutcome.TotalSpentSalt)
		if err != nil {
			return CircuitTally, nil, err
		}
		spentVotesHash = h
	}

	var regsCountPlusOne, tallyDepth, voteOptDepth fr.Element
	regsCountPlusOne.SetUint64(uint64(p.State.Registrations.Count) + 1)
	tallyDepth.SetUint64(uint64(p.Config.TallySubtreeDepth))
	voteOptDepth.SetUint64(uint64(p.Config.VoteOptionTreeDepth))

	inputs := []fr.Element{
		regsCountPlusOne,
		*p.State.Registrations.Root,
		tallyDepth,
		voteOptDepth,
		spentVotesHash,
		coordPubKeyHash,
		currCommitment,
		newCommitment,
	}
	return CircuitTally, inputs, nil
}

func (p *Poll) numberElement(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}
