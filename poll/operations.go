package poll

import (
	"math"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/infimum-network/infimum/config"
	"github.com/infimum-network/infimum/pkg/merkle"
	"github.com/infimum-network/infimum/pkg/poseidon"
)

// RegisterParticipant computes the registration leaf H4(x, y, 1, block) and
// inserts it into the registration accumulator. Duplicate registrations are
// permitted by design (distinct leaves); deduplication is a circuit-level
// concern (spec.md §4.5).
func (p *Poll) RegisterParticipant(pk PublicKey, block BlockNumber) (uint32, error) {
	var one fr.Element
	one.SetUint64(1)
	var blockFr fr.Element
	blockFr.SetUint64(uint64(block))

	leaf, err := poseidon.HashN(pk.XElement(), pk.YElement(), one, blockFr)
	if err != nil {
		return 0, wrapRegistration(err)
	}
	if err := p.State.Registrations.Insert(leaf); err != nil {
		return 0, wrapRegistration(err)
	}
	return p.State.Registrations.Count, nil
}

// ConsumeInteraction computes the interaction leaf
// H4(H5(data[0:5]), H5(data[5:10]), x, y) and inserts it into the
// interaction accumulator.
func (p *Poll) ConsumeInteraction(pk PublicKey, data InteractionData) (uint32, error) {
	left := make([]fr.Element, 5)
	right := make([]fr.Element, 5)
	for i := 0; i < 5; i++ {
		left[i] = fieldFromBytes(data[i][:])
		right[i] = fieldFromBytes(data[5+i][:])
	}

	leftDigest, err := poseidon.HashN(left...)
	if err != nil {
		return 0, wrapInteraction(err)
	}
	rightDigest, err := poseidon.HashN(right...)
	if err != nil {
		return 0, wrapInteraction(err)
	}

	leaf, err := poseidon.HashN(leftDigest, rightDigest, pk.XElement(), pk.YElement())
	if err != nil {
		return 0, wrapInteraction(err)
	}
	if err := p.State.Interactions.Insert(leaf); err != nil {
		return 0, wrapInteraction(err)
	}
	return p.State.Interactions.Count, nil
}

// EmptyBallotRoot returns the root of an all-zero binary (arity-2) tree of
// the given depth, generalising the original pallet's hardcoded
// EMPTY_BALLOT_ROOTS[1] lookup to the poll's configured
// VoteOptionTreeDepth.
func EmptyBallotRoot(depth uint8) (fr.Element, error) {
	zeroes, err := merkle.ZeroHashes(config.RegistrationArity, int(depth))
	if err != nil {
		return fr.Element{}, err
	}
	return zeroes[depth], nil
}

// MergeRegistrations merges the registration accumulator (stopping at the
// first complete subroot, to_depth=false) and seeds the process commitment
// chain: commitment.process = (0, H3(root, EmptyBallotRoot(depth), 0)).
func (p *Poll) MergeRegistrations() error {
	if err := p.State.Registrations.Merge(false); err != nil {
		return wrapMerge(err)
	}
	if p.State.Registrations.Root == nil {
		return wrapMerge(merkle.ErrMergeFailed)
	}

	emptyBallot, err := EmptyBallotRoot(p.Config.VoteOptionTreeDepth)
	if err != nil {
		return wrapMerge(err)
	}

	seed, err := poseidon.HashN(*p.State.Registrations.Root, emptyBallot, fr.Element{})
	if err != nil {
		return wrapMerge(err)
	}
	p.State.Commitment.Process = CommitmentEntry{Index: 0, Digest: seed}
	return nil
}

// MergeInteractions merges the interaction accumulator to its full depth
// (to_depth=true) and records the expected terminal proof-index counts for
// both chains, per spec.md §3's commitment-chain formulas.
func (p *Poll) MergeInteractions() error {
	if err := p.State.Interactions.Merge(true); err != nil {
		return wrapMerge(err)
	}
	if p.State.Interactions.Root == nil {
		return wrapMerge(merkle.ErrMergeFailed)
	}

	processBatch := uint32(math.Pow(float64(config.InteractionArity), float64(p.Config.ProcessSubtreeDepth)))
	tallyBatch := uint32(math.Pow(float64(config.RegistrationArity), float64(p.Config.TallySubtreeDepth)))

	p.State.Commitment.ExpectedProcess = ceilDiv(p.State.Interactions.Count, processBatch)
	p.State.Commitment.ExpectedTally = ceilDiv(p.State.Registrations.Count+1, tallyBatch)
	return nil
}

func ceilDiv(numerator, denominator uint32) uint32 {
	if denominator == 0 {
		return 0
	}
	return (numerator + denominator - 1) / denominator
}

// Nullify sets the tombstone flag, rendering the poll fulfilled without an outcome.
func (p *Poll) Nullify() {
	p.State.Tombstone = true
}
