// Package poll implements C3 (poll entity & state) and the leaf/public-input
// construction half of C5/C6: PollConfiguration, PollState (the pair of
// accumulators plus commitment chain), lifecycle predicates, and the
// registration/interaction/merge operations. It is grounded on
// poll/state.rs and poll/provider.rs of the original pallet.
package poll

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/infimum-network/infimum/config"
	"github.com/infimum-network/infimum/pkg/merkle"
)

// PollID identifies a poll; allocation is monotonic, starting at 0.
type PollID uint32

// BlockNumber is the host chain's block height type.
type BlockNumber uint64

// Account is an opaque host account identifier (e.g. an SS58/hex address
// string); polls and coordinators are keyed and referenced by it.
type Account string

// PublicKey is a BN254 field-element pair, wire-encoded as 32-byte
// big-endian limbs.
type PublicKey struct {
	X [32]byte
	Y [32]byte
}

// XElement and YElement decode the public key's limbs as field elements.
func (pk PublicKey) XElement() fr.Element { return fieldFromBytes(pk.X[:]) }
func (pk PublicKey) YElement() fr.Element { return fieldFromBytes(pk.Y[:]) }

func fieldFromBytes(b []byte) fr.Element {
	var e fr.Element
	e.SetBytes(b)
	return e
}

// InteractionData is the opaque per-interaction ciphertext payload: ten
// 32-byte words. Encrypting/decrypting it is out of scope; the chain only
// ever hashes it.
type InteractionData [config.InteractionDataWords][32]byte

// PollConfiguration holds the per-poll tunables, validated against the
// system caps in package config at CreatePoll time.
//
// RegistrationDepth and InteractionDepth size the registration/interaction
// accumulators themselves (their full tree depth, per
// pkg/merkle.NewAccumulator's fullDepth parameter) and are independent of
// ProcessSubtreeDepth/TallySubtreeDepth, which only size the per-batch
// subtrees a single commit_outcome proof covers. Conflating the two caps
// accumulator capacity at the batch-subtree size instead of the configured
// registration/interaction limits.
type PollConfiguration struct {
	SignupPeriod        BlockNumber
	VotingPeriod        BlockNumber
	MaxRegistrations    uint32
	MaxInteractions     uint32
	RegistrationDepth   uint8
	InteractionDepth    uint8
	ProcessSubtreeDepth uint8
	TallySubtreeDepth   uint8
	VoteOptionTreeDepth uint8
	VoteOptions         []uint64
}

// treeCapacity returns arity^depth, saturating well above any system cap
// rather than overflowing, so it stays a safe comparison bound at the
// maximum configurable depth.
func treeCapacity(arity int, depth uint8) uint64 {
	const saturate = uint64(1) << 40
	capacity := uint64(1)
	for i := uint8(0); i < depth; i++ {
		capacity *= uint64(arity)
		if capacity > saturate {
			return saturate
		}
	}
	return capacity
}

// Validate checks the invariants named in spec.md §3: at least two vote
// options, registration/interaction caps within system limits, accumulator
// depths wide enough to hold those caps, and batch-subtree depths within
// the configured maximum tree depth.
func (c PollConfiguration) Validate() error {
	switch {
	case len(c.VoteOptions) < 2:
		return ErrPollConfigInvalid
	case len(c.VoteOptions) > config.MaxVoteOptions:
		return ErrPollConfigInvalid
	case c.MaxRegistrations == 0 || c.MaxRegistrations > config.MaxRegistrations:
		return ErrPollConfigInvalid
	case c.MaxInteractions == 0 || c.MaxInteractions > config.MaxInteractions:
		return ErrPollConfigInvalid
	case int(c.RegistrationDepth) > config.MaxTreeDepth || c.RegistrationDepth == 0:
		return ErrPollConfigInvalid
	case int(c.InteractionDepth) > config.MaxTreeDepth || c.InteractionDepth == 0:
		return ErrPollConfigInvalid
	case treeCapacity(config.RegistrationArity, c.RegistrationDepth) < uint64(c.MaxRegistrations):
		return ErrPollConfigInvalid
	case treeCapacity(config.InteractionArity, c.InteractionDepth) < uint64(c.MaxInteractions):
		return ErrPollConfigInvalid
	case int(c.ProcessSubtreeDepth) > config.MaxTreeDepth || c.ProcessSubtreeDepth == 0:
		return ErrPollConfigInvalid
	case int(c.TallySubtreeDepth) > config.MaxTreeDepth || c.TallySubtreeDepth == 0:
		return ErrPollConfigInvalid
	case int(c.VoteOptionTreeDepth) > config.MaxTreeDepth:
		return ErrPollConfigInvalid
	case c.SignupPeriod == 0 || c.VotingPeriod == 0:
		return ErrPollConfigInvalid
	}
	return nil
}

// CommitmentEntry is one (proof_index, digest) slot of the commitment
// chain, for either the process or the tally circuit.
type CommitmentEntry struct {
	Index  uint32
	Digest fr.Element
}

// Commitment bundles both chains plus the expected terminal proof counts
// computed once at merge time.
type Commitment struct {
	Process         CommitmentEntry
	Tally           CommitmentEntry
	ExpectedProcess uint32
	ExpectedTally   uint32
}

// State is the mutable heart of a poll: the two accumulators, the
// commitment chain, the recorded outcome, and the tombstone flag.
type State struct {
	Registrations *merkle.Accumulator
	Interactions  *merkle.Accumulator
	Commitment    Commitment
	Outcome       *uint32
	Tombstone     bool

	// TallyOutcome optionally carries the richer tally-proof record (see
	// SPEC_FULL.md §5). No engine operation sets it (CommitOutcome takes
	// only proof batches and an outcome index), so it stays nil unless a
	// caller assigns it directly, and the tally circuit's spent-votes
	// signal is then the zero element.
	TallyOutcome *TallyOutcome
}

// TallyOutcome is the supplemented tally-result record (original_source
// poll/poll.rs's PollOutcome), carried optionally beyond spec.md's single
// outcome scalar.
type TallyOutcome struct {
	VoteOptionIndices  []uint32
	TallyResults       []uint64
	TallyResultSalt    fr.Element
	TotalSpent         uint64
	TotalSpentSalt     fr.Element
	NewResultsCommitment fr.Element
	SpentVotesHash     fr.Element
}

// NewState initialises an empty PollState per NewPollState::new: the
// registration tree seeded with the sentinel (0, Z_arity2[0]) leaf, the
// interaction tree empty.
func NewState(registrationDepth, interactionDepth uint8) (*State, error) {
	zeroes, err := merkle.ZeroHashes(config.RegistrationArity, int(registrationDepth))
	if err != nil {
		return nil, err
	}

	registrations := merkle.NewAccumulator(config.RegistrationArity, int(registrationDepth), 0, zeroes[0], true)
	interactions := merkle.NewAccumulator(config.InteractionArity, int(interactionDepth), 0, fr.Element{}, false)

	return &State{
		Registrations: registrations,
		Interactions:  interactions,
	}, nil
}

// Poll is a single poll's full record: identity, owning coordinator,
// creation height, mutable state and immutable configuration.
type Poll struct {
	ID          PollID
	Coordinator Account
	CreatedAt   BlockNumber
	State       *State
	Config      PollConfiguration
}
