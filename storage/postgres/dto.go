package postgres

import (
	"encoding/hex"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/infimum-network/infimum/pkg/field"
	"github.com/infimum-network/infimum/pkg/merkle"
	"github.com/infimum-network/infimum/poll"
)

// These JSON-serializable DTOs translate between poll.Poll/storage.Coordinator
// and the JSONB columns persisted by this package, since fr.Element and
// merkle.Accumulator carry unexported state not safe to hand to encoding/json
// directly.

type entryDTO struct {
	Depth  int    `json:"depth"`
	Digest string `json:"digest"` // hex, big-endian
}

type accumulatorDTO struct {
	Arity     int        `json:"arity"`
	FullDepth int        `json:"full_depth"`
	Depth     int        `json:"depth"`
	Count     uint32     `json:"count"`
	Root      *string    `json:"root,omitempty"`
	Entries   []entryDTO `json:"entries,omitempty"`
}

func hexOf(e fr.Element) string {
	b := field.ToBytesBE(&e)
	return hex.EncodeToString(b[:])
}

func elementFromHex(s string) fr.Element {
	b, err := hex.DecodeString(s)
	if err != nil {
		return fr.Element{}
	}
	return field.FromBytesBE(b)
}

func toAccumulatorDTO(a *merkle.Accumulator) accumulatorDTO {
	dto := accumulatorDTO{Arity: a.Arity, FullDepth: a.FullDepth, Depth: a.Depth, Count: a.Count}
	if a.Root != nil {
		s := hexOf(*a.Root)
		dto.Root = &s
	}
	for _, e := range a.Entries() {
		dto.Entries = append(dto.Entries, entryDTO{Depth: e.Depth, Digest: hexOf(e.Digest)})
	}
	return dto
}

func fromAccumulatorDTO(dto accumulatorDTO) *merkle.Accumulator {
	var root *fr.Element
	if dto.Root != nil {
		r := elementFromHex(*dto.Root)
		root = &r
	}
	entries := make([]merkle.Entry, len(dto.Entries))
	for i, e := range dto.Entries {
		entries[i] = merkle.Entry{Depth: e.Depth, Digest: elementFromHex(e.Digest)}
	}
	return merkle.Restore(dto.Arity, dto.FullDepth, dto.Depth, dto.Count, root, entries)
}

type commitmentEntryDTO struct {
	Index  uint32 `json:"index"`
	Digest string `json:"digest"`
}

type commitmentDTO struct {
	Process         commitmentEntryDTO `json:"process"`
	Tally           commitmentEntryDTO `json:"tally"`
	ExpectedProcess uint32             `json:"expected_process"`
	ExpectedTally   uint32             `json:"expected_tally"`
}

func toCommitmentDTO(c poll.Commitment) commitmentDTO {
	return commitmentDTO{
		Process:         commitmentEntryDTO{Index: c.Process.Index, Digest: hexOf(c.Process.Digest)},
		Tally:           commitmentEntryDTO{Index: c.Tally.Index, Digest: hexOf(c.Tally.Digest)},
		ExpectedProcess: c.ExpectedProcess,
		ExpectedTally:   c.ExpectedTally,
	}
}

func fromCommitmentDTO(dto commitmentDTO) poll.Commitment {
	return poll.Commitment{
		Process:         poll.CommitmentEntry{Index: dto.Process.Index, Digest: elementFromHex(dto.Process.Digest)},
		Tally:           poll.CommitmentEntry{Index: dto.Tally.Index, Digest: elementFromHex(dto.Tally.Digest)},
		ExpectedProcess: dto.ExpectedProcess,
		ExpectedTally:   dto.ExpectedTally,
	}
}

type tallyOutcomeDTO struct {
	VoteOptionIndices    []uint32 `json:"vote_option_indices"`
	TallyResults         []uint64 `json:"tally_results"`
	TallyResultSalt      string   `json:"tally_result_salt"`
	TotalSpent           uint64   `json:"total_spent"`
	TotalSpentSalt       string   `json:"total_spent_salt"`
	NewResultsCommitment string   `json:"new_results_commitment"`
	SpentVotesHash       string   `json:"spent_votes_hash"`
}

func toTallyOutcomeDTO(t *poll.TallyOutcome) *tallyOutcomeDTO {
	if t == nil {
		return nil
	}
	return &tallyOutcomeDTO{
		VoteOptionIndices:    t.VoteOptionIndices,
		TallyResults:         t.TallyResults,
		TallyResultSalt:      hexOf(t.TallyResultSalt),
		TotalSpent:           t.TotalSpent,
		TotalSpentSalt:       hexOf(t.TotalSpentSalt),
		NewResultsCommitment: hexOf(t.NewResultsCommitment),
		SpentVotesHash:       hexOf(t.SpentVotesHash),
	}
}

func fromTallyOutcomeDTO(dto *tallyOutcomeDTO) *poll.TallyOutcome {
	if dto == nil {
		return nil
	}
	return &poll.TallyOutcome{
		VoteOptionIndices:    dto.VoteOptionIndices,
		TallyResults:         dto.TallyResults,
		TallyResultSalt:      elementFromHex(dto.TallyResultSalt),
		TotalSpent:           dto.TotalSpent,
		TotalSpentSalt:       elementFromHex(dto.TotalSpentSalt),
		NewResultsCommitment: elementFromHex(dto.NewResultsCommitment),
		SpentVotesHash:       elementFromHex(dto.SpentVotesHash),
	}
}

// pollStateDTO is the JSONB payload of the polls.state column.
type pollStateDTO struct {
	Registrations accumulatorDTO   `json:"registrations"`
	Interactions  accumulatorDTO   `json:"interactions"`
	Commitment    commitmentDTO    `json:"commitment"`
	Outcome       *uint32          `json:"outcome,omitempty"`
	Tombstone     bool             `json:"tombstone"`
	TallyOutcome  *tallyOutcomeDTO `json:"tally_outcome,omitempty"`
}

func toPollStateDTO(s *poll.State) pollStateDTO {
	return pollStateDTO{
		Registrations: toAccumulatorDTO(s.Registrations),
		Interactions:  toAccumulatorDTO(s.Interactions),
		Commitment:    toCommitmentDTO(s.Commitment),
		Outcome:       s.Outcome,
		Tombstone:     s.Tombstone,
		TallyOutcome:  toTallyOutcomeDTO(s.TallyOutcome),
	}
}

func fromPollStateDTO(dto pollStateDTO) *poll.State {
	return &poll.State{
		Registrations: fromAccumulatorDTO(dto.Registrations),
		Interactions:  fromAccumulatorDTO(dto.Interactions),
		Commitment:    fromCommitmentDTO(dto.Commitment),
		Outcome:       dto.Outcome,
		Tombstone:     dto.Tombstone,
		TallyOutcome:  fromTallyOutcomeDTO(dto.TallyOutcome),
	}
}

// pollConfigDTO is the JSONB payload of the polls.config column.
type pollConfigDTO struct {
	SignupPeriod        uint64   `json:"signup_period"`
	VotingPeriod        uint64   `json:"voting_period"`
	MaxRegistrations    uint32   `json:"max_registrations"`
	MaxInteractions     uint32   `json:"max_interactions"`
	RegistrationDepth   uint8    `json:"registration_depth"`
	InteractionDepth    uint8    `json:"interaction_depth"`
	ProcessSubtreeDepth uint8    `json:"process_subtree_depth"`
	TallySubtreeDepth   uint8    `json:"tally_subtree_depth"`
	VoteOptionTreeDepth uint8    `json:"vote_option_tree_depth"`
	VoteOptions         []uint64 `json:"vote_options"`
}

func toPollConfigDTO(c poll.PollConfiguration) pollConfigDTO {
	return pollConfigDTO{
		SignupPeriod:        uint64(c.SignupPeriod),
		VotingPeriod:        uint64(c.VotingPeriod),
		MaxRegistrations:    c.MaxRegistrations,
		MaxInteractions:     c.MaxInteractions,
		RegistrationDepth:   c.RegistrationDepth,
		InteractionDepth:    c.InteractionDepth,
		ProcessSubtreeDepth: c.ProcessSubtreeDepth,
		TallySubtreeDepth:   c.TallySubtreeDepth,
		VoteOptionTreeDepth: c.VoteOptionTreeDepth,
		VoteOptions:         c.VoteOptions,
	}
}

func fromPollConfigDTO(dto pollConfigDTO) poll.PollConfiguration {
	return poll.PollConfiguration{
		SignupPeriod:        poll.BlockNumber(dto.SignupPeriod),
		VotingPeriod:        poll.BlockNumber(dto.VotingPeriod),
		MaxRegistrations:    dto.MaxRegistrations,
		MaxInteractions:     dto.MaxInteractions,
		RegistrationDepth:   dto.RegistrationDepth,
		InteractionDepth:    dto.InteractionDepth,
		ProcessSubtreeDepth: dto.ProcessSubtreeDepth,
		TallySubtreeDepth:   dto.TallySubtreeDepth,
		VoteOptionTreeDepth: dto.VoteOptionTreeDepth,
		VoteOptions:         dto.VoteOptions,
	}
}

// verifyKeyDTO is the JSONB payload of a coordinator verify-key column.
type verifyKeyDTO struct {
	AlphaG1    string   `json:"alpha_g1"`
	BetaG2     string   `json:"beta_g2"`
	GammaG2    string   `json:"gamma_g2"`
	DeltaG2    string   `json:"delta_g2"`
	GammaABCG1 []string `json:"gamma_abc_g1"`
}
