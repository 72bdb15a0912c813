package poll

// Phase names the coarse lifecycle state spec.md §4.3 describes:
// Fresh -> RegistrationOpen -> RegistrationClosed -> (merge regs) ->
// VotingOpen -> VotingClosed -> (merge ints) -> Proving -> Fulfilled.
type Phase string

const (
	PhaseRegistrationOpen   Phase = "registration_open"
	PhaseRegistrationClosed Phase = "registration_closed"
	PhaseVotingOpen         Phase = "voting_open"
	PhaseVotingClosed       Phase = "voting_closed"
	PhaseProving            Phase = "proving"
	PhaseFulfilled          Phase = "fulfilled"
)

// IsRegistrationPeriod reports whether now falls within [created_at, created_at+signup_period).
func (p *Poll) IsRegistrationPeriod(now BlockNumber) bool {
	return now >= p.CreatedAt && now < p.CreatedAt+p.Config.SignupPeriod
}

// votingPeriodStart is the first block of the voting window.
func (p *Poll) votingPeriodStart() BlockNumber {
	return p.CreatedAt + p.Config.SignupPeriod
}

// GetVotingPeriodEnd is the last block (inclusive) of the voting window.
func (p *Poll) GetVotingPeriodEnd() BlockNumber {
	return p.votingPeriodStart() + p.Config.VotingPeriod
}

// IsVotingPeriod reports whether now falls within [voting_start, voting_end].
func (p *Poll) IsVotingPeriod(now BlockNumber) bool {
	start, end := p.votingPeriodStart(), p.GetVotingPeriodEnd()
	return now >= start && now <= end
}

// IsOver reports whether now is strictly past the voting window's end.
func (p *Poll) IsOver(now BlockNumber) bool {
	return now > p.GetVotingPeriodEnd()
}

// IsMerged reports whether both accumulators have a fixed root.
func (p *Poll) IsMerged() bool {
	return p.State.Registrations.IsFull() && p.State.Interactions.IsFull()
}

// IsFulfilled reports whether an outcome has been recorded or the poll was nullified.
func (p *Poll) IsFulfilled() bool {
	return p.State.Outcome != nil || p.IsNullified()
}

// IsNullified reports the tombstone flag.
func (p *Poll) IsNullified() bool { return p.State.Tombstone }

// RegistrationLimitReached reports whether the registration cap has been hit.
func (p *Poll) RegistrationLimitReached() bool {
	return p.State.Registrations.Count >= p.Config.MaxRegistrations
}

// InteractionLimitReached reports whether the interaction cap has been hit.
func (p *Poll) InteractionLimitReached() bool {
	return p.State.Interactions.Count >= p.Config.MaxInteractions
}

// CurrentPhase derives a human-readable lifecycle phase for observability;
// no other package in this repository calls it. It is a pure function
// of on-chain state and is never itself persisted, matching spec.md §9's
// "computed, not stored" guidance for tagged variants.
func (p *Poll) CurrentPhase(now BlockNumber) Phase {
	switch {
	case p.IsFulfilled():
		return PhaseFulfilled
	case p.IsOver(now) && p.IsMerged():
		return PhaseProving
	case p.IsOver(now):
		return PhaseVotingClosed
	case p.IsVotingPeriod(now):
		return PhaseVotingOpen
	case p.IsRegistrationPeriod(now):
		return PhaseRegistrationOpen
	default:
		return PhaseRegistrationClosed
	}
}

// CanNullify implements spec.md §9's exact disjunction: legal only when
// registration has closed with zero registrations, or the poll is over
// with zero interactions. Note the sentinel seed leaf in the registration
// tree is not a real registration, so Count (not the stack length) is the
// correct zero-registrations check.
func (p *Poll) CanNullify(now BlockNumber) bool {
	registrationClosedEmpty := !p.IsRegistrationPeriod(now) && p.State.Registrations.Count == 0
	overEmpty := p.IsOver(now) && p.State.Interactions.Count == 0
	return registrationClosedEmpty || overEmpty
}
