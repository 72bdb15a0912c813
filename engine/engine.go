// Package engine implements C4 (coordinator registry) and orchestrates the
// eight extrinsics of spec.md §6 over a storage.Store, wiring poll's state
// machine and pkg/verifier's Groth16 checks together with structured
// logging and event emission.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/infimum-network/infimum/config"
	"github.com/infimum-network/infimum/pkg/verifier"
	"github.com/infimum-network/infimum/poll"
	"github.com/infimum-network/infimum/storage"
)

// Engine is the sole entry point extrinsics flow through. It holds no poll
// state itself, keeping all durable state behind storage.Store per spec.md
// §9's "isolate map/storage reads behind a small trait" guidance.
type Engine struct {
	store  storage.Store
	logger *zap.Logger
	bus    eventBus
}

// New constructs an Engine over the given store. A nil logger installs a
// no-op zap.Logger, matching the teacher's tolerance for nil-safe defaults
// in cmd/ entry points.
func New(store storage.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, logger: logger}
}

// Subscribe registers a callback invoked synchronously for every emitted
// event, in emission order. Used by hostadapter to drive its WebSocket hub.
func (e *Engine) Subscribe(fn func(Event)) { e.bus.Subscribe(fn) }

func verifyKeyRecord(raw verifier.RawVerifyKey) storage.VerifyKeyRecord {
	return storage.VerifyKeyRecord{
		AlphaG1:    raw.AlphaG1,
		BetaG2:     raw.BetaG2,
		GammaG2:    raw.GammaG2,
		DeltaG2:    raw.DeltaG2,
		GammaABCG1: raw.GammaABCG1,
	}
}

func rawVerifyKey(rec storage.VerifyKeyRecord) verifier.RawVerifyKey {
	return verifier.RawVerifyKey{
		AlphaG1:    rec.AlphaG1,
		BetaG2:     rec.BetaG2,
		GammaG2:    rec.GammaG2,
		DeltaG2:    rec.DeltaG2,
		GammaABCG1: rec.GammaABCG1,
	}
}

// validateVerifyKeys checks both verify-keys deserialize to valid BN254
// affine points, per spec.md §4.4.
func validateVerifyKeys(process, tally verifier.RawVerifyKey) error {
	if _, err := verifier.DecodeVerifyKey(process); err != nil {
		return newErr(KindMalformedKeys)
	}
	if _, err := verifier.DecodeVerifyKey(tally); err != nil {
		return newErr(KindMalformedKeys)
	}
	return nil
}

// RegisterAsCoordinator is extrinsic #0.
func (e *Engine) RegisterAsCoordinator(ctx context.Context, account poll.Account, pk poll.PublicKey, processVK, tallyVK verifier.RawVerifyKey) error {
	if _, err := e.store.GetCoordinator(ctx, account); err == nil {
		return newErr(KindCoordinatorAlreadyRegistered)
	}
	if err := validateVerifyKeys(processVK, tallyVK); err != nil {
		return err
	}

	c := &storage.Coordinator{
		Account:       account,
		PublicKey:     pk,
		ProcessVerify: verifyKeyRecord(processVK),
		TallyVerify:   verifyKeyRecord(tallyVK),
	}
	if err := e.store.PutCoordinator(ctx, c); err != nil {
		return fmt.Errorf("engine: register coordinator: %w", err)
	}

	e.logger.Info("coordinator registered", zap.String("account", string(account)))
	e.bus.Emit(CoordinatorRegistered{Account: account})
	return nil
}

// pollActive reports whether a coordinator's last poll is not yet over and fulfilled.
func pollActive(p *poll.Poll, now poll.BlockNumber) bool {
	return !(p.IsOver(now) && p.IsFulfilled())
}

// RotateKeys is extrinsic #1. Idempotent: calling it twice with identical
// arguments leaves state identical after the first (spec.md §8's
// idempotence law), since PutCoordinator always performs the same
// deterministic overwrite.
func (e *Engine) RotateKeys(ctx context.Context, account poll.Account, pk poll.PublicKey, processVK, tallyVK verifier.RawVerifyKey, now poll.BlockNumber) error {
	c, err := e.store.GetCoordinator(ctx, account)
	if err != nil {
		return newErr(KindCoordinatorNotRegistered)
	}
	if c.LastPoll != nil {
		p, err := e.store.GetPoll(ctx, *c.LastPoll)
		if err == nil && pollActive(p, now) {
			return newErr(KindPollCurrentlyActive)
		}
	}
	if err := validateVerifyKeys(processVK, tallyVK); err != nil {
		return err
	}

	c.PublicKey = pk
	c.ProcessVerify = verifyKeyRecord(processVK)
	c.TallyVerify = verifyKeyRecord(tallyVK)
	if err := e.store.PutCoordinator(ctx, c); err != nil {
		return fmt.Errorf("engine: rotate keys: %w", err)
	}

	e.logger.Info("coordinator keys rotated", zap.String("account", string(account)))
	e.bus.Emit(CoordinatorKeysChanged{Account: account})
	return nil
}

// CreatePoll is extrinsic #2.
func (e *Engine) CreatePoll(ctx context.Context, account poll.Account, cfg poll.PollConfiguration, now poll.BlockNumber) (poll.PollID, error) {
	c, err := e.store.GetCoordinator(ctx, account)
	if err != nil {
		return 0, newErr(KindCoordinatorNotRegistered)
	}
	if err := cfg.Validate(); err != nil {
		return 0, newErr(KindPollConfigInvalid)
	}

	existing, err := e.store.CoordinatorPolls(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("engine: create poll: %w", err)
	}
	if len(existing) >= config.MaxCoordinatorPolls {
		return 0, newErr(KindCoordinatorPollLimitReached)
	}

	if c.LastPoll != nil {
		p, err := e.store.GetPoll(ctx, *c.LastPoll)
		if err == nil && pollActive(p, now) {
			return 0, newErr(KindPollCurrentlyActive)
		}
	}

	id, err := e.store.NextPollID(ctx)
	if err != nil {
		return 0, fmt.Errorf("engine: create poll: %w", err)
	}

	state, err := poll.NewState(cfg.RegistrationDepth, cfg.InteractionDepth)
	if err != nil {
		return 0, fmt.Errorf("engine: create poll: %w", err)
	}

	p := &poll.Poll{ID: id, Coordinator: account, CreatedAt: now, Config: cfg, State: state}
	if err := e.store.PutPoll(ctx, p); err != nil {
		return 0, fmt.Errorf("engine: create poll: %w", err)
	}
	if err := e.store.AppendCoordinatorPoll(ctx, account, id); err != nil {
		return 0, fmt.Errorf("engine: create poll: %w", err)
	}
	c.LastPoll = &id
	if err := e.store.PutCoordinator(ctx, c); err != nil {
		return 0, fmt.Errorf("engine: create poll: %w", err)
	}

	e.logger.Info("poll created", zap.String("account", string(account)), zap.Uint32("poll_id", uint32(id)))
	e.bus.Emit(PollCreated{PollID: id, Coordinator: account})
	return id, nil
}

// RegisterAsParticipant is extrinsic #6.
func (e *Engine) RegisterAsParticipant(ctx context.Context, id poll.PollID, pk poll.PublicKey, now poll.BlockNumber) (uint32, error) {
	p, err := e.store.GetPoll(ctx, id)
	if err != nil {
		return 0, newErr(KindPollDoesNotExist)
	}
	if !p.IsRegistrationPeriod(now) {
		return 0, newErr(KindPollRegistrationHasEnded)
	}
	if p.RegistrationLimitReached() {
		return 0, newErr(KindParticipantRegistrationLimit)
	}

	count, err := p.RegisterParticipant(pk, now)
	if err != nil {
		return 0, treeError(err, KindPollRegistrationFailed)
	}
	if err := e.store.PutPoll(ctx, p); err != nil {
		return 0, fmt.Errorf("engine: register participant: %w", err)
	}

	e.logger.Info("participant registered", zap.Uint32("poll_id", uint32(id)), zap.Uint32("count", count))
	e.bus.Emit(ParticipantRegistered{PollID: id, Count: count, PublicKey: pk, Block: now})
	return count, nil
}

// InteractWithPoll is extrinsic #7.
func (e *Engine) InteractWithPoll(ctx context.Context, id poll.PollID, sharedPK poll.PublicKey, data poll.InteractionData, now poll.BlockNumber) (uint32, error) {
	p, err := e.store.GetPoll(ctx, id)
	if err != nil {
		return 0, newErr(KindPollDoesNotExist)
	}
	if p.IsRegistrationPeriod(now) {
		return 0, newErr(KindPollRegistrationInProgress)
	}
	if p.IsOver(now) {
		return 0, newErr(KindPollVotingHasEnded)
	}
	if p.InteractionLimitReached() {
		return 0, newErr(KindParticipantInteractionLimit)
	}

	count, err := p.ConsumeInteraction(sharedPK, data)
	if err != nil {
		return 0, treeError(err, KindPollInteractionFailed)
	}
	if err := e.store.PutPoll(ctx, p); err != nil {
		return 0, fmt.Errorf("engine: interact with poll: %w", err)
	}

	e.logger.Info("interaction recorded", zap.Uint32("poll_id", uint32(id)), zap.Uint32("count", count))
	e.bus.Emit(PollInteraction{PollID: id, Count: count, PublicKey: sharedPK})
	return count, nil
}

// MergePollState is extrinsic #3: the two-phase merge, carrying the
// original pallet's exact guard ordering (SPEC_FULL.md §5). While
// registrations are not yet merged, a call merges them once the
// registration period is over and returns PollRegistrationInProgress
// before that; once they are merged, a call merges interactions once
// voting is over and returns PollVotingInProgress before that; once both
// are merged, a call returns PollDataEmpty.
func (e *Engine) MergePollState(ctx context.Context, id poll.PollID, now poll.BlockNumber) error {
	p, err := e.store.GetPoll(ctx, id)
	if err != nil {
		return newErr(KindPollDoesNotExist)
	}

	switch {
	case p.State.Registrations.Root == nil:
		if p.IsRegistrationPeriod(now) {
			return newErr(KindPollRegistrationInProgress)
		}
		if err := p.MergeRegistrations(); err != nil {
			return treeError(err, KindPollMergeFailed)
		}
		if err := e.store.PutPoll(ctx, p); err != nil {
			return fmt.Errorf("engine: merge poll state: %w", err)
		}
		e.logger.Info("registrations merged", zap.Uint32("poll_id", uint32(id)))
		e.bus.Emit(PollStateMerged{PollID: id, Phase: "registrations"})
		return nil

	case p.State.Interactions.Root == nil:
		if !p.IsOver(now) {
			return newErr(KindPollVotingInProgress)
		}
		if err := p.MergeInteractions(); err != nil {
			return treeError(err, KindPollMergeFailed)
		}
		if err := e.store.PutPoll(ctx, p); err != nil {
			return fmt.Errorf("engine: merge poll state: %w", err)
		}
		e.logger.Info("interactions merged", zap.Uint32("poll_id", uint32(id)))
		e.bus.Emit(PollStateMerged{PollID: id, Phase: "interactions"})
		return nil

	default:
		return newErr(KindPollDataEmpty)
	}
}

// NullifyPoll is extrinsic #5.
func (e *Engine) NullifyPoll(ctx context.Context, id poll.PollID, now poll.BlockNumber) error {
	p, err := e.store.GetPoll(ctx, id)
	if err != nil {
		return newErr(KindPollDoesNotExist)
	}
	if !p.CanNullify(now) {
		return newErr(KindPollDataEmpty)
	}

	p.Nullify()
	if err := e.store.PutPoll(ctx, p); err != nil {
		return fmt.Errorf("engine: nullify poll: %w", err)
	}

	e.logger.Info("poll nullified", zap.Uint32("poll_id", uint32(id)))
	e.bus.Emit(PollNullified{PollID: id})
	return nil
}

// PollsByCoordinator implements the supplemented coordinator-poll-history
// read access SPEC_FULL.md §5 adds beyond spec.md's bare storage map.
func (e *Engine) PollsByCoordinator(ctx context.Context, account poll.Account) ([]poll.PollID, error) {
	return e.store.CoordinatorPolls(ctx, account)
}

// treeError unwraps a poll-level merge/registration/interaction error down
// to the stable u8 tag the accumulator first assigned it, per spec.md §7's
// Tree-kind reason codes.
func treeError(err error, kind Kind) error {
	var tag uint8
	switch e := err.(type) {
	case *poll.MergeError:
		tag = e.Tag
	case *poll.RegistrationError:
		tag = e.Tag
	case *poll.InteractionError:
		tag = e.Tag
	}
	return newTreeErr(kind, tag)
}
