// Package storage defines the host key-value store facade spec.md §9 calls
// for: "isolate map/storage reads behind a small trait so the accumulator
// and verifier can be unit-tested in-memory." Engine depends only on the
// Store interface; storage/memory and storage/postgres provide concrete
// backings.
package storage

import (
	"context"
	"errors"

	"github.com/infimum-network/infimum/poll"
)

// ErrNotFound is returned when a lookup key has no record.
var ErrNotFound = errors.New("storage: not found")

// Coordinator is the persisted record behind the Coordinators map (spec.md §6).
type Coordinator struct {
	Account       poll.Account
	PublicKey     poll.PublicKey
	ProcessVerify VerifyKeyRecord
	TallyVerify   VerifyKeyRecord
	LastPoll      *poll.PollID
}

// VerifyKeyRecord is the storage-layer encoding of a decoded VerifyKey: kept
// as opaque wire bytes so the store never depends on pkg/verifier's curve
// types, matching spec.md §9's "isolate... behind a small trait."
type VerifyKeyRecord struct {
	AlphaG1    [64]byte
	BetaG2     [128]byte
	GammaG2    [128]byte
	DeltaG2    [128]byte
	GammaABCG1 [][64]byte
}

// Store is the three maps spec.md §6 names: Polls, Coordinators,
// CoordinatorPollIds[], plus the monotonic poll-id allocator.
type Store interface {
	GetCoordinator(ctx context.Context, account poll.Account) (*Coordinator, error)
	PutCoordinator(ctx context.Context, c *Coordinator) error

	GetPoll(ctx context.Context, id poll.PollID) (*poll.Poll, error)
	PutPoll(ctx context.Context, p *poll.Poll) error

	NextPollID(ctx context.Context) (poll.PollID, error)

	AppendCoordinatorPoll(ctx context.Context, account poll.Account, id poll.PollID) error
	CoordinatorPolls(ctx context.Context, account poll.Account) ([]poll.PollID, error)
}
