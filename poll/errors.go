package poll

import (
	"errors"
	"fmt"

	"github.com/infimum-network/infimum/pkg/merkle"
)

// Window/capacity and config error kinds (spec.md §7), scoped to operations
// this package itself performs (admission/crypto/state errors that need
// coordinator or storage context live in package engine).
var (
	ErrPollConfigInvalid               = errors.New("poll: configuration invalid")
	ErrPollRegistrationInProgress      = errors.New("poll: registration in progress")
	ErrPollRegistrationHasEnded        = errors.New("poll: registration has ended")
	ErrPollVotingInProgress            = errors.New("poll: voting in progress")
	ErrPollVotingHasEnded              = errors.New("poll: voting has ended")
	ErrParticipantRegistrationLimit    = errors.New("poll: participant registration limit reached")
	ErrParticipantInteractionLimit     = errors.New("poll: participant interaction limit reached")
	ErrPollDataEmpty                   = errors.New("poll: no data to merge")
)

// MergeError wraps an accumulator TreeError as PollMergeFailed{reason},
// carrying the stable u8 tag forward.
type MergeError struct{ Tag uint8 }

func (e *MergeError) Error() string { return fmt.Sprintf("poll: merge failed (tag %d)", e.Tag) }

// RegistrationError wraps an accumulator TreeError as PollRegistrationFailed{reason}.
type RegistrationError struct{ Tag uint8 }

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("poll: registration failed (tag %d)", e.Tag)
}

// InteractionError wraps an accumulator TreeError as PollInteractionFailed{reason}.
type InteractionError struct{ Tag uint8 }

func (e *InteractionError) Error() string {
	return fmt.Sprintf("poll: interaction failed (tag %d)", e.Tag)
}

func wrapMerge(err error) error {
	if err == nil {
		return nil
	}
	return &MergeError{Tag: merkle.ErrTag(err)}
}

func wrapRegistration(err error) error {
	if err == nil {
		return nil
	}
	return &RegistrationError{Tag: merkle.ErrTag(err)}
}

func wrapInteraction(err error) error {
	if err == nil {
		return nil
	}
	return &InteractionError{Tag: merkle.ErrTag(err)}
}
