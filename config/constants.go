// Package config holds the compile-time caps every poll configuration is
// validated against. Mirrors the pallet's bounded-vector/storage-item caps.
package config

const (
	// MaxVoteOptions bounds PollConfiguration.VoteOptions.
	MaxVoteOptions = 32

	// MaxTreeDepth bounds RegistrationDepth/InteractionDepth (the
	// registration and interaction accumulators' own full depth) as well as
	// ProcessSubtreeDepth/TallySubtreeDepth/VoteOptionTreeDepth (the
	// per-batch subtree depths).
	MaxTreeDepth = 20

	// MaxRegistrations is the system-wide ceiling on PollConfiguration.MaxRegistrations.
	MaxRegistrations = 1 << 20

	// MaxInteractions is the system-wide ceiling on PollConfiguration.MaxInteractions.
	MaxInteractions = 1 << 20

	// MaxCoordinatorPolls bounds how many polls a single coordinator may have
	// created (CoordinatorPollIds list length).
	MaxCoordinatorPolls = 4096

	// RegistrationArity and InteractionArity are the two accumulator arities
	// named throughout the spec: registrations are a binary tree, interactions
	// a quinary one.
	RegistrationArity = 2
	InteractionArity  = 5

	// InteractionDataWords is the number of opaque 32-byte ciphertext words
	// carried by a single interaction (PollInteractionData).
	InteractionDataWords = 10
)
