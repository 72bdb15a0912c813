package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/infimum-network/infimum/engine"
	"github.com/infimum-network/infimum/pkg/verifier"
	"github.com/infimum-network/infimum/poll"
	"github.com/infimum-network/infimum/storage/memory"
)

func devnetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devnet",
		Short: "Simulate a full poll lifecycle against an in-memory store",
		Long: `devnet registers a coordinator, creates a poll, registers a
participant, records an interaction, merges both accumulators, and commits a
single proof batch, logging each step — useful for exercising the engine
without a chain or database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("infimumd: build logger: %w", err)
			}
			defer logger.Sync()

			return runDevnet(cmd.Context(), logger)
		},
	}
}

func runDevnet(ctx context.Context, logger *zap.Logger) error {
	e := engine.New(memory.New(), logger)
	e.Subscribe(func(ev engine.Event) {
		logger.Info("event", zap.String("name", ev.EventName()))
	})

	coordinator := poll.Account("devnet-coordinator")
	var coordPK poll.PublicKey
	processVK := fixtureVerifyKey(9)
	tallyVK := fixtureVerifyKey(8)

	if err := e.RegisterAsCoordinator(ctx, coordinator, coordPK, processVK, tallyVK); err != nil {
		return fmt.Errorf("devnet: register coordinator: %w", err)
	}

	cfg := poll.PollConfiguration{
		SignupPeriod:        10,
		VotingPeriod:        10,
		MaxRegistrations:    16,
		MaxInteractions:     16,
		RegistrationDepth:   4,
		InteractionDepth:    2,
		ProcessSubtreeDepth: 2,
		TallySubtreeDepth:   2,
		VoteOptionTreeDepth: 2,
		VoteOptions:         []uint64{0, 1, 2},
	}
	id, err := e.CreatePoll(ctx, coordinator, cfg, 0)
	if err != nil {
		return fmt.Errorf("devnet: create poll: %w", err)
	}

	var voterPK poll.PublicKey
	voterPK.X[31] = 1
	if _, err := e.RegisterAsParticipant(ctx, id, voterPK, 0); err != nil {
		return fmt.Errorf("devnet: register participant: %w", err)
	}

	var data poll.InteractionData
	if _, err := e.InteractWithPoll(ctx, id, voterPK, data, 10); err != nil {
		return fmt.Errorf("devnet: interact: %w", err)
	}

	if err := e.MergePollState(ctx, id, 10); err != nil {
		return fmt.Errorf("devnet: merge registrations: %w", err)
	}
	if err := e.MergePollState(ctx, id, 21); err != nil {
		return fmt.Errorf("devnet: merge interactions: %w", err)
	}

	var commitment fr.Element
	commitment.SetUint64(1)
	batch := engine.Batch{NewCommitment: commitment, Proof: fixtureProof()}
	if err := e.CommitOutcome(ctx, id, nil, []engine.Batch{batch}); err != nil {
		return fmt.Errorf("devnet: commit outcome: %w", err)
	}

	logger.Info("devnet run complete", zap.Uint32("poll_id", uint32(id)))
	return nil
}

// fixtureVerifyKey and fixtureProof build a devnet-only Groth16 key/proof
// pair whose gamma_abc entries are all the G1 identity, so the pairing
// equation holds regardless of public inputs. This is strictly a local
// simulation fixture, never a substitute for a real trusted-setup key.
func fixtureVerifyKey(publicInputCount int) verifier.RawVerifyKey {
	_, _, g1Gen, g2Gen := bn254.Generators()
	var seven big.Int
	seven.SetInt64(7)
	var alpha bn254.G1Affine
	alpha.ScalarMultiplication(&g1Gen, &seven)

	var zero bn254.G1Affine
	abc := make([][64]byte, publicInputCount+1)
	for i := range abc {
		abc[i] = toG1Bytes(zero)
	}

	return verifier.RawVerifyKey{
		AlphaG1:    toG1Bytes(alpha),
		BetaG2:     toG2Bytes(g2Gen),
		GammaG2:    toG2Bytes(g2Gen),
		DeltaG2:    toG2Bytes(g2Gen),
		GammaABCG1: abc,
	}
}

func fixtureProof() verifier.RawProof {
	_, _, g1Gen, g2Gen := bn254.Generators()
	var seven big.Int
	seven.SetInt64(7)
	var alpha bn254.G1Affine
	alpha.ScalarMultiplication(&g1Gen, &seven)
	var zero bn254.G1Affine

	return verifier.RawProof{
		PiA: toG1Bytes(alpha),
		PiB: toG2Bytes(g2Gen),
		PiC: toG1Bytes(zero),
	}
}

func toG1Bytes(p bn254.G1Affine) [64]byte {
	var out [64]byte
	xb := p.X.Bytes()
	yb := p.Y.Bytes()
	copy(out[0:32], xb[:])
	copy(out[32:64], yb[:])
	return out
}

func toG2Bytes(p bn254.G2Affine) [128]byte {
	var out [128]byte
	a0 := p.X.A0.Bytes()
	a1 := p.X.A1.Bytes()
	b0 := p.Y.A0.Bytes()
	b1 := p.Y.A1.Bytes()
	copy(out[0:32], a0[:])
	copy(out[32:64], a1[:])
	copy(out[64:96], b0[:])
	copy(out[96:128], b1[:])
	return out
}
