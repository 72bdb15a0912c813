package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/infimum-network/infimum/pkg/verifier"
)

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Offline Groth16 verify-key tooling",
	}
	cmd.AddCommand(keysVerifyCmd())
	return cmd
}

func keysVerifyCmd() *cobra.Command {
	var alpha, beta, gamma, delta string
	var gammaABC []string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that a verify key decodes to valid BN254 affine points",
		Long: `verify parses a hex-encoded VerifyKey the same way register_as_coordinator
does, without submitting it anywhere — useful for catching a malformed
trusted-setup export before it reaches a running coordinator.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseRawVerifyKey(alpha, beta, gamma, delta, gammaABC)
			if err != nil {
				return err
			}
			if _, err := verifier.DecodeVerifyKey(raw); err != nil {
				return fmt.Errorf("infimumd: verify key is malformed: %w", err)
			}
			fmt.Fprintln(os.Stdout, "ok: verify key decodes to valid BN254 affine points")
			return nil
		},
	}

	cmd.Flags().StringVar(&alpha, "alpha-g1", "", "hex-encoded alpha_g1 (64 bytes)")
	cmd.Flags().StringVar(&beta, "beta-g2", "", "hex-encoded beta_g2 (128 bytes)")
	cmd.Flags().StringVar(&gamma, "gamma-g2", "", "hex-encoded gamma_g2 (128 bytes)")
	cmd.Flags().StringVar(&delta, "delta-g2", "", "hex-encoded delta_g2 (128 bytes)")
	cmd.Flags().StringSliceVar(&gammaABC, "gamma-abc-g1", nil, "hex-encoded gamma_abc_g1 entries (64 bytes each)")
	cmd.MarkFlagRequired("alpha-g1")
	cmd.MarkFlagRequired("beta-g2")
	cmd.MarkFlagRequired("gamma-g2")
	cmd.MarkFlagRequired("delta-g2")
	cmd.MarkFlagRequired("gamma-abc-g1")

	return cmd
}

func parseRawVerifyKey(alpha, beta, gamma, delta string, gammaABC []string) (verifier.RawVerifyKey, error) {
	var raw verifier.RawVerifyKey
	if err := decodeHexInto(alpha, raw.AlphaG1[:]); err != nil {
		return raw, err
	}
	if err := decodeHexInto(beta, raw.BetaG2[:]); err != nil {
		return raw, err
	}
	if err := decodeHexInto(gamma, raw.GammaG2[:]); err != nil {
		return raw, err
	}
	if err := decodeHexInto(delta, raw.DeltaG2[:]); err != nil {
		return raw, err
	}
	raw.GammaABCG1 = make([][64]byte, len(gammaABC))
	for i, g := range gammaABC {
		if err := decodeHexInto(g, raw.GammaABCG1[i][:]); err != nil {
			return raw, err
		}
	}
	return raw, nil
}

func decodeHexInto(s string, dst []byte) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("infimumd: decode hex: %w", err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("infimumd: decoded length %d, want %d", len(b), len(dst))
	}
	copy(dst, b)
	return nil
}
