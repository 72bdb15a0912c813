package verifier

import (
	"errors"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// toG1Bytes/toG2Bytes mirror the wire encoding DecodeVerifyKey/DecodeProof
// expect: big-endian X then Y (and, for G2, A0 then A1 per coordinate).
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

// TestVerifyAcceptsIdentityRelation sets A = alpha, B = beta, C = the group
// identity, and both gamma_abc entries to the identity, so vk_x is the
// identity regardless of the supplied input: the equation
// e(A,B) = e(alpha,beta)*e(vk_x,gamma)*e(C,delta) reduces to
// e(alpha,beta) = e(alpha,beta)*1*1, which holds for any alpha, beta, gamma,
// delta.
func TestVerifyAcceptsIdentityRelation(t *testing.T) {
	_, _, g1Gen, g2Gen := bn254.Generators()

	mk := func(scalar int64) bn254.G1Affine {
		var s big.Int
		s.SetInt64(scalar)
		var p bn254.G1Affine
		p.ScalarMultiplication(&g1Gen, &s)
		return p
	}

	alpha := mk(7)
	beta := g2Gen
	var zero bn254.G1Affine // group identity

	vk := &VerifyKey{
		AlphaG1:    alpha,
		BetaG2:     beta,
		GammaG2:    g2Gen,
		DeltaG2:    g2Gen,
		GammaABCG1: []bn254.G1Affine{zero, zero},
	}
	proof := &Proof{A: alpha, B: beta, C: zero}

	var input fr.Element
	input.SetUint64(1)

	ok, err := Verify(vk, proof, []fr.Element{input})
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected the identity relation to verify")
	}
}

func TestVerifyRejectsInconsistentEquation(t *testing.T) {
	_, _, g1Gen, g2Gen := bn254.Generators()

	mk := func(scalar int64) bn254.G1Affine {
		var s big.Int
		s.SetInt64(scalar)
		var p bn254.G1Affine
		p.ScalarMultiplication(&g1Gen, &s)
		return p
	}

	vk := &VerifyKey{
		AlphaG1:    mk(2),
		BetaG2:     g2Gen,
		GammaG2:    g2Gen,
		DeltaG2:    g2Gen,
		GammaABCG1: []bn254.G1Affine{mk(1), mk(1)},
	}
	proof := &Proof{
		A: mk(3),
		B: g2Gen,
		C: mk(5),
	}

	var input fr.Element
	input.SetUint64(1)

	ok, err := Verify(vk, proof, []fr.Element{input})
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatal("expected an arbitrary, non-ceremony key/proof pair to fail verification")
	}
}

func TestVerifyRejectsWrongPublicInputCount(t *testing.T) {
	_, _, g1Gen, g2Gen := bn254.Generators()
	vk := &VerifyKey{
		AlphaG1:    g1Gen,
		BetaG2:     g2Gen,
		GammaG2:    g2Gen,
		DeltaG2:    g2Gen,
		GammaABCG1: []bn254.G1Affine{g1Gen, g1Gen},
	}
	proof := &Proof{A: g1Gen, B: g2Gen, C: g1Gen}

	_, err := Verify(vk, proof, nil)
	if !errors.Is(err, ErrMalformedProof) {
		t.Fatalf("expected ErrMalformedProof, got %v", err)
	}
}

func TestDecodeVerifyKeyRoundTrip(t *testing.T) {
	_, _, g1Gen, g2Gen := bn254.Generators()

	raw := RawVerifyKey{
		AlphaG1:    toG1Bytes(g1Gen),
		BetaG2:     toG2Bytes(g2Gen),
		GammaG2:    toG2Bytes(g2Gen),
		DeltaG2:    toG2Bytes(g2Gen),
		GammaABCG1: [][64]byte{toG1Bytes(g1Gen), toG1Bytes(g1Gen)},
	}

	vk, err := DecodeVerifyKey(raw)
	if err != nil {
		t.Fatalf("DecodeVerifyKey: %v", err)
	}
	if !vk.AlphaG1.Equal(&g1Gen) {
		t.Fatal("alpha_g1 did not round-trip")
	}
	if !vk.BetaG2.Equal(&g2Gen) {
		t.Fatal("beta_g2 did not round-trip")
	}
	if len(vk.GammaABCG1) != 2 {
		t.Fatalf("expected 2 gamma_abc_g1 entries, got %d", len(vk.GammaABCG1))
	}
}

func TestDecodeVerifyKeyRejectsEmptyGammaABC(t *testing.T) {
	_, _, g1Gen, g2Gen := bn254.Generators()
	raw := RawVerifyKey{
		AlphaG1: toG1Bytes(g1Gen),
		BetaG2:  toG2Bytes(g2Gen),
		GammaG2: toG2Bytes(g2Gen),
		DeltaG2: toG2Bytes(g2Gen),
	}
	_, err := DecodeVerifyKey(raw)
	if !errors.Is(err, ErrMalformedKeys) {
		t.Fatalf("expected ErrMalformedKeys, got %v", err)
	}
}

func TestDecodeG1RejectsOffCurvePoint(t *testing.T) {
	var raw [64]byte
	raw[31] = 1 // x=1
	raw[63] = 1 // y=1, (1,1) is not on the bn254 G1 curve
	_, err := decodeG1(raw[:])
	if !errors.Is(err, ErrMalformedKeys) {
		t.Fatalf("expected ErrMalformedKeys for an off-curve point, got %v", err)
	}
}

func TestDecodeProofRoundTrip(t *testing.T) {
	_, _, g1Gen, g2Gen := bn254.Generators()
	raw := RawProof{
		PiA: toG1Bytes(g1Gen),
		PiB: toG2Bytes(g2Gen),
		PiC: toG1Bytes(g1Gen),
	}
	proof, err := DecodeProof(raw)
	if err != nil {
		t.Fatalf("DecodeProof: %v", err)
	}
	if !proof.A.Equal(&g1Gen) {
		t.Fatal("pi_a did not round-trip")
	}
	if !proof.B.Equal(&g2Gen) {
		t.Fatal("pi_b did not round-trip")
	}
}

func TestDecodeG1AcceptsIdentity(t *testing.T) {
	var raw [64]byte // all-zero: the point at infinity
	p, err := decodeG1(raw[:])
	if err != nil {
		t.Fatalf("decodeG1: %v", err)
	}
	if !p.X.IsZero() || !p.Y.IsZero() {
		t.Fatal("expected the decoded point to remain (0,0)")
	}
}

func TestDecodeProofRejectsMalformedBytes(t *testing.T) {
	var raw RawProof
	raw.PiA[31] = 1
	raw.PiA[63] = 1
	_, err := DecodeProof(raw)
	if !errors.Is(err, ErrMalformedProof) {
		t.Fatalf("expected ErrMalformedProof, got %v", err)
	}
}
