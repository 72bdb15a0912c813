// Package verifier implements C6's cryptographic core: deserializing
// Groth16/BN254 verify-keys and proofs from the spec's raw wire encoding
// (uncompressed affine byte strings) and checking the Groth16 pairing
// equation directly against gnark-crypto's bn254 primitives. Verification
// is one multi-exponentiation in G1 over the public inputs followed by a
// single four-pair multi-pairing check — that equation is implemented here
// rather than delegated to
// gnark's own groth16.Verify, whose VerifyingKey/Proof types are built
// exclusively through a trusted-setup ceremony or gnark's own opaque
// serialized blob, neither of which matches the spec's plain
// component-wise wire format.
package verifier

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// ErrMalformedKeys and ErrMalformedProof correspond to spec.md §7's crypto
// error kinds.
var (
	ErrMalformedKeys  = errors.New("verifier: malformed keys")
	ErrMalformedProof = errors.New("verifier: malformed proof")
)

// RawVerifyKey is the spec's wire-level VerifyKey: uncompressed affine BN254
// points, gamma_abc_g1 a variable-length list bound to 1+|public inputs|.
type RawVerifyKey struct {
	AlphaG1    [64]byte
	BetaG2     [128]byte
	GammaG2    [128]byte
	DeltaG2    [128]byte
	GammaABCG1 [][64]byte
}

// RawProof is the spec's wire-level ProofData: three affine byte-vectors.
type RawProof struct {
	PiA [64]byte
	PiB [128]byte
	PiC [64]byte
}

// VerifyKey is a RawVerifyKey decoded to curve points, ready for repeated
// verification calls.
type VerifyKey struct {
	AlphaG1    bn254.G1Affine
	BetaG2     bn254.G2Affine
	GammaG2    bn254.G2Affine
	DeltaG2    bn254.G2Affine
	GammaABCG1 []bn254.G1Affine
}

// Proof is a RawProof decoded to curve points.
type Proof struct {
	A bn254.G1Affine
	B bn254.G2Affine
	C bn254.G1Affine
}

// strictBaseFieldElement parses a 32-byte big-endian string into a base-field
// (fp) element, rejecting values >= the field modulus, mirroring
// pkg/field.StrictFromBytesBE's approach for the scalar field.
func strictBaseFieldElement(b []byte) (fp.Element, error) {
	asInt := new(big.Int).SetBytes(b)
	if asInt.Cmp(fp.Modulus()) >= 0 {
		return fp.Element{}, fmt.Errorf("%w: coordinate exceeds field modulus", ErrMalformedKeys)
	}
	var e fp.Element
	e.SetBytes(b)
	return e, nil
}

func decodeG1(b []byte) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if len(b) != 64 {
		return p, fmt.Errorf("%w: g1 point must be 64 bytes, got %d", ErrMalformedKeys, len(b))
	}
	x, err := strictBaseFieldElement(b[:32])
	if err != nil {
		return p, err
	}
	y, err := strictBaseFieldElement(b[32:])
	if err != nil {
		return p, err
	}
	p.X, p.Y = x, y
	if p.X.IsZero() && p.Y.IsZero() {
		return p, nil // (0,0) is the conventional affine encoding of the point at infinity
	}
	if !p.IsOnCurve() {
		return p, fmt.Errorf("%w: g1 point not on curve", ErrMalformedKeys)
	}
	return p, nil
}

func decodeG2(b []byte) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	if len(b) != 128 {
		return p, fmt.Errorf("%w: g2 point must be 128 bytes, got %d", ErrMalformedKeys, len(b))
	}
	xa0, err := strictBaseFieldElement(b[0:32])
	if err != nil {
		return p, err
	}
	xa1, err := strictBaseFieldElement(b[32:64])
	if err != nil {
		return p, err
	}
	ya0, err := strictBaseFieldElement(b[64:96])
	if err != nil {
		return p, err
	}
	ya1, err := strictBaseFieldElement(b[96:128])
	if err != nil {
		return p, err
	}
	p.X.A0, p.X.A1 = xa0, xa1
	p.Y.A0, p.Y.A1 = ya0, ya1
	if p.X.IsZero() && p.Y.IsZero() {
		return p, nil // (0,0) is the conventional affine encoding of the point at infinity
	}
	if !p.IsOnCurve() {
		return p, fmt.Errorf("%w: g2 point not on curve", ErrMalformedKeys)
	}
	return p, nil
}

// DecodeVerifyKey parses a RawVerifyKey into curve points, failing with
// ErrMalformedKeys if any component does not deserialize to a valid BN254
// affine point (spec.md §4.4's register_as_coordinator guard).
func DecodeVerifyKey(raw RawVerifyKey) (*VerifyKey, error) {
	alpha, err := decodeG1(raw.AlphaG1[:])
	if err != nil {
		return nil, err
	}
	beta, err := decodeG2(raw.BetaG2[:])
	if err != nil {
		return nil, err
	}
	gamma, err := decodeG2(raw.GammaG2[:])
	if err != nil {
		return nil, err
	}
	delta, err := decodeG2(raw.DeltaG2[:])
	if err != nil {
		return nil, err
	}
	if len(raw.GammaABCG1) == 0 {
		return nil, fmt.Errorf("%w: gamma_abc_g1 must not be empty", ErrMalformedKeys)
	}
	abc := make([]bn254.G1Affine, len(raw.GammaABCG1))
	for i, g := range raw.GammaABCG1 {
		p, err := decodeG1(g[:])
		if err != nil {
			return nil, err
		}
		abc[i] = p
	}

	return &VerifyKey{AlphaG1: alpha, BetaG2: beta, GammaG2: gamma, DeltaG2: delta, GammaABCG1: abc}, nil
}

// DecodeProof parses a RawProof into curve points, failing with
// ErrMalformedProof on any deserialization error (spec.md §4.6 step 3).
func DecodeProof(raw RawProof) (*Proof, error) {
	a, err := decodeG1(raw.PiA[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProof, err)
	}
	b, err := decodeG2(raw.PiB[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProof, err)
	}
	c, err := decodeG1(raw.PiC[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProof, err)
	}
	return &Proof{A: a, B: b, C: c}, nil
}

// Verify checks the Groth16 pairing equation
//
//	e(A, B) == e(alpha, beta) * e(vk_x, gamma) * e(C, delta)
//
// where vk_x = gamma_abc[0] + sum_i(publicInputs[i] * gamma_abc[i+1]),
// computed as one G1 multi-exponentiation. Rather than compute each side's
// final exponentiation separately, A is negated and all four pairs are
// folded into a single multi-pairing checked against the GT identity, the
// standard optimization (one final exponentiation instead of two).
// publicInputs must have exactly len(vk.GammaABCG1)-1 elements.
func Verify(vk *VerifyKey, proof *Proof, publicInputs []fr.Element) (bool, error) {
	if len(publicInputs) != len(vk.GammaABCG1)-1 {
		return false, fmt.Errorf("%w: expected %d public inputs, got %d", ErrMalformedProof, len(vk.GammaABCG1)-1, len(publicInputs))
	}

	vkx, err := new(bn254.G1Affine).MultiExp(vk.GammaABCG1[1:], publicInputs, ecc.MultiExpConfig{})
	if err != nil {
		return false, fmt.Errorf("%w: multiexp: %v", ErrMalformedProof, err)
	}
	vkx.Add(vkx, &vk.GammaABCG1[0])

	var negA bn254.G1Affine
	negA.Neg(&proof.A)

	product, err := bn254.Pair(
		[]bn254.G1Affine{negA, vk.AlphaG1, *vkx, proof.C},
		[]bn254.G2Affine{proof.B, vk.BetaG2, vk.GammaG2, vk.DeltaG2},
	)
	if err != nil {
		return false, fmt.Errorf("%w: pairing: %v", ErrMalformedProof, err)
	}

	var identity bn254.GT
	identity.SetOne()
	return product.Equal(&identity), nil
}
