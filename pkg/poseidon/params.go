package poseidon

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// MaxWidth is the largest sponge width the Circom-compatible construction
// supports (12 inputs + 1 capacity element); widths outside [2, MaxWidth]
// fail with ErrInvalidWidth.
const MaxWidth = 13

// Alpha is the S-box exponent, fixed at 5 (the smallest power coprime with
// r-1 for BN254's scalar field, as used throughout the Poseidon family).
const Alpha = 5

// FullRounds is the number of full S-box rounds, split evenly before and
// after the partial-round phase.
const FullRounds = 8

// partialRounds is the published per-width partial round count for
// widths 2..13 (alpha=5, BN254 scalar field, 128-bit security target).
var partialRounds = map[int]int{
	2: 56, 3: 57, 4: 56, 5: 60, 6: 60, 7: 63,
	8: 64, 9: 63, 10: 60, 11: 66, 12: 60, 13: 65,
}

// Parameters bundles the round constants and MDS matrix for one sponge
// width, mirroring the pallet's PoseidonParameters<F>.
type Parameters struct {
	Width         int
	FullRounds    int
	PartialRounds int
	Alpha         uint64
	Ark           [][]fr.Element // [round][width]
	Mds           [][]fr.Element // [width][width]
}

var (
	paramsOnce  [MaxWidth + 1]sync.Once
	paramsCache [MaxWidth + 1]*Parameters
)

// ParametersFor returns (generating once, lazily, and caching) the
// round-constant/MDS tables for the given sponge width. width must be in
// [2, MaxWidth].
func ParametersFor(width int) (*Parameters, error) {
	if width < 2 || width > MaxWidth {
		return nil, fmt.Errorf("%w: width %d", ErrInvalidWidth, width)
	}
	pr, ok := partialRounds[width]
	if !ok {
		return nil, fmt.Errorf("%w: width %d", ErrInvalidWidth, width)
	}

	paramsOnce[width].Do(func() {
		paramsCache[width] = generateParameters(width, FullRounds, pr)
	})
	return paramsCache[width], nil
}

// generateParameters builds the ark and mds tables for one width using the
// Grain-LFSR constant generator and a Cauchy MDS matrix, the same method
// the Poseidon reference implementation (and circomlib's parameter
// generator script) use to derive these tables from (field, width,
// full_rounds, partial_rounds) rather than by hard-coding the published
// constants verbatim.
func generateParameters(width, fullRounds, partialRounds int) *Parameters {
	totalRounds := fullRounds + partialRounds
	g := newGrainLFSR(fieldBits, width, fullRounds, partialRounds)

	ark := make([][]fr.Element, totalRounds)
	for r := 0; r < totalRounds; r++ {
		row := make([]fr.Element, width)
		for c := 0; c < width; c++ {
			row[c] = g.nextFieldElement()
		}
		ark[r] = row
	}

	return &Parameters{
		Width:         width,
		FullRounds:    fullRounds,
		PartialRounds: partialRounds,
		Alpha:         Alpha,
		Ark:           ark,
		Mds:           cauchyMDS(width),
	}
}

// fieldBits is the bit length of the BN254 scalar field modulus r.
const fieldBits = fr.Bits

// cauchyMDS builds a width x width Cauchy matrix M[i][j] = 1/(x_i - y_j)
// over Fr, with x_i = i and y_j = width+j. Since all x_i and y_j are
// pairwise distinct and x_i != y_j for any i, j, every square submatrix of
// a Cauchy matrix is invertible, giving the MDS property required by the
// sponge's mixing layer.
func cauchyMDS(width int) [][]fr.Element {
	m := make([][]fr.Element, width)
	for i := 0; i < width; i++ {
		row := make([]fr.Element, width)
		var xi fr.Element
		xi.SetInt64(int64(i))
		for j := 0; j < width; j++ {
			var yj, diff fr.Element
			yj.SetInt64(int64(width + j))
			diff.Sub(&xi, &yj)
			row[j].Inverse(&diff)
		}
		m[i] = row
	}
	return m
}

// grainLFSR implements the 80-bit Grain-style linear feedback shift
// register the Poseidon paper (Appendix B) specifies for deriving round
// constants from (field type, s-box type, field bits, width, full rounds,
// partial rounds).
type grainLFSR struct {
	state   [80]bool
	modulus *big.Int
}

func newGrainLFSR(fieldBits, width, fullRounds, partialRounds int) *grainLFSR {
	g := &grainLFSR{modulus: fr.Modulus()}

	bits := make([]bool, 0, 80)
	push := func(v, n int) {
		for i := n - 1; i >= 0; i-- {
			bits = append(bits, (v>>uint(i))&1 == 1)
		}
	}
	push(1, 2)            // field type: prime field
	push(0, 4)             // s-box type: x^alpha
	push(fieldBits, 12)
	push(width, 12)
	push(fullRounds, 10)
	push(partialRounds, 10)
	for len(bits) < 80 {
		bits = append(bits, true)
	}
	copy(g.state[:], bits[:80])

	// Warm up: discard the first 160 generated bits, as specified.
	for i := 0; i < 160; i++ {
		g.nextBit()
	}
	return g
}

func (g *grainLFSR) nextBit() bool {
	b := g.state[62] != g.state[51]
	b = b != g.state[38]
	b = b != g.state[23]
	b = b != g.state[13]
	b = b != g.state[0]

	copy(g.state[:79], g.state[1:])
	g.state[79] = b
	return b
}

// nextFieldElement draws bit-groups of fieldBits length until one encodes
// an integer strictly less than the field modulus, per the paper's
// rejection-sampling rule, then returns it as an Fr element.
func (g *grainLFSR) nextFieldElement() fr.Element {
	for {
		v := new(big.Int)
		for i := 0; i < fieldBits; i++ {
			v.Lsh(v, 1)
			if g.nextBit() {
				v.SetBit(v, 0, 1)
			}
		}
		if v.Cmp(g.modulus) < 0 {
			var e fr.Element
			e.SetBigInt(v)
			return e
		}
	}
}
