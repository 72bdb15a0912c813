// Package poseidon implements the Circom-compatible Poseidon sponge over
// the BN254 scalar field: domain-tagged, width-parameterised for 2..13,
// alpha=5 S-box, alternating full/partial rounds. This is the hash family
// C1 names; it is distinct from (and not interchangeable with) gnark-crypto's
// poseidon2 Merkle-Damgard hasher used elsewhere in the wider ecosystem —
// the accumulator's root must match a fixed-width, domain-tagged sponge, not
// a streaming Merkle-Damgard construction.
package poseidon

import (
	"errors"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Sentinel errors, mirroring the pallet's PoseidonError variants that this
// package's surface actually exercises.
var (
	ErrInvalidWidth         = errors.New("poseidon: invalid width")
	ErrInvalidInputCount    = errors.New("poseidon: wrong number of inputs")
	ErrInputLargerThanField = errors.New("poseidon: input larger than field modulus")
)

// Hasher is a stateful Poseidon sponge instance for one fixed width.
type Hasher struct {
	params    *Parameters
	domainTag fr.Element
	state     []fr.Element
}

// New returns a sponge for the given width (state size, including the
// capacity element) and an explicit domain tag. width must be in [2, 13].
func New(width int, domainTag *fr.Element) (*Hasher, error) {
	params, err := ParametersFor(width)
	if err != nil {
		return nil, err
	}
	h := &Hasher{params: params, state: make([]fr.Element, width)}
	if domainTag != nil {
		h.domainTag = *domainTag
	}
	return h, nil
}

// NewCircom returns the Circom-style constructor: width = nrInputs+1 and a
// zero domain tag.
func NewCircom(nrInputs int) (*Hasher, error) {
	return New(nrInputs+1, nil)
}

// NewCircomTagged is NewCircom with an explicit non-zero domain tag (used
// to separate leaf kinds that otherwise share an input width).
func NewCircomTagged(nrInputs int, tag uint64) (*Hasher, error) {
	var t fr.Element
	t.SetUint64(tag)
	return New(nrInputs+1, &t)
}

// Hash consumes exactly width-1 field elements and returns the squeezed
// digest. The sponge is single-shot: state is cleared before returning so a
// Hasher can be reused across calls without carrying residue.
func (h *Hasher) Hash(inputs []fr.Element) (fr.Element, error) {
	width := h.params.Width
	if len(inputs) != width-1 {
		return fr.Element{}, ErrInvalidInputCount
	}

	h.state[0] = h.domainTag
	copy(h.state[1:], inputs)

	half := h.params.FullRounds / 2
	round := 0

	for r := 0; r < half; r++ {
		h.applyArk(round)
		h.applySBoxFull()
		h.applyMDS()
		round++
	}
	for r := 0; r < h.params.PartialRounds; r++ {
		h.applyArk(round)
		h.applySBoxPartial()
		h.applyMDS()
		round++
	}
	for r := 0; r < half; r++ {
		h.applyArk(round)
		h.applySBoxFull()
		h.applyMDS()
		round++
	}

	out := h.state[0]
	for i := range h.state {
		h.state[i] = fr.Element{}
	}
	return out, nil
}

func (h *Hasher) applyArk(round int) {
	row := h.params.Ark[round]
	for i := range h.state {
		h.state[i].Add(&h.state[i], &row[i])
	}
}

func (h *Hasher) applySBoxFull() {
	for i := range h.state {
		sbox(&h.state[i])
	}
}

func (h *Hasher) applySBoxPartial() {
	sbox(&h.state[0])
}

// sbox computes x^5 in place.
func sbox(x *fr.Element) {
	var x2, x4 fr.Element
	x2.Square(x)
	x4.Square(&x2)
	x.Mul(x, &x4)
}

func (h *Hasher) applyMDS() {
	width := h.params.Width
	next := make([]fr.Element, width)
	for i := 0; i < width; i++ {
		var acc fr.Element
		row := h.params.Mds[i]
		for j := 0; j < width; j++ {
			var term fr.Element
			term.Mul(&row[j], &h.state[j])
			acc.Add(&acc, &term)
		}
		next[i] = acc
	}
	h.state = next
}

// HashN is a convenience one-shot helper: build a fresh width-(n+1)
// Circom-tagged hasher and hash exactly n inputs. Intended for call sites
// that hash a fixed, small arity once (leaf/internal-node construction)
// rather than holding a long-lived Hasher.
func HashN(inputs ...fr.Element) (fr.Element, error) {
	h, err := NewCircom(len(inputs))
	if err != nil {
		return fr.Element{}, err
	}
	return h.Hash(inputs)
}

// HashBytesBE hashes a slice of big-endian byte strings, each strictly less
// than the field modulus, mirroring the pallet's PoseidonBytesHasher
// trait's hash_bytes_be. Returns ErrInputLargerThanField if any chunk's
// integer value is >= r.
func HashBytesBE(chunks [][]byte) (fr.Element, error) {
	inputs := make([]fr.Element, len(chunks))
	for i, c := range chunks {
		if len(c) > fr.Bytes {
			return fr.Element{}, ErrInputLargerThanField
		}
		var padded [fr.Bytes]byte
		copy(padded[fr.Bytes-len(c):], c)

		e, err := strictElement(padded[:])
		if err != nil {
			return fr.Element{}, err
		}
		inputs[i] = e
	}
	return HashN(inputs...)
}

func strictElement(b []byte) (fr.Element, error) {
	var e fr.Element
	e.SetBytes(b)

	// Round-trip check: if the raw bytes encoded a value >= r, SetBytes
	// silently reduced it. Detect that by re-encoding and comparing.
	var reencoded [fr.Bytes]byte
	reencoded = e.Bytes()
	for i := range reencoded {
		if reencoded[i] != b[i] {
			return fr.Element{}, ErrInputLargerThanField
		}
	}
	return e, nil
}
