// Package field converts between raw bytes and BN254 scalar-field elements
// using the wire encoding fixed by the spec: 32-byte big-endian, reduced
// modulo r. It underlies both the Poseidon sponge's input/output codec and
// the proof batch verifier's public-input construction.
package field

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Size is the wire width of a field element: 32 bytes, big-endian.
const Size = fr.Bytes

// FromBytesBE reduces a big-endian byte string modulo r and returns the
// resulting element. Inputs longer than Size are still accepted; fr.Element
// reduces them mod r (matching Fr::from_be_bytes_mod_order).
func FromBytesBE(b []byte) fr.Element {
	var e fr.Element
	e.SetBytes(b)
	return e
}

// ToBytesBE encodes e as a 32-byte big-endian string.
func ToBytesBE(e *fr.Element) [Size]byte {
	return e.Bytes()
}

// FromBigInt reduces a *big.Int modulo r.
func FromBigInt(v *big.Int) fr.Element {
	var e fr.Element
	e.SetBigInt(v)
	return e
}

// ToBigInt returns e as a non-negative *big.Int in [0, r).
func ToBigInt(e *fr.Element) *big.Int {
	v := new(big.Int)
	e.BigInt(v)
	return v
}

// StrictFromBytesBE parses a big-endian byte string into a field element,
// rejecting any input whose integer value is >= r (the pallet's
// InputLargerThanModulus check on Poseidon byte-wise hashing).
func StrictFromBytesBE(b []byte) (fr.Element, error) {
	if len(b) > Size {
		return fr.Element{}, fmt.Errorf("field: input is %d bytes, exceeds %d-byte modulus width", len(b), Size)
	}
	var padded [Size]byte
	copy(padded[Size-len(b):], b)

	asInt := new(big.Int).SetBytes(padded[:])
	if asInt.Cmp(fr.Modulus()) >= 0 {
		return fr.Element{}, fmt.Errorf("field: value larger than modulus")
	}

	var e fr.Element
	e.SetBytes(padded[:])
	return e, nil
}

// Chunk splits data into numChunks elements of elementSize bytes each,
// big-endian, zero-padding any data shorter than numChunks*elementSize and
// truncating any data longer than that. Reuses a single scratch buffer
// across iterations, mirroring the teacher's buffer-reuse codec style.
func Chunk(data []byte, numChunks, elementSize int) []fr.Element {
	elements := make([]fr.Element, numChunks)
	buf := make([]byte, elementSize)

	for i := 0; i < numChunks; i++ {
		for j := range buf {
			buf[j] = 0
		}

		start := i * elementSize
		if start >= len(data) {
			continue // elements[i] stays the zero element
		}

		end := start + elementSize
		if end > len(data) {
			end = len(data)
		}
		copy(buf, data[start:end])

		elements[i].SetBytes(buf)
	}

	return elements
}

// Unchunk is the inverse of Chunk: it serializes elements back to a flat
// byte string of elementSize bytes each, optionally truncated to originalSize.
func Unchunk(elements []fr.Element, elementSize, originalSize int) []byte {
	result := make([]byte, 0, len(elements)*elementSize)
	tmp := make([]byte, elementSize)

	for i := range elements {
		for j := range tmp {
			tmp[j] = 0
		}
		full := elements[i].Bytes()
		src := full[:]
		if len(src) > elementSize {
			src = src[len(src)-elementSize:]
		}
		copy(tmp[elementSize-len(src):], src)
		result = append(result, tmp...)
	}

	if originalSize > 0 && originalSize < len(result) {
		result = result[:originalSize]
	}
	return result
}
