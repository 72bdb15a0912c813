// Package merkle implements the amortised incremental Merkle accumulator
// (C2): an append-only tree of fixed arity and full depth that yields a
// fixed-size, zero-padded root while doing O(log N) work per insert via a
// compaction stack. It accumulates leaves one at a time; the package holds
// only this accumulator and its zero-subtree tables, with no tree type that
// builds a complete tree from a known leaf set.
package merkle

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/infimum-network/infimum/pkg/poseidon"
)

// TreeError is the accumulator's tagged error type. Tag mirrors the
// pallet's From<MerkleTreeError> for u8 mapping exactly, so callers can
// surface the stable numeric code in PollMergeFailed/PollRegistrationFailed/
// PollInteractionFailed without re-deriving it.
type TreeError struct {
	reason string
	tag    uint8
}

func (e *TreeError) Error() string { return e.reason }

// Tag returns the stable u8 error code.
func (e *TreeError) Tag() uint8 { return e.tag }

var (
	// ErrTreeAlreadyFull is returned by Insert once Root is set.
	ErrTreeAlreadyFull = &TreeError{reason: "merkle: tree already full", tag: 1}
	// ErrTreeAlreadyMerged is returned by Merge once Root is set.
	ErrTreeAlreadyMerged = &TreeError{reason: "merkle: tree already merged", tag: 2}
	// ErrHashFailed wraps a failure from the underlying Poseidon hasher.
	ErrHashFailed = &TreeError{reason: "merkle: hash failed", tag: 3}
	// ErrMergeFailed is a generic merge-phase failure.
	ErrMergeFailed = &TreeError{reason: "merkle: merge failed", tag: 4}
)

// entry is one (depth, digest) pair on the compaction stack.
type entry struct {
	depth  int
	digest fr.Element
}

// Accumulator is the amortised incremental Merkle tree described by C2:
// fixed arity (2 for registrations, 5 for interactions) and full depth,
// insert-only until merged, after which Root is fixed and further inserts
// are rejected.
type Accumulator struct {
	Arity     int
	FullDepth int
	Depth     int
	Count     uint32
	hashes    []entry
	Root      *fr.Element
}

// NewAccumulator constructs an empty accumulator. If seedDepth/seedDigest is
// supplied (ok=true), it is pushed as the initial stack entry — this is how
// the registration tree's reserved sentinel leaf (0, Z_arity2[0]) is seeded
// at poll creation (see spec.md §9's sentinel-leaf resolution).
func NewAccumulator(arity, fullDepth int, seedDepth int, seedDigest fr.Element, seeded bool) *Accumulator {
	a := &Accumulator{Arity: arity, FullDepth: fullDepth}
	if seeded {
		a.hashes = []entry{{depth: seedDepth, digest: seedDigest}}
	}
	return a
}

// Len reports the current compaction-stack length, bounded by
// arity * full_depth between insertions per the amortisation invariant.
func (a *Accumulator) Len() int { return len(a.hashes) }

// Insert appends a new right-most leaf digest, compacting complete
// same-depth runs of `arity` entries bottom-up as far as they go.
func (a *Accumulator) Insert(leaf fr.Element) error {
	if a.Root != nil {
		return ErrTreeAlreadyFull
	}

	a.Count++
	a.hashes = append(a.hashes, entry{depth: 0, digest: leaf})

	for {
		size := len(a.hashes)
		if size < a.Arity {
			break
		}

		subtree := a.hashes[size-a.Arity:]
		depth := subtree[0].depth

		allSameDepth := true
		for _, e := range subtree {
			if e.depth != depth {
				allSameDepth = false
				break
			}
		}
		if !allSameDepth {
			break
		}

		children := make([]fr.Element, a.Arity)
		for i, e := range subtree {
			children[i] = e.digest
		}
		digest, err := poseidon.HashN(children...)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrHashFailed, err)
		}

		a.hashes = a.hashes[:size-a.Arity]
		a.hashes = append(a.hashes, entry{depth: depth + 1, digest: digest})

		if trueDepth := depth + 1; a.Depth < trueDepth {
			a.Depth = trueDepth
		}
	}

	if len(a.hashes) == 1 && a.hashes[0].depth == a.FullDepth {
		root := a.hashes[0].digest
		a.Root = &root
		a.hashes = nil
	}

	return nil
}

// Merge finalises the tree by right-padding every still-incomplete run of
// same-depth entries with the appropriate zero-subtree digest and hashing
// upward. When toDepth is false, merging stops as soon as a single entry
// remains, at whatever depth it has reached (used for the registration
// tree, by poll.MergeRegistrations); when true, merging continues until the
// single remaining entry sits at FullDepth (used for the interaction tree,
// by poll.MergeInteractions). In both modes the single remaining entry
// becomes Root.
func (a *Accumulator) Merge(toDepth bool) error {
	if a.Root != nil {
		return ErrTreeAlreadyMerged
	}

	zeroes, err := ZeroHashes(a.Arity, a.FullDepth)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHashFailed, err)
	}

	for {
		if len(a.hashes) == 0 {
			break
		}

		last := a.hashes[len(a.hashes)-1]
		depth := last.depth

		if len(a.hashes) == 1 && (!toDepth || depth == a.FullDepth) {
			break
		}

		// Collect the trailing run of same-depth entries (in original order).
		start := len(a.hashes) - 1
		for start > 0 && a.hashes[start-1].depth == depth {
			start--
		}
		run := a.hashes[start:]

		size := len(run)
		children := make([]fr.Element, 0, a.Arity)
		for _, e := range run {
			children = append(children, e.digest)
		}
		if depth < 0 || depth >= len(zeroes) {
			return ErrMergeFailed
		}
		zero := zeroes[depth]
		for len(children) < a.Arity {
			children = append(children, zero)
		}

		digest, err := poseidon.HashN(children...)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrHashFailed, err)
		}

		a.hashes = a.hashes[:len(a.hashes)-size]
		a.hashes = append(a.hashes, entry{depth: depth + 1, digest: digest})
	}

	if len(a.hashes) == 1 {
		root := a.hashes[0].digest
		a.Root = &root
		a.hashes = nil
	}

	return nil
}

// IsFull reports whether Root has been assigned, either by Insert reaching
// FullDepth directly or by a completed Merge.
func (a *Accumulator) IsFull() bool { return a.Root != nil }

// Entry is the serializable form of a compaction-stack slot, exported so
// storage backends can persist and restore an Accumulator without reaching
// into its unexported fields.
type Entry struct {
	Depth  int
	Digest fr.Element
}

// Entries returns a copy of the current compaction stack.
func (a *Accumulator) Entries() []Entry {
	out := make([]Entry, len(a.hashes))
	for i, e := range a.hashes {
		out[i] = Entry{Depth: e.depth, Digest: e.digest}
	}
	return out
}

// Restore reconstructs an Accumulator from persisted fields, for storage
// backends reading a poll back from durable storage.
func Restore(arity, fullDepth, depth int, count uint32, root *fr.Element, entries []Entry) *Accumulator {
	a := &Accumulator{Arity: arity, FullDepth: fullDepth, Depth: depth, Count: count, Root: root}
	if len(entries) > 0 {
		a.hashes = make([]entry, len(entries))
		for i, e := range entries {
			a.hashes[i] = entry{depth: e.Depth, digest: e.Digest}
		}
	}
	return a
}

// ErrTag extracts the stable u8 tag from any error this package returns,
// or 0 if err does not originate here.
func ErrTag(err error) uint8 {
	var te *TreeError
	if errors.As(err, &te) {
		return te.Tag()
	}
	return 0
}
