// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rmc implements the deterministic, adversary-simulatable random
// source used by the ordering core: for the finite-epoch configuration
// there is no genuine common coin, so all randomness is derived from the
// public concatenation of unit hashes at a voting level. Every participant
// computes the same bits, which is what makes the permutation-based timing
// tie-break (see linear.Orderer) safe against a coordinated adversary: an
// adversary can predict the bits, but cannot bias them without controlling
// a quorum of the committee.
package rmc

import "crypto/sha256"

// Source supplies the two pieces of randomness the core needs: the bytes a
// unit embeds as its RandomSourceData at creation, and the 32-byte output
// used to break timing ties and to seed a pre-block's RandomBytes field.
type Source interface {
	// DataToInclude returns what a unit created at (level, creator) must
	// embed in its RandomSourceData.
	DataToInclude(level int, creator uint16) []byte

	// RandomBytes derives 32 deterministic bytes from the hashes of the
	// units that identify a level (typically the voting-level units seen
	// for a given timing candidate).
	RandomBytes(levelHashes [][]byte) []byte
}

// deterministic is the finite-epoch Source described in spec §4.3: no
// rsData is required from units (there is nothing for a correct process to
// contribute beyond the unit's own hash, which is already public), and
// RandomBytes is the hash of the sorted concatenation of levelHashes.
type deterministic struct{}

// NewDeterministic returns the Source used throughout this module: public,
// common-coin-free randomness suitable for the finite number of epochs a
// committee runs.
func NewDeterministic() Source {
	return deterministic{}
}

func (deterministic) DataToInclude(int, uint16) []byte { return nil }

func (deterministic) RandomBytes(levelHashes [][]byte) []byte {
	ordered := sortedCopy(levelHashes)
	h := sha256.New()
	for _, hash := range ordered {
		h.Write(hash)
	}
	sum := h.Sum(nil)
	return sum
}

func sortedCopy(hashes [][]byte) [][]byte {
	out := make([][]byte, len(hashes))
	copy(out, hashes)
	// insertion sort: levels hold at most a few thousand units, and this
	// runs once per level, so O(n^2) in the rare large case is fine and
	// keeps this package free of a sort.Slice closure allocation on the
	// hot path.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && lessBytes(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func lessBytes(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// Rank computes the keyed ranking value used to break ties between
// candidates under a given random seed: smaller Rank wins. item is
// typically a unit hash or a big-endian encoded creator id.
func Rank(seed []byte, item []byte) []byte {
	h := sha256.New()
	h.Write(seed)
	h.Write(item)
	return h.Sum(nil)
}
