// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gomel

import "bytes"

// Crown summarises a unit's parent set: one height per creator (-1 for an
// absent parent) plus a combined digest over the parents' hashes. A unit
// commits to its crown before its own hash is computed.
type Crown struct {
	Heights     []int
	ControlHash Digest
}

// Equal reports whether two crowns have identical heights and control hash.
func (c Crown) Equal(other Crown) bool {
	if len(c.Heights) != len(other.Heights) {
		return false
	}
	for i, h := range c.Heights {
		if other.Heights[i] != h {
			return false
		}
	}
	return bytes.Equal(c.ControlHash, other.ControlHash)
}

// EmptyCrown returns the crown of a dealing unit: every height is -1 and
// the control hash is computed over N sentinel digests.
func EmptyCrown(n int, algo DigestAlgorithm) Crown {
	heights := make([]int, n)
	parts := make([][]byte, n)
	sentinel := sentinelDigest(algo)
	for i := range heights {
		heights[i] = -1
		parts[i] = sentinel
	}
	return Crown{Heights: heights, ControlHash: sum(algo, parts...)}
}

// CrownFromParents builds the crown committed to by a unit whose resolved
// parents are parents (nil entries represent ⊥, i.e. no parent from that
// creator).
func CrownFromParents(parents []Unit, algo DigestAlgorithm) Crown {
	n := len(parents)
	heights := make([]int, n)
	parts := make([][]byte, n)
	sentinel := sentinelDigest(algo)
	for i, p := range parents {
		if p == nil {
			heights[i] = -1
			parts[i] = sentinel
			continue
		}
		heights[i] = p.Height()
		parts[i] = p.Hash()
	}
	return Crown{Heights: heights, ControlHash: sum(algo, parts...)}
}
