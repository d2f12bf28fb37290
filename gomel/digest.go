// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gomel

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"
)

// DigestAlgorithm selects the hash function used for crowns and unit
// hashes. The core never mixes algorithms within a single committee run.
type DigestAlgorithm int

const (
	// SHA256 is the default digest algorithm.
	SHA256 DigestAlgorithm = iota
	// SHA512 trades a larger digest for a wider security margin.
	SHA512
)

// DigestSize is the byte length of a digest produced by algo.
func (algo DigestAlgorithm) DigestSize() int {
	switch algo {
	case SHA512:
		return sha512.Size
	default:
		return sha256.Size
	}
}

func (algo DigestAlgorithm) new() hash.Hash {
	switch algo {
	case SHA512:
		return sha512.New()
	default:
		return sha256.New()
	}
}

// Digest is a fixed-size hash output. Its length is algorithm-dependent;
// callers compare digests with bytes.Equal, never with ==.
type Digest []byte

// sentinelDigest returns the all-zero digest used by EmptyCrown and by
// CrownFromParents for an absent (⊥) parent.
func sentinelDigest(algo DigestAlgorithm) Digest {
	return make(Digest, algo.DigestSize())
}

// sum hashes the concatenation of parts under algo.
func sum(algo DigestAlgorithm, parts ...[]byte) Digest {
	h := algo.new()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}
