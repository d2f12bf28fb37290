// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config collects the fixed, per-run parameters every component of
// the ordering core reads at construction time. Plain struct plus named
// preset constructors (Mainnet/Testnet/Local-style), adapted from sampling
// thresholds to the committee-size and protocol-timing knobs this core
// actually needs.
package config

import "github.com/luxfi/ethereal/gomel"

// unboundedLevel is the LastLevel used when a deployment doesn't want the
// Controller to rotate epochs on a level count at all.
const unboundedLevel = 1<<31 - 1

// Config is the fixed configuration for one committee member's instance of
// the ordering core for the lifetime of an epoch sequence.
type Config struct {
	// NProc is the committee size (N).
	NProc uint16
	// Pid is this process's index into the committee, in [0, NProc).
	Pid uint16

	// CanSkipLevel enables the Creator's fast branch (§11, decided Open
	// Question): when true, a process picks all available parents even
	// before gathering the previous level's, so long as the resulting
	// level stays monotonic.
	CanSkipLevel bool

	// LastLevel bounds how many levels a single epoch runs before the
	// Controller rotates to the next one.
	LastLevel int
	// NumberOfEpochs is how many epochs a Controller runs before stopping
	// permanently. Zero means run forever.
	NumberOfEpochs int

	// DigestAlgorithm selects the hash used for crowns and unit hashes.
	DigestAlgorithm gomel.DigestAlgorithm

	// VoteDelay is how many levels above a timing candidate's level the
	// Orderer waits before running the popularity test against it.
	VoteDelay int
	// PopularityCap bounds how many levels the Orderer waits for a
	// popularity decision before falling back to the deterministic
	// default-vote resolution.
	PopularityCap int
}

// Default returns the configuration this module uses whenever a concrete
// deployment doesn't override a value: SHA-256 digests, the fast parent
// selection branch enabled, and a small fixed voteDelay/popularityCap pair.
func Default(n uint16) Config {
	return Config{
		NProc:           n,
		CanSkipLevel:    true,
		LastLevel:       unboundedLevel,
		NumberOfEpochs:  1,
		DigestAlgorithm: gomel.SHA256,
		VoteDelay:       3,
		PopularityCap:   10,
	}
}

// FourProcessDemo is the 4-process committee used by the seed acceptance
// scenarios: small enough to reason about by hand (quorum 3, tolerating a
// single Byzantine member), large enough to exercise forks.
func FourProcessDemo(pid uint16) Config {
	c := Default(4)
	c.Pid = pid
	c.LastLevel = 8
	c.NumberOfEpochs = 3
	return c
}

// FiftyProcessDemo is the larger committee used to exercise throughput and
// the popularity-cap fallback path, which rarely triggers at N=4.
func FiftyProcessDemo(pid uint16) Config {
	c := Default(50)
	c.Pid = pid
	c.LastLevel = 20
	c.NumberOfEpochs = 2
	return c
}
