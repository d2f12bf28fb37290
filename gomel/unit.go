// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gomel

import "bytes"

// Unit is a PreUnit situated in a DAG: its parents are resolved, and its
// level, floor and predecessor are derived from them. Units are immutable
// once constructed.
type Unit interface {
	PreUnit

	// Parents returns a slice of length N; Parents()[c] is the unit
	// created by c that this unit points to, or nil if this unit does not
	// reference a parent from c.
	Parents() []Unit

	// Predecessor is Parents()[Creator()], this unit's self-parent. Nil
	// only for a dealing unit.
	Predecessor() Unit

	// Level is the unit's level, computed per the quorum rule in ComputeLevel.
	Level() int

	// Floor returns, for every creator, the maximal units by that creator
	// reachable from this unit via parent edges. Floor()[Creator()] is
	// always exactly {this unit}.
	Floor() [][]Unit

	// Dealing reports whether this is a height-0 unit with no parents.
	Dealing() bool
}

type unit struct {
	PreUnit
	parents []Unit
	level   int
	floor   [][]Unit
}

// NewFreeUnit constructs a fully materialised Unit from already-resolved
// parents: it builds the crown, computes the hash and the floor, and takes
// the level as given by the caller.
// It does not enforce parent consistency (Invariant 2) — that is the
// Creator's job on construction (see creating.makeConsistent); neither gomel
// nor the dag checks it for a foreign unit (the dag's crown-match search
// only checks that the crown matches the resolved parents).
func NewFreeUnit(creator, epoch uint16, parents []Unit, level int, data, rsData []byte, algo DigestAlgorithm) Unit {
	crown := CrownFromParents(parents, algo)
	height := 0
	if pred := parents[creator]; pred != nil {
		height = pred.Height() + 1
	}
	pu := NewPreUnit(creator, epoch, height, crown, data, rsData, algo)
	u := &unit{PreUnit: pu, parents: parents, level: level}
	u.floor = computeFloor(creator, parents)
	u.floor[creator] = []Unit{u}
	return u
}

// Situate wraps an already-hashed PreUnit (typically received from a peer)
// into a Unit, given its resolved parents and computed level. Unlike
// NewFreeUnit it trusts pu's existing hash rather than recomputing it; the
// dag is responsible for having already checked that pu's crown matches
// parents before calling Situate.
func Situate(pu PreUnit, parents []Unit, level int) Unit {
	u := &unit{PreUnit: pu, parents: parents, level: level}
	u.floor = computeFloor(pu.Creator(), parents)
	u.floor[pu.Creator()] = []Unit{u}
	return u
}

func (u *unit) Parents() []Unit { return u.parents }

func (u *unit) Predecessor() Unit {
	return u.parents[u.Creator()]
}

func (u *unit) Level() int { return u.level }

func (u *unit) Floor() [][]Unit { return u.floor }

func (u *unit) Dealing() bool {
	for _, p := range u.parents {
		if p != nil {
			return false
		}
	}
	return true
}

// ComputeLevel implements the quorum rule from spec §3: a unit's level is 0
// for a dealing unit; otherwise the maximum level among its parents,
// incremented by one when at least quorum parents sit at that maximum
// level.
func ComputeLevel(parents []Unit, quorum int) int {
	maxLevel := -1
	for _, p := range parents {
		if p != nil && p.Level() > maxLevel {
			maxLevel = p.Level()
		}
	}
	if maxLevel < 0 {
		return 0
	}
	onMax := 0
	for _, p := range parents {
		if p != nil && p.Level() == maxLevel {
			onMax++
		}
	}
	if onMax >= quorum {
		return maxLevel + 1
	}
	return maxLevel
}

// computeFloor merges the floors of parents into this unit's floor, keeping
// only maximal elements per creator so that forks surface as an antichain
// rather than being silently collapsed.
func computeFloor(creator uint16, parents []Unit) [][]Unit {
	n := len(parents)
	floor := make([][]Unit, n)
	merged := make([][]Unit, n)
	for _, p := range parents {
		if p == nil {
			continue
		}
		pf := p.Floor()
		for c := 0; c < n; c++ {
			merged[c] = append(merged[c], pf[c]...)
		}
	}
	for c := 0; c < n; c++ {
		if uint16(c) == creator {
			continue
		}
		floor[c] = reduceToMaximal(merged[c])
	}
	// floor[creator] is filled in by the caller once the wrapping unit
	// exists, since a unit is always its own sole maximal ancestor at its
	// own creator slot.
	return floor
}

// reduceToMaximal drops any unit in us that is a (same-creator) ancestor of
// another unit in us, returning the surviving antichain.
func reduceToMaximal(us []Unit) []Unit {
	if len(us) <= 1 {
		return dedupeByHash(us)
	}
	us = dedupeByHash(us)
	keep := make([]Unit, 0, len(us))
	for i, u := range us {
		dominated := false
		for j, v := range us {
			if i == j {
				continue
			}
			if v.Height() > u.Height() && below(u, v) {
				dominated = true
				break
			}
		}
		if !dominated {
			keep = append(keep, u)
		}
	}
	return keep
}

func dedupeByHash(us []Unit) []Unit {
	seen := make(map[string]bool, len(us))
	out := make([]Unit, 0, len(us))
	for _, u := range us {
		k := string(u.Hash())
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, u)
	}
	return out
}

// below reports whether u is a same-creator ancestor of v, by walking v's
// predecessor chain down to u's height.
func below(u, v Unit) bool {
	if u.Creator() != v.Creator() || u.Height() > v.Height() {
		return false
	}
	cur := v
	for cur != nil && cur.Height() > u.Height() {
		cur = cur.Predecessor()
	}
	return cur != nil && bytes.Equal(cur.Hash(), u.Hash())
}
