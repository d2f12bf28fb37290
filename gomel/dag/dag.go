// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dag is the append-only structural store of units for one epoch.
// It resolves parents by crown, computes level and floor, and notifies
// registered observers synchronously after every successful insert so that
// derived state (the Creator's candidates, the Orderer's timing search) is
// always consistent with what the dag holds.
//
// Grounded on a Store[V]/View-style generic DAG helper pattern and BFS
// reachability idioms, adapted to the concrete gomel.Unit/gomel.Crown model
// instead of a generic vertex ID.
package dag

import (
	"errors"
	"sync"

	"github.com/luxfi/ethereal/gomel"
	"github.com/luxfi/log"
)

// AddStatus classifies the outcome of Dag.Add.
type AddStatus int

const (
	// Added means the unit is now in the dag (this may be a fork: Added
	// is also returned for a second unit at a coordinate already taken).
	Added AddStatus = iota
	// Duplicate means a unit with the exact same hash was already stored.
	Duplicate
	// MissingParents means at least one referenced parent is unknown; the
	// caller (Controller) is responsible for buffering and retrying.
	MissingParents
	// Invalid means the PreUnit fails a structural check that no retry
	// can fix (bad height, inconsistent crown, not enough parents).
	Invalid
)

func (s AddStatus) String() string {
	switch s {
	case Added:
		return "added"
	case Duplicate:
		return "duplicate"
	case MissingParents:
		return "missing-parents"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ErrBadCrownLength is returned when a PreUnit's crown does not have one
// entry per committee member.
var ErrBadCrownLength = errors.New("dag: crown length does not match committee size")

// Observer is notified, synchronously and under the dag's lock, after a
// unit is added. Observers must not call back into the dag or block on
// outbound I/O — they should hand work off to a bounded queue instead.
type Observer func(gomel.Unit)

// Dag is the structural store of units for a single epoch.
type Dag struct {
	mu sync.Mutex

	n, f int
	algo gomel.DigestAlgorithm
	log  log.Logger

	byHash    map[string]gomel.Unit
	byCoord   map[coord][]gomel.Unit // (creator, height) -> units (forks coexist)
	maxHeight []int                  // per creator, highest height stored (-1 if none)
	forking   map[uint16]bool

	maxLvl int

	observers []Observer
}

type coord struct {
	creator uint16
	height  int
}

// New creates an empty dag for a committee of n processes tolerating f
// Byzantine members, hashing with algo. A nil logger disables logging.
func New(n, f int, algo gomel.DigestAlgorithm, logger log.Logger) *Dag {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Dag{
		n:         n,
		f:         f,
		algo:      algo,
		log:       logger,
		byHash:    make(map[string]gomel.Unit),
		byCoord:   make(map[coord][]gomel.Unit),
		maxHeight: newHeights(n),
		forking:   make(map[uint16]bool),
		maxLvl:    -1,
	}
}

func newHeights(n int) []int {
	h := make([]int, n)
	for i := range h {
		h[i] = -1
	}
	return h
}

// Quorum is 2f+1 of N.
func (d *Dag) Quorum() int { return 2*d.f + 1 }

// IsQuorum reports whether k is at least a quorum.
func (d *Dag) IsQuorum(k int) bool { return k >= d.Quorum() }

// N returns the committee size.
func (d *Dag) N() int { return d.n }

// F returns the Byzantine tolerance.
func (d *Dag) F() int { return d.f }

// AddObserver registers an observer invoked synchronously after each
// successful Add (Added or a detected fork), under the dag's lock.
func (d *Dag) AddObserver(o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

// Add inserts pu into the dag, resolving its parents from its crown.
func (d *Dag) Add(pu gomel.PreUnit) (gomel.Unit, AddStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.byHash[string(pu.Hash())]; ok {
		return existing, Duplicate, nil
	}

	crown := pu.Crown()
	if len(crown.Heights) != d.n {
		return nil, Invalid, ErrBadCrownLength
	}
	if crown.Heights[pu.Creator()] != pu.Height()-1 {
		return nil, Invalid, &gomel.InconsistentCrownError{
			Creator:     pu.Creator(),
			WantHeight:  pu.Height() - 1,
			CrownHeight: crown.Heights[pu.Creator()],
		}
	}

	parents, err := d.resolveParents(pu)
	if err != nil {
		return nil, MissingParents, err
	}

	dealing := pu.Height() == 0
	if dealing {
		for _, p := range parents {
			if p != nil {
				return nil, Invalid, gomel.ErrBadHeight
			}
		}
	} else {
		predecessor := parents[pu.Creator()]
		if predecessor == nil {
			return nil, Invalid, gomel.ErrMissingPredecessor
		}
		if predecessor.Height()+1 != pu.Height() {
			return nil, Invalid, gomel.ErrBadHeight
		}
		nonNil := 0
		for _, p := range parents {
			if p != nil {
				nonNil++
			}
		}
		if !d.IsQuorum(nonNil) {
			return nil, Invalid, gomel.ErrNotEnoughParents
		}
	}

	level := gomel.ComputeLevel(parents, d.Quorum())
	u := gomel.Situate(pu, parents, level)

	c := coord{creator: pu.Creator(), height: pu.Height()}
	if existing := d.byCoord[c]; len(existing) > 0 && !d.forking[pu.Creator()] {
		d.forking[pu.Creator()] = true
		d.log.Warn("forking creator detected", "creator", pu.Creator(), "height", pu.Height())
	}
	d.byCoord[c] = append(d.byCoord[c], u)
	d.byHash[string(u.Hash())] = u
	if pu.Height() > d.maxHeight[pu.Creator()] {
		d.maxHeight[pu.Creator()] = pu.Height()
	}
	if level > d.maxLvl {
		d.maxLvl = level
	}

	for _, o := range d.observers {
		o(u)
	}

	return u, Added, nil
}

// resolveParents looks up, for every non-⊥ crown entry, the candidate
// units at that (creator, height) and finds the assignment whose combined
// crown matches pu's declared crown. Ambiguity only arises across creators
// that are forking (more than one candidate at a coordinate); the search
// backtracks over those slots, which is bounded by the number of forking
// creators tolerated (at most f).
func (d *Dag) resolveParents(pu gomel.PreUnit) ([]gomel.Unit, error) {
	crown := pu.Crown()
	n := len(crown.Heights)
	candidates := make([][]gomel.Unit, n)
	for c := 0; c < n; c++ {
		h := crown.Heights[c]
		if h == -1 {
			candidates[c] = []gomel.Unit{nil}
			continue
		}
		us := d.byCoord[coord{creator: uint16(c), height: h}]
		if len(us) == 0 {
			return nil, gomel.ErrUnknownParent
		}
		candidates[c] = us
	}
	chosen := make([]gomel.Unit, n)
	if !searchCrownMatch(candidates, crown, chosen, 0, d.algo) {
		return nil, gomel.ErrUnknownParent
	}
	return chosen, nil
}

func searchCrownMatch(candidates [][]gomel.Unit, target gomel.Crown, chosen []gomel.Unit, idx int, algo gomel.DigestAlgorithm) bool {
	if idx == len(candidates) {
		return crownMatches(chosen, target, algo)
	}
	for _, cand := range candidates[idx] {
		chosen[idx] = cand
		if searchCrownMatch(candidates, target, chosen, idx+1, algo) {
			return true
		}
	}
	return false
}

func crownMatches(parents []gomel.Unit, target gomel.Crown, algo gomel.DigestAlgorithm) bool {
	got := gomel.CrownFromParents(parents, algo)
	return got.Equal(target)
}

// Unit looks up a unit by its hash.
func (d *Dag) Unit(hash gomel.Digest) (gomel.Unit, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.byHash[string(hash)]
	return u, ok
}

// UnitsOn returns every unit created by creator at height (more than one
// only in the presence of a fork).
func (d *Dag) UnitsOn(creator uint16, height int) []gomel.Unit {
	d.mu.Lock()
	defer d.mu.Unlock()
	us := d.byCoord[coord{creator: creator, height: height}]
	out := make([]gomel.Unit, len(us))
	copy(out, us)
	return out
}

// MaxHeight returns the highest height stored for creator, or -1 if none.
func (d *Dag) MaxHeight(creator uint16) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxHeight[creator]
}

// MaxLevel returns the highest level of any unit currently in the dag, or
// -1 if the dag is empty.
func (d *Dag) MaxLevel() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxLvl
}

// Forking reports whether creator has been observed to fork in this dag.
func (d *Dag) Forking(creator uint16) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.forking[creator]
}
