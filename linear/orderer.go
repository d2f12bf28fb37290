// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package linear implements the Orderer / LinearOrderer (C5): per-level
// timing-unit selection and the deterministic flattening of the DAG into a
// totally ordered stream of pre-blocks.
//
// Grounded on the single-threaded executor idiom used elsewhere in this
// stack's engines (a dedicated goroutine draining a work queue as the sole
// writer of derived state): one goroutine owns all ordering state, so
// pre-block emission is trivially sequential without any additional
// locking.
package linear

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/luxfi/ethereal/gomel"
	"github.com/luxfi/ethereal/logging"
	"github.com/luxfi/ethereal/rmc"
	"github.com/luxfi/log"
)

// PreBlock is one deterministic output batch.
type PreBlock struct {
	Data        [][]byte
	RandomBytes []byte
}

// DagReader is the subset of *dag.Dag the Orderer needs; kept as an
// interface so this package does not import gomel/dag directly and tests
// can supply an in-memory fake.
type DagReader interface {
	N() int
	Quorum() int
	MaxLevel() int
	UnitsOn(creator uint16, height int) []gomel.Unit
}

// Orderer picks timing units level by level and flattens committed
// intervals into pre-blocks. All ordering state is only ever touched from
// the goroutine running Run, satisfying the single-threaded-executor
// requirement that pre-block emission stay sequential.
type Orderer struct {
	dag DagReader
	rs  rmc.Source
	log log.Logger

	voteDelay     int
	popularityCap int

	preblockSink func(PreBlock)
	timingSink   func(gomel.Unit) // notifies creating.Creator of each committed timing unit

	lastTiming gomel.Unit
	nextLevel  int

	work chan gomel.Unit
}

// New constructs an Orderer. preblockSink and timingSink are invoked only
// from the Run goroutine, so callers never observe concurrent invocations,
// but must still not block for long inside them (outbound
// callbacks may suspend the caller but must not couple back into DAG
// latency).
func New(dag DagReader, rs rmc.Source, voteDelay, popularityCap int, preblockSink func(PreBlock), timingSink func(gomel.Unit), logger log.Logger) *Orderer {
	return &Orderer{
		dag:           dag,
		rs:            rs,
		log:           logging.OrNoOp(logger),
		voteDelay:     voteDelay,
		popularityCap: popularityCap,
		preblockSink:  preblockSink,
		timingSink:    timingSink,
		work:          make(chan gomel.Unit, 1024),
	}
}

// Notify is called (by the Controller, as a dag.Observer) whenever a new
// unit is added. It is safe to call from inside the DAG's lock; Notify only
// does a non-blocking channel send, queuing the real work onto the
// Orderer's own goroutine.
func (o *Orderer) Notify(u gomel.Unit) {
	select {
	case o.work <- u:
	default:
		o.log.Warn("orderer work queue full, dropping notification", "level", u.Level())
	}
}

// Run drives the single-threaded executor loop until Stop closes work.
// Callers run it in its own goroutine.
func (o *Orderer) Run() {
	for range o.work {
		o.advance()
	}
}

// Stop closes the Orderer's work queue; Run returns once drained.
func (o *Orderer) Stop() {
	close(o.work)
}

// advance tries to resolve and flatten every level for which a timing unit
// can now be decided, in order, stopping at the first undecided level.
func (o *Orderer) advance() {
	for {
		timing := o.decideTimingUnit(o.nextLevel)
		if timing == nil {
			return
		}
		o.emitPreBlock(timing)
		if o.timingSink != nil {
			o.timingSink(timing)
		}
		o.lastTiming = timing
		o.nextLevel++
	}
}

// decideTimingUnit runs the Aleph popularity test for level, returning the
// winning unit once resolvable, or nil if the decision cannot yet be made.
func (o *Orderer) decideTimingUnit(level int) gomel.Unit {
	candidates := o.levelUnits(level)
	if len(candidates) == 0 {
		return nil
	}

	for delay := o.voteDelay; delay <= o.popularityCap; delay++ {
		votingLevel := level + delay
		if o.dag.MaxLevel() < votingLevel {
			return nil // DAG hasn't grown far enough to test this delay yet
		}
		voters := o.levelUnits(votingLevel)
		popular := o.popularCandidates(candidates, voters)
		if len(popular) > 0 {
			return o.pickByPermutation(popular, level)
		}
	}
	// Cap reached with no popular candidate: deterministic fallback picks
	// among all candidates regardless of popularity.
	return o.pickByPermutation(candidates, level)
}

// popularCandidates returns the subset of candidates that at least quorum
// of voters have in their causal past.
func (o *Orderer) popularCandidates(candidates, voters []gomel.Unit) []gomel.Unit {
	quorum := o.dag.Quorum()
	var popular []gomel.Unit
	for _, c := range candidates {
		count := 0
		for _, v := range voters {
			if below(c, v) {
				count++
			}
		}
		if count >= quorum {
			popular = append(popular, c)
		}
	}
	return popular
}

// pickByPermutation breaks ties between candidates using the level's
// RandomSource output: the candidate whose ranked hash is smallest wins.
func (o *Orderer) pickByPermutation(candidates []gomel.Unit, level int) gomel.Unit {
	if len(candidates) == 1 {
		return candidates[0]
	}
	seed := o.levelSeed(level)
	best := candidates[0]
	bestRank := rmc.Rank(seed, best.Hash())
	for _, c := range candidates[1:] {
		rank := rmc.Rank(seed, c.Hash())
		if lessBytes(rank, bestRank) {
			best = c
			bestRank = rank
		}
	}
	return best
}

// levelSeed derives the RandomSource output for level from the hashes of
// the units that sit at that level; this is also the value the pre-block
// for that level's timing unit reports as RandomBytes.
func (o *Orderer) levelSeed(level int) []byte {
	return o.rs.RandomBytes(hashesOf(o.levelUnits(level)))
}

// levelUnits collects every unit across all creators whose level equals
// level. Forks contribute all their coexisting units.
func (o *Orderer) levelUnits(level int) []gomel.Unit {
	var out []gomel.Unit
	n := o.dag.N()
	for c := 0; c < n; c++ {
		for h := 0; ; h++ {
			units := o.dag.UnitsOn(uint16(c), h)
			if len(units) == 0 {
				break
			}
			for _, u := range units {
				if u.Level() == level {
					out = append(out, u)
				}
			}
		}
	}
	return out
}

// emitPreBlock computes Δ = past(timing) \ past(lastTiming), flattens it in
// (level, permuted creator id, hash) order, and hands the result to the
// pre-block sink.
func (o *Orderer) emitPreBlock(timing gomel.Unit) {
	level := timing.Level()
	curPast := pastUnits(timing)
	var prevPast map[string]gomel.Unit
	if o.lastTiming != nil {
		prevPast = pastUnits(o.lastTiming)
	}

	delta := make([]gomel.Unit, 0, len(curPast))
	for key, u := range curPast {
		if _, seen := prevPast[key]; seen {
			continue
		}
		delta = append(delta, u)
	}

	seed := o.levelSeed(level)
	sortDelta(delta, seed)

	data := make([][]byte, 0, len(delta))
	for _, u := range delta {
		if len(u.Data()) > 0 {
			data = append(data, u.Data())
		}
	}
	o.preblockSink(PreBlock{Data: data, RandomBytes: seed})
}

// pastUnits returns every unit reachable from v by following parent edges,
// v included, keyed by hash.
func pastUnits(v gomel.Unit) map[string]gomel.Unit {
	visited := make(map[string]gomel.Unit)
	var walk func(u gomel.Unit)
	walk = func(u gomel.Unit) {
		if u == nil {
			return
		}
		key := string(u.Hash())
		if _, ok := visited[key]; ok {
			return
		}
		visited[key] = u
		for _, p := range u.Parents() {
			walk(p)
		}
	}
	walk(v)
	return visited
}

// sortDelta orders units by level, then by the level seed's permuted
// creator id ranking, then by raw hash — exactly the tie-break chain
// described above.
func sortDelta(delta []gomel.Unit, seed []byte) {
	sort.Slice(delta, func(i, j int) bool {
		a, b := delta[i], delta[j]
		if a.Level() != b.Level() {
			return a.Level() < b.Level()
		}
		ra := rmc.Rank(seed, encodeUint16(a.Creator()))
		rb := rmc.Rank(seed, encodeUint16(b.Creator()))
		if !bytes.Equal(ra, rb) {
			return lessBytes(ra, rb)
		}
		return lessBytes(a.Hash(), b.Hash())
	})
}

func encodeUint16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func hashesOf(units []gomel.Unit) [][]byte {
	out := make([][]byte, len(units))
	for i, u := range units {
		out[i] = u.Hash()
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

func sameHash(u, v gomel.Unit) bool {
	return bytes.Equal(u.Hash(), v.Hash())
}

// below reports whether u is in v's causal past (u == v counts).
func below(u, v gomel.Unit) bool {
	if sameHash(u, v) {
		return true
	}
	visited := make(map[string]bool)
	var dfs func(x gomel.Unit) bool
	dfs = func(x gomel.Unit) bool {
		if x == nil {
			return false
		}
		key := string(x.Hash())
		if visited[key] {
			return false
		}
		visited[key] = true
		if sameHash(x, u) {
			return true
		}
		for _, p := range x.Parents() {
			if dfs(p) {
				return true
			}
		}
		return false
	}
	return dfs(v)
}
