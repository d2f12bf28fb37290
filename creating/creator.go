// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package creating implements the Creator (C4): the state machine that
// assembles this process's own units from its best-known parent candidates
// and a DataSource, and drives epoch advancement.
//
// Grounded on the engine/bft-style state-machine shape used elsewhere in
// this stack (a mutex-guarded struct consuming a bounded channel in its own
// goroutine, logging on state transitions, never terminating on a
// per-message error), since nothing else in this stack implements a direct
// Aleph-style creator to ground this one on.
package creating

import (
	"sync"

	"github.com/luxfi/ethereal/config"
	"github.com/luxfi/ethereal/gomel"
	"github.com/luxfi/ethereal/logging"
	"github.com/luxfi/log"
)

// Creator assembles and emits one process's units. It is not safe to use
// from multiple goroutines except through its exported methods, which
// serialise access via an internal mutex.
type Creator struct {
	mu sync.Mutex

	cfg config.Config

	rs         RandomSource
	dataSource DataSource
	unitSink   func(gomel.Unit)
	epochFact  EpochProofFactory
	log        log.Logger

	candidates []gomel.Unit
	frozen     map[uint16]bool

	maxLvl   int
	onMaxLvl int
	level    int

	epoch      uint16
	epochDone  bool
	epochProof EpochProofBuilder

	lastTiming chan gomel.Unit
	seeded     bool
}

// RandomSource is the subset of rmc.Source the Creator needs: the data a
// unit must embed at creation time.
type RandomSource interface {
	DataToInclude(level int, creator uint16) []byte
}

// New constructs a Creator for epoch 0. The caller must call
// SeedOwnDealingUnit before the Controller starts it; Controller.Start
// returns ErrNotSeeded otherwise.
func New(cfg config.Config, rs RandomSource, ds DataSource, epochFact EpochProofFactory, unitSink func(gomel.Unit), logger log.Logger) *Creator {
	logger = logging.OrNoOp(logger)
	return &Creator{
		cfg:        cfg,
		rs:         rs,
		dataSource: ds,
		unitSink:   unitSink,
		epochFact:  epochFact,
		log:        logger,
		candidates: make([]gomel.Unit, cfg.NProc),
		frozen:     make(map[uint16]bool),
		maxLvl:     -1,
		epochProof: epochFact(0),
		lastTiming: make(chan gomel.Unit, 8),
	}
}

// SeedOwnDealingUnit installs this process's own dealing unit as its
// initial candidate, satisfying the precondition Controller.Start asserts.
func (c *Creator) SeedOwnDealingUnit(u gomel.Unit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.candidates[c.cfg.Pid] = u
	c.seeded = true
	c.recomputeLevel()
}

// NotifyTimingUnit is called by the Orderer once a level's timing unit is
// committed, feeding the finishing-phase data-selection logic.
func (c *Creator) NotifyTimingUnit(u gomel.Unit) {
	select {
	case c.lastTiming <- u:
	default:
		c.log.Warn("lastTiming queue full, dropping notification", "level", u.Level())
	}
}

// Consume feeds one externally-observed unit into the Creator and emits as
// many new local units as become ready as a result. It must only be called
// after SeedOwnDealingUnit.
func (c *Creator) Consume(u gomel.Unit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumeLocked(u)
}

func (c *Creator) consumeLocked(u gomel.Unit) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("creator: recovered from panic processing unit, skipping", "err", r)
		}
	}()

	if u.Epoch() < c.epoch || c.frozen[u.Creator()] {
		return
	}
	if u.Epoch() > c.epoch {
		if !c.epochProof.Verify(u) {
			c.log.Warn("epoch proof verification failed, dropping dealing unit", "epoch", u.Epoch())
			return
		}
		c.startEpoch(u.Epoch(), u.Data())
		return
	}
	if proof, ok := c.epochProof.TryBuilding(u); ok {
		c.startEpoch(c.epoch+1, proof)
		return
	}
	c.updateCandidates(u)
	c.tryCreate()
}

func (c *Creator) updateCandidates(u gomel.Unit) {
	if c.frozen[u.Creator()] {
		return
	}
	cur := c.candidates[u.Creator()]
	if cur == nil || u.Level() > cur.Level() {
		c.candidates[u.Creator()] = u
	}
	c.recomputeLevel()
}

func (c *Creator) recomputeLevel() {
	maxLvl := -1
	onMax := 0
	for _, cand := range c.candidates {
		if cand == nil {
			continue
		}
		switch {
		case cand.Level() > maxLvl:
			maxLvl = cand.Level()
			onMax = 1
		case cand.Level() == maxLvl:
			onMax++
		}
	}
	c.maxLvl = maxLvl
	level := maxLvl
	if onMax >= quorum(c.cfg.NProc) {
		level++
	}
	c.onMaxLvl = onMax
	c.level = level
}

func (c *Creator) ready() bool {
	own := c.candidates[c.cfg.Pid]
	return !c.epochDone && own != nil && c.level > own.Level()
}

// tryCreate emits units until the Creator is no longer ready, matching the
// reference's "while ready()" loop: makeConsistent over a richer candidate
// set can raise the target level by more than one in a single pass.
func (c *Creator) tryCreate() {
	for c.ready() {
		target := c.candidates[c.cfg.Pid].Level() + 1
		parents := selectParents(c.candidates, c.cfg.CanSkipLevel, target)

		data, finished := c.selectData()
		rsData := c.rs.DataToInclude(c.level, c.cfg.Pid)
		u := gomel.NewFreeUnit(c.cfg.Pid, c.epoch, parents, c.level, data, rsData, c.cfg.DigestAlgorithm)

		c.unitSink(u)
		c.updateCandidates(u)

		if finished {
			return
		}
	}
}

// selectData implements the reference's data-selection branch: application
// payload while at or below lastLevel, epoch-proof shares drained from the
// finishing queue above it. The bool return reports whether this call
// closed out the epoch (epochDone became true), in which case tryCreate
// must stop producing further units this epoch.
func (c *Creator) selectData() (data []byte, epochFinished bool) {
	if c.level <= c.cfg.LastLevel {
		if d, ok := c.dataSource.GetData(); ok {
			return d, false
		}
		return nil, false
	}
	for {
		select {
		case tu := <-c.lastTiming:
			if tu.Epoch() < c.epoch {
				continue
			}
			c.epochDone = true
			share := c.epochProof.BuildShare(tu)
			if c.cfg.NumberOfEpochs > 0 && int(c.epoch)+1 >= c.cfg.NumberOfEpochs {
				return nil, true
			}
			return share, true
		default:
			return nil, false
		}
	}
}

func (c *Creator) startEpoch(epoch uint16, dealingData []byte) {
	c.epoch = epoch
	c.epochDone = false
	c.frozen = make(map[uint16]bool)
	c.candidates = make([]gomel.Unit, c.cfg.NProc)
	c.epochProof = c.epochFact(epoch)

	parents := make([]gomel.Unit, c.cfg.NProc)
	rsData := c.rs.DataToInclude(0, c.cfg.Pid)
	u := gomel.NewFreeUnit(c.cfg.Pid, epoch, parents, 0, dealingData, rsData, c.cfg.DigestAlgorithm)
	c.unitSink(u)
	c.candidates[c.cfg.Pid] = u
	c.recomputeLevel()
}

// Freeze permanently excludes creator from this Creator's candidate set,
// called once the DAG reports creator as forking.
func (c *Creator) Freeze(creator uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen[creator] = true
	if c.candidates[creator] != nil {
		c.candidates[creator] = nil
		c.recomputeLevel()
	}
}

// Seeded reports whether SeedOwnDealingUnit has been called, the
// precondition Controller.Start asserts before opening the belt.
func (c *Creator) Seeded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seeded
}
