// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ethereal is the top-level façade (C6): it wires C1-C5 together
// behind a single Controller, owns epoch lifecycle via a BLS epoch proof,
// and is the only package application code needs to import directly.
//
// Grounded on the longer-lived engine lifecycle pattern used throughout
// this stack (construct once, start/stop bound the goroutines, errors
// surface at construction or start rather than being discovered later) and
// on golang.org/x/sync/errgroup for first-error-propagating shutdown, the
// way this stack's multi-goroutine engines supervise their workers.
package ethereal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ethereal/config"
	"github.com/luxfi/ethereal/creating"
	"github.com/luxfi/ethereal/gomel"
	"github.com/luxfi/ethereal/gomel/dag"
	"github.com/luxfi/ethereal/linear"
	"github.com/luxfi/ethereal/logging"
	"github.com/luxfi/ethereal/rmc"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// ErrBadConfig is a Fatal-class error: construction fails
// rather than starting in an inconsistent state.
var ErrBadConfig = errors.New("ethereal: nProc must be positive and at least 4 to tolerate a Byzantine process")

// ErrAlreadyStarted is returned by Start when called a second time.
var ErrAlreadyStarted = errors.New("ethereal: controller already started")

// Controller is the top-level façade: it accepts
// peer units through Input, drives this process's own Creator and the
// Orderer, and emits units/pre-blocks through the two sinks supplied at
// construction.
type Controller struct {
	cfg config.Config

	dag     *dag.Dag
	creator *creating.Creator
	orderer *linear.Orderer
	rs      rmc.Source
	log     log.Logger
	metrics *metricsSet

	unitSink     func(gomel.Unit)
	preblockSink func(linear.PreBlock)

	belt chan gomel.Unit

	mu          sync.Mutex
	pending     []gomel.PreUnit
	forkingSeen map[uint16]bool

	group   *errgroup.Group
	cancel  context.CancelFunc
	started bool
}

// New constructs a Controller for one committee member. It creates and
// inserts this process's genesis dealing unit immediately, satisfying the
// precondition Start asserts on the Creator. A nil registry disables
// metrics.
func New(
	cfg config.Config,
	committee Committee,
	secret *bls.SecretKey,
	dataSource creating.DataSource,
	unitSink func(gomel.Unit),
	preblockSink func(linear.PreBlock),
	registry *prometheus.Registry,
	logger log.Logger,
) (*Controller, error) {
	if cfg.NProc < 4 {
		return nil, ErrBadConfig
	}
	logger = logging.OrNoOp(logger)

	f := (int(cfg.NProc) - 1) / 3
	if committee.Quorum == 0 {
		committee.Quorum = 2*f + 1
	}
	committee.N = cfg.NProc

	d := dag.New(int(cfg.NProc), f, cfg.DigestAlgorithm, logger)
	rs := rmc.NewDeterministic()
	m := newMetricsSet(registry)

	c := &Controller{
		cfg:          cfg,
		dag:          d,
		rs:           rs,
		log:          logger,
		metrics:      m,
		unitSink:     unitSink,
		preblockSink: preblockSink,
		belt:         make(chan gomel.Unit, 4096),
		forkingSeen:  make(map[uint16]bool),
	}

	epochFact := NewBLSEpochProofFactory(committee, secret, cfg.Pid, logger)
	c.creator = creating.New(cfg, rs, dataSource, epochFact, c.onOwnUnit, logger)
	c.orderer = linear.New(d, rs, cfg.VoteDelay, cfg.PopularityCap, c.onPreBlock, c.creator.NotifyTimingUnit, logger)

	d.AddObserver(c.onUnitAdded)

	dealing := gomel.NewFreeUnit(cfg.Pid, 0, make([]gomel.Unit, cfg.NProc), 0, nil, rs.DataToInclude(0, cfg.Pid), cfg.DigestAlgorithm)
	if _, status, err := d.Add(dealing); status == dag.Invalid {
		return nil, fmt.Errorf("ethereal: failed to seed genesis dealing unit: %w", err)
	}
	situated, _ := d.Unit(dealing.Hash())
	c.creator.SeedOwnDealingUnit(situated)
	if unitSink != nil {
		unitSink(situated)
	}

	return c, nil
}

// onUnitAdded is registered as a dag.Observer, so it runs synchronously
// under the DAG's lock: it must never block on outbound I/O. The belt send
// is a non-blocking offer; a full belt spills u onto pending instead, where
// it is picked up by the next drainPendingLocked call (Input re-adds it to
// the dag, which re-invokes this observer, giving it another chance to
// offer onto the belt).
func (c *Controller) onUnitAdded(u gomel.Unit) {
	c.metrics.observeInserted(u, c.dag.MaxLevel())
	c.log.Debug("unit inserted", "id", gomel.HashID(u.Hash()), "creator", u.Creator(), "level", u.Level())
	c.orderer.Notify(u)
	select {
	case c.belt <- u:
	default:
		c.log.Warn("belt full, spilling unit to pending", "id", gomel.HashID(u.Hash()), "creator", u.Creator(), "height", u.Height())
		c.pending = append(c.pending, u)
	}
}

// onOwnUnit is the Creator's unitSink: broadcast, then self-insert through
// the same pending/dag.Add path peer units take, so the local process's
// own unit participates in its own candidates via the belt like any other.
func (c *Controller) onOwnUnit(u gomel.Unit) {
	c.metrics.observeCreated()
	if c.unitSink != nil {
		c.unitSink(u)
	}
	c.Input(c.cfg.Pid, []gomel.PreUnit{u})
}

func (c *Controller) onPreBlock(pb linear.PreBlock) {
	c.metrics.observePreBlock()
	if c.preblockSink != nil {
		c.preblockSink(pb)
	}
}

// Input accepts peer units (or, via onOwnUnit, this process's own), adds
// whatever now has resolvable parents, and buffers the rest for retry on
// the next successful insert. sourcePid is advisory, used only for logging.
func (c *Controller) Input(sourcePid uint16, units []gomel.PreUnit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, units...)
	c.drainPendingLocked(sourcePid)
}

func (c *Controller) drainPendingLocked(sourcePid uint16) {
	for {
		progressed := false
		remaining := c.pending[:0]
		for _, pu := range c.pending {
			_, status, err := c.dag.Add(pu)
			switch status {
			case dag.Added:
				progressed = true
				if c.dag.Forking(pu.Creator()) {
					c.creator.Freeze(pu.Creator())
					if !c.forkingSeen[pu.Creator()] {
						c.forkingSeen[pu.Creator()] = true
						c.metrics.observeForking(len(c.forkingSeen))
					}
				}
			case dag.Duplicate:
				progressed = true
			case dag.MissingParents:
				remaining = append(remaining, pu)
			case dag.Invalid:
				c.log.Warn("rejecting invalid preunit", "source", sourcePid, "creator", pu.Creator(), "height", pu.Height(), "err", err)
			}
		}
		c.pending = remaining
		if !progressed || len(c.pending) == 0 {
			return
		}
	}
}

// Start launches the Orderer's executor and the belt-delivery goroutine
// under an errgroup so the first error from either is observable from
// Stop. Start is idempotent only in the sense that a second call returns
// ErrAlreadyStarted; it does not restart a stopped Controller.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	if !c.creator.Seeded() {
		return creating.ErrNotSeeded
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.orderer.Run()
		return nil
	})
	g.Go(func() error {
		c.beltLoop()
		return nil
	})
	c.group = g
	return nil
}

func (c *Controller) beltLoop() {
	for u := range c.belt {
		if c.dag.Forking(u.Creator()) {
			c.creator.Freeze(u.Creator())
		}
		c.creator.Consume(u)
	}
}

// Stop closes the belt and the Orderer's queue, waits for both goroutines
// to exit, and only then returns, guaranteeing neither output sink is
// invoked afterward.
func (c *Controller) Stop() error {
	c.orderer.Stop()
	close(c.belt)
	var err error
	if c.group != nil {
		err = c.group.Wait()
	}
	if c.cancel != nil {
		c.cancel()
	}
	return err
}
