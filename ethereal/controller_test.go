// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ethereal

import (
	"testing"

	"github.com/luxfi/ethereal/config"
	"github.com/luxfi/ethereal/gomel"
	"github.com/luxfi/ethereal/gomel/dag"
	"github.com/stretchr/testify/require"
)

type noDataSource struct{}

func (noDataSource) GetData() ([]byte, bool) { return nil, false }

func TestNewRejectsCommitteeBelowFour(t *testing.T) {
	cfg := config.FourProcessDemo(0)
	cfg.NProc = 3
	_, err := New(cfg, Committee{}, nil, noDataSource{}, nil, nil, nil, nil)
	require.ErrorIs(t, err, ErrBadConfig)
}

func TestNewSeedsOwnGenesisUnit(t *testing.T) {
	cfg := config.FourProcessDemo(0)
	var seen []gomel.Unit
	c, err := New(cfg, Committee{}, nil, noDataSource{}, func(u gomel.Unit) { seen = append(seen, u) }, nil, nil, nil)
	require.NoError(t, err)

	require.Len(t, seen, 1)
	require.EqualValues(t, 0, seen[0].Creator())
	require.Equal(t, 0, seen[0].Height())
	require.True(t, seen[0].Dealing())
	require.True(t, c.creator.Seeded())
}

func TestStartThenStopIsClean(t *testing.T) {
	cfg := config.FourProcessDemo(1)
	c, err := New(cfg, Committee{}, nil, noDataSource{}, nil, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, c.Start())
	require.ErrorIs(t, c.Start(), ErrAlreadyStarted)
	require.NoError(t, c.Stop())
}

func TestInputBuffersUntilParentsResolve(t *testing.T) {
	cfg := config.FourProcessDemo(0)
	c, err := New(cfg, Committee{}, nil, noDataSource{}, nil, nil, nil, nil)
	require.NoError(t, err)

	// Dealing units are fully determined by (creator, epoch, algo): a freshly
	// constructed one hashes identically to the genesis already sitting in
	// the dag, so it can stand in for it when building the child's crown.
	dealings := make([]gomel.Unit, cfg.NProc)
	dealings[0] = gomel.NewFreeUnit(0, 0, make([]gomel.Unit, cfg.NProc), 0, nil, nil, cfg.DigestAlgorithm)
	for creator := uint16(1); creator < 3; creator++ {
		dealings[creator] = gomel.NewFreeUnit(creator, 0, make([]gomel.Unit, cfg.NProc), 0, nil, nil, cfg.DigestAlgorithm)
	}
	crown := gomel.CrownFromParents(dealings, cfg.DigestAlgorithm)
	child := gomel.NewPreUnit(1, 0, 1, crown, nil, nil, cfg.DigestAlgorithm)

	c.Input(1, []gomel.PreUnit{child})
	c.mu.Lock()
	require.Len(t, c.pending, 1)
	c.mu.Unlock()

	for creator := uint16(1); creator < 3; creator++ {
		c.Input(creator, []gomel.PreUnit{dealings[creator]})
	}

	c.mu.Lock()
	require.Empty(t, c.pending)
	c.mu.Unlock()

	u, status, err := c.dag.Add(child)
	require.NoError(t, err)
	require.Equal(t, dag.Duplicate, status)
	require.Equal(t, 1, u.Level())
}

func TestForkingPeerIsFlaggedInDag(t *testing.T) {
	cfg := config.FourProcessDemo(0)
	c, err := New(cfg, Committee{}, nil, noDataSource{}, nil, nil, nil, nil)
	require.NoError(t, err)

	c.Input(1, []gomel.PreUnit{gomel.NewFreeUnit(1, 0, make([]gomel.Unit, cfg.NProc), 0, nil, nil, cfg.DigestAlgorithm)})
	fork := gomel.NewPreUnit(1, 0, 0, gomel.EmptyCrown(int(cfg.NProc), cfg.DigestAlgorithm), []byte("fork"), nil, cfg.DigestAlgorithm)
	c.Input(1, []gomel.PreUnit{fork})

	require.True(t, c.dag.Forking(1))
}
