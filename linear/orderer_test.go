// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linear

import (
	"testing"

	"github.com/luxfi/ethereal/gomel"
	"github.com/luxfi/ethereal/rmc"
	"github.com/stretchr/testify/require"
)

// fakeDag is a minimal in-memory DagReader fixture: units are indexed by
// creator and height exactly like gomel/dag.Dag.UnitsOn, without any of the
// add-time validation.
type fakeDag struct {
	n        int
	maxLevel int
	byUnit   map[uint16]map[int][]gomel.Unit
}

func newFakeDag(n int) *fakeDag {
	return &fakeDag{n: n, byUnit: make(map[uint16]map[int][]gomel.Unit)}
}

func (f *fakeDag) add(u gomel.Unit) {
	if f.byUnit[u.Creator()] == nil {
		f.byUnit[u.Creator()] = make(map[int][]gomel.Unit)
	}
	f.byUnit[u.Creator()][u.Height()] = append(f.byUnit[u.Creator()][u.Height()], u)
	if u.Level() > f.maxLevel {
		f.maxLevel = u.Level()
	}
}

func (f *fakeDag) N() int        { return f.n }
func (f *fakeDag) MaxLevel() int { return f.maxLevel }
func (f *fakeDag) Quorum() int {
	fTol := (f.n - 1) / 3
	return 2*fTol + 1
}
func (f *fakeDag) UnitsOn(creator uint16, height int) []gomel.Unit {
	return f.byUnit[creator][height]
}

func dealingWithData(creator uint16, data string) gomel.Unit {
	return gomel.NewFreeUnit(creator, 0, make([]gomel.Unit, 4), 0, []byte(data), nil, gomel.SHA256)
}

func TestPopularCandidatesExcludesUnreferenced(t *testing.T) {
	fd := newFakeDag(4)
	d0 := dealingWithData(0, "d0")
	d1 := dealingWithData(1, "d1")
	d2 := dealingWithData(2, "d2")
	d3 := dealingWithData(3, "d3")
	fd.add(d0)
	fd.add(d1)
	fd.add(d2)
	fd.add(d3)

	// u0, u1, u2 reference d0, d1, d2 only: d3 never makes it into any
	// level-1 unit's causal past, so it cannot be popular.
	parents := []gomel.Unit{d0, d1, d2, nil}
	u0 := gomel.NewFreeUnit(0, 0, parents, 1, []byte("u0"), nil, gomel.SHA256)
	u1 := gomel.NewFreeUnit(1, 0, parents, 1, []byte("u1"), nil, gomel.SHA256)
	u2 := gomel.NewFreeUnit(2, 0, parents, 1, []byte("u2"), nil, gomel.SHA256)
	fd.add(u0)
	fd.add(u1)
	fd.add(u2)

	o := New(fd, rmc.NewDeterministic(), 1, 2, func(PreBlock) {}, nil, nil)
	timing := o.decideTimingUnit(0)
	require.NotNil(t, timing)
	require.NotEqual(t, d3.Hash(), timing.Hash())
}

func TestAdvanceFlattensConsecutiveLevels(t *testing.T) {
	fd := newFakeDag(4)
	d0 := dealingWithData(0, "d0")
	d1 := dealingWithData(1, "d1")
	d2 := dealingWithData(2, "d2")
	d3 := dealingWithData(3, "d3")
	fd.add(d0)
	fd.add(d1)
	fd.add(d2)
	fd.add(d3)

	full := []gomel.Unit{d0, d1, d2, d3}
	u0 := gomel.NewFreeUnit(0, 0, full, 1, []byte("u0"), nil, gomel.SHA256)
	u1 := gomel.NewFreeUnit(1, 0, full, 1, []byte("u1"), nil, gomel.SHA256)
	u2 := gomel.NewFreeUnit(2, 0, full, 1, []byte("u2"), nil, gomel.SHA256)
	fd.add(u0)
	fd.add(u1)
	fd.add(u2)

	uparents := []gomel.Unit{u0, u1, u2, nil}
	w0 := gomel.NewFreeUnit(0, 0, uparents, 2, []byte("w0"), nil, gomel.SHA256)
	w1 := gomel.NewFreeUnit(1, 0, uparents, 2, []byte("w1"), nil, gomel.SHA256)
	w2 := gomel.NewFreeUnit(2, 0, uparents, 2, []byte("w2"), nil, gomel.SHA256)
	fd.add(w0)
	fd.add(w1)
	fd.add(w2)

	var blocks []PreBlock
	var timings []gomel.Unit
	o := New(fd, rmc.NewDeterministic(), 1, 2,
		func(pb PreBlock) { blocks = append(blocks, pb) },
		func(u gomel.Unit) { timings = append(timings, u) },
		nil)

	o.advance()

	require.Len(t, blocks, 2)
	require.Len(t, timings, 2)
	require.Equal(t, 2, o.nextLevel)
	require.Equal(t, timings[1].Hash(), o.lastTiming.Hash())

	// First pre-block is the chosen level-0 timing unit's own dealing data.
	require.Len(t, blocks[0].Data, 1)

	// Second pre-block is Δ = past(level-1 timing) \ past(level-0 timing):
	// the level-1 winner itself plus the three dealing units not already
	// flattened into the first pre-block.
	require.Len(t, blocks[1].Data, 4)
	require.Equal(t, timings[1].Data(), blocks[1].Data[3])

	allDealingData := map[string]bool{"d0": true, "d1": true, "d2": true, "d3": true}
	delete(allDealingData, string(blocks[0].Data[0]))
	for _, d := range blocks[1].Data[:3] {
		require.True(t, allDealingData[string(d)])
		delete(allDealingData, string(d))
	}
	require.Empty(t, allDealingData)
}

func TestBelowReflexiveAndTransitive(t *testing.T) {
	d0 := dealingWithData(0, "d0")
	u0 := gomel.NewFreeUnit(0, 0, []gomel.Unit{d0, nil, nil, nil}, 1, nil, nil, gomel.SHA256)
	w0 := gomel.NewFreeUnit(0, 0, []gomel.Unit{u0, nil, nil, nil}, 2, nil, nil, gomel.SHA256)

	require.True(t, below(d0, d0))
	require.True(t, below(d0, u0))
	require.True(t, below(d0, w0))
	require.False(t, below(w0, d0))
}

func TestSortDeltaOrdersByLevelThenPermutation(t *testing.T) {
	d0 := dealingWithData(0, "d0")
	d1 := dealingWithData(1, "d1")
	u0 := gomel.NewFreeUnit(0, 0, []gomel.Unit{d0, d1, nil, nil}, 1, []byte("u0"), nil, gomel.SHA256)

	delta := []gomel.Unit{u0, d1, d0}
	sortDelta(delta, []byte("seed"))
	require.Equal(t, 1, delta[2].Level())
	require.Equal(t, u0.Hash(), delta[2].Hash())
	require.Equal(t, 0, delta[0].Level())
	require.Equal(t, 0, delta[1].Level())

	// d0 and d1 share level 0, so the seed's ranking of their creator ids
	// decides which of them comes first.
	first := d0
	if lessBytes(rmc.Rank([]byte("seed"), encodeUint16(1)), rmc.Rank([]byte("seed"), encodeUint16(0))) {
		first = d1
	}
	require.Equal(t, first.Hash(), delta[0].Hash())
}
