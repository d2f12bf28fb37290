// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dag

import (
	"testing"

	"github.com/luxfi/ethereal/gomel"
	"github.com/stretchr/testify/require"
)

func dealingPreUnit(creator uint16, algo gomel.DigestAlgorithm) gomel.PreUnit {
	crown := gomel.EmptyCrown(4, algo)
	return gomel.NewPreUnit(creator, 0, 0, crown, nil, nil, algo)
}

func TestAddDealingUnits(t *testing.T) {
	d := New(4, 1, gomel.SHA256, nil)
	for c := uint16(0); c < 4; c++ {
		_, status, err := d.Add(dealingPreUnit(c, gomel.SHA256))
		require.NoError(t, err)
		require.Equal(t, Added, status)
	}
	require.Equal(t, 0, d.MaxLevel())
}

func TestAddDuplicateReturnsExistingUnit(t *testing.T) {
	d := New(4, 1, gomel.SHA256, nil)
	pu := dealingPreUnit(0, gomel.SHA256)
	u1, status1, err := d.Add(pu)
	require.NoError(t, err)
	require.Equal(t, Added, status1)

	u2, status2, err := d.Add(pu)
	require.NoError(t, err)
	require.Equal(t, Duplicate, status2)
	require.Equal(t, u1, u2)
}

func TestAddLevelAdvancesAtQuorum(t *testing.T) {
	d := New(4, 1, gomel.SHA256, nil)
	var dealings []gomel.Unit
	for c := uint16(0); c < 4; c++ {
		u, _, err := d.Add(dealingPreUnit(c, gomel.SHA256))
		require.NoError(t, err)
		dealings = append(dealings, u)
	}

	crown := gomel.CrownFromParents(dealings, gomel.SHA256)
	child := gomel.NewPreUnit(0, 0, 1, crown, nil, nil, gomel.SHA256)
	u, status, err := d.Add(child)
	require.NoError(t, err)
	require.Equal(t, Added, status)
	require.Equal(t, 1, u.Level())
	require.Equal(t, 1, d.MaxLevel())
}

func TestAddMissingParentReturnsMissingParents(t *testing.T) {
	d := New(4, 1, gomel.SHA256, nil)
	dealings := make([]gomel.Unit, 4)
	dealings[0] = gomel.NewFreeUnit(0, 0, make([]gomel.Unit, 4), 0, nil, nil, gomel.SHA256)
	crown := gomel.CrownFromParents(dealings, gomel.SHA256)

	child := gomel.NewPreUnit(0, 0, 1, crown, nil, nil, gomel.SHA256)
	_, status, err := d.Add(child)
	require.Error(t, err)
	require.Equal(t, MissingParents, status)
}

func TestForkingCreatorIsFlagged(t *testing.T) {
	d := New(4, 1, gomel.SHA256, nil)
	_, _, err := d.Add(dealingPreUnit(0, gomel.SHA256))
	require.NoError(t, err)
	require.False(t, d.Forking(0))

	fork := gomel.NewPreUnit(0, 0, 0, gomel.EmptyCrown(4, gomel.SHA256), []byte("fork"), nil, gomel.SHA256)
	_, status, err := d.Add(fork)
	require.NoError(t, err)
	require.Equal(t, Added, status)
	require.True(t, d.Forking(0))
}

func TestQuorumAndIsQuorum(t *testing.T) {
	d := New(4, 1, gomel.SHA256, nil)
	require.Equal(t, 3, d.Quorum())
	require.True(t, d.IsQuorum(3))
	require.False(t, d.IsQuorum(2))
}

func TestBadCrownLengthRejected(t *testing.T) {
	d := New(4, 1, gomel.SHA256, nil)
	badCrown := gomel.Crown{Heights: []int{-1, -1}, ControlHash: make(gomel.Digest, gomel.SHA256.DigestSize())}
	pu := gomel.NewPreUnit(0, 0, 0, badCrown, nil, nil, gomel.SHA256)
	_, status, err := d.Add(pu)
	require.ErrorIs(t, err, ErrBadCrownLength)
	require.Equal(t, Invalid, status)
}

func TestInconsistentCrownHeightRejected(t *testing.T) {
	d := New(4, 1, gomel.SHA256, nil)
	crown := gomel.EmptyCrown(4, gomel.SHA256)
	// height 1 requires crown.Heights[creator] == 0, not -1.
	pu := gomel.NewPreUnit(0, 0, 1, crown, nil, nil, gomel.SHA256)
	_, status, err := d.Add(pu)
	require.Error(t, err)
	require.Equal(t, Invalid, status)
}

func TestObserverFiresOnAdd(t *testing.T) {
	d := New(4, 1, gomel.SHA256, nil)
	var seen []gomel.Unit
	d.AddObserver(func(u gomel.Unit) { seen = append(seen, u) })

	_, _, err := d.Add(dealingPreUnit(0, gomel.SHA256))
	require.NoError(t, err)
	require.Len(t, seen, 1)
}
