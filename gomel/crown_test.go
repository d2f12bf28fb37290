// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gomel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmptyCrownAllAbsent(t *testing.T) {
	c := EmptyCrown(4, SHA256)
	require.Len(t, c.Heights, 4)
	for _, h := range c.Heights {
		require.Equal(t, -1, h)
	}
	require.Equal(t, SHA256.DigestSize(), len(c.ControlHash))
}

func TestCrownEqual(t *testing.T) {
	a := EmptyCrown(4, SHA256)
	b := EmptyCrown(4, SHA256)
	require.True(t, a.Equal(b))

	b.Heights[0] = 3
	require.False(t, a.Equal(b))
}

func TestCrownFromParentsMatchesEmptyForAllNil(t *testing.T) {
	parents := make([]Unit, 4)
	c := CrownFromParents(parents, SHA256)
	require.True(t, c.Equal(EmptyCrown(4, SHA256)))
}

func TestPackDecodeIDRoundTrip(t *testing.T) {
	cases := []struct {
		height  int
		creator uint16
		epoch   uint16
	}{
		{0, 0, 0},
		{1, 3, 0},
		{1<<31 - 1, 0xFFFF, 0xFFFF},
		{42, 7, 12},
	}
	for _, tc := range cases {
		id := PackID(tc.height, tc.creator, tc.epoch)
		h, c, e := DecodeID(id)
		require.Equal(t, tc.height, h)
		require.Equal(t, tc.creator, c)
		require.Equal(t, tc.epoch, e)
	}
}
