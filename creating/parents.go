// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package creating

import "github.com/luxfi/ethereal/gomel"

// quorum is 2f+1 of n, f = (n-1)/3.
func quorum(n uint16) int {
	f := (int(n) - 1) / 3
	return 2*f + 1
}

// makeConsistent enforces Invariant 2 on a candidate parent set: for every
// i, raise parents[i] to the highest-level unit among parents[i] itself and
// every parents[j].Parents()[i], so that no parent ever looks "behind" what
// another chosen parent already knows about creator i.
func makeConsistent(parents []gomel.Unit) {
	n := len(parents)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if parents[j] == nil {
				continue
			}
			cand := parents[j].Parents()[i]
			if cand == nil {
				continue
			}
			if parents[i] == nil || cand.Level() > parents[i].Level() {
				parents[i] = cand
			}
		}
	}
}

// selectParents builds the parent array for the Creator's next unit from
// its current candidates. When canSkipLevel is true it takes the
// candidates directly; otherwise it walks each candidate back through its
// predecessor chain until its level drops below target, matching the
// reference's "first ancestor below target level" rule.
func selectParents(candidates []gomel.Unit, canSkipLevel bool, target int) []gomel.Unit {
	parents := make([]gomel.Unit, len(candidates))
	copy(parents, candidates)
	if !canSkipLevel {
		for c, cand := range parents {
			u := cand
			for u != nil && u.Level() >= target {
				u = u.Predecessor()
			}
			parents[c] = u
		}
	}
	makeConsistent(parents)
	return parents
}
