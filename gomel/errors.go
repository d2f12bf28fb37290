// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gomel

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownParent is returned when a crown references a parent that
	// the dag has not seen yet.
	ErrUnknownParent = errors.New("gomel: unknown parent")

	// ErrBadHeight is returned when a unit's height does not equal its
	// predecessor's height plus one (or zero for a dealing unit).
	ErrBadHeight = errors.New("gomel: height does not match predecessor")

	// ErrNotEnoughParents is returned when a non-dealing unit does not
	// reference a quorum of parents.
	ErrNotEnoughParents = errors.New("gomel: fewer than 2f+1 parents")

	// ErrMissingPredecessor is returned when a non-dealing unit has no
	// self-parent.
	ErrMissingPredecessor = errors.New("gomel: non-dealing unit has no predecessor")

	// ErrDuplicateUnit names the case where the exact same unit (by hash)
	// is already present in the dag. dag.Dag.Add does not return it: it
	// reports that case as the Duplicate status with a nil error.
	ErrDuplicateUnit = errors.New("gomel: duplicate unit")
)

// InconsistentCrownError reports that a PreUnit's crown entry for its own
// creator is not the height one below the height in its id.
type InconsistentCrownError struct {
	Creator     uint16
	WantHeight  int
	CrownHeight int
}

func (e *InconsistentCrownError) Error() string {
	return fmt.Sprintf("gomel: inconsistent crown for creator %d: want height %d, crown says %d",
		e.Creator, e.WantHeight, e.CrownHeight)
}
