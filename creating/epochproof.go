// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package creating

import "github.com/luxfi/ethereal/gomel"

// EpochProofBuilder manages the threshold-style proof that closes one
// epoch and certifies the next one's dealing units. One instance is
// created per epoch by an EpochProofFactory.
//
// Grounded on this stack's BLS aggregate-signature pattern (quasar-style
// epoch proofs and validator crypto helpers): BuildShare signs with this
// process's BLS secret key share, TryBuilding accumulates shares until 2f+1
// distinct ones are present and aggregates them, and Verify checks a
// dealing unit's data against the aggregate public key of the quorum that
// produced it.
type EpochProofBuilder interface {
	// BuildShare returns this process's share of the signature over the
	// given epoch's final timing unit.
	BuildShare(timingUnit gomel.Unit) []byte

	// TryBuilding folds in a share carried by a finishing unit of this
	// epoch. It returns the combined proof once 2f+1 distinct shares have
	// been accumulated, and ok=false otherwise.
	TryBuilding(u gomel.Unit) (proof []byte, ok bool)

	// Verify checks that a dealing unit of the following epoch carries a
	// valid combined proof for this epoch's close.
	Verify(u gomel.Unit) bool
}

// EpochProofFactory constructs the EpochProofBuilder for a given epoch. A
// Creator holds exactly one live builder at a time, replacing it whenever
// the epoch advances.
type EpochProofFactory func(epoch uint16) EpochProofBuilder
