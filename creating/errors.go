// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package creating

import "errors"

// ErrNotSeeded is returned by Controller.Start when the Creator was never
// given its own dealing unit via SeedOwnDealingUnit. The reference design
// makes this unreachable in practice (Controller.New always seeds before
// Start opens the belt); Start asserts it as a fatal construction error
// rather than guessing a fallback, per the resolved Open Question on
// canSkipLevel.
var ErrNotSeeded = errors.New("creating: creator started without its own dealing-unit candidate")
