// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package creating

// DataSource supplies the application payload a Creator embeds in each unit
// it builds. GetData is called at most once per local unit; returning
// ok=false is equivalent to an empty payload (the unit is still built and
// emitted, carrying no application bytes).
//
// A hand-written mock lives in etheraltest.MockDataSource for tests.
type DataSource interface {
	GetData() (data []byte, ok bool)
}
