// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcevent

import "github.com/flimlab/tcspc/pkg/tcspctypes"

// TimeRange is the closed abstime range [Start, Stop] a bin-increment
// batch covers (§3.3: Start <= Stop).
type TimeRange struct {
	Start tcspctypes.Abstime
	Stop  tcspctypes.Abstime
}

// DatapointEvent carries one raw sample value destined for a bin mapper.
type DatapointEvent[V any] struct {
	base
	Value V
}

// BinIncrementEvent requests that a single histogram bin be incremented by
// one.
type BinIncrementEvent[B tcspctypes.BinIndex] struct {
	base
	BinIndex B
}

// BinIncrementBatchEvent requests a batch of bin increments sharing one
// time range, e.g. all photons belonging to one pixel.
type BinIncrementBatchEvent[B tcspctypes.BinIndex] struct {
	base
	TimeRange  TimeRange
	BinIndices tcspctypes.Span[B]
}

// HistogramStats tracks the bookkeeping invariant of §3.3:
// Total == sum(cells) + Saturated.
type HistogramStats struct {
	Total     uint64
	Saturated uint64
	HasData   bool
}

// HistogramEvent carries the live state of a single histogram after
// processing the most recent increment or batch.
type HistogramEvent[C tcspctypes.Bin] struct {
	base
	Cells     tcspctypes.Span[C]
	Stats     HistogramStats
	TimeRange TimeRange
}

// ConcludingHistogramEvent is emitted when a histogram epoch ends (user
// reset, overflow-triggered reset/stop, or end of stream).
type ConcludingHistogramEvent[C tcspctypes.Bin] struct {
	base
	Cells         tcspctypes.Span[C]
	Stats         HistogramStats
	IsEndOfStream bool
}

// ElementHistogramEvent carries one element's histogram within an
// array-of-histograms cycle.
type ElementHistogramEvent[C tcspctypes.Bin] struct {
	base
	ElementIndex int
	Cells        tcspctypes.Span[C]
	Stats        HistogramStats
	CycleIndex   uint64
}

// HistogramArrayEvent is emitted once a full cycle through all array
// elements completes.
type HistogramArrayEvent[C tcspctypes.Bin] struct {
	base
	Cells      tcspctypes.Span[C]
	Stats      []HistogramStats
	CycleIndex uint64
}

// ConcludingHistogramArrayEvent closes an accumulation epoch for an
// element-wise array, mirroring ConcludingHistogramEvent.
type ConcludingHistogramArrayEvent[C tcspctypes.Bin] struct {
	base
	Cells         tcspctypes.Span[C]
	Stats         []HistogramStats
	CycleIndex    uint64
	IsEndOfStream bool
}
