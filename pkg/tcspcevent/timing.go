// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcevent

import "github.com/flimlab/tcspc/pkg/tcspctypes"

// PeriodicSequenceEvent is the fitted model produced by
// fit_periodic_sequences (§4.9): a line abstime ~= Delay + Interval*k,
// anchored at Abstime (the last event used in the fit).
type PeriodicSequenceEvent struct {
	base
	Abstime  tcspctypes.Abstime
	Delay    float64
	Interval float64
}

// RealOneShotTimingEvent schedules one emission Delay abstime units after
// Abstime.
type RealOneShotTimingEvent struct {
	base
	Abstime tcspctypes.Abstime
	Delay   float64
}

// RealLinearTimingEvent schedules Count emissions at Abstime + Delay +
// k*Interval.
type RealLinearTimingEvent struct {
	base
	Abstime  tcspctypes.Abstime
	Delay    float64
	Interval float64
	Count    int
}

// BinIncrementBatchJournalEvent carries a full bin-increment batch journal
// snapshot (§4.5.6), used where the journal itself needs to cross a
// processor boundary (rare; mostly internal to the histogram engine).
type BinIncrementBatchJournalEvent[B tcspctypes.BinIndex] struct {
	base
	Entries []JournalEntry[B]
}

// PartialBinIncrementBatchJournalEvent carries the entries added since the
// last emission of the full journal, used to replicate journal state
// incrementally.
type PartialBinIncrementBatchJournalEvent[B tcspctypes.BinIndex] struct {
	base
	NewEntries []JournalEntry[B]
}

// JournalEntry is one batch's worth of recorded bin indices, keyed by the
// batch index it belongs to.
type JournalEntry[B tcspctypes.BinIndex] struct {
	BatchIndex uint64
	BinIndices tcspctypes.Span[B]
}
