// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspchistogram

import (
	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// AccumulateHistograms adds each tcspcevent.BinIncrementBatchEvent[B] it
// receives to a running histogram, emitting a tcspcevent.HistogramEvent
// after every batch and a tcspcevent.ConcludingHistogramEvent on Reset,
// overflow-reset, or end of stream (§4.5.3). Batches are atomic: if an
// overflow occurs mid-batch under Reset or Stop, the increments already
// applied from the current batch are rolled back (via the batch journal)
// before the concluding event is emitted.
type AccumulateHistograms[B tcspctypes.BinIndex, C tcspctypes.Bin] struct {
	Downstream tcspcpipeline.Processor
	NumBins    int
	MaxPerBin  C
	Policy     OverflowPolicy
	IsReset    func(tcspcevent.Event) bool

	cells     []C
	stats     tcspcevent.HistogramStats
	timeRange tcspcevent.TimeRange

	// journal/batchIdx track every batch committed so far in the current
	// cycle, purely so a future overflow can report a stable batch index;
	// rollback of the in-progress (failing) batch itself uses its own
	// scratch journal in applyBatchAtomically.
	journal  *Journal[B]
	batchIdx uint64
}

func NewAccumulateHistograms[B tcspctypes.BinIndex, C tcspctypes.Bin](downstream tcspcpipeline.Processor, numBins int, maxPerBin C, policy OverflowPolicy, isReset func(tcspcevent.Event) bool) *AccumulateHistograms[B, C] {
	return &AccumulateHistograms[B, C]{
		Downstream: downstream,
		NumBins:    numBins,
		MaxPerBin:  maxPerBin,
		Policy:     policy,
		IsReset:    isReset,
		cells:      make([]C, numBins),
		journal:    NewJournal[B](),
	}
}

func (a *AccumulateHistograms[B, C]) Handle(ev tcspcevent.Event) error {
	e, ok := ev.(tcspcevent.BinIncrementBatchEvent[B])
	if !ok {
		if a.IsReset != nil && a.IsReset(ev) {
			if err := a.emitConcluding(false); err != nil {
				return err
			}
			a.clear()
			return a.Downstream.Handle(ev)
		}
		return a.Downstream.Handle(ev)
	}
	return a.handleBatch(e)
}

func (a *AccumulateHistograms[B, C]) handleBatch(e tcspcevent.BinIncrementBatchEvent[B]) error {
	for {
		firstBatchOfCycle := !a.stats.HasData
		_, overflowed, err := a.applyBatchAtomically(e.BinIndices)
		if err != nil {
			return err
		}
		if !overflowed {
			if firstBatchOfCycle {
				a.timeRange.Start = e.TimeRange.Start
			}
			a.timeRange.Stop = e.TimeRange.Stop
			return a.emitHistogram()
		}
		switch a.Policy {
		case Reset:
			if err := a.emitConcluding(false); err != nil {
				return err
			}
			a.clear()
			continue
		case Stop:
			if err := a.emitConcluding(true); err != nil {
				return err
			}
			return tcspcpipeline.ErrEndOfProcessing
		}
	}
}

// applyBatchAtomically applies bins to a.cells/a.stats, journaling the
// batch as it goes. If an overflow occurs under Reset or Stop, everything
// this call applied is rolled back via the journal before returning
// overflowed=true, so the caller can finalize and retry/stop cleanly.
func (a *AccumulateHistograms[B, C]) applyBatchAtomically(bins tcspctypes.Span[B]) (applied int, overflowed bool, err error) {
	scratch := NewJournal[B]()
	incrementedBins := make([]B, 0, len(bins))
	var saturatedCount int
	cycleHasData := a.stats.Total > 0 || a.stats.Saturated > 0
	for _, bin := range bins {
		incremented, action, ierr := incrementCell(a.cells, int(bin), a.MaxPerBin, cycleHasData, a.Policy)
		if ierr != nil {
			return applied, false, ierr
		}
		if action == actionRetryAfterReset || action == actionStopAfterConcluding {
			scratch.Append(0, incrementedBins)
			scratch.AppendSaturated(saturatedCount)
			Rollback(scratch, a.cells, &a.stats)
			return applied, true, nil
		}
		a.stats.Total++
		if incremented {
			incrementedBins = append(incrementedBins, bin)
		} else {
			saturatedCount++
			a.stats.Saturated++
		}
		a.stats.HasData = true
		cycleHasData = true
		applied++
	}
	a.journal.Append(a.batchIdx, incrementedBins)
	a.journal.AppendSaturated(saturatedCount)
	a.batchIdx++
	return applied, false, nil
}

func (a *AccumulateHistograms[B, C]) emitHistogram() error {
	return a.Downstream.Handle(tcspcevent.HistogramEvent[C]{
		Cells:     tcspctypes.Span[C](append([]C(nil), a.cells...)),
		Stats:     a.stats,
		TimeRange: a.timeRange,
	})
}

func (a *AccumulateHistograms[B, C]) emitConcluding(endOfStream bool) error {
	return a.Downstream.Handle(tcspcevent.ConcludingHistogramEvent[C]{
		Cells:         tcspctypes.Span[C](append([]C(nil), a.cells...)),
		Stats:         a.stats,
		IsEndOfStream: endOfStream,
	})
}

func (a *AccumulateHistograms[B, C]) clear() {
	for i := range a.cells {
		a.cells[i] = 0
	}
	a.stats = tcspcevent.HistogramStats{}
	a.timeRange = tcspcevent.TimeRange{}
	a.journal.Reset()
	a.batchIdx = 0
}

func (a *AccumulateHistograms[B, C]) Flush() error {
	if err := a.emitConcluding(true); err != nil {
		return err
	}
	a.clear()
	return a.Downstream.Flush()
}

func (a *AccumulateHistograms[B, C]) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "accumulate_histograms", Type: "AccumulateHistograms"}
}

func (a *AccumulateHistograms[B, C]) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(a.NodeInfo(), a.Downstream.Graph())
}
