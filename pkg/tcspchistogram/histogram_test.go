// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspchistogram

import (
	"testing"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctest"
	"github.com/stretchr/testify/require"
)

func TestHistogramSaturatePolicy(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	h := NewHistogram[uint32, uint64](sink, 4, 2, Saturate, nil)

	require.NoError(t, h.Handle(tcspcevent.BinIncrementEvent[uint32]{BinIndex: 0}))
	require.NoError(t, h.Handle(tcspcevent.BinIncrementEvent[uint32]{BinIndex: 0}))
	require.NoError(t, h.Handle(tcspcevent.BinIncrementEvent[uint32]{BinIndex: 0}))

	last := sink.Events[len(sink.Events)-1].(tcspcevent.HistogramEvent[uint64])
	require.Equal(t, uint64(2), last.Cells[0])
	require.EqualValues(t, 1, last.Stats.Saturated)
	// Total counts every increment seen, including the saturated one
	// (§3.3: Total == sum(cells) + Saturated), not just the ones that
	// landed in a cell.
	require.EqualValues(t, 3, last.Stats.Total)
}

// TestHistogramSaturatingSequenceS3 runs spec scenario S3: bins [0, 1, 0,
// 0, 1, 1, 1] into 2 bins capped at 2, then a reset, then one more
// increment, then flush.
func TestHistogramSaturatingSequenceS3(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	isReset := func(ev tcspcevent.Event) bool {
		_, ok := ev.(tcspcevent.MarkerEvent)
		return ok
	}
	h := NewHistogram[uint32, uint64](sink, 2, 2, Saturate, isReset)

	bins := []uint32{0, 1, 0, 0, 1, 1, 1}
	for _, b := range bins {
		require.NoError(t, h.Handle(tcspcevent.BinIncrementEvent[uint32]{BinIndex: b}))
	}

	wantCells := [][2]uint64{{1, 0}, {1, 1}, {2, 1}, {2, 1}, {2, 2}, {2, 2}, {2, 2}}
	wantTotal := []uint64{1, 2, 3, 4, 5, 6, 7}
	wantSaturated := []uint64{0, 0, 0, 1, 1, 2, 3}
	require.Len(t, sink.Events, len(bins))
	for i, ev := range sink.Events {
		he := ev.(tcspcevent.HistogramEvent[uint64])
		require.Equal(t, wantCells[i][0], he.Cells[0], "increment %d", i)
		require.Equal(t, wantCells[i][1], he.Cells[1], "increment %d", i)
		require.Equal(t, wantTotal[i], he.Stats.Total, "increment %d", i)
		require.Equal(t, wantSaturated[i], he.Stats.Saturated, "increment %d", i)
		require.Equal(t, wantTotal[i], he.Stats.Saturated+he.Cells[0]+he.Cells[1], "invariant: total == sum(cells)+saturated at step %d", i)
	}
	sink.Events = nil

	require.NoError(t, h.Handle(tcspcevent.MarkerEvent{Abstime: 1, Channel: 0}))
	concluding := sink.Events[0].(tcspcevent.ConcludingHistogramEvent[uint64])
	require.Equal(t, uint64(2), concluding.Cells[0])
	require.Equal(t, uint64(2), concluding.Cells[1])
	require.EqualValues(t, 7, concluding.Stats.Total)
	require.EqualValues(t, 3, concluding.Stats.Saturated)
	require.True(t, concluding.Stats.HasData)
	require.False(t, concluding.IsEndOfStream)
	sink.Events = nil

	require.NoError(t, h.Handle(tcspcevent.BinIncrementEvent[uint32]{BinIndex: 0}))
	afterReset := sink.Events[0].(tcspcevent.HistogramEvent[uint64])
	require.Equal(t, uint64(1), afterReset.Cells[0])
	require.Equal(t, uint64(0), afterReset.Cells[1])
	require.EqualValues(t, 1, afterReset.Stats.Total)
	sink.Events = nil

	require.NoError(t, h.Flush())
	final := sink.Events[len(sink.Events)-1].(tcspcevent.ConcludingHistogramEvent[uint64])
	require.True(t, final.IsEndOfStream)
}

func TestHistogramErrorPolicy(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	h := NewHistogram[uint32, uint64](sink, 4, 1, Error, nil)

	require.NoError(t, h.Handle(tcspcevent.BinIncrementEvent[uint32]{BinIndex: 0}))
	err := h.Handle(tcspcevent.BinIncrementEvent[uint32]{BinIndex: 0})
	require.ErrorIs(t, err, tcspcpipeline.ErrHistogramOverflow)
}

func TestHistogramResetPolicyEmitsConcludingAndRetries(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	h := NewHistogram[uint32, uint64](sink, 4, 1, Reset, nil)

	require.NoError(t, h.Handle(tcspcevent.BinIncrementEvent[uint32]{BinIndex: 0}))
	// second increment to the same, now-full bin triggers the reset.
	require.NoError(t, h.Handle(tcspcevent.BinIncrementEvent[uint32]{BinIndex: 0}))

	var concluding int
	for _, ev := range sink.Events {
		if _, ok := ev.(tcspcevent.ConcludingHistogramEvent[uint64]); ok {
			concluding++
		}
	}
	require.Equal(t, 1, concluding)

	last := sink.Events[len(sink.Events)-1].(tcspcevent.HistogramEvent[uint64])
	require.Equal(t, uint64(1), last.Cells[0])
}

func TestHistogramResetMaxPerBinZeroLoops(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	h := NewHistogram[uint32, uint64](sink, 4, 0, Reset, nil)

	err := h.Handle(tcspcevent.BinIncrementEvent[uint32]{BinIndex: 0})
	require.ErrorIs(t, err, ErrOverflowLoop)
}

func TestHistogramStopPolicyHaltsCleanly(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	h := NewHistogram[uint32, uint64](sink, 4, 1, Stop, nil)

	require.NoError(t, h.Handle(tcspcevent.BinIncrementEvent[uint32]{BinIndex: 0}))
	err := h.Handle(tcspcevent.BinIncrementEvent[uint32]{BinIndex: 0})
	require.ErrorIs(t, err, tcspcpipeline.ErrEndOfProcessing)

	last := sink.Events[len(sink.Events)-1].(tcspcevent.ConcludingHistogramEvent[uint64])
	require.True(t, last.IsEndOfStream)
}

func TestHistogramResetEventClearsAndForwards(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	isReset := func(ev tcspcevent.Event) bool {
		_, ok := ev.(tcspcevent.MarkerEvent)
		return ok
	}
	h := NewHistogram[uint32, uint64](sink, 4, 100, Saturate, isReset)

	require.NoError(t, h.Handle(tcspcevent.BinIncrementEvent[uint32]{BinIndex: 0}))
	require.NoError(t, h.Handle(tcspcevent.MarkerEvent{Abstime: 1, Channel: 0}))
	require.NoError(t, h.Handle(tcspcevent.BinIncrementEvent[uint32]{BinIndex: 0}))

	// Events: histogram, concluding (emitted by the reset), marker, histogram.
	require.Equal(t, tcspcevent.MarkerEvent{Abstime: 1, Channel: 0}, sink.Events[2])
	last := sink.Events[len(sink.Events)-1].(tcspcevent.HistogramEvent[uint64])
	require.Equal(t, uint64(1), last.Cells[0])
}

func TestHistogramInBatchesIndependentPerBatch(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	h, err := NewHistogramInBatches[uint32, uint64](sink, 4, 100, Saturate)
	require.NoError(t, err)

	require.NoError(t, h.Handle(tcspcevent.BinIncrementBatchEvent[uint32]{BinIndices: []uint32{0, 0, 1}}))
	require.NoError(t, h.Handle(tcspcevent.BinIncrementBatchEvent[uint32]{BinIndices: []uint32{2}}))

	first := sink.Events[0].(tcspcevent.HistogramEvent[uint64])
	require.Equal(t, uint64(2), first.Cells[0])

	second := sink.Events[1].(tcspcevent.HistogramEvent[uint64])
	require.Equal(t, uint64(0), second.Cells[0])
	require.Equal(t, uint64(1), second.Cells[2])
}

func TestAccumulateHistogramsAccumulatesAcrossBatches(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	a := NewAccumulateHistograms[uint32, uint64](sink, 4, 100, Saturate, nil)

	require.NoError(t, a.Handle(tcspcevent.BinIncrementBatchEvent[uint32]{BinIndices: []uint32{0, 1}}))
	require.NoError(t, a.Handle(tcspcevent.BinIncrementBatchEvent[uint32]{BinIndices: []uint32{0}}))

	last := sink.Events[len(sink.Events)-1].(tcspcevent.HistogramEvent[uint64])
	require.Equal(t, uint64(2), last.Cells[0])
	require.Equal(t, uint64(1), last.Cells[1])
}

func TestAccumulateHistogramsRollsBackAtomicallyOnReset(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	a := NewAccumulateHistograms[uint32, uint64](sink, 4, 1, Reset, nil)

	require.NoError(t, a.Handle(tcspcevent.BinIncrementBatchEvent[uint32]{BinIndices: []uint32{0}}))
	// bin 0 is already at capacity, forcing a reset; the retried batch
	// (against a freshly cleared array) then commits cleanly.
	require.NoError(t, a.Handle(tcspcevent.BinIncrementBatchEvent[uint32]{BinIndices: []uint32{0, 1}}))

	var concluding int
	for _, ev := range sink.Events {
		if _, ok := ev.(tcspcevent.ConcludingHistogramEvent[uint64]); ok {
			concluding++
		}
	}
	require.Equal(t, 1, concluding)

	last := sink.Events[len(sink.Events)-1].(tcspcevent.HistogramEvent[uint64])
	require.Equal(t, uint64(1), last.Cells[0])
	require.Equal(t, uint64(1), last.Cells[1])
}

func TestHistogramElementwiseCompletesCycle(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	h, err := NewHistogramElementwise[uint32, uint64](sink, 2, 4, 100, Saturate)
	require.NoError(t, err)

	require.NoError(t, h.Handle(tcspcevent.BinIncrementBatchEvent[uint32]{BinIndices: []uint32{0}}))
	require.NoError(t, h.Handle(tcspcevent.BinIncrementBatchEvent[uint32]{BinIndices: []uint32{1}}))

	var arrayEvents int
	for _, ev := range sink.Events {
		if _, ok := ev.(tcspcevent.HistogramArrayEvent[uint64]); ok {
			arrayEvents++
		}
	}
	require.Equal(t, 1, arrayEvents)
}

func TestHistogramElementwiseAccumulateRollsBackCycleOnReset(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	// Two elements per cycle, bin 0 capped at 1: cycle 0 commits cleanly
	// (elem 0 then elem 1), each cell reaching 1. Accumulation carries the
	// cells into cycle 1 unreset (ground truth's new_cycle does not clear
	// the array). Cycle 1's first batch (elem 0, bin 0) succeeds since
	// that particular bin is still free; its second batch (elem 1, bin 0)
	// immediately overflows bin 0's already-cumulative cell, which must
	// roll back elem 0's already-committed (but not yet emitted as an
	// array) contribution to cycle 1 before the array is cleared and the
	// failed batch is retried as the first batch of a fresh cycle.
	h, err := NewHistogramElementwiseAccumulate[uint32, uint64](sink, 2, 2, 1, Reset, true, nil)
	require.NoError(t, err)

	require.NoError(t, h.Handle(tcspcevent.BinIncrementBatchEvent[uint32]{BinIndices: []uint32{0}})) // cycle0 elem0
	require.NoError(t, h.Handle(tcspcevent.BinIncrementBatchEvent[uint32]{BinIndices: []uint32{0}})) // cycle0 elem1, completes cycle0
	require.NoError(t, h.Handle(tcspcevent.BinIncrementBatchEvent[uint32]{BinIndices: []uint32{1}})) // cycle1 elem0, cumulative
	require.NoError(t, h.Handle(tcspcevent.BinIncrementBatchEvent[uint32]{BinIndices: []uint32{0}})) // cycle1 elem1, overflows bin0

	var concluding []tcspcevent.ConcludingHistogramArrayEvent[uint64]
	var arrays []tcspcevent.HistogramArrayEvent[uint64]
	for _, ev := range sink.Events {
		switch e := ev.(type) {
		case tcspcevent.ConcludingHistogramArrayEvent[uint64]:
			concluding = append(concluding, e)
		case tcspcevent.HistogramArrayEvent[uint64]:
			arrays = append(arrays, e)
		}
	}
	require.Len(t, concluding, 1)
	require.Len(t, arrays, 1)

	// Cycle 0's array: elem0 bin0 = 1, elem1 bin0 = 1.
	require.Equal(t, uint64(1), arrays[0].Cells[0])
	require.Equal(t, uint64(1), arrays[0].Cells[2])

	// The concluding event fires after the roll-back: elem0's cycle1 bin1
	// increment is gone, only the completed cycle0 totals remain.
	require.Equal(t, uint64(1), concluding[0].Cells[0]) // elem0 bin0, carried from cycle0
	require.Equal(t, uint64(0), concluding[0].Cells[1]) // elem0 bin1, cycle1's own (rolled back)
	require.Equal(t, uint64(1), concluding[0].Cells[2]) // elem1 bin0, carried from cycle0
	require.False(t, concluding[0].IsEndOfStream)

	// After the roll-back, clear, and retry, the last batch starts a fresh
	// cycle at elem 0 against an all-zero array.
	last := sink.Events[len(sink.Events)-1].(tcspcevent.ElementHistogramEvent[uint64])
	require.Equal(t, 0, last.ElementIndex)
	require.Equal(t, uint64(1), last.Cells[0])
	require.Equal(t, uint64(0), last.Cells[1])
	require.EqualValues(t, 1, last.Stats.Total)
}

func TestJournalEncodeDecodeRoundTrip(t *testing.T) {
	j := NewJournal[uint32]()
	j.Append(0, []uint32{1, 2, 3})
	j.Append(2, []uint32{4})

	entries := j.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, uint64(0), entries[0].BatchIndex)
	require.Equal(t, []uint32{1, 2, 3}, j.Bins()[entries[0].Begin:entries[0].End])
	require.Equal(t, uint64(2), entries[1].BatchIndex)
	require.Equal(t, []uint32{4}, j.Bins()[entries[1].Begin:entries[1].End])
}

func TestJournalRollback(t *testing.T) {
	j := NewJournal[uint32]()
	j.Append(0, []uint32{0, 0, 1})

	cells := []uint64{2, 1}
	stats := tcspcevent.HistogramStats{Total: 3}
	Rollback(j, cells, &stats)

	require.Equal(t, uint64(0), cells[0])
	require.Equal(t, uint64(0), cells[1])
	require.EqualValues(t, 0, stats.Total)
}

func TestPowerOf2BinMapper(t *testing.T) {
	m := PowerOf2BinMapper{DataBits: 8, BinBits: 4}
	bin, ok := m.Map(0b10110011)
	require.True(t, ok)
	require.Equal(t, uint64(0b1011), bin)

	_, ok = m.Map(1 << 8)
	require.False(t, ok)
}

func TestLinearBinMapperClamp(t *testing.T) {
	m := LinearBinMapper{Offset: 0, Step: 1, NumBins: 4, Clamp: true}
	bin, ok := m.Map(-5)
	require.True(t, ok)
	require.Equal(t, 0, bin)

	bin, ok = m.Map(10)
	require.True(t, ok)
	require.Equal(t, 3, bin)
}
