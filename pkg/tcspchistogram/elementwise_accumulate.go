// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspchistogram

import (
	"fmt"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// HistogramElementwiseAccumulate combines accumulation across cycles with
// element-wise structure (§4.5.5). A cycle applies one batch to each of
// NumElements array elements in order; completing a cycle emits a
// tcspcevent.HistogramArrayEvent carrying cumulative totals. On overflow
// under Reset, the current cycle's contributions are rolled back (via the
// per-cycle batch journal), a concluding event is emitted if EmitConcluding
// is set, the array is cleared, and the failed batch starts a fresh cycle.
// Under Stop, the current cycle is rolled back and a concluding event
// marked end-of-stream is emitted. Under Error, processing halts
// immediately. Saturate is incompatible with EmitConcluding, matching the
// spec (rollback-on-overflow and "just saturate and keep going" are
// mutually exclusive concerns).
type HistogramElementwiseAccumulate[B tcspctypes.BinIndex, C tcspctypes.Bin] struct {
	Downstream     tcspcpipeline.Processor
	NumElements    int
	NumBins        int
	MaxPerBin      C
	Policy         OverflowPolicy
	EmitConcluding bool
	IsReset        func(tcspcevent.Event) bool

	cells      []C
	stats      []tcspcevent.HistogramStats
	nextElem   int
	cycleIndex uint64

	// cycleBins/cycleBatches record, for the current cycle, every bin
	// index actually incremented so far (saturated increments touch no
	// cell, so only their count is kept, per-batch, in
	// cycleBatches[i].saturated) and which element each contiguous run
	// belongs to, so a Reset/Stop overflow can roll the whole cycle back.
	// This intentionally bypasses the compact delta/count journal
	// encoding of Journal (§4.5.6): that encoding exists to bound the
	// journal's own metadata overhead, which does not matter for an
	// in-memory rollback list scoped to a single cycle, and reusing it
	// here would require reconstructing batch boundaries split by the
	// encoding's own 255-count chunking, which the encoding deliberately
	// does not make unambiguous (see DESIGN.md).
	cycleBins    []B
	cycleBatches []elementwiseBatch
}

type elementwiseBatch struct {
	elem       int
	begin, end int
	saturated  int
}

func NewHistogramElementwiseAccumulate[B tcspctypes.BinIndex, C tcspctypes.Bin](downstream tcspcpipeline.Processor, numElements, numBins int, maxPerBin C, policy OverflowPolicy, emitConcluding bool, isReset func(tcspcevent.Event) bool) (*HistogramElementwiseAccumulate[B, C], error) {
	if policy == Saturate && emitConcluding {
		return nil, fmt.Errorf("tcspchistogram: Saturate is incompatible with EmitConcluding")
	}
	return &HistogramElementwiseAccumulate[B, C]{
		Downstream:     downstream,
		NumElements:    numElements,
		NumBins:        numBins,
		MaxPerBin:      maxPerBin,
		Policy:         policy,
		EmitConcluding: emitConcluding,
		IsReset:        isReset,
		cells:          make([]C, numElements*numBins),
		stats:          make([]tcspcevent.HistogramStats, numElements),
	}, nil
}

func (h *HistogramElementwiseAccumulate[B, C]) elementSlice(elem int) []C {
	return h.cells[elem*h.NumBins : (elem+1)*h.NumBins]
}

func (h *HistogramElementwiseAccumulate[B, C]) Handle(ev tcspcevent.Event) error {
	e, ok := ev.(tcspcevent.BinIncrementBatchEvent[B])
	if !ok {
		if h.IsReset != nil && h.IsReset(ev) {
			if h.EmitConcluding {
				if err := h.emitConcludingEvent(false); err != nil {
					return err
				}
			}
			h.clearCycle()
			return h.Downstream.Handle(ev)
		}
		return h.Downstream.Handle(ev)
	}
	return h.handleBatch(e)
}

func (h *HistogramElementwiseAccumulate[B, C]) handleBatch(e tcspcevent.BinIncrementBatchEvent[B]) error {
	for {
		elem := h.nextElem
		cells := h.elementSlice(elem)
		scratch := NewJournal[B]()
		incrementedBins := make([]B, 0, len(e.BinIndices))
		var saturatedCount int
		cycleHasData := h.cycleHasData()
		overflowed := false

		for _, bin := range e.BinIndices {
			incremented, action, err := incrementCell(cells, int(bin), h.MaxPerBin, cycleHasData, h.Policy)
			if err != nil {
				return err
			}
			if action == actionRetryAfterReset || action == actionStopAfterConcluding {
				scratch.Append(0, incrementedBins)
				scratch.AppendSaturated(saturatedCount)
				h.rollbackScratch(elem, scratch)
				overflowed = true
				break
			}
			h.stats[elem].Total++
			if incremented {
				incrementedBins = append(incrementedBins, bin)
			} else {
				saturatedCount++
				h.stats[elem].Saturated++
			}
			h.stats[elem].HasData = true
			cycleHasData = true
		}

		if !overflowed {
			begin := len(h.cycleBins)
			h.cycleBins = append(h.cycleBins, incrementedBins...)
			h.cycleBatches = append(h.cycleBatches, elementwiseBatch{elem: elem, begin: begin, end: len(h.cycleBins), saturated: saturatedCount})
			if err := h.Downstream.Handle(tcspcevent.ElementHistogramEvent[C]{
				ElementIndex: elem,
				Cells:        tcspctypes.Span[C](append([]C(nil), cells...)),
				Stats:        h.stats[elem],
				CycleIndex:   h.cycleIndex,
			}); err != nil {
				return err
			}
			h.nextElem++
			if h.nextElem == h.NumElements {
				if err := h.emitArray(); err != nil {
					return err
				}
				h.startNewCycle()
			}
			return nil
		}

		switch h.Policy {
		case Reset:
			h.rollbackWholeCycle()
			if h.EmitConcluding {
				if err := h.emitConcludingEvent(false); err != nil {
					return err
				}
			}
			h.clearCycle()
			continue
		case Stop:
			h.rollbackWholeCycle()
			if h.EmitConcluding {
				if err := h.emitConcludingEvent(true); err != nil {
					return err
				}
			}
			h.clearCycle()
			return tcspcpipeline.ErrEndOfProcessing
		}
		return nil
	}
}

func (h *HistogramElementwiseAccumulate[B, C]) cycleHasData() bool {
	for _, s := range h.stats {
		if s.HasData {
			return true
		}
	}
	return false
}

// rollbackScratch undoes only what the current (failed) batch applied to
// elem before the overflow was hit.
func (h *HistogramElementwiseAccumulate[B, C]) rollbackScratch(elem int, scratch *Journal[B]) {
	Rollback(scratch, h.elementSlice(elem), &h.stats[elem])
}

// rollbackWholeCycle undoes every batch successfully committed so far in
// the current cycle, most recent first.
func (h *HistogramElementwiseAccumulate[B, C]) rollbackWholeCycle() {
	for i := len(h.cycleBatches) - 1; i >= 0; i-- {
		b := h.cycleBatches[i]
		single := &Journal[B]{bins: h.cycleBins[b.begin:b.end], saturated: b.saturated}
		Rollback(single, h.elementSlice(b.elem), &h.stats[b.elem])
	}
}

func (h *HistogramElementwiseAccumulate[B, C]) emitArray() error {
	return h.Downstream.Handle(tcspcevent.HistogramArrayEvent[C]{
		Cells:      tcspctypes.Span[C](append([]C(nil), h.cells...)),
		Stats:      append([]tcspcevent.HistogramStats(nil), h.stats...),
		CycleIndex: h.cycleIndex,
	})
}

func (h *HistogramElementwiseAccumulate[B, C]) emitConcludingEvent(endOfStream bool) error {
	return h.Downstream.Handle(tcspcevent.ConcludingHistogramArrayEvent[C]{
		Cells:         tcspctypes.Span[C](append([]C(nil), h.cells...)),
		Stats:         append([]tcspcevent.HistogramStats(nil), h.stats...),
		CycleIndex:    h.cycleIndex,
		IsEndOfStream: endOfStream,
	})
}

// startNewCycle advances to the next cycle without touching the
// accumulated cells/stats: completing a cycle normally keeps contributing
// to the running totals (ground truth
// _examples/original_source/include/flimevt/histogramming.hpp's
// multi_histogram_accumulation::new_cycle calls reset(false), i.e.
// clear_first=false). Only an explicit reset event or a Reset/Stop
// overflow clears the arrays, via clearCycle.
func (h *HistogramElementwiseAccumulate[B, C]) startNewCycle() {
	h.cycleIndex++
	h.resetCycleBookkeeping()
}

func (h *HistogramElementwiseAccumulate[B, C]) resetCycleBookkeeping() {
	h.nextElem = 0
	h.cycleBins = nil
	h.cycleBatches = nil
}

func (h *HistogramElementwiseAccumulate[B, C]) clearCycle() {
	h.resetCycleBookkeeping()
	for i := range h.cells {
		h.cells[i] = 0
	}
	for i := range h.stats {
		h.stats[i] = tcspcevent.HistogramStats{}
	}
}

func (h *HistogramElementwiseAccumulate[B, C]) Flush() error {
	if h.EmitConcluding {
		if err := h.emitConcludingEvent(true); err != nil {
			return err
		}
	}
	h.clearCycle()
	return h.Downstream.Flush()
}

func (h *HistogramElementwiseAccumulate[B, C]) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "histogram_elementwise_accumulate", Type: "HistogramElementwiseAccumulate"}
}

func (h *HistogramElementwiseAccumulate[B, C]) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(h.NodeInfo(), h.Downstream.Graph())
}
