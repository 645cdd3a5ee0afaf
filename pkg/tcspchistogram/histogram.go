// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspchistogram

import (
	"github.com/flimlab/tcspc/pkg/tcspccontext"
	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// Histogram accumulates tcspcevent.BinIncrementEvent[B] values into one
// array of NumBins cells of type C, emitting a tcspcevent.HistogramEvent
// after each increment and a tcspcevent.ConcludingHistogramEvent on Reset
// (as recognized by IsReset) or Flush (§4.5.1).
//
// MaxPerBin is a real cap, including zero: a zero MaxPerBin means every
// increment overflows immediately, matching the spec's explicit "stops
// immediately on the first increment" / "reset would loop" behavior for
// max_per_bin == 0. Callers that want no cap should pass the maximum
// value representable by C.
//
// BinIncrementEvent carries no abstime, so TimeRange on the emitted
// events stays zero-valued here; HistogramInBatches and friends populate
// it from their batch events' own TimeRange instead.
type Histogram[B tcspctypes.BinIndex, C tcspctypes.Bin] struct {
	Downstream tcspcpipeline.Processor
	NumBins    int
	MaxPerBin  C
	Policy     OverflowPolicy
	IsReset    func(tcspcevent.Event) bool

	cells     []C
	stats     tcspcevent.HistogramStats
	timeRange tcspcevent.TimeRange
}

func NewHistogram[B tcspctypes.BinIndex, C tcspctypes.Bin](downstream tcspcpipeline.Processor, numBins int, maxPerBin C, policy OverflowPolicy, isReset func(tcspcevent.Event) bool) *Histogram[B, C] {
	return &Histogram[B, C]{
		Downstream: downstream,
		NumBins:    numBins,
		MaxPerBin:  maxPerBin,
		Policy:     policy,
		IsReset:    isReset,
		cells:      make([]C, numBins),
	}
}

func (h *Histogram[B, C]) Handle(ev tcspcevent.Event) error {
	switch e := ev.(type) {
	case tcspcevent.BinIncrementEvent[B]:
		return h.handleIncrement(e)
	default:
		if h.IsReset != nil && h.IsReset(ev) {
			if err := h.emitConcluding(false); err != nil {
				return err
			}
			h.clear()
			return h.Downstream.Handle(ev)
		}
		return h.Downstream.Handle(ev)
	}
}

func (h *Histogram[B, C]) handleIncrement(e tcspcevent.BinIncrementEvent[B]) error {
	for {
		cycleHasData := h.stats.Total > 0 || h.stats.Saturated > 0
		incremented, action, err := incrementCell(h.cells, int(e.BinIndex), h.MaxPerBin, cycleHasData, h.Policy)
		if err != nil {
			return err
		}
		switch action {
		case actionRetryAfterReset:
			if err := h.emitConcluding(false); err != nil {
				return err
			}
			h.clear()
			continue
		case actionStopAfterConcluding:
			if err := h.emitConcluding(true); err != nil {
				return err
			}
			return tcspcpipeline.ErrEndOfProcessing
		default:
			h.stats.Total++
			if !incremented {
				h.stats.Saturated++
			}
			h.stats.HasData = true
			return h.emitHistogram()
		}
	}
}

func (h *Histogram[B, C]) emitHistogram() error {
	return h.Downstream.Handle(tcspcevent.HistogramEvent[C]{
		Cells:     tcspctypes.Span[C](append([]C(nil), h.cells...)),
		Stats:     h.stats,
		TimeRange: h.timeRange,
	})
}

func (h *Histogram[B, C]) emitConcluding(endOfStream bool) error {
	return h.Downstream.Handle(tcspcevent.ConcludingHistogramEvent[C]{
		Cells:         tcspctypes.Span[C](append([]C(nil), h.cells...)),
		Stats:         h.stats,
		IsEndOfStream: endOfStream,
	})
}

func (h *Histogram[B, C]) clear() {
	for i := range h.cells {
		h.cells[i] = 0
	}
	h.stats = tcspcevent.HistogramStats{}
	h.timeRange = tcspcevent.TimeRange{}
}

func (h *Histogram[B, C]) Flush() error {
	if err := h.emitConcluding(true); err != nil {
		return err
	}
	h.clear()
	return h.Downstream.Flush()
}

func (h *Histogram[B, C]) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "histogram", Type: "Histogram"}
}

func (h *Histogram[B, C]) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(h.NodeInfo(), h.Downstream.Graph())
}

// Stats returns the current accumulation's running stats. Satisfies
// Access below, letting tcspcmetrics read it through the access context
// (§4.11) the same way it reads a tcspccounting.Count's Value.
func (h *Histogram[B, C]) Stats() tcspcevent.HistogramStats { return h.stats }

// Access is what tcspccontext.Access resolves a registered Histogram's
// tracked name to: a read of its live stats, the histogram-stats
// counterpart to tcspccounting.Access's live count.
type Access interface {
	Stats() tcspcevent.HistogramStats
}

// Register tracks h under name in ctx, so external code (e.g.
// pkg/tcspcmetrics) can later resolve its live Stats by name.
func (h *Histogram[B, C]) Register(ctx *tcspccontext.Context, name string) error {
	_, err := ctx.Track(name, h)
	return err
}
