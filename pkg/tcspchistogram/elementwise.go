// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspchistogram

import (
	"fmt"

	"github.com/flimlab/tcspc/pkg/tcspccontext"
	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// HistogramElementwise maintains NumElements histograms of NumBins cells
// each in one contiguous array. Each received batch targets the next
// element in round-robin order; after applying it, emits
// tcspcevent.ElementHistogramEvent for that element, and once the array
// is full (cycle complete) emits tcspcevent.HistogramArrayEvent for the
// whole array and starts a new cycle. Only Saturate and Error are valid
// (§4.5.4).
type HistogramElementwise[B tcspctypes.BinIndex, C tcspctypes.Bin] struct {
	Downstream  tcspcpipeline.Processor
	NumElements int
	NumBins     int
	MaxPerBin   C
	Policy      OverflowPolicy

	cells      []C // NumElements * NumBins, contiguous
	stats      []tcspcevent.HistogramStats
	nextElem   int
	cycleIndex uint64
}

func NewHistogramElementwise[B tcspctypes.BinIndex, C tcspctypes.Bin](downstream tcspcpipeline.Processor, numElements, numBins int, maxPerBin C, policy OverflowPolicy) (*HistogramElementwise[B, C], error) {
	if policy != Saturate && policy != Error {
		return nil, fmt.Errorf("tcspchistogram: HistogramElementwise only supports Saturate or Error, got %s", policy)
	}
	return &HistogramElementwise[B, C]{
		Downstream:  downstream,
		NumElements: numElements,
		NumBins:     numBins,
		MaxPerBin:   maxPerBin,
		Policy:      policy,
		cells:       make([]C, numElements*numBins),
		stats:       make([]tcspcevent.HistogramStats, numElements),
	}, nil
}

func (h *HistogramElementwise[B, C]) elementSlice(elem int) []C {
	return h.cells[elem*h.NumBins : (elem+1)*h.NumBins]
}

func (h *HistogramElementwise[B, C]) Handle(ev tcspcevent.Event) error {
	e, ok := ev.(tcspcevent.BinIncrementBatchEvent[B])
	if !ok {
		return h.Downstream.Handle(ev)
	}

	elem := h.nextElem
	cells := h.elementSlice(elem)
	var stats tcspcevent.HistogramStats
	for _, bin := range e.BinIndices {
		incremented, _, err := incrementCell(cells, int(bin), h.MaxPerBin, false, h.Policy)
		if err != nil {
			return err
		}
		stats.Total++
		if !incremented {
			stats.Saturated++
		}
		stats.HasData = true
	}
	h.stats[elem] = stats

	if err := h.Downstream.Handle(tcspcevent.ElementHistogramEvent[C]{
		ElementIndex: elem,
		Cells:        tcspctypes.Span[C](append([]C(nil), cells...)),
		Stats:        stats,
		CycleIndex:   h.cycleIndex,
	}); err != nil {
		return err
	}

	h.nextElem++
	if h.nextElem == h.NumElements {
		if err := h.emitArray(); err != nil {
			return err
		}
		h.nextElem = 0
		h.cycleIndex++
		for i := range h.cells {
			h.cells[i] = 0
		}
		for i := range h.stats {
			h.stats[i] = tcspcevent.HistogramStats{}
		}
	}
	return nil
}

func (h *HistogramElementwise[B, C]) emitArray() error {
	return h.Downstream.Handle(tcspcevent.HistogramArrayEvent[C]{
		Cells:      tcspctypes.Span[C](append([]C(nil), h.cells...)),
		Stats:      append([]tcspcevent.HistogramStats(nil), h.stats...),
		CycleIndex: h.cycleIndex,
	})
}

func (h *HistogramElementwise[B, C]) Flush() error { return h.Downstream.Flush() }

func (h *HistogramElementwise[B, C]) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "histogram_elementwise", Type: "HistogramElementwise"}
}

func (h *HistogramElementwise[B, C]) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(h.NodeInfo(), h.Downstream.Graph())
}

// ElementStats returns the running stats for the given element of the
// current (incomplete) cycle. Satisfies ElementAccess for a single
// element, letting tcspcmetrics expose per-element gauges.
func (h *HistogramElementwise[B, C]) ElementStats(elem int) tcspcevent.HistogramStats {
	return h.stats[elem]
}

// NumElementsRegistered returns NumElements, so a caller resolving this
// processor through the access context knows how many elements to read
// via ElementStats without a second lookup.
func (h *HistogramElementwise[B, C]) NumElementsRegistered() int { return h.NumElements }

// ElementAccess is what tcspccontext.Access resolves a registered
// HistogramElementwise's tracked name to: per-element stats reads, the
// array analogue of Access for a plain Histogram.
type ElementAccess interface {
	ElementStats(elem int) tcspcevent.HistogramStats
	NumElementsRegistered() int
}

// Register tracks h under name in ctx, so external code (e.g.
// pkg/tcspcmetrics) can later resolve its live per-element stats by name.
func (h *HistogramElementwise[B, C]) Register(ctx *tcspccontext.Context, name string) error {
	_, err := ctx.Track(name, h)
	return err
}
