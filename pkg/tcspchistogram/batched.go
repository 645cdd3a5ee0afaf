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

// HistogramInBatches produces one independent tcspcevent.HistogramEvent
// per tcspcevent.BinIncrementBatchEvent[B], clearing cells first each
// time. Only Saturate and Error are valid policies here: Reset and Stop
// presuppose a notion of "the current histogram" spanning multiple
// batches, which this processor does not have (§4.5.2).
type HistogramInBatches[B tcspctypes.BinIndex, C tcspctypes.Bin] struct {
	Downstream tcspcpipeline.Processor
	NumBins    int
	MaxPerBin  C
	Policy     OverflowPolicy

	cells []C
}

func NewHistogramInBatches[B tcspctypes.BinIndex, C tcspctypes.Bin](downstream tcspcpipeline.Processor, numBins int, maxPerBin C, policy OverflowPolicy) (*HistogramInBatches[B, C], error) {
	if policy != Saturate && policy != Error {
		return nil, fmt.Errorf("tcspchistogram: HistogramInBatches only supports Saturate or Error, got %s", policy)
	}
	return &HistogramInBatches[B, C]{Downstream: downstream, NumBins: numBins, MaxPerBin: maxPerBin, Policy: policy, cells: make([]C, numBins)}, nil
}

func (h *HistogramInBatches[B, C]) Handle(ev tcspcevent.Event) error {
	e, ok := ev.(tcspcevent.BinIncrementBatchEvent[B])
	if !ok {
		return h.Downstream.Handle(ev)
	}
	for i := range h.cells {
		h.cells[i] = 0
	}
	var stats tcspcevent.HistogramStats
	for _, bin := range e.BinIndices {
		incremented, _, err := incrementCell(h.cells, int(bin), h.MaxPerBin, false, h.Policy)
		if err != nil {
			return err
		}
		stats.Total++
		if !incremented {
			stats.Saturated++
		}
		stats.HasData = true
	}
	return h.Downstream.Handle(tcspcevent.HistogramEvent[C]{
		Cells:     tcspctypes.Span[C](append([]C(nil), h.cells...)),
		Stats:     stats,
		TimeRange: e.TimeRange,
	})
}

func (h *HistogramInBatches[B, C]) Flush() error { return h.Downstream.Flush() }

func (h *HistogramInBatches[B, C]) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "histogram_in_batches", Type: "HistogramInBatches"}
}

func (h *HistogramInBatches[B, C]) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(h.NodeInfo(), h.Downstream.Graph())
}
