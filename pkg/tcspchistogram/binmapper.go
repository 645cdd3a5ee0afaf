// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspchistogram

import (
	"math"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// BinMapper maps a raw data value to a bin index, or reports no bin
// (§4.5.7).
type BinMapper[V ~int64 | ~uint64, B tcspctypes.BinIndex] interface {
	Map(value V) (bin B, ok bool)
}

// PowerOf2BinMapper maps a DataBits-bit input to a BinBits-bit bin index
// by truncating the low (DataBits - BinBits) bits, optionally inverting
// (Flip) so the maximum input maps to bin 0.
type PowerOf2BinMapper struct {
	DataBits int
	BinBits  int
	Flip     bool
}

func (m PowerOf2BinMapper) Map(value uint64) (uint64, bool) {
	if m.BinBits > m.DataBits {
		return 0, false
	}
	if value>>uint(m.DataBits) != 0 {
		return 0, false
	}
	bin := value >> uint(m.DataBits-m.BinBits)
	if m.Flip {
		maxBin := uint64(1)<<uint(m.BinBits) - 1
		bin = maxBin - bin
	}
	return bin, true
}

// LinearBinMapper computes floor((x - Offset) / Step); out-of-range
// inputs either clamp to [0, NumBins) or report no bin, per Clamp.
type LinearBinMapper struct {
	Offset  float64
	Step    float64
	NumBins int
	Clamp   bool
}

func (m LinearBinMapper) Map(x float64) (int, bool) {
	bin := int(math.Floor((x - m.Offset) / m.Step))
	if bin < 0 {
		if !m.Clamp {
			return 0, false
		}
		return 0, true
	}
	if bin >= m.NumBins {
		if !m.Clamp {
			return 0, false
		}
		return m.NumBins - 1, true
	}
	return bin, true
}

// MapToIncrements is a processor adapting tcspcevent.DatapointEvent[V]
// values into tcspcevent.BinIncrementEvent[B] via a BinMapper-shaped
// function, dropping values with no bin; used upstream of Histogram to
// turn raw samples into bin indices (§4.5.7).
type MapToIncrements[V any, B tcspctypes.BinIndex] struct {
	Downstream tcspcpipeline.Processor
	Map        func(V) (B, bool)
}

func NewMapToIncrements[V any, B tcspctypes.BinIndex](downstream tcspcpipeline.Processor, mapFn func(V) (B, bool)) *MapToIncrements[V, B] {
	return &MapToIncrements[V, B]{Downstream: downstream, Map: mapFn}
}

func (m *MapToIncrements[V, B]) Handle(ev tcspcevent.Event) error {
	e, ok := ev.(tcspcevent.DatapointEvent[V])
	if !ok {
		return m.Downstream.Handle(ev)
	}
	bin, ok := m.Map(e.Value)
	if !ok {
		return nil
	}
	return m.Downstream.Handle(tcspcevent.BinIncrementEvent[B]{BinIndex: bin})
}

func (m *MapToIncrements[V, B]) Flush() error { return m.Downstream.Flush() }

func (m *MapToIncrements[V, B]) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "map_to_increments", Type: "MapToIncrements"}
}

func (m *MapToIncrements[V, B]) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(m.NodeInfo(), m.Downstream.Graph())
}
