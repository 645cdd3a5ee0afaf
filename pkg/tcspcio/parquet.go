// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcio

import (
	"bufio"
	"fmt"
	"os"

	pq "github.com/parquet-go/parquet-go"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// HistogramArrayRow is the long-format Parquet schema one completed
// array-of-histograms cycle is flattened into: one row per (element, bin)
// cell. Grounded on pkg/metricstore/parquetArchive.go's ParquetMetricRow
// long-format convention and its pq.NewGenericWriter/Zstd/bufio usage.
type HistogramArrayRow struct {
	CycleIndex   uint64 `parquet:"cycle_index"`
	ElementIndex int    `parquet:"element_index"`
	BinIndex     int    `parquet:"bin_index"`
	Count        uint64 `parquet:"count"`
	Total        uint64 `parquet:"total"`
	Saturated    uint64 `parquet:"saturated"`
	EndOfStream  bool   `parquet:"end_of_stream"`
}

// ParquetHistogramArraySnapshotWriter is the terminal sink persisting
// histogram_array_event/concluding_histogram_array_event streams (§4.5.5)
// as Parquet, the spec's "persist the final results" offline-analysis
// role. Every other event is ignored: this is a leaf sink, not a
// pass-through processor (§4.1's pass-through rule applies to processors
// with a further downstream; this has none).
type ParquetHistogramArraySnapshotWriter[C tcspctypes.Bin] struct {
	f  *os.File
	bw *bufio.Writer
	w  *pq.GenericWriter[HistogramArrayRow]
}

func NewParquetHistogramArraySnapshotWriter[C tcspctypes.Bin](path string) (*ParquetHistogramArraySnapshotWriter[C], error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("tcspcio: creating histogram array snapshot: %w", err)
	}
	bw := bufio.NewWriterSize(f, 1<<20)
	w := pq.NewGenericWriter[HistogramArrayRow](bw,
		pq.Compression(&pq.Zstd),
		pq.SortingWriterConfig(pq.SortingColumns(
			pq.Ascending("cycle_index"),
			pq.Ascending("element_index"),
			pq.Ascending("bin_index"),
		)),
	)
	return &ParquetHistogramArraySnapshotWriter[C]{f: f, bw: bw, w: w}, nil
}

func (p *ParquetHistogramArraySnapshotWriter[C]) Handle(ev tcspcevent.Event) error {
	switch e := ev.(type) {
	case tcspcevent.HistogramArrayEvent[C]:
		return p.writeCycle(e.Cells, e.Stats, e.CycleIndex, false)
	case tcspcevent.ConcludingHistogramArrayEvent[C]:
		return p.writeCycle(e.Cells, e.Stats, e.CycleIndex, e.IsEndOfStream)
	}
	return nil
}

func (p *ParquetHistogramArraySnapshotWriter[C]) writeCycle(cells tcspctypes.Span[C], stats []tcspcevent.HistogramStats, cycleIndex uint64, endOfStream bool) error {
	numElements := len(stats)
	if numElements == 0 {
		return nil
	}
	numBins := len(cells) / numElements

	rows := make([]HistogramArrayRow, 0, len(cells))
	for elem := 0; elem < numElements; elem++ {
		for bin := 0; bin < numBins; bin++ {
			rows = append(rows, HistogramArrayRow{
				CycleIndex:   cycleIndex,
				ElementIndex: elem,
				BinIndex:     bin,
				Count:        uint64(cells[elem*numBins+bin]),
				Total:        stats[elem].Total,
				Saturated:    stats[elem].Saturated,
				EndOfStream:  endOfStream,
			})
		}
	}

	if _, err := p.w.Write(rows); err != nil {
		return fmt.Errorf("tcspcio: writing histogram array snapshot rows: %w", err)
	}
	return nil
}

// Flush closes out the Parquet writer and flushes the underlying file,
// finalizing the snapshot. Call it once, at end of stream.
func (p *ParquetHistogramArraySnapshotWriter[C]) Flush() error {
	if err := p.w.Close(); err != nil {
		return fmt.Errorf("tcspcio: closing histogram array snapshot writer: %w", err)
	}
	if err := p.bw.Flush(); err != nil {
		return fmt.Errorf("tcspcio: flushing histogram array snapshot file: %w", err)
	}
	return p.f.Close()
}

func (p *ParquetHistogramArraySnapshotWriter[C]) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "parquet_histogram_array_snapshot", Type: "ParquetHistogramArraySnapshotWriter"}
}

func (p *ParquetHistogramArraySnapshotWriter[C]) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(p.NodeInfo(), tcspcpipeline.Graph{})
}
