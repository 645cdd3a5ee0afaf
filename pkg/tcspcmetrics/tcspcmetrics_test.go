// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/flimlab/tcspc/pkg/tcspccontext"
	"github.com/flimlab/tcspc/pkg/tcspccounting"
	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspchistogram"
	"github.com/flimlab/tcspc/pkg/tcspctest"
)

func TestRegisterCounterTracksLiveCount(t *testing.T) {
	ctx := tcspccontext.NewContext()
	sink := tcspctest.NewCaptureSink()
	count, err := tcspccounting.NewCount[tcspcevent.DetectionEvent](sink, ctx, "detections")
	require.NoError(t, err)

	require.NoError(t, count.Handle(tcspcevent.DetectionEvent{}))
	require.NoError(t, count.Handle(tcspcevent.DetectionEvent{}))
	require.NoError(t, count.Handle(tcspcevent.TimeReachedEvent{}))

	exporter := NewExporter(ctx)
	cf, err := exporter.RegisterCounter("detections", prometheus.CounterOpts{
		Name: "tcspc_detections_total",
		Help: "total detection events seen",
	})
	require.NoError(t, err)
	require.Equal(t, float64(2), testutil.ToFloat64(cf))

	require.NoError(t, count.Handle(tcspcevent.DetectionEvent{}))
	require.Equal(t, float64(3), testutil.ToFloat64(cf), "GaugeFunc/CounterFunc reads live, not a snapshot")
}

func TestRegisterCounterUnknownNameErrors(t *testing.T) {
	exporter := NewExporter(tcspccontext.NewContext())
	_, err := exporter.RegisterCounter("missing", prometheus.CounterOpts{Name: "x"})
	require.Error(t, err)
}

func TestRegisterCounterWrongAccessShapeErrors(t *testing.T) {
	ctx := tcspccontext.NewContext()
	sink := tcspctest.NewCaptureSink()
	h := tcspchistogram.NewHistogram[uint16, uint32](sink, 4, 100, tcspchistogram.Saturate, nil)
	require.NoError(t, h.Register(ctx, "hist"))

	// hist satisfies tcspchistogram.Access (Stats), not CounterAccess
	// (Value), so resolving it as a counter must fail.
	exporter := NewExporter(ctx)
	_, err := exporter.RegisterCounter("hist", prometheus.CounterOpts{Name: "x"})
	require.Error(t, err)
}

func TestRegisterHistogramStatsTracksLiveTotals(t *testing.T) {
	ctx := tcspccontext.NewContext()
	sink := tcspctest.NewCaptureSink()
	h := tcspchistogram.NewHistogram[uint16, uint32](sink, 4, 2, tcspchistogram.Saturate, nil)
	require.NoError(t, h.Register(ctx, "hist"))

	require.NoError(t, h.Handle(tcspcevent.BinIncrementEvent[uint16]{BinIndex: 0}))
	require.NoError(t, h.Handle(tcspcevent.BinIncrementEvent[uint16]{BinIndex: 0}))
	require.NoError(t, h.Handle(tcspcevent.BinIncrementEvent[uint16]{BinIndex: 0})) // saturates at MaxPerBin=2

	exporter := NewExporter(ctx)
	gauges, err := exporter.RegisterHistogramStats("hist", prometheus.GaugeOpts{
		Name: "tcspc_histogram_bins",
		Help: "histogram bin totals",
	})
	require.NoError(t, err)

	// Total counts every increment seen, including the saturated one.
	require.Equal(t, float64(3), testutil.ToFloat64(gauges["total"]))
	require.Equal(t, float64(1), testutil.ToFloat64(gauges["saturated"]))
}

func TestRegisterHistogramElementStatsTracksPerElement(t *testing.T) {
	ctx := tcspccontext.NewContext()
	sink := tcspctest.NewCaptureSink()
	h, err := tcspchistogram.NewHistogramElementwise[uint16, uint32](sink, 2, 4, 10, tcspchistogram.Saturate)
	require.NoError(t, err)
	require.NoError(t, h.Register(ctx, "elems"))

	require.NoError(t, h.Handle(tcspcevent.BinIncrementBatchEvent[uint16]{BinIndices: []uint16{0, 1, 1}}))

	exporter := NewExporter(ctx)
	gauges, err := exporter.RegisterHistogramElementStats("elems", prometheus.GaugeOpts{
		Name: "tcspc_element_histogram_bins",
	})
	require.NoError(t, err)

	require.Equal(t, float64(3), testutil.ToFloat64(gauges["0/total"]))
	require.Equal(t, float64(0), testutil.ToFloat64(gauges["0/saturated"]))
}

func TestRegistryGatherIncludesRegisteredMetrics(t *testing.T) {
	ctx := tcspccontext.NewContext()
	sink := tcspctest.NewCaptureSink()
	count, err := tcspccounting.NewCount[tcspcevent.DetectionEvent](sink, ctx, "detections")
	require.NoError(t, err)
	require.NoError(t, count.Handle(tcspcevent.DetectionEvent{}))

	exporter := NewExporter(ctx)
	_, err = exporter.RegisterCounter("detections", prometheus.CounterOpts{Name: "tcspc_detections_total"})
	require.NoError(t, err)

	families, err := exporter.Registry().Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Equal(t, "tcspc_detections_total", families[0].GetName())
}
