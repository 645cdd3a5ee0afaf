// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcmetrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flimlab/tcspc/pkg/tcspccontext"
	"github.com/flimlab/tcspc/pkg/tcspcevent"
)

// CounterAccess is satisfied by any access value exposing a monotonic
// running total, e.g. tcspccounting.Count[E] (§4.7 count<E>).
type CounterAccess interface {
	Value() uint64
}

// StatsAccess is satisfied by any access value exposing histogram stats,
// e.g. tcspchistogram.Histogram (§4.5).
type StatsAccess interface {
	Stats() tcspcevent.HistogramStats
}

// ElementStatsAccess is satisfied by any access value exposing
// per-element histogram stats, e.g. tcspchistogram.HistogramElementwise
// (§4.5.5).
type ElementStatsAccess interface {
	ElementStats(elem int) tcspcevent.HistogramStats
	NumElementsRegistered() int
}

// Exporter registers Prometheus collectors that read live access-context
// values by name.
type Exporter struct {
	ctx      *tcspccontext.Context
	registry *prometheus.Registry
}

// NewExporter returns an Exporter resolving names against ctx.
func NewExporter(ctx *tcspccontext.Context) *Exporter {
	return &Exporter{ctx: ctx, registry: prometheus.NewRegistry()}
}

// Registry returns the collector registry every Register* call
// populates, for wiring into an HTTP handler (promhttp.HandlerFor) or a
// push gateway.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// RegisterCounter resolves name in the access context as a CounterAccess
// and registers a CounterFunc tracking its live value under opts,
// returning the collector for callers that want a direct handle (e.g. to
// read it without a scrape round trip in tests).
func (e *Exporter) RegisterCounter(name string, opts prometheus.CounterOpts) (prometheus.CounterFunc, error) {
	access, err := tcspccontext.Access[CounterAccess](e.ctx, name)
	if err != nil {
		return nil, fmt.Errorf("tcspcmetrics: %w", err)
	}
	cf := prometheus.NewCounterFunc(opts, func() float64 { return float64(access.Value()) })
	if err := e.registry.Register(cf); err != nil {
		return nil, fmt.Errorf("tcspcmetrics: registering counter %q: %w", opts.Name, err)
	}
	return cf, nil
}

// RegisterHistogramStats resolves name in the access context as a
// StatsAccess and registers a total/saturated GaugeFunc pair,
// distinguished by a "field" const label, tracking the live stats of a
// Histogram registered under name. The returned map is keyed by field.
func (e *Exporter) RegisterHistogramStats(name string, opts prometheus.GaugeOpts) (map[string]prometheus.GaugeFunc, error) {
	access, err := tcspccontext.Access[StatsAccess](e.ctx, name)
	if err != nil {
		return nil, fmt.Errorf("tcspcmetrics: %w", err)
	}
	gauges := make(map[string]prometheus.GaugeFunc, 2)
	for _, field := range []string{"total", "saturated"} {
		field := field
		fieldOpts := opts
		fieldOpts.ConstLabels = mergeLabels(opts.ConstLabels, prometheus.Labels{"field": field})
		gf := prometheus.NewGaugeFunc(fieldOpts, func() float64 {
			stats := access.Stats()
			if field == "saturated" {
				return float64(stats.Saturated)
			}
			return float64(stats.Total)
		})
		if err := e.registry.Register(gf); err != nil {
			return nil, fmt.Errorf("tcspcmetrics: registering histogram gauge %q (%s): %w", opts.Name, field, err)
		}
		gauges[field] = gf
	}
	return gauges, nil
}

// RegisterHistogramElementStats resolves name in the access context as an
// ElementStatsAccess and registers one total/saturated gauge pair per
// element, labeled "element" and "field". The returned map is keyed
// "<element>/<field>".
func (e *Exporter) RegisterHistogramElementStats(name string, opts prometheus.GaugeOpts) (map[string]prometheus.GaugeFunc, error) {
	access, err := tcspccontext.Access[ElementStatsAccess](e.ctx, name)
	if err != nil {
		return nil, fmt.Errorf("tcspcmetrics: %w", err)
	}
	gauges := make(map[string]prometheus.GaugeFunc)
	for elem := 0; elem < access.NumElementsRegistered(); elem++ {
		elem := elem
		for _, field := range []string{"total", "saturated"} {
			field := field
			fieldOpts := opts
			fieldOpts.ConstLabels = mergeLabels(opts.ConstLabels, prometheus.Labels{
				"element": fmt.Sprintf("%d", elem),
				"field":   field,
			})
			gf := prometheus.NewGaugeFunc(fieldOpts, func() float64 {
				stats := access.ElementStats(elem)
				if field == "saturated" {
					return float64(stats.Saturated)
				}
				return float64(stats.Total)
			})
			if err := e.registry.Register(gf); err != nil {
				return nil, fmt.Errorf("tcspcmetrics: registering element histogram gauge %q (elem %d, %s): %w", opts.Name, elem, field, err)
			}
			gauges[fmt.Sprintf("%d/%s", elem, field)] = gf
		}
	}
	return gauges, nil
}

func mergeLabels(a, b prometheus.Labels) prometheus.Labels {
	merged := make(prometheus.Labels, len(a)+len(b))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range b {
		merged[k] = v
	}
	return merged
}
