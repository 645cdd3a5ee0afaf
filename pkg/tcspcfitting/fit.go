// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspcfitting implements the periodic-sequence fitting and
// re-timing processors of §4.9: an ordinary-least-squares line fit over
// a window of same-typed events, re-timing/extrapolation/conversion of
// the resulting model event, and conversion of a tick sequence into
// back-to-back start/stop pairs. Grounded on pkg/resampler's LTTB
// downsampling math (SPEC_FULL.md) for the "small numeric routine"
// package shape.
package tcspcfitting

import (
	"fmt"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// abstimeOf extracts the abstime from any of the cataloged
// abstime-carrying event types. Every event type this package fits
// against has one; a type that doesn't is a caller error.
func abstimeOf(ev tcspcevent.Event) (tcspctypes.Abstime, bool) {
	switch e := ev.(type) {
	case tcspcevent.DetectionEvent:
		return e.Abstime, true
	case tcspcevent.TimeCorrelatedDetectionEvent:
		return e.Abstime, true
	case tcspcevent.MarkerEvent:
		return e.Abstime, true
	case tcspcevent.TimeReachedEvent:
		return e.Abstime, true
	case tcspcevent.UntaggedCountsEvent:
		return e.Abstime, true
	case tcspcevent.DataLostEvent:
		return e.Abstime, true
	default:
		return 0, false
	}
}

// FitPeriodicSequences collects Length events matching IsMember, and on
// the Length-th fits a line abstime ~= intercept + slope*k (k the
// 0-based position within the window) by ordinary least squares,
// emitting a tcspcevent.PeriodicSequenceEvent (§4.9
// fit_periodic_sequences). Matched events are consumed; everything
// else passes through unchanged.
type FitPeriodicSequences struct {
	Downstream  tcspcpipeline.Processor
	IsMember    func(tcspcevent.Event) bool
	Length      int
	MinInterval float64
	MaxInterval float64
	MaxMSE      float64

	buf []tcspctypes.Abstime
}

func NewFitPeriodicSequences(downstream tcspcpipeline.Processor, isMember func(tcspcevent.Event) bool, length int, minInterval, maxInterval, maxMSE float64) (*FitPeriodicSequences, error) {
	if length < 3 {
		return nil, fmt.Errorf("tcspcfitting: length must be >= 3 to fit mse (n-2 degrees of freedom), got %d", length)
	}
	return &FitPeriodicSequences{
		Downstream:  downstream,
		IsMember:    isMember,
		Length:      length,
		MinInterval: minInterval,
		MaxInterval: maxInterval,
		MaxMSE:      maxMSE,
	}, nil
}

func (f *FitPeriodicSequences) Handle(ev tcspcevent.Event) error {
	if !f.IsMember(ev) {
		return f.Downstream.Handle(ev)
	}
	at, ok := abstimeOf(ev)
	if !ok {
		return fmt.Errorf("%w: fit_periodic_sequences member event has no abstime", tcspcpipeline.ErrDataValidation)
	}
	f.buf = append(f.buf, at)
	if len(f.buf) < f.Length {
		return nil
	}

	offset := f.MaxInterval + 10
	intercept, slope, mse := olsFit(f.buf, offset)
	if mse > f.MaxMSE {
		return fmt.Errorf("%w: periodic sequence fit mse %g exceeds max %g", tcspcpipeline.ErrDataValidation, mse, f.MaxMSE)
	}
	if slope < f.MinInterval || slope > f.MaxInterval {
		return fmt.Errorf("%w: periodic sequence fit slope %g outside [%g,%g]", tcspcpipeline.ErrDataValidation, slope, f.MinInterval, f.MaxInterval)
	}

	first := f.buf[0]
	last := f.buf[len(f.buf)-1]
	// intercept/slope were fit in (k, abstime-first+offset) space;
	// project the model one step past the window (k = Length) and
	// express the result relative to the last-seen abstime, so
	// downstream only ever needs "last abstime + delay + interval*k".
	delay := float64(first-last) + (intercept - offset) + slope*float64(f.Length)

	f.buf = nil
	return f.Downstream.Handle(tcspcevent.PeriodicSequenceEvent{
		Abstime:  last,
		Delay:    delay,
		Interval: slope,
	})
}

// olsFit fits offsets[k] ~= intercept + slope*k by ordinary least
// squares, where offsets[k] = (abstime[k]-abstime[0]) + subnormalGuard
// is computed relative to the first event's abstime plus a fixed
// offset to keep values away from float64 subnormal range (§4.9's
// numeric guard). Adding a constant to every offset shifts only the
// fitted intercept, never the slope or the residuals, so the guard is
// undone exactly by the caller when it subtracts it back out. mse is
// the residual variance estimate SSE/(n-2), matching the spec's worked
// example (Wikipedia's x=1..4, y=6,5,7,10 OLS fit: slope 1.4,
// mse ~= 2.1 = 4.2/(4-2)).
func olsFit(abstimes []tcspctypes.Abstime, subnormalGuard float64) (intercept, slope, mse float64) {
	n := float64(len(abstimes))
	first := abstimes[0]

	var sumX, sumY, sumXY, sumXX float64
	ys := make([]float64, len(abstimes))
	for k, at := range abstimes {
		y := float64(at-first) + subnormalGuard
		ys[k] = y
		x := float64(k)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	slope = (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
	intercept = (sumY - slope*sumX) / n

	var sse float64
	for k, y := range ys {
		resid := y - (intercept + slope*float64(k))
		sse += resid * resid
	}
	mse = sse / (n - 2)
	return intercept, slope, mse
}
