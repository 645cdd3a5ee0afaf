// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcfitting

import (
	"errors"
	"math"
	"testing"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctest"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
	"github.com/stretchr/testify/require"
)

func isDetection(ev tcspcevent.Event) bool {
	_, ok := ev.(tcspcevent.DetectionEvent)
	return ok
}

// TestFitPeriodicSequencesWikipediaExample replicates the spec's cited
// worked example: abstime 6,5,7,10 fits to slope (interval) 1.4 with
// mse 2.1 (= SSE/(n-2), the classic OLS worked example from Wikipedia's
// simple-linear-regression article).
func TestFitPeriodicSequencesWikipediaExample(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	f, err := NewFitPeriodicSequences(sink, isDetection, 4, 0, 10, 3.0)
	require.NoError(t, err)

	for _, at := range []int64{6, 5, 7, 10} {
		require.NoError(t, f.Handle(tcspcevent.DetectionEvent{Abstime: tcspctypes.Abstime(at)}))
	}

	require.Len(t, sink.Events, 1)
	model := sink.Events[0].(tcspcevent.PeriodicSequenceEvent)
	require.Equal(t, int64(10), int64(model.Abstime))
	require.InDelta(t, 1.4, model.Interval, 1e-9)
}

func TestFitPeriodicSequencesRejectsMSEAboveMax(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	f, err := NewFitPeriodicSequences(sink, isDetection, 4, 0, 10, 1.0)
	require.NoError(t, err)

	var handleErr error
	for _, at := range []int64{6, 5, 7, 10} {
		handleErr = f.Handle(tcspcevent.DetectionEvent{Abstime: tcspctypes.Abstime(at)})
	}
	require.Error(t, handleErr)
	require.True(t, errors.Is(handleErr, tcspcpipeline.ErrDataValidation))
	require.Empty(t, sink.Events)
}

func TestFitPeriodicSequencesRejectsSlopeOutsideRange(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	f, err := NewFitPeriodicSequences(sink, isDetection, 4, 2.0, 10, 100)
	require.NoError(t, err)

	var handleErr error
	for _, at := range []int64{6, 5, 7, 10} {
		handleErr = f.Handle(tcspcevent.DetectionEvent{Abstime: tcspctypes.Abstime(at)})
	}
	require.Error(t, handleErr)
	require.True(t, errors.Is(handleErr, tcspcpipeline.ErrDataValidation))
}

func TestFitPeriodicSequencesPassesThroughNonMembers(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	f, err := NewFitPeriodicSequences(sink, isDetection, 3, 0, 10, 10)
	require.NoError(t, err)

	marker := tcspcevent.MarkerEvent{Abstime: 42}
	require.NoError(t, f.Handle(marker))
	require.Equal(t, []tcspcevent.Event{marker}, sink.Events)
}

func TestRetimePeriodicSequencesFoldsDelayIntoWindow(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	r := NewRetimePeriodicSequences(sink, 1000)

	require.NoError(t, r.Handle(tcspcevent.PeriodicSequenceEvent{Abstime: 100, Delay: 5.5, Interval: 1}))

	require.Len(t, sink.Events, 1)
	out := sink.Events[0].(tcspcevent.PeriodicSequenceEvent)
	require.True(t, out.Delay >= 1.0 && out.Delay < 2.0, "delay=%g", out.Delay)
	require.InDelta(t, 1.5, out.Delay, 1e-9)
	require.Equal(t, int64(104), int64(out.Abstime))
}

func TestRetimePeriodicSequencesRejectsShiftBeyondMax(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	r := NewRetimePeriodicSequences(sink, 1)

	err := r.Handle(tcspcevent.PeriodicSequenceEvent{Abstime: 100, Delay: 50.5, Interval: 1})
	require.Error(t, err)
	require.True(t, errors.Is(err, tcspcpipeline.ErrDataValidation))
}

func TestExtrapolatePeriodicSequencesProjectsKthTick(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	x := NewExtrapolatePeriodicSequences(sink, 2)

	require.NoError(t, x.Handle(tcspcevent.PeriodicSequenceEvent{Abstime: 100, Delay: 1.5, Interval: 10}))

	require.Len(t, sink.Events, 1)
	out := sink.Events[0].(tcspcevent.RealOneShotTimingEvent)
	require.Equal(t, int64(100), int64(out.Abstime))
	require.InDelta(t, 21.5, out.Delay, 1e-9)
}

func TestAddCountToPeriodicSequencesSetsCount(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	a := NewAddCountToPeriodicSequences(sink, 5)

	require.NoError(t, a.Handle(tcspcevent.PeriodicSequenceEvent{Abstime: 100, Delay: 1.5, Interval: 10}))

	require.Len(t, sink.Events, 1)
	out := sink.Events[0].(tcspcevent.RealLinearTimingEvent)
	require.Equal(t, 5, out.Count)
	require.InDelta(t, 10, out.Interval, 1e-9)
}

func tick(at int64) tcspcevent.Event {
	return tcspcevent.TimeReachedEvent{Abstime: tcspctypes.Abstime(at)}
}

func TestConvertSequencesToStartStopEmitsBackToBackPairs(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	isTick := func(ev tcspcevent.Event) bool {
		_, ok := ev.(tcspcevent.TimeReachedEvent)
		return ok
	}
	abstime := func(ev tcspcevent.Event) tcspctypes.Abstime {
		return ev.(tcspcevent.TimeReachedEvent).Abstime
	}
	newStart := func(at tcspctypes.Abstime) tcspcevent.Event {
		return tcspcevent.DetectionEvent{Abstime: at, Channel: 0}
	}
	newStop := func(at tcspctypes.Abstime) tcspcevent.Event {
		return tcspcevent.DetectionEvent{Abstime: at, Channel: 1}
	}

	c := NewConvertSequencesToStartStop(sink, isTick, abstime, newStart, newStop, 3)
	for _, at := range []int64{0, 10, 20, 30} {
		require.NoError(t, c.Handle(tick(at)))
	}

	require.Len(t, sink.Events, 6)
	var got []int64
	for _, ev := range sink.Events {
		got = append(got, int64(ev.(tcspcevent.DetectionEvent).Abstime))
	}
	require.Equal(t, []int64{0, 10, 10, 20, 20, 30}, got)
	require.Equal(t, int16(0), sink.Events[0].(tcspcevent.DetectionEvent).Channel)
	require.Equal(t, int16(1), sink.Events[1].(tcspcevent.DetectionEvent).Channel)
}

func TestConvertSequencesToStartStopBuffersUntilFull(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	isTick := func(ev tcspcevent.Event) bool {
		_, ok := ev.(tcspcevent.TimeReachedEvent)
		return ok
	}
	abstime := func(ev tcspcevent.Event) tcspctypes.Abstime {
		return ev.(tcspcevent.TimeReachedEvent).Abstime
	}
	newStart := func(at tcspctypes.Abstime) tcspcevent.Event { return tcspcevent.DetectionEvent{Abstime: at} }
	newStop := func(at tcspctypes.Abstime) tcspcevent.Event { return tcspcevent.DetectionEvent{Abstime: at} }

	c := NewConvertSequencesToStartStop(sink, isTick, abstime, newStart, newStop, 2)
	require.NoError(t, c.Handle(tick(0)))
	require.Empty(t, sink.Events)
	require.NoError(t, c.Handle(tick(10)))
	require.Empty(t, sink.Events)
	require.NoError(t, c.Handle(tick(20)))
	require.Len(t, sink.Events, 4)
}

func TestOLSFitMatchesWikipediaWorkedExample(t *testing.T) {
	intercept, slope, mse := olsFit([]tcspctypes.Abstime{6, 5, 7, 10}, 0)
	require.InDelta(t, 1.4, slope, 1e-9)
	require.InDelta(t, -1.1, intercept, 1e-9) // y is taken relative to the first abstime (6): 0,-1,1,4
	require.InDelta(t, 2.1, mse, 1e-9)
	require.False(t, math.IsNaN(mse))
}
