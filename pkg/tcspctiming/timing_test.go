// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspctiming

import (
	"testing"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspctest"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
	"github.com/stretchr/testify/require"
)

func isTriggerMarker(ev tcspcevent.Event) bool {
	_, ok := ev.(tcspcevent.MarkerEvent)
	return ok
}

func timeReachedAbstimes(events []tcspcevent.Event) []int64 {
	var out []int64
	for _, ev := range events {
		if e, ok := ev.(tcspcevent.TimeReachedEvent); ok {
			out = append(out, int64(e.Abstime))
		}
	}
	return out
}

func TestOneShotGeneratorEmitsAtTriggerPlusDelay(t *testing.T) {
	g := NewOneShotGenerator(10)
	g.Trigger(tcspcevent.MarkerEvent{Abstime: 100})

	at, ok := g.Peek()
	require.True(t, ok)
	require.Equal(t, int64(110), int64(at))

	ev := g.Pop().(tcspcevent.TimeReachedEvent)
	require.Equal(t, int64(110), int64(ev.Abstime))

	_, ok = g.Peek()
	require.False(t, ok)
}

func TestLinearGeneratorEmitsCountEvents(t *testing.T) {
	g := NewLinearGenerator(5, 10, 3)
	g.Trigger(tcspcevent.MarkerEvent{Abstime: 0})

	var got []int64
	for {
		_, ok := g.Peek()
		if !ok {
			break
		}
		ev := g.Pop().(tcspcevent.TimeReachedEvent)
		got = append(got, int64(ev.Abstime))
	}
	require.Equal(t, []int64{5, 15, 25}, got)
}

func TestGenerateDrainsBeforeForwardingInput(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	gen := NewLinearGenerator(1, 1, 2)
	g := NewGenerate(sink, gen, isTriggerMarker)

	require.NoError(t, g.Handle(tcspcevent.MarkerEvent{Abstime: 0}))
	require.NoError(t, g.Handle(tcspcevent.DetectionEvent{Abstime: 5}))

	require.Equal(t, []int64{1, 2}, timeReachedAbstimes(sink.Events))
	// the final event in the stream is the last input, not a generated one.
	_, lastIsDetection := sink.Events[len(sink.Events)-1].(tcspcevent.DetectionEvent)
	require.True(t, lastIsDetection)
}

func TestGenerateDiscardsRemainingOnFlush(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	gen := NewLinearGenerator(100, 10, 5)
	g := NewGenerate(sink, gen, isTriggerMarker)

	require.NoError(t, g.Handle(tcspcevent.MarkerEvent{Abstime: 0}))
	require.NoError(t, g.Flush())

	require.Empty(t, timeReachedAbstimes(sink.Events))
	require.True(t, sink.Flushed)
}

func TestDitheredLinearGeneratorPeekIsIdempotent(t *testing.T) {
	g := NewDitheredLinearGenerator(5, 10, 4)
	g.Trigger(tcspcevent.MarkerEvent{Abstime: 0})

	first, ok1 := g.Peek()
	second, ok2 := g.Peek()
	require.True(t, ok1)
	require.True(t, ok2)
	require.Equal(t, first, second)
}

func TestDitheredLinearGeneratorSpacingStaysClamped(t *testing.T) {
	g := NewDitheredLinearGenerator(0, 10, 20)
	g.Trigger(tcspcevent.MarkerEvent{Abstime: 0})

	var prev tcspctypes.Abstime
	first := true
	for {
		at, ok := g.Peek()
		if !ok {
			break
		}
		if !first {
			gap := at - prev
			require.True(t, gap == 10 || gap == 11, "gap=%d", gap)
		}
		first = false
		prev = at
		g.Pop()
	}
}

func TestDynamicLinearGeneratorUsesTriggerEventCount(t *testing.T) {
	g := NewDynamicLinearGenerator(7)
	g.Trigger(tcspcevent.UntaggedCountsEvent{Abstime: 100, Count: 3})

	var got []int64
	for {
		_, ok := g.Peek()
		if !ok {
			break
		}
		ev := g.Pop().(tcspcevent.TimeReachedEvent)
		got = append(got, int64(ev.Abstime))
	}
	require.Equal(t, []int64{100, 107, 114}, got)
}
