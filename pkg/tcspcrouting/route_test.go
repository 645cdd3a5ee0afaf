// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcrouting

import (
	"testing"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctest"
	"github.com/stretchr/testify/require"
)

func TestChannelRouter(t *testing.T) {
	a := tcspctest.NewCaptureSink()
	b := tcspctest.NewCaptureSink()
	router := ChannelRouter(map[int16]int{1: 0, 2: 1})
	isDetection := func(ev tcspcevent.Event) bool {
		_, ok := ev.(tcspcevent.DetectionEvent)
		return ok
	}
	route := NewRoute(router, isDetection, NeverMatcher, a, b)

	require.NoError(t, route.Handle(tcspcevent.DetectionEvent{Abstime: 1, Channel: 1}))
	require.NoError(t, route.Handle(tcspcevent.DetectionEvent{Abstime: 2, Channel: 2}))
	require.NoError(t, route.Handle(tcspcevent.DetectionEvent{Abstime: 3, Channel: 99}))

	require.Len(t, a.Events, 1)
	require.Len(t, b.Events, 1)
}

func TestBroadcastDeliversToAll(t *testing.T) {
	a := tcspctest.NewCaptureSink()
	b := tcspctest.NewCaptureSink()
	br := Broadcast(a, b)

	ev := tcspcevent.MarkerEvent{Abstime: 5, Channel: 1}
	require.NoError(t, br.Handle(ev))

	require.Equal(t, []tcspcevent.Event{ev}, a.Events)
	require.Equal(t, []tcspcevent.Event{ev}, b.Events)
}

func TestRouteEndOfProcessingFlushesSiblings(t *testing.T) {
	a := tcspctest.NewCaptureSink()
	b := &endingProcessor{}
	br := Broadcast(a, b)

	err := br.Handle(tcspcevent.TimeReachedEvent{Abstime: 1})
	require.ErrorIs(t, err, tcspcpipeline.ErrEndOfProcessing)
	require.True(t, a.Flushed)
}

type endingProcessor struct{}

func (e *endingProcessor) Handle(ev tcspcevent.Event) error { return tcspcpipeline.ErrEndOfProcessing }
func (e *endingProcessor) Flush() error                     { return nil }
func (e *endingProcessor) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "ending", Type: "ending"}
}
func (e *endingProcessor) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Graph{Nodes: []tcspcpipeline.NodeInfo{e.NodeInfo()}}
}

func TestSplitRoutesBranches(t *testing.T) {
	matched := tcspctest.NewCaptureSink()
	rest := tcspctest.NewCaptureSink()
	split := NewSplit(ChannelMatcher(1), matched, rest)

	require.NoError(t, split.Handle(tcspcevent.DetectionEvent{Abstime: 1, Channel: 1}))
	require.NoError(t, split.Handle(tcspcevent.DetectionEvent{Abstime: 2, Channel: 2}))

	require.Len(t, matched.Events, 1)
	require.Len(t, rest.Events, 1)
}

func TestDiscardDropsMatching(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	discard := NewDiscard(sink, ChannelMatcher(1))

	require.NoError(t, discard.Handle(tcspcevent.DetectionEvent{Abstime: 1, Channel: 1}))
	require.NoError(t, discard.Handle(tcspcevent.DetectionEvent{Abstime: 2, Channel: 2}))

	require.Len(t, sink.Events, 1)
	require.Equal(t, int16(2), sink.Events[0].(tcspcevent.DetectionEvent).Channel)
}

func TestMultiplexDemultiplexRoundTrip(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	demux := NewDemultiplex(sink)
	mux := NewMultiplex(demux, func(ev tcspcevent.Event) (string, bool) {
		if _, ok := ev.(tcspcevent.DetectionEvent); ok {
			return "detection", true
		}
		return "", false
	})

	ev := tcspcevent.DetectionEvent{Abstime: 7, Channel: 3}
	require.NoError(t, mux.Handle(ev))
	require.Equal(t, []tcspcevent.Event{ev}, sink.Events)
}

func TestErasedWrapsClosures(t *testing.T) {
	var got []tcspcevent.Event
	var flushed bool
	e := NewErased("probe", func(ev tcspcevent.Event) error {
		got = append(got, ev)
		return nil
	}, func() error {
		flushed = true
		return nil
	})

	require.NoError(t, e.Handle(tcspcevent.DataLostEvent{Abstime: 1}))
	require.NoError(t, e.Flush())
	require.Len(t, got, 1)
	require.True(t, flushed)
}
