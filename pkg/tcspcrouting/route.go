// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcrouting

import (
	"errors"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
)

// DiscardIndex is the router return value meaning "drop this event".
const DiscardIndex = -1

// Router decides, for a routed event, which downstream index should
// receive it. Returning DiscardIndex drops the event.
type Router func(ev tcspcevent.Event) int

// Matcher decides whether ev should be considered "matched" for match/
// match_replace.
type Matcher func(ev tcspcevent.Event) bool

// AlwaysRouter routes every event to index 0.
func AlwaysRouter(int) Router { return func(tcspcevent.Event) int { return 0 } }

// NeverRouter (null_router) discards every routed event.
func NeverRouter() Router { return func(tcspcevent.Event) int { return DiscardIndex } }

// ChannelRouter looks a DetectionEvent/TimeCorrelatedDetectionEvent/
// MarkerEvent's channel up in a small table mapping channel -> downstream
// index, discarding anything not in the table.
func ChannelRouter(channelToIndex map[int16]int) Router {
	return func(ev tcspcevent.Event) int {
		var ch int16
		switch e := ev.(type) {
		case tcspcevent.DetectionEvent:
			ch = e.Channel
		case tcspcevent.TimeCorrelatedDetectionEvent:
			ch = e.Channel
		case tcspcevent.MarkerEvent:
			ch = e.Channel
		default:
			return DiscardIndex
		}
		if idx, ok := channelToIndex[ch]; ok {
			return idx
		}
		return DiscardIndex
	}
}

// AlwaysMatcher matches every event.
func AlwaysMatcher(ev tcspcevent.Event) bool { return true }

// NeverMatcher matches nothing.
func NeverMatcher(ev tcspcevent.Event) bool { return false }

// ChannelMatcher matches DetectionEvent/TimeCorrelatedDetectionEvent/
// MarkerEvent events whose channel is in channels.
func ChannelMatcher(channels ...int16) Matcher {
	set := make(map[int16]bool, len(channels))
	for _, c := range channels {
		set[c] = true
	}
	return func(ev tcspcevent.Event) bool {
		switch e := ev.(type) {
		case tcspcevent.DetectionEvent:
			return set[e.Channel]
		case tcspcevent.TimeCorrelatedDetectionEvent:
			return set[e.Channel]
		case tcspcevent.MarkerEvent:
			return set[e.Channel]
		default:
			return false
		}
	}
}

// EventClass reports whether ev's concrete type appears in the "routed-event
// list" classifier, a small per-call-site predicate composed by the
// caller; Route/RouteHomogeneous take such a predicate instead of a
// compile-time type list (§4.4).
type EventClass func(ev tcspcevent.Event) bool

// Route sends events whose class matches Routed to
// downstreams[router(ev)] (dropping on DiscardIndex); events matching
// Broadcast go to every downstream. If a downstream returns
// ErrEndOfProcessing, the others are flushed (absorbing their own
// ErrEndOfProcessing) and ErrEndOfProcessing is returned.
type Route struct {
	Router      Router
	Routed      EventClass
	Broadcast   EventClass
	Downstreams []tcspcpipeline.Processor
}

func NewRoute(router Router, routed, broadcastClass EventClass, downstreams ...tcspcpipeline.Processor) *Route {
	return &Route{Router: router, Routed: routed, Broadcast: broadcastClass, Downstreams: downstreams}
}

func (r *Route) Handle(ev tcspcevent.Event) error {
	if r.Broadcast != nil && r.Broadcast(ev) {
		return r.broadcastTo(ev, r.Downstreams)
	}
	if r.Routed != nil && r.Routed(ev) {
		idx := r.Router(ev)
		if idx == DiscardIndex || idx < 0 || idx >= len(r.Downstreams) {
			return nil
		}
		return r.Downstreams[idx].Handle(ev)
	}
	return r.broadcastTo(ev, r.Downstreams)
}

func (r *Route) broadcastTo(ev tcspcevent.Event, downstreams []tcspcpipeline.Processor) error {
	for i, d := range downstreams {
		if err := d.Handle(ev); err != nil {
			if errors.Is(err, tcspcpipeline.ErrEndOfProcessing) {
				return r.flushSiblingsAndPropagate(downstreams, i)
			}
			return err
		}
	}
	return nil
}

// flushSiblingsAndPropagate flushes every downstream other than the one at
// exclude (which already signaled end of processing), absorbing their own
// ErrEndOfProcessing, then re-raises ErrEndOfProcessing (§4.4, §7).
func (r *Route) flushSiblingsAndPropagate(downstreams []tcspcpipeline.Processor, exclude int) error {
	for i, d := range downstreams {
		if i == exclude {
			continue
		}
		if err := d.Flush(); err != nil && !errors.Is(err, tcspcpipeline.ErrEndOfProcessing) {
			return err
		}
	}
	return tcspcpipeline.ErrEndOfProcessing
}

func (r *Route) Flush() error {
	for i, d := range r.Downstreams {
		if err := d.Flush(); err != nil {
			if errors.Is(err, tcspcpipeline.ErrEndOfProcessing) {
				return r.flushSiblingsAndPropagate(r.Downstreams, i)
			}
			return err
		}
	}
	return nil
}

func (r *Route) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "route", Type: "Route"}
}

func (r *Route) Graph() tcspcpipeline.Graph {
	nodes := []tcspcpipeline.NodeInfo{r.NodeInfo()}
	for _, d := range r.Downstreams {
		nodes = append(nodes, d.Graph().Nodes...)
	}
	return tcspcpipeline.Graph{Nodes: nodes}
}

// RouteHomogeneous is Route specialized for downstreams of one concrete
// type; Go generics give this for free (no type erasure at all, unlike the
// original's separate type to avoid erasure overhead), so it is
// implemented as a thin wrapper that copies the slice into a
// []tcspcpipeline.Processor once.
type RouteHomogeneous[P tcspcpipeline.Processor] struct {
	*Route
}

func NewRouteHomogeneous[P tcspcpipeline.Processor](router Router, routed, broadcastClass EventClass, downstreams []P) *RouteHomogeneous[P] {
	ps := make([]tcspcpipeline.Processor, len(downstreams))
	for i, d := range downstreams {
		ps[i] = d
	}
	return &RouteHomogeneous[P]{Route: NewRoute(router, routed, broadcastClass, ps...)}
}

// Broadcast delivers every event to every downstream, in declaration
// order; it is Route with an empty routed-event list (§4.4).
func Broadcast(downstreams ...tcspcpipeline.Processor) *Route {
	return NewRoute(NeverRouter(), NeverMatcher, AlwaysMatcher, downstreams...)
}
