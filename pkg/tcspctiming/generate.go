// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspctiming

import (
	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// Generate drives a Generator in-line in a pipeline: on a trigger
// event it calls Trigger; on every event (including the trigger
// itself) it first drains every generated event whose time is less
// than or equal to the input's abstime, then forwards the input.
// On the triggering event itself the comparison is strict
// (peek-time < the trigger's abstime), which avoids re-triggering on
// the event that just armed the generator. On Flush,
// any remaining generated events are discarded rather than emitted
// with no upper bound to clip them against (§4.8).
type Generate struct {
	Downstream tcspcpipeline.Processor
	Generator  Generator
	IsTrigger  func(tcspcevent.Event) bool
}

func NewGenerate(downstream tcspcpipeline.Processor, generator Generator, isTrigger func(tcspcevent.Event) bool) *Generate {
	return &Generate{Downstream: downstream, Generator: generator, IsTrigger: isTrigger}
}

func (g *Generate) Handle(ev tcspcevent.Event) error {
	isTrigger := g.IsTrigger(ev)
	at, hasAbstime := inputAbstime(ev)
	if hasAbstime {
		// A trigger event drains strictly-before its own abstime: any
		// event still pending from the *previous* arm that happens to
		// land exactly on the new trigger's abstime is stale the
		// moment the new trigger is applied, not a legitimate
		// coincident tick, so it must not be forwarded here.
		if err := g.drainUpTo(at, isTrigger); err != nil {
			return err
		}
	}

	if err := g.Downstream.Handle(ev); err != nil {
		return err
	}

	if isTrigger {
		g.Generator.Trigger(ev)
	}
	return nil
}

// drainUpTo pops and forwards every generated event whose peeked time
// is <= at (or < at when strict is set for a triggering event).
func (g *Generate) drainUpTo(at tcspctypes.Abstime, strict bool) error {
	for {
		peeked, ok := g.Generator.Peek()
		if !ok {
			return nil
		}
		if strict && peeked >= at {
			return nil
		}
		if !strict && peeked > at {
			return nil
		}
		if err := g.Downstream.Handle(g.Generator.Pop()); err != nil {
			return err
		}
	}
}

func inputAbstime(ev tcspcevent.Event) (tcspctypes.Abstime, bool) {
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
	default:
		return 0, false
	}
}

func (g *Generate) Flush() error {
	// Discard anything still pending: there is no further input
	// abstime to clip it against.
	return g.Downstream.Flush()
}

func (g *Generate) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "generate", Type: "Generate"}
}

func (g *Generate) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(g.NodeInfo(), g.Downstream.Graph())
}
