// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcfitting

import (
	"fmt"
	"math"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// RetimePeriodicSequences renormalizes every tcspcevent.PeriodicSequenceEvent
// so its Delay lands in [1.0, 2.0), moving a whole number of abstime
// units from Delay into Abstime (§4.9 retime_periodic_sequences). This
// keeps the reference point close to the model's own data without
// changing what time it predicts. Everything else passes through
// unchanged.
type RetimePeriodicSequences struct {
	Downstream tcspcpipeline.Processor
	MaxShift   tcspctypes.Abstime
}

func NewRetimePeriodicSequences(downstream tcspcpipeline.Processor, maxShift tcspctypes.Abstime) *RetimePeriodicSequences {
	return &RetimePeriodicSequences{Downstream: downstream, MaxShift: maxShift}
}

func (r *RetimePeriodicSequences) Handle(ev tcspcevent.Event) error {
	e, ok := ev.(tcspcevent.PeriodicSequenceEvent)
	if !ok {
		return r.Downstream.Handle(ev)
	}
	if e.Interval <= 0 {
		return fmt.Errorf("%w: retime_periodic_sequences requires a positive interval, got %g", tcspcpipeline.ErrDataValidation, e.Interval)
	}

	// n is the whole number of abstime units moved from Delay into
	// Abstime; Delay-n lands in [1,2), and since Delay absorbs exactly
	// what Abstime gains, every predicted tick stays where it was.
	n := math.Floor(e.Delay) - 1.0
	delay := e.Delay - n
	shift := tcspctypes.Abstime(n)
	absShift := shift
	if absShift < 0 {
		absShift = -absShift
	}
	if absShift > r.MaxShift {
		return fmt.Errorf("%w: retime_periodic_sequences shift %d exceeds max %d", tcspcpipeline.ErrDataValidation, absShift, r.MaxShift)
	}
	if e.Abstime+shift < 0 && e.Abstime >= 0 {
		return fmt.Errorf("%w: retime_periodic_sequences shift would underflow abstime", tcspcpipeline.ErrDataValidation)
	}

	e.Abstime += shift
	e.Delay = delay
	return r.Downstream.Handle(e)
}

func (r *RetimePeriodicSequences) Flush() error {
	return r.Downstream.Flush()
}

func (r *RetimePeriodicSequences) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "retime_periodic_sequences", Type: "RetimePeriodicSequences"}
}

func (r *RetimePeriodicSequences) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(r.NodeInfo(), r.Downstream.Graph())
}

// ExtrapolatePeriodicSequences converts each PeriodicSequenceEvent into
// a tcspcevent.RealOneShotTimingEvent predicting the K-th future tick
// of the fitted model (§4.9 extrapolate_periodic_sequences).
type ExtrapolatePeriodicSequences struct {
	Downstream tcspcpipeline.Processor
	K          int
}

func NewExtrapolatePeriodicSequences(downstream tcspcpipeline.Processor, k int) *ExtrapolatePeriodicSequences {
	return &ExtrapolatePeriodicSequences{Downstream: downstream, K: k}
}

func (x *ExtrapolatePeriodicSequences) Handle(ev tcspcevent.Event) error {
	e, ok := ev.(tcspcevent.PeriodicSequenceEvent)
	if !ok {
		return x.Downstream.Handle(ev)
	}
	return x.Downstream.Handle(tcspcevent.RealOneShotTimingEvent{
		Abstime: e.Abstime,
		Delay:   e.Delay + e.Interval*float64(x.K),
	})
}

func (x *ExtrapolatePeriodicSequences) Flush() error {
	return x.Downstream.Flush()
}

func (x *ExtrapolatePeriodicSequences) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "extrapolate_periodic_sequences", Type: "ExtrapolatePeriodicSequences"}
}

func (x *ExtrapolatePeriodicSequences) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(x.NodeInfo(), x.Downstream.Graph())
}

// AddCountToPeriodicSequences converts each PeriodicSequenceEvent into
// a tcspcevent.RealLinearTimingEvent with a fixed tick Count, handing
// the model off to a linear timing generator (§4.9
// add_count_to_periodic_sequences).
type AddCountToPeriodicSequences struct {
	Downstream tcspcpipeline.Processor
	Count      int
}

func NewAddCountToPeriodicSequences(downstream tcspcpipeline.Processor, count int) *AddCountToPeriodicSequences {
	return &AddCountToPeriodicSequences{Downstream: downstream, Count: count}
}

func (a *AddCountToPeriodicSequences) Handle(ev tcspcevent.Event) error {
	e, ok := ev.(tcspcevent.PeriodicSequenceEvent)
	if !ok {
		return a.Downstream.Handle(ev)
	}
	return a.Downstream.Handle(tcspcevent.RealLinearTimingEvent{
		Abstime:  e.Abstime,
		Delay:    e.Delay,
		Interval: e.Interval,
		Count:    a.Count,
	})
}

func (a *AddCountToPeriodicSequences) Flush() error {
	return a.Downstream.Flush()
}

func (a *AddCountToPeriodicSequences) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "add_count_to_periodic_sequences", Type: "AddCountToPeriodicSequences"}
}

func (a *AddCountToPeriodicSequences) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(a.NodeInfo(), a.Downstream.Graph())
}
