// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspccounting implements the threshold-triggered counting
// processors of §4.7: count_up_to, count_down_to, and a live event
// counter exposed through an access handle. Grounded on
// internal/taskManager's periodic threshold-triggered action style
// (SPEC_FULL.md).
package tcspccounting

import (
	"github.com/flimlab/tcspc/pkg/tcspccontext"
	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
)

// CountUpTo increments a counter on every tick event, emits a fire
// event when the counter reaches Threshold, and wraps back to Initial
// once it reaches Limit. A reset event sets the counter to Initial
// directly (§4.7 count_up_to).
type CountUpTo struct {
	Downstream tcspcpipeline.Processor
	IsTick     func(tcspcevent.Event) bool
	NewFire    func() tcspcevent.Event
	IsReset    func(tcspcevent.Event) bool
	Threshold  uint64
	Limit      uint64
	Initial    uint64
	// EmitAfter controls whether the fire event (when triggered) is
	// emitted before or after the tick event itself is forwarded
	// downstream.
	EmitAfter bool

	counter uint64
}

// NewCountUpTo returns a CountUpTo with its counter primed to Initial.
func NewCountUpTo(downstream tcspcpipeline.Processor, isTick func(tcspcevent.Event) bool, newFire func() tcspcevent.Event, isReset func(tcspcevent.Event) bool, threshold, limit, initial uint64, emitAfter bool) *CountUpTo {
	return &CountUpTo{
		Downstream: downstream,
		IsTick:     isTick,
		NewFire:    newFire,
		IsReset:    isReset,
		Threshold:  threshold,
		Limit:      limit,
		Initial:    initial,
		EmitAfter:  emitAfter,
		counter:    initial,
	}
}

func (c *CountUpTo) Handle(ev tcspcevent.Event) error {
	if c.IsReset != nil && c.IsReset(ev) {
		c.counter = c.Initial
		return c.Downstream.Handle(ev)
	}
	if !c.IsTick(ev) {
		return c.Downstream.Handle(ev)
	}

	c.counter++
	fire := c.counter == c.Threshold

	if !c.EmitAfter && fire {
		if err := c.Downstream.Handle(c.NewFire()); err != nil {
			return err
		}
	}
	if err := c.Downstream.Handle(ev); err != nil {
		return err
	}
	if c.EmitAfter && fire {
		if err := c.Downstream.Handle(c.NewFire()); err != nil {
			return err
		}
	}

	if c.counter == c.Limit {
		c.counter = c.Initial
	}
	return nil
}

func (c *CountUpTo) Flush() error { return c.Downstream.Flush() }

func (c *CountUpTo) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "count_up_to", Type: "CountUpTo"}
}

func (c *CountUpTo) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(c.NodeInfo(), c.Downstream.Graph())
}

// CountDownTo is the decrementing symmetric counterpart of CountUpTo
// (§4.7 count_down_to): each tick decrements the counter, firing when
// it reaches Threshold and wrapping back to Initial once it reaches
// Limit.
type CountDownTo struct {
	Downstream tcspcpipeline.Processor
	IsTick     func(tcspcevent.Event) bool
	NewFire    func() tcspcevent.Event
	IsReset    func(tcspcevent.Event) bool
	Threshold  uint64
	Limit      uint64
	Initial    uint64
	EmitAfter  bool

	counter uint64
}

func NewCountDownTo(downstream tcspcpipeline.Processor, isTick func(tcspcevent.Event) bool, newFire func() tcspcevent.Event, isReset func(tcspcevent.Event) bool, threshold, limit, initial uint64, emitAfter bool) *CountDownTo {
	return &CountDownTo{
		Downstream: downstream,
		IsTick:     isTick,
		NewFire:    newFire,
		IsReset:    isReset,
		Threshold:  threshold,
		Limit:      limit,
		Initial:    initial,
		EmitAfter:  emitAfter,
		counter:    initial,
	}
}

func (c *CountDownTo) Handle(ev tcspcevent.Event) error {
	if c.IsReset != nil && c.IsReset(ev) {
		c.counter = c.Initial
		return c.Downstream.Handle(ev)
	}
	if !c.IsTick(ev) {
		return c.Downstream.Handle(ev)
	}

	c.counter--
	fire := c.counter == c.Threshold

	if !c.EmitAfter && fire {
		if err := c.Downstream.Handle(c.NewFire()); err != nil {
			return err
		}
	}
	if err := c.Downstream.Handle(ev); err != nil {
		return err
	}
	if c.EmitAfter && fire {
		if err := c.Downstream.Handle(c.NewFire()); err != nil {
			return err
		}
	}

	if c.counter == c.Limit {
		c.counter = c.Initial
	}
	return nil
}

func (c *CountDownTo) Flush() error { return c.Downstream.Flush() }

func (c *CountDownTo) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "count_down_to", Type: "CountDownTo"}
}

func (c *CountDownTo) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(c.NodeInfo(), c.Downstream.Graph())
}

// Access is what tcspccontext.Access resolves a Count[E]'s tracked name
// to: a read of its live count (§4.11). Value is a plain, unsynchronized
// read of the counter that Handle increments.
type Access interface {
	Value() uint64
}

// Count passes every event through unchanged while counting how many
// matched E, exposing the running total through an access handle
// registered under name (§4.7 count<E>).
type Count[E tcspcevent.Event] struct {
	Downstream tcspcpipeline.Processor

	count uint64
}

// NewCount returns a Count[E] and registers it under name in ctx (pass
// a nil ctx to skip registration, e.g. in tests).
func NewCount[E tcspcevent.Event](downstream tcspcpipeline.Processor, ctx *tcspccontext.Context, name string) (*Count[E], error) {
	c := &Count[E]{Downstream: downstream}
	if ctx != nil {
		if _, err := ctx.Track(name, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Value returns the current count, satisfying Access.
func (c *Count[E]) Value() uint64 { return c.count }

func (c *Count[E]) Handle(ev tcspcevent.Event) error {
	if _, ok := ev.(E); ok {
		c.count++
	}
	return c.Downstream.Handle(ev)
}

func (c *Count[E]) Flush() error { return c.Downstream.Flush() }

func (c *Count[E]) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "count", Type: "Count"}
}

func (c *Count[E]) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(c.NodeInfo(), c.Downstream.Graph())
}
