// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcfitting

import (
	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// ConvertSequencesToStartStop buffers Count+1 consecutive tick events
// (matched by IsTick) and, once the buffer fills, replaces them with
// Count back-to-back start/stop pairs: pair i runs from tick i to tick
// i+1, so the stop of pair i shares its abstime with the start of pair
// i+1 (§4.9 convert_sequences_to_start_stop). Ticks are consumed;
// everything else passes through unchanged.
type ConvertSequencesToStartStop struct {
	Downstream tcspcpipeline.Processor
	IsTick     func(tcspcevent.Event) bool
	Abstime    func(tcspcevent.Event) tcspctypes.Abstime
	NewStart   func(tcspctypes.Abstime) tcspcevent.Event
	NewStop    func(tcspctypes.Abstime) tcspcevent.Event
	Count      int

	buf []tcspctypes.Abstime
}

func NewConvertSequencesToStartStop(downstream tcspcpipeline.Processor, isTick func(tcspcevent.Event) bool, abstime func(tcspcevent.Event) tcspctypes.Abstime, newStart, newStop func(tcspctypes.Abstime) tcspcevent.Event, count int) *ConvertSequencesToStartStop {
	return &ConvertSequencesToStartStop{
		Downstream: downstream,
		IsTick:     isTick,
		Abstime:    abstime,
		NewStart:   newStart,
		NewStop:    newStop,
		Count:      count,
	}
}

func (c *ConvertSequencesToStartStop) Handle(ev tcspcevent.Event) error {
	if !c.IsTick(ev) {
		return c.Downstream.Handle(ev)
	}

	c.buf = append(c.buf, c.Abstime(ev))
	if len(c.buf) < c.Count+1 {
		return nil
	}

	for i := 0; i < c.Count; i++ {
		if err := c.Downstream.Handle(c.NewStart(c.buf[i])); err != nil {
			return err
		}
		if err := c.Downstream.Handle(c.NewStop(c.buf[i+1])); err != nil {
			return err
		}
	}
	c.buf = nil
	return nil
}

func (c *ConvertSequencesToStartStop) Flush() error {
	c.buf = nil
	return c.Downstream.Flush()
}

func (c *ConvertSequencesToStartStop) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "convert_sequences_to_start_stop", Type: "ConvertSequencesToStartStop"}
}

func (c *ConvertSequencesToStartStop) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(c.NodeInfo(), c.Downstream.Graph())
}
