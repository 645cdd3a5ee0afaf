// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspctest provides the fixtures used by this module's own test
// suite: a terminal processor that records everything it sees, and small
// deterministic event generators for building test inputs.
package tcspctest

import (
	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
)

// CaptureSink is a terminal Processor that records every event it
// receives, in order, and remembers whether Flush was called. It never
// returns an error unless ErrOnHandle/ErrOnFlush is set, letting tests
// exercise error-propagation paths without a bespoke mock per case.
type CaptureSink struct {
	Events      []tcspcevent.Event
	Flushed     bool
	ErrOnHandle error
	ErrOnFlush  error
}

func NewCaptureSink() *CaptureSink { return &CaptureSink{} }

func (c *CaptureSink) Handle(ev tcspcevent.Event) error {
	if c.ErrOnHandle != nil {
		return c.ErrOnHandle
	}
	c.Events = append(c.Events, ev)
	return nil
}

func (c *CaptureSink) Flush() error {
	c.Flushed = true
	return c.ErrOnFlush
}

func (c *CaptureSink) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "capture_sink", Type: "CaptureSink"}
}

func (c *CaptureSink) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Graph{Nodes: []tcspcpipeline.NodeInfo{c.NodeInfo()}}
}

// Reset clears recorded state, letting a CaptureSink be reused across
// subtests.
func (c *CaptureSink) Reset() {
	c.Events = nil
	c.Flushed = false
}
