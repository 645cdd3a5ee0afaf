// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcrouting

import (
	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
)

// Erased adapts a pair of plain functions into a tcspcpipeline.Processor,
// recovered from the original's dynamic_polymorphism.hpp/
// type_erased_processor.hpp, which exist there to let heterogeneous
// processor templates be stored behind one virtual base; Go's Processor
// interface already gives that for any type with matching methods, so the
// only gap left to fill is wrapping ad hoc Handle/Flush closures (e.g. a
// processor built inline for a test or a one-off pipeline stage) into
// something satisfying Processor.
type Erased struct {
	Name       string
	HandleFunc func(ev tcspcevent.Event) error
	FlushFunc  func() error
}

// NewErased wraps handle/flush closures as a named Processor.
func NewErased(name string, handle func(tcspcevent.Event) error, flush func() error) *Erased {
	return &Erased{Name: name, HandleFunc: handle, FlushFunc: flush}
}

func (e *Erased) Handle(ev tcspcevent.Event) error {
	if e.HandleFunc == nil {
		return nil
	}
	return e.HandleFunc(ev)
}

func (e *Erased) Flush() error {
	if e.FlushFunc == nil {
		return nil
	}
	return e.FlushFunc()
}

func (e *Erased) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: e.Name, Type: "Erased"}
}

func (e *Erased) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Graph{Nodes: []tcspcpipeline.NodeInfo{e.NodeInfo()}}
}
