// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspcpipeline defines the processor contract every node in a
// pipeline implements (§4.1), the sentinel errors that stand in for the
// original's exception types (§6.3, §7), and introspection types
// (NodeInfo/Graph).
//
// The original's dynamic/ref/shared-processor wrapper types
// (dynamic_polymorphism.hpp, ref_processor.hpp, shared_processor.hpp) have
// no counterpart here: a Go interface value already IS a reference to a
// processor without a wrapper type, and a pointer to a processor held by
// more than one caller already gives shared-processor semantics. Nothing is lost by not
// porting them.
package tcspcpipeline

import (
	"errors"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
)

// Sentinel errors. Processors return these (optionally wrapped with
// fmt.Errorf's %w) from Handle/Flush instead of throwing, per §6.3/§7.
var (
	// ErrEndOfProcessing is not a failure: a sink has decided it has seen
	// enough and the pipeline should unwind cleanly. Routers/broadcasters
	// intercept it, flush their remaining downstreams (absorbing their own
	// ErrEndOfProcessing), and return it to their own caller.
	ErrEndOfProcessing = errors.New("tcspc: end of processing")

	// ErrDataValidation reports that an input violated a processor's
	// contract (non-monotonic abstime, time-shift bound exceeded, retime
	// underflow, ...).
	ErrDataValidation = errors.New("tcspc: data validation failed")

	// ErrHistogramOverflow reports a bin overflow under the "error"
	// overflow policy, or a "reset" policy that would loop forever.
	ErrHistogramOverflow = errors.New("tcspc: histogram overflow")
)

// Processor is the contract every pipeline node satisfies: push one event
// at a time, signal end of input with Flush, and describe yourself for
// introspection.
//
// Handle dispatches on the concrete type of ev (a type switch internally);
// any event type a processor does not specifically process must be
// forwarded to its downstream unchanged -- this is the "generic handlers
// pass through" rule of §4.1.
type Processor interface {
	Handle(ev tcspcevent.Event) error
	Flush() error
	NodeInfo() NodeInfo
	Graph() Graph
}

// NodeInfo describes a single processor for introspection/debugging.
type NodeInfo struct {
	Name string
	Type string
}

// Graph aggregates a node and its transitive downstream, in construction
// order (root first).
type Graph struct {
	Nodes []NodeInfo
}

// Append returns a new Graph with self prepended to the downstream graph,
// the composition rule every processor's Graph() method applies.
func Append(self NodeInfo, downstream Graph) Graph {
	nodes := make([]NodeInfo, 0, len(downstream.Nodes)+1)
	nodes = append(nodes, self)
	nodes = append(nodes, downstream.Nodes...)
	return Graph{Nodes: nodes}
}
