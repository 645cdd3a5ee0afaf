// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcrouting

import (
	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
)

// Discard drops every event matching Predicate and forwards the rest;
// recovered from the original's discard.hpp (SPEC_FULL.md), which ships
// discard_all/discard_events as a thin wrapper around a matcher the same
// way this library already models matchers for Match/MatchReplace.
type Discard struct {
	Downstream tcspcpipeline.Processor
	Predicate  Matcher
}

func NewDiscard(downstream tcspcpipeline.Processor, predicate Matcher) *Discard {
	return &Discard{Downstream: downstream, Predicate: predicate}
}

// DiscardAll drops every event.
func DiscardAll(downstream tcspcpipeline.Processor) *Discard {
	return NewDiscard(downstream, AlwaysMatcher)
}

func (d *Discard) Handle(ev tcspcevent.Event) error {
	if d.Predicate(ev) {
		return nil
	}
	return d.Downstream.Handle(ev)
}

func (d *Discard) Flush() error { return d.Downstream.Flush() }

func (d *Discard) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "discard", Type: "Discard"}
}

func (d *Discard) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(d.NodeInfo(), d.Downstream.Graph())
}
