// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcrouting

import (
	"fmt"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
)

// Variant is a tagged union carrying exactly one concrete event, used to
// move a heterogeneous stream across a boundary that only accepts one Go
// type at a time (a channel, a queue, a wire codec); no other package of
// this module uses it. Tag is the discriminator a Demultiplex on the other side
// matches against.
type Variant struct {
	Tag   string
	Event tcspcevent.Event
}

func (Variant) isEvent() {}

var _ tcspcevent.Event = Variant{}

// Tagger names the Tag a given concrete event should carry when
// multiplexed; events with no matching case fall back to their Go type
// name.
type Tagger func(ev tcspcevent.Event) (string, bool)

// Multiplex wraps every event it receives in a Variant using Tag.
type Multiplex struct {
	Downstream tcspcpipeline.Processor
	Tag        Tagger
}

func NewMultiplex(downstream tcspcpipeline.Processor, tag Tagger) *Multiplex {
	return &Multiplex{Downstream: downstream, Tag: tag}
}

func (m *Multiplex) Handle(ev tcspcevent.Event) error {
	tag, ok := m.Tag(ev)
	if !ok {
		tag = fmt.Sprintf("%T", ev)
	}
	return m.Downstream.Handle(Variant{Tag: tag, Event: ev})
}

func (m *Multiplex) Flush() error { return m.Downstream.Flush() }

func (m *Multiplex) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "multiplex", Type: "Multiplex"}
}

func (m *Multiplex) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(m.NodeInfo(), m.Downstream.Graph())
}

// Demultiplex unwraps a Variant and forwards its payload; events that are
// not a Variant pass through unchanged, matching the rest of this
// library's convention of forwarding what a processor does not recognize.
type Demultiplex struct {
	Downstream tcspcpipeline.Processor
}

func NewDemultiplex(downstream tcspcpipeline.Processor) *Demultiplex {
	return &Demultiplex{Downstream: downstream}
}

func (d *Demultiplex) Handle(ev tcspcevent.Event) error {
	if v, ok := ev.(Variant); ok {
		return d.Downstream.Handle(v.Event)
	}
	return d.Downstream.Handle(ev)
}

func (d *Demultiplex) Flush() error { return d.Downstream.Flush() }

func (d *Demultiplex) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "demultiplex", Type: "Demultiplex"}
}

func (d *Demultiplex) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(d.NodeInfo(), d.Downstream.Graph())
}
