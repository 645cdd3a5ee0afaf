// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcrouting

import (
	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
)

// Split sends events matching Predicate to Branch1 and everything else to
// Branch2; both branches see Flush regardless of which one observed the
// matching events (§4.4).
type Split struct {
	Predicate Matcher
	Branch1   tcspcpipeline.Processor
	Branch2   tcspcpipeline.Processor
}

func NewSplit(predicate Matcher, branch1, branch2 tcspcpipeline.Processor) *Split {
	return &Split{Predicate: predicate, Branch1: branch1, Branch2: branch2}
}

func (s *Split) Handle(ev tcspcevent.Event) error {
	if s.Predicate(ev) {
		return s.Branch1.Handle(ev)
	}
	return s.Branch2.Handle(ev)
}

func (s *Split) Flush() error {
	if err := s.Branch1.Flush(); err != nil {
		return err
	}
	return s.Branch2.Flush()
}

func (s *Split) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "split", Type: "Split"}
}

func (s *Split) Graph() tcspcpipeline.Graph {
	nodes := []tcspcpipeline.NodeInfo{s.NodeInfo()}
	nodes = append(nodes, s.Branch1.Graph().Nodes...)
	nodes = append(nodes, s.Branch2.Graph().Nodes...)
	return tcspcpipeline.Graph{Nodes: nodes}
}

// Match forwards only events matching Predicate; others are dropped.
type Match struct {
	Downstream tcspcpipeline.Processor
	Predicate  Matcher
}

func NewMatch(downstream tcspcpipeline.Processor, predicate Matcher) *Match {
	return &Match{Downstream: downstream, Predicate: predicate}
}

func (m *Match) Handle(ev tcspcevent.Event) error {
	if !m.Predicate(ev) {
		return nil
	}
	return m.Downstream.Handle(ev)
}

func (m *Match) Flush() error { return m.Downstream.Flush() }

func (m *Match) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "match", Type: "Match"}
}

func (m *Match) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(m.NodeInfo(), m.Downstream.Graph())
}

// MatchReplace forwards events matching Predicate after rewriting them
// with Replace; others pass through unchanged.
type MatchReplace struct {
	Downstream tcspcpipeline.Processor
	Predicate  Matcher
	Replace    func(tcspcevent.Event) tcspcevent.Event
}

func NewMatchReplace(downstream tcspcpipeline.Processor, predicate Matcher, replace func(tcspcevent.Event) tcspcevent.Event) *MatchReplace {
	return &MatchReplace{Downstream: downstream, Predicate: predicate, Replace: replace}
}

func (m *MatchReplace) Handle(ev tcspcevent.Event) error {
	if m.Predicate(ev) {
		ev = m.Replace(ev)
	}
	return m.Downstream.Handle(ev)
}

func (m *MatchReplace) Flush() error { return m.Downstream.Flush() }

func (m *MatchReplace) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "match_replace", Type: "MatchReplace"}
}

func (m *MatchReplace) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(m.NodeInfo(), m.Downstream.Graph())
}
