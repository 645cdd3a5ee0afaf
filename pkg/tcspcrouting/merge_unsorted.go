// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcrouting

import (
	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
)

// MergeNUnsorted forwards events from any of its N inputs to a shared
// downstream in the order each is received, without sorting by abstime;
// Flush on the returned processor completes only once every input has
// flushed (§4.4).
type MergeNUnsorted struct {
	Downstream tcspcpipeline.Processor
	n          int
	flushed    []bool
}

type unsortedInput struct {
	m    *MergeNUnsorted
	side int
}

// NewMergeNUnsorted returns a MergeNUnsorted and its n input endpoints.
func NewMergeNUnsorted(downstream tcspcpipeline.Processor, n int) (*MergeNUnsorted, []tcspcpipeline.Processor) {
	m := &MergeNUnsorted{Downstream: downstream, n: n, flushed: make([]bool, n)}
	inputs := make([]tcspcpipeline.Processor, n)
	for i := 0; i < n; i++ {
		inputs[i] = &unsortedInput{m: m, side: i}
	}
	return m, inputs
}

func (u *unsortedInput) Handle(ev tcspcevent.Event) error {
	return u.m.Downstream.Handle(ev)
}

func (u *unsortedInput) Flush() error {
	u.m.flushed[u.side] = true
	for _, f := range u.m.flushed {
		if !f {
			return nil
		}
	}
	return u.m.Downstream.Flush()
}

func (u *unsortedInput) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "merge_n_unsorted_input", Type: "MergeNUnsortedInput"}
}

func (u *unsortedInput) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(u.NodeInfo(), u.m.Downstream.Graph())
}
