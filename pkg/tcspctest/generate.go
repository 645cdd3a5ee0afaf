// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspctest

import "github.com/flimlab/tcspc/pkg/tcspcevent"

// LinearDetections returns n DetectionEvent values on channel ch with
// abstime start, start+step, start+2*step, ...
func LinearDetections(start, step int64, n int, ch int16) []tcspcevent.Event {
	out := make([]tcspcevent.Event, n)
	for i := 0; i < n; i++ {
		out[i] = tcspcevent.DetectionEvent{Abstime: start + int64(i)*step, Channel: ch}
	}
	return out
}

// LinearTimeCorrelated returns n TimeCorrelatedDetectionEvent values on
// channel ch, abstime advancing by step, difftime cycling through
// [0, maxDiff).
func LinearTimeCorrelated(start, step int64, n int, ch int16, maxDiff uint16) []tcspcevent.Event {
	out := make([]tcspcevent.Event, n)
	for i := 0; i < n; i++ {
		out[i] = tcspcevent.TimeCorrelatedDetectionEvent{
			Abstime:  start + int64(i)*step,
			Channel:  ch,
			Difftime: uint16(i) % maxDiff,
		}
	}
	return out
}

// TimeReachedMarks returns TimeReachedEvent values at the given abstimes.
func TimeReachedMarks(times ...int64) []tcspcevent.Event {
	out := make([]tcspcevent.Event, len(times))
	for i, t := range times {
		out[i] = tcspcevent.TimeReachedEvent{Abstime: t}
	}
	return out
}

// Feed hands each event in events to p.Handle, stopping at the first
// error, then returns that error (nil if every Handle succeeded).
func Feed(p interface {
	Handle(tcspcevent.Event) error
}, events []tcspcevent.Event) error {
	for _, ev := range events {
		if err := p.Handle(ev); err != nil {
			return err
		}
	}
	return nil
}
