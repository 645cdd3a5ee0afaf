// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcordering

import (
	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
)

// Delay adds Shift (possibly negative) to every event's abstime. It never
// reorders its own output; compose with RecoverOrder downstream if Shift is
// negative (§4.3).
type Delay struct {
	Downstream tcspcpipeline.Processor
	Shift      int64
}

func NewDelay(downstream tcspcpipeline.Processor, shift int64) *Delay {
	return &Delay{Downstream: downstream, Shift: shift}
}

func (d *Delay) Handle(ev tcspcevent.Event) error {
	if t, ok := abstimeOf(ev); ok {
		ev = withAbstime(ev, t+d.Shift)
	}
	return d.Downstream.Handle(ev)
}

func (d *Delay) Flush() error { return d.Downstream.Flush() }

func (d *Delay) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "delay", Type: "Delay"}
}

func (d *Delay) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(d.NodeInfo(), d.Downstream.Graph())
}

// DelayHasten is Delay's sibling recovered from the original's
// delay_hasten.hpp (SPEC_FULL.md): events on any channel in HastenChannels
// are shifted by -Shift (brought earlier) instead of +Shift, letting two
// correlated channels that drifted apart be realigned in one processor
// instead of two Delays plus a merge.
type DelayHasten struct {
	Downstream     tcspcpipeline.Processor
	Shift          int64
	HastenChannels map[int16]bool
}

func NewDelayHasten(downstream tcspcpipeline.Processor, shift int64, hastenChannels []int16) *DelayHasten {
	m := make(map[int16]bool, len(hastenChannels))
	for _, c := range hastenChannels {
		m[c] = true
	}
	return &DelayHasten{Downstream: downstream, Shift: shift, HastenChannels: m}
}

func (d *DelayHasten) channelOf(ev tcspcevent.Event) (int16, bool) {
	switch e := ev.(type) {
	case tcspcevent.DetectionEvent:
		return e.Channel, true
	case tcspcevent.TimeCorrelatedDetectionEvent:
		return e.Channel, true
	case tcspcevent.MarkerEvent:
		return e.Channel, true
	default:
		return 0, false
	}
}

func (d *DelayHasten) Handle(ev tcspcevent.Event) error {
	t, ok := abstimeOf(ev)
	if !ok {
		return d.Downstream.Handle(ev)
	}
	shift := d.Shift
	if ch, ok := d.channelOf(ev); ok && d.HastenChannels[ch] {
		shift = -d.Shift
	}
	return d.Downstream.Handle(withAbstime(ev, t+shift))
}

func (d *DelayHasten) Flush() error { return d.Downstream.Flush() }

func (d *DelayHasten) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "delay_hasten", Type: "DelayHasten"}
}

func (d *DelayHasten) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(d.NodeInfo(), d.Downstream.Graph())
}

// ZeroBaseAbstime subtracts the first-seen event's abstime from every
// event's abstime.
type ZeroBaseAbstime struct {
	Downstream tcspcpipeline.Processor

	have bool
	base int64
}

func NewZeroBaseAbstime(downstream tcspcpipeline.Processor) *ZeroBaseAbstime {
	return &ZeroBaseAbstime{Downstream: downstream}
}

func (z *ZeroBaseAbstime) Handle(ev tcspcevent.Event) error {
	t, ok := abstimeOf(ev)
	if !ok {
		return z.Downstream.Handle(ev)
	}
	if !z.have {
		z.base = t
		z.have = true
	}
	return z.Downstream.Handle(withAbstime(ev, t-z.base))
}

func (z *ZeroBaseAbstime) Flush() error { return z.Downstream.Flush() }

func (z *ZeroBaseAbstime) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "zero_base_abstime", Type: "ZeroBaseAbstime"}
}

func (z *ZeroBaseAbstime) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(z.NodeInfo(), z.Downstream.Graph())
}

// RegulateTimeReached ensures a TimeReachedEvent reaches the downstream at
// least every AbstimeThreshold abstime units and at least every CountThreshold
// events, suppressing redundant ones already present in the stream.
type RegulateTimeReached struct {
	Downstream       tcspcpipeline.Processor
	AbstimeThreshold int64
	CountThreshold   int

	haveLast    bool
	lastEmitted int64
	count       int
}

func NewRegulateTimeReached(downstream tcspcpipeline.Processor, abstimeThreshold int64, countThreshold int) *RegulateTimeReached {
	return &RegulateTimeReached{Downstream: downstream, AbstimeThreshold: abstimeThreshold, CountThreshold: countThreshold}
}

func (r *RegulateTimeReached) Handle(ev tcspcevent.Event) error {
	t, ok := abstimeOf(ev)
	if !ok {
		return r.Downstream.Handle(ev)
	}

	r.count++
	needTimeReached := !r.haveLast || t-r.lastEmitted >= r.AbstimeThreshold || r.count >= r.CountThreshold

	if _, isTimeReached := ev.(tcspcevent.TimeReachedEvent); isTimeReached {
		if !needTimeReached {
			return nil
		}
		r.lastEmitted = t
		r.haveLast = true
		r.count = 0
		return r.Downstream.Handle(ev)
	}

	if needTimeReached {
		if err := r.Downstream.Handle(tcspcevent.TimeReachedEvent{Abstime: t}); err != nil {
			return err
		}
		r.lastEmitted = t
		r.haveLast = true
		r.count = 0
	}
	return r.Downstream.Handle(ev)
}

func (r *RegulateTimeReached) Flush() error { return r.Downstream.Flush() }

func (r *RegulateTimeReached) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "regulate_time_reached", Type: "RegulateTimeReached"}
}

func (r *RegulateTimeReached) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(r.NodeInfo(), r.Downstream.Graph())
}
