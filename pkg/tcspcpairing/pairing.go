// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspcpairing implements the start/stop detection-pairing
// processors of §4.6: pair_all, pair_one, pair_all_between and
// pair_one_between. All variants pass every input detection event
// through unchanged; self-pairing (start channel == stop channel) is
// legal, the earlier detection simply becomes the start of a pair with
// each later detection of the same channel. Grounded on
// pkg/lrucache's bounded-retention-window eviction style
// (SPEC_FULL.md).
package tcspcpairing

import (
	"sort"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// ChannelSet reports whether a channel is configured as a pairing
// participant (start or stop).
type ChannelSet func(tcspctypes.ChanNum) bool

// Channels builds a ChannelSet from an explicit list.
func Channels(channels ...tcspctypes.ChanNum) ChannelSet {
	set := make(map[tcspctypes.ChanNum]struct{}, len(channels))
	for _, c := range channels {
		set[c] = struct{}{}
	}
	return func(ch tcspctypes.ChanNum) bool {
		_, ok := set[ch]
		return ok
	}
}

// startRecord is one retained start detection awaiting pairing.
type startRecord struct {
	event   tcspcevent.DetectionEvent
	claimed bool
}

// windowPairer is the core shared by PairAll and PairOne: it retains
// every start within the trailing Window and evicts one once no future
// stop (inputs being monotone in abstime) could still reach it.
type windowPairer struct {
	downstream tcspcpipeline.Processor
	isStart    ChannelSet
	isStop     ChannelSet
	window     tcspctypes.Abstime
	onlyLatest bool // PairOne: at most one pair per stop

	starts []startRecord
}

// NewPairAll returns a processor emitting a detection_pair_event for
// every retained start within [stop.Abstime-window, stop.Abstime] on a
// configured start channel, for every detection on a configured stop
// channel (§4.6 pair_all).
func NewPairAll(downstream tcspcpipeline.Processor, isStart, isStop ChannelSet, window tcspctypes.Abstime) tcspcpipeline.Processor {
	return &windowPairer{downstream: downstream, isStart: isStart, isStop: isStop, window: window}
}

// NewPairOne returns a processor pairing each stop with only the
// latest start within the window (§4.6 pair_one).
func NewPairOne(downstream tcspcpipeline.Processor, isStart, isStop ChannelSet, window tcspctypes.Abstime) tcspcpipeline.Processor {
	return &windowPairer{downstream: downstream, isStart: isStart, isStop: isStop, window: window, onlyLatest: true}
}

func (p *windowPairer) Handle(ev tcspcevent.Event) error {
	e, ok := ev.(tcspcevent.DetectionEvent)
	if !ok {
		return p.downstream.Handle(ev)
	}

	p.evictExpired(e.Abstime)

	if p.isStop(e.Channel) {
		if err := p.emitPairs(e); err != nil {
			return err
		}
	}
	if p.isStart(e.Channel) {
		p.starts = append(p.starts, startRecord{event: e})
	}

	return p.downstream.Handle(ev)
}

func (p *windowPairer) evictExpired(now tcspctypes.Abstime) {
	cut := 0
	for cut < len(p.starts) && now-p.starts[cut].event.Abstime > p.window {
		cut++
	}
	if cut > 0 {
		p.starts = append([]startRecord(nil), p.starts[cut:]...)
	}
}

func (p *windowPairer) emitPairs(stop tcspcevent.DetectionEvent) error {
	if p.onlyLatest {
		for i := len(p.starts) - 1; i >= 0; i-- {
			s := p.starts[i]
			if s.event.Abstime > stop.Abstime {
				continue
			}
			return p.downstream.Handle(tcspcevent.DetectionPairEvent{Start: s.event, Stop: stop})
		}
		return nil
	}
	for _, s := range p.starts {
		if s.event.Abstime > stop.Abstime {
			continue
		}
		if err := p.downstream.Handle(tcspcevent.DetectionPairEvent{Start: s.event, Stop: stop}); err != nil {
			return err
		}
	}
	return nil
}

func (p *windowPairer) Flush() error { return p.downstream.Flush() }

func (p *windowPairer) NodeInfo() tcspcpipeline.NodeInfo {
	name := "pair_all"
	if p.onlyLatest {
		name = "pair_one"
	}
	return tcspcpipeline.NodeInfo{Name: name, Type: "Pairing"}
}

func (p *windowPairer) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(p.NodeInfo(), p.downstream.Graph())
}

// betweenPairer is the core shared by PairAllBetween and
// PairOneBetween: it retains, per start channel, only the most recent
// start (any earlier one on that channel is invalidated by the
// "intervening start" rule) still within the window.
type betweenPairer struct {
	downstream  tcspcpipeline.Processor
	isStart     ChannelSet
	isStop      ChannelSet
	window      tcspctypes.Abstime
	onePerStart bool // PairOneBetween: each start pairs with at most one stop

	active map[tcspctypes.ChanNum]*startRecord
}

// NewPairAllBetween returns a processor pairing each stop with the
// current (not superseded by an intervening same-channel start) start
// on every configured start channel, within the window (§4.6
// pair_all_between).
func NewPairAllBetween(downstream tcspcpipeline.Processor, isStart, isStop ChannelSet, window tcspctypes.Abstime) tcspcpipeline.Processor {
	return &betweenPairer{downstream: downstream, isStart: isStart, isStop: isStop, window: window, active: map[tcspctypes.ChanNum]*startRecord{}}
}

// NewPairOneBetween returns a processor like PairAllBetween, except
// each start is consumed after pairing once (§4.6 pair_one_between).
func NewPairOneBetween(downstream tcspcpipeline.Processor, isStart, isStop ChannelSet, window tcspctypes.Abstime) tcspcpipeline.Processor {
	return &betweenPairer{downstream: downstream, isStart: isStart, isStop: isStop, window: window, onePerStart: true, active: map[tcspctypes.ChanNum]*startRecord{}}
}

func (p *betweenPairer) Handle(ev tcspcevent.Event) error {
	e, ok := ev.(tcspcevent.DetectionEvent)
	if !ok {
		return p.downstream.Handle(ev)
	}

	if p.isStop(e.Channel) {
		if err := p.emitPairs(e); err != nil {
			return err
		}
	}
	if p.isStart(e.Channel) {
		// A new start on this channel supersedes whatever was active
		// before, whether or not it was ever claimed: that earlier
		// start's reachable range ends here.
		p.active[e.Channel] = &startRecord{event: e}
	}

	return p.downstream.Handle(ev)
}

func (p *betweenPairer) emitPairs(stop tcspcevent.DetectionEvent) error {
	// Iterate channels in a fixed order so output is deterministic
	// regardless of Go's randomized map iteration.
	channels := make([]tcspctypes.ChanNum, 0, len(p.active))
	for ch := range p.active {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })

	for _, ch := range channels {
		s := p.active[ch]
		if s == nil {
			continue
		}
		if s.event.Abstime > stop.Abstime || stop.Abstime-s.event.Abstime > p.window {
			continue
		}
		if p.onePerStart && s.claimed {
			continue
		}
		if err := p.downstream.Handle(tcspcevent.DetectionPairEvent{Start: s.event, Stop: stop}); err != nil {
			return err
		}
		if p.onePerStart {
			s.claimed = true
			p.active[ch] = s
		}
	}
	return nil
}

func (p *betweenPairer) Flush() error { return p.downstream.Flush() }

func (p *betweenPairer) NodeInfo() tcspcpipeline.NodeInfo {
	name := "pair_all_between"
	if p.onePerStart {
		name = "pair_one_between"
	}
	return tcspcpipeline.NodeInfo{Name: name, Type: "Pairing"}
}

func (p *betweenPairer) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(p.NodeInfo(), p.downstream.Graph())
}
