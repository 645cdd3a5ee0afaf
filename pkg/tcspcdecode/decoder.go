// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspcdecode implements the raw-record decoders of §4.10/§6.1:
// the shared Becker-Hickl SPC / PicoQuant T3 macrotime state machine
// (generic over the fixed-size record layout), and the independent
// Swabian tag-stream decoder. Grounded on pkg/metricstore/lineprotocol.go
// (fixed-layout binary record parsing with byte-offset accessors) and
// internal/avro's binary record decode + type dispatch (SPEC_FULL.md).
package tcspcdecode

import (
	"fmt"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// RecordOps is implemented once per raw record layout (one per device
// family/variant); Decoder runs the shared macrotime-overflow,
// monotonicity, data-loss, marker and detection dispatch algorithm
// (§4.10) against whatever R's bit layout is.
type RecordOps[R any] interface {
	// Overflow reports whether rec is a macrotime-overflow record, and if
	// so how many overflow periods it represents (almost always 1; a few
	// variants carry a wider count).
	Overflow(rec R) (isOverflow bool, count uint64)
	// OverflowPeriod is the number of macrotime ticks represented by one
	// overflow of this record's low-bits field.
	OverflowPeriod() uint64
	// MacrotimeLow extracts the record's low-order macrotime bits.
	MacrotimeLow(rec R) uint64
	IsGap(rec R) bool
	// MarkerChannels returns the channels to emit a marker_event for, in
	// ascending order; nil/empty means rec is not a marker record. A
	// bitmask-style encoding (several simultaneous marker channels in one
	// record, e.g. BH/PicoHarp) and a single-channel encoding (e.g.
	// HydraHarp) are both expressed the same way here.
	MarkerChannels(rec R) []tcspctypes.ChanNum
	IsInvalid(rec R) bool
	AdcValue(rec R) uint16
	Channel(rec R) tcspctypes.ChanNum
}

// Decoder drives RecordOps[R] against a stream of raw records, emitting
// the resulting tcspcevent.Event stream downstream. It is a source, not
// a mid-pipeline Processor: its input is a raw record, not an Event.
type Decoder[R any] struct {
	Downstream tcspcpipeline.Processor
	Ops        RecordOps[R]

	macrotimeBase uint64
	lastAbstime   tcspctypes.Abstime
	hasLast       bool
}

func NewDecoder[R any](downstream tcspcpipeline.Processor, ops RecordOps[R]) *Decoder[R] {
	return &Decoder[R]{Downstream: downstream, Ops: ops}
}

// Decode runs the common algorithm of §4.10 against one raw record.
func (d *Decoder[R]) Decode(rec R) error {
	if isOverflow, count := d.Ops.Overflow(rec); isOverflow {
		d.macrotimeBase += count * d.Ops.OverflowPeriod()
		return d.Downstream.Handle(tcspcevent.TimeReachedEvent{Abstime: tcspctypes.Abstime(d.macrotimeBase)})
	}

	macrotime := tcspctypes.Abstime(d.macrotimeBase + d.Ops.MacrotimeLow(rec))
	if d.hasLast && macrotime <= d.lastAbstime {
		return fmt.Errorf("%w: non-monotonic macrotime", tcspcpipeline.ErrDataValidation)
	}
	d.lastAbstime = macrotime
	d.hasLast = true

	if d.Ops.IsGap(rec) {
		if err := d.Downstream.Handle(tcspcevent.DataLostEvent{Abstime: macrotime}); err != nil {
			return err
		}
	}

	if channels := d.Ops.MarkerChannels(rec); len(channels) > 0 {
		for _, ch := range channels {
			if err := d.Downstream.Handle(tcspcevent.MarkerEvent{Abstime: macrotime, Channel: ch}); err != nil {
				return err
			}
		}
		return nil
	}

	if d.Ops.IsInvalid(rec) {
		return d.Downstream.Handle(tcspcevent.TimeReachedEvent{Abstime: macrotime})
	}

	return d.Downstream.Handle(tcspcevent.TimeCorrelatedDetectionEvent{
		Abstime:  macrotime,
		Channel:  d.Ops.Channel(rec),
		Difftime: tcspctypes.Diff(d.Ops.AdcValue(rec)),
	})
}

// maskToChannels decomposes a bitmask into its set bit indices, in
// ascending order, for the RecordOps implementations whose marker
// field is a bitmask rather than a single channel number.
func maskToChannels(mask uint8) []tcspctypes.ChanNum {
	var out []tcspctypes.ChanNum
	for bit := 0; bit < 8; bit++ {
		if mask&(1<<uint(bit)) != 0 {
			out = append(out, tcspctypes.ChanNum(bit))
		}
	}
	return out
}

func (d *Decoder[R]) Flush() error {
	return d.Downstream.Flush()
}

func (d *Decoder[R]) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "decoder", Type: "Decoder"}
}

func (d *Decoder[R]) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(d.NodeInfo(), d.Downstream.Graph())
}
