// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcdecode

import (
	"encoding/binary"
	"fmt"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// SwabianTagRecord is a 16-byte Swabian tag-stream record (§6.1): byte
// 0 tag type, byte 1 reserved, bytes 2-3 u16 missed-event count, bytes
// 4-7 i32 channel, bytes 8-15 i64 time in picoseconds.
type SwabianTagRecord [16]byte

const (
	swabianTagTimeTag       = 0
	swabianTagError         = 1
	swabianTagOverflowBegin = 2
	swabianTagOverflowEnd   = 3
	swabianTagMissedEvents  = 4
)

// SwabianDecoder decodes a Swabian tag stream (§4.10 decode_swabian_tags).
// Unlike the BH/PQ state machine this dispatches purely on the tag type
// byte, with no macrotime-overflow accumulation. A "time_tag" record is
// the closest match to tcspcevent.DetectionEvent in this module's event
// catalog (the original's time_tagged_count_event names a bare
// channel+time photon tag, which is exactly what DetectionEvent is).
// Once an error-tag record is seen, every subsequent record is silently
// ignored, matching the spec's "ignored until a fresh pipeline is
// constructed".
type SwabianDecoder struct {
	Downstream tcspcpipeline.Processor

	errored bool
}

func NewSwabianDecoder(downstream tcspcpipeline.Processor) *SwabianDecoder {
	return &SwabianDecoder{Downstream: downstream}
}

func (s *SwabianDecoder) Decode(rec SwabianTagRecord) error {
	if s.errored {
		return nil
	}

	timePs := tcspctypes.Abstime(int64(binary.LittleEndian.Uint64(rec[8:16])))

	switch rec[0] {
	case swabianTagTimeTag:
		channel := tcspctypes.ChanNum(int32(binary.LittleEndian.Uint32(rec[4:8])))
		return s.Downstream.Handle(tcspcevent.DetectionEvent{Abstime: timePs, Channel: channel})

	case swabianTagError:
		s.errored = true
		return fmt.Errorf("%w: swabian tag stream reported an error tag", tcspcpipeline.ErrDataValidation)

	case swabianTagOverflowBegin:
		return s.Downstream.Handle(tcspcevent.BeginLostIntervalEvent{Abstime: timePs})

	case swabianTagOverflowEnd:
		return s.Downstream.Handle(tcspcevent.EndLostIntervalEvent{Abstime: timePs})

	case swabianTagMissedEvents:
		count := binary.LittleEndian.Uint16(rec[2:4])
		channel := tcspctypes.ChanNum(int32(binary.LittleEndian.Uint32(rec[4:8])))
		return s.Downstream.Handle(tcspcevent.UntaggedCountsEvent{
			Abstime: timePs,
			Count:   uint32(count),
			Channel: channel,
		})

	default:
		return fmt.Errorf("%w: swabian tag stream: unknown tag type %d", tcspcpipeline.ErrDataValidation, rec[0])
	}
}

func (s *SwabianDecoder) Flush() error {
	return s.Downstream.Flush()
}

func (s *SwabianDecoder) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "decode_swabian_tags", Type: "SwabianDecoder"}
}

func (s *SwabianDecoder) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(s.NodeInfo(), s.Downstream.Graph())
}
