// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcdecode

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctest"
	"github.com/stretchr/testify/require"
)

func bhSPC32Rec(macrotimeLow uint16, routingOrMask uint8, adc uint16, flags uint8) BHSPC32Record {
	var rec BHSPC32Record
	binary.LittleEndian.PutUint16(rec[0:2], macrotimeLow&0x0FFF|uint16(routingOrMask)<<12)
	binary.LittleEndian.PutUint16(rec[2:4], adc&0x0FFF|uint16(flags)<<12)
	return rec
}

func TestBHSPC32DetectionAndOverflowAdvanceMacrotimeBase(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	d := NewDecoder[BHSPC32Record](sink, BHSPC32)

	require.NoError(t, d.Decode(bhSPC32Rec(5, 3, 100, 0)))
	require.NoError(t, d.Decode(bhSPC32Rec(0, 0, 0, 0x04))) // 0x4 in the flags nibble -> 0x40 in byte3 (overflow flag, bit 6)
	require.NoError(t, d.Decode(bhSPC32Rec(10, 1, 50, 0)))

	require.Len(t, sink.Events, 3)
	first := sink.Events[0].(tcspcevent.TimeCorrelatedDetectionEvent)
	require.Equal(t, int64(5), int64(first.Abstime))
	require.Equal(t, int16(3), first.Channel)
	require.Equal(t, uint16(100), uint16(first.Difftime))

	overflow := sink.Events[1].(tcspcevent.TimeReachedEvent)
	require.Equal(t, int64(4096), int64(overflow.Abstime))

	third := sink.Events[2].(tcspcevent.TimeCorrelatedDetectionEvent)
	require.Equal(t, int64(4106), int64(third.Abstime))
	require.Equal(t, int16(1), third.Channel)
}

func TestBHSPC32RejectsNonMonotonicMacrotime(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	d := NewDecoder[BHSPC32Record](sink, BHSPC32)

	require.NoError(t, d.Decode(bhSPC32Rec(10, 0, 0, 0)))
	err := d.Decode(bhSPC32Rec(10, 0, 0, 0))
	require.Error(t, err)
	require.True(t, errors.Is(err, tcspcpipeline.ErrDataValidation))
}

func TestBHSPC32MarkerEmitsOneEventPerSetBit(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	d := NewDecoder[BHSPC32Record](sink, BHSPC32)

	// mask 0b0101 (routing nibble=5) with marker flag bit4 (0x1 in the
	// flags nibble, i.e. 0x10 in byte 3).
	require.NoError(t, d.Decode(bhSPC32Rec(7, 5, 0, 0x01)))

	require.Len(t, sink.Events, 2)
	m0 := sink.Events[0].(tcspcevent.MarkerEvent)
	m1 := sink.Events[1].(tcspcevent.MarkerEvent)
	require.Equal(t, int64(7), int64(m0.Abstime))
	require.Equal(t, int16(0), m0.Channel)
	require.Equal(t, int16(2), m1.Channel)
}

func picoHarpRec(channel uint8, dtime uint16, nsync uint16) PicoHarpT3Record {
	var rec PicoHarpT3Record
	binary.LittleEndian.PutUint16(rec[0:2], nsync)
	binary.LittleEndian.PutUint16(rec[2:4], dtime&0x0FFF|uint16(channel)<<12)
	return rec
}

func TestPicoHarpT3OverflowRecord(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	d := NewDecoder[PicoHarpT3Record](sink, PicoHarpT3)

	require.NoError(t, d.Decode(picoHarpRec(0x0F, 0, 0)))

	require.Len(t, sink.Events, 1)
	ev := sink.Events[0].(tcspcevent.TimeReachedEvent)
	require.Equal(t, int64(65536), int64(ev.Abstime))
}

func TestPicoHarpT3MarkerUsesDtimeLowNibbleAsMask(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	d := NewDecoder[PicoHarpT3Record](sink, PicoHarpT3)

	require.NoError(t, d.Decode(picoHarpRec(0x0F, 5, 20))) // mask 0b0101

	require.Len(t, sink.Events, 2)
	m0 := sink.Events[0].(tcspcevent.MarkerEvent)
	m1 := sink.Events[1].(tcspcevent.MarkerEvent)
	require.Equal(t, int64(20), int64(m0.Abstime))
	require.Equal(t, int16(0), m0.Channel)
	require.Equal(t, int16(2), m1.Channel)
}

func hydraHarpRec(special bool, channel uint8, nsync uint16) HydraHarpT3Record {
	var rec HydraHarpT3Record
	rec[0] = byte(nsync & 0xFF)
	rec[1] = byte((nsync >> 8) & 0x03)
	b3 := (channel & 0x3F) << 1
	if special {
		b3 |= 0x80
	}
	rec[3] = b3
	return rec
}

func TestHydraHarpT3V2OverflowCountComesFromNsync(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	d := NewDecoder[HydraHarpT3Record](sink, HydraHarpT3V2)

	require.NoError(t, d.Decode(hydraHarpRec(true, 0x3F, 7)))

	require.Len(t, sink.Events, 1)
	ev := sink.Events[0].(tcspcevent.TimeReachedEvent)
	require.Equal(t, int64(7*1024), int64(ev.Abstime))
}

func TestHydraHarpT3V1OverflowCountAlwaysOne(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	d := NewDecoder[HydraHarpT3Record](sink, HydraHarpT3V1)

	require.NoError(t, d.Decode(hydraHarpRec(true, 0x3F, 7)))

	require.Len(t, sink.Events, 1)
	ev := sink.Events[0].(tcspcevent.TimeReachedEvent)
	require.Equal(t, int64(1024), int64(ev.Abstime))
}

func TestHydraHarpT3MarkerNamesSingleChannel(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	d := NewDecoder[HydraHarpT3Record](sink, HydraHarpT3V1)

	require.NoError(t, d.Decode(hydraHarpRec(true, 5, 0)))

	require.Len(t, sink.Events, 1)
	m := sink.Events[0].(tcspcevent.MarkerEvent)
	require.Equal(t, int16(5), m.Channel)
}

func swabianTimeTag(channel int32, timePs int64) SwabianTagRecord {
	var rec SwabianTagRecord
	rec[0] = swabianTagTimeTag
	binary.LittleEndian.PutUint32(rec[4:8], uint32(channel))
	binary.LittleEndian.PutUint64(rec[8:16], uint64(timePs))
	return rec
}

func TestSwabianDecoderTimeTagAndMissedEvents(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	d := NewSwabianDecoder(sink)

	require.NoError(t, d.Decode(swabianTimeTag(3, 1000)))

	var missed SwabianTagRecord
	missed[0] = swabianTagMissedEvents
	binary.LittleEndian.PutUint16(missed[2:4], 5)
	binary.LittleEndian.PutUint32(missed[4:8], 2)
	binary.LittleEndian.PutUint64(missed[8:16], 2000)
	require.NoError(t, d.Decode(missed))

	require.Len(t, sink.Events, 2)
	tag := sink.Events[0].(tcspcevent.DetectionEvent)
	require.Equal(t, int64(1000), int64(tag.Abstime))
	require.Equal(t, int16(3), tag.Channel)

	mev := sink.Events[1].(tcspcevent.UntaggedCountsEvent)
	require.Equal(t, int64(2000), int64(mev.Abstime))
	require.Equal(t, uint32(5), mev.Count)
	require.Equal(t, int16(2), mev.Channel)
}

func TestSwabianDecoderIgnoresRecordsAfterErrorTag(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	d := NewSwabianDecoder(sink)

	var errRec SwabianTagRecord
	errRec[0] = swabianTagError
	err := d.Decode(errRec)
	require.Error(t, err)
	require.True(t, errors.Is(err, tcspcpipeline.ErrDataValidation))

	require.NoError(t, d.Decode(swabianTimeTag(1, 5000)))
	require.Empty(t, sink.Events)
}

func TestSwabianDecoderOverflowBeginEnd(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	d := NewSwabianDecoder(sink)

	var begin, end SwabianTagRecord
	begin[0] = swabianTagOverflowBegin
	binary.LittleEndian.PutUint64(begin[8:16], 100)
	end[0] = swabianTagOverflowEnd
	binary.LittleEndian.PutUint64(end[8:16], 200)

	require.NoError(t, d.Decode(begin))
	require.NoError(t, d.Decode(end))

	require.Len(t, sink.Events, 2)
	b := sink.Events[0].(tcspcevent.BeginLostIntervalEvent)
	e := sink.Events[1].(tcspcevent.EndLostIntervalEvent)
	require.Equal(t, int64(100), int64(b.Abstime))
	require.Equal(t, int64(200), int64(e.Abstime))
}
