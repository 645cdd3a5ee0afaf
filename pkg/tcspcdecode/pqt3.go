// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcdecode

import "encoding/binary"

// PicoHarpT3Record is a PicoQuant PicoHarp T3 raw record (§6.1):
// channel in byte 3's high nibble (special when 15), 12-bit dtime in
// bytes 2-3 bits 0-11, 16-bit nsync in bytes 0-1.
type PicoHarpT3Record [4]byte

type picoHarpT3Ops struct{}

var PicoHarpT3 = picoHarpT3Ops{}

func (picoHarpT3Ops) channel(rec PicoHarpT3Record) uint8 { return rec[3] >> 4 }
func (picoHarpT3Ops) dtime(rec PicoHarpT3Record) uint16 {
	return binary.LittleEndian.Uint16(rec[2:4]) & 0x0FFF
}

// Overflow: channel==15 (special) and dtime==0. Count is always 1.
func (o picoHarpT3Ops) Overflow(rec PicoHarpT3Record) (bool, uint64) {
	if o.channel(rec) == 0x0F && o.dtime(rec) == 0 {
		return true, 1
	}
	return false, 0
}

func (picoHarpT3Ops) OverflowPeriod() uint64 { return 65536 }

func (picoHarpT3Ops) MacrotimeLow(rec PicoHarpT3Record) uint64 {
	return uint64(binary.LittleEndian.Uint16(rec[0:2]))
}

func (picoHarpT3Ops) IsGap(PicoHarpT3Record) bool { return false }

// MarkerChannels: special channel (15) with nonzero dtime signals a
// marker record, whose low 4 bits of dtime are the marker bitmask.
func (o picoHarpT3Ops) MarkerChannels(rec PicoHarpT3Record) []int16 {
	if o.channel(rec) != 0x0F || o.dtime(rec) == 0 {
		return nil
	}
	return maskToChannels(uint8(o.dtime(rec)) & 0x0F)
}

func (picoHarpT3Ops) IsInvalid(PicoHarpT3Record) bool        { return false }
func (o picoHarpT3Ops) AdcValue(rec PicoHarpT3Record) uint16 { return o.dtime(rec) }
func (o picoHarpT3Ops) Channel(rec PicoHarpT3Record) int16   { return int16(o.channel(rec)) }

// HydraHarpT3Record is shared by the PicoQuant HydraHarp T3 V1/V2 and
// MultiHarp raw record layout (§6.1): special bit = byte 3 bit 7,
// channel = byte 3 bits 1-6 (special when 63), 15-bit dtime split
// lo6/mid8/hi1, 10-bit nsync in bytes 0-1.
type HydraHarpT3Record [4]byte

type hydraHarpT3Ops struct {
	v2 bool
}

// HydraHarpT3V1 has a single-unit overflow count; HydraHarpT3V2's
// overflow count comes from the nsync field (or 1 if nsync is 0).
var (
	HydraHarpT3V1 = hydraHarpT3Ops{v2: false}
	HydraHarpT3V2 = hydraHarpT3Ops{v2: true}
)

func (hydraHarpT3Ops) special(rec HydraHarpT3Record) bool { return rec[3]&0x80 != 0 }
func (hydraHarpT3Ops) channel(rec HydraHarpT3Record) uint8 {
	return (rec[3] >> 1) & 0x3F
}
func (hydraHarpT3Ops) nsync(rec HydraHarpT3Record) uint16 {
	return uint16(rec[0]) | (uint16(rec[1])&0x03)<<8
}

func (o hydraHarpT3Ops) Overflow(rec HydraHarpT3Record) (bool, uint64) {
	if !o.special(rec) || o.channel(rec) != 0x3F {
		return false, 0
	}
	if !o.v2 {
		return true, 1
	}
	n := o.nsync(rec)
	if n == 0 {
		return true, 1
	}
	return true, uint64(n)
}

func (hydraHarpT3Ops) OverflowPeriod() uint64 { return 1024 }

func (o hydraHarpT3Ops) MacrotimeLow(rec HydraHarpT3Record) uint64 { return uint64(o.nsync(rec)) }

func (hydraHarpT3Ops) IsGap(HydraHarpT3Record) bool { return false }

// MarkerChannels: special bit set with a non-overflow channel value.
// Unlike PicoHarp's bitmask encoding, the channel field here directly
// names the single marker channel.
func (o hydraHarpT3Ops) MarkerChannels(rec HydraHarpT3Record) []int16 {
	if !o.special(rec) || o.channel(rec) == 0x3F {
		return nil
	}
	return []int16{int16(o.channel(rec))}
}

func (hydraHarpT3Ops) IsInvalid(HydraHarpT3Record) bool { return false }

func (hydraHarpT3Ops) dtime(rec HydraHarpT3Record) uint16 {
	lo6 := uint16(rec[1]>>2) & 0x3F
	mid8 := uint16(rec[2])
	hi1 := uint16(rec[3] & 0x01)
	return lo6 | mid8<<6 | hi1<<14
}

func (o hydraHarpT3Ops) AdcValue(rec HydraHarpT3Record) uint16 { return o.dtime(rec) }
func (o hydraHarpT3Ops) Channel(rec HydraHarpT3Record) int16   { return int16(o.channel(rec)) }
