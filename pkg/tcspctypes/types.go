// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspctypes defines the numeric "data-type set" that the rest of
// this module is parameterized over: abstime, channel, difftime, bin-index
// and bin-cell types. Each processor either uses the package defaults
// (Abstime, ChanNum, Diff, BinIdx, BinCount) or is written as a generic
// function/type accepting an override that satisfies the matching
// constraint below (AbsTime, Channel, DiffTime, BinIndex, Bin).
package tcspctypes

import "golang.org/x/exp/constraints"

// AbsTime is the constraint satisfied by any signed integer usable as an
// absolute timestamp. The package default is int64.
type AbsTime interface {
	constraints.Signed
}

// Channel is the constraint satisfied by any integer usable as a detector
// channel number.
type Channel interface {
	constraints.Integer
}

// DiffTime is the constraint satisfied by any integer usable as a
// per-photon microtime/difftime value.
type DiffTime interface {
	constraints.Integer
}

// BinIndex is the constraint satisfied by any unsigned integer usable as a
// histogram bin index.
type BinIndex interface {
	constraints.Unsigned
}

// Bin is the constraint satisfied by any unsigned integer usable as a
// histogram cell value.
type Bin interface {
	constraints.Unsigned
}

// Default numeric types, used by every processor that does not need to
// override the data-type set.
type (
	Abstime  = int64
	ChanNum  = int16
	Diff     = uint16
	BinIdx   = uint32
	BinCount = uint64
)
