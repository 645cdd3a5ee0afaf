// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspchistogram is the streaming histogramming engine of §4.5:
// single, batched, accumulating and element-wise-array histograms sharing
// one overflow-policy vocabulary, plus the bin-increment batch journal
// that lets the reset/stop policies roll an in-progress accumulation back
// out. Grounded on pkg/metricstore's buffer/checkpoint rollover handling
// (SPEC_FULL.md).
package tcspchistogram

import (
	"fmt"

	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// OverflowPolicy selects what a histogram does when a bin would exceed its
// configured MaxPerBin (§4.5).
type OverflowPolicy int

const (
	// Saturate counts the would-be overflow in Stats.Saturated instead of
	// the bin.
	Saturate OverflowPolicy = iota
	// Reset finalizes and clears the current histogram/cycle, then
	// replays the event(s) that triggered the overflow against a fresh
	// array.
	Reset
	// Stop finalizes the current histogram/cycle (concluding event marked
	// end-of-stream) then halts with tcspcpipeline.ErrEndOfProcessing.
	Stop
	// Error halts immediately with ErrHistogramOverflow.
	Error
)

func (p OverflowPolicy) String() string {
	switch p {
	case Saturate:
		return "saturate"
	case Reset:
		return "reset"
	case Stop:
		return "stop"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ErrOverflowLoop is raised when a reset policy's overflow handling would
// re-trigger forever: a reset on the very first increment of a fresh
// cycle, which can only mean max_per_bin is too small (e.g. zero) for any
// increment to ever fit (§4.5.1). It wraps
// tcspcpipeline.ErrHistogramOverflow.
var ErrOverflowLoop = fmt.Errorf("%w: reset-on-overflow would loop (max_per_bin too small for any increment)", tcspcpipeline.ErrHistogramOverflow)

// overflowAction is what the caller of incrementCell should do in
// response to an overflow, once the policy has been applied.
type overflowAction int

const (
	actionNone overflowAction = iota
	actionRetryAfterReset
	actionStopAfterConcluding
)

// incrementCell applies policy to incrementing cells[bin] by one, given
// that this is (or is not) the first increment of the current cycle. It
// returns whether the cell was actually incremented (false means the
// caller should count a saturation instead), the action the caller must
// still perform (emit a concluding event and clear, or clear and retry),
// and an error for the Error policy or a detected infinite-reset-loop.
func incrementCell[C tcspctypes.Bin](cells []C, bin int, maxPerBin C, cycleHasData bool, policy OverflowPolicy) (incremented bool, action overflowAction, err error) {
	if bin < 0 || bin >= len(cells) {
		return false, actionNone, fmt.Errorf("%w: bin index %d out of range [0,%d)", tcspcpipeline.ErrDataValidation, bin, len(cells))
	}
	if cells[bin] < maxPerBin {
		cells[bin]++
		return true, actionNone, nil
	}
	switch policy {
	case Saturate:
		return false, actionNone, nil
	case Reset:
		if !cycleHasData {
			return false, actionNone, ErrOverflowLoop
		}
		return false, actionRetryAfterReset, nil
	case Stop:
		return false, actionStopAfterConcluding, nil
	case Error:
		return false, actionNone, fmt.Errorf("%w: bin %d at capacity %d", tcspcpipeline.ErrHistogramOverflow, bin, maxPerBin)
	default:
		return false, actionNone, fmt.Errorf("tcspchistogram: unknown overflow policy %d", policy)
	}
}
