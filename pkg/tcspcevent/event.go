// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspcevent holds the catalog of value types that flow through a
// pipeline: time-tagged detection events, histogram-related events and
// timing-model events. Every type here is a plain, copyable struct with no
// hidden invariants beyond the field domains documented on each type, per
// spec §3.2/§3.3.
package tcspcevent

import "github.com/flimlab/tcspc/pkg/tcspctypes"

// Event is the marker interface every event type in this package
// implements. Processors dispatch on the concrete type with a type switch
// and forward anything they do not special-case to their downstream
// unchanged; this is the idiomatic-Go substitute for the original's
// compile-time "does this processor accept this event set" checking (see
// DESIGN.md).
type Event interface {
	isEvent()
}

type base struct{}

func (base) isEvent() {}

// TimeReachedEvent signals that input has been processed up to Abstime with
// nothing of interest occurring, used by decoders to surface macrotime
// overflow progress and by regulate-time-reached to guarantee periodic
// liveness.
type TimeReachedEvent struct {
	base
	Abstime tcspctypes.Abstime
}

// DataLostEvent signals a gap in the data stream at Abstime (e.g. a
// hardware FIFO overflow) with no further detail.
type DataLostEvent struct {
	base
	Abstime tcspctypes.Abstime
}

// BeginLostIntervalEvent marks the start of a data-loss interval.
type BeginLostIntervalEvent struct {
	base
	Abstime tcspctypes.Abstime
}

// EndLostIntervalEvent marks the end of a data-loss interval.
type EndLostIntervalEvent struct {
	base
	Abstime tcspctypes.Abstime
}

// UntaggedCountsEvent reports Count photons on Channel that arrived without
// individual per-photon timing information.
type UntaggedCountsEvent struct {
	base
	Abstime tcspctypes.Abstime
	Count   uint32
	Channel tcspctypes.ChanNum
}

// DetectionEvent is a bare photon detection on Channel.
type DetectionEvent struct {
	base
	Abstime tcspctypes.Abstime
	Channel tcspctypes.ChanNum
}

// TimeCorrelatedDetectionEvent is a photon detection carrying a
// microtime/difftime relative to a sync pulse.
type TimeCorrelatedDetectionEvent struct {
	base
	Abstime  tcspctypes.Abstime
	Channel  tcspctypes.ChanNum
	Difftime tcspctypes.Diff
}

// MarkerEvent is an external marker/gate pulse on Channel.
type MarkerEvent struct {
	base
	Abstime tcspctypes.Abstime
	Channel tcspctypes.ChanNum
}

// DetectionPairEvent pairs a start detection with a later stop detection,
// emitted by the pairing processors (§4.6).
type DetectionPairEvent struct {
	base
	Start DetectionEvent
	Stop  DetectionEvent
}

// WarningEvent carries a non-fatal diagnostic message emitted by a
// processor that detected an anomaly but chose to keep the stream flowing
// (§4.3, §7).
type WarningEvent struct {
	base
	Message string
}
