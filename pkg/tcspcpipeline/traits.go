// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcpipeline

import "github.com/flimlab/tcspc/pkg/tcspcevent"

// HandlesEvent probes (at runtime, via a type switch held by the processor
// itself) whether p specially handles events of the same concrete type as
// sample, as opposed to merely passing them through. Processors that want
// to expose this implement Prober; the original's compile-time trait
// metafunctions (handles_event_set, handles_flush, ...) have no exact Go
// analogue without codegen, so here the check is pushed to run time and is
// opt-in.
type Prober interface {
	Handles(ev tcspcevent.Event) bool
}

// HandlesEvent reports whether p is a Prober and claims to specially
// handle sample's concrete type. Processors that do not implement Prober
// are assumed to pass everything through.
func HandlesEvent(p Processor, sample tcspcevent.Event) bool {
	prober, ok := p.(Prober)
	if !ok {
		return false
	}
	return prober.Handles(sample)
}
