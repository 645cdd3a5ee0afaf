// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspctiming

import (
	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// minstdModulus/minstdMultiplier are the classic MINSTD parameters
// (Park-Miller), chosen for compact state: a single integer of
// generator state rather than a general-purpose PRNG's larger buffer.
// Dithered output is reproducible within one build of this package but
// is not a guaranteed-stable random sequence across versions (§4.8).
const (
	minstdModulus    = 2147483647 // 2^31 - 1
	minstdMultiplier = 48271
	minstdDefaultSeed = 1
)

// minstdLCG is a minimal Lehmer/MINSTD linear congruential generator.
type minstdLCG struct {
	state uint64
}

func newMINSTD() *minstdLCG {
	return &minstdLCG{state: minstdDefaultSeed}
}

// next returns a uniform value in [0, 1).
func (g *minstdLCG) next() float64 {
	g.state = (g.state * minstdMultiplier) % minstdModulus
	return float64(g.state) / float64(minstdModulus)
}

// ditherFloor adds a uniform [0,1) dither to x before flooring,
// rounding the real-valued delay/interval to an integer abstime
// (§4.8 "dithered variants").
func ditherFloor(rng *minstdLCG, x float64) tcspctypes.Abstime {
	return tcspctypes.Abstime(x + rng.next())
}

// clampSpacing bounds a dithered linear-sequence tick to
// [prev + floor(interval), prev + floor(interval) + 1], preserving
// average spacing while bounding per-tick jitter (§4.8).
func clampSpacing(prev tcspctypes.Abstime, interval float64, candidate tcspctypes.Abstime) tcspctypes.Abstime {
	lo := prev + tcspctypes.Abstime(interval)
	hi := lo + 1
	if candidate < lo {
		return lo
	}
	if candidate > hi {
		return hi
	}
	return candidate
}

// DitheredOneShotGenerator is OneShotGenerator with its real-valued
// delay dithered to an integer abstime (§4.8).
type DitheredOneShotGenerator struct {
	Delay float64

	rng     *minstdLCG
	pending bool
	at      tcspctypes.Abstime
}

func NewDitheredOneShotGenerator(delay float64) *DitheredOneShotGenerator {
	return &DitheredOneShotGenerator{Delay: delay, rng: newMINSTD()}
}

func (g *DitheredOneShotGenerator) Trigger(trigger tcspcevent.Event) {
	g.at = triggerAbstime(trigger) + ditherFloor(g.rng, g.Delay)
	g.pending = true
}

func (g *DitheredOneShotGenerator) Peek() (tcspctypes.Abstime, bool) {
	if !g.pending {
		return 0, false
	}
	return g.at, true
}

func (g *DitheredOneShotGenerator) Pop() tcspcevent.Event {
	g.pending = false
	return tcspcevent.TimeReachedEvent{Abstime: g.at}
}

// DitheredLinearGenerator is LinearGenerator with dithered, clamped
// spacing between successive ticks (§4.8). The whole tick sequence is
// drawn from the PRNG once, at Trigger time, so that Peek — which a
// caller may legitimately call more than once before Pop — stays
// idempotent instead of consuming randomness on every call.
type DitheredLinearGenerator struct {
	Delay    float64
	Interval float64
	Count    int

	rng   *minstdLCG
	ticks []tcspctypes.Abstime
	next  int
}

func NewDitheredLinearGenerator(delay, interval float64, count int) *DitheredLinearGenerator {
	return &DitheredLinearGenerator{Delay: delay, Interval: interval, Count: count, rng: newMINSTD()}
}

func (g *DitheredLinearGenerator) Trigger(trigger tcspcevent.Event) {
	base := triggerAbstime(trigger)
	ticks := make([]tcspctypes.Abstime, g.Count)
	for k := 0; k < g.Count; k++ {
		if k == 0 {
			ticks[0] = base + ditherFloor(g.rng, g.Delay)
			continue
		}
		candidate := ticks[k-1] + ditherFloor(g.rng, g.Interval)
		ticks[k] = clampSpacing(ticks[k-1], g.Interval, candidate)
	}
	g.ticks = ticks
	g.next = 0
}

func (g *DitheredLinearGenerator) Peek() (tcspctypes.Abstime, bool) {
	if g.next >= len(g.ticks) {
		return 0, false
	}
	return g.ticks[g.next], true
}

func (g *DitheredLinearGenerator) Pop() tcspcevent.Event {
	at := g.ticks[g.next]
	g.next++
	return tcspcevent.TimeReachedEvent{Abstime: at}
}
