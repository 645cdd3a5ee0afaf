// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcordering

import (
	"fmt"
	"sort"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
)

// RecoverOrder buffers events and releases them downstream in abstime
// order once it is known no later-but-smaller event can still arrive
// within the configured window (§4.3).
type RecoverOrder struct {
	Downstream tcspcpipeline.Processor
	Window     int64

	buf        []tcspcevent.Event
	lastEmitted int64
	haveEmitted bool
}

func NewRecoverOrder(downstream tcspcpipeline.Processor, window int64) *RecoverOrder {
	return &RecoverOrder{Downstream: downstream, Window: window}
}

func (r *RecoverOrder) Handle(ev tcspcevent.Event) error {
	t, ok := abstimeOf(ev)
	if !ok {
		return r.Downstream.Handle(ev)
	}

	r.buf = append(r.buf, ev)
	cutoff := t - r.Window

	sort.SliceStable(r.buf, func(i, j int) bool {
		ti, _ := abstimeOf(r.buf[i])
		tj, _ := abstimeOf(r.buf[j])
		return ti < tj
	})

	emit := 0
	for emit < len(r.buf) {
		et, _ := abstimeOf(r.buf[emit])
		if et > cutoff {
			break
		}
		emit++
	}

	for i := 0; i < emit; i++ {
		et, _ := abstimeOf(r.buf[i])
		if r.haveEmitted && et < r.lastEmitted {
			return fmt.Errorf("%w: recover_order: abstime %d emitted after %d with window exhausted", tcspcpipeline.ErrDataValidation, et, r.lastEmitted)
		}
		if err := r.Downstream.Handle(r.buf[i]); err != nil {
			return err
		}
		r.lastEmitted = et
		r.haveEmitted = true
	}
	r.buf = r.buf[emit:]
	return nil
}

func (r *RecoverOrder) Flush() error {
	for _, ev := range r.buf {
		if err := r.Downstream.Handle(ev); err != nil {
			return err
		}
	}
	r.buf = nil
	return r.Downstream.Flush()
}

func (r *RecoverOrder) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "recover_order", Type: "RecoverOrder"}
}

func (r *RecoverOrder) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(r.NodeInfo(), r.Downstream.Graph())
}
