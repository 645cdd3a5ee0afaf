// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspchistogram

import (
	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// journalHeader is one (delta, count) pair: delta is the batch-index gap
// from the previous stored batch, count is the number of bin indices that
// batch contributed, both capped at 255 with the split convention from
// §4.5.6 (delta=300 -> (255,0)+(45,count); count=300 -> (delta,255)+(0,45)).
type journalHeader struct {
	delta uint8
	count uint8
}

// Journal is a compact record of which bin indices were applied by which
// batch within the current cycle, kept solely to allow Rollback to undo
// an in-progress accumulation when an overflow under Reset/Stop requires
// it (§4.5.6). Only bins that actually incremented a cell are recorded in
// bins: a saturated increment never touches a cell, so undoing it needs
// no bin index, only a count (saturated), which Rollback subtracts from
// both Stats.Saturated and Stats.Total.
type Journal[B tcspctypes.BinIndex] struct {
	headers   []journalHeader
	bins      []B
	lastBatch uint64
	haveBatch bool
	saturated int
}

// NewJournal returns an empty journal.
func NewJournal[B tcspctypes.BinIndex]() *Journal[B] {
	return &Journal[B]{}
}

// AppendSaturated records n additional saturated increments (bins that
// overflowed under the Saturate policy, touching no cell) contributed by
// the batch currently being journaled.
func (j *Journal[B]) AppendSaturated(n int) {
	j.saturated += n
}

// Append records that batchIndex contributed bins that were actually
// incremented (must be called in non-decreasing batchIndex order within
// one cycle; empty bins are a no-op, matching "skipping empty batches").
func (j *Journal[B]) Append(batchIndex uint64, bins []B) {
	if len(bins) == 0 {
		return
	}
	delta := batchIndex
	if j.haveBatch {
		delta = batchIndex - j.lastBatch
	}
	j.lastBatch = batchIndex
	j.haveBatch = true

	// Split an over-255 delta into (255,0) chunks first, carrying no count.
	for delta > 255 {
		j.headers = append(j.headers, journalHeader{delta: 255, count: 0})
		delta -= 255
	}
	// The remaining delta accompanies the first count chunk; once that is
	// emitted, every further chunk (for an over-255 count) carries delta 0.
	count := uint64(len(bins))
	deltaPending := true
	for count > 255 {
		d := uint64(0)
		if deltaPending {
			d = delta
			deltaPending = false
		}
		j.headers = append(j.headers, journalHeader{delta: uint8(d), count: 255})
		count -= 255
	}
	d := uint64(0)
	if deltaPending {
		d = delta
	}
	j.headers = append(j.headers, journalHeader{delta: uint8(d), count: uint8(count)})
	j.bins = append(j.bins, bins...)
}

// Entry is one (batchIndex, begin, end) triple yielded by iteration,
// begin/end being the [begin,end) slice of accumulated bin indices that
// batch contributed.
type Entry[B tcspctypes.BinIndex] struct {
	BatchIndex uint64
	Begin, End int
}

// Entries decodes the journal into (batch_index, begin, end) triples in
// append order. A batch whose delta or count exceeded 255 was stored as
// several consecutive header pairs (§4.5.6); Entries does not reassemble
// those back into one triple — it yields one Entry per stored header,
// which is sufficient for any caller that only needs the bin indices in
// append order together with a running batch index. Rollback does not
// use Entries; it walks j.bins directly since it has no need for batch
// boundaries.
func (j *Journal[B]) Entries() []Entry[B] {
	entries := make([]Entry[B], 0, len(j.headers))
	batchIndex := uint64(0)
	pos := 0
	for _, h := range j.headers {
		batchIndex += uint64(h.delta)
		begin := pos
		end := pos + int(h.count)
		pos = end
		entries = append(entries, Entry[B]{BatchIndex: batchIndex, Begin: begin, End: end})
	}
	return entries
}

// Bins returns the underlying concatenated bin-index slice; Entry.Begin/
// End index into it.
func (j *Journal[B]) Bins() []B { return j.bins }

// Reset clears the journal for a fresh cycle.
func (j *Journal[B]) Reset() {
	j.headers = nil
	j.bins = nil
	j.lastBatch = 0
	j.haveBatch = false
	j.saturated = 0
}

// Rollback decrements cells for every bin index recorded in the journal,
// decrements Total once per recorded increment (bin-touching or not), and
// decrements Saturated once per saturated increment, walking the journal
// in append order. This restores both cells and stats to their exact
// pre-batch values (testable property #3).
func Rollback[B tcspctypes.BinIndex, C tcspctypes.Bin](j *Journal[B], cells []C, stats *tcspcevent.HistogramStats) {
	for _, bin := range j.bins {
		cells[bin]--
		stats.Total--
	}
	stats.Total -= uint64(j.saturated)
	stats.Saturated -= uint64(j.saturated)
}
