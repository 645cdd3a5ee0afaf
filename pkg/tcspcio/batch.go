// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcio

import (
	"fmt"
	"unsafe"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
)

// RecordSink accepts one decoded T at a time. tcspcdecode.Decoder[T]
// already satisfies this interface structurally, with no code on its side
// needing to change.
type RecordSink[T any] interface {
	Decode(rec T) error
	Flush() error
}

// BatchSink accepts a whole buffer's worth of decoded T records at once,
// for consumers that want to process a batch as a unit rather than one
// record at a time.
type BatchSink[T any] interface {
	HandleBatch(records []T) error
	Flush() error
}

// decodeAligned copies leftover followed by incoming into a fresh buffer,
// reinterprets as many whole T records from the front of it as it can (via
// the same unsafe reinterpret-cast idiom pkg/metricstore/binaryCheckpoint.go
// uses in the opposite direction for writeFloatArray), and returns the
// undecoded trailing bytes to carry over to the next call. The copy is
// required because incoming's backing array may belong to a pool buffer
// that gets released and reused as soon as the caller returns.
func decodeAligned[T any](leftover, incoming []byte) (records []T, trailing []byte) {
	recSize := recordSize[T]()
	combined := make([]byte, 0, len(leftover)+len(incoming))
	combined = append(combined, leftover...)
	combined = append(combined, incoming...)

	usable := (len(combined) / recSize) * recSize
	if usable > 0 {
		records = unsafe.Slice((*T)(unsafe.Pointer(&combined[0])), usable/recSize)
	}
	if usable < len(combined) {
		trailing = combined[usable:]
	}
	return records, trailing
}

// BatchFromBytes regroups an incoming tcspcevent.ByteBufferEvent stream
// into whole-record batches and forwards each batch to Downstream in one
// call (§4.12 batch_from_bytes<T, Container>; Container is always a Go
// slice here, which already generalizes over any fixed-capacity or
// growable backing store a C++ Container template parameter would have
// named). Records split across two incoming buffers are reassembled
// transparently.
type BatchFromBytes[T any] struct {
	Downstream BatchSink[T]

	leftover []byte
}

func NewBatchFromBytes[T any](downstream BatchSink[T]) *BatchFromBytes[T] {
	return &BatchFromBytes[T]{Downstream: downstream}
}

func (b *BatchFromBytes[T]) Handle(ev tcspcevent.Event) error {
	bbe, ok := ev.(tcspcevent.ByteBufferEvent)
	if !ok {
		return fmt.Errorf("%w: batch_from_bytes: expected a ByteBufferEvent, got %T", tcspcpipeline.ErrDataValidation, ev)
	}

	records, trailing := decodeAligned[T](b.leftover, bbe.Bytes)
	b.leftover = trailing
	if bbe.Release != nil {
		bbe.Release()
	}
	if len(records) == 0 {
		return nil
	}
	return b.Downstream.HandleBatch(records)
}

func (b *BatchFromBytes[T]) Flush() error {
	if len(b.leftover) > 0 {
		return fmt.Errorf("%w: batch_from_bytes: %d trailing bytes left at flush", tcspcpipeline.ErrDataValidation, len(b.leftover))
	}
	return b.Downstream.Flush()
}

func (b *BatchFromBytes[T]) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "batch_from_bytes", Type: "BatchFromBytes"}
}

func (b *BatchFromBytes[T]) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(b.NodeInfo(), tcspcpipeline.Graph{})
}

// UnbatchFromBytes regroups an incoming tcspcevent.ByteBufferEvent stream
// into individual T records, forwarded to Downstream one at a time (§4.12
// unbatch_from_bytes<T>). Composed with ViewAsBytes on an already
// record-aligned byte stream it reproduces the original bytes exactly
// (the roundtrip this module's tests exercise).
type UnbatchFromBytes[T any] struct {
	Downstream RecordSink[T]

	leftover []byte
}

func NewUnbatchFromBytes[T any](downstream RecordSink[T]) *UnbatchFromBytes[T] {
	return &UnbatchFromBytes[T]{Downstream: downstream}
}

func (u *UnbatchFromBytes[T]) Handle(ev tcspcevent.Event) error {
	bbe, ok := ev.(tcspcevent.ByteBufferEvent)
	if !ok {
		return fmt.Errorf("%w: unbatch_from_bytes: expected a ByteBufferEvent, got %T", tcspcpipeline.ErrDataValidation, ev)
	}

	records, trailing := decodeAligned[T](u.leftover, bbe.Bytes)
	u.leftover = trailing
	if bbe.Release != nil {
		bbe.Release()
	}
	for _, rec := range records {
		if err := u.Downstream.Decode(rec); err != nil {
			return err
		}
	}
	return nil
}

func (u *UnbatchFromBytes[T]) Flush() error {
	if len(u.leftover) > 0 {
		return fmt.Errorf("%w: unbatch_from_bytes: %d trailing bytes left at flush", tcspcpipeline.ErrDataValidation, len(u.leftover))
	}
	return u.Downstream.Flush()
}

func (u *UnbatchFromBytes[T]) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "unbatch_from_bytes", Type: "UnbatchFromBytes"}
}

func (u *UnbatchFromBytes[T]) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(u.NodeInfo(), tcspcpipeline.Graph{})
}
