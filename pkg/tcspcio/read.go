// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcio

import (
	"errors"
	"fmt"
	"io"
	"unsafe"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspcpool"
)

// ReadBinaryStream reads raw bytes from Source and forwards them downstream
// as tcspcevent.ByteBufferEvent values, one per buffer checked out of Pool
// (§4.12 read_binary_stream<T>). T names only the record size: every
// forwarded buffer holds a whole number of T-sized records, so a split
// record never straddles two buffer events. ReadSize should be a multiple
// of sizeof(T); Pool's buffers must have capacity >= ReadSize.
//
// On a non-EOF read error, a warning_event is forwarded and Run returns
// the error. On EOF with a non-empty, sub-record-sized remainder, Run
// returns a data-validation error instead of silently dropping the
// trailing bytes, since that remainder means the stream was truncated
// mid-record.
type ReadBinaryStream[T any] struct {
	Source     io.Reader
	Pool       *tcspcpool.Pool[[]byte]
	ReadSize   int
	MaxBytes   int64 // 0 means unbounded
	Downstream tcspcpipeline.Processor

	leftover []byte
	read     int64
}

func NewReadBinaryStream[T any](source io.Reader, pool *tcspcpool.Pool[[]byte], readSize int, maxBytes int64, downstream tcspcpipeline.Processor) *ReadBinaryStream[T] {
	return &ReadBinaryStream[T]{Source: source, Pool: pool, ReadSize: readSize, MaxBytes: maxBytes, Downstream: downstream}
}

func recordSize[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Run drives the read loop to completion, forwarding buffers and the
// final Flush downstream. Call it once; ReadBinaryStream has no other
// entry point since, as a source, it has no upstream to push events into
// it.
func (r *ReadBinaryStream[T]) Run() error {
	recSize := recordSize[T]()
	if recSize <= 0 {
		return fmt.Errorf("%w: read_binary_stream: zero-sized record type", tcspcpipeline.ErrDataValidation)
	}
	if r.ReadSize < recSize {
		return fmt.Errorf("%w: read_binary_stream: read size %d smaller than record size %d", tcspcpipeline.ErrDataValidation, r.ReadSize, recSize)
	}

	for {
		handle := r.Pool.CheckOut()
		chunk := (*handle.Item)[:cap(*handle.Item)]
		copy(chunk, r.leftover)

		want := r.ReadSize - len(r.leftover)
		if r.MaxBytes > 0 {
			if remaining := r.MaxBytes - r.read; int64(want) > remaining {
				want = int(remaining)
			}
		}

		n, err := io.ReadFull(r.Source, chunk[len(r.leftover):len(r.leftover)+want])
		total := len(r.leftover) + n
		r.read += int64(n)

		usable := (total / recSize) * recSize
		if total > usable {
			r.leftover = append([]byte(nil), chunk[usable:total]...)
		} else {
			r.leftover = nil
		}

		if usable > 0 {
			if herr := r.Downstream.Handle(tcspcevent.ByteBufferEvent{Bytes: chunk[:usable], Release: handle.Release}); herr != nil {
				return herr
			}
		} else {
			handle.Release()
		}

		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				if len(r.leftover) > 0 {
					return fmt.Errorf("%w: read_binary_stream: stream ended with %d trailing bytes, want a multiple of %d", tcspcpipeline.ErrDataValidation, len(r.leftover), recSize)
				}
				return r.Downstream.Flush()
			}
			if werr := r.Downstream.Handle(tcspcevent.WarningEvent{Message: fmt.Sprintf("read_binary_stream: %v", err)}); werr != nil {
				return werr
			}
			return err
		}

		if r.MaxBytes > 0 && r.read >= r.MaxBytes {
			return r.Downstream.Flush()
		}
	}
}
