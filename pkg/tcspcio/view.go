// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcio

import (
	"bufio"
	"io"
	"unsafe"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspctypes"
)

// valueAsBytes copies v's in-memory representation into a freestanding
// byte slice, the same unsafe reinterpret-cast pkg/metricstore/binaryCheckpoint.go's
// writeFloatArray uses for a typed slice, specialized here to a single
// fixed-size value.
func valueAsBytes[T any](v T) []byte {
	sz := int(unsafe.Sizeof(v))
	view := unsafe.Slice((*byte)(unsafe.Pointer(&v)), sz)
	return append([]byte(nil), view...)
}

func cellsAsBytes[C tcspctypes.Bin](cells tcspctypes.Span[C]) []byte {
	if len(cells) == 0 {
		return nil
	}
	var zero C
	sz := int(unsafe.Sizeof(zero))
	view := unsafe.Slice((*byte)(unsafe.Pointer(&cells[0])), len(cells)*sz)
	return append([]byte(nil), view...)
}

// ViewAsBytes turns a stream of fixed-size records into
// tcspcevent.ByteBufferEvent values for Downstream (§4.12 view_as_bytes).
// It implements RecordSink[T], the same shape tcspcdecode.Decoder[T]
// consumes, so it drops in wherever a raw-record sink is expected.
type ViewAsBytes[T any] struct {
	Downstream tcspcpipeline.Processor
}

func NewViewAsBytes[T any](downstream tcspcpipeline.Processor) *ViewAsBytes[T] {
	return &ViewAsBytes[T]{Downstream: downstream}
}

func (v *ViewAsBytes[T]) Decode(rec T) error {
	return v.Downstream.Handle(tcspcevent.ByteBufferEvent{Bytes: valueAsBytes(rec)})
}

func (v *ViewAsBytes[T]) Flush() error {
	return v.Downstream.Flush()
}

// ViewHistogramAsBytes views a single histogram's cells as bytes whenever
// a HistogramEvent or ConcludingHistogramEvent passes through, forwarding
// the view as a ByteBufferEvent ahead of the original event; every other
// event is forwarded unchanged (§4.1's pass-through rule).
type ViewHistogramAsBytes[C tcspctypes.Bin] struct {
	Downstream tcspcpipeline.Processor
}

func NewViewHistogramAsBytes[C tcspctypes.Bin](downstream tcspcpipeline.Processor) *ViewHistogramAsBytes[C] {
	return &ViewHistogramAsBytes[C]{Downstream: downstream}
}

func (v *ViewHistogramAsBytes[C]) Handle(ev tcspcevent.Event) error {
	switch e := ev.(type) {
	case tcspcevent.HistogramEvent[C]:
		if err := v.Downstream.Handle(tcspcevent.ByteBufferEvent{Bytes: cellsAsBytes(e.Cells)}); err != nil {
			return err
		}
	case tcspcevent.ConcludingHistogramEvent[C]:
		if err := v.Downstream.Handle(tcspcevent.ByteBufferEvent{Bytes: cellsAsBytes(e.Cells)}); err != nil {
			return err
		}
	}
	return v.Downstream.Handle(ev)
}

func (v *ViewHistogramAsBytes[C]) Flush() error { return v.Downstream.Flush() }

func (v *ViewHistogramAsBytes[C]) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "view_histogram_as_bytes", Type: "ViewHistogramAsBytes"}
}

func (v *ViewHistogramAsBytes[C]) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(v.NodeInfo(), v.Downstream.Graph())
}

// ViewHistogramArrayAsBytes is ViewHistogramAsBytes's array-of-histograms
// counterpart, viewing the full element-wise cell array as one contiguous
// byte span per cycle.
type ViewHistogramArrayAsBytes[C tcspctypes.Bin] struct {
	Downstream tcspcpipeline.Processor
}

func NewViewHistogramArrayAsBytes[C tcspctypes.Bin](downstream tcspcpipeline.Processor) *ViewHistogramArrayAsBytes[C] {
	return &ViewHistogramArrayAsBytes[C]{Downstream: downstream}
}

func (v *ViewHistogramArrayAsBytes[C]) Handle(ev tcspcevent.Event) error {
	switch e := ev.(type) {
	case tcspcevent.HistogramArrayEvent[C]:
		if err := v.Downstream.Handle(tcspcevent.ByteBufferEvent{Bytes: cellsAsBytes(e.Cells)}); err != nil {
			return err
		}
	case tcspcevent.ConcludingHistogramArrayEvent[C]:
		if err := v.Downstream.Handle(tcspcevent.ByteBufferEvent{Bytes: cellsAsBytes(e.Cells)}); err != nil {
			return err
		}
	}
	return v.Downstream.Handle(ev)
}

func (v *ViewHistogramArrayAsBytes[C]) Flush() error { return v.Downstream.Flush() }

func (v *ViewHistogramArrayAsBytes[C]) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "view_histogram_array_as_bytes", Type: "ViewHistogramArrayAsBytes"}
}

func (v *ViewHistogramArrayAsBytes[C]) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(v.NodeInfo(), v.Downstream.Graph())
}

// WriteBinaryStream is the terminal sink that writes every
// ByteBufferEvent's bytes to an io.Writer, releasing pooled buffers as it
// goes; any other event is dropped. Grounded on
// pkg/metricstore/binaryCheckpoint.go's bufio.Writer usage.
type WriteBinaryStream struct {
	w *bufio.Writer
}

func NewWriteBinaryStream(w io.Writer) *WriteBinaryStream {
	return &WriteBinaryStream{w: bufio.NewWriter(w)}
}

func (s *WriteBinaryStream) Handle(ev tcspcevent.Event) error {
	bbe, ok := ev.(tcspcevent.ByteBufferEvent)
	if !ok {
		return nil
	}
	_, err := s.w.Write(bbe.Bytes)
	if bbe.Release != nil {
		bbe.Release()
	}
	return err
}

func (s *WriteBinaryStream) Flush() error {
	return s.w.Flush()
}

func (s *WriteBinaryStream) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: "write_binary_stream", Type: "WriteBinaryStream"}
}

func (s *WriteBinaryStream) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(s.NodeInfo(), tcspcpipeline.Graph{})
}
