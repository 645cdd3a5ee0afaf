// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
	"github.com/flimlab/tcspc/pkg/tcspcpool"
	"github.com/flimlab/tcspc/pkg/tcspctest"
	"github.com/stretchr/testify/require"
)

// sample is a fixed-size 8-byte record used across this file's tests.
type sample struct {
	A int32
	B int32
}

func sampleBytes(a, b int32) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(a))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(b))
	return buf
}

func newBytePool(bufSize int) *tcspcpool.Pool[[]byte] {
	return tcspcpool.New(1, 4, func() *[]byte {
		b := make([]byte, bufSize)
		return &b
	})
}

func TestReadBinaryStreamForwardsAlignedBuffers(t *testing.T) {
	var data []byte
	data = append(data, sampleBytes(1, 2)...)
	data = append(data, sampleBytes(3, 4)...)
	data = append(data, sampleBytes(5, 6)...)

	sink := tcspctest.NewCaptureSink()
	r := NewReadBinaryStream[sample](bytes.NewReader(data), newBytePool(16), 16, 0, sink)
	require.NoError(t, r.Run())
	require.True(t, sink.Flushed)

	var all []byte
	for _, ev := range sink.Events {
		bbe := ev.(tcspcevent.ByteBufferEvent)
		all = append(all, bbe.Bytes...)
	}
	require.Equal(t, data, all)
}

func TestReadBinaryStreamRejectsTruncatedTrailer(t *testing.T) {
	data := append(sampleBytes(1, 2), []byte{9, 9, 9}...) // 3 trailing bytes, not a whole record

	sink := tcspctest.NewCaptureSink()
	r := NewReadBinaryStream[sample](bytes.NewReader(data), newBytePool(32), 32, 0, sink)
	err := r.Run()
	require.Error(t, err)
	require.True(t, errors.Is(err, tcspcpipeline.ErrDataValidation))
}

type erroringReader struct{}

func (erroringReader) Read([]byte) (int, error) { return 0, errors.New("disk fell over") }

func TestReadBinaryStreamEmitsWarningOnNonEOFError(t *testing.T) {
	sink := tcspctest.NewCaptureSink()
	r := NewReadBinaryStream[sample](erroringReader{}, newBytePool(16), 16, 0, sink)
	err := r.Run()
	require.Error(t, err)
	require.Len(t, sink.Events, 1)
	_, ok := sink.Events[0].(tcspcevent.WarningEvent)
	require.True(t, ok)
}

func TestReadBinaryStreamSplitsRecordAcrossOSReads(t *testing.T) {
	// A read size of 12 isn't a multiple of the 8-byte record size, so
	// the second record straddles the first and second OS reads and must
	// be carried over as a leftover.
	var data []byte
	data = append(data, sampleBytes(11, 22)...)
	data = append(data, sampleBytes(33, 44)...)

	sink := tcspctest.NewCaptureSink()
	r := NewReadBinaryStream[sample](bytes.NewReader(data), newBytePool(12), 12, 0, sink)
	require.NoError(t, r.Run())

	var all []byte
	for _, ev := range sink.Events {
		all = append(all, ev.(tcspcevent.ByteBufferEvent).Bytes...)
	}
	require.Equal(t, data, all)
}

type batchCapture struct {
	batches [][]sample
	flushed bool
}

func (b *batchCapture) HandleBatch(records []sample) error {
	cp := append([]sample(nil), records...)
	b.batches = append(b.batches, cp)
	return nil
}

func (b *batchCapture) Flush() error {
	b.flushed = true
	return nil
}

func TestBatchFromBytesGroupsWholeBuffer(t *testing.T) {
	bc := &batchCapture{}
	b := NewBatchFromBytes[sample](bc)

	var buf []byte
	buf = append(buf, sampleBytes(1, 2)...)
	buf = append(buf, sampleBytes(3, 4)...)
	require.NoError(t, b.Handle(tcspcevent.ByteBufferEvent{Bytes: buf}))
	require.NoError(t, b.Flush())

	require.Len(t, bc.batches, 1)
	require.Equal(t, []sample{{1, 2}, {3, 4}}, bc.batches[0])
	require.True(t, bc.flushed)
}

func TestBatchFromBytesReassemblesSplitRecord(t *testing.T) {
	bc := &batchCapture{}
	b := NewBatchFromBytes[sample](bc)

	full := sampleBytes(7, 8)
	require.NoError(t, b.Handle(tcspcevent.ByteBufferEvent{Bytes: full[:3]}))
	require.Empty(t, bc.batches)
	require.NoError(t, b.Handle(tcspcevent.ByteBufferEvent{Bytes: full[3:]}))

	require.Len(t, bc.batches, 1)
	require.Equal(t, []sample{{7, 8}}, bc.batches[0])
}

func TestBatchFromBytesFlushErrorsOnTrailingBytes(t *testing.T) {
	bc := &batchCapture{}
	b := NewBatchFromBytes[sample](bc)
	require.NoError(t, b.Handle(tcspcevent.ByteBufferEvent{Bytes: []byte{1, 2, 3}}))
	err := b.Flush()
	require.Error(t, err)
	require.True(t, errors.Is(err, tcspcpipeline.ErrDataValidation))
}

type recordCapture struct {
	records []sample
	flushed bool
}

func (r *recordCapture) Decode(rec sample) error {
	r.records = append(r.records, rec)
	return nil
}

func (r *recordCapture) Flush() error {
	r.flushed = true
	return nil
}

func TestUnbatchFromBytesEmitsOneRecordAtATime(t *testing.T) {
	rc := &recordCapture{}
	u := NewUnbatchFromBytes[sample](rc)

	var buf []byte
	buf = append(buf, sampleBytes(1, 2)...)
	buf = append(buf, sampleBytes(3, 4)...)
	require.NoError(t, u.Handle(tcspcevent.ByteBufferEvent{Bytes: buf}))
	require.NoError(t, u.Flush())

	require.Equal(t, []sample{{1, 2}, {3, 4}}, rc.records)
	require.True(t, rc.flushed)
}

func TestViewAsBytesRoundTripsThroughUnbatchFromBytes(t *testing.T) {
	original := []sample{{1, 2}, {3, 4}, {5, 6}}
	var originalBytes []byte
	for _, s := range original {
		originalBytes = append(originalBytes, sampleBytes(s.A, s.B)...)
	}

	writeSink := tcspctest.NewCaptureSink()
	view := NewViewAsBytes[sample](writeSink)
	u := NewUnbatchFromBytes[sample](view)

	require.NoError(t, u.Handle(tcspcevent.ByteBufferEvent{Bytes: originalBytes}))
	require.NoError(t, u.Flush())

	var roundTripped []byte
	for _, ev := range writeSink.Events {
		roundTripped = append(roundTripped, ev.(tcspcevent.ByteBufferEvent).Bytes...)
	}
	require.Equal(t, originalBytes, roundTripped)
}

func TestDereferencePointerForwardsPointee(t *testing.T) {
	rc := &recordCapture{}
	d := NewDereferencePointer[sample](rc)

	s := sample{9, 10}
	require.NoError(t, d.Decode(&s))
	require.Equal(t, []sample{{9, 10}}, rc.records)

	err := d.Decode(nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, tcspcpipeline.ErrDataValidation))
}

func TestWriteBinaryStreamWritesBytesAndReleases(t *testing.T) {
	var out bytes.Buffer
	w := NewWriteBinaryStream(&out)

	released := false
	require.NoError(t, w.Handle(tcspcevent.ByteBufferEvent{
		Bytes:   []byte("hello"),
		Release: func() { released = true },
	}))
	require.NoError(t, w.Flush())

	require.Equal(t, "hello", out.String())
	require.True(t, released)
}

var _ io.Reader = erroringReader{}
