// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcio

import (
	"fmt"

	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
)

// DereferencePointer adapts a RecordSink[T] to accept *T, dereferencing
// before forwarding (§4.12 dereference_pointer). The original pipeline
// uses this to convert a stream of shared_ptr<T> into a stream of T so
// that downstream processors need not deal with pointer lifetimes; Go's
// garbage-collected pointers already make that free; this exists mainly
// so a producer that hands out *T (e.g. to avoid copying a large batch)
// has somewhere to plug in ahead of a RecordSink[T] consumer.
type DereferencePointer[T any] struct {
	Downstream RecordSink[T]
}

func NewDereferencePointer[T any](downstream RecordSink[T]) *DereferencePointer[T] {
	return &DereferencePointer[T]{Downstream: downstream}
}

func (d *DereferencePointer[T]) Decode(ptr *T) error {
	if ptr == nil {
		return fmt.Errorf("%w: dereference_pointer: nil pointer", tcspcpipeline.ErrDataValidation)
	}
	return d.Downstream.Decode(*ptr)
}

func (d *DereferencePointer[T]) Flush() error {
	return d.Downstream.Flush()
}
