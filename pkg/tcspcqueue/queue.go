// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspcqueue implements the ring-buffer-backed FIFO of §4.13. No
// other package in this module imports it: the reorder/merge processors
// buffer in plain slices. Grounded on pkg/metricstore/buffer.go's index
// arithmetic for a growable, reusable backing array.
package tcspcqueue

// Queue is a ring-buffer-backed FIFO. The zero value is ready to use.
type Queue[T any] struct {
	data       []T
	head, size int
}

// Push appends v at the back of the queue, growing the backing array if
// necessary.
func (q *Queue[T]) Push(v T) {
	if q.size == len(q.data) {
		q.grow()
	}
	idx := (q.head + q.size) % len(q.data)
	q.data[idx] = v
	q.size++
}

// Pop removes and returns the item at the front of the queue. It panics if
// the queue is empty; callers should check Empty first, matching the
// original's unchecked front()/pop() pair.
func (q *Queue[T]) Pop() T {
	v := q.data[q.head]
	var zero T
	q.data[q.head] = zero
	q.head = (q.head + 1) % len(q.data)
	q.size--
	return v
}

// Front returns the item at the front of the queue without removing it.
func (q *Queue[T]) Front() T {
	return q.data[q.head]
}

// Empty reports whether the queue holds no items.
func (q *Queue[T]) Empty() bool {
	return q.size == 0
}

// Len reports how many items the queue currently holds.
func (q *Queue[T]) Len() int {
	return q.size
}

// ForEach calls fn for every item currently in the queue, front to back.
func (q *Queue[T]) ForEach(fn func(T)) {
	for i := 0; i < q.size; i++ {
		fn(q.data[(q.head+i)%len(q.data)])
	}
}

func (q *Queue[T]) grow() {
	newCap := 8
	if len(q.data) > 0 {
		newCap = len(q.data) * 2
	}
	newData := make([]T, newCap)
	for i := 0; i < q.size; i++ {
		newData[i] = q.data[(q.head+i)%len(q.data)]
	}
	q.data = newData
	q.head = 0
}
