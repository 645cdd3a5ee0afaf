// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspcpool implements the bounded object pool of §4.13: a fixed
// population of reusable T instances handed out as checked-out handles
// that return themselves to the pool on release.
//
// Grounded on pkg/lrucache's sync.Cond-based blocking-wait idiom (a
// goroutine waiting for a cache entry currently being computed by another
// goroutine) and on pkg/metricstore/buffer.go's sync.Pool-backed buffer
// reuse, combined here into one bounded, blocking pool since neither
// teacher primitive alone gives both bounded capacity and blocking
// check-out.
package tcspcpool

import "sync"

// Pool is a bounded pool of *T instances, created on demand up to
// maxCount. CheckOut blocks once maxCount instances are outstanding.
type Pool[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	newFn    func() *T
	free     []*T
	outCount int
	minCount int
	maxCount int
}

// New returns a pool that keeps at least minCount instances pre-allocated
// and never hands out more than maxCount instances concurrently. newFn
// constructs a fresh *T; it must return a zero-valued-but-usable instance.
func New[T any](minCount, maxCount int, newFn func() *T) *Pool[T] {
	p := &Pool[T]{newFn: newFn, minCount: minCount, maxCount: maxCount}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < minCount; i++ {
		p.free = append(p.free, newFn())
	}
	return p
}

// Handle is a checked-out instance. Release returns it to the pool; a
// Handle must not be used after Release.
type Handle[T any] struct {
	pool *Pool[T]
	Item *T
}

// Release returns the handle's item to the pool, waking one blocked
// CheckOut caller if any.
func (h Handle[T]) Release() {
	h.pool.mu.Lock()
	h.pool.free = append(h.pool.free, h.Item)
	h.pool.outCount--
	h.pool.mu.Unlock()
	h.pool.cond.Signal()
}

// CheckOut returns a handle to a pooled instance, blocking while the pool
// is at maxCount outstanding instances.
func (p *Pool[T]) CheckOut() Handle[T] {
	p.mu.Lock()
	for p.outCount >= p.maxCount && p.maxCount > 0 {
		p.cond.Wait()
	}
	item := p.take()
	p.mu.Unlock()
	return Handle[T]{pool: p, Item: item}
}

// MaybeCheckOut is the non-blocking variant of CheckOut: it returns ok ==
// false instead of blocking if the pool is at capacity.
func (p *Pool[T]) MaybeCheckOut() (h Handle[T], ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outCount >= p.maxCount && p.maxCount > 0 {
		return Handle[T]{}, false
	}
	item := p.take()
	return Handle[T]{pool: p, Item: item}, true
}

// take assumes p.mu is held.
func (p *Pool[T]) take() *T {
	var item *T
	if n := len(p.free); n > 0 {
		item = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		item = p.newFn()
	}
	p.outCount++
	return item
}

// OutstandingCount reports how many instances are currently checked out,
// for tests and metrics.
func (p *Pool[T]) OutstandingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outCount
}
