// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspccontext implements the access-context registry of §4.11: a
// shared, named map from processor name to a factory that builds a
// client-facing access value bound to that processor's live state.
//
// The original needs a tracker/address-offset dance because a C++
// processor embeds the tracker as a data member and is relocated by value
// as the pipeline is composed and moved; the context must still resolve a
// name to the processor's current address afterwards. Go gives reference
// stability for free once a processor lives behind a pointer or an
// interface value, so Tracker here just holds the resolved pointer
// directly (as an any) instead of reconstituting it from a member offset;
// Rebind exists for the one case where that pointer legitimately changes
// (a processor struct was copied into a new home after registration), the
// same semantic role the original's move-updates-address behavior plays.
package tcspccontext

import (
	"fmt"
	"sync"
)

// Context is the shared, reference-counted-by-convention (plain GC'd
// pointer is enough in Go) registry mapping names to access factories.
type Context struct {
	mu       sync.RWMutex
	trackers map[string]*Tracker
}

// NewContext returns a new, empty access context.
func NewContext() *Context {
	return &Context{trackers: make(map[string]*Tracker)}
}

// Tracker is embedded (by pointer) in a processor and registers itself
// with a Context under a caller-chosen, context-unique name.
type Tracker struct {
	ctx      *Context
	name     string
	target   any
	destroyed bool
}

// Track registers a new tracker for target under name. Name must be unique
// within ctx for the lifetime of the context, even after the tracker is
// later destroyed (Unregister), matching §4.11's "names are not reusable"
// rule.
func (c *Context) Track(name string, target any) (*Tracker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.trackers[name]; exists {
		return nil, fmt.Errorf("tcspccontext: name %q already registered", name)
	}
	t := &Tracker{ctx: c, name: name, target: target}
	c.trackers[name] = t
	return t, nil
}

// Rebind updates the address a tracker resolves to, for use after the
// owning processor struct has been copied into a new location (the Go
// analogue of the original's move-updates-address behavior).
func (t *Tracker) Rebind(target any) {
	t.ctx.mu.Lock()
	defer t.ctx.mu.Unlock()
	t.target = target
}

// Unregister removes the tracker from its context. The name remains
// reserved: a later Track call with the same name still fails.
func (t *Tracker) Unregister() {
	t.ctx.mu.Lock()
	defer t.ctx.mu.Unlock()
	if t.destroyed {
		return
	}
	t.destroyed = true
}

// Access resolves name to its current target and type-asserts it to A,
// failing if the name is unknown, was unregistered, or does not hold an A.
func Access[A any](c *Context, name string) (A, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var zero A
	tr, ok := c.trackers[name]
	if !ok {
		return zero, fmt.Errorf("tcspccontext: no processor registered as %q", name)
	}
	if tr.destroyed {
		return zero, fmt.Errorf("tcspccontext: processor %q was unregistered", name)
	}
	a, ok := tr.target.(A)
	if !ok {
		return zero, fmt.Errorf("tcspccontext: processor %q does not support the requested access type", name)
	}
	return a, nil
}
