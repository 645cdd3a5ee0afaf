// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcbridge

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
)

// subscriber is the subset of *Client a Subscribe source needs; *Client
// satisfies it, and it is the seam tests use in place of a live
// connection.
type subscriber interface {
	SubscribeChan(subject string, ch chan *nats.Msg) error
}

// Subscribe is a source (no Handle method — it has no upstream) that
// receives messages on a NATS subject and forwards each payload
// downstream as a tcspcevent.ByteBufferEvent, the networked counterpart
// to pkg/tcspcio.ReadBinaryStream. Run drains its channel in the caller's
// own goroutine, so the Run call is the documented cross-process handoff
// point (§5): Downstream never sees a Handle call from any goroutine but
// the one running Run.
type Subscribe struct {
	Client     subscriber
	Subject    string
	Downstream tcspcpipeline.Processor

	ch   chan *nats.Msg
	done chan struct{}
}

func NewSubscribe(client *Client, subject string, downstream tcspcpipeline.Processor) *Subscribe {
	return &Subscribe{Client: client, Subject: subject, Downstream: downstream}
}

// Run subscribes to Subject and forwards every received message
// downstream as a ByteBufferEvent until Stop is called, then flushes
// Downstream and returns. chanSize bounds how many undelivered messages
// may queue before NATS starts dropping them (per ChanSubscribe); 0
// chooses a default of 64.
func (s *Subscribe) Run(chanSize int) error {
	if chanSize <= 0 {
		chanSize = 64
	}
	s.ch = make(chan *nats.Msg, chanSize)
	s.done = make(chan struct{})
	if err := s.Client.SubscribeChan(s.Subject, s.ch); err != nil {
		return fmt.Errorf("tcspcbridge: subscribe: %w", err)
	}

	stopping := false
	for {
		select {
		case msg, ok := <-s.ch:
			if !ok {
				return s.Downstream.Flush()
			}
			if err := s.Downstream.Handle(tcspcevent.ByteBufferEvent{Bytes: msg.Data}); err != nil {
				return fmt.Errorf("tcspcbridge: handling message on %q: %w", s.Subject, err)
			}
		case <-s.done:
			if !stopping {
				stopping = true
				close(s.ch)
			}
		}
	}
}

// Stop ends Run's loop once any already-buffered messages have drained.
func (s *Subscribe) Stop() {
	if s.done != nil {
		close(s.done)
	}
}
