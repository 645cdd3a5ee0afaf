// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcbridge

import (
	"fmt"

	"github.com/flimlab/tcspc/pkg/tcspcevent"
	"github.com/flimlab/tcspc/pkg/tcspcpipeline"
)

// publisher is the subset of *Client a Publish sink needs. *Client
// satisfies it; tests substitute a fake in place of a live connection.
type publisher interface {
	Publish(subject string, data []byte) error
	Flush() error
}

// Publish is a terminal sink publishing each tcspcevent.ByteBufferEvent it
// receives to a fixed NATS subject — the §4.12 byte-stream sink role,
// carried across a process boundary. Compose it downstream of
// pkg/tcspcio's view_as_bytes family to publish a typed event stream.
// Events that are not a ByteBufferEvent are dropped: Publish moves bytes,
// it does not encode typed events itself (pkg/tcspcio does that).
type Publish struct {
	Client  publisher
	Subject string
}

func NewPublish(client *Client, subject string) *Publish {
	return &Publish{Client: client, Subject: subject}
}

func (p *Publish) Handle(ev tcspcevent.Event) error {
	bbe, ok := ev.(tcspcevent.ByteBufferEvent)
	if !ok {
		return nil
	}
	if bbe.Release != nil {
		defer bbe.Release()
	}
	if err := p.Client.Publish(p.Subject, bbe.Bytes); err != nil {
		return fmt.Errorf("tcspcbridge: publish: %w", err)
	}
	return nil
}

func (p *Publish) Flush() error {
	if err := p.Client.Flush(); err != nil {
		return fmt.Errorf("tcspcbridge: flush: %w", err)
	}
	return nil
}

func (p *Publish) NodeInfo() tcspcpipeline.NodeInfo {
	return tcspcpipeline.NodeInfo{Name: fmt.Sprintf("nats_publish(%s)", p.Subject), Type: "Publish"}
}

func (p *Publish) Graph() tcspcpipeline.Graph {
	return tcspcpipeline.Append(p.NodeInfo(), tcspcpipeline.Graph{})
}
