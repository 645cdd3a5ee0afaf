// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcbridge

import (
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/flimlab/tcspc/pkg/tcspclog"
)

// ClientOptions configures a Connect call. There is no JSON/file config
// layer here (see package doc); callers building one from their own
// configuration source populate this struct directly.
type ClientOptions struct {
	Address       string
	Username      string
	Password      string
	CredsFilePath string
}

// Client wraps a NATS connection with subscription tracking, adapted from
// pkg/nats.Client.
type Client struct {
	conn          *nats.Conn
	subscriptions []*nats.Subscription
	mu            sync.Mutex
}

// Connect dials a NATS server per opts. Username/Password and
// CredsFilePath are mutually optional; neither is required for an
// unauthenticated server.
func Connect(opts ClientOptions) (*Client, error) {
	if opts.Address == "" {
		return nil, fmt.Errorf("tcspcbridge: address is required")
	}

	var natsOpts []nats.Option
	if opts.Username != "" && opts.Password != "" {
		natsOpts = append(natsOpts, nats.UserInfo(opts.Username, opts.Password))
	}
	if opts.CredsFilePath != "" {
		natsOpts = append(natsOpts, nats.UserCredentials(opts.CredsFilePath))
	}
	natsOpts = append(natsOpts,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				tcspclog.Warnf("tcspcbridge: disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			tcspclog.Infof("tcspcbridge: reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			tcspclog.Errorf("tcspcbridge: %v", err)
		}),
	)

	nc, err := nats.Connect(opts.Address, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("tcspcbridge: connect to %q: %w", opts.Address, err)
	}
	tcspclog.Infof("tcspcbridge: connected to %s", opts.Address)

	return &Client{conn: nc}, nil
}

// Publish sends data on subject.
func (c *Client) Publish(subject string, data []byte) error {
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("tcspcbridge: publish to %q: %w", subject, err)
	}
	return nil
}

// SubscribeChan delivers every message received on subject to ch, per
// nats.Conn.ChanSubscribe.
func (c *Client) SubscribeChan(subject string, ch chan *nats.Msg) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.conn.ChanSubscribe(subject, ch)
	if err != nil {
		return fmt.Errorf("tcspcbridge: subscribe to %q: %w", subject, err)
	}
	c.subscriptions = append(c.subscriptions, sub)
	tcspclog.Infof("tcspcbridge: subscribed to %q", subject)
	return nil
}

// Flush flushes the connection's outbound buffer.
func (c *Client) Flush() error {
	return c.conn.Flush()
}

// IsConnected reports whether the connection is currently up.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close unsubscribes everything and closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sub := range c.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			tcspclog.Warnf("tcspcbridge: unsubscribe: %v", err)
		}
	}
	c.subscriptions = nil

	if c.conn != nil {
		c.conn.Close()
		tcspclog.Info("tcspcbridge: connection closed")
	}
}

// Connection returns the underlying *nats.Conn for advanced usage.
func (c *Client) Connection() *nats.Conn { return c.conn }
