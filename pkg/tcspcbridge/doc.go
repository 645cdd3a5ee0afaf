// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspcbridge bridges a tcspcpipeline event stream across a
// process boundary over NATS: the spec's §5 explicitly calls out
// cross-thread/cross-process handoff as an opt-in processor, and this is
// that processor. Publish is a terminal sink that publishes
// tcspcevent.ByteBufferEvent payloads (produced upstream by pkg/tcspcio's
// view/batch family) to a subject; Subscribe is the networked counterpart
// to pkg/tcspcio's byte-stream sources, receiving published bytes on a
// subject and forwarding them downstream as ByteBufferEvent.
//
// Connection setup is adapted from the teacher's pkg/nats: the same
// nats.Option wiring (UserInfo/UserCredentials, disconnect/reconnect/error
// handlers) and a Client wrapper tracking its own subscriptions. Dropped
// relative to pkg/nats: the JSON-config/singleton layer, per this
// module's configuration convention of plain option structs passed to
// constructors rather than a config-file DSL.
package tcspcbridge
