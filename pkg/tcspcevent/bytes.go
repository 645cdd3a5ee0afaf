// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcspcevent

// ByteBufferEvent carries a span of raw bytes through the pipeline, the
// boundary type between the byte-stream I/O layer (§4.12) and the
// typed-event layer. Bytes may be a view into a pooled buffer; Release, if
// non-nil, returns that buffer to its pool and must be called exactly once
// by whichever processor is done with Bytes (a processor that merely
// inspects Bytes and forwards the event unchanged leaves Release to the
// next processor down the line).
type ByteBufferEvent struct {
	base
	Bytes   []byte
	Release func()
}
