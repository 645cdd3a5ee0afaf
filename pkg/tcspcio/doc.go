// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspcio implements the byte-stream I/O boundary of §4.12: reading
// raw records off an io.Reader into pooled buffers, regrouping a byte
// stream into fixed-size records (and back), and viewing events as byte
// spans for output. Grounded on pkg/metricstore/binaryCheckpoint.go's
// unsafe.Slice zero-copy byte-view idiom and bufio.Reader/Writer usage, and
// on pkg/tcspcpool for buffer reuse (SPEC_FULL.md).
package tcspcio
