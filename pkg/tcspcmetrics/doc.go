// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspcmetrics exposes live access-context values (§4.11) as
// Prometheus collectors: the observability surface the spec says is out
// of scope for the processing library itself (§1) but which this
// module's ambient stack still requires using the teacher's chosen
// metrics library for, the moment a caller wants monitoring.
//
// Every Register* call resolves a name already tracked in a
// tcspccontext.Context (by, e.g., tcspccounting.Count or
// tcspchistogram.Histogram) and wraps its live value in a Prometheus
// GaugeFunc/CounterFunc — a read on every scrape, never a push, so
// registering a metric adds no per-event cost to the pipeline itself
// (processors stay off the hot path per pkg/tcspclog's logging
// convention; metrics follow the same rule).
package tcspcmetrics
