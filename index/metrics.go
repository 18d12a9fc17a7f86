// Copyright 2023 The Lucego Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package index

import (
	"time"

	"github.com/uber-go/tally/v4"
)

// Metrics records commit/merge activity through a tally scope, the same
// counter/gauge/timer idiom server/metrics.go uses for request and
// snapshot stats. A Writer with no scope configured records into
// tally.NoopScope, so instrumentation is always safe to call.
type Metrics struct {
	scope tally.Scope
}

// NewMetrics wraps scope, falling back to tally.NoopScope when scope is
// nil so callers never need a nil check.
func NewMetrics(scope tally.Scope) *Metrics {
	if scope == nil {
		scope = tally.NoopScope
	}
	return &Metrics{scope: scope}
}

func (m *Metrics) commit(segmentCount int, elapsed time.Duration) {
	m.scope.Counter("commit_count").Inc(1)
	m.scope.Gauge("committed_segments").Update(float64(segmentCount))
	m.scope.Timer("commit_latency_ms").Record(elapsed / time.Millisecond)
}

func (m *Metrics) commitFailed() {
	m.scope.Counter("commit_errors").Inc(1)
}

func (m *Metrics) optimize(elapsed time.Duration) {
	m.scope.Counter("optimize_count").Inc(1)
	m.scope.Timer("optimize_latency_ms").Record(elapsed / time.Millisecond)
}

func (m *Metrics) merge(mergedDocs int32, elapsed time.Duration) {
	m.scope.Counter("merge_count").Inc(1)
	m.scope.Gauge("last_merge_doc_count").Update(float64(mergedDocs))
	m.scope.Timer("merge_latency_ms").Record(elapsed / time.Millisecond)
}

func (m *Metrics) mergeFailed() {
	m.scope.Counter("merge_errors").Inc(1)
}
