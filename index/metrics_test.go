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
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"

	"github.com/lucego/lucego/document"
	"github.com/lucego/lucego/store"
)

func TestNewMetricsFallsBackToNoopScope(t *testing.T) {
	m := NewMetrics(nil)
	require.NotNil(t, m.scope)
	// Must not panic against the no-op scope.
	m.commit(1, 0)
	m.optimize(0)
	m.merge(1, 0)
	m.mergeFailed()
	m.commitFailed()
}

func TestWriterCommitRecordsMetrics(t *testing.T) {
	testScope := tally.NewTestScope("", nil)
	dir := store.NewRAMDirectory()
	w, err := OpenWriter(dir, WithMetrics(NewMetrics(testScope)))
	require.NoError(t, err)
	defer w.Close()

	d := &document.Document{}
	d.Add(document.NewTextField("body", "a b c", true))
	w.AddDocument(d)
	require.NoError(t, w.Commit())

	snapshot := testScope.Snapshot()
	counters := snapshot.Counters()
	require.Contains(t, counters, "commit_count+")
	require.Equal(t, int64(1), counters["commit_count+"].Value())
}
