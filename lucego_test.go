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

package lucego

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lucego/lucego/document"
	"github.com/lucego/lucego/query"
	"github.com/lucego/lucego/store"
)

func newTestIndex(t *testing.T, opts ...Option) *Index {
	t.Helper()
	idx, err := Open(store.NewRAMDirectory(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func addBody(idx *Index, body string) {
	d := &document.Document{}
	d.Add(document.NewTextField("body", body, true))
	idx.AddDocument(d)
}

// TestScenarioAddSearchDelete covers S1.
func TestScenarioAddSearchDelete(t *testing.T) {
	idx := newTestIndex(t)
	addBody(idx, "the quick fox")
	addBody(idx, "the slow fox")
	require.NoError(t, idx.Commit())

	require.Equal(t, int32(2), idx.MaxDoc())
	require.Equal(t, int32(2), idx.NumDocs())

	hits, err := idx.Find(query.NewTerm("body", "fox"))
	require.NoError(t, err)
	require.Len(t, hits, 2)

	require.NoError(t, idx.Delete(0))
	require.NoError(t, idx.Commit())

	require.Equal(t, int32(2), idx.MaxDoc())
	require.Equal(t, int32(1), idx.NumDocs())
	hits, err = idx.Find(query.NewTerm("body", "fox"))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, int32(1), hits[0].DocID)
}

// TestScenarioSloppyPhrase covers S2.
func TestScenarioSloppyPhrase(t *testing.T) {
	idx := newTestIndex(t)
	addBody(idx, "a b c")
	require.NoError(t, idx.Commit())

	hits, err := idx.Find(query.NewPhrase("body", 1, "a", "c"))
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hits, err = idx.Find(query.NewPhrase("body", 0, "a", "c"))
	require.NoError(t, err)
	require.Empty(t, hits)
}

// TestScenarioBooleanRequiredProhibited covers S3.
func TestScenarioBooleanRequiredProhibited(t *testing.T) {
	idx := newTestIndex(t)
	addBody(idx, "a b")
	addBody(idx, "a c")
	addBody(idx, "b c")
	require.NoError(t, idx.Commit())

	q := query.NewBoolean().
		Add(query.NewTerm("body", "a"), query.Required).
		Add(query.NewTerm("body", "c"), query.Prohibited)
	hits, err := idx.Find(q)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, int32(0), hits[0].DocID)
}

// TestScenarioMergeUnderMergeFactor covers S4: with maxBufferedDocs=1 and
// mergeFactor=2, four single-document commits collapse to a
// single segment while all documents remain searchable.
func TestScenarioMergeUnderMergeFactor(t *testing.T) {
	idx := newTestIndex(t)
	idx.SetMaxBufferedDocs(1)
	idx.SetMergeFactor(2)

	for i := 0; i < 4; i++ {
		addBody(idx, "alpha beta")
		require.NoError(t, idx.Commit())
	}

	require.Equal(t, int32(4), idx.NumDocs())
	hits, err := idx.Find(query.NewTerm("body", "alpha"))
	require.NoError(t, err)
	require.Len(t, hits, 4)
}

// TestScenarioRecoverFromMissingSegmentsGen covers S5: deleting
// segments.gen still lets a fresh Index recover via directory listing.
func TestScenarioRecoverFromMissingSegmentsGen(t *testing.T) {
	dir := store.NewRAMDirectory()
	idx, err := Open(dir)
	require.NoError(t, err)
	addBody(idx, "alpha")
	require.NoError(t, idx.Commit())
	require.NoError(t, idx.Close())

	require.NoError(t, dir.DeleteFile("segments.gen"))

	idx2, err := Open(dir)
	require.NoError(t, err)
	defer idx2.Close()
	require.Equal(t, int32(1), idx2.NumDocs())
}

// TestScenarioFuzzyFind covers S6: a fuzzy query string matches a document
// indexed under a similarly spelled term via rewrite against the live
// term dictionary.
func TestScenarioFuzzyFind(t *testing.T) {
	idx := newTestIndex(t)
	addBody(idx, "the color of the sky")
	require.NoError(t, idx.Commit())

	hits, err := idx.FindString("body", "colour~0.6")
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

// TestInvariantCommitAtomicity covers invariant 6: a reader handed out
// before a commit never observes documents added by that commit, even if
// it is still in use after the commit completes.
func TestInvariantCommitAtomicity(t *testing.T) {
	idx := newTestIndex(t)
	addBody(idx, "one")
	require.NoError(t, idx.Commit())

	preCommitReader := idx.currentReader()
	require.Equal(t, int32(1), preCommitReader.MaxDoc())

	addBody(idx, "two")
	require.NoError(t, idx.Commit())

	require.Equal(t, int32(1), preCommitReader.MaxDoc(), "previously obtained reader must not see the new commit")
	require.Equal(t, int32(2), idx.currentReader().MaxDoc())
}

// TestInvariantUndeleteAllScope covers invariant 8: UndeleteAll only
// reverses deletes recorded since the last commit.
func TestInvariantUndeleteAllScope(t *testing.T) {
	idx := newTestIndex(t)
	addBody(idx, "one")
	addBody(idx, "two")
	require.NoError(t, idx.Commit())

	require.NoError(t, idx.Delete(0))
	require.NoError(t, idx.Commit())

	require.NoError(t, idx.Delete(1))
	idx.UndeleteAll()

	require.Equal(t, int32(1), idx.NumDocs(), "doc 0 stays deleted, doc 1's pending delete is reversed")
}

// TestInvariantOptimizeIdempotent covers invariant 7 for Optimize.
func TestInvariantOptimizeIdempotent(t *testing.T) {
	idx := newTestIndex(t)
	addBody(idx, "one")
	require.NoError(t, idx.Commit())
	addBody(idx, "two")
	require.NoError(t, idx.Commit())

	require.NoError(t, idx.Optimize())
	first := idx.NumDocs()
	require.NoError(t, idx.Optimize())
	require.Equal(t, first, idx.NumDocs())
}
