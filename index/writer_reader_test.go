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

	"github.com/lucego/lucego/document"
	"github.com/lucego/lucego/store"
)

func textDoc(id, body string) *document.Document {
	d := &document.Document{}
	d.Add(document.NewKeywordField("id", id, true))
	d.Add(document.NewTextField("body", body, true))
	return d
}

// TestWriterReaderAddSearchDelete exercises S1: add documents, commit,
// open a reader, confirm search and doc count, delete one, commit again,
// confirm the deletion is reflected in a freshly opened reader.
func TestWriterReaderAddSearchDelete(t *testing.T) {
	dir := store.NewRAMDirectory()
	w, err := OpenWriter(dir)
	require.NoError(t, err)

	w.AddDocument(textDoc("1", "the quick fox"))
	w.AddDocument(textDoc("2", "the slow fox"))
	w.AddDocument(textDoc("3", "the quick hare"))
	require.NoError(t, w.Commit())

	r, err := OpenReader(dir)
	require.NoError(t, err)
	require.Equal(t, int32(3), r.MaxDoc())
	require.Equal(t, int32(3), r.NumDocs())

	hits, err := r.TermDocs("body", "fox")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.NoError(t, r.Close())

	require.NoError(t, w.Delete(1)) // doc "2", the second "fox" hit
	require.NoError(t, w.Commit())

	r2, err := OpenReader(dir)
	require.NoError(t, err)
	require.Equal(t, int32(3), r2.MaxDoc())
	require.Equal(t, int32(2), r2.NumDocs())
	deleted, err := r2.IsDeleted(1)
	require.NoError(t, err)
	require.True(t, deleted)

	hits2, err := r2.TermDocs("body", "fox")
	require.NoError(t, err)
	require.Len(t, hits2, 1)
	require.Equal(t, int32(0), hits2[0].DocID)
	require.NoError(t, r2.Close())
	require.NoError(t, w.Close())
}

// TestWriterMergeTriggersUnderMergeFactor covers S4: with maxBufferedDocs=1
// and mergeFactor=2, four single-document commits must collapse down to a
// single segment.
func TestWriterMergeTriggersUnderMergeFactor(t *testing.T) {
	dir := store.NewRAMDirectory()
	w, err := OpenWriter(dir, WithMergePolicy(MergePolicy{MergeFactor: 2, MaxBufferedDocs: 1}))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		w.AddDocument(textDoc("x", "alpha beta"))
		require.NoError(t, w.Commit())
	}

	require.Len(t, w.commit.Segments, 1)
	require.Equal(t, int32(4), w.NumDocs())
	require.NoError(t, w.Close())
}

// TestWriterCommitIdempotence covers invariant 7: committing with nothing
// buffered and nothing pending is a no-op on the on-disk segment set.
func TestWriterCommitIdempotence(t *testing.T) {
	dir := store.NewRAMDirectory()
	w, err := OpenWriter(dir)
	require.NoError(t, err)
	w.AddDocument(textDoc("1", "alpha"))
	require.NoError(t, w.Commit())

	before := append([]SegmentInfo(nil), w.commit.Segments...)
	require.NoError(t, w.Commit())
	require.Equal(t, before, w.commit.Segments)
	require.NoError(t, w.Close())
}

// TestWriterOptimizeIdempotence covers invariant 7 for optimize: running
// it twice in a row leaves exactly one segment both times.
func TestWriterOptimizeIdempotence(t *testing.T) {
	dir := store.NewRAMDirectory()
	w, err := OpenWriter(dir)
	require.NoError(t, err)
	w.AddDocument(textDoc("1", "alpha"))
	require.NoError(t, w.Commit())
	w.AddDocument(textDoc("2", "beta"))
	require.NoError(t, w.Commit())

	require.NoError(t, w.Optimize())
	require.Len(t, w.commit.Segments, 1)
	require.NoError(t, w.Optimize())
	require.Len(t, w.commit.Segments, 1)
	require.NoError(t, w.Close())
}

// TestWriterUndeleteAllScopedToUncommittedDeletes covers invariant 8: once
// a delete is committed, UndeleteAll no longer reverses it; only deletes
// recorded since the last commit are restored.
func TestWriterUndeleteAllScopedToUncommittedDeletes(t *testing.T) {
	dir := store.NewRAMDirectory()
	w, err := OpenWriter(dir)
	require.NoError(t, err)
	w.AddDocument(textDoc("1", "alpha"))
	w.AddDocument(textDoc("2", "beta"))
	require.NoError(t, w.Commit())

	require.NoError(t, w.Delete(0))
	require.NoError(t, w.Commit()) // delete 0 is now committed

	require.NoError(t, w.Delete(1)) // delete 1 is only pending
	w.UndeleteAll()

	d0, err := func() (bool, error) {
		r, err := OpenReader(dir)
		if err != nil {
			return false, err
		}
		defer r.Close()
		return r.IsDeleted(0)
	}()
	require.NoError(t, err)
	require.True(t, d0, "committed delete must survive UndeleteAll")

	require.False(t, w.segments[0].IsDeleted(1), "pending delete must be reversed by UndeleteAll")
	require.NoError(t, w.Close())
}

// TestReaderSnapshotIsolation covers invariant 6: a reader opened before a
// commit never observes documents added by that commit.
func TestReaderSnapshotIsolation(t *testing.T) {
	dir := store.NewRAMDirectory()
	w, err := OpenWriter(dir)
	require.NoError(t, err)
	w.AddDocument(textDoc("1", "alpha"))
	require.NoError(t, w.Commit())

	r, err := OpenReader(dir)
	require.NoError(t, err)

	w.AddDocument(textDoc("2", "beta"))
	require.NoError(t, w.Commit())

	require.Equal(t, int32(1), r.MaxDoc(), "pre-existing reader must not see the later commit")
	require.NoError(t, r.Close())

	r2, err := OpenReader(dir)
	require.NoError(t, err)
	require.Equal(t, int32(2), r2.MaxDoc())
	require.NoError(t, r2.Close())
	require.NoError(t, w.Close())
}
