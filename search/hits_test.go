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

package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lucego/lucego/document"
	"github.com/lucego/lucego/index"
	"github.com/lucego/lucego/query"
	"github.com/lucego/lucego/store"
)

func buildReader(t *testing.T, bodies ...string) *index.Reader {
	t.Helper()
	dir := store.NewRAMDirectory()
	w, err := index.OpenWriter(dir)
	require.NoError(t, err)
	for _, b := range bodies {
		doc := &document.Document{}
		doc.Add(document.NewTextField("body", b, true))
		w.AddDocument(doc)
	}
	require.NoError(t, w.Commit())
	require.NoError(t, w.Close())

	r, err := index.OpenReader(dir)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

// TestSearchTermRankingFavorsHigherTermFrequency exercises S1-style
// scoring: of two documents containing the term with the same length
// norm, the one with the higher term frequency ranks first.
func TestSearchTermRankingFavorsHigherTermFrequency(t *testing.T) {
	r := buildReader(t, "fox fox", "fox hare", "hare hare")
	hits, err := Search(r, query.NewTerm("body", "fox"))
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, int32(0), hits[0].DocID, "doc with freq 2 should outrank freq 1")
	require.Equal(t, int32(1), hits[1].DocID)
	require.Greater(t, hits[0].Score, hits[1].Score)
}

// TestSearchPhraseRespectsSlop covers S2: "a c" separated by one
// intervening token matches with slop 1 but not with slop 0.
func TestSearchPhraseRespectsSlop(t *testing.T) {
	r := buildReader(t, "a b c")

	sloppy := query.NewPhrase("body", 1, "a", "c")
	hits, err := Search(r, sloppy)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	exact := query.NewPhrase("body", 0, "a", "c")
	hits, err = Search(r, exact)
	require.NoError(t, err)
	require.Empty(t, hits)
}

// TestSearchBooleanRequiredAndProhibited covers S3: "+a -c" keeps only
// documents containing the required term and excludes any containing the
// prohibited one.
func TestSearchBooleanRequiredAndProhibited(t *testing.T) {
	r := buildReader(t, "a b", "a c", "b c")

	q := query.NewBoolean().
		Add(query.NewTerm("body", "a"), query.Required).
		Add(query.NewTerm("body", "c"), query.Prohibited)

	hits, err := Search(r, q)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, int32(0), hits[0].DocID)
}

// TestSearchEmptyQueryReturnsNoHits covers the Empty query variant.
func TestSearchEmptyQueryReturnsNoHits(t *testing.T) {
	r := buildReader(t, "a b")
	hits, err := Search(r, query.Empty{})
	require.NoError(t, err)
	require.Empty(t, hits)
}

// TestSearchAbsentTermReturnsNoHits confirms a term absent from the index
// entirely produces no hits.
func TestSearchAbsentTermReturnsNoHits(t *testing.T) {
	r := buildReader(t, "a b")
	hits, err := Search(r, query.NewTerm("body", "nonexistent"))
	require.NoError(t, err)
	require.Empty(t, hits)
}
