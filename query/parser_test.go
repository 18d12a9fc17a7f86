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

package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lucego/lucego/analysis"
	"github.com/lucego/lucego/document"
	"github.com/lucego/lucego/index"
	"github.com/lucego/lucego/store"
)

func TestParseBareTerm(t *testing.T) {
	q, err := Parse("body", "fox", analysis.SimpleAnalyzer{})
	require.NoError(t, err)
	term, ok := q.(Term)
	require.True(t, ok)
	require.Equal(t, "body", term.Field)
	require.Equal(t, "fox", term.Text)
}

func TestParseQuotedPhraseWithSlop(t *testing.T) {
	q, err := Parse("body", `"quick fox"~2`, analysis.SimpleAnalyzer{})
	require.NoError(t, err)
	phrase, ok := q.(Phrase)
	require.True(t, ok)
	require.Equal(t, 2, phrase.Slop)
	require.Len(t, phrase.Terms, 2)
	require.Equal(t, "quick", phrase.Terms[0].Text)
	require.Equal(t, "fox", phrase.Terms[1].Text)
}

func TestParseFieldPrefixOverride(t *testing.T) {
	q, err := Parse("body", "title:fox", analysis.SimpleAnalyzer{})
	require.NoError(t, err)
	term, ok := q.(Term)
	require.True(t, ok)
	require.Equal(t, "title", term.Field)
	require.Equal(t, "fox", term.Text)
}

func TestParseRequiredAndProhibitedSigns(t *testing.T) {
	q, err := Parse("body", "+fox -hare", analysis.SimpleAnalyzer{})
	require.NoError(t, err)
	b, ok := q.(Boolean)
	require.True(t, ok)
	require.Len(t, b.Clauses, 2)
	require.Equal(t, Required, b.Clauses[0].Sign)
	require.Equal(t, Prohibited, b.Clauses[1].Sign)
}

func TestParseFuzzyTerm(t *testing.T) {
	q, err := Parse("body", "colour~0.6", analysis.SimpleAnalyzer{})
	require.NoError(t, err)
	f, ok := q.(Fuzzy)
	require.True(t, ok)
	require.Equal(t, "colour", f.Text)
	require.InDelta(t, 0.6, f.MinSimilarity, 0.001)
}

func TestParseWildcardTerm(t *testing.T) {
	q, err := Parse("body", "col*", analysis.SimpleAnalyzer{})
	require.NoError(t, err)
	w, ok := q.(Wildcard)
	require.True(t, ok)
	require.Equal(t, "col*", w.Pattern)
}

func TestParseRange(t *testing.T) {
	q, err := Parse("year", "[2000 TO 2020]", analysis.SimpleAnalyzer{})
	require.NoError(t, err)
	r, ok := q.(Range)
	require.True(t, ok)
	require.Equal(t, "2000", r.Lower)
	require.Equal(t, "2020", r.Upper)
	require.True(t, r.InclusiveLower)
	require.True(t, r.InclusiveUpper)
}

func TestParseExclusiveRange(t *testing.T) {
	q, err := Parse("year", "{2000 TO 2020}", analysis.SimpleAnalyzer{})
	require.NoError(t, err)
	r, ok := q.(Range)
	require.True(t, ok)
	require.False(t, r.InclusiveLower)
	require.False(t, r.InclusiveUpper)
}

func TestParseEmptyInputReturnsEmpty(t *testing.T) {
	q, err := Parse("body", "   ", analysis.SimpleAnalyzer{})
	require.NoError(t, err)
	require.IsType(t, Empty{}, q)
}

func TestParseUnterminatedPhraseErrors(t *testing.T) {
	_, err := Parse("body", `"quick fox`, analysis.SimpleAnalyzer{})
	require.Error(t, err)
}

// TestFuzzyRewriteMatchesSimilarTerm covers S6: a document indexed with
// "color" is found by a fuzzy query for "colour" at a permissive
// similarity threshold, via rewrite against the live term dictionary.
func TestFuzzyRewriteMatchesSimilarTerm(t *testing.T) {
	dir := store.NewRAMDirectory()
	w, err := index.OpenWriter(dir)
	require.NoError(t, err)
	doc := &document.Document{}
	doc.Add(document.NewTextField("body", "the color of the sky", true))
	w.AddDocument(doc)
	require.NoError(t, w.Commit())
	require.NoError(t, w.Close())

	r, err := index.OpenReader(dir)
	require.NoError(t, err)
	defer r.Close()

	q, err := Parse("body", "colour~0.6", analysis.SimpleAnalyzer{})
	require.NoError(t, err)
	rewritten, err := q.Rewrite(r)
	require.NoError(t, err)

	mt, ok := rewritten.(MultiTerm)
	require.True(t, ok)
	var found bool
	for _, c := range mt.Clauses {
		if c.Text == "color" {
			found = true
		}
	}
	require.True(t, found, "fuzzy rewrite should include the similar indexed term %q", "color")
}

func TestRangeRewriteEmptyWhenNoTermsMatch(t *testing.T) {
	dir := store.NewRAMDirectory()
	w, err := index.OpenWriter(dir)
	require.NoError(t, err)
	doc := &document.Document{}
	doc.Add(document.NewKeywordField("year", "1999", true))
	w.AddDocument(doc)
	require.NoError(t, w.Commit())
	require.NoError(t, w.Close())

	r, err := index.OpenReader(dir)
	require.NoError(t, err)
	defer r.Close()

	rewritten, err := NewRange("year", "2000", "2020", true, true).Rewrite(r)
	require.NoError(t, err)
	require.IsType(t, Empty{}, rewritten)
}
