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

// Package query is the query tree (spec.md §4.8): a sum type over
// Term, Phrase, Range, Fuzzy, Wildcard, Boolean, MultiTerm, and Empty,
// each carrying a boost. Rewrite expands Fuzzy/Wildcard/Range against a
// reader's live term dictionary into a tree of only Term/Phrase/Boolean/
// MultiTerm/Empty, which is all the search package's Weight/Scorer pair need to
// handle.
package query

import "github.com/lucego/lucego/index"

// Sign is a Boolean/MultiTerm clause's participation requirement.
type Sign int

const (
	Optional Sign = iota
	Required
	Prohibited
)

// Query is the sum type every query variant implements.
type Query interface {
	// Boost returns the query's score multiplier.
	Boost() float32
	// Rewrite expands Fuzzy/Wildcard/Range variants against r's live term
	// dictionary; Term/Phrase/Boolean/Empty rewrite their children (if
	// any) and otherwise return themselves unchanged.
	Rewrite(r *index.Reader) (Query, error)
}

// Term matches documents containing exactly (Field, Text).
type Term struct {
	Field string
	Text  string
	boost float32
}

// NewTerm returns a Term query with boost 1.0.
func NewTerm(field, text string) Term { return Term{Field: field, Text: text, boost: 1.0} }

func (t Term) Boost() float32 { return orOne(t.boost) }

// WithBoost returns a copy of t with a new boost.
func (t Term) WithBoost(b float32) Term { t.boost = b; return t }

func (t Term) Rewrite(*index.Reader) (Query, error) { return t, nil }

// PhraseTerm is one (term text, position offset) entry of a Phrase.
type PhraseTerm struct {
	Text     string
	Position int
}

// Phrase matches documents where Terms occur with position offsets
// matching Positions, up to Slop total edits (spec.md §4.9).
type Phrase struct {
	Field string
	Terms []PhraseTerm
	Slop  int
	boost float32
}

// NewPhrase returns a Phrase query with boost 1.0 and terms at
// consecutive positions 0, 1, 2, ... (build Terms directly with explicit
// Position values for phrases with internal gaps).
func NewPhrase(field string, slop int, texts ...string) Phrase {
	terms := make([]PhraseTerm, len(texts))
	for i, t := range texts {
		terms[i] = PhraseTerm{Text: t, Position: i}
	}
	return Phrase{Field: field, Terms: terms, Slop: slop, boost: 1.0}
}

func (p Phrase) Boost() float32 { return orOne(p.boost) }

func (p Phrase) WithBoost(b float32) Phrase { p.boost = b; return p }

func (p Phrase) Rewrite(*index.Reader) (Query, error) { return p, nil }

// Range matches terms in [Lower, Upper] (bounds inclusive per the
// Inclusive* flags); rewrites to a MultiTerm of every matching term in
// the live dictionary.
type Range struct {
	Field                          string
	Lower, Upper                   string
	InclusiveLower, InclusiveUpper bool
	boost                          float32
}

// NewRange returns a Range query with boost 1.0.
func NewRange(field, lower, upper string, inclusiveLower, inclusiveUpper bool) Range {
	return Range{Field: field, Lower: lower, Upper: upper, InclusiveLower: inclusiveLower, InclusiveUpper: inclusiveUpper, boost: 1.0}
}

func (q Range) Boost() float32 { return orOne(q.boost) }

func (q Range) WithBoost(b float32) Range { q.boost = b; return q }

func (q Range) Rewrite(r *index.Reader) (Query, error) {
	terms, err := r.FieldTerms(q.Field)
	if err != nil {
		return nil, err
	}
	var clauses []MultiTermClause
	for _, t := range terms {
		if !q.inRange(t) {
			continue
		}
		clauses = append(clauses, MultiTermClause{Text: t, Sign: Optional, Boost: 1.0})
	}
	if len(clauses) == 0 {
		return Empty{}, nil
	}
	return MultiTerm{Field: q.Field, Clauses: clauses, boost: q.Boost()}, nil
}

func (q Range) inRange(term string) bool {
	if q.Lower != "" {
		if q.InclusiveLower {
			if term < q.Lower {
				return false
			}
		} else if term <= q.Lower {
			return false
		}
	}
	if q.Upper != "" {
		if q.InclusiveUpper {
			if term > q.Upper {
				return false
			}
		} else if term >= q.Upper {
			return false
		}
	}
	return true
}

// Fuzzy matches terms within an edit-distance-derived similarity of Text
// (spec.md §4.8, S6): rewrites to a MultiTerm of matches, each weighted
// by its own similarity score.
type Fuzzy struct {
	Field         string
	Text          string
	MinSimilarity float32
	PrefixLength  int
	boost         float32
}

// NewFuzzy returns a Fuzzy query with boost 1.0.
func NewFuzzy(field, text string, minSimilarity float32, prefixLength int) Fuzzy {
	return Fuzzy{Field: field, Text: text, MinSimilarity: minSimilarity, PrefixLength: prefixLength, boost: 1.0}
}

func (q Fuzzy) Boost() float32 { return orOne(q.boost) }

func (q Fuzzy) WithBoost(b float32) Fuzzy { q.boost = b; return q }

func (q Fuzzy) Rewrite(r *index.Reader) (Query, error) {
	terms, err := r.FieldTerms(q.Field)
	if err != nil {
		return nil, err
	}
	prefixLen := q.PrefixLength
	if prefixLen > len(q.Text) {
		prefixLen = len(q.Text)
	}
	prefix := q.Text[:prefixLen]
	var clauses []MultiTermClause
	for _, t := range terms {
		if prefixLen > 0 && (len(t) < prefixLen || t[:prefixLen] != prefix) {
			continue
		}
		sim := fuzzySimilarity(q.Text, t)
		if sim >= q.MinSimilarity {
			clauses = append(clauses, MultiTermClause{Text: t, Sign: Optional, Boost: sim})
		}
	}
	if len(clauses) == 0 {
		return Empty{}, nil
	}
	return MultiTerm{Field: q.Field, Clauses: clauses, boost: q.Boost()}, nil
}

// fuzzySimilarity implements reference Lucene's FuzzyQuery formula:
// 1 - editDistance / min(len(a), len(b)).
func fuzzySimilarity(a, b string) float32 {
	shorter, longer := a, b
	if len(a) > len(b) {
		shorter, longer = b, a
	}
	if len(shorter) == 0 {
		if len(longer) == 0 {
			return 1.0
		}
		return 0.0
	}
	dist := levenshtein(a, b)
	return 1.0 - float32(dist)/float32(len(shorter))
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// Wildcard matches terms against Pattern, where '*' matches any run of
// characters and '?' matches exactly one; rewrites to a MultiTerm of
// matches.
type Wildcard struct {
	Field   string
	Pattern string
	boost   float32
}

// NewWildcard returns a Wildcard query with boost 1.0.
func NewWildcard(field, pattern string) Wildcard {
	return Wildcard{Field: field, Pattern: pattern, boost: 1.0}
}

func (q Wildcard) Boost() float32 { return orOne(q.boost) }

func (q Wildcard) WithBoost(b float32) Wildcard { q.boost = b; return q }

func (q Wildcard) Rewrite(r *index.Reader) (Query, error) {
	terms, err := r.FieldTerms(q.Field)
	if err != nil {
		return nil, err
	}
	var clauses []MultiTermClause
	for _, t := range terms {
		if wildcardMatch(q.Pattern, t) {
			clauses = append(clauses, MultiTermClause{Text: t, Sign: Optional, Boost: 1.0})
		}
	}
	if len(clauses) == 0 {
		return Empty{}, nil
	}
	return MultiTerm{Field: q.Field, Clauses: clauses, boost: q.Boost()}, nil
}

func wildcardMatch(pattern, text string) bool {
	return wildcardMatchRunes([]rune(pattern), []rune(text))
}

func wildcardMatchRunes(p, t []rune) bool {
	if len(p) == 0 {
		return len(t) == 0
	}
	if p[0] == '*' {
		if wildcardMatchRunes(p[1:], t) {
			return true
		}
		for len(t) > 0 {
			t = t[1:]
			if wildcardMatchRunes(p[1:], t) {
				return true
			}
		}
		return false
	}
	if len(t) == 0 {
		return false
	}
	if p[0] == '?' || p[0] == t[0] {
		return wildcardMatchRunes(p[1:], t[1:])
	}
	return false
}

// BooleanClause pairs a subquery with its participation requirement.
type BooleanClause struct {
	Query Query
	Sign  Sign
}

// Boolean combines subqueries under REQUIRED/PROHIBITED/OPTIONAL
// constraints (spec.md §4.8, §4.9).
type Boolean struct {
	Clauses []BooleanClause
	boost   float32
}

// NewBoolean returns an empty Boolean query with boost 1.0; use Add to
// append clauses.
func NewBoolean() Boolean { return Boolean{boost: 1.0} }

// Add appends a clause and returns the query for chaining.
func (b Boolean) Add(q Query, sign Sign) Boolean {
	b.Clauses = append(append([]BooleanClause(nil), b.Clauses...), BooleanClause{Query: q, Sign: sign})
	return b
}

func (b Boolean) Boost() float32 { return orOne(b.boost) }

func (b Boolean) WithBoost(v float32) Boolean { b.boost = v; return b }

func (b Boolean) Rewrite(r *index.Reader) (Query, error) {
	rewritten := make([]BooleanClause, len(b.Clauses))
	for i, c := range b.Clauses {
		rq, err := c.Query.Rewrite(r)
		if err != nil {
			return nil, err
		}
		rewritten[i] = BooleanClause{Query: rq, Sign: c.Sign}
	}
	return Boolean{Clauses: rewritten, boost: b.Boost()}, nil
}

// MultiTermClause is one expansion result of Range/Fuzzy/Wildcard
// rewriting: a concrete term text, its participation sign, and a
// per-term boost (1.0 for Range/Wildcard, a similarity score for Fuzzy).
type MultiTermClause struct {
	Text  string
	Sign  Sign
	Boost float32
}

// MultiTerm is the rewritten form of Range/Fuzzy/Wildcard: a disjunction
// (or constrained set, via Sign) of concrete terms in one field.
type MultiTerm struct {
	Field   string
	Clauses []MultiTermClause
	boost   float32
}

func (m MultiTerm) Boost() float32 { return orOne(m.boost) }

func (m MultiTerm) WithBoost(b float32) MultiTerm { m.boost = b; return m }

func (m MultiTerm) Rewrite(*index.Reader) (Query, error) { return m, nil }

// Empty matches no documents; it is the identity for impossible
// rewrites (spec.md §4.8).
type Empty struct{}

func (Empty) Boost() float32 { return 1.0 }

func (e Empty) Rewrite(*index.Reader) (Query, error) { return e, nil }

func orOne(b float32) float32 {
	if b == 0 {
		return 1.0
	}
	return b
}
