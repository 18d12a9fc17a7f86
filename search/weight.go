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
	"fmt"
	"sort"

	"github.com/lucego/lucego/codec"
	"github.com/lucego/lucego/index"
	"github.com/lucego/lucego/query"
)

// Weight is a one-shot, owned scoring plan built from a Query against one
// Reader snapshot (spec.md §9: "weights holding the reader ... becomes a
// one-shot builder"). It holds the reader (itself an immutable snapshot)
// plus whatever precomputed statistics (idf, boost) it needs; there is no
// back-reference from the reader to any Weight.
type Weight interface {
	// SumOfSquaredWeights contributes to the top-level queryNorm
	// computation (spec.md §4.9).
	SumOfSquaredWeights() float32
	// Normalize applies the top-level queryNorm to this weight and its
	// children.
	Normalize(queryNorm float32)
	// Scorer returns a fresh document iterator/scorer.
	Scorer() (Scorer, error)
}

// Scorer iterates matching documents in ascending global doc id order.
type Scorer interface {
	NextDoc() (bool, error)
	DocID() int32
	Score() float32
}

// CreateWeight builds a Weight for q against r. q must already be
// rewritten (query.Query.Rewrite) so only Term/Phrase/Boolean/MultiTerm/
// Empty variants remain.
func CreateWeight(q query.Query, r *index.Reader) (Weight, error) {
	switch t := q.(type) {
	case query.Term:
		return newTermWeight(r, t.Field, t.Text, t.Boost())
	case query.Phrase:
		return newPhraseWeight(r, t)
	case query.Boolean:
		return newBooleanWeight(r, t)
	case query.MultiTerm:
		return newMultiTermWeight(r, t)
	case query.Empty:
		return emptyWeight{}, nil
	default:
		return nil, fmt.Errorf("%w: query variant %T is not rewritten", index.ErrInvalidArgument, q)
	}
}

// --- Term ---

type termWeight struct {
	r          *index.Reader
	field      string
	text       string
	boost      float32
	idf        float32
	queryNorm  float32
}

func newTermWeight(r *index.Reader, field, text string, boost float32) (*termWeight, error) {
	docFreq, err := r.DocFreq(field, text)
	if err != nil {
		return nil, err
	}
	idf := DefaultSimilarity.Idf(docFreq, r.NumDocs())
	return &termWeight{r: r, field: field, text: text, boost: boost, idf: idf, queryNorm: 1}, nil
}

func (w *termWeight) SumOfSquaredWeights() float32 {
	v := w.idf * w.boost
	return v * v
}

func (w *termWeight) Normalize(queryNorm float32) { w.queryNorm = queryNorm }

func (w *termWeight) Scorer() (Scorer, error) {
	segments, bases := w.r.Segments()
	return &termScorer{w: w, segments: segments, bases: bases, segIdx: -1}, nil
}

type termScorer struct {
	w        *termWeight
	segments []*index.Segment
	bases    []int32
	segIdx   int
	pe       *index.PostingsEnum
	fieldNum int32
	docID    int32
	score    float32
}

func (s *termScorer) NextDoc() (bool, error) {
	for {
		if s.pe == nil {
			s.segIdx++
			if s.segIdx >= len(s.segments) {
				return false, nil
			}
			info, ok := s.segments[s.segIdx].FieldInfos().ByName(s.w.field)
			if !ok {
				continue
			}
			s.fieldNum = info.Number
			pe, err := s.segments[s.segIdx].Postings(info.Number, s.w.text, false)
			if err != nil {
				return false, err
			}
			if pe == nil {
				continue
			}
			s.pe = pe
		}
		ok, err := s.pe.NextDoc()
		if err != nil {
			return false, err
		}
		if !ok {
			s.pe = nil
			continue
		}
		normByte, err := s.segments[s.segIdx].Norm(s.pe.DocID(), s.fieldNum)
		if err != nil {
			return false, err
		}
		tf := DefaultSimilarity.Tf(s.pe.Freq())
		s.score = tf * s.w.idf * s.w.idf * s.w.queryNorm * s.w.boost * codec.DecodeNorm(normByte)
		s.docID = s.bases[s.segIdx] + s.pe.DocID()
		return true, nil
	}
}

func (s *termScorer) DocID() int32   { return s.docID }
func (s *termScorer) Score() float32 { return s.score }

// --- MultiTerm (rewritten Range/Fuzzy/Wildcard) ---

// newMultiTermWeight folds the expansion into an equivalent Boolean of
// Terms, one per clause, each pre-scaled by the clause's own boost
// (Fuzzy's per-term similarity, spec.md §4.8).
func newMultiTermWeight(r *index.Reader, m query.MultiTerm) (Weight, error) {
	b := query.NewBoolean().WithBoost(m.Boost())
	for _, c := range m.Clauses {
		term := query.NewTerm(m.Field, c.Text).WithBoost(c.Boost)
		b = b.Add(term, c.Sign)
	}
	return newBooleanWeight(r, b)
}

// --- Boolean ---

type booleanWeight struct {
	r     *index.Reader
	boost float32
	subs  []subWeight
}

type subWeight struct {
	w    Weight
	sign query.Sign
}

func newBooleanWeight(r *index.Reader, b query.Boolean) (*booleanWeight, error) {
	bw := &booleanWeight{r: r, boost: b.Boost()}
	for _, c := range b.Clauses {
		w, err := CreateWeight(c.Query, r)
		if err != nil {
			return nil, err
		}
		bw.subs = append(bw.subs, subWeight{w: w, sign: c.Sign})
	}
	return bw, nil
}

func (w *booleanWeight) SumOfSquaredWeights() float32 {
	if len(w.subs) == 0 {
		return 1.0
	}
	var sum float32
	for _, s := range w.subs {
		sum += s.w.SumOfSquaredWeights()
	}
	return w.boost * w.boost * sum
}

func (w *booleanWeight) Normalize(queryNorm float32) {
	for _, s := range w.subs {
		s.w.Normalize(queryNorm)
	}
}

func (w *booleanWeight) Scorer() (Scorer, error) {
	nonProhibited := 0
	var required, prohibited, optional []Scorer
	for _, s := range w.subs {
		sc, err := s.w.Scorer()
		if err != nil {
			return nil, err
		}
		switch s.sign {
		case query.Required:
			required = append(required, sc)
			nonProhibited++
		case query.Prohibited:
			prohibited = append(prohibited, sc)
		default:
			optional = append(optional, sc)
			nonProhibited++
		}
	}

	prohibitedDocs, err := collectDocs(prohibited)
	if err != nil {
		return nil, err
	}
	requiredDocs := make([]map[int32]float32, len(required))
	for i, sc := range required {
		m, err := collectScored(sc)
		if err != nil {
			return nil, err
		}
		requiredDocs[i] = m
	}
	optionalDocs := make([]map[int32]float32, len(optional))
	for i, sc := range optional {
		m, err := collectScored(sc)
		if err != nil {
			return nil, err
		}
		optionalDocs[i] = m
	}

	candidates := make(map[int32]bool)
	for _, m := range requiredDocs {
		for d := range m {
			candidates[d] = true
		}
	}
	if len(required) == 0 {
		for _, m := range optionalDocs {
			for d := range m {
				candidates[d] = true
			}
		}
	}

	var docs []int32
	for d := range candidates {
		if prohibitedDocs[d] {
			continue
		}
		ok := true
		for _, m := range requiredDocs {
			if _, found := m[d]; !found {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i] < docs[j] })

	hits := make([]boolHit, 0, len(docs))
	for _, d := range docs {
		matched := 0
		var sum float32
		for _, m := range requiredDocs {
			if s, ok := m[d]; ok {
				sum += s
				matched++
			}
		}
		for _, m := range optionalDocs {
			if s, ok := m[d]; ok {
				sum += s
				matched++
			}
		}
		coord := DefaultSimilarity.Coord(matched, nonProhibited)
		hits = append(hits, boolHit{docID: d, score: sum * coord * w.boost})
	}
	return &sliceScorer{hits: hits, idx: -1}, nil
}

type boolHit struct {
	docID int32
	score float32
}

type sliceScorer struct {
	hits []boolHit
	idx  int
}

func (s *sliceScorer) NextDoc() (bool, error) {
	s.idx++
	return s.idx < len(s.hits), nil
}

func (s *sliceScorer) DocID() int32   { return s.hits[s.idx].docID }
func (s *sliceScorer) Score() float32 { return s.hits[s.idx].score }

func collectDocs(scorers []Scorer) (map[int32]bool, error) {
	out := make(map[int32]bool)
	for _, sc := range scorers {
		for {
			ok, err := sc.NextDoc()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			out[sc.DocID()] = true
		}
	}
	return out, nil
}

func collectScored(sc Scorer) (map[int32]float32, error) {
	out := make(map[int32]float32)
	for {
		ok, err := sc.NextDoc()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out[sc.DocID()] = sc.Score()
	}
	return out, nil
}

// --- Empty ---

type emptyWeight struct{}

func (emptyWeight) SumOfSquaredWeights() float32 { return 0 }
func (emptyWeight) Normalize(float32)             {}
func (emptyWeight) Scorer() (Scorer, error)       { return &sliceScorer{idx: -1}, nil }
