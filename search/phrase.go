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
	"math"

	"github.com/lucego/lucego/codec"
	"github.com/lucego/lucego/index"
	"github.com/lucego/lucego/query"
)

// phraseWeight scores a Phrase query. Its idf, like a conjunction of
// Terms, is the sum of each term's own idf (spec.md §4.9).
type phraseWeight struct {
	r         *index.Reader
	field     string
	terms     []query.PhraseTerm
	slop      int
	boost     float32
	idf       float32
	queryNorm float32
}

func newPhraseWeight(r *index.Reader, p query.Phrase) (*phraseWeight, error) {
	var idf float32
	for _, t := range p.Terms {
		df, err := r.DocFreq(p.Field, t.Text)
		if err != nil {
			return nil, err
		}
		idf += DefaultSimilarity.Idf(df, r.NumDocs())
	}
	return &phraseWeight{r: r, field: p.Field, terms: p.Terms, slop: p.Slop, boost: p.Boost(), idf: idf, queryNorm: 1}, nil
}

func (w *phraseWeight) SumOfSquaredWeights() float32 {
	v := w.idf * w.boost
	return v * v
}

func (w *phraseWeight) Normalize(queryNorm float32) { w.queryNorm = queryNorm }

func (w *phraseWeight) Scorer() (Scorer, error) {
	segments, bases := w.r.Segments()
	return &phraseScorer{w: w, segments: segments, bases: bases, segIdx: -1}, nil
}

type phraseScorer struct {
	w        *phraseWeight
	segments []*index.Segment
	bases    []int32
	segIdx   int
	pes      []*index.PostingsEnum
	fieldNum int32
	docID    int32
	score    float32
}

// openSegment advances to the next segment carrying every phrase term in
// the target field; a segment missing even one term can contribute no
// matches and is skipped entirely.
func (s *phraseScorer) openSegment() bool {
	for {
		s.segIdx++
		if s.segIdx >= len(s.segments) {
			return false
		}
		seg := s.segments[s.segIdx]
		info, ok := seg.FieldInfos().ByName(s.w.field)
		if !ok {
			continue
		}
		pes := make([]*index.PostingsEnum, len(s.w.terms))
		complete := true
		for i, t := range s.w.terms {
			pe, err := seg.Postings(info.Number, t.Text, false)
			if err != nil || pe == nil {
				complete = false
				break
			}
			pes[i] = pe
		}
		if !complete {
			continue
		}
		s.fieldNum = info.Number
		s.pes = pes
		return true
	}
}

func (s *phraseScorer) advance() (bool, error) {
	for _, pe := range s.pes {
		ok, err := pe.NextDoc()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return s.align()
}

// align performs a standard sorted merge-join across every term's
// postings enum until all sit on the same doc id, or one is exhausted.
func (s *phraseScorer) align() (bool, error) {
	for {
		var max int32 = -1
		for _, pe := range s.pes {
			if pe.DocID() > max {
				max = pe.DocID()
			}
		}
		allEqual := true
		for _, pe := range s.pes {
			if pe.DocID() < max {
				ok, err := pe.SkipTo(max)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
				allEqual = false
			}
		}
		if allEqual {
			return true, nil
		}
	}
}

func (s *phraseScorer) NextDoc() (bool, error) {
	for {
		if s.pes == nil {
			if !s.openSegment() {
				return false, nil
			}
		}
		ok, err := s.advance()
		if err != nil {
			return false, err
		}
		if !ok {
			s.pes = nil
			continue
		}
		freq, err := s.phraseFreq()
		if err != nil {
			return false, err
		}
		if freq <= 0 {
			continue
		}
		normByte, err := s.segments[s.segIdx].Norm(s.pes[0].DocID(), s.fieldNum)
		if err != nil {
			return false, err
		}
		tf := float32(math.Sqrt(float64(freq)))
		s.score = tf * s.w.idf * s.w.idf * s.w.queryNorm * s.w.boost * codec.DecodeNorm(normByte)
		s.docID = s.bases[s.segIdx] + s.pes[0].DocID()
		return true, nil
	}
}

// phraseFreq implements a position-alignment scoring pass: for every
// occurrence of the first term, it finds each other term's closest
// occurrence to its expected offset and sums the absolute deviations. A
// total within the query's slop contributes 1/(1+totalEdits) to the
// doc's phrase frequency (spec.md §4.9, S2).
func (s *phraseScorer) phraseFreq() (float32, error) {
	positions := make([][]int32, len(s.pes))
	for i, pe := range s.pes {
		p, err := pe.Positions()
		if err != nil {
			return 0, err
		}
		positions[i] = p
	}
	if len(positions) == 0 || len(positions[0]) == 0 {
		return 0, nil
	}
	basePos := s.w.terms[0].Position
	var freq float32
	for _, p0 := range positions[0] {
		totalEdits := 0
		ok := true
		for i := 1; i < len(s.w.terms); i++ {
			expected := p0 + int32(s.w.terms[i].Position-basePos)
			closest, found := closestPosition(positions[i], expected)
			if !found {
				ok = false
				break
			}
			d := closest - expected
			if d < 0 {
				d = -d
			}
			totalEdits += int(d)
			if totalEdits > s.w.slop {
				ok = false
				break
			}
		}
		if ok {
			freq += 1.0 / float32(1+totalEdits)
		}
	}
	return freq, nil
}

func closestPosition(positions []int32, target int32) (int32, bool) {
	if len(positions) == 0 {
		return 0, false
	}
	best := positions[0]
	bestDist := abs32(best - target)
	for _, p := range positions[1:] {
		d := abs32(p - target)
		if d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, true
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func (s *phraseScorer) DocID() int32   { return s.docID }
func (s *phraseScorer) Score() float32 { return s.score }
