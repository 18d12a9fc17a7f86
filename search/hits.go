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
	"sort"

	"github.com/lucego/lucego/index"
	"github.com/lucego/lucego/query"
)

// Hit is one scored result: a global doc id and its computed score.
type Hit struct {
	DocID int32
	Score float32
}

// Search rewrites q against r, builds its Weight tree, normalizes by
// queryNorm, and collects every positively scored hit in descending
// score order (ties broken by ascending doc id), per spec.md §4.9's
// "Hit collection".
func Search(r *index.Reader, q query.Query) ([]Hit, error) {
	rewritten, err := q.Rewrite(r)
	if err != nil {
		return nil, err
	}
	w, err := CreateWeight(rewritten, r)
	if err != nil {
		return nil, err
	}
	queryNorm := DefaultSimilarity.QueryNorm(w.SumOfSquaredWeights())
	w.Normalize(queryNorm)

	scorer, err := w.Scorer()
	if err != nil {
		return nil, err
	}
	var hits []Hit
	for {
		ok, err := scorer.NextDoc()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if s := scorer.Score(); s > 0 {
			hits = append(hits, Hit{DocID: scorer.DocID(), Score: s})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocID < hits[j].DocID
	})
	return hits, nil
}
