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

import "sort"

// MergePolicy buckets segments into levels by document count and decides
// which groups should be merged (spec.md §4.7.1).
type MergePolicy struct {
	MergeFactor     int32
	MaxMergeDocs    int32 // 0 means unbounded
	MaxBufferedDocs int32
}

// DefaultMergePolicy matches the source's defaults.
func DefaultMergePolicy() MergePolicy {
	return MergePolicy{MergeFactor: 10, MaxMergeDocs: 0, MaxBufferedDocs: 10}
}

func (p MergePolicy) unbounded() bool { return p.MaxMergeDocs <= 0 }

// FindMerges returns, for the current segment list, groups of segment
// indexes (into segments, ascending, each naming MergeFactor segments at
// the same level; they need not be adjacent in the list) that should be
// merged together in this pass. Segments are
// assumed already ordered oldest-first, matching how they are recorded
// in the segments file (spec.md invariant 4).
func (p MergePolicy) FindMerges(segments []SegmentInfo) [][]int {
	levels := sortSegmentsByLevel(segments, p.MergeFactor)

	levelKeys := make([]int, 0, len(levels))
	for l := range levels {
		levelKeys = append(levelKeys, l)
	}
	sort.Ints(levelKeys)

	var merges [][]int
	for _, l := range levelKeys {
		idxs := levels[l]
		for int32(len(idxs)) >= p.MergeFactor {
			group := append([]int(nil), idxs[:p.MergeFactor]...)
			if p.fits(segments, group) {
				merges = append(merges, group)
			}
			idxs = idxs[p.MergeFactor:]
		}
	}
	return merges
}

func (p MergePolicy) fits(segments []SegmentInfo, group []int) bool {
	if p.unbounded() {
		return true
	}
	var total int64
	for _, i := range group {
		total += int64(segments[i].DocCount)
	}
	return total <= int64(p.MaxMergeDocs)
}

// FindOptimizeMerges returns the sequence of merge groups needed to force
// every segment into one (optimize()), respecting MaxMergeDocs by
// chunking into multiple merges when unbounded-in-one-shot would violate
// it.
func (p MergePolicy) FindOptimizeMerges(segments []SegmentInfo) [][]int {
	if len(segments) <= 1 {
		return nil
	}
	if p.unbounded() {
		all := make([]int, len(segments))
		for i := range all {
			all[i] = i
		}
		return [][]int{all}
	}

	var merges [][]int
	var group []int
	var total int64
	for i, s := range segments {
		if total+int64(s.DocCount) > int64(p.MaxMergeDocs) && len(group) > 0 {
			if len(group) > 1 {
				merges = append(merges, group)
			}
			group = nil
			total = 0
		}
		group = append(group, i)
		total += int64(s.DocCount)
	}
	if len(group) > 1 {
		merges = append(merges, group)
	}
	return merges
}
