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
)

func TestFindMergesGroupsFullLevels(t *testing.T) {
	p := MergePolicy{MergeFactor: 2, MaxMergeDocs: 0, MaxBufferedDocs: 1}
	segments := []SegmentInfo{
		{Name: "_0", DocCount: 1},
		{Name: "_1", DocCount: 1},
		{Name: "_2", DocCount: 1},
	}
	groups := p.FindMerges(segments)
	require.Len(t, groups, 1)
	require.ElementsMatch(t, []int{0, 1}, groups[0])
}

func TestFindMergesNoneBelowMergeFactor(t *testing.T) {
	p := MergePolicy{MergeFactor: 10, MaxMergeDocs: 0, MaxBufferedDocs: 1}
	segments := []SegmentInfo{{Name: "_0", DocCount: 1}, {Name: "_1", DocCount: 1}}
	require.Empty(t, p.FindMerges(segments))
}

func TestFindMergesRespectsMaxMergeDocs(t *testing.T) {
	p := MergePolicy{MergeFactor: 2, MaxMergeDocs: 3, MaxBufferedDocs: 1}
	segments := []SegmentInfo{
		{Name: "_0", DocCount: 2},
		{Name: "_1", DocCount: 2},
	}
	// Both level 1, but combined doc count (4) exceeds MaxMergeDocs (3).
	require.Empty(t, p.FindMerges(segments))
}

func TestFindOptimizeMergesCollapsesToOne(t *testing.T) {
	p := DefaultMergePolicy()
	segments := []SegmentInfo{
		{Name: "_0", DocCount: 1},
		{Name: "_1", DocCount: 1},
		{Name: "_2", DocCount: 1},
	}
	groups := p.FindOptimizeMerges(segments)
	require.Len(t, groups, 1)
	require.ElementsMatch(t, []int{0, 1, 2}, groups[0])
}

func TestFindOptimizeMergesSingleSegmentIsNoop(t *testing.T) {
	p := DefaultMergePolicy()
	require.Empty(t, p.FindOptimizeMerges([]SegmentInfo{{Name: "_0", DocCount: 5}}))
}
