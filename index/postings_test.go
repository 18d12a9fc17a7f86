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

	"github.com/lucego/lucego/store"
)

func writePostingsFixture(t *testing.T, dir store.Directory, name string, skipInterval int32, docs []int32, positions map[int32][]int32) TermInfo {
	t.Helper()
	frq, err := dir.CreateOutput(name + ".frq")
	require.NoError(t, err)
	prx, err := dir.CreateOutput(name + ".prx")
	require.NoError(t, err)

	w := NewPostingsWriter(frq, prx, skipInterval)
	freqPointer, proxPointer := w.StartTerm()
	for _, d := range docs {
		pos := positions[d]
		require.NoError(t, w.AddPosting(d, int32(len(pos)), pos))
	}
	skipDelta, err := w.FinishTerm(int32(len(docs)))
	require.NoError(t, err)
	require.NoError(t, frq.Close())
	require.NoError(t, prx.Close())

	return TermInfo{DocFreq: int32(len(docs)), FreqPointer: freqPointer, ProxPointer: proxPointer, SkipDelta: skipDelta}
}

func openPostingsFixture(t *testing.T, dir store.Directory, name string, skipInterval int32, info TermInfo, deleted *DeletionBitmap) *PostingsEnum {
	t.Helper()
	frq, err := dir.OpenInput(name + ".frq")
	require.NoError(t, err)
	prx, err := dir.OpenInput(name + ".prx")
	require.NoError(t, err)
	pe, err := NewPostingsEnum(frq, prx, info, skipInterval, deleted)
	require.NoError(t, err)
	return pe
}

func TestPostingsEnumBasicIteration(t *testing.T) {
	dir := store.NewRAMDirectory()
	docs := []int32{0, 2, 5, 9}
	positions := map[int32][]int32{
		0: {0, 4},
		2: {1},
		5: {0, 1, 2},
		9: {7},
	}
	info := writePostingsFixture(t, dir, "_0", DefaultSkipInterval, docs, positions)
	pe := openPostingsFixture(t, dir, "_0", DefaultSkipInterval, info, nil)

	for _, d := range docs {
		ok, err := pe.NextDoc()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, d, pe.DocID())
		require.Equal(t, int32(len(positions[d])), pe.Freq())
		got, err := pe.Positions()
		require.NoError(t, err)
		require.Equal(t, positions[d], got)
	}
	ok, err := pe.NextDoc()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPostingsEnumSkipsDeletedDocs(t *testing.T) {
	dir := store.NewRAMDirectory()
	docs := []int32{0, 1, 2, 3}
	positions := map[int32][]int32{0: {0}, 1: {0}, 2: {0}, 3: {0}}
	info := writePostingsFixture(t, dir, "_0", DefaultSkipInterval, docs, positions)

	deleted := NewDeletionBitmap()
	deleted.Delete(1)
	deleted.Delete(3)
	pe := openPostingsFixture(t, dir, "_0", DefaultSkipInterval, info, deleted)

	var seen []int32
	for {
		ok, err := pe.NextDoc()
		require.NoError(t, err)
		if !ok {
			break
		}
		seen = append(seen, pe.DocID())
		_, err = pe.Positions()
		require.NoError(t, err)
	}
	require.Equal(t, []int32{0, 2}, seen)
}

func TestPostingsEnumSkipToUsesEmbeddedSkipList(t *testing.T) {
	dir := store.NewRAMDirectory()
	skipInterval := int32(4)
	var docs []int32
	positions := make(map[int32][]int32)
	for i := int32(0); i < 40; i += 2 {
		docs = append(docs, i)
		positions[i] = []int32{0}
	}
	info := writePostingsFixture(t, dir, "_0", skipInterval, docs, positions)
	pe := openPostingsFixture(t, dir, "_0", skipInterval, info, nil)

	ok, err := pe.SkipTo(25)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(26), pe.DocID())

	ok, err = pe.SkipTo(100)
	require.NoError(t, err)
	require.False(t, ok)
}
