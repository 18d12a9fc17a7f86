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

func TestFieldInfosAddOrGetWidensFlags(t *testing.T) {
	fi := NewFieldInfos()
	n1 := fi.AddOrGet("title", FieldFlags{Indexed: true, OmitNorms: true})
	n2 := fi.AddOrGet("title", FieldFlags{Indexed: true, OmitNorms: false})
	require.Equal(t, n1, n2)

	info, ok := fi.ByNumber(n1)
	require.True(t, ok)
	require.True(t, info.Flags.Indexed)
	require.False(t, info.Flags.OmitNorms, "OmitNorms should narrow to false once any occurrence clears it")
}

func TestFieldInfosRoundTrip(t *testing.T) {
	dir := store.NewRAMDirectory()
	fi := NewFieldInfos()
	fi.AddOrGet("title", FieldFlags{Indexed: true})
	fi.AddOrGet("body", FieldFlags{Indexed: true, StorePayloads: true})
	fi.AddOrGet("id", FieldFlags{OmitNorms: true})

	out, err := dir.CreateOutput("_0.fnm")
	require.NoError(t, err)
	require.NoError(t, WriteFieldInfos(out, fi))
	require.NoError(t, out.Close())

	in, err := dir.OpenInput("_0.fnm")
	require.NoError(t, err)
	defer in.Close()
	got, err := ReadFieldInfos(in)
	require.NoError(t, err)

	require.Equal(t, fi.Len(), got.Len())
	for i := 0; i < fi.Len(); i++ {
		want, _ := fi.ByNumber(int32(i))
		have, ok := got.ByNumber(int32(i))
		require.True(t, ok)
		require.Equal(t, want, have)
	}
}

func TestFieldInfosNames(t *testing.T) {
	fi := NewFieldInfos()
	fi.AddOrGet("title", FieldFlags{Indexed: true})
	fi.AddOrGet("id", FieldFlags{Indexed: false})

	require.ElementsMatch(t, []string{"title", "id"}, fi.Names(false))
	require.Equal(t, []string{"title"}, fi.Names(true))
}
