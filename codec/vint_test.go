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

package codec

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVIntRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 16383, 16384, 1 << 20, math32Max()}
	for _, v := range values {
		var buf bytes.Buffer
		require.NoError(t, WriteVInt(&buf, v))
		got, err := ReadVInt(bufio.NewReader(&buf))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func math32Max() uint32 { return 0xFFFFFFFF }

func TestVLongRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 1 << 40, 1<<63 - 1}
	for _, v := range values {
		var buf bytes.Buffer
		require.NoError(t, WriteVLong(&buf, v))
		got, err := ReadVLong(bufio.NewReader(&buf))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestVIntTooLong(t *testing.T) {
	// Five continuation bytes (six bytes in all) is never valid for a VInt.
	buf := bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	_, err := ReadVInt(bufio.NewReader(buf))
	require.ErrorIs(t, err, ErrVIntTooLong)
}

func TestModifiedUTF8RoundTrip(t *testing.T) {
	cases := []string{"", "hello", "café", " embedded", "\U0001F600 emoji"}
	for _, s := range cases {
		enc := EncodeModifiedUTF8(s)
		require.Equal(t, s, DecodeModifiedUTF8(enc))
	}
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteString(&buf, "the quick brown fox"))
	got, err := ReadString(bufio.NewReader(&buf), int64(buf.Len()+10))
	require.NoError(t, err)
	require.Equal(t, "the quick brown fox", got)
}

func TestNormRoundTripApprox(t *testing.T) {
	for numTokens := 1; numTokens < 100; numTokens++ {
		f := LengthNorm(numTokens)
		b := EncodeNorm(f)
		decoded := DecodeNorm(b)
		// float8 is lossy; require it to be within 10% of the original.
		require.InDelta(t, f, decoded, float64(f)*0.1+1e-6)
	}
}
