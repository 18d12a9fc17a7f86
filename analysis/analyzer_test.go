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

package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimpleAnalyzerLowercasesAndSplits(t *testing.T) {
	tokens := SimpleAnalyzer{}.Analyze("body", "The Quick-Fox jumps!")
	want := []Token{
		{Text: "the", Position: 0},
		{Text: "quick", Position: 1},
		{Text: "fox", Position: 2},
		{Text: "jumps", Position: 3},
	}
	require.Equal(t, want, tokens)
}

func TestSimpleAnalyzerEmptyValueYieldsNoTokens(t *testing.T) {
	require.Empty(t, SimpleAnalyzer{}.Analyze("body", "   "))
}

func TestSimpleAnalyzerGapLeavesPositionStrictlyIncreasing(t *testing.T) {
	tokens := SimpleAnalyzer{}.Analyze("body", "a  b")
	require.Equal(t, []Token{{Text: "a", Position: 0}, {Text: "b", Position: 1}}, tokens)
}

func TestKeywordAnalyzerEmitsSingleToken(t *testing.T) {
	tokens := KeywordAnalyzer{}.Analyze("id", "SKU-1234")
	require.Equal(t, []Token{{Text: "SKU-1234", Position: 0}}, tokens)
}

func TestKeywordAnalyzerEmptyValueYieldsNoTokens(t *testing.T) {
	require.Empty(t, KeywordAnalyzer{}.Analyze("id", ""))
}
