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

import "strconv"

// encodeGen renders a generation counter as lowercase base-36, matching
// the file-name suffixes used by segments_<gen> and <segment>_<gen>.del
// (spec.md §4.7).
func encodeGen(gen int64) string {
	return strconv.FormatInt(gen, 36)
}

// decodeGen parses a base-36 generation suffix.
func decodeGen(s string) (int64, error) {
	return strconv.ParseInt(s, 36, 64)
}
