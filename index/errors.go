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

import "errors"

// Sentinel error kinds (spec.md §7). The root lucego package re-exports
// these so callers never need to import index directly just to compare
// against errors.Is.
var (
	// ErrCorruptIndex flags a structural invariant violated while reading:
	// bad magic, VInt overflow, term dictionary out of order, checksum
	// mismatch. Fatal for the operation; the reader/writer is poisoned.
	ErrCorruptIndex = errors.New("index: corrupt index")

	// ErrStaleReader flags an operation on a reader whose underlying
	// segments have been deleted by a later commit.
	ErrStaleReader = errors.New("index: stale reader")

	// ErrInvalidArgument flags an out-of-range id, unknown field, or
	// malformed query input.
	ErrInvalidArgument = errors.New("index: invalid argument")
)
