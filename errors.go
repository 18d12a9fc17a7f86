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

// Package lucego is an embedded full-text search engine compatible at the
// on-disk level with the classical Lucene segment format.
package lucego

import (
	"github.com/lucego/lucego/index"
	"github.com/lucego/lucego/store"
)

// Sentinel error kinds (spec.md §7), re-exported here so callers only
// need to import the root package to compare against errors.Is. Wrap
// with fmt.Errorf("...: %w", ErrCorruptIndex) to add context.
var (
	// ErrCorruptIndex is returned when a structural invariant is violated
	// while reading a segment: bad magic, VInt overflow, term dictionary
	// out of order, checksum mismatch. Fatal for the operation.
	ErrCorruptIndex = index.ErrCorruptIndex

	// ErrLockObtainFailed means write.lock could not be acquired within
	// the requested timeout.
	ErrLockObtainFailed = store.ErrLockObtainFailed

	// ErrStaleReader means the operation targets a reader whose underlying
	// segments have since been deleted by a later commit.
	ErrStaleReader = index.ErrStaleReader

	// ErrInvalidArgument covers out-of-range ids, unknown fields, and
	// malformed query input.
	ErrInvalidArgument = index.ErrInvalidArgument
)
