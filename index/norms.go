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
	"fmt"

	"github.com/lucego/lucego/codec"
	"github.com/lucego/lucego/store"
)

// normsFileName returns the "<name>.f<ord>" norms file for one indexed
// field (spec.md §6.2).
func normsFileName(segment string, fieldNum int32) string {
	return fmt.Sprintf("%s.f%d", segment, fieldNum)
}

// WriteNorms writes one maxDoc-byte norms file: the norm byte for
// (doc, field) is encodeNorm(boost * lengthNorm(numTokens)) (spec.md
// §4.2); boost defaults to 1.0 throughout this implementation since
// per-field/per-document boosting is not part of the document model.
func WriteNorms(dir store.Directory, segment string, fieldNum int32, norms []byte) error {
	out, err := dir.CreateOutput(normsFileName(segment, fieldNum))
	if err != nil {
		return err
	}
	if _, err := out.Write(norms); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ReadNorms reads the maxDoc-byte norms file for one field.
func ReadNorms(dir store.Directory, segment string, fieldNum int32, maxDoc int32) ([]byte, error) {
	name := normsFileName(segment, fieldNum)
	in, err := dir.OpenInput(name)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	if in.Length() != int64(maxDoc) {
		return nil, fmt.Errorf("%w: norms file %q has length %d, want %d", ErrCorruptIndex, name, in.Length(), maxDoc)
	}
	buf := make([]byte, maxDoc)
	if err := in.ReadBytes(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeFieldNorms builds the maxDoc-length norms byte slice for one
// field given the token count indexed for that field in each doc (0 for
// docs that don't have the field, or that have OmitNorms set).
func EncodeFieldNorms(numTokensByDoc []int32) []byte {
	norms := make([]byte, len(numTokensByDoc))
	for doc, n := range numTokensByDoc {
		if n > 0 {
			norms[doc] = codec.EncodeNorm(codec.LengthNorm(int(n)))
		}
	}
	return norms
}
