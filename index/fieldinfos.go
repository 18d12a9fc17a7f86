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

// Package index is the core of the engine: the segmented index model
// (immutable segment files + tombstones + generation-based commit), the
// inverted-index read/write path (term dictionary, postings, norms), the
// segment merger, and the writer/reader commit protocol.
package index

import (
	"fmt"

	"github.com/lucego/lucego/codec"
	"github.com/lucego/lucego/store"
)

// FieldFlags mirrors document.Flags at the per-segment, per-field level
// (spec.md §4.2): the bits actually persisted in the .fnm file.
type FieldFlags struct {
	Indexed                      bool
	StoreTermVector              bool
	StorePositionsWithTermVector bool
	StoreOffsetsWithTermVector   bool
	OmitNorms                    bool
	StorePayloads                bool
}

const (
	ffIndexed = 1 << iota
	ffStoreTermVector
	ffStorePositionsWithTermVector
	ffStoreOffsetsWithTermVector
	ffOmitNorms
	ffStorePayloads
)

func (f FieldFlags) encode() byte {
	var b byte
	if f.Indexed {
		b |= ffIndexed
	}
	if f.StoreTermVector {
		b |= ffStoreTermVector
	}
	if f.StorePositionsWithTermVector {
		b |= ffStorePositionsWithTermVector
	}
	if f.StoreOffsetsWithTermVector {
		b |= ffStoreOffsetsWithTermVector
	}
	if f.OmitNorms {
		b |= ffOmitNorms
	}
	if f.StorePayloads {
		b |= ffStorePayloads
	}
	return b
}

func decodeFieldFlags(b byte) FieldFlags {
	return FieldFlags{
		Indexed:                      b&ffIndexed != 0,
		StoreTermVector:              b&ffStoreTermVector != 0,
		StorePositionsWithTermVector: b&ffStorePositionsWithTermVector != 0,
		StoreOffsetsWithTermVector:   b&ffStoreOffsetsWithTermVector != 0,
		OmitNorms:                    b&ffOmitNorms != 0,
		StorePayloads:                b&ffStorePayloads != 0,
	}
}

// FieldInfo is one entry of a segment's field info table: an ordinal, a
// name, and its flags.
type FieldInfo struct {
	Number int32
	Name   string
	Flags  FieldFlags
}

// FieldInfos is the ordinal -> {name, flags} table for one segment,
// assigned in first-seen order as documents are added (spec.md §4.6 step
// 1 reuses the same "first-seen order" rule when merging).
type FieldInfos struct {
	byNumber []FieldInfo
	byName   map[string]int32
}

// NewFieldInfos returns an empty field info table.
func NewFieldInfos() *FieldInfos {
	return &FieldInfos{byName: make(map[string]int32)}
}

// AddOrGet returns the ordinal for name, assigning the next ordinal and
// recording flags if name is new. Flags of an already-known field are
// widened rather than overwritten (OR'd, except OmitNorms, which stays set
// only while every occurrence sets it), since a field indexed in one
// document and only stored in another is still one logical field.
func (fi *FieldInfos) AddOrGet(name string, flags FieldFlags) int32 {
	if n, ok := fi.byName[name]; ok {
		fi.byNumber[n].Flags = widenFlags(fi.byNumber[n].Flags, flags)
		return n
	}
	n := int32(len(fi.byNumber))
	fi.byName[name] = n
	fi.byNumber = append(fi.byNumber, FieldInfo{Number: n, Name: name, Flags: flags})
	return n
}

func widenFlags(a, b FieldFlags) FieldFlags {
	return FieldFlags{
		Indexed:                      a.Indexed || b.Indexed,
		StoreTermVector:              a.StoreTermVector || b.StoreTermVector,
		StorePositionsWithTermVector: a.StorePositionsWithTermVector || b.StorePositionsWithTermVector,
		StoreOffsetsWithTermVector:   a.StoreOffsetsWithTermVector || b.StoreOffsetsWithTermVector,
		OmitNorms:                    a.OmitNorms && b.OmitNorms,
		StorePayloads:                a.StorePayloads || b.StorePayloads,
	}
}

// ByNumber returns the FieldInfo for ordinal n, or false if out of range.
func (fi *FieldInfos) ByNumber(n int32) (FieldInfo, bool) {
	if n < 0 || int(n) >= len(fi.byNumber) {
		return FieldInfo{}, false
	}
	return fi.byNumber[n], true
}

// ByName returns the FieldInfo for a field name, or false if unknown.
func (fi *FieldInfos) ByName(name string) (FieldInfo, bool) {
	n, ok := fi.byName[name]
	if !ok {
		return FieldInfo{}, false
	}
	return fi.byNumber[n], true
}

// Len returns the number of fields.
func (fi *FieldInfos) Len() int { return len(fi.byNumber) }

// Names returns every field name; if indexedOnly is set, only fields with
// Flags.Indexed are included. Order matches ordinal assignment order.
func (fi *FieldInfos) Names(indexedOnly bool) []string {
	names := make([]string, 0, len(fi.byNumber))
	for _, f := range fi.byNumber {
		if indexedOnly && !f.Flags.Indexed {
			continue
		}
		names = append(names, f.Name)
	}
	return names
}

// WriteFieldInfos writes the .fnm file: VInt fieldCount, then per field a
// String name and a Byte flags (spec.md §4.2).
func WriteFieldInfos(out store.IndexOutput, fi *FieldInfos) error {
	if err := codec.WriteVInt(out, uint32(len(fi.byNumber))); err != nil {
		return err
	}
	for _, f := range fi.byNumber {
		if err := codec.WriteString(out, f.Name); err != nil {
			return err
		}
		if err := out.WriteByte(f.Flags.encode()); err != nil {
			return err
		}
	}
	return nil
}

// ReadFieldInfos reads a .fnm file written by WriteFieldInfos.
func ReadFieldInfos(in store.IndexInput) (*FieldInfos, error) {
	count, err := codec.ReadVInt(in)
	if err != nil {
		return nil, err
	}
	fi := NewFieldInfos()
	for i := uint32(0); i < count; i++ {
		name, err := codec.ReadString(in, in.Length()-in.Tell())
		if err != nil {
			return nil, fmt.Errorf("%w: reading field name %d: %v", ErrCorruptIndex, i, err)
		}
		flagByte, err := in.ReadByte()
		if err != nil {
			return nil, err
		}
		n := int32(len(fi.byNumber))
		fi.byName[name] = n
		fi.byNumber = append(fi.byNumber, FieldInfo{Number: n, Name: name, Flags: decodeFieldFlags(flagByte)})
	}
	return fi, nil
}
