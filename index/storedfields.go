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
	"github.com/lucego/lucego/document"
	"github.com/lucego/lucego/store"
)

// StoredField is one persisted (name, value) pair of a document's stored
// fields; fieldNumber indexes into the segment's FieldInfos.
type StoredField struct {
	FieldNumber int32
	Value       string
	Binary      bool
}

// StoredFieldsWriter appends one record per document to .fdt and one
// 8-byte pointer per document to .fdx (spec.md §6.2).
type StoredFieldsWriter struct {
	fdx, fdt store.IndexOutput
	numDocs  int32
}

// NewStoredFieldsWriter wraps the .fdx/.fdt outputs.
func NewStoredFieldsWriter(fdx, fdt store.IndexOutput) *StoredFieldsWriter {
	return &StoredFieldsWriter{fdx: fdx, fdt: fdt}
}

// AddDocument appends one document's stored fields and the index pointer
// to it.
func (w *StoredFieldsWriter) AddDocument(fields []StoredField) error {
	pointer := uint64(w.fdt.Tell())
	if err := writeUint64(w.fdx, pointer); err != nil {
		return err
	}
	if err := codec.WriteVInt(w.fdt, uint32(len(fields))); err != nil {
		return err
	}
	for _, f := range fields {
		if err := codec.WriteVInt(w.fdt, uint32(f.FieldNumber)); err != nil {
			return err
		}
		var bits byte
		if f.Binary {
			bits = 1
		}
		if err := w.fdt.WriteByte(bits); err != nil {
			return err
		}
		if err := codec.WriteString(w.fdt, f.Value); err != nil {
			return err
		}
	}
	w.numDocs++
	return nil
}

// Close closes both output files.
func (w *StoredFieldsWriter) Close() error {
	if err := w.fdx.Close(); err != nil {
		w.fdt.Close()
		return err
	}
	return w.fdt.Close()
}

func writeUint64(out store.IndexOutput, v uint64) error {
	var buf [8]byte
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	_, err := out.Write(buf[:])
	return err
}

func readUint64(in store.IndexInput) (uint64, error) {
	var buf [8]byte
	if err := in.ReadBytes(buf[:]); err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// StoredFieldsReader provides random access to stored document records by
// local doc id.
type StoredFieldsReader struct {
	fdx, fdt store.IndexInput
	numDocs  int32
}

// OpenStoredFieldsReader opens "<segment>.fdx"/"<segment>.fdt".
func OpenStoredFieldsReader(dir store.Directory, segment string, numDocs int32) (*StoredFieldsReader, error) {
	fdx, err := dir.OpenInput(segment + ".fdx")
	if err != nil {
		return nil, err
	}
	fdt, err := dir.OpenInput(segment + ".fdt")
	if err != nil {
		fdx.Close()
		return nil, err
	}
	return &StoredFieldsReader{fdx: fdx, fdt: fdt, numDocs: numDocs}, nil
}

// Close releases both file handles.
func (r *StoredFieldsReader) Close() error {
	if err := r.fdx.Close(); err != nil {
		r.fdt.Close()
		return err
	}
	return r.fdt.Close()
}

// Document reads back the stored fields of local doc id.
func (r *StoredFieldsReader) Document(localID int32) ([]StoredField, error) {
	if localID < 0 || localID >= r.numDocs {
		return nil, fmt.Errorf("%w: doc id %d out of range [0,%d)", ErrInvalidArgument, localID, r.numDocs)
	}
	if err := r.fdx.Seek(int64(localID) * 8); err != nil {
		return nil, err
	}
	pointer, err := readUint64(r.fdx)
	if err != nil {
		return nil, err
	}
	if err := r.fdt.Seek(int64(pointer)); err != nil {
		return nil, err
	}
	count, err := codec.ReadVInt(r.fdt)
	if err != nil {
		return nil, fmt.Errorf("%w: reading stored field count: %v", ErrCorruptIndex, err)
	}
	fields := make([]StoredField, count)
	for i := range fields {
		fieldNumber, err := codec.ReadVInt(r.fdt)
		if err != nil {
			return nil, fmt.Errorf("%w: reading stored field %d: %v", ErrCorruptIndex, i, err)
		}
		bits, err := r.fdt.ReadByte()
		if err != nil {
			return nil, err
		}
		value, err := codec.ReadString(r.fdt, r.fdt.Length()-r.fdt.Tell())
		if err != nil {
			return nil, fmt.Errorf("%w: reading stored field %d value: %v", ErrCorruptIndex, i, err)
		}
		fields[i] = StoredField{FieldNumber: int32(fieldNumber), Value: value, Binary: bits&1 != 0}
	}
	return fields, nil
}

// ToDocument converts a segment's stored record back into a document.Document
// using the segment's field info table to resolve names.
func ToDocument(fields []StoredField, fi *FieldInfos) *document.Document {
	doc := &document.Document{}
	for _, f := range fields {
		info, ok := fi.ByNumber(f.FieldNumber)
		name := fmt.Sprintf("field%d", f.FieldNumber)
		if ok {
			name = info.Name
		}
		doc.Add(document.Field{
			Name:  name,
			Value: f.Value,
			Flags: document.Flags{Stored: true, Binary: f.Binary},
		})
	}
	return doc
}
