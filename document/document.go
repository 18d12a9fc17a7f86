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

// Package document holds the data model a caller builds and hands to the
// index writer: an ordered list of named, flagged fields with no user key
// (the engine assigns a dense internal id per segment).
package document

// Flags controls how a Field is treated by indexing and storage.
type Flags struct {
	// Stored means the field's original value is kept verbatim and
	// returned by getDocument.
	Stored bool
	// Indexed means the field contributes terms to the inverted index.
	Indexed bool
	// Tokenized means the field's value is run through the analyzer
	// rather than indexed as a single atomic term (only meaningful when
	// Indexed is set).
	Tokenized bool
	// Binary means Value holds opaque bytes rather than text; binary
	// fields are never Indexed.
	Binary bool
	// StoreTermVector requests that per-document term frequency/position
	// information for this field be retained for downstream consumers
	// (e.g. highlighting); the core engine accepts the flag but does not
	// itself materialize a separate term-vector file.
	StoreTermVector bool
}

// Field is a single named value within a Document.
type Field struct {
	Name  string
	Value string
	Flags Flags
}

// NewTextField returns a Field that is indexed and tokenized, and stored
// when stored is true: the common case for free-text search fields.
func NewTextField(name, value string, stored bool) Field {
	return Field{
		Name:  name,
		Value: value,
		Flags: Flags{Stored: stored, Indexed: true, Tokenized: true},
	}
}

// NewKeywordField returns a Field indexed as a single atomic term (not
// tokenized), useful for ids, tags, and exact-match metadata.
func NewKeywordField(name, value string, stored bool) Field {
	return Field{
		Name:  name,
		Value: value,
		Flags: Flags{Stored: stored, Indexed: true, Tokenized: false},
	}
}

// NewStoredField returns a Field that is retained verbatim but not
// indexed at all.
func NewStoredField(name, value string) Field {
	return Field{
		Name:  name,
		Value: value,
		Flags: Flags{Stored: true},
	}
}

// Document is an ordered list of fields. Field names may repeat (a
// multi-valued field); each occurrence is indexed/stored independently.
type Document struct {
	Fields []Field
}

// Add appends f to the document and returns the document for chaining.
func (d *Document) Add(f Field) *Document {
	d.Fields = append(d.Fields, f)
	return d
}

// Get returns the value of the first field named name, and whether one
// was found.
func (d *Document) Get(name string) (string, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// GetAll returns the values of every field named name, in document order.
func (d *Document) GetAll(name string) []string {
	var values []string
	for _, f := range d.Fields {
		if f.Name == name {
			values = append(values, f.Value)
		}
	}
	return values
}
