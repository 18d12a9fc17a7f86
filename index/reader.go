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
	"sort"

	"github.com/lucego/lucego/document"
	"github.com/lucego/lucego/store"
)

// Reader is a read-only, snapshot-isolated view of the index at one
// generation (spec.md §4.7, §5 "a reader observes neither later additions
// nor later deletions"). Multiple readers may share the same underlying
// segment files; opening a Reader never requires write.lock.
type Reader struct {
	dir        store.Directory
	generation int64
	segments   []*Segment
	bases      []int32 // global doc id of segment i's local doc 0
	maxDoc     int32
}

// OpenReader recovers the current generation (spec.md §4.7 (a)(b)(c): try
// segments.gen, fall back to directory listing) and opens every segment
// it references.
func OpenReader(dir store.Directory) (*Reader, error) {
	c, err := RecoverGeneration(dir)
	if err != nil {
		return nil, err
	}
	return openReaderAt(dir, c)
}

func openReaderAt(dir store.Directory, c Commit) (*Reader, error) {
	r := &Reader{dir: dir, generation: c.Generation}
	var base int32
	for _, si := range c.Segments {
		seg, err := OpenSegment(dir, si)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.segments = append(r.segments, seg)
		r.bases = append(r.bases, base)
		base += seg.MaxDoc()
	}
	r.maxDoc = base
	return r, nil
}

// Generation returns the commit generation this reader is pinned to.
func (r *Reader) Generation() int64 { return r.generation }

// MaxDoc returns the total number of global doc ids, live or deleted.
func (r *Reader) MaxDoc() int32 { return r.maxDoc }

// NumDocs returns the number of live documents across all segments.
func (r *Reader) NumDocs() int32 {
	var n int32
	for _, seg := range r.segments {
		n += seg.NumDocs()
	}
	return n
}

// HasDeletions reports whether any segment carries a deletion.
func (r *Reader) HasDeletions() bool {
	for _, seg := range r.segments {
		if seg.HasDeletions() {
			return true
		}
	}
	return false
}

// resolve maps a global doc id to its owning segment and local id.
func (r *Reader) resolve(globalID int32) (*Segment, int32, error) {
	if globalID < 0 || globalID >= r.maxDoc {
		return nil, 0, fmt.Errorf("%w: doc id %d out of range [0,%d)", ErrInvalidArgument, globalID, r.maxDoc)
	}
	for i, seg := range r.segments {
		if globalID < r.bases[i]+seg.MaxDoc() {
			return seg, globalID - r.bases[i], nil
		}
	}
	return nil, 0, fmt.Errorf("%w: doc id %d not resolved", ErrInvalidArgument, globalID)
}

// Document returns the stored fields of a global doc id.
func (r *Reader) Document(globalID int32) (*document.Document, error) {
	seg, local, err := r.resolve(globalID)
	if err != nil {
		return nil, err
	}
	return seg.Document(local)
}

// IsDeleted reports whether globalID is marked deleted as of this
// reader's snapshot.
func (r *Reader) IsDeleted(globalID int32) (bool, error) {
	seg, local, err := r.resolve(globalID)
	if err != nil {
		return false, err
	}
	return seg.IsDeleted(local), nil
}

// Norm returns the length-normalization byte for (globalID, fieldName).
func (r *Reader) Norm(globalID int32, fieldName string) (byte, error) {
	seg, local, err := r.resolve(globalID)
	if err != nil {
		return 0, err
	}
	info, ok := seg.FieldInfos().ByName(fieldName)
	if !ok {
		return 0, fmt.Errorf("%w: unknown field %q", ErrInvalidArgument, fieldName)
	}
	return seg.Norm(local, info.Number)
}

// GetFieldNames returns every field name known to any segment; if
// indexedOnly, only indexed fields are included.
func (r *Reader) GetFieldNames(indexedOnly bool) []string {
	seen := make(map[string]bool)
	var names []string
	for _, seg := range r.segments {
		for _, n := range seg.FieldInfos().Names(indexedOnly) {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// DocFreq returns the index-wide document frequency of (field, text).
func (r *Reader) DocFreq(field, text string) (int32, error) {
	var total int32
	for _, seg := range r.segments {
		info, ok := seg.FieldInfos().ByName(field)
		if !ok {
			continue
		}
		df, found, err := seg.DocFreq(info.Number, text)
		if err != nil {
			return 0, err
		}
		if found {
			total += df
		}
	}
	return total, nil
}

// TermDoc is one (globalDocID, freq) pair from an index-wide postings
// scan, used by termDocs/termFreqs (spec.md §6.3).
type TermDoc struct {
	DocID int32
	Freq  int32
}

// TermDocs returns every live posting for (field, text) across all
// segments, in ascending global doc id order.
func (r *Reader) TermDocs(field, text string) ([]TermDoc, error) {
	var out []TermDoc
	for i, seg := range r.segments {
		info, ok := seg.FieldInfos().ByName(field)
		if !ok {
			continue
		}
		pe, err := seg.Postings(info.Number, text, false)
		if err != nil {
			return nil, err
		}
		if pe == nil {
			continue
		}
		for {
			ok, err := pe.NextDoc()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			out = append(out, TermDoc{DocID: r.bases[i] + pe.DocID(), Freq: pe.Freq()})
		}
	}
	return out, nil
}

// TermPositionsEntry pairs a global doc id with its position list for one
// term.
type TermPositionsEntry struct {
	DocID     int32
	Positions []int32
}

// TermPositions returns every live occurrence of (field, text) with full
// position lists, across all segments, in ascending global doc id order.
func (r *Reader) TermPositions(field, text string) ([]TermPositionsEntry, error) {
	var out []TermPositionsEntry
	for i, seg := range r.segments {
		info, ok := seg.FieldInfos().ByName(field)
		if !ok {
			continue
		}
		pe, err := seg.Postings(info.Number, text, false)
		if err != nil {
			return nil, err
		}
		if pe == nil {
			continue
		}
		for {
			ok, err := pe.NextDoc()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			positions, err := pe.Positions()
			if err != nil {
				return nil, err
			}
			out = append(out, TermPositionsEntry{DocID: r.bases[i] + pe.DocID(), Positions: positions})
		}
	}
	return out, nil
}

// FieldTerms returns every distinct indexed term text for fieldName
// across all segments, in ascending sort order (used by query rewriting
// to expand Range/Fuzzy/Wildcard queries against the live term
// dictionary, spec.md §4.8).
func (r *Reader) FieldTerms(fieldName string) ([]string, error) {
	seen := make(map[string]bool)
	var terms []string
	for _, seg := range r.segments {
		info, ok := seg.FieldInfos().ByName(fieldName)
		if !ok {
			continue
		}
		cur := seg.SeekCursor(info.Number, "")
		for {
			ok, err := cur.Next()
			if err != nil {
				cur.Close()
				return nil, err
			}
			if ok && cur.Field() < info.Number {
				continue
			}
			if !ok || cur.Field() != info.Number {
				break
			}
			if !seen[cur.Term()] {
				seen[cur.Term()] = true
				terms = append(terms, cur.Term())
			}
		}
		cur.Close()
	}
	sort.Strings(terms)
	return terms, nil
}

// Segments exposes the per-segment handles and their global base offsets
// for the search package's scorer, which must score within one segment's
// norms at a time.
func (r *Reader) Segments() ([]*Segment, []int32) { return r.segments, r.bases }

// Close releases every segment file handle.
func (r *Reader) Close() error {
	var firstErr error
	for _, seg := range r.segments {
		if err := seg.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
