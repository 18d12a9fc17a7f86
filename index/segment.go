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
	"sync"

	"github.com/lucego/lucego/document"
	"github.com/lucego/lucego/store"
)

// SegmentInfo is one segment's entry in a segments_<gen> file (spec.md
// §4.7): its name, document count, and deletion generation.
type SegmentInfo struct {
	Name     string
	DocCount int32
	DelGen   int64 // -1 = no deletions, 0 = pre-2.1, >0 = generation
}

// Segment is an open handle onto one immutable segment's files: field
// info, term dictionary, the two shared postings streams, stored fields,
// per-field norms (loaded lazily), and its deletion bitmap (spec.md §3
// "Segment", §4.5).
type Segment struct {
	dir  store.Directory
	info SegmentInfo

	fieldInfos   *FieldInfos
	termDict     *TermDictReader
	frq, prx     store.IndexInput
	storedFields *StoredFieldsReader

	mu      sync.Mutex
	norms   map[int32][]byte
	deleted *DeletionBitmap
}

// OpenSegment opens every file belonging to one segment.
func OpenSegment(dir store.Directory, info SegmentInfo) (*Segment, error) {
	fnmIn, err := dir.OpenInput(info.Name + ".fnm")
	if err != nil {
		return nil, err
	}
	fieldInfos, err := ReadFieldInfos(fnmIn)
	fnmIn.Close()
	if err != nil {
		return nil, err
	}

	termDict, err := OpenTermDictReader(dir, info.Name)
	if err != nil {
		return nil, err
	}

	frqName, prxName := postingsFileNames(info.Name)
	frq, err := dir.OpenInput(frqName)
	if err != nil {
		termDict.Close()
		return nil, err
	}
	prx, err := dir.OpenInput(prxName)
	if err != nil {
		frq.Close()
		termDict.Close()
		return nil, err
	}

	storedFields, err := OpenStoredFieldsReader(dir, info.Name, info.DocCount)
	if err != nil {
		frq.Close()
		prx.Close()
		termDict.Close()
		return nil, err
	}

	seg := &Segment{
		dir: dir, info: info,
		fieldInfos: fieldInfos, termDict: termDict,
		frq: frq, prx: prx, storedFields: storedFields,
		norms: make(map[int32][]byte),
	}

	if info.DelGen >= 0 {
		deleted, err := ReadDeletions(dir, info.Name, info.DelGen)
		if err != nil {
			seg.Close()
			return nil, err
		}
		seg.deleted = deleted
	}
	return seg, nil
}

// Name returns the segment's file-name prefix.
func (s *Segment) Name() string { return s.info.Name }

// MaxDoc returns the number of local doc ids ever assigned, live or dead.
func (s *Segment) MaxDoc() int32 { return s.info.DocCount }

// NumDocs returns the number of live (non-deleted) documents.
func (s *Segment) NumDocs() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info.DocCount - int32(s.deleted.Count())
}

// HasDeletions reports whether any document in this segment is deleted.
func (s *Segment) HasDeletions() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.deleted.IsEmpty()
}

// Deletions returns a snapshot of the current deletion bitmap (never nil).
func (s *Segment) Deletions() *DeletionBitmap {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted == nil {
		return NewDeletionBitmap()
	}
	return s.deleted.Clone()
}

// FieldInfos returns the segment's field info table.
func (s *Segment) FieldInfos() *FieldInfos { return s.fieldInfos }

// TermsCursor returns a fresh terms-stream cursor over the whole
// dictionary in sort order (spec.md §4.5).
func (s *Segment) TermsCursor() *Cursor { return s.termDict.Cursor() }

// SeekCursor returns a cursor positioned at the nearest sampled entry
// before (field, term); see TermDictReader.Seek. Next() may return smaller
// entries before reaching the first entry with key >= (field, term).
func (s *Segment) SeekCursor(field int32, term string) *Cursor { return s.termDict.Seek(field, term) }

// DocFreq looks up the document frequency of one term, if present.
func (s *Segment) DocFreq(field int32, term string) (int32, bool, error) {
	info, ok, err := s.termDict.Get(field, term)
	if err != nil || !ok {
		return 0, ok, err
	}
	return info.DocFreq, true, nil
}

// Postings opens a postings-stream for one term (spec.md §4.5). When
// includeDeleted is false (the default for search), deleted docs are
// silently skipped. The merger reads raw postings through PostingsForInfo
// instead, since it performs its own id remap and deletion drop.
func (s *Segment) Postings(field int32, term string, includeDeleted bool) (*PostingsEnum, error) {
	info, ok, err := s.termDict.Get(field, term)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var deleted *DeletionBitmap
	if !includeDeleted {
		deleted = s.Deletions()
		if deleted.IsEmpty() {
			deleted = nil
		}
	}
	return NewPostingsEnum(s.frq, s.prx, info, s.termDict.SkipInterval(), deleted)
}

// PostingsForInfo opens a postings-stream directly from a TermInfo
// obtained from a terms-stream cursor (used by the merger, which already
// has the cursor positioned and does not want a second dictionary
// lookup).
func (s *Segment) PostingsForInfo(info TermInfo) (*PostingsEnum, error) {
	return NewPostingsEnum(s.frq, s.prx, info, s.termDict.SkipInterval(), nil)
}

// Norm returns the length-normalization byte for (localID, fieldNum),
// loading that field's norms file on first use.
func (s *Segment) Norm(localID int32, fieldNum int32) (byte, error) {
	s.mu.Lock()
	norms, ok := s.norms[fieldNum]
	s.mu.Unlock()
	if !ok {
		loaded, err := ReadNorms(s.dir, s.info.Name, fieldNum, s.info.DocCount)
		if err != nil {
			return 0, err
		}
		s.mu.Lock()
		s.norms[fieldNum] = loaded
		norms = loaded
		s.mu.Unlock()
	}
	if localID < 0 || int(localID) >= len(norms) {
		return 0, fmt.Errorf("%w: doc id %d out of range", ErrInvalidArgument, localID)
	}
	return norms[localID], nil
}

// Document reads back one local document's stored fields.
func (s *Segment) Document(localID int32) (*document.Document, error) {
	fields, err := s.storedFields.Document(localID)
	if err != nil {
		return nil, err
	}
	return ToDocument(fields, s.fieldInfos), nil
}

// Delete marks localID deleted in this segment's in-memory bitmap
// (writer-owned; not yet visible to any reader until committed).
func (s *Segment) Delete(localID int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted == nil {
		s.deleted = NewDeletionBitmap()
	}
	return s.deleted.Delete(localID)
}

// Undelete clears localID's in-memory deletion mark.
func (s *Segment) Undelete(localID int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted == nil {
		return false
	}
	return s.deleted.Undelete(localID)
}

// IsDeleted reports whether localID is currently marked deleted.
func (s *Segment) IsDeleted(localID int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleted.Get(localID)
}

// Close releases every open file handle.
func (s *Segment) Close() error {
	var firstErr error
	if s.frq != nil {
		if err := s.frq.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.prx != nil {
		if err := s.prx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.termDict != nil {
		if err := s.termDict.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.storedFields != nil {
		if err := s.storedFields.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
