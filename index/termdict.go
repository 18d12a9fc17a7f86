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

	"github.com/lucego/lucego/codec"
	"github.com/lucego/lucego/store"
)

// DefaultIndexInterval is the sampling rate of the .tii index: every
// indexInterval-th .tis entry gets a .tii entry (spec.md §4.3).
const DefaultIndexInterval = 128

// DefaultSkipInterval is the spacing of embedded postings skip points
// (spec.md §4.4).
const DefaultSkipInterval = 16

// TermInfo is a term dictionary entry: docFreq and offsets into the
// postings streams (spec.md §3, §4.3).
type TermInfo struct {
	DocFreq     int32
	FreqPointer int64
	ProxPointer int64
	SkipDelta   int64
}

// Term is the (field, text) pair a query or dictionary entry names.
type Term struct {
	Field string
	Text  string
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// TermDictWriter writes the .tis (term infos) and .tii (sampled index)
// files. Entries must be added in strictly increasing (fieldNumber, term)
// order (spec.md invariant 1).
type TermDictWriter struct {
	tis, tii                    store.IndexOutput
	indexInterval, skipInterval int32
	count                       int32
	lastField                   int32
	lastTerm                    string
	lastFreqPointer             int64
	lastProxPointer             int64
}

// NewTermDictWriter writes the .tis header and returns a writer ready for
// Add calls.
func NewTermDictWriter(tis, tii store.IndexOutput, indexInterval, skipInterval int32) (*TermDictWriter, error) {
	if err := codec.WriteVInt(tis, uint32(indexInterval)); err != nil {
		return nil, err
	}
	if err := codec.WriteVInt(tis, uint32(skipInterval)); err != nil {
		return nil, err
	}
	return &TermDictWriter{
		tis: tis, tii: tii,
		indexInterval: indexInterval, skipInterval: skipInterval,
		lastField: -1,
	}, nil
}

// Add appends one (fieldNumber, term) -> TermInfo entry.
func (w *TermDictWriter) Add(fieldNumber int32, term string, info TermInfo) error {
	tisOffset := w.tis.Tell()
	isIndexed := w.count%w.indexInterval == 0

	prefixLen := 0
	if !isIndexed && fieldNumber == w.lastField {
		prefixLen = commonPrefixLen(w.lastTerm, term)
	}
	suffix := term[prefixLen:]

	if err := codec.WriteVInt(w.tis, uint32(fieldNumber)); err != nil {
		return err
	}
	if err := codec.WriteVInt(w.tis, uint32(prefixLen)); err != nil {
		return err
	}
	if err := codec.WriteString(w.tis, suffix); err != nil {
		return err
	}
	if err := codec.WriteVInt(w.tis, uint32(info.DocFreq)); err != nil {
		return err
	}
	if err := codec.WriteVLong(w.tis, uint64(info.FreqPointer-w.lastFreqPointer)); err != nil {
		return err
	}
	if err := codec.WriteVLong(w.tis, uint64(info.ProxPointer-w.lastProxPointer)); err != nil {
		return err
	}
	w.lastFreqPointer = info.FreqPointer
	w.lastProxPointer = info.ProxPointer
	if info.DocFreq >= w.skipInterval {
		if err := codec.WriteVInt(w.tis, uint32(info.SkipDelta)); err != nil {
			return err
		}
	}

	if isIndexed {
		if err := codec.WriteVInt(w.tii, uint32(fieldNumber)); err != nil {
			return err
		}
		if err := codec.WriteString(w.tii, term); err != nil {
			return err
		}
		if err := codec.WriteVLong(w.tii, uint64(tisOffset)); err != nil {
			return err
		}
		if err := codec.WriteVLong(w.tii, uint64(info.FreqPointer)); err != nil {
			return err
		}
		if err := codec.WriteVLong(w.tii, uint64(info.ProxPointer)); err != nil {
			return err
		}
	}

	w.lastField = fieldNumber
	w.lastTerm = term
	w.count++
	return nil
}

// Count returns the number of entries written so far.
func (w *TermDictWriter) Count() int32 { return w.count }

// Close closes both output files.
func (w *TermDictWriter) Close() error {
	if err := w.tis.Close(); err != nil {
		w.tii.Close()
		return err
	}
	return w.tii.Close()
}

// dictIndexEntry is one sampled .tii entry.
type dictIndexEntry struct {
	field       int32
	term        string
	tisOffset   int64
	freqPointer int64
	proxPointer int64
}

func (e dictIndexEntry) less(field int32, term string) bool {
	if e.field != field {
		return e.field < field
	}
	return e.term < term
}

// TermDictReader opens a segment's .tis/.tii pair and holds the sampled
// index in memory; .tis stays open (cloned per cursor) for on-demand
// scanning.
type TermDictReader struct {
	tis           store.IndexInput
	indexInterval int32
	skipInterval  int32
	entries       []dictIndexEntry
	tisStart      int64 // offset right after the .tis header
}

// OpenTermDictReader opens "<segment>.tis" and "<segment>.tii".
func OpenTermDictReader(dir store.Directory, segment string) (*TermDictReader, error) {
	tis, err := dir.OpenInput(segment + ".tis")
	if err != nil {
		return nil, err
	}
	indexInterval, err := codec.ReadVInt(tis)
	if err != nil {
		tis.Close()
		return nil, fmt.Errorf("%w: reading .tis header: %v", ErrCorruptIndex, err)
	}
	skipInterval, err := codec.ReadVInt(tis)
	if err != nil {
		tis.Close()
		return nil, fmt.Errorf("%w: reading .tis header: %v", ErrCorruptIndex, err)
	}
	tisStart := tis.Tell()

	tii, err := dir.OpenInput(segment + ".tii")
	if err != nil {
		tis.Close()
		return nil, err
	}
	defer tii.Close()

	var entries []dictIndexEntry
	for tii.Tell() < tii.Length() {
		field, err := codec.ReadVInt(tii)
		if err != nil {
			tis.Close()
			return nil, fmt.Errorf("%w: reading .tii: %v", ErrCorruptIndex, err)
		}
		term, err := codec.ReadString(tii, tii.Length()-tii.Tell())
		if err != nil {
			tis.Close()
			return nil, fmt.Errorf("%w: reading .tii: %v", ErrCorruptIndex, err)
		}
		tisOffset, err := codec.ReadVLong(tii)
		if err != nil {
			tis.Close()
			return nil, fmt.Errorf("%w: reading .tii: %v", ErrCorruptIndex, err)
		}
		freqPointer, err := codec.ReadVLong(tii)
		if err != nil {
			tis.Close()
			return nil, fmt.Errorf("%w: reading .tii: %v", ErrCorruptIndex, err)
		}
		proxPointer, err := codec.ReadVLong(tii)
		if err != nil {
			tis.Close()
			return nil, fmt.Errorf("%w: reading .tii: %v", ErrCorruptIndex, err)
		}
		entries = append(entries, dictIndexEntry{
			field: int32(field), term: term, tisOffset: int64(tisOffset),
			freqPointer: int64(freqPointer), proxPointer: int64(proxPointer),
		})
	}

	return &TermDictReader{
		tis: tis, indexInterval: int32(indexInterval), skipInterval: int32(skipInterval),
		entries: entries, tisStart: tisStart,
	}, nil
}

// Close releases the underlying .tis handle.
func (r *TermDictReader) Close() error { return r.tis.Close() }

// SkipInterval returns the postings skip spacing recorded in this
// segment's .tis header (needed to know whether a given TermInfo carries
// a skip list).
func (r *TermDictReader) SkipInterval() int32 { return r.skipInterval }

// Cursor is a restartable, finite, non-copyable dictionary cursor
// producing (field, term, TermInfo) triples in ascending (fieldOrd, term)
// order; it owns an independent clone of the .tis file handle (spec.md §9
// "coroutine-like terms stream").
type Cursor struct {
	tis            store.IndexInput
	skipInterval   int32
	field          int32
	term           string
	info           TermInfo
	lastField      int32
	lastTerm       string
	lastFreq       int64
	lastProx       int64
	seeded         bool
	seedFreq       int64
	seedProx       int64
	exhausted      bool
}

// Cursor returns a fresh cursor positioned before the first entry.
func (r *TermDictReader) Cursor() *Cursor {
	c := &Cursor{
		tis:          r.tis.Clone(),
		skipInterval: r.skipInterval,
		lastField:    -1,
	}
	c.tis.Seek(r.tisStart)
	return c
}

// Next advances to the next entry in dictionary order, returning false at
// end of dictionary.
func (c *Cursor) Next() (bool, error) {
	if c.exhausted {
		return false, nil
	}
	if c.tis.Tell() >= c.tis.Length() {
		c.exhausted = true
		return false, nil
	}

	field, err := codec.ReadVInt(c.tis)
	if err != nil {
		return false, err
	}
	prefixLen, err := codec.ReadVInt(c.tis)
	if err != nil {
		return false, err
	}
	suffix, err := codec.ReadString(c.tis, c.tis.Length()-c.tis.Tell())
	if err != nil {
		return false, err
	}
	docFreq, err := codec.ReadVInt(c.tis)
	if err != nil {
		return false, err
	}
	freqDelta, err := codec.ReadVLong(c.tis)
	if err != nil {
		return false, err
	}
	proxDelta, err := codec.ReadVLong(c.tis)
	if err != nil {
		return false, err
	}
	var skipDelta int64
	if int32(docFreq) >= c.skipInterval {
		sd, err := codec.ReadVInt(c.tis)
		if err != nil {
			return false, err
		}
		skipDelta = int64(sd)
	}

	if int(prefixLen) > len(c.lastTerm) {
		return false, fmt.Errorf("%w: term prefix length %d exceeds previous term length %d", ErrCorruptIndex, prefixLen, len(c.lastTerm))
	}
	term := c.lastTerm[:prefixLen] + suffix

	var freqPointer, proxPointer int64
	if c.seeded {
		freqPointer, proxPointer = c.seedFreq, c.seedProx
		c.seeded = false
	} else {
		freqPointer = c.lastFreq + int64(freqDelta)
		proxPointer = c.lastProx + int64(proxDelta)
	}

	if c.lastField != -1 && int32(field) < c.lastField {
		return false, fmt.Errorf("%w: field ordinal decreased from %d to %d", ErrCorruptIndex, c.lastField, field)
	}

	c.field = int32(field)
	c.term = term
	c.info = TermInfo{DocFreq: int32(docFreq), FreqPointer: freqPointer, ProxPointer: proxPointer, SkipDelta: skipDelta}
	c.lastField = int32(field)
	c.lastTerm = term
	c.lastFreq = freqPointer
	c.lastProx = proxPointer
	return true, nil
}

// Field returns the field ordinal of the current entry.
func (c *Cursor) Field() int32 { return c.field }

// Term returns the term text of the current entry.
func (c *Cursor) Term() string { return c.term }

// Info returns the TermInfo of the current entry.
func (c *Cursor) Info() TermInfo { return c.info }

// Close releases the cursor's .tis handle.
func (c *Cursor) Close() error { return c.tis.Close() }

// Seek returns a cursor positioned at the greatest sampled .tii entry
// below (field, term), or at the start of the dictionary if there is none
// (spec.md §4.3: binary-search the .tii index, then scan the .tis block
// forward). Next() may therefore return entries smaller than the target;
// callers keep calling it until the key reaches (field, term).
func (r *TermDictReader) Seek(field int32, term string) *Cursor {
	c := &Cursor{tis: r.tis.Clone(), skipInterval: r.skipInterval, lastField: -1}

	i := sort.Search(len(r.entries), func(i int) bool {
		return !r.entries[i].less(field, term)
	})
	// i is the first entry with key >= target; we want to scan forward
	// from the entry just before it (the greatest indexed term < target),
	// or from the very start if target precedes every indexed entry.
	if i > 0 {
		i--
	} else {
		c.tis.Seek(r.tisStart)
		return c
	}
	e := r.entries[i]
	c.tis.Seek(e.tisOffset)
	c.seeded = true
	c.seedFreq = e.freqPointer
	c.seedProx = e.proxPointer
	return c
}

// Get looks up the exact TermInfo for (field, term), scanning forward
// from the nearest .tii sample.
func (r *TermDictReader) Get(field int32, term string) (TermInfo, bool, error) {
	c := r.Seek(field, term)
	defer c.Close()
	for {
		ok, err := c.Next()
		if err != nil {
			return TermInfo{}, false, err
		}
		if !ok {
			return TermInfo{}, false, nil
		}
		if c.field == field && c.term == term {
			return c.info, true, nil
		}
		if c.field > field || (c.field == field && c.term > term) {
			return TermInfo{}, false, nil
		}
	}
}
