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
	"bytes"
	"fmt"

	"github.com/lucego/lucego/codec"
	"github.com/lucego/lucego/store"
)

// PostingsWriter appends delta-coded postings to the frequency (.frq) and
// position (.prx) streams (spec.md §4.4), embedding a skip list in .frq
// every skipInterval postings.
type PostingsWriter struct {
	frq, prx     store.IndexOutput
	skipInterval int32

	termFreqStart int64
	termProxStart int64
	lastDocID     int32
	postingCount  int32

	skipBuf          bytes.Buffer
	lastSkipDocID    int32
	lastSkipFreqPtr  int64
	lastSkipProxPtr  int64
}

// NewPostingsWriter wraps the two postings output files.
func NewPostingsWriter(frq, prx store.IndexOutput, skipInterval int32) *PostingsWriter {
	return &PostingsWriter{frq: frq, prx: prx, skipInterval: skipInterval}
}

// StartTerm begins a new term's posting list, returning the freq/prox
// file pointers to record in its TermInfo.
func (w *PostingsWriter) StartTerm() (freqPointer, proxPointer int64) {
	w.termFreqStart = w.frq.Tell()
	w.termProxStart = w.prx.Tell()
	w.lastDocID = 0
	w.postingCount = 0
	w.skipBuf.Reset()
	w.lastSkipDocID = 0
	w.lastSkipFreqPtr = w.termFreqStart
	w.lastSkipProxPtr = w.termProxStart
	return w.termFreqStart, w.termProxStart
}

// AddPosting appends one (docID, freq, positions) record. docID must be
// strictly greater than the previous call's docID within this term
// (spec.md §3 "Posting" invariant).
func (w *PostingsWriter) AddPosting(docID int32, freq int32, positions []int32) error {
	docDelta := uint32(docID - w.lastDocID)
	w.lastDocID = docID

	if freq == 1 {
		if err := codec.WriteVInt(w.frq, docDelta<<1|1); err != nil {
			return err
		}
	} else {
		if err := codec.WriteVInt(w.frq, docDelta<<1); err != nil {
			return err
		}
		if err := codec.WriteVInt(w.frq, uint32(freq)); err != nil {
			return err
		}
	}

	prev := int32(0)
	for _, p := range positions {
		if err := codec.WriteVInt(w.prx, uint32(p-prev)); err != nil {
			return err
		}
		prev = p
	}

	w.postingCount++
	if w.postingCount%w.skipInterval == 0 {
		freqPtr := w.frq.Tell()
		proxPtr := w.prx.Tell()
		if err := codec.WriteVInt(&w.skipBuf, uint32(docID-w.lastSkipDocID)); err != nil {
			return err
		}
		if err := codec.WriteVLong(&w.skipBuf, uint64(freqPtr-w.lastSkipFreqPtr)); err != nil {
			return err
		}
		if err := codec.WriteVLong(&w.skipBuf, uint64(proxPtr-w.lastSkipProxPtr)); err != nil {
			return err
		}
		w.lastSkipDocID = docID
		w.lastSkipFreqPtr = freqPtr
		w.lastSkipProxPtr = proxPtr
	}
	return nil
}

// FinishTerm flushes the accumulated skip list (if the term's docFreq
// warrants one) immediately after the term's own postings in .frq, and
// returns the skipDelta to store in the term's TermInfo (an offset
// relative to freqPointer, per spec.md §4.4).
func (w *PostingsWriter) FinishTerm(docFreq int32) (skipDelta int64, err error) {
	if docFreq >= w.skipInterval && w.skipBuf.Len() > 0 {
		skipDelta = w.frq.Tell() - w.termFreqStart
		if _, err := w.frq.Write(w.skipBuf.Bytes()); err != nil {
			return 0, err
		}
	}
	return skipDelta, nil
}

// skipEntry is one decoded embedded skip-list record.
type skipEntry struct {
	docID       int32
	freqPointer int64
	proxPointer int64
}

// PostingsEnum iterates the (docID, freq, positions) postings of one term,
// optionally silently dropping docs present in a deletion bitmap.
type PostingsEnum struct {
	frq, prx store.IndexInput
	info     TermInfo
	deleted  *DeletionBitmap

	docID             int32
	freq              int32
	count             int32
	positionsConsumed bool

	skipInterval int32
	skipLoaded   bool
	skip         []skipEntry
}

// NewPostingsEnum opens a postings cursor over clones of frq/prx,
// positioned at the start of the term's posting list. deleted may be nil
// (no filtering, used by the merger, which wants raw postings).
func NewPostingsEnum(frq, prx store.IndexInput, info TermInfo, skipInterval int32, deleted *DeletionBitmap) (*PostingsEnum, error) {
	frqClone := frq.Clone()
	prxClone := prx.Clone()
	if err := frqClone.Seek(info.FreqPointer); err != nil {
		return nil, err
	}
	if err := prxClone.Seek(info.ProxPointer); err != nil {
		return nil, err
	}
	return &PostingsEnum{
		frq: frqClone, prx: prxClone, info: info, deleted: deleted,
		skipInterval: skipInterval, positionsConsumed: true,
	}, nil
}

// NextDoc advances to the next live document, returning false when the
// posting list is exhausted.
func (p *PostingsEnum) NextDoc() (bool, error) {
	for {
		ok, err := p.nextRaw()
		if err != nil || !ok {
			return ok, err
		}
		if p.deleted == nil || !p.deleted.Get(p.docID) {
			return true, nil
		}
	}
}

func (p *PostingsEnum) nextRaw() (bool, error) {
	if !p.positionsConsumed {
		if err := p.skipPositions(); err != nil {
			return false, err
		}
	}
	if p.count >= p.info.DocFreq {
		return false, nil
	}
	code, err := codec.ReadVInt(p.frq)
	if err != nil {
		return false, err
	}
	p.docID += int32(code >> 1)
	if code&1 != 0 {
		p.freq = 1
	} else {
		f, err := codec.ReadVInt(p.frq)
		if err != nil {
			return false, err
		}
		p.freq = int32(f)
	}
	p.count++
	p.positionsConsumed = false
	return true, nil
}

func (p *PostingsEnum) skipPositions() error {
	for i := int32(0); i < p.freq; i++ {
		if _, err := codec.ReadVInt(p.prx); err != nil {
			return err
		}
	}
	p.positionsConsumed = true
	return nil
}

// DocID returns the current document's global-within-segment local id.
func (p *PostingsEnum) DocID() int32 { return p.docID }

// Freq returns the current document's term frequency.
func (p *PostingsEnum) Freq() int32 { return p.freq }

// Positions decodes and returns the current document's position list.
// Each document's positions may only be read once between NextDoc calls.
func (p *PostingsEnum) Positions() ([]int32, error) {
	positions := make([]int32, p.freq)
	pos := int32(0)
	for i := range positions {
		d, err := codec.ReadVInt(p.prx)
		if err != nil {
			return nil, err
		}
		pos += int32(d)
		positions[i] = pos
	}
	p.positionsConsumed = true
	return positions, nil
}

func (p *PostingsEnum) loadSkipList() error {
	if p.skipLoaded {
		return nil
	}
	p.skipLoaded = true
	if p.info.SkipDelta == 0 || p.info.DocFreq < p.skipInterval {
		return nil
	}
	skipIn := p.frq.Clone()
	defer skipIn.Close()
	if err := skipIn.Seek(p.info.FreqPointer + p.info.SkipDelta); err != nil {
		return err
	}
	numSkips := p.info.DocFreq / p.skipInterval
	docID := int32(0)
	freqPtr := p.info.FreqPointer
	proxPtr := p.info.ProxPointer
	for i := int32(0); i < numSkips; i++ {
		d, err := codec.ReadVInt(skipIn)
		if err != nil {
			return err
		}
		fd, err := codec.ReadVLong(skipIn)
		if err != nil {
			return err
		}
		pd, err := codec.ReadVLong(skipIn)
		if err != nil {
			return err
		}
		docID += int32(d)
		freqPtr += int64(fd)
		proxPtr += int64(pd)
		p.skip = append(p.skip, skipEntry{docID: docID, freqPointer: freqPtr, proxPointer: proxPtr})
	}
	return nil
}

// SkipTo advances (using the embedded skip list when available) to the
// first live document with docID >= target, returning false if none
// exists.
func (p *PostingsEnum) SkipTo(target int32) (bool, error) {
	if p.docID >= target && p.count > 0 {
		return p.deleted == nil || !p.deleted.Get(p.docID), nil
	}
	if err := p.loadSkipList(); err != nil {
		return false, err
	}
	best := -1
	for i, e := range p.skip {
		if e.docID < target {
			best = i
		} else {
			break
		}
	}
	if best >= 0 {
		e := p.skip[best]
		if err := p.frq.Seek(e.freqPointer); err != nil {
			return false, err
		}
		if err := p.prx.Seek(e.proxPointer); err != nil {
			return false, err
		}
		p.docID = e.docID
		p.count = int32(best+1) * p.skipInterval
		p.positionsConsumed = true
		p.freq = 0
	}
	for {
		ok, err := p.NextDoc()
		if err != nil || !ok {
			return false, err
		}
		if p.docID >= target {
			return true, nil
		}
	}
}

// postingsFileNames returns the shared ".frq"/".prx" names for a segment.
func postingsFileNames(segment string) (frq, prx string) {
	return fmt.Sprintf("%s.frq", segment), fmt.Sprintf("%s.prx", segment)
}
