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
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lucego/lucego/analysis"
	"github.com/lucego/lucego/document"
	"github.com/lucego/lucego/store"
)

// globalDocID names a buffered or committed document by (segment index
// into the writer's in-memory view, local id); deletes recorded before
// the referenced segment is committed are tracked as pending deletes
// keyed by the same pair once the segment exists.
type globalDocID struct {
	segment int
	local   int32
}

// Writer is the single-writer-per-directory commit engine (spec.md §4.7,
// §5): buffers documents in RAM, flushes them as a new segment past
// maxBufferedDocs, applies pending deletes, runs the merge policy, and
// commits a new segments_<gen> atomically.
type Writer struct {
	dir      store.Directory
	analyzer analysis.Analyzer
	log      *zap.Logger
	metrics  *Metrics

	lock store.Lock

	formatVersion int32
	mergePolicy   MergePolicy

	commit   Commit
	segments []*Segment // open handles for commit.Segments, parallel slice

	buffer          *SegmentBuilder
	pendingDeletes  map[globalDocID]bool // deletes not yet committed
	docCount        atomic.Int64
	deleteCount     atomic.Int64
}

// WriterOption configures a Writer at construction (functional-option
// constructor, matching the rest of this codebase's configuration style).
type WriterOption func(*Writer)

// WithAnalyzer overrides the default SimpleAnalyzer.
func WithAnalyzer(a analysis.Analyzer) WriterOption {
	return func(w *Writer) { w.analyzer = a }
}

// WithLogger overrides the default no-op logger.
func WithLogger(l *zap.Logger) WriterOption {
	return func(w *Writer) { w.log = l }
}

// WithMetrics overrides the default no-op Metrics, routing commit,
// optimize, and merge instrumentation through m instead.
func WithMetrics(m *Metrics) WriterOption {
	return func(w *Writer) { w.metrics = m }
}

// WithMergePolicy overrides the default merge policy.
func WithMergePolicy(p MergePolicy) WriterOption {
	return func(w *Writer) { w.mergePolicy = p }
}

// OpenWriter acquires write.lock and opens (or initializes) the index in
// dir for writing.
func OpenWriter(dir store.Directory, opts ...WriterOption) (*Writer, error) {
	lock, err := dir.AcquireLock("write.lock", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("opening writer: %w", err)
	}

	c, err := RecoverGeneration(dir)
	if err != nil {
		lock.Release()
		return nil, err
	}

	formatVersion := FormatVersion
	if c.Generation >= 0 {
		formatVersion = c.FormatVersion
	}
	w := &Writer{
		dir:            dir,
		analyzer:       analysis.SimpleAnalyzer{},
		log:            zap.NewNop(),
		metrics:        NewMetrics(nil),
		lock:           lock,
		formatVersion:  formatVersion,
		mergePolicy:    DefaultMergePolicy(),
		commit:         c,
		pendingDeletes: make(map[globalDocID]bool),
	}
	for _, o := range opts {
		o(w)
	}
	w.buffer = NewSegmentBuilder(w.analyzer)

	for _, si := range c.Segments {
		seg, err := OpenSegment(dir, si)
		if err != nil {
			w.Close()
			return nil, err
		}
		w.segments = append(w.segments, seg)
		w.docCount.Add(int64(seg.MaxDoc()))
		w.deleteCount.Add(seg.Deletions().Count())
	}
	return w, nil
}

// AddDocument buffers doc for the next flush.
func (w *Writer) AddDocument(doc *document.Document) {
	w.buffer.AddDocument(doc)
	w.docCount.Inc()
	if w.buffer.NumDocs() >= w.mergePolicy.MaxBufferedDocs {
		w.flushLocked()
	}
}

// flushLocked writes the in-memory buffer as a new segment, if non-empty.
func (w *Writer) flushLocked() {
	if w.buffer.NumDocs() == 0 {
		return
	}
	name := w.nextSegmentName()
	info, err := w.buffer.Build(w.dir, name, DefaultIndexInterval, DefaultSkipInterval)
	if err != nil {
		w.log.Error("flush failed", zap.String("segment", name), zap.Error(err))
		return
	}
	seg, err := OpenSegment(w.dir, info)
	if err != nil {
		w.log.Error("reopening flushed segment failed", zap.String("segment", name), zap.Error(err))
		return
	}
	w.segments = append(w.segments, seg)
	w.commit.Segments = append(w.commit.Segments, info)
	w.buffer = NewSegmentBuilder(w.analyzer)
}

func (w *Writer) nextSegmentName() string {
	n := w.commit.NameCounter
	w.commit.NameCounter++
	return fmt.Sprintf("_%s", encodeGen(int64(n)))
}

// Delete marks globalID deleted. globalID is the concatenation order of
// segments as they appear in the committed segments list, plus whatever
// has since been flushed in this writer (spec.md §3 "Lifecycle").
func (w *Writer) Delete(globalID int32) error {
	base := int32(0)
	for i, seg := range w.segments {
		if globalID < base+seg.MaxDoc() {
			local := globalID - base
			if seg.IsDeleted(local) {
				return nil
			}
			seg.Delete(local)
			w.pendingDeletes[globalDocID{segment: i, local: local}] = true
			w.deleteCount.Inc()
			return nil
		}
		base += seg.MaxDoc()
	}
	return fmt.Errorf("%w: doc id %d out of range [0,%d)", ErrInvalidArgument, globalID, base)
}

// UndeleteAll clears every delete recorded since the last commit; deletes
// belonging to a previously committed generation are untouched (spec.md
// §8 invariant 8).
func (w *Writer) UndeleteAll() {
	for gid := range w.pendingDeletes {
		w.segments[gid.segment].Undelete(gid.local)
		w.deleteCount.Dec()
	}
	w.pendingDeletes = make(map[globalDocID]bool)
}

// MaxDoc returns the total number of local ids ever assigned, including
// the unflushed buffer.
func (w *Writer) MaxDoc() int32 {
	var n int32
	for _, seg := range w.segments {
		n += seg.MaxDoc()
	}
	return n + w.buffer.NumDocs()
}

// NumDocs returns MaxDoc minus deleted documents.
func (w *Writer) NumDocs() int32 {
	var n int32
	for _, seg := range w.segments {
		n += seg.NumDocs()
	}
	return n + w.buffer.NumDocs()
}

// Commit runs the full commit protocol (spec.md §4.7 steps 2-6); the
// lock (step 1) is already held for the writer's lifetime.
func (w *Writer) Commit() error {
	start := time.Now()
	w.flushLocked()

	for gid := range w.pendingDeletes {
		seg := w.segments[gid.segment]
		newGen := w.commit.Segments[gid.segment].DelGen + 1
		if err := WriteDeletions(w.dir, seg.Name(), newGen, seg.Deletions()); err != nil {
			w.metrics.commitFailed()
			return fmt.Errorf("writing deletions: %w", err)
		}
		w.commit.Segments[gid.segment].DelGen = newGen
	}
	w.pendingDeletes = make(map[globalDocID]bool)

	if err := w.runMergesUntilStable(w.mergePolicy.FindMerges); err != nil {
		w.metrics.commitFailed()
		return err
	}

	w.commit.Generation++
	w.commit.Version++
	w.commit.FormatVersion = w.formatVersion
	if err := WriteCommit(w.dir, w.commit); err != nil {
		w.commit.Generation--
		w.commit.Version--
		w.metrics.commitFailed()
		return fmt.Errorf("writing commit: %w", err)
	}
	w.log.Info("commit complete",
		zap.Int64("generation", w.commit.Generation),
		zap.Int("segments", len(w.commit.Segments)))
	w.metrics.commit(len(w.commit.Segments), time.Since(start))
	return nil
}

// Optimize forces all segments to merge into one (spec.md §4.7.1).
func (w *Writer) Optimize() error {
	start := time.Now()
	w.flushLocked()
	if err := w.runMergesUntilStable(w.mergePolicy.FindOptimizeMerges); err != nil {
		return err
	}
	w.commit.Generation++
	w.commit.Version++
	w.commit.FormatVersion = w.formatVersion
	if err := WriteCommit(w.dir, w.commit); err != nil {
		w.commit.Generation--
		w.commit.Version--
		return fmt.Errorf("writing commit: %w", err)
	}
	w.metrics.optimize(time.Since(start))
	return nil
}

// FormatVersion returns the on-disk format version that will be written
// at the next commit.
func (w *Writer) FormatVersion() int32 { return w.formatVersion }

// SetFormatVersion changes the format version applied at the next commit
// (spec.md §6.3, §9 open question: this engine supports exactly one
// format and rejects any other on read, so in practice only
// index.FormatVersion is a legal value).
func (w *Writer) SetFormatVersion(v int32) { w.formatVersion = v }

// MergePolicy returns the merge policy currently in effect.
func (w *Writer) MergePolicy() MergePolicy { return w.mergePolicy }

// SetMaxBufferedDocs changes the flush threshold.
func (w *Writer) SetMaxBufferedDocs(v int32) { w.mergePolicy.MaxBufferedDocs = v }

// SetMaxMergeDocs changes the merge policy's upper bound on a merged
// segment's document count (0 means unbounded).
func (w *Writer) SetMaxMergeDocs(v int32) { w.mergePolicy.MaxMergeDocs = v }

// SetMergeFactor changes the merge policy's per-level fan-in.
func (w *Writer) SetMergeFactor(v int32) { w.mergePolicy.MergeFactor = v }

// runMergesUntilStable repeatedly asks find for merge groups and applies
// only the first one, then recomputes — find's group indexes are only
// valid against the segment list as of that call, and applying a merge
// changes indexes, so groups must never be computed more than one merge
// ahead (spec.md §4.7.1 "repeat until no level overflows").
func (w *Writer) runMergesUntilStable(find func([]SegmentInfo) [][]int) error {
	for {
		groups := find(w.commit.Segments)
		if len(groups) == 0 {
			return nil
		}
		if err := w.runMerge(groups[0]); err != nil {
			return err
		}
	}
}

// runMerge merges the segments named by the given indexes (into
// w.commit.Segments / w.segments, which stay parallel) into one new
// segment, replacing them in place (spec.md §4.6).
func (w *Writer) runMerge(group []int) error {
	start := time.Now()
	segs := make([]*Segment, len(group))
	for i, idx := range group {
		segs[i] = w.segments[idx]
	}

	name := w.nextSegmentName()
	merger := NewSegmentMerger(w.dir, segs, DefaultIndexInterval, DefaultSkipInterval)
	info, err := merger.Merge(name)
	if err != nil {
		w.log.Error("merge failed", zap.String("segment", name), zap.Error(err))
		w.metrics.mergeFailed()
		return fmt.Errorf("merging segments: %w", err)
	}
	w.metrics.merge(info.DocCount, time.Since(start))
	merged, err := OpenSegment(w.dir, info)
	if err != nil {
		return err
	}

	inGroup := make(map[int]bool, len(group))
	for _, idx := range group {
		inGroup[idx] = true
	}
	var newSegments []*Segment
	var newInfos []SegmentInfo
	inserted := false
	for i, seg := range w.segments {
		if inGroup[i] {
			if !inserted {
				newSegments = append(newSegments, merged)
				newInfos = append(newInfos, info)
				inserted = true
			}
			seg.Close()
			continue
		}
		newSegments = append(newSegments, seg)
		newInfos = append(newInfos, w.commit.Segments[i])
	}
	w.segments = newSegments
	w.commit.Segments = newInfos
	return nil
}

// Close releases the write lock and every open segment handle without
// committing.
func (w *Writer) Close() error {
	for _, seg := range w.segments {
		seg.Close()
	}
	return w.lock.Release()
}
