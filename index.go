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

package lucego

import (
	"sync"

	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/lucego/lucego/analysis"
	"github.com/lucego/lucego/document"
	"github.com/lucego/lucego/index"
	"github.com/lucego/lucego/query"
	"github.com/lucego/lucego/search"
	"github.com/lucego/lucego/store"
)

// Index is the full surface a caller opens and drives (spec.md §6.3): a
// single writer for mutation, with reads served off the most recently
// committed generation's reader, reopened right after each commit
// so find/getDocument/etc. always observe linearizable, already-committed
// state (spec.md §5 "reads of committed state are linearizable with
// respect to commits").
type Index struct {
	dir      store.Directory
	analyzer analysis.Analyzer

	writerOpts []index.WriterOption

	mu     sync.RWMutex
	writer *index.Writer
	reader *index.Reader // nil until the first successful (re)open
}

// Option configures an Index at Open time.
type Option func(*Index)

// WithAnalyzer overrides the default analysis.SimpleAnalyzer used both to
// index documents and to tokenize query text.
func WithAnalyzer(a analysis.Analyzer) Option {
	return func(idx *Index) { idx.analyzer = a }
}

// WithLogger overrides the writer's logger.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Index) { idx.writerOpts = append(idx.writerOpts, index.WithLogger(l)) }
}

// WithMetricsScope routes commit, optimize, and merge instrumentation
// through scope (wrapped by index.NewMetrics) instead of the default
// no-op.
func WithMetricsScope(scope tally.Scope) Option {
	return func(idx *Index) {
		idx.writerOpts = append(idx.writerOpts, index.WithMetrics(index.NewMetrics(scope)))
	}
}

// Open acquires the directory's write lock and opens the index for both
// reading and writing (spec.md §5: single writer per directory).
func Open(dir store.Directory, opts ...Option) (*Index, error) {
	idx := &Index{dir: dir, analyzer: analysis.SimpleAnalyzer{}}
	for _, o := range opts {
		o(idx)
	}

	writerOpts := append([]index.WriterOption{index.WithAnalyzer(idx.analyzer)}, idx.writerOpts...)
	w, err := index.OpenWriter(dir, writerOpts...)
	if err != nil {
		return nil, err
	}
	idx.writer = w

	r, err := index.OpenReader(dir)
	if err != nil {
		w.Close()
		return nil, err
	}
	idx.reader = r
	return idx, nil
}

// AddDocument buffers doc for the next commit.
func (idx *Index) AddDocument(doc *document.Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.writer.AddDocument(doc)
}

// Delete marks docId deleted; invisible to readers until the next commit.
func (idx *Index) Delete(docID int32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.writer.Delete(docID)
}

// UndeleteAll reverses every delete recorded since the last commit
// (spec.md §8 invariant 8).
func (idx *Index) UndeleteAll() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.writer.UndeleteAll()
}

// Commit durably persists buffered adds, deletes, and merges, then
// reopens the reader onto the new generation.
func (idx *Index) Commit() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.writer.Commit(); err != nil {
		return err
	}
	return idx.reopenLocked()
}

// Optimize forces a full merge to one segment, then commits and reopens.
func (idx *Index) Optimize() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.writer.Optimize(); err != nil {
		return err
	}
	return idx.reopenLocked()
}

func (idx *Index) reopenLocked() error {
	r, err := index.OpenReader(idx.dir)
	if err != nil {
		return err
	}
	old := idx.reader
	idx.reader = r
	if old != nil {
		old.Close()
	}
	return nil
}

// currentReader returns the reader snapshot to serve one read call with.
func (idx *Index) currentReader() *index.Reader {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.reader
}

// Find rewrites q against the live term dictionary and returns every
// positively scored hit ordered by descending score (spec.md §6.3
// find(query)). Query string parsing is an external collaborator
// (spec.md §1 Out of scope) — callers build q programmatically, the way
// a real QueryParser's output would be handed in.
func (idx *Index) Find(q query.Query) ([]search.Hit, error) {
	return search.Search(idx.currentReader(), q)
}

// FindString is a convenience wrapper around the query.Parse supplement
// (not part of spec.md's core surface — see SPEC_FULL.md "Supplemented
// features"): it parses queryText against defaultField with the index's
// own analyzer and then calls Find.
func (idx *Index) FindString(defaultField, queryText string) ([]search.Hit, error) {
	q, err := query.Parse(defaultField, queryText, idx.analyzer)
	if err != nil {
		return nil, err
	}
	return idx.Find(q)
}

// GetDocument returns docId's stored fields as of the current snapshot.
func (idx *Index) GetDocument(docID int32) (*document.Document, error) {
	return idx.currentReader().Document(docID)
}

// MaxDoc returns the total number of doc ids ever assigned, live or dead,
// including documents buffered but not yet committed.
func (idx *Index) MaxDoc() int32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.writer.MaxDoc()
}

// NumDocs returns the number of live documents, including buffered ones.
func (idx *Index) NumDocs() int32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.writer.NumDocs()
}

// HasDeletions reports whether the current committed snapshot has any
// deleted documents.
func (idx *Index) HasDeletions() bool {
	return idx.currentReader().HasDeletions()
}

// Term names one (field, text) dictionary entry for the termDocs/
// termFreqs/termPositions/docFreq surface.
type Term struct {
	Field string
	Text  string
}

// Terms returns every (field, term) pair in the committed index's
// dictionary, in field-then-lexical order.
func (idx *Index) Terms() ([]Term, error) {
	r := idx.currentReader()
	var out []Term
	for _, f := range r.GetFieldNames(true) {
		texts, err := r.FieldTerms(f)
		if err != nil {
			return nil, err
		}
		for _, t := range texts {
			out = append(out, Term{Field: f, Text: t})
		}
	}
	return out, nil
}

// TermDocs returns every live doc id carrying t, ascending.
func (idx *Index) TermDocs(t Term) ([]int32, error) {
	docs, err := idx.currentReader().TermDocs(t.Field, t.Text)
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(docs))
	for i, d := range docs {
		out[i] = d.DocID
	}
	return out, nil
}

// TermFreqs returns, for every live doc carrying t, its within-document
// frequency.
func (idx *Index) TermFreqs(t Term) (map[int32]int32, error) {
	docs, err := idx.currentReader().TermDocs(t.Field, t.Text)
	if err != nil {
		return nil, err
	}
	out := make(map[int32]int32, len(docs))
	for _, d := range docs {
		out[d.DocID] = d.Freq
	}
	return out, nil
}

// TermPositions returns, for every live doc carrying t, its full sorted
// position list within that field.
func (idx *Index) TermPositions(t Term) (map[int32][]int32, error) {
	entries, err := idx.currentReader().TermPositions(t.Field, t.Text)
	if err != nil {
		return nil, err
	}
	out := make(map[int32][]int32, len(entries))
	for _, e := range entries {
		out[e.DocID] = e.Positions
	}
	return out, nil
}

// DocFreq returns the number of live documents carrying t.
func (idx *Index) DocFreq(t Term) (int32, error) {
	return idx.currentReader().DocFreq(t.Field, t.Text)
}

// GetFieldNames returns every field name known to the committed index;
// indexedOnly restricts the result to fields that contribute terms.
func (idx *Index) GetFieldNames(indexedOnly bool) []string {
	return idx.currentReader().GetFieldNames(indexedOnly)
}

// Norm returns the length-normalization byte for (docId, field), decoded
// through codec.DecodeNorm by callers that want the float multiplier.
func (idx *Index) Norm(docID int32, field string) (byte, error) {
	return idx.currentReader().Norm(docID, field)
}

// GetFormatVersion returns the on-disk format version the writer is
// currently configured to write at the next commit.
func (idx *Index) GetFormatVersion() int32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.writer.FormatVersion()
}

// SetFormatVersion changes the format version applied at the next commit
// (spec.md §6.3, §9: conversions between formats are out of scope — this
// engine only ever actually writes index.FormatVersion).
func (idx *Index) SetFormatVersion(v int32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.writer.SetFormatVersion(v)
}

// GetMaxBufferedDocs returns the current flush threshold.
func (idx *Index) GetMaxBufferedDocs() int32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.writer.MergePolicy().MaxBufferedDocs
}

// SetMaxBufferedDocs changes the flush threshold.
func (idx *Index) SetMaxBufferedDocs(v int32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.writer.SetMaxBufferedDocs(v)
}

// GetMaxMergeDocs returns the merge policy's upper bound on a merged
// segment's document count (0 means unbounded).
func (idx *Index) GetMaxMergeDocs() int32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.writer.MergePolicy().MaxMergeDocs
}

// SetMaxMergeDocs changes that bound.
func (idx *Index) SetMaxMergeDocs(v int32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.writer.SetMaxMergeDocs(v)
}

// GetMergeFactor returns the merge policy's per-level fan-in.
func (idx *Index) GetMergeFactor() int32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.writer.MergePolicy().MergeFactor
}

// SetMergeFactor changes the fan-in.
func (idx *Index) SetMergeFactor(v int32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.writer.SetMergeFactor(v)
}

// GetSimilarity returns the scoring model this engine evaluates every
// query with; there is currently exactly one.
func (idx *Index) GetSimilarity() search.Similarity {
	return search.DefaultSimilarity
}

// Close releases the write lock and every open file handle without an
// implicit commit; buffered-but-uncommitted documents and deletes are
// lost (spec.md §7 "a failed commit leaves the previous generation
// intact").
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.reader != nil {
		idx.reader.Close()
	}
	return idx.writer.Close()
}
