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
	"sort"

	"github.com/lucego/lucego/analysis"
	"github.com/lucego/lucego/document"
	"github.com/lucego/lucego/store"
)

// termPosting accumulates one (field, term) pair's per-document position
// lists while a buffered batch of documents is being analyzed, before
// being flattened into sorted postings (spec.md §9 "buffered in-memory
// segment ... same data model as an on-disk segment").
type termPosting struct {
	field     int32
	term      string
	byDoc     map[int32][]int32
	docsOrder []int32
}

// SegmentBuilder assembles a brand-new segment (no merge, no prior
// on-disk state) from a batch of documents run through an Analyzer —
// the writer's in-memory buffer, flushed as one segment per spec.md §4.7
// step 2.
type SegmentBuilder struct {
	analyzer analysis.Analyzer

	fieldInfos *FieldInfos
	docs       []*document.Document
	postings   map[Term]*termPosting
	numTokens  []map[int32]int32 // per doc: fieldOrd -> indexed token count
}

// NewSegmentBuilder returns an empty builder.
func NewSegmentBuilder(analyzer analysis.Analyzer) *SegmentBuilder {
	return &SegmentBuilder{
		analyzer:   analyzer,
		fieldInfos: NewFieldInfos(),
		postings:   make(map[Term]*termPosting),
	}
}

// NumDocs returns the number of documents added so far.
func (b *SegmentBuilder) NumDocs() int32 { return int32(len(b.docs)) }

// AddDocument analyzes and accumulates one document; its local id is the
// order of this call (0-based).
func (b *SegmentBuilder) AddDocument(doc *document.Document) {
	localID := int32(len(b.docs))
	b.docs = append(b.docs, doc)
	b.numTokens = append(b.numTokens, make(map[int32]int32))

	positionBase := make(map[string]int)
	for _, f := range doc.Fields {
		flags := FieldFlags{Indexed: f.Flags.Indexed, OmitNorms: !f.Flags.Indexed}
		ord := b.fieldInfos.AddOrGet(f.Name, flags)

		if !f.Flags.Indexed {
			continue
		}
		var tokens []analysis.Token
		if f.Flags.Tokenized {
			tokens = b.analyzer.Analyze(f.Name, f.Value)
		} else {
			tokens = analysis.KeywordAnalyzer{}.Analyze(f.Name, f.Value)
		}
		base := positionBase[f.Name]
		for _, t := range tokens {
			pos := int32(base + t.Position)
			key := Term{Field: f.Name, Text: t.Text}
			tp, ok := b.postings[key]
			if !ok {
				tp = &termPosting{field: ord, term: t.Text, byDoc: make(map[int32][]int32)}
				b.postings[key] = tp
			}
			if _, seen := tp.byDoc[localID]; !seen {
				tp.docsOrder = append(tp.docsOrder, localID)
			}
			tp.byDoc[localID] = append(tp.byDoc[localID], pos)
			b.numTokens[localID][ord]++
		}
		if len(tokens) > 0 {
			positionBase[f.Name] = base + len(tokens) + 1 // classic Lucene position gap between field instances
		}
	}
}

// Build writes the accumulated batch as a new segment named outName.
func (b *SegmentBuilder) Build(dir store.Directory, outName string, indexInterval, skipInterval int32) (SegmentInfo, error) {
	info, err := b.build(dir, outName, indexInterval, skipInterval)
	if err != nil {
		for _, f := range outputFiles(outName) {
			dir.DeleteFile(f)
		}
		return SegmentInfo{}, err
	}
	return info, nil
}

func (b *SegmentBuilder) build(dir store.Directory, outName string, indexInterval, skipInterval int32) (SegmentInfo, error) {
	if err := b.writeFieldInfos(dir, outName); err != nil {
		return SegmentInfo{}, err
	}
	if err := b.writeStoredFields(dir, outName); err != nil {
		return SegmentInfo{}, err
	}
	if err := b.writeNorms(dir, outName); err != nil {
		return SegmentInfo{}, err
	}
	if err := b.writeTermDictAndPostings(dir, outName, indexInterval, skipInterval); err != nil {
		return SegmentInfo{}, err
	}
	return SegmentInfo{Name: outName, DocCount: int32(len(b.docs)), DelGen: -1}, nil
}

func (b *SegmentBuilder) writeFieldInfos(dir store.Directory, outName string) error {
	out, err := dir.CreateOutput(outName + ".fnm")
	if err != nil {
		return err
	}
	if err := WriteFieldInfos(out, b.fieldInfos); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (b *SegmentBuilder) writeStoredFields(dir store.Directory, outName string) error {
	fdx, err := dir.CreateOutput(outName + ".fdx")
	if err != nil {
		return err
	}
	fdt, err := dir.CreateOutput(outName + ".fdt")
	if err != nil {
		fdx.Close()
		return err
	}
	w := NewStoredFieldsWriter(fdx, fdt)
	for _, doc := range b.docs {
		var fields []StoredField
		for _, f := range doc.Fields {
			if !f.Flags.Stored {
				continue
			}
			info, _ := b.fieldInfos.ByName(f.Name)
			fields = append(fields, StoredField{FieldNumber: info.Number, Value: f.Value, Binary: f.Flags.Binary})
		}
		if err := w.AddDocument(fields); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

func (b *SegmentBuilder) writeNorms(dir store.Directory, outName string) error {
	numDocs := len(b.docs)
	for ord := int32(0); ord < int32(b.fieldInfos.Len()); ord++ {
		info, _ := b.fieldInfos.ByNumber(ord)
		if !info.Flags.Indexed {
			continue
		}
		counts := make([]int32, numDocs)
		for doc, m := range b.numTokens {
			counts[doc] = m[ord]
		}
		if err := WriteNorms(dir, outName, ord, EncodeFieldNorms(counts)); err != nil {
			return err
		}
	}
	return nil
}

func (b *SegmentBuilder) writeTermDictAndPostings(dir store.Directory, outName string, indexInterval, skipInterval int32) error {
	tis, err := dir.CreateOutput(outName + ".tis")
	if err != nil {
		return err
	}
	tii, err := dir.CreateOutput(outName + ".tii")
	if err != nil {
		tis.Close()
		return err
	}
	tw, err := NewTermDictWriter(tis, tii, indexInterval, skipInterval)
	if err != nil {
		tis.Close()
		tii.Close()
		return err
	}

	frqName, prxName := postingsFileNames(outName)
	frq, err := dir.CreateOutput(frqName)
	if err != nil {
		tw.Close()
		return err
	}
	prx, err := dir.CreateOutput(prxName)
	if err != nil {
		tw.Close()
		frq.Close()
		return err
	}
	pw := NewPostingsWriter(frq, prx, skipInterval)

	keys := make([]Term, 0, len(b.postings))
	for k := range b.postings {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b2 := b.postings[keys[i]], b.postings[keys[j]]
		if a.field != b2.field {
			return a.field < b2.field
		}
		return keys[i].Text < keys[j].Text
	})

	for _, k := range keys {
		tp := b.postings[k]
		sort.Slice(tp.docsOrder, func(i, j int) bool { return tp.docsOrder[i] < tp.docsOrder[j] })

		freqPointer, proxPointer := pw.StartTerm()
		for _, doc := range tp.docsOrder {
			positions := tp.byDoc[doc]
			sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
			if err := pw.AddPosting(doc, int32(len(positions)), positions); err != nil {
				tw.Close()
				frq.Close()
				prx.Close()
				return err
			}
		}
		skipDelta, err := pw.FinishTerm(int32(len(tp.docsOrder)))
		if err != nil {
			tw.Close()
			frq.Close()
			prx.Close()
			return err
		}
		if err := tw.Add(tp.field, tp.term, TermInfo{
			DocFreq: int32(len(tp.docsOrder)), FreqPointer: freqPointer, ProxPointer: proxPointer, SkipDelta: skipDelta,
		}); err != nil {
			tw.Close()
			frq.Close()
			prx.Close()
			return err
		}
	}

	if err := tw.Close(); err != nil {
		frq.Close()
		prx.Close()
		return err
	}
	if err := frq.Close(); err != nil {
		prx.Close()
		return err
	}
	return prx.Close()
}
