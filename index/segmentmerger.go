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
	"container/heap"
	"sort"

	"github.com/lucego/lucego/store"
)

// SegmentMerger combines a run of segments (in global, oldest-first
// order) into a single segment with no deletions (spec.md §4.6).
type SegmentMerger struct {
	dir                         store.Directory
	segments                    []*Segment
	indexInterval, skipInterval int32
}

// NewSegmentMerger prepares a merge of segments into a new segment
// written under dir.
func NewSegmentMerger(dir store.Directory, segments []*Segment, indexInterval, skipInterval int32) *SegmentMerger {
	return &SegmentMerger{dir: dir, segments: segments, indexInterval: indexInterval, skipInterval: skipInterval}
}

// outputFiles lists the fixed-name files created for outName so a failed
// merge can unlink them (spec.md §4.6 failure policy). The per-field
// norms files are not included.
func outputFiles(outName string) []string {
	frq, prx := postingsFileNames(outName)
	return []string{
		outName + ".fnm", outName + ".fdx", outName + ".fdt",
		outName + ".tis", outName + ".tii", frq, prx,
	}
}

// Merge writes a new segment named outName and returns its SegmentInfo.
// Any error aborts the merge and removes whatever partial output files
// were created; the input segments are untouched.
func (m *SegmentMerger) Merge(outName string) (SegmentInfo, error) {
	info, err := m.merge(outName)
	if err != nil {
		for _, f := range outputFiles(outName) {
			m.dir.DeleteFile(f)
		}
		mergedFI, _ := m.mergeFieldInfos()
		for n := int32(0); n < int32(mergedFI.Len()); n++ {
			m.dir.DeleteFile(normsFileName(outName, n))
		}
		return SegmentInfo{}, err
	}
	return info, nil
}

func (m *SegmentMerger) merge(outName string) (SegmentInfo, error) {
	mergedFI, fieldMap := m.mergeFieldInfos()

	docIDMap, newMaxDoc := m.buildDocIDMap()

	if err := m.writeFieldInfos(outName, mergedFI); err != nil {
		return SegmentInfo{}, err
	}
	if err := m.copyStoredFields(outName, fieldMap, docIDMap, newMaxDoc); err != nil {
		return SegmentInfo{}, err
	}
	if err := m.copyNorms(outName, mergedFI, docIDMap, newMaxDoc); err != nil {
		return SegmentInfo{}, err
	}
	if err := m.mergeTermDictAndPostings(outName, fieldMap, docIDMap); err != nil {
		return SegmentInfo{}, err
	}

	return SegmentInfo{Name: outName, DocCount: newMaxDoc, DelGen: -1}, nil
}

// mergeFieldInfos unions field names across segments, assigning new
// ordinals in first-seen order (spec.md §4.6 step 1), and returns a
// per-segment old-ordinal -> merged-ordinal map.
func (m *SegmentMerger) mergeFieldInfos() (*FieldInfos, [][]int32) {
	merged := NewFieldInfos()
	fieldMap := make([][]int32, len(m.segments))
	for i, seg := range m.segments {
		fi := seg.FieldInfos()
		fieldMap[i] = make([]int32, fi.Len())
		for n := int32(0); n < int32(fi.Len()); n++ {
			info, _ := fi.ByNumber(n)
			fieldMap[i][n] = merged.AddOrGet(info.Name, info.Flags)
		}
	}
	return merged, fieldMap
}

// buildDocIDMap returns, per segment, old-local-id -> new-local-id (-1
// for deleted docs), and the total live document count (spec.md §4.6
// step 2).
func (m *SegmentMerger) buildDocIDMap() ([][]int32, int32) {
	docIDMap := make([][]int32, len(m.segments))
	var newMaxDoc int32
	for i, seg := range m.segments {
		deleted := seg.Deletions()
		ids := make([]int32, seg.MaxDoc())
		for old := int32(0); old < seg.MaxDoc(); old++ {
			if deleted.Get(old) {
				ids[old] = -1
				continue
			}
			ids[old] = newMaxDoc
			newMaxDoc++
		}
		docIDMap[i] = ids
	}
	return docIDMap, newMaxDoc
}

func (m *SegmentMerger) writeFieldInfos(outName string, fi *FieldInfos) error {
	out, err := m.dir.CreateOutput(outName + ".fnm")
	if err != nil {
		return err
	}
	if err := WriteFieldInfos(out, fi); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (m *SegmentMerger) copyStoredFields(outName string, fieldMap [][]int32, docIDMap [][]int32, newMaxDoc int32) error {
	fdx, err := m.dir.CreateOutput(outName + ".fdx")
	if err != nil {
		return err
	}
	fdt, err := m.dir.CreateOutput(outName + ".fdt")
	if err != nil {
		fdx.Close()
		return err
	}
	w := NewStoredFieldsWriter(fdx, fdt)

	for i, seg := range m.segments {
		for old := int32(0); old < seg.MaxDoc(); old++ {
			if docIDMap[i][old] < 0 {
				continue
			}
			fields, err := seg.Document(old)
			if err != nil {
				w.Close()
				return err
			}
			remapped := make([]StoredField, 0, len(fields.Fields))
			for _, f := range fields.Fields {
				oldInfo, ok := seg.FieldInfos().ByName(f.Name)
				if !ok {
					continue
				}
				remapped = append(remapped, StoredField{
					FieldNumber: fieldMap[i][oldInfo.Number],
					Value:       f.Value,
					Binary:      f.Flags.Binary,
				})
			}
			if err := w.AddDocument(remapped); err != nil {
				w.Close()
				return err
			}
		}
	}
	return w.Close()
}

func (m *SegmentMerger) copyNorms(outName string, mergedFI *FieldInfos, docIDMap [][]int32, newMaxDoc int32) error {
	for mf := int32(0); mf < int32(mergedFI.Len()); mf++ {
		info, _ := mergedFI.ByNumber(mf)
		if !info.Flags.Indexed || info.Flags.OmitNorms {
			continue
		}
		norms := make([]byte, newMaxDoc)
		for i, seg := range m.segments {
			oldInfo, ok := seg.FieldInfos().ByName(info.Name)
			if !ok || !oldInfo.Flags.Indexed {
				continue
			}
			for old := int32(0); old < seg.MaxDoc(); old++ {
				newLocal := docIDMap[i][old]
				if newLocal < 0 {
					continue
				}
				b, err := seg.Norm(old, oldInfo.Number)
				if err != nil {
					return err
				}
				norms[newLocal] = b
			}
		}
		if err := WriteNorms(m.dir, outName, mf, norms); err != nil {
			return err
		}
	}
	return nil
}

// mergeCursor is one segment's terms-stream cursor positioned at its
// current entry, annotated with that entry's merged field ordinal so the
// heap can order across segments without re-resolving names each
// comparison (spec.md §9 "term-stream merging uses a loser/min heap keyed
// by (fieldOrd, term)").
type mergeCursor struct {
	segIdx int
	cur    *Cursor
	field  int32
}

type cursorHeap []*mergeCursor

func (h cursorHeap) Len() int { return len(h) }
func (h cursorHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.field != b.field {
		return a.field < b.field
	}
	return a.cur.Term() < b.cur.Term()
}
func (h cursorHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x interface{}) { *h = append(*h, x.(*mergeCursor)) }
func (h *cursorHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (m *SegmentMerger) mergeTermDictAndPostings(outName string, fieldMap [][]int32, docIDMap [][]int32) error {
	tis, err := m.dir.CreateOutput(outName + ".tis")
	if err != nil {
		return err
	}
	tii, err := m.dir.CreateOutput(outName + ".tii")
	if err != nil {
		tis.Close()
		return err
	}
	tw, err := NewTermDictWriter(tis, tii, m.indexInterval, m.skipInterval)
	if err != nil {
		tis.Close()
		tii.Close()
		return err
	}

	frqName, prxName := postingsFileNames(outName)
	frq, err := m.dir.CreateOutput(frqName)
	if err != nil {
		tw.Close()
		return err
	}
	prx, err := m.dir.CreateOutput(prxName)
	if err != nil {
		tw.Close()
		frq.Close()
		return err
	}
	pw := NewPostingsWriter(frq, prx, m.skipInterval)

	var h cursorHeap
	for i, seg := range m.segments {
		cur := seg.TermsCursor()
		ok, err := cur.Next()
		if err != nil {
			tw.Close()
			frq.Close()
			prx.Close()
			return err
		}
		if !ok {
			cur.Close()
			continue
		}
		heap.Push(&h, &mergeCursor{segIdx: i, cur: cur, field: fieldMap[i][cur.Field()]})
	}

	for h.Len() > 0 {
		top := heap.Pop(&h).(*mergeCursor)
		field, term := top.field, top.cur.Term()
		group := []*mergeCursor{top}
		for h.Len() > 0 && h[0].field == field && h[0].cur.Term() == term {
			group = append(group, heap.Pop(&h).(*mergeCursor))
		}
		// heap.Pop only breaks ties by (field, term); segments sharing a term
		// can drain in any relative order. newLocal doc ids are assigned
		// contiguously per segIdx (buildDocIDMap), so postings must be copied
		// in ascending segIdx order or AddPosting's docDelta underflows.
		sort.Slice(group, func(i, j int) bool { return group[i].segIdx < group[j].segIdx })

		freqPointer, proxPointer := pw.StartTerm()
		var docFreq int32
		for _, g := range group {
			seg := m.segments[g.segIdx]
			postings, err := seg.PostingsForInfo(g.cur.Info())
			if err != nil {
				tw.Close()
				frq.Close()
				prx.Close()
				return err
			}
			for {
				ok, err := postings.NextDoc()
				if err != nil {
					tw.Close()
					frq.Close()
					prx.Close()
					return err
				}
				if !ok {
					break
				}
				newLocal := docIDMap[g.segIdx][postings.DocID()]
				if newLocal < 0 {
					if _, err := postings.Positions(); err != nil {
						tw.Close()
						frq.Close()
						prx.Close()
						return err
					}
					continue
				}
				positions, err := postings.Positions()
				if err != nil {
					tw.Close()
					frq.Close()
					prx.Close()
					return err
				}
				if err := pw.AddPosting(newLocal, postings.Freq(), positions); err != nil {
					tw.Close()
					frq.Close()
					prx.Close()
					return err
				}
				docFreq++
			}
		}

		if docFreq > 0 {
			skipDelta, err := pw.FinishTerm(docFreq)
			if err != nil {
				tw.Close()
				frq.Close()
				prx.Close()
				return err
			}
			if err := tw.Add(field, term, TermInfo{
				DocFreq: docFreq, FreqPointer: freqPointer, ProxPointer: proxPointer, SkipDelta: skipDelta,
			}); err != nil {
				tw.Close()
				frq.Close()
				prx.Close()
				return err
			}
		}

		for _, g := range group {
			ok, err := g.cur.Next()
			if err != nil {
				tw.Close()
				frq.Close()
				prx.Close()
				return err
			}
			if !ok {
				g.cur.Close()
				continue
			}
			g.field = fieldMap[g.segIdx][g.cur.Field()]
			heap.Push(&h, g)
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
