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

	"github.com/RoaringBitmap/roaring"

	"github.com/lucego/lucego/store"
)

// DeletionBitmap tracks the documents of one segment that have been
// marked deleted but not yet reclaimed by a merge (spec.md §4.2, §5.3).
// Delete/Undelete change the bitmap in place; Clone gives an independent
// copy, which is what Segment.Deletions hands out so that a snapshot
// keeps seeing the state it was taken at.
type DeletionBitmap struct {
	bits *roaring.Bitmap
}

// NewDeletionBitmap returns an empty (no deletions) bitmap.
func NewDeletionBitmap() *DeletionBitmap {
	return &DeletionBitmap{bits: roaring.New()}
}

// Get reports whether docID is marked deleted.
func (d *DeletionBitmap) Get(docID int32) bool {
	if d == nil || d.bits == nil {
		return false
	}
	return d.bits.Contains(uint32(docID))
}

// Clone returns an independent copy that Delete/Undelete on it will not
// affect the receiver, and vice versa.
func (d *DeletionBitmap) Clone() *DeletionBitmap {
	if d == nil {
		return NewDeletionBitmap()
	}
	return &DeletionBitmap{bits: d.bits.Clone()}
}

// Delete marks docID deleted in place, returning true if it was a state
// change (spec.md invariant: delete is idempotent).
func (d *DeletionBitmap) Delete(docID int32) bool {
	return d.bits.CheckedAdd(uint32(docID))
}

// Undelete clears docID's deletion mark, returning true if it was set.
func (d *DeletionBitmap) Undelete(docID int32) bool {
	return d.bits.CheckedRemove(uint32(docID))
}

// Count returns the number of deleted documents.
func (d *DeletionBitmap) Count() int64 {
	if d == nil || d.bits == nil {
		return 0
	}
	return int64(d.bits.GetCardinality())
}

// IsEmpty reports whether no documents are marked deleted.
func (d *DeletionBitmap) IsEmpty() bool {
	return d == nil || d.bits == nil || d.bits.IsEmpty()
}

const delFileMagic = 0x44454C31 // "DEL1"

// delFileName returns the "<segment>_<gen>.del" name for a deletions
// generation (spec.md §4.7: deletions get their own generation suffix so
// concurrent readers can pin an old copy).
func delFileName(segment string, gen int64) string {
	return fmt.Sprintf("%s_%s.del", segment, encodeGen(gen))
}

// WriteDeletions serializes a bitmap to "<segment>_<gen>.del" as a
// magic-prefixed roaring bitmap.
func WriteDeletions(dir store.Directory, segment string, gen int64, d *DeletionBitmap) error {
	out, err := dir.CreateOutput(delFileName(segment, gen))
	if err != nil {
		return err
	}
	var hdr [4]byte
	hdr[0] = byte(delFileMagic >> 24)
	hdr[1] = byte(delFileMagic >> 16)
	hdr[2] = byte(delFileMagic >> 8)
	hdr[3] = byte(delFileMagic)
	if _, err := out.Write(hdr[:]); err != nil {
		out.Close()
		return err
	}
	payload, err := d.bits.ToBytes()
	if err != nil {
		out.Close()
		return err
	}
	if _, err := out.Write(payload); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ReadDeletions loads a deletions file written by WriteDeletions.
func ReadDeletions(dir store.Directory, segment string, gen int64) (*DeletionBitmap, error) {
	in, err := dir.OpenInput(delFileName(segment, gen))
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var hdr [4]byte
	if err := in.ReadBytes(hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: reading .del header: %v", ErrCorruptIndex, err)
	}
	got := uint32(hdr[0])<<24 | uint32(hdr[1])<<16 | uint32(hdr[2])<<8 | uint32(hdr[3])
	if got != delFileMagic {
		return nil, fmt.Errorf("%w: .del file has bad magic %x", ErrCorruptIndex, got)
	}
	payload := make([]byte, in.Length()-4)
	if err := in.ReadBytes(payload); err != nil {
		return nil, fmt.Errorf("%w: reading .del payload: %v", ErrCorruptIndex, err)
	}
	bits := roaring.New()
	if _, err := bits.FromBuffer(payload); err != nil {
		return nil, fmt.Errorf("%w: decoding .del payload: %v", ErrCorruptIndex, err)
	}
	return &DeletionBitmap{bits: bits}, nil
}
