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
	"strings"

	"github.com/lucego/lucego/codec"
	"github.com/lucego/lucego/store"
)

// FormatVersion identifies the on-disk segments-file layout this engine
// writes and is willing to read (spec.md §9 open question: pick one
// supported format and reject others). Negative, as the source format
// numbers are.
const FormatVersion int32 = -9

const segmentsGenFile = "segments.gen"

// SegmentsFileName returns "segments_<gen>" in lowercase base-36.
func SegmentsFileName(gen int64) string {
	return "segments_" + encodeGen(gen)
}

// Commit is the full, immutable content of one segments_<gen> file
// (spec.md §4.7): the generation it was written at, a monotone version,
// the format version it was written in, the next-segment-name counter,
// and the ordered list of segments that make up the index as of that
// generation.
type Commit struct {
	Generation    int64
	Version       int64
	FormatVersion int32
	NameCounter   int32
	Segments      []SegmentInfo
}

// WriteCommit serializes c to a temp name, then atomically renames it
// into place as SegmentsFileName(c.Generation) (spec.md §4.7 step 5).
func WriteCommit(dir store.Directory, c Commit) error {
	tmp := fmt.Sprintf("%s.tmp", SegmentsFileName(c.Generation))
	out, err := dir.CreateOutput(tmp)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := writeCommitBody(&buf, c); err != nil {
		out.Close()
		dir.DeleteFile(tmp)
		return err
	}
	checksum := checksumOf(buf.Bytes())

	if _, err := out.Write(buf.Bytes()); err != nil {
		out.Close()
		dir.DeleteFile(tmp)
		return err
	}
	if err := codec.WriteVLong(out, checksum); err != nil {
		out.Close()
		dir.DeleteFile(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		dir.DeleteFile(tmp)
		return err
	}
	if s, ok := dir.(store.Sync); ok {
		if err := s.SyncFile(tmp); err != nil {
			dir.DeleteFile(tmp)
			return err
		}
	}

	name := SegmentsFileName(c.Generation)
	if err := dir.RenameFile(tmp, name); err != nil {
		dir.DeleteFile(tmp)
		return err
	}
	return writeSegmentsGen(dir, c.Generation)
}

func writeCommitBody(buf *bytes.Buffer, c Commit) error {
	if err := writeInt32(buf, c.FormatVersion); err != nil {
		return err
	}
	if err := writeInt64(buf, c.Version); err != nil {
		return err
	}
	if err := writeInt32(buf, c.NameCounter); err != nil {
		return err
	}
	if err := writeInt32(buf, int32(len(c.Segments))); err != nil {
		return err
	}
	for _, s := range c.Segments {
		if err := codec.WriteString(buf, s.Name); err != nil {
			return err
		}
		if err := writeInt32(buf, s.DocCount); err != nil {
			return err
		}
		if err := writeInt64(buf, s.DelGen); err != nil {
			return err
		}
	}
	return nil
}

func writeSegmentsGen(dir store.Directory, gen int64) error {
	out, err := dir.CreateOutput(segmentsGenFile)
	if err != nil {
		return err
	}
	if err := writeInt64(out, gen); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// checksumOf computes the "sum of preceding bytes mod 2^63" trailer
// (spec.md §4.7 segments file layout).
func checksumOf(b []byte) uint64 {
	var sum uint64
	for _, v := range b {
		sum += uint64(v)
	}
	return sum & (1<<63 - 1)
}

func writeInt32(out interface{ WriteByte(byte) error }, v int32) error {
	for shift := 24; shift >= 0; shift -= 8 {
		if err := out.WriteByte(byte(v >> shift)); err != nil {
			return err
		}
	}
	return nil
}

func writeInt64(out interface{ WriteByte(byte) error }, v int64) error {
	for shift := 56; shift >= 0; shift -= 8 {
		if err := out.WriteByte(byte(v >> shift)); err != nil {
			return err
		}
	}
	return nil
}

func readInt32(in store.IndexInput) (int32, error) {
	var v int32
	for i := 0; i < 4; i++ {
		b, err := in.ReadByte()
		if err != nil {
			return 0, err
		}
		v = v<<8 | int32(b)
	}
	return v, nil
}

func readInt64(in store.IndexInput) (int64, error) {
	var v int64
	for i := 0; i < 8; i++ {
		b, err := in.ReadByte()
		if err != nil {
			return 0, err
		}
		v = v<<8 | int64(b)
	}
	return v, nil
}

// ReadCommit reads and validates one segments_<gen> file, including its
// checksum trailer.
func ReadCommit(dir store.Directory, gen int64) (Commit, error) {
	name := SegmentsFileName(gen)
	in, err := dir.OpenInput(name)
	if err != nil {
		return Commit{}, err
	}
	defer in.Close()

	format, err := readInt32(in)
	if err != nil {
		return Commit{}, fmt.Errorf("%w: reading %s header: %v", ErrCorruptIndex, name, err)
	}
	if format != FormatVersion {
		return Commit{}, fmt.Errorf("%w: %s has unsupported format %d (want %d)", ErrCorruptIndex, name, format, FormatVersion)
	}
	version, err := readInt64(in)
	if err != nil {
		return Commit{}, fmt.Errorf("%w: reading %s version: %v", ErrCorruptIndex, name, err)
	}
	nameCounter, err := readInt32(in)
	if err != nil {
		return Commit{}, fmt.Errorf("%w: reading %s nameCounter: %v", ErrCorruptIndex, name, err)
	}
	segCount, err := readInt32(in)
	if err != nil {
		return Commit{}, fmt.Errorf("%w: reading %s segmentCount: %v", ErrCorruptIndex, name, err)
	}

	segments := make([]SegmentInfo, segCount)
	for i := range segments {
		segName, err := codec.ReadString(in, in.Length()-in.Tell())
		if err != nil {
			return Commit{}, fmt.Errorf("%w: reading %s segment %d name: %v", ErrCorruptIndex, name, i, err)
		}
		docCount, err := readInt32(in)
		if err != nil {
			return Commit{}, fmt.Errorf("%w: reading %s segment %d docCount: %v", ErrCorruptIndex, name, i, err)
		}
		delGen, err := readInt64(in)
		if err != nil {
			return Commit{}, fmt.Errorf("%w: reading %s segment %d delGen: %v", ErrCorruptIndex, name, i, err)
		}
		segments[i] = SegmentInfo{Name: segName, DocCount: docCount, DelGen: delGen}
	}

	trailerStart := in.Tell()
	wantChecksum, err := codec.ReadVLong(in)
	if err != nil {
		return Commit{}, fmt.Errorf("%w: reading %s checksum: %v", ErrCorruptIndex, name, err)
	}

	body := make([]byte, trailerStart)
	if err := in.Seek(0); err != nil {
		return Commit{}, err
	}
	if err := in.ReadBytes(body); err != nil {
		return Commit{}, fmt.Errorf("%w: re-reading %s body: %v", ErrCorruptIndex, name, err)
	}
	if got := checksumOf(body); got != wantChecksum {
		return Commit{}, fmt.Errorf("%w: %s checksum mismatch: got %d want %d", ErrCorruptIndex, name, got, wantChecksum)
	}

	return Commit{Generation: gen, Version: version, FormatVersion: format, NameCounter: nameCounter, Segments: segments}, nil
}

// RecoverGeneration implements the (a)(b)(c) reader-construction sequence
// of spec.md §4.7: read the segments.gen sentinel for a candidate
// generation; on any failure to open/validate segments_<g>, fall back to
// listing the directory and choosing the largest segments_<n> by base-36
// value (S5 — generation recovery).
func RecoverGeneration(dir store.Directory) (Commit, error) {
	if gen, err := readSegmentsGen(dir); err == nil {
		if c, err := ReadCommit(dir, gen); err == nil {
			return c, nil
		}
	}

	names, err := dir.ListAll()
	if err != nil {
		return Commit{}, err
	}
	best := int64(-1)
	for _, n := range names {
		if !strings.HasPrefix(n, "segments_") {
			continue
		}
		suffix := strings.TrimPrefix(n, "segments_")
		if strings.Contains(suffix, ".") {
			continue // skip "segments_<gen>.tmp" leftovers
		}
		g, err := decodeGen(suffix)
		if err != nil {
			continue
		}
		if g > best {
			best = g
		}
	}
	if best < 0 {
		return Commit{Generation: -1}, nil
	}
	return ReadCommit(dir, best)
}

func readSegmentsGen(dir store.Directory) (int64, error) {
	in, err := dir.OpenInput(segmentsGenFile)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	return readInt64(in)
}

// sortSegmentsByLevel groups segments by merge-policy level (spec.md
// §4.7.1); used by mergepolicy.go.
func sortSegmentsByLevel(segments []SegmentInfo, mergeFactor int32) map[int][]int {
	levels := make(map[int][]int)
	for i, s := range segments {
		levels[levelOf(s.DocCount, mergeFactor)] = append(levels[levelOf(s.DocCount, mergeFactor)], i)
	}
	return levels
}

func levelOf(docCount int32, mergeFactor int32) int {
	level := 0
	bound := int64(mergeFactor)
	for int64(docCount) >= bound {
		level++
		bound *= int64(mergeFactor)
	}
	return level
}
