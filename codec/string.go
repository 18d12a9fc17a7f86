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

package codec

import (
	"fmt"
)

// WriteString writes a VInt length followed by the modified-UTF-8
// encoding of s.
func WriteString(w ByteWriter, s string) error {
	b := EncodeModifiedUTF8(s)
	if err := WriteVInt(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadString reads a VInt-length-prefixed modified-UTF-8 string. remaining
// bounds the number of bytes left in the containing file/block; a declared
// length past it is reported as corrupt rather than read (and likely
// fail later with a confusing EOF).
func ReadString(r ByteReader, remaining int64) (string, error) {
	n, err := ReadVInt(r)
	if err != nil {
		return "", err
	}
	if remaining >= 0 && int64(n) > remaining {
		return "", fmt.Errorf("%w: string length %d exceeds remaining %d bytes", ErrCorrupt, n, remaining)
	}
	buf := make([]byte, n)
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		buf[i] = b
	}
	return DecodeModifiedUTF8(buf), nil
}

// ErrCorrupt flags a structural violation while decoding a primitive value.
// index.ErrCorruptIndex wraps this at the segment-reading layer; codec
// itself has no notion of "index", only of malformed bytes.
var ErrCorrupt = fmt.Errorf("codec: malformed encoded value")

// EncodeModifiedUTF8 encodes s the way Java's DataOutput.writeUTF does:
// NUL is encoded as the two bytes 0xC0 0x80, and characters outside the
// Basic Multilingual Plane are written as a UTF-16 surrogate pair, each
// surrogate encoded as an independent 3-byte UTF-8-shaped sequence. Go's
// native UTF-8 already matches Java's for every other code point.
func EncodeModifiedUTF8(s string) []byte {
	runes := []rune(s)
	out := make([]byte, 0, len(s)+4)
	for _, r := range runes {
		switch {
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r < 0x80:
			out = append(out, byte(r))
		case r < 0x800:
			out = append(out, byte(0xC0|(r>>6)), byte(0x80|(r&0x3F)))
		case r <= 0xFFFF:
			out = append(out, byte(0xE0|(r>>12)), byte(0x80|((r>>6)&0x3F)), byte(0x80|(r&0x3F)))
		default:
			// Encode as a UTF-16 surrogate pair, each surrogate as its own
			// 3-byte modified-UTF-8 sequence (Java never emits 4-byte
			// sequences for writeUTF).
			v := r - 0x10000
			hi := 0xD800 + (v >> 10)
			lo := 0xDC00 + (v & 0x3FF)
			out = append(out, byte(0xE0|(hi>>12)), byte(0x80|((hi>>6)&0x3F)), byte(0x80|(hi&0x3F)))
			out = append(out, byte(0xE0|(lo>>12)), byte(0x80|((lo>>6)&0x3F)), byte(0x80|(lo&0x3F)))
		}
	}
	return out
}

// DecodeModifiedUTF8 reverses EncodeModifiedUTF8, recombining surrogate
// pairs and the NUL special case.
func DecodeModifiedUTF8(b []byte) string {
	runes := make([]rune, 0, len(b))
	i := 0
	for i < len(b) {
		c := b[i]
		switch {
		case c&0x80 == 0:
			runes = append(runes, rune(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) {
				i = len(b)
				break
			}
			r := (rune(c&0x1F) << 6) | rune(b[i+1]&0x3F)
			runes = append(runes, r)
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) {
				i = len(b)
				break
			}
			r := (rune(c&0x0F) << 12) | (rune(b[i+1]&0x3F) << 6) | rune(b[i+2]&0x3F)
			i += 3
			if r >= 0xD800 && r <= 0xDBFF && i+2 < len(b) {
				c2 := b[i]
				if c2&0xF0 == 0xE0 {
					r2 := (rune(c2&0x0F) << 12) | (rune(b[i+1]&0x3F) << 6) | rune(b[i+2]&0x3F)
					if r2 >= 0xDC00 && r2 <= 0xDFFF {
						combined := 0x10000 + (r-0xD800)<<10 + (r2 - 0xDC00)
						runes = append(runes, combined)
						i += 3
						continue
					}
				}
			}
			runes = append(runes, r)
		default:
			i++
		}
	}
	return string(runes)
}
