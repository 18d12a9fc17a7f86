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

package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FSDirectory is a Directory backed by a real filesystem directory. Renames
// use os.Rename, which is atomic on the same filesystem; callers must keep
// an index's directory on a single filesystem for the commit protocol's
// atomicity guarantee to hold.
type FSDirectory struct {
	path string
}

// NewFSDirectory opens (creating if necessary) a filesystem directory at
// path.
func NewFSDirectory(path string) (*FSDirectory, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return &FSDirectory{path: path}, nil
}

func (d *FSDirectory) full(name string) string {
	return filepath.Join(d.path, name)
}

func (d *FSDirectory) ListAll() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (d *FSDirectory) Exists(name string) (bool, error) {
	_, err := os.Stat(d.full(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (d *FSDirectory) FileLength(name string) (int64, error) {
	fi, err := os.Stat(d.full(name))
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (d *FSDirectory) DeleteFile(name string) error {
	err := os.Remove(d.full(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (d *FSDirectory) CreateOutput(name string) (IndexOutput, error) {
	f, err := os.OpenFile(d.full(name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &fsOutput{f: f}, nil
}

func (d *FSDirectory) OpenInput(name string) (IndexInput, error) {
	f, err := os.Open(d.full(name))
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fsInput{f: f, length: fi.Size()}, nil
}

func (d *FSDirectory) RenameFile(from, to string) error {
	return os.Rename(d.full(from), d.full(to))
}

func (d *FSDirectory) SyncFile(name string) error {
	f, err := os.OpenFile(d.full(name), os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

func (d *FSDirectory) AcquireLock(name string, timeout time.Duration) (Lock, error) {
	path := d.full(name)
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return &fsLock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}
		if timeout <= 0 || time.Now().After(deadline) {
			return nil, fmt.Errorf("store: could not obtain lock %q: %w", path, ErrLockObtainFailed)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type fsLock struct {
	path string
	once sync.Once
}

func (l *fsLock) Release() error {
	var err error
	l.once.Do(func() {
		e := os.Remove(l.path)
		if !os.IsNotExist(e) {
			err = e
		}
	})
	return err
}

type fsOutput struct {
	f   *os.File
	pos int64
}

func (o *fsOutput) Write(p []byte) (int, error) {
	n, err := o.f.Write(p)
	o.pos += int64(n)
	return n, err
}

func (o *fsOutput) WriteByte(b byte) error {
	_, err := o.Write([]byte{b})
	return err
}

func (o *fsOutput) Tell() int64 { return o.pos }

func (o *fsOutput) Close() error { return o.f.Close() }

type fsInput struct {
	f      *os.File
	length int64
}

func (in *fsInput) Read(p []byte) (int, error) { return in.f.Read(p) }

func (in *fsInput) ReadByte() (byte, error) {
	var b [1]byte
	_, err := io.ReadFull(in.f, b[:])
	return b[0], err
}

func (in *fsInput) ReadBytes(buf []byte) error {
	_, err := io.ReadFull(in.f, buf)
	return err
}

func (in *fsInput) Seek(pos int64) error {
	_, err := in.f.Seek(pos, io.SeekStart)
	return err
}

func (in *fsInput) Tell() int64 {
	pos, _ := in.f.Seek(0, io.SeekCurrent)
	return pos
}

func (in *fsInput) Length() int64 { return in.length }

func (in *fsInput) Clone() IndexInput {
	f, err := os.Open(in.f.Name())
	if err != nil {
		// The file existed when this input was opened; treat a failed
		// clone (e.g. deleted between open and clone) as an empty input
		// rather than panicking the caller. Callers that need a hard
		// guarantee should check Exists before relying on clones.
		return &fsInput{f: nil, length: 0}
	}
	pos := in.Tell()
	f.Seek(pos, io.SeekStart)
	return &fsInput{f: f, length: in.length}
}

func (in *fsInput) Close() error {
	if in.f == nil {
		return nil
	}
	return in.f.Close()
}
