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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRAMDirectoryWriteReadRoundTrip(t *testing.T) {
	dir := NewRAMDirectory()
	out, err := dir.CreateOutput("a.bin")
	require.NoError(t, err)
	_, err = out.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, out.Close())

	length, err := dir.FileLength("a.bin")
	require.NoError(t, err)
	require.Equal(t, int64(5), length)

	in, err := dir.OpenInput("a.bin")
	require.NoError(t, err)
	buf := make([]byte, 5)
	require.NoError(t, in.ReadBytes(buf))
	require.Equal(t, "hello", string(buf))
	require.NoError(t, in.Close())
}

func TestRAMDirectoryCloneIsIndependentCursor(t *testing.T) {
	dir := NewRAMDirectory()
	out, err := dir.CreateOutput("a.bin")
	require.NoError(t, err)
	_, err = out.Write([]byte("abcdef"))
	require.NoError(t, err)
	require.NoError(t, out.Close())

	in, err := dir.OpenInput("a.bin")
	require.NoError(t, err)
	require.NoError(t, in.Seek(2))

	clone := in.Clone()
	require.NoError(t, clone.Seek(4))

	require.Equal(t, int64(2), in.Tell(), "advancing the clone must not move the original")
	require.Equal(t, int64(4), clone.Tell())
}

func TestRAMDirectoryDeleteFileOfMissingFileIsNotError(t *testing.T) {
	dir := NewRAMDirectory()
	require.NoError(t, dir.DeleteFile("nope.bin"))
}

func TestRAMDirectoryRenameFileIsAtomic(t *testing.T) {
	dir := NewRAMDirectory()
	out, err := dir.CreateOutput("tmp.bin")
	require.NoError(t, err)
	_, err = out.Write([]byte("v1"))
	require.NoError(t, err)
	require.NoError(t, out.Close())

	require.NoError(t, dir.RenameFile("tmp.bin", "final.bin"))
	exists, err := dir.Exists("tmp.bin")
	require.NoError(t, err)
	require.False(t, exists)

	in, err := dir.OpenInput("final.bin")
	require.NoError(t, err)
	buf := make([]byte, 2)
	require.NoError(t, in.ReadBytes(buf))
	require.Equal(t, "v1", string(buf))
}

func TestRAMDirectoryAcquireLockIsExclusive(t *testing.T) {
	dir := NewRAMDirectory()
	lock, err := dir.AcquireLock("write.lock", 0)
	require.NoError(t, err)

	_, err = dir.AcquireLock("write.lock", 0)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrLockObtainFailed)

	require.NoError(t, lock.Release())
	lock2, err := dir.AcquireLock("write.lock", 0)
	require.NoError(t, err)
	require.NoError(t, lock2.Release())
}

func TestRAMDirectoryAcquireLockTimesOut(t *testing.T) {
	dir := NewRAMDirectory()
	lock, err := dir.AcquireLock("write.lock", 0)
	require.NoError(t, err)
	defer lock.Release()

	start := time.Now()
	_, err = dir.AcquireLock("write.lock", 20*time.Millisecond)
	require.Error(t, err)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
