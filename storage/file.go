// Copyright (c) 2014-2017 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/fault"
)

// NewFileFactory wraps dir into the default file-backed Storage
// factory for a router built from a directory path. Parent
// directories and the file itself are created when a handle is opened.
func NewFileFactory(dir string) Factory {
	return func(relativePath string) (chain.Storage, error) {
		return openFileHandle(filepath.Join(dir, relativePath))
	}
}

// fileExistsProbe checks for a file's presence under dir with a plain
// os.Stat, never creating the directory tree or the file itself the
// way openFileHandle's O_CREATE does — the non-mutating counterpart
// used for an existence-only check.
func fileExistsProbe(dir string) func(relativePath string) (bool, error) {
	return func(relativePath string) (bool, error) {
		_, err := os.Stat(filepath.Join(dir, relativePath))
		if err == nil {
			return true, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fault.IoError(err.Error())
	}
}

// fileHandle is the default chain.Storage backed by a plain os.File
// opened for random access.
type fileHandle struct {
	file *os.File
	lock *flock.Flock // nil unless this handle is the bitfield file
}

func openFileHandle(fullPath string) (chain.Storage, error) {
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fault.IoError(err.Error())
	}

	f, err := os.OpenFile(fullPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fault.IoError(err.Error())
	}

	h := &fileHandle{file: f}

	// the file lock is advisory and optional: absence must not fail
	// the open, since not every caller runs with flock available.
	if strings.HasSuffix(fullPath, "/bitfield") || filepath.Base(fullPath) == "bitfield" {
		l := flock.New(fullPath + ".lock")
		if ok, lockErr := l.TryLock(); lockErr == nil && ok {
			h.lock = l
		}
	}

	return h, nil
}

func (h *fileHandle) ReadAt(offset int64, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := h.file.ReadAt(buf, offset)
	if err == io.EOF && n == 0 {
		return nil, fault.ErrNotFound
	}
	if err != nil && err != io.EOF {
		return nil, fault.IoError(err.Error())
	}
	if n < length {
		// a short read, including EOF with n > 0, counts as not found
		// at this offset/length; the key-file probe relies on this.
		return nil, fault.ErrNotFound
	}
	return buf, nil
}

func (h *fileHandle) WriteAt(offset int64, data []byte) error {
	if _, err := h.file.WriteAt(data, offset); err != nil {
		return fault.IoError(err.Error())
	}
	return nil
}

func (h *fileHandle) Stat() (chain.Stat, error) {
	info, err := h.file.Stat()
	if err != nil {
		return chain.Stat{}, fault.IoError(err.Error())
	}
	return chain.Stat{Size: info.Size()}, nil
}

func (h *fileHandle) Close() error {
	if h.lock != nil {
		_ = h.lock.Unlock()
	}
	if err := h.file.Close(); err != nil {
		return fault.IoError(err.Error())
	}
	return nil
}
