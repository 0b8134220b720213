// Copyright (c) 2014-2017 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"sync"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/fault"
)

// memoryHandle is a chain.Storage backed by an in-memory byte slice.
// It backs NewMemoryFactory (used by tests in place of a real
// directory) and the key-aware shim's virtual "key"/"secret_key"
// records, which are resolved once and never touch disk again.
type memoryHandle struct {
	mu   sync.Mutex
	data []byte
}

func newMemoryHandle(initial []byte) *memoryHandle {
	return &memoryHandle{data: append([]byte(nil), initial...)}
}

func (h *memoryHandle) ReadAt(offset int64, length int) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if offset < 0 || int(offset) > len(h.data) {
		return nil, fault.ErrNotFound
	}
	end := int(offset) + length
	if end > len(h.data) {
		return nil, fault.ErrNotFound
	}
	out := make([]byte, length)
	copy(out, h.data[offset:end])
	return out, nil
}

func (h *memoryHandle) WriteAt(offset int64, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	end := int(offset) + len(data)
	if end > len(h.data) {
		grown := make([]byte, end)
		copy(grown, h.data)
		h.data = grown
	}
	copy(h.data[offset:end], data)
	return nil
}

func (h *memoryHandle) Stat() (chain.Stat, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return chain.Stat{Size: int64(len(h.data))}, nil
}

func (h *memoryHandle) Close() error { return nil }

// NewMemoryFactory is an in-memory Factory, for tests and for stores
// that never need to persist across process restarts.
func NewMemoryFactory() Factory {
	var mu sync.Mutex
	files := map[string]*memoryHandle{}
	return func(relativePath string) (chain.Storage, error) {
		mu.Lock()
		defer mu.Unlock()
		h, ok := files[relativePath]
		if !ok {
			h = newMemoryHandle(nil)
			files[relativePath] = h
		}
		return h, nil
	}
}
