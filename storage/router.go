// Copyright (c) 2014-2017 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"path"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/fault"
)

// MasterKeyFile is the fixed root-level file holding the store's
// master secret.
const MasterKeyFile = "master_key"

// Factory resolves a relative path inside the storage root to a byte
// handle. A Router is built from either a caller-supplied Factory or a
// plain directory.
type Factory func(relativePath string) (chain.Storage, error)

// Router routes chain-internal filenames to storage handles at the
// fixed path convention documented in doc.go.
type Router struct {
	factory Factory
	probe   func(relativePath string) (bool, error)
}

// NewRouter builds a Router from a caller-supplied factory. It has no
// cheaper existence probe than opening through factory itself, so
// Exists falls back to that for a Router built this way.
func NewRouter(factory Factory) *Router {
	return &Router{factory: factory}
}

// NewDirectoryRouter wraps a directory path into the default
// file-backed Factory, with a non-creating existence probe for Exists.
func NewDirectoryRouter(dir string) *Router {
	return &Router{factory: NewFileFactory(dir), probe: fileExistsProbe(dir)}
}

// FromOptions builds a Router from the union of constructor arguments
// the public Store API accepts: either a Factory function or a
// directory path. Anything else is fault.ErrBadStorage.
func FromOptions(storage interface{}) (*Router, error) {
	switch s := storage.(type) {
	case Factory:
		return NewRouter(s), nil
	case func(string) (chain.Storage, error):
		return NewRouter(Factory(s)), nil
	case string:
		return NewDirectoryRouter(s), nil
	default:
		return nil, fault.ErrBadStorage
	}
}

// MasterKey resolves the root-level master secret file.
func (r *Router) MasterKey() (chain.Storage, error) {
	return r.factory(MasterKeyFile)
}

// ChainPath returns the fanout directory a chain's files live under,
// d[0:2]/d[2:4]/d, for the given hex discovery key d.
func ChainPath(discoveryKeyHex string) string {
	d := discoveryKeyHex
	if len(d) < 4 {
		// pad defensively; discovery keys are always 64 hex chars,
		// but never let a short id panic on the slice below.
		d = d + "0000"
	}
	return path.Join(d[0:2], d[2:4], d)
}

// Chain returns a StorageFunc scoped to one chain's directory: calling
// it with a logical filename resolves to that file's handle.
func (r *Router) Chain(discoveryKeyHex string) chain.StorageFunc {
	base := ChainPath(discoveryKeyHex)
	return func(name string) (chain.Storage, error) {
		return r.factory(path.Join(base, name))
	}
}

// Exists reports whether name already has on-disk content under the
// chain addressed by discoveryKeyHex, without creating anything. A
// Router with a cheaper probe (the file-backed default) uses it;
// otherwise this opens through the factory and reads one byte, which
// creates whatever that factory's Open itself would create.
func (r *Router) Exists(discoveryKeyHex, name string) (bool, error) {
	relativePath := path.Join(ChainPath(discoveryKeyHex), name)

	if r.probe != nil {
		return r.probe(relativePath)
	}

	h, err := r.factory(relativePath)
	if err != nil {
		return false, err
	}
	defer h.Close()

	if _, err := h.ReadAt(0, 1); err != nil {
		if err == fault.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
