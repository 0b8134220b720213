// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/keys"
)

// Options configures a store built with New. Storage and NewChain are
// the two external collaborators every store needs; everything else
// has a usable zero value.
type Options struct {
	// Storage is either a storage.Factory-shaped func(string)
	// (chain.Storage, error) or a directory path string. Anything
	// else makes New return fault.ErrBadStorage.
	Storage interface{}

	// NewChain constructs a blank, unopened chain. The store only
	// ever calls its Open method; the block format, Merkle tree and
	// replication strategy belong entirely to what this returns.
	// Required.
	NewChain func() chain.Chain

	// MasterSecret, if 32 bytes, is used as-is instead of loading or
	// generating the on-disk master_key file.
	MasterSecret []byte

	// CacheSize bounds the zero-ref LRU half of the chain cache.
	// Defaults to cache.DefaultSize.
	CacheSize int

	// OnUnknownKeypair, if set, is called whenever a passive
	// discovery-key lookup finds no local record. It is a diagnostic
	// hook, not an error path: the chain simply does not exist here.
	OnUnknownKeypair func(discoveryKey keys.DiscoveryKey)

	// Extra is merged into every chain's chain.Options.Extra unless a
	// call overrides it with its own.
	Extra map[string]interface{}
}
