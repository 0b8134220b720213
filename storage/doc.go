// Copyright (c) 2014-2017 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage implements the Storage Router: it maps a
// logical chain-internal filename to a random-access byte handle at a
// deterministic, fanout-bounded path, and wraps a plain directory path
// into a file-backed Storage factory when the caller doesn't supply
// one of their own.
//
// Fixed path convention:
//
//	master_key                 - the store's 32 byte master secret
//	d[0:2]/d[2:4]/d/<name>      - chain files, d = hex(discovery_key)
//
// The two-level prefix directories bound directory fanout on
// case-insensitive filesystems, the way bitmarkd's pool prefixes bound
// LevelDB key fanout (see the single-byte prefixes this package used
// to route through before being adapted to per-chain directories).
package storage
