// Copyright (c) 2014-2018 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package cache implements the Chain Cache: a reference-counted
// map from hex(discovery_key) to live chain handle, with LRU eviction
// restricted to entries with zero references.
//
//	id (hex discovery key)     refs      LRU-eligible
//	|___ pinned entries        >= 1      no  (held by a view)
//	|___ evictable entries     == 0      yes (golang-lru backed)
//
// An entry moves between the pinned set and the LRU as its refcount
// crosses zero in either direction; it never lives in both at once.
package cache
