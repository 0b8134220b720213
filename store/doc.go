// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package store ties keys, storage, cache and replicate together into
// the chainstore's public surface: Engine is the single shared
// factory and lifecycle owner behind a storage root; View is the
// namespace-qualified facade every caller actually holds.
package store
