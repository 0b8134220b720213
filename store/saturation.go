// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/chainstore/background"
	"github.com/bitmark-inc/chainstore/cache"
)

// saturationInterval is how often the janitor checks whether the
// cache holds more entries than its capacity.
const saturationInterval = 30 * time.Second

// saturationLogger is a background.Processor that periodically warns
// when the cache has soft-exceeded its capacity: pinned entries are
// never evicted, so pinned plus evictable entries together can exceed
// it (see cache.Cache's doc comment).
type saturationLogger struct {
	cache *cache.Cache
	log   *logger.L
}

// Run implements background.Processor.
func (s *saturationLogger) Run(args interface{}, shutdown <-chan struct{}) {
	ticker := time.NewTicker(saturationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.cache.Len(); n > s.cache.Capacity() {
				s.log.Warnf("cache saturated: %d entries pinned over capacity %d", n, s.cache.Capacity())
			}
		case <-shutdown:
			return
		}
	}
}

func startSaturationLogger(c *cache.Cache, log *logger.L) *background.T {
	return background.Start(background.Processes{&saturationLogger{cache: c, log: log}}, nil)
}
