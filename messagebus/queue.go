// Copyright (c) 2014-2016 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messagebus

import "sync"

// internal constants
const (
	// DefaultBuffer is the per-listener channel depth used when a
	// caller doesn't need to tune it.
	DefaultBuffer = 16
)

// Bus is a fan-out broadcast channel: every item sent is delivered to
// every currently-registered listener. A send with no listeners is
// simply dropped — the engine's feed/error events are notifications,
// not a durable log. Used by store.Engine for the "feed" and "error"
// events the engine emits.
type Bus struct {
	mu        sync.Mutex
	listeners []chan interface{}
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Chan registers a new listener and returns its channel. buffer sizes
// the channel so a slow listener doesn't block Send; once full,
// further sends to that listener are dropped rather than blocking the
// producer.
func (b *Bus) Chan(buffer int) <-chan interface{} {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan interface{}, buffer)

	b.mu.Lock()
	b.listeners = append(b.listeners, ch)
	b.mu.Unlock()

	return ch
}

// Send delivers item to every current listener, dropping it for any
// listener whose buffer is full.
func (b *Bus) Send(item interface{}) {
	b.mu.Lock()
	listeners := append([]chan interface{}(nil), b.listeners...)
	b.mu.Unlock()

	for _, ch := range listeners {
		select {
		case ch <- item:
		default:
		}
	}
}
