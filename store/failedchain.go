// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"context"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/keys"
)

// failedChain satisfies chain.Chain for a passive discovery-key lookup
// that found no local record. It never becomes ready; it delivers err
// exactly once on Err and is already closed. Callers that check
// Ready()/Err() observe precisely the same shape a chain that failed
// during Open would present, without the engine ever instantiating a
// real one.
type failedChain struct {
	dk     keys.DiscoveryKey
	err    error
	errCh  chan error
	closed chan struct{}
}

func newFailedChain(dk keys.DiscoveryKey, err error) *failedChain {
	c := &failedChain{
		dk:     dk,
		err:    err,
		errCh:  make(chan error, 1),
		closed: make(chan struct{}),
	}
	c.errCh <- err
	close(c.closed)
	return c
}

func (c *failedChain) Open(context.Context, chain.StorageFunc, []byte, chain.Options) error { return nil }
func (c *failedChain) Ready() <-chan struct{}                                               { return nil }
func (c *failedChain) Err() <-chan error                                                    { return c.errCh }
func (c *failedChain) Closed() <-chan struct{}                                               { return c.closed }
func (c *failedChain) Close(context.Context) error                                          { return nil }
func (c *failedChain) Replicate(context.Context, bool, chain.PeerStream) error               { return c.err }
func (c *failedChain) PublicKey() []byte                                                     { return nil }
func (c *failedChain) SecretKey() []byte                                                     { return nil }
func (c *failedChain) DiscoveryKey() [32]byte                                                { return c.dk }
func (c *failedChain) Length() uint64                                                        { return 0 }
func (c *failedChain) Writable() bool                                                        { return false }
