// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package replicate_test

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p-core/peer"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/keys"
	"github.com/bitmark-inc/chainstore/replicate"
	"github.com/bitmark-inc/logger"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "replicate-test-log")
	if err != nil {
		panic(err)
	}

	if err := logger.Initialise(logger.Configuration{
		Directory: dir,
		File:      "test.log",
		Size:      20000,
		Count:     10,
	}); err != nil {
		panic(err)
	}

	code := m.Run()
	logger.Finalise()
	os.RemoveAll(dir)
	os.Exit(code)
}

type fakeStream struct {
	dks    chan [32]byte
	done   chan struct{}
	closed int32
}

func newFakeStream() *fakeStream {
	return &fakeStream{dks: make(chan [32]byte, 4), done: make(chan struct{})}
}

func (s *fakeStream) DiscoveryKeys() <-chan [32]byte { return s.dks }
func (s *fakeStream) Done() <-chan struct{}          { return s.done }
func (s *fakeStream) CloseChannel([32]byte) error {
	atomic.AddInt32(&s.closed, 1)
	return nil
}

// identifiedStream additionally satisfies chain.PeerIdentifier.
type identifiedStream struct {
	*fakeStream
	id peer.ID
}

func (s *identifiedStream) PeerID() peer.ID { return s.id }

type fakeChain struct {
	ready     chan struct{}
	replicate int32
	dk        [32]byte
}

func newFakeChain(dk [32]byte) *fakeChain {
	c := &fakeChain{ready: make(chan struct{}), dk: dk}
	close(c.ready)
	return c
}

func (f *fakeChain) Open(context.Context, chain.StorageFunc, []byte, chain.Options) error { return nil }
func (f *fakeChain) Ready() <-chan struct{}                                               { return f.ready }
func (f *fakeChain) Err() <-chan error                                                    { return nil }
func (f *fakeChain) Closed() <-chan struct{}                                              { return nil }
func (f *fakeChain) Close(context.Context) error                                         { return nil }
func (f *fakeChain) Replicate(context.Context, bool, chain.PeerStream) error {
	atomic.AddInt32(&f.replicate, 1)
	return nil
}
func (f *fakeChain) PublicKey() []byte      { return nil }
func (f *fakeChain) SecretKey() []byte      { return nil }
func (f *fakeChain) DiscoveryKey() [32]byte { return f.dk }
func (f *fakeChain) Length() uint64         { return 0 }
func (f *fakeChain) Writable() bool         { return false }

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestReplicateInjectsKnownChains(t *testing.T) {
	ch := newFakeChain([32]byte{1})
	stream := newFakeStream()

	m := replicate.New(
		func(context.Context, keys.GetOptions) (chain.Chain, error) { return nil, nil },
		func(context.Context, [32]byte) (bool, error) { return false, nil },
	)
	m.Replicate(context.Background(), true, stream, []chain.Chain{ch})

	waitFor(t, func() bool { return atomic.LoadInt32(&ch.replicate) == 1 })
}

func TestDiscoveryKeyRequestClosesUnknownChannel(t *testing.T) {
	stream := newFakeStream()
	m := replicate.New(
		func(context.Context, keys.GetOptions) (chain.Chain, error) { return nil, nil },
		func(context.Context, [32]byte) (bool, error) { return false, nil },
	)
	m.Replicate(context.Background(), false, stream, nil)

	stream.dks <- [32]byte{9}
	waitFor(t, func() bool { return atomic.LoadInt32(&stream.closed) == 1 })
}

func TestDiscoveryKeyRequestInjectsLocalChain(t *testing.T) {
	dk := [32]byte{2}
	ch := newFakeChain(dk)
	stream := newFakeStream()

	m := replicate.New(
		func(_ context.Context, opts keys.GetOptions) (chain.Chain, error) { return ch, nil },
		func(context.Context, [32]byte) (bool, error) { return true, nil },
	)
	m.Replicate(context.Background(), false, stream, nil)

	stream.dks <- dk
	waitFor(t, func() bool { return atomic.LoadInt32(&ch.replicate) == 1 })
}

func TestInjectFansOutToActiveStreams(t *testing.T) {
	stream1, stream2 := newFakeStream(), newFakeStream()
	m := replicate.New(
		func(context.Context, keys.GetOptions) (chain.Chain, error) { return nil, nil },
		func(context.Context, [32]byte) (bool, error) { return false, nil },
	)
	m.Replicate(context.Background(), true, stream1, nil)
	m.Replicate(context.Background(), true, stream2, nil)

	ch := newFakeChain([32]byte{3})
	m.Inject(context.Background(), ch)

	waitFor(t, func() bool { return atomic.LoadInt32(&ch.replicate) == 2 })
}

func TestReplicateOntoIdentifiedStream(t *testing.T) {
	ch := newFakeChain([32]byte{4})
	stream := &identifiedStream{fakeStream: newFakeStream(), id: peer.ID("test-peer")}

	m := replicate.New(
		func(context.Context, keys.GetOptions) (chain.Chain, error) { return nil, nil },
		func(context.Context, [32]byte) (bool, error) { return false, nil },
	)
	m.Replicate(context.Background(), true, stream, []chain.Chain{ch})

	waitFor(t, func() bool { return atomic.LoadInt32(&ch.replicate) == 1 })
}

func TestStreamRemovedOnDone(t *testing.T) {
	stream := newFakeStream()
	m := replicate.New(
		func(context.Context, keys.GetOptions) (chain.Chain, error) { return nil, nil },
		func(context.Context, [32]byte) (bool, error) { return false, nil },
	)
	m.Replicate(context.Background(), true, stream, nil)
	waitFor(t, func() bool { return m.ActiveStreamCount() == 1 })

	close(stream.done)
	waitFor(t, func() bool { return m.ActiveStreamCount() == 0 })
}
