// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package replicate implements the Replication Multiplexer: it
// fans every open chain onto every live peer stream, and answers a
// remote peer's discovery-key announcements by lazily instantiating
// (or declining) the chain they name. Grounded on the active-stream
// bookkeeping in bitmarkd's p2p.Node (a mutex-guarded map of live
// peers) and the add/remove idiom in p2p/peerStore.go.
package replicate

import (
	"context"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/libp2p/go-libp2p-core/peer"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/keys"
)

// GetFunc resolves a chain through the factory, the way store.Engine
// exposes its Get for the multiplexer's discovery-key path.
type GetFunc func(ctx context.Context, opts keys.GetOptions) (chain.Chain, error)

// ExistsFunc answers check-if-exists-on-disk for a discovery
// key, without instantiating the chain.
type ExistsFunc func(ctx context.Context, dk [32]byte) (bool, error)

type streamState struct {
	stream      chain.PeerStream
	isInitiator bool
	peerID      peer.ID // zero value if stream doesn't implement PeerIdentifier
}

func peerIDOf(stream chain.PeerStream) peer.ID {
	if id, ok := stream.(chain.PeerIdentifier); ok {
		return id.PeerID()
	}
	return ""
}

// Multiplexer owns the set of live peer streams and every chain
// injected onto them.
type Multiplexer struct {
	mu      sync.Mutex
	streams map[chain.PeerStream]*streamState

	get    GetFunc
	exists ExistsFunc
	log    *logger.L
}

// New builds a Multiplexer. get and exists bind back into the Chain
// Factory (store.Engine); they must not be nil.
func New(get GetFunc, exists ExistsFunc) *Multiplexer {
	return &Multiplexer{
		streams: make(map[chain.PeerStream]*streamState),
		get:     get,
		exists:  exists,
		log:     logger.New("replicate"),
	}
}

// Replicate registers stream as active, replicates every chain in
// chains onto it once each is ready, and starts the goroutine that
// answers the remote end's discovery-key requests for as long as the
// stream lives. It returns immediately; replication proceeds in the
// background.
func (m *Multiplexer) Replicate(ctx context.Context, isInitiator bool, stream chain.PeerStream, chains []chain.Chain) chain.PeerStream {
	st := &streamState{stream: stream, isInitiator: isInitiator, peerID: peerIDOf(stream)}

	m.mu.Lock()
	m.streams[stream] = st
	m.mu.Unlock()

	if st.peerID != "" {
		m.log.Infof("replicating onto peer %s (%d chains)", st.peerID, len(chains))
	}

	for _, ch := range chains {
		go m.replicateOnto(ctx, st, ch)
	}
	go m.pump(ctx, st)

	return stream
}

// Inject replicates a single, freshly-instantiated chain onto every
// currently active stream, called by the factory right after a chain
// becomes ready.
func (m *Multiplexer) Inject(ctx context.Context, ch chain.Chain) {
	m.mu.Lock()
	states := make([]*streamState, 0, len(m.streams))
	for _, st := range m.streams {
		states = append(states, st)
	}
	m.mu.Unlock()

	for _, st := range states {
		go m.replicateOnto(ctx, st, ch)
	}
}

// ActiveStreamCount reports how many streams are currently registered
// (diagnostic / test use only).
func (m *Multiplexer) ActiveStreamCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streams)
}

func (m *Multiplexer) replicateOnto(ctx context.Context, st *streamState, ch chain.Chain) {
	select {
	case <-ch.Ready():
	case <-ctx.Done():
		return
	}
	if err := ch.Replicate(ctx, st.isInitiator, st.stream); err != nil {
		if st.peerID != "" {
			m.log.Errorf("replicate onto peer %s failed: %s", st.peerID, err)
		} else {
			m.log.Errorf("replicate onto stream failed: %s", err)
		}
	}
}

// pump answers the remote end's discovery-key announcements until the
// stream ends, then removes it from the active set.
func (m *Multiplexer) pump(ctx context.Context, st *streamState) {
	defer m.remove(st.stream)

	dks := st.stream.DiscoveryKeys()
	done := st.stream.Done()
	for {
		select {
		case dk, ok := <-dks:
			if !ok {
				return
			}
			go m.handleDiscoveryKey(ctx, st, dk)
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *Multiplexer) handleDiscoveryKey(ctx context.Context, st *streamState, dk [32]byte) {
	exists, err := m.exists(ctx, dk)
	if err != nil {
		m.log.Errorf("check-if-exists for discovery key failed: %s", err)
		_ = st.stream.CloseChannel(dk)
		return
	}
	if !exists {
		_ = st.stream.CloseChannel(dk)
		return
	}

	ch, err := m.get(ctx, keys.GetOptions{DiscoveryKey: dk[:]})
	if err != nil {
		// nothing local to replicate, so just leave the sub-channel
		// alone. (store.Engine reports an UnknownKeypair miss as a
		// chain that never becomes ready, not as an error, so that
		// case reaches replicateOnto below and waits there until ctx
		// ends.)
		return
	}
	m.replicateOnto(ctx, st, ch)
}

func (m *Multiplexer) remove(stream chain.PeerStream) {
	m.mu.Lock()
	delete(m.streams, stream)
	m.mu.Unlock()
}
