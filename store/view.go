// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/keys"
)

// View is the user-facing facade onto a shared Engine: it owns a
// subset of the engine's chains, supplies a namespace-qualified
// default, and forwards everything else to the engine it was built
// from.
type View struct {
	engine *Engine
	name   string
	parent *View

	mu    sync.Mutex
	owned map[string]chain.Chain
}

func newRootView(engine *Engine) *View {
	return &View{engine: engine, name: "default", owned: make(map[string]chain.Chain)}
}

// New builds a store: a root View over a freshly constructed Engine.
// Opening the master secret happens in the background; until Ready()
// completes, Get and Default return fault.ErrNotOpen.
func New(opts Options) (*View, error) {
	engine, err := newEngine(opts)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := engine.Open(engine.ctx); err != nil {
			engine.errors.Send(err)
		}
	}()
	return newRootView(engine), nil
}

// Ready completes once the store's master secret has been loaded or
// generated.
func (v *View) Ready() <-chan struct{} { return v.engine.Ready() }

// Feed yields every chain this store instantiates, paired with the
// options it was instantiated from, as each one becomes ready.
func (v *View) Feed(buffer int) <-chan interface{} { return v.engine.feed.Chan(buffer) }

// Errors yields I/O and cryptographic errors this store's chains and
// cache raise asynchronously.
func (v *View) Errors(buffer int) <-chan interface{} { return v.engine.errors.Chan(buffer) }

// Get resolves getOpts against the shared engine and folds the result
// into this view's owned set, incrementing its cache reference the
// first time this view sees the chain.
func (v *View) Get(ctx context.Context, getOpts keys.GetOptions, chainOpts chain.Options) (chain.Chain, error) {
	ch, err := v.engine.Get(ctx, getOpts, chainOpts)
	if err != nil {
		return nil, err
	}
	v.maybeIncrement(ch)
	return ch, nil
}

// Default is Get with the view's own name folded into getOpts as the
// derivation name: get({...getOpts, name: view.name}). An explicit
// Key, DiscoveryKey or KeyPair in getOpts still takes precedence over
// the forced name, since Resolve checks those cases first — this is
// how a peer adopts another store's default chain by key, via
// Default(ctx, keys.BytesOptions(other.PublicKey()), ...).
func (v *View) Default(ctx context.Context, getOpts keys.GetOptions, chainOpts chain.Options) (chain.Chain, error) {
	getOpts.Name = v.name
	getOpts.HasName = true
	return v.Get(ctx, getOpts, chainOpts)
}

func (v *View) maybeIncrement(ch chain.Chain) {
	id := keys.DiscoveryKey(ch.DiscoveryKey()).Hex()

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.owned[id]; ok {
		return
	}
	v.owned[id] = ch
	v.engine.cache.Increment(id)
}

// Namespace returns a new View scoped under this one. child names are
// concatenated with ":" once this view is itself namespaced (i.e. not
// the root); an empty child gets a random 32-byte hex name.
func (v *View) Namespace(child string) (*View, error) {
	if child == "" {
		random, err := keys.RandomBytes(32)
		if err != nil {
			return nil, err
		}
		child = hex.EncodeToString(random)
	}

	name := child
	if v.parent != nil {
		name = v.name + ":" + child
	}
	return &View{engine: v.engine, name: name, parent: v, owned: make(map[string]chain.Chain)}, nil
}

// Replicate fans this view's chains onto stream: every cache entry
// with refs > 0 for the root view, or only this view's owned chains
// for a namespaced one.
func (v *View) Replicate(isInitiator bool, stream chain.PeerStream) chain.PeerStream {
	var chains []chain.Chain

	if v.parent == nil {
		for _, id := range v.engine.cache.PinnedIDs() {
			if entry, ok := v.engine.cache.Entry(id); ok {
				chains = append(chains, entry.Chain)
			}
		}
	} else {
		v.mu.Lock()
		chains = make([]chain.Chain, 0, len(v.owned))
		for _, ch := range v.owned {
			chains = append(chains, ch)
		}
		v.mu.Unlock()
	}

	return v.engine.mux.Replicate(v.engine.ctx, isInitiator, stream, chains)
}

// List snapshots the chains this view currently owns.
func (v *View) List() []chain.Chain {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]chain.Chain, 0, len(v.owned))
	for _, ch := range v.owned {
		out = append(out, ch)
	}
	return out
}

// IsLoaded reports whether the shared cache already holds getOpts'
// resolved id, with no side effects.
func (v *View) IsLoaded(getOpts keys.GetOptions) (bool, error) { return v.engine.IsLoaded(getOpts) }

// IsExternal is like IsLoaded but true only if some view owns a
// reference to the chain.
func (v *View) IsExternal(getOpts keys.GetOptions) (bool, error) {
	return v.engine.IsExternal(getOpts)
}

// Close releases this view's references. A namespaced view simply
// decrements refs for everything it owns; closing the root view tears
// down the whole engine, destroying every replication stream and
// closing every live chain.
func (v *View) Close(ctx context.Context) error {
	v.mu.Lock()
	owned := v.owned
	v.owned = make(map[string]chain.Chain)
	v.mu.Unlock()

	if v.parent != nil {
		for id := range owned {
			v.engine.cache.Decrement(id)
		}
		return nil
	}
	return v.engine.Close(ctx)
}
