// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/chainstore/background"
	"github.com/bitmark-inc/chainstore/cache"
	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/keys"
	"github.com/bitmark-inc/chainstore/messagebus"
	"github.com/bitmark-inc/chainstore/replicate"
	"github.com/bitmark-inc/chainstore/storage"
)

// FeedEvent is published whenever a chain the engine instantiated
// becomes ready.
type FeedEvent struct {
	Chain   chain.Chain
	Options keys.GetOptions
}

// Engine is the single shared factory behind every namespaced View
// built against one storage root: it resolves keys, instantiates and
// caches chains, and keeps every live replication stream fed.
type Engine struct {
	ctx    context.Context
	cancel context.CancelFunc

	router   *storage.Router
	newChain func() chain.Chain
	extra    map[string]interface{}

	cache *cache.Cache
	mux   *replicate.Multiplexer

	feed   *messagebus.Bus
	errors *messagebus.Bus

	onUnknownKeypair func(keys.DiscoveryKey)

	openMu       sync.Mutex
	opened       bool
	openErr      error
	readyCh      chan struct{}
	masterSecret []byte
	fixedSecret  []byte

	getMu sync.Mutex

	janitor *background.T
	log     *logger.L
}

func newEngine(opts Options) (*Engine, error) {
	if opts.NewChain == nil {
		return nil, fault.ErrBadStorage
	}
	router, err := storage.FromOptions(opts.Storage)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		ctx:              ctx,
		cancel:           cancel,
		router:           router,
		newChain:         opts.NewChain,
		extra:            opts.Extra,
		feed:             messagebus.New(),
		errors:           messagebus.New(),
		onUnknownKeypair: opts.OnUnknownKeypair,
		readyCh:          make(chan struct{}),
		fixedSecret:      opts.MasterSecret,
		log:              logger.New("chainstore"),
	}
	e.cache = cache.New(opts.CacheSize, func(err error) { e.errors.Send(err) })
	e.mux = replicate.New(e.getForReplicate, e.existsOnDisk)
	e.janitor = startSaturationLogger(e.cache, e.log)
	return e, nil
}

// Open loads or generates the store's master secret. It is idempotent:
// a second call returns the first call's result without touching
// storage again.
func (e *Engine) Open(ctx context.Context) error {
	e.openMu.Lock()
	defer e.openMu.Unlock()

	if e.opened || e.openErr != nil {
		return e.openErr
	}

	if len(e.fixedSecret) == 32 {
		e.masterSecret = e.fixedSecret
		e.opened = true
		close(e.readyCh)
		return nil
	}

	h, err := e.router.MasterKey()
	if err != nil {
		e.openErr = err
		return err
	}
	defer h.Close()

	stat, err := h.Stat()
	if err != nil {
		e.openErr = err
		return err
	}

	var secret []byte
	if stat.Size < 32 {
		secret, err = keys.RandomBytes(32)
		if err != nil {
			e.openErr = err
			return err
		}
		if err := h.WriteAt(0, secret); err != nil {
			e.openErr = err
			return err
		}
	} else {
		secret, err = h.ReadAt(0, 32)
		if err != nil {
			e.openErr = err
			return err
		}
	}

	e.masterSecret = secret
	e.opened = true
	close(e.readyCh)
	return nil
}

// Ready completes once Open has finished successfully.
func (e *Engine) Ready() <-chan struct{} { return e.readyCh }

func (e *Engine) isOpened() bool {
	e.openMu.Lock()
	defer e.openMu.Unlock()
	return e.opened
}

// Get is the Chain Factory's single entry point: resolve keys, return
// the cached handle if one already exists, or instantiate, cache and
// wire a fresh one. It returns as soon as the chain accepts Open, not
// once it signals ready.
func (e *Engine) Get(ctx context.Context, getOpts keys.GetOptions, chainOpts chain.Options) (chain.Chain, error) {
	if !e.isOpened() {
		return nil, fault.ErrNotOpen
	}

	resolved, err := keys.Resolve(getOpts, e.masterSecret)
	if err != nil {
		return nil, err
	}
	id := resolved.DiscoveryKey.Hex()

	// create_if_missing reflects what the resolver alone produced,
	// before the storage shim had a chance to recover anything from
	// disk: a bare discovery key with nothing else is never allowed
	// to create a fresh chain.
	createIfMissing := len(resolved.PublicKey) > 0

	e.getMu.Lock()
	if ch, ok := e.cache.Get(id); ok {
		e.getMu.Unlock()
		return ch, nil
	}

	inner := e.router.Chain(id)
	shimFn, shimmed, err := storage.BuildShim(inner, e.masterSecret, resolved)
	if err != nil {
		e.getMu.Unlock()
		if err == fault.ErrUnknownKeypair {
			if e.onUnknownKeypair != nil {
				e.onUnknownKeypair(resolved.DiscoveryKey)
			}
			return newFailedChain(resolved.DiscoveryKey, err), nil
		}
		return nil, err
	}
	resolved = shimmed

	mergedExtra := mergeExtra(e.extra, chainOpts.Extra)
	chainOpts.PublicKey = resolved.PublicKey
	chainOpts.SecretKey = resolved.SecretKey
	chainOpts.CreateIfMissing = createIfMissing
	chainOpts.Extra = mergedExtra

	ch := e.newChain()
	e.cache.Set(id, ch)
	e.getMu.Unlock()

	if err := ch.Open(ctx, shimFn, resolved.PublicKey, chainOpts); err != nil {
		e.cache.Delete(id)
		return nil, err
	}

	go e.watch(id, ch, getOpts, resolved.DiscoveryKey)

	return ch, nil
}

// watch wires the ready/error/close observers the factory needs per
// freshly instantiated chain: feed + replication injection on ready,
// cache cleanup on error or close.
func (e *Engine) watch(id string, ch chain.Chain, getOpts keys.GetOptions, dk keys.DiscoveryKey) {
	select {
	case <-ch.Ready():
		e.feed.Send(FeedEvent{Chain: ch, Options: getOpts})
		e.mux.Inject(e.ctx, ch)
	case err, ok := <-ch.Err():
		e.cache.Delete(id)
		if ok && err != fault.ErrUnknownKeypair {
			e.errors.Send(err)
		} else if ok && e.onUnknownKeypair != nil {
			e.onUnknownKeypair(dk)
		}
		return
	case <-e.ctx.Done():
		return
	}

	select {
	case <-ch.Closed():
	case <-e.ctx.Done():
	}
	e.cache.Delete(id)
}

func (e *Engine) getForReplicate(ctx context.Context, opts keys.GetOptions) (chain.Chain, error) {
	return e.Get(ctx, opts, chain.Options{})
}

// existsOnDisk answers the replication multiplexer's check for a
// remote discovery-key announcement without instantiating a chain,
// and without creating anything: Router.Exists probes the key file's
// presence rather than opening it for read/write.
func (e *Engine) existsOnDisk(ctx context.Context, dk [32]byte) (bool, error) {
	id := keys.DiscoveryKey(dk).Hex()
	return e.router.Exists(id, "key")
}

// IsLoaded resolves opts and reports whether the cache already holds
// the resulting id. It has no side effects.
func (e *Engine) IsLoaded(getOpts keys.GetOptions) (bool, error) {
	resolved, err := keys.Resolve(getOpts, e.masterSecret)
	if err != nil {
		return false, err
	}
	return e.cache.Has(resolved.DiscoveryKey.Hex()), nil
}

// IsExternal is like IsLoaded but true only if some view currently
// owns a reference to the chain.
func (e *Engine) IsExternal(getOpts keys.GetOptions) (bool, error) {
	resolved, err := keys.Resolve(getOpts, e.masterSecret)
	if err != nil {
		return false, err
	}
	entry, ok := e.cache.Entry(resolved.DiscoveryKey.Hex())
	return ok && entry.Refs > 0, nil
}

// Close tears the engine down: every active replication stream stops
// hearing from it, then every live chain is closed. The first close
// error, if any, is returned; the rest are reported on the error bus.
func (e *Engine) Close(ctx context.Context) error {
	e.cancel()
	e.janitor.Stop()

	var firstErr error
	for _, id := range e.cache.Keys() {
		entry, ok := e.cache.Entry(id)
		if !ok {
			continue
		}
		if err := entry.Chain.Close(ctx); err != nil {
			if firstErr == nil {
				firstErr = err
			} else {
				e.log.Errorf("close chain %s failed: %s", id, err)
				e.errors.Send(err)
			}
		}
		e.cache.Delete(id)
	}
	return firstErr
}

func mergeExtra(base, override map[string]interface{}) map[string]interface{} {
	if len(base) == 0 {
		return override
	}
	merged := make(map[string]interface{}, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}
