// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chain declares the external contracts the chainstore engine
// builds on: the append-only log itself, and the byte-addressable
// storage it is built from. Neither is implemented here — chainstore
// is a factory and lifecycle manager, not a log or a filesystem; the
// block format, Merkle tree and sparse-replication strategy belong to
// whatever concrete type satisfies Chain.
package chain

import (
	"context"

	"github.com/libp2p/go-libp2p-core/peer"
)

// Options carries the user-supplied, opaque construction arguments for
// a chain together with the fields the factory fills in itself before
// handing them to the constructor (see step 5 of the design).
type Options struct {
	PublicKey       []byte
	SecretKey       []byte
	CreateIfMissing bool
	Sparse          bool
	Extra           map[string]interface{} // passed through untouched
}

// Storage is the random-access byte storage a Chain reads and writes
// its on-disk records through. One Storage corresponds to one logical
// filename inside a chain's directory (see storage.Router).
type Storage interface {
	ReadAt(offset int64, length int) ([]byte, error)
	WriteAt(offset int64, data []byte) error
	Stat() (Stat, error)
	Close() error
}

// Stat is the subset of file metadata a Chain needs from its Storage.
type Stat struct {
	Size int64
}

// StorageFunc resolves a chain-internal logical filename to a Storage
// handle. The Chain Factory supplies one of these per chain; it is the
// seam the key-aware shim (storage.Shim) is spliced into.
type StorageFunc func(name string) (Storage, error)

// Chain is the append-only, cryptographically-addressed log the
// chainstore engine instantiates, caches and replicates. It is
// constructed externally (the factory only calls Open) and reports
// its own readiness and failure asynchronously.
type Chain interface {
	// Open starts the chain against storage, returning once
	// construction has been accepted — not once it is ready. Errors
	// returned here are argument errors; asynchronous failures (e.g.
	// ErrUnknownKeypair) arrive on Err(), not here.
	Open(ctx context.Context, storage StorageFunc, publicKey []byte, opts Options) error

	// Ready completes once the chain has validated its keys against
	// storage and is safe to read, write or replicate.
	Ready() <-chan struct{}

	// Err yields at most one error, delivered once, if opening failed.
	// A chain that reaches Ready never sends on Err.
	Err() <-chan error

	// Closed completes once Close has finished tearing the chain down.
	Closed() <-chan struct{}

	Close(ctx context.Context) error

	// Replicate wires the chain onto a peer stream's sub-channel for
	// this chain's discovery key. isInitiator selects the handshake
	// role; this must only be called after Ready.
	Replicate(ctx context.Context, isInitiator bool, stream PeerStream) error

	PublicKey() []byte
	SecretKey() []byte
	DiscoveryKey() [32]byte
	Length() uint64
	Writable() bool
}

// PeerStream is the transport-level multiplexed connection a Chain
// replicates onto. One PeerStream can carry many chains at once, each
// addressed by discovery key; wire framing and sparse block exchange
// are entirely the PeerStream/Chain collaborators' concern.
type PeerStream interface {
	// DiscoveryKeys yields discovery keys the remote end announces,
	// for as long as the stream is open.
	DiscoveryKeys() <-chan [32]byte

	// CloseChannel closes only the sub-channel for dk, leaving the
	// rest of the stream (and any other chain on it) untouched.
	CloseChannel(dk [32]byte) error

	// Done fires once on finish, end or close — whichever happens
	// first — and never again.
	Done() <-chan struct{}
}

// PeerIdentifier is implemented by a PeerStream whose underlying
// transport is addressed by a libp2p peer ID. The multiplexer uses it
// only in its log lines; a PeerStream that
// doesn't implement it (e.g. an in-process or test stream) replicates
// exactly the same.
type PeerIdentifier interface {
	PeerID() peer.ID
}
