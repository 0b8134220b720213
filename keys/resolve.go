// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keys

import (
	"encoding/base32"
	"encoding/hex"

	"golang.org/x/crypto/ed25519"

	"github.com/bitmark-inc/chainstore/fault"
)

// GetOptions is the polymorphic per-get input a caller may supply: the
// union normalised before any other logic sees it.
type GetOptions struct {
	Key          []byte  // {key: k}
	DiscoveryKey []byte  // {discoveryKey: dk}
	KeyPair      *KeyPair // {keyPair: {pk, sk}}
	Name         string  // {name: n}
	Default      bool    // {default: true, name: n}
	HasName      bool    // distinguishes an explicit empty Name from "no name given"
}

// Resolved is the tentative key record produced by the resolver; any
// field may be nil/zero depending on which case in Resolve produced it.
type Resolved struct {
	PublicKey    []byte
	SecretKey    []byte
	DiscoveryKey DiscoveryKey
	Name         []byte // present only when derived from the master secret
}

// Resolve normalises a GetOptions union into a key record. masterSecret
// is required only for the two cases that derive from a name.
func Resolve(opts GetOptions, masterSecret []byte) (Resolved, error) {
	switch {
	case opts.KeyPair != nil:
		return Resolved{
			PublicKey:    opts.KeyPair.PublicKey,
			SecretKey:    opts.KeyPair.SecretKey,
			DiscoveryKey: DiscoveryKeyOf(opts.KeyPair.PublicKey),
		}, nil

	case len(opts.Key) > 0:
		publicKey, err := decodeKey(opts.Key)
		if err != nil {
			return Resolved{}, err
		}
		return Resolved{
			PublicKey:    publicKey,
			DiscoveryKey: DiscoveryKeyOf(publicKey),
		}, nil

	case opts.Default && !opts.HasName:
		// default:true without a name
		return Resolved{}, fault.ErrMissingName

	case opts.HasName:
		name := []byte(opts.Name)
		kp := DeriveChainKeyPair(masterSecret, name)
		return Resolved{
			PublicKey:    kp.PublicKey,
			SecretKey:    kp.SecretKey,
			DiscoveryKey: DiscoveryKeyOf(kp.PublicKey),
			Name:         name,
		}, nil

	case len(opts.DiscoveryKey) > 0:
		var dk DiscoveryKey
		copy(dk[:], opts.DiscoveryKey)
		return Resolved{DiscoveryKey: dk}, nil

	default:
		// empty: random name, then derive as if it had been named
		name, err := RandomBytes(32)
		if err != nil {
			return Resolved{}, err
		}
		kp := DeriveChainKeyPair(masterSecret, name)
		return Resolved{
			PublicKey:    kp.PublicKey,
			SecretKey:    kp.SecretKey,
			DiscoveryKey: DiscoveryKeyOf(kp.PublicKey),
			Name:         name,
		}, nil
	}
}

// decodeKey normalises a caller-supplied key to a raw public key: bytes
// already the right length pass through unchanged, otherwise it's
// treated as a hex or base32 (with or without padding) encoding of
// one, the way a key travels once it's been printed for a peer to
// paste back in. get({key: base32(k)}) must dedup to the same handle
// as get({key: k}).
func decodeKey(raw []byte) ([]byte, error) {
	if len(raw) == ed25519.PublicKeySize {
		return raw, nil
	}

	if decoded, err := hex.DecodeString(string(raw)); err == nil && len(decoded) == ed25519.PublicKeySize {
		return decoded, nil
	}

	for _, enc := range []*base32.Encoding{base32.StdEncoding, base32.StdEncoding.WithPadding(base32.NoPadding)} {
		if decoded, err := enc.DecodeString(string(raw)); err == nil && len(decoded) == ed25519.PublicKeySize {
			return decoded, nil
		}
	}

	return nil, fault.ErrBadKey
}

// BytesOptions treats a bare byte string as {key: bytes}.
func BytesOptions(key []byte) GetOptions {
	return GetOptions{Key: key}
}

// NameOptions treats a name as the derive-from-master row.
func NameOptions(name string) GetOptions {
	return GetOptions{Name: name, HasName: true}
}
