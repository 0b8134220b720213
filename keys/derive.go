// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keys implements Key Derivation and Key Resolver:
// deterministic signing keypairs from a single master secret, and the
// normalisation of a caller's per-chain options into a tentative key
// record the Chain Factory can act on.
package keys

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/hkdf"
)

// chainNamespace is the fixed derivation tag for chain keypairs.
const chainNamespace = "chainstore"

// discoveryTag is the HMAC key used to turn a public key into its
// announcement-safe discovery key.
const discoveryTag = "bitweb"

// KeyPair is a signing keypair as returned by the crypto collaborator.
type KeyPair struct {
	PublicKey []byte // 32 bytes
	SecretKey []byte // 64 bytes
}

// DiscoveryKey is a 32 byte HMAC(public_key, "bitweb")-style tag: a
// deterministic, collision-resistant function of PublicKey alone.
type DiscoveryKey [32]byte

// Hex renders the discovery key the way cache ids and on-disk paths
// key it throughout the store.
func (d DiscoveryKey) Hex() string { return hex.EncodeToString(d[:]) }

// RandomBytes returns n cryptographically random bytes, used both for
// fresh master secrets and for anonymous (nameless) chain derivation.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Derive produces a deterministic 32 byte seed from a master secret
// and a name, scoped by namespace so that unrelated derivation
// purposes sharing the same master secret never collide.
func Derive(namespace string, masterSecret []byte, name []byte) [32]byte {
	info := append([]byte(namespace), name...)
	kdf := hkdf.New(sha256.New, masterSecret, nil, info)
	var seed [32]byte
	// hkdf.New never returns an error on Read for a fixed-size digest.
	_, _ = io.ReadFull(kdf, seed[:])
	return seed
}

// DeriveChainKeyPair derives the signing keypair a chain of the given
// name would have under masterSecret.
func DeriveChainKeyPair(masterSecret []byte, name []byte) KeyPair {
	seed := Derive(chainNamespace, masterSecret, name)
	secretKey := ed25519.NewKeyFromSeed(seed[:])
	publicKey := secretKey[32:]
	return KeyPair{PublicKey: append([]byte(nil), publicKey...), SecretKey: secretKey}
}

// NewKeyPair generates a fresh random ed25519 keypair, used when the
// caller supplies neither a name nor existing key material.
func NewKeyPair() (KeyPair, error) {
	public, secret, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{PublicKey: public, SecretKey: secret}, nil
}

// DiscoveryKeyOf computes the discovery key of a public key alone,
// independent of any secret material.
func DiscoveryKeyOf(publicKey []byte) DiscoveryKey {
	mac := hmac.New(sha256.New, []byte(discoveryTag))
	mac.Write(publicKey)
	var dk DiscoveryKey
	copy(dk[:], mac.Sum(nil))
	return dk
}
