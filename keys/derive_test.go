// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keys

import (
	"bytes"
	"encoding/base32"
	"encoding/hex"
	"testing"
)

func TestDeriveChainKeyPairDeterministic(t *testing.T) {
	master := bytes.Repeat([]byte{0x42}, 32)

	a := DeriveChainKeyPair(master, []byte("default"))
	b := DeriveChainKeyPair(master, []byte("default"))
	if !bytes.Equal(a.PublicKey, b.PublicKey) {
		t.Fatalf("same master+name must derive the same public key")
	}

	c := DeriveChainKeyPair(master, []byte("other"))
	if bytes.Equal(a.PublicKey, c.PublicKey) {
		t.Fatalf("distinct names must derive distinct public keys")
	}

	otherMaster := bytes.Repeat([]byte{0x24}, 32)
	d := DeriveChainKeyPair(otherMaster, []byte("default"))
	if bytes.Equal(a.PublicKey, d.PublicKey) {
		t.Fatalf("distinct master secrets must derive distinct public keys")
	}
}

func TestDiscoveryKeyOfDeterministic(t *testing.T) {
	pk := []byte("some public key material, 40 bytes long!")
	if DiscoveryKeyOf(pk) != DiscoveryKeyOf(pk) {
		t.Fatalf("discovery key must be a pure function of the public key")
	}
}

func TestResolveMissingName(t *testing.T) {
	_, err := Resolve(GetOptions{Default: true}, nil)
	if err == nil {
		t.Fatalf("expected MissingName error")
	}
}

func TestResolveKey(t *testing.T) {
	key := bytes.Repeat([]byte{0x07}, 32)
	r, err := Resolve(BytesOptions(key), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(r.PublicKey, key) {
		t.Fatalf("expected public key to be passed through unchanged")
	}
	if r.SecretKey != nil {
		t.Fatalf("a bare key must not produce a secret key")
	}
}

func TestResolveKeyAcceptsHexAndBase32Encodings(t *testing.T) {
	key := bytes.Repeat([]byte{0x07}, 32)
	want := DiscoveryKeyOf(key)

	rHex, err := Resolve(BytesOptions([]byte(hex.EncodeToString(key))), nil)
	if err != nil {
		t.Fatalf("hex: unexpected error: %v", err)
	}
	if rHex.DiscoveryKey != want || !bytes.Equal(rHex.PublicKey, key) {
		t.Fatalf("hex-encoded key must resolve to the same handle as the raw key")
	}

	rBase32, err := Resolve(BytesOptions([]byte(base32.StdEncoding.EncodeToString(key))), nil)
	if err != nil {
		t.Fatalf("base32: unexpected error: %v", err)
	}
	if rBase32.DiscoveryKey != want || !bytes.Equal(rBase32.PublicKey, key) {
		t.Fatalf("base32-encoded key must resolve to the same handle as the raw key")
	}

	rBase32NoPad, err := Resolve(BytesOptions([]byte(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(key))), nil)
	if err != nil {
		t.Fatalf("base32 (no padding): unexpected error: %v", err)
	}
	if rBase32NoPad.DiscoveryKey != want {
		t.Fatalf("unpadded base32-encoded key must resolve to the same handle as the raw key")
	}
}

func TestResolveKeyRejectsGarbage(t *testing.T) {
	if _, err := Resolve(BytesOptions([]byte("not a key")), nil); err == nil {
		t.Fatalf("expected an error for key material that is neither raw nor a decodable encoding")
	}
}

func TestResolveEmptyProducesFullKeyPair(t *testing.T) {
	master := bytes.Repeat([]byte{0x01}, 32)
	r, err := Resolve(GetOptions{}, master)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.PublicKey) == 0 || len(r.SecretKey) == 0 {
		t.Fatalf("empty options must derive a full keypair")
	}
	if len(r.Name) == 0 {
		t.Fatalf("empty options must carry a random derivation name")
	}
}
