// Copyright (c) 2014-2017 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/keys"
)

// on-disk tag for the "key" record, disambiguating a stored
// derivation name from a stored raw public key.
const (
	keyRecordName      byte = 0x01
	keyRecordPublicKey byte = 0x02
)

// BuildShim implements step 4: it intercepts the "key" and
// "secret_key" logical filenames, resolving (and persisting) the
// chain's real keypair before the chain ever sees them, and passes
// every other filename straight through to inner.
//
// It returns the StorageFunc the chain should be constructed with, and
// the Resolved record updated with whatever the shim discovered on
// disk (so the factory can re-check the discovery key invariant).
func BuildShim(inner chain.StorageFunc, masterSecret []byte, resolved keys.Resolved) (chain.StorageFunc, keys.Resolved, error) {
	keyFile, err := inner("key")
	if err != nil {
		return nil, resolved, err
	}
	defer keyFile.Close()

	stat, err := keyFile.Stat()
	if err != nil {
		return nil, resolved, err
	}

	if stat.Size > 1 {
		record, err := keyFile.ReadAt(0, int(stat.Size))
		if err != nil {
			return nil, resolved, err
		}

		switch record[0] {
		case keyRecordName:
			name := record[1:]
			kp := keys.DeriveChainKeyPair(masterSecret, name)
			dk := keys.DiscoveryKeyOf(kp.PublicKey)
			if dk != resolved.DiscoveryKey {
				return nil, resolved, fault.ErrWrongNameStored
			}
			resolved.PublicKey = kp.PublicKey
			resolved.SecretKey = kp.SecretKey
			resolved.Name = name

		case keyRecordPublicKey:
			resolved.PublicKey = record[1:]
		}
	} else if len(resolved.PublicKey) > 0 {
		// nothing persisted yet: write what the resolver produced.
		var writeRecord []byte
		if len(resolved.Name) > 0 {
			writeRecord = append([]byte{keyRecordName}, resolved.Name...)
		} else {
			writeRecord = append([]byte{keyRecordPublicKey}, resolved.PublicKey...)
		}
		if err := keyFile.WriteAt(0, writeRecord); err != nil {
			return nil, resolved, err
		}
		if len(resolved.SecretKey) > 0 {
			secretFile, err := inner("secret_key")
			if err != nil {
				return nil, resolved, err
			}
			err = secretFile.WriteAt(0, resolved.SecretKey)
			secretFile.Close()
			if err != nil {
				return nil, resolved, err
			}
		}
	} else {
		// only a discovery key was known and nothing is on disk: this
		// chain does not exist locally.
		return nil, resolved, fault.ErrUnknownKeypair
	}

	if len(resolved.SecretKey) == 0 {
		// the public key may be known while the secret key is not
		// (externally supplied, or recovered without a secret);
		// re-read whatever secret_key record exists, if any.
		if secretFile, err := inner("secret_key"); err == nil {
			if st, err := secretFile.Stat(); err == nil && st.Size > 0 {
				if data, err := secretFile.ReadAt(0, int(st.Size)); err == nil {
					resolved.SecretKey = data
				}
			}
			secretFile.Close()
		}
	}

	publicKey := resolved.PublicKey
	secretKey := resolved.SecretKey

	shimFunc := func(name string) (chain.Storage, error) {
		switch name {
		case "key":
			return newMemoryHandle(publicKey), nil
		case "secret_key":
			if len(secretKey) == 0 {
				return nil, fault.ErrNotFound
			}
			return newMemoryHandle(secretKey), nil
		default:
			return inner(name)
		}
	}
	return shimFunc, resolved, nil
}
