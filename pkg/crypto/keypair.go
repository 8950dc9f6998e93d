/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package crypto provides the cryptographic primitives used by the wallet
// engine: ES256 key pairs in JWK form, raw ECDSA signing and verification,
// digests, CSPRNG helpers and PIN hashing.
package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v3"
	"github.com/google/uuid"

	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

// KeyPair holds an ECDSA P-256 key pair in JWK form. A fresh pair is generated
// per credential request and bound to the credential record it produces; the
// private half never leaves the device.
type KeyPair struct {
	PublicKey  *jose.JSONWebKey `json:"public_key"`
	PrivateKey *jose.JSONWebKey `json:"private_key"`
}

// GenerateKeyPair generates an ECDSA P-256 (ES256) key pair and exports both
// halves as JWKs with raw (unpadded) base64url coordinate encoding.
func GenerateKeyPair() (*KeyPair, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, walleterror.NewCryptoError(walleterror.CryptoComponent, "GenerateKeyPair", err)
	}

	keyID := uuid.NewString()

	return &KeyPair{
		PrivateKey: &jose.JSONWebKey{
			Key:       privateKey,
			KeyID:     keyID,
			Algorithm: string(jose.ES256),
			Use:       "sig",
		},
		PublicKey: &jose.JSONWebKey{
			Key:       &privateKey.PublicKey,
			KeyID:     keyID,
			Algorithm: string(jose.ES256),
			Use:       "sig",
		},
	}, nil
}

// ParseJWK parses a JWK from its JSON serialization.
func ParseJWK(b []byte) (*jose.JSONWebKey, error) {
	key := &jose.JSONWebKey{}

	if err := key.UnmarshalJSON(b); err != nil {
		return nil, walleterror.NewCryptoError(walleterror.CryptoComponent, "ParseJWK", err)
	}

	return key, nil
}

// MarshalJWK serializes a JWK to JSON.
func MarshalJWK(key *jose.JSONWebKey) ([]byte, error) {
	if key == nil {
		return nil, walleterror.NewCryptoError(walleterror.CryptoComponent, "MarshalJWK",
			errors.New("key is nil"))
	}

	b, err := json.Marshal(key)
	if err != nil {
		return nil, walleterror.NewCryptoError(walleterror.CryptoComponent, "MarshalJWK", err)
	}

	return b, nil
}

func ecdsaPrivateKey(key *jose.JSONWebKey) (*ecdsa.PrivateKey, error) {
	if key == nil {
		return nil, errors.New("key is nil")
	}

	pk, ok := key.Key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key type %T is not an ECDSA private key", key.Key)
	}

	if pk.Curve != elliptic.P256() {
		return nil, fmt.Errorf("unsupported curve %s, P-256 required", pk.Curve.Params().Name)
	}

	return pk, nil
}

func ecdsaPublicKey(key *jose.JSONWebKey) (*ecdsa.PublicKey, error) {
	if key == nil {
		return nil, errors.New("key is nil")
	}

	switch pk := key.Key.(type) {
	case *ecdsa.PublicKey:
		if pk.Curve != elliptic.P256() {
			return nil, fmt.Errorf("unsupported curve %s, P-256 required", pk.Curve.Params().Name)
		}

		return pk, nil
	case *ecdsa.PrivateKey:
		return &pk.PublicKey, nil
	default:
		return nil, fmt.Errorf("key type %T is not an ECDSA public key", key.Key)
	}
}
