/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto_test

import (
	"crypto/ecdsa"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/wallet-engine/pkg/crypto"
	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

func TestGenerateKeyPair(t *testing.T) {
	keyPair, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	require.NotNil(t, keyPair.PublicKey)
	require.NotNil(t, keyPair.PrivateKey)
	require.Equal(t, keyPair.PublicKey.KeyID, keyPair.PrivateKey.KeyID)

	b, err := crypto.MarshalJWK(keyPair.PublicKey)
	require.NoError(t, err)

	var jwk map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &jwk))

	assert.Equal(t, "EC", jwk["kty"])
	assert.Equal(t, "P-256", jwk["crv"])
	// coordinates must be raw base64url, no padding artifacts
	assert.NotContains(t, jwk["x"], "=")
	assert.NotContains(t, jwk["y"], "=")

	_, ok := keyPair.PrivateKey.Key.(*ecdsa.PrivateKey)
	require.True(t, ok)
}

func TestSignVerify(t *testing.T) {
	keyPair, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	signer, err := crypto.NewES256Signer(keyPair.PrivateKey)
	require.NoError(t, err)

	message := []byte("credential binding proof")

	signature, err := signer.Sign(message)
	require.NoError(t, err)
	require.Len(t, signature, 64)

	require.True(t, crypto.Verify(keyPair.PublicKey, message, signature))

	t.Run("wrong message", func(t *testing.T) {
		require.False(t, crypto.Verify(keyPair.PublicKey, []byte("other"), signature))
	})

	t.Run("malformed signature", func(t *testing.T) {
		require.False(t, crypto.Verify(keyPair.PublicKey, message, []byte("short")))
		require.False(t, crypto.Verify(keyPair.PublicKey, message, nil))
	})

	t.Run("mismatched key", func(t *testing.T) {
		other, err := crypto.GenerateKeyPair()
		require.NoError(t, err)

		require.False(t, crypto.Verify(other.PublicKey, message, signature))
	})

	t.Run("signer rejects public key material", func(t *testing.T) {
		_, err := crypto.NewES256Signer(keyPair.PublicKey)
		require.Error(t, err)
		require.True(t, walleterror.IsCode(err, walleterror.CryptoError))
	})
}

func TestDigest(t *testing.T) {
	digest, err := crypto.Digest([]byte("abc"), crypto.SHA256Alg)
	require.NoError(t, err)
	require.Len(t, digest, 32)

	_, err = crypto.Digest([]byte("abc"), "md5")
	require.Error(t, err)
	require.True(t, walleterror.IsCode(err, walleterror.CryptoError))
}

func TestGenerateSalt(t *testing.T) {
	salt, err := crypto.GenerateSalt(16)
	require.NoError(t, err)
	require.Len(t, salt, 32) // hex-encoded

	other, err := crypto.GenerateSalt(16)
	require.NoError(t, err)
	require.NotEqual(t, salt, other)
}

func TestHashWithSalt(t *testing.T) {
	first, err := crypto.HashWithSalt("user@example.com", "")
	require.NoError(t, err)
	require.NotEmpty(t, first.Salt)

	// same value and salt reproduce the hash
	second, err := crypto.HashWithSalt("user@example.com", first.Salt)
	require.NoError(t, err)
	require.Equal(t, first.Hash, second.Hash)

	third, err := crypto.HashWithSalt("other@example.com", first.Salt)
	require.NoError(t, err)
	require.NotEqual(t, first.Hash, third.Hash)
}

func TestPasswordHash(t *testing.T) {
	hash, err := crypto.PasswordHash("123456")
	require.NoError(t, err)

	require.True(t, crypto.PasswordVerify("123456", hash))
	require.False(t, crypto.PasswordVerify("654321", hash))

	rehash, err := crypto.PasswordHash("123456")
	require.NoError(t, err)
	require.NotEqual(t, hash, rehash)
	require.True(t, crypto.PasswordVerify("123456", rehash))
}
