/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

// SHA256Alg is the only digest algorithm the engine supports.
const SHA256Alg = "sha-256"

func randReader() io.Reader {
	return rand.Reader
}

// Digest hashes data with the named algorithm.
func Digest(data []byte, alg string) ([]byte, error) {
	if alg != SHA256Alg {
		return nil, walleterror.NewCryptoError(walleterror.CryptoComponent, "Digest",
			fmt.Errorf("unsupported digest algorithm %q", alg))
	}

	digest := sha256.Sum256(data)

	return digest[:], nil
}

// RandomBytes returns n CSPRNG bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)

	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, walleterror.NewCryptoError(walleterror.CryptoComponent, "RandomBytes", err)
	}

	return b, nil
}

// GenerateSalt returns length CSPRNG bytes hex-encoded.
func GenerateSalt(length int) (string, error) {
	b, err := RandomBytes(length)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// SaltedHash is the result of HashWithSalt.
type SaltedHash struct {
	Hash string
	Salt string
}

// HashWithSalt computes hex(sha256(salt || value)). When salt is empty a fresh
// 16-byte salt is generated. Used for email-binding verification, not for
// secrets that need a slow hash.
func HashWithSalt(value, salt string) (*SaltedHash, error) {
	if salt == "" {
		var err error

		salt, err = GenerateSalt(16)
		if err != nil {
			return nil, err
		}
	}

	digest := sha256.Sum256([]byte(salt + value))

	return &SaltedHash{
		Hash: hex.EncodeToString(digest[:]),
		Salt: salt,
	}, nil
}
