/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dataprotect

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// AESKeyLength is the key length for AES-256-GCM.
const AESKeyLength = 32

// AES protects data with AES-256-GCM under an externally supplied key. The
// nonce is prepended to the ciphertext.
type AES struct {
	key []byte
}

// NewAES returns a protector keyed with a 32-byte key.
func NewAES(key []byte) (*AES, error) {
	if len(key) != AESKeyLength {
		return nil, fmt.Errorf("aes key must be %d bytes, got %d", AESKeyLength, len(key))
	}

	return &AES{key: key}, nil
}

// GenerateKey creates a fresh random AES-256 key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, AESKeyLength)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}

	return key, nil
}

func (a *AES) Encrypt(data []byte) ([]byte, error) {
	block, err := aes.NewCipher(a.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, data, nil), nil
}

func (a *AES) Decrypt(data []byte) ([]byte, error) {
	block, err := aes.NewCipher(a.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(data) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, err
	}

	return plaintext, nil
}
