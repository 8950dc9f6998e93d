/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package dataprotect encrypts credential fields at rest. Every sensitive
// column in the wallet database goes through a Protector keyed by the
// database key held in the secure store.
package dataprotect

// Protector encrypts and decrypts byte payloads with a long-lived key.
type Protector interface {
	Encrypt(data []byte) ([]byte, error)
	Decrypt(data []byte) ([]byte, error)
}
