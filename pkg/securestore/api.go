/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package securestore holds the wallet's small secrets: the database
// encryption key, OAuth tokens, the in-flight issuance session, the PIN hash
// and the hashed recovery email. Implementations are expected to sit on top
// of platform keychain storage; the file store is for CLI use.
package securestore

import "errors"

// ErrDataNotFound is returned by Get when no value exists for the key.
var ErrDataNotFound = errors.New("data not found")

// Well-known store keys.
const (
	// DBKeyID holds the 32-byte AES key protecting database columns.
	DBKeyID = "wallet.db-key"
	// AccessTokenID holds the OAuth2 access token from the last issuance.
	AccessTokenID = "wallet.access-token"
	// RefreshTokenID holds the OAuth2 refresh token when the issuer grants one.
	RefreshTokenID = "wallet.refresh-token"
	// IDTokenID holds the OIDC id token when the issuer returns one.
	IDTokenID = "wallet.id-token"
	// IssuanceSessionID holds the serialized in-flight issuance attempt.
	IssuanceSessionID = "wallet.issuance-session"
	// PINHashID holds the bcrypt hash of the wallet PIN.
	PINHashID = "wallet.pin-hash"
	// EmailHashID holds the salted hash of the bound recovery email.
	EmailHashID = "wallet.email-hash"
)

// SecureKeyValueStore is the wallet's secret storage contract.
type SecureKeyValueStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}
