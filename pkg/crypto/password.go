/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

// bcryptCost stays fixed so stored PIN hashes verify across releases.
const bcryptCost = 12

// PasswordHash hashes a PIN or password with bcrypt. Hashing the same value
// twice yields different strings (salted).
func PasswordHash(value string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(value), bcryptCost)
	if err != nil {
		return "", walleterror.NewCryptoError(walleterror.CryptoComponent, "PasswordHash", err)
	}

	return string(hash), nil
}

// PasswordVerify reports whether value matches the bcrypt hash.
func PasswordVerify(value, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(value)) == nil
}
