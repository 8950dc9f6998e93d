/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"math/big"

	"github.com/go-jose/go-jose/v3"

	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

const es256SignatureSize = 64

// ES256Signer signs arbitrary byte input with an ECDSA P-256 key held in JWK
// form, producing the raw R||S signature used in JWS compact serialization.
type ES256Signer struct {
	privateKey *ecdsa.PrivateKey
}

// NewES256Signer validates the key material and returns a signer.
func NewES256Signer(key *jose.JSONWebKey) (*ES256Signer, error) {
	pk, err := ecdsaPrivateKey(key)
	if err != nil {
		return nil, walleterror.NewCryptoError(walleterror.CryptoComponent, "NewES256Signer", err)
	}

	return &ES256Signer{privateKey: pk}, nil
}

// Sign signs message with ECDSA-SHA256 and returns the 64-byte R||S signature.
func (s *ES256Signer) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)

	r, sv, err := ecdsa.Sign(randReader(), s.privateKey, digest[:])
	if err != nil {
		return nil, walleterror.NewCryptoError(walleterror.CryptoComponent, "Sign", err)
	}

	signature := make([]byte, es256SignatureSize)
	r.FillBytes(signature[:es256SignatureSize/2])
	sv.FillBytes(signature[es256SignatureSize/2:])

	return signature, nil
}

// Headers returns the JOSE headers contributed by the signer.
func (s *ES256Signer) Headers() map[string]interface{} {
	return map[string]interface{}{
		"alg": string(jose.ES256),
	}
}

// Verify checks an ECDSA-SHA256 signature in raw R||S form against the public
// JWK. It returns false, never an error, for malformed signatures or
// mismatched keys.
func Verify(publicKey *jose.JSONWebKey, message, signature []byte) bool {
	pk, err := ecdsaPublicKey(publicKey)
	if err != nil {
		return false
	}

	if len(signature) != es256SignatureSize {
		return false
	}

	r := new(big.Int).SetBytes(signature[:es256SignatureSize/2])
	s := new(big.Int).SetBytes(signature[es256SignatureSize/2:])

	digest := sha256.Sum256(message)

	return ecdsa.Verify(pk, digest[:], r, s)
}
