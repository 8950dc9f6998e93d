/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"

	"github.com/trustbloc/wallet-engine/pkg/crypto"
)

const jwtParts = 3

// AlgorithmNone must never be accepted on a verification path.
const AlgorithmNone = "none"

// Signer signs the JWS signing input. Headers contributes JOSE protected
// headers (at least alg).
type Signer interface {
	Sign(data []byte) ([]byte, error)
	Headers() map[string]interface{}
}

// SignJWT builds a compact JWS over the given claims. Headers supplied by the
// caller are merged over the signer's headers.
func SignJWT(claims map[string]interface{}, headers map[string]interface{}, signer Signer) (string, error) {
	joseHeaders := make(map[string]interface{})

	for k, v := range signer.Headers() {
		joseHeaders[k] = v
	}

	for k, v := range headers {
		joseHeaders[k] = v
	}

	headerBytes, err := json.Marshal(joseHeaders)
	if err != nil {
		return "", fmt.Errorf("marshal jose headers: %w", err)
	}

	payloadBytes, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerBytes) + "." +
		base64.RawURLEncoding.EncodeToString(payloadBytes)

	signature, err := signer.Sign([]byte(signingInput))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(signature), nil
}

// ParsedJWT is the structural decomposition of a compact JWS, without any
// signature verification.
type ParsedJWT struct {
	Headers map[string]interface{}
	Payload map[string]interface{}
}

// ParseJWT decodes the header and payload parts of a compact JWS.
func ParseJWT(compact string) (*ParsedJWT, error) {
	parts := strings.Split(compact, ".")
	if len(parts) != jwtParts {
		return nil, fmt.Errorf("JWT of compact serialization must have %d parts, got %d", jwtParts, len(parts))
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("decode JWT header: %w", err)
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode JWT payload: %w", err)
	}

	parsed := &ParsedJWT{}

	if err = json.Unmarshal(headerBytes, &parsed.Headers); err != nil {
		return nil, fmt.Errorf("unmarshal JWT header: %w", err)
	}

	if err = json.Unmarshal(payloadBytes, &parsed.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal JWT payload: %w", err)
	}

	return parsed, nil
}

// VerifyJWTSignature checks the ES256 signature of a compact JWS against the
// given public JWK.
func VerifyJWTSignature(compact string, publicKey *jose.JSONWebKey) error {
	parts := strings.Split(compact, ".")
	if len(parts) != jwtParts {
		return fmt.Errorf("JWT of compact serialization must have %d parts, got %d", jwtParts, len(parts))
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return fmt.Errorf("decode JWT signature: %w", err)
	}

	if !crypto.Verify(publicKey, []byte(parts[0]+"."+parts[1]), signature) {
		return fmt.Errorf("invalid JWT signature")
	}

	return nil
}

// VerifySigningAlg ensures a signing algorithm was used that is deemed secure.
// The none algorithm must not be accepted.
func VerifySigningAlg(joseHeaders map[string]interface{}, secureAlgs []string) error {
	alg, ok := joseHeaders["alg"].(string)
	if !ok {
		return fmt.Errorf("missing alg")
	}

	if alg == AlgorithmNone {
		return fmt.Errorf("alg value cannot be 'none'")
	}

	for _, secure := range secureAlgs {
		if alg == secure {
			return nil
		}
	}

	return fmt.Errorf("alg '%s' is not in the allowed list", alg)
}

// GetCNFJWK extracts the holder public key bound in the payload's cnf claim.
func GetCNFJWK(payload map[string]interface{}) (*jose.JSONWebKey, error) {
	cnfObj, ok := payload[CNFKey]
	if !ok {
		return nil, fmt.Errorf("%s claim not found", CNFKey)
	}

	cnf, ok := cnfObj.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s claim type[%T] must be an object", CNFKey, cnfObj)
	}

	jwkObj, ok := cnf["jwk"]
	if !ok {
		return nil, fmt.Errorf("jwk not found in %s claim", CNFKey)
	}

	jwkBytes, err := json.Marshal(jwkObj)
	if err != nil {
		return nil, fmt.Errorf("marshal %s jwk: %w", CNFKey, err)
	}

	key := &jose.JSONWebKey{}
	if err = key.UnmarshalJSON(jwkBytes); err != nil {
		return nil, fmt.Errorf("unmarshal %s jwk: %w", CNFKey, err)
	}

	return key, nil
}
