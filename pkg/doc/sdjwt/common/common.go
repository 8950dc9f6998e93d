/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package common holds the pieces of the SD-JWT combined format shared by the
// issuer, holder and verifier sides: serialization, disclosure decoding and
// digest handling.
package common

import (
	"crypto"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// CombinedFormatSeparator is the disclosure separator.
const (
	CombinedFormatSeparator = "~"

	SDAlgorithmKey = "_sd_alg"
	SDKey          = "_sd"
	SDHashKey      = "sd_hash"
	CNFKey         = "cnf"

	// SDJWTTypeHeader is the typ header of an issuer-signed SD-JWT VC.
	SDJWTTypeHeader = "vc+sd-jwt"
	// KBJWTTypeHeader is the typ header of a key-binding JWT.
	KBJWTTypeHeader = "kb+jwt"

	disclosureParts = 3
	saltIndex       = 0
	nameIndex       = 1
	valueIndex      = 2
)

// CombinedFormatForIssuance holds the issuer-signed JWT and all disclosures.
type CombinedFormatForIssuance struct {
	SDJWT       string
	Disclosures []string
}

// Serialize assembles the combined format for issuance.
func (cf *CombinedFormatForIssuance) Serialize() string {
	serialized := cf.SDJWT
	for _, disclosure := range cf.Disclosures {
		serialized += CombinedFormatSeparator + disclosure
	}

	return serialized
}

// CombinedFormatForPresentation holds the issuer-signed JWT, the selected
// disclosures and an optional key-binding JWT.
type CombinedFormatForPresentation struct {
	SDJWT       string
	Disclosures []string
	KeyBinding  string
}

// Serialize assembles the combined format for presentation. The serialization
// always ends with a separator before the (possibly empty) key-binding JWT.
func (cf *CombinedFormatForPresentation) Serialize() string {
	serialized := cf.SDJWT
	for _, disclosure := range cf.Disclosures {
		serialized += CombinedFormatSeparator + disclosure
	}

	return serialized + CombinedFormatSeparator + cf.KeyBinding
}

// ParseCombinedFormatForIssuance splits a combined format for issuance into parts.
func ParseCombinedFormatForIssuance(serialized string) *CombinedFormatForIssuance {
	parts := strings.Split(serialized, CombinedFormatSeparator)

	var disclosures []string
	if len(parts) > 1 {
		disclosures = parts[1:]
	}

	return &CombinedFormatForIssuance{SDJWT: parts[0], Disclosures: disclosures}
}

// ParseCombinedFormatForPresentation splits a combined format for presentation
// into parts. The element after the last separator is the key-binding JWT,
// empty when the presentation carries none.
func ParseCombinedFormatForPresentation(serialized string) *CombinedFormatForPresentation {
	parts := strings.Split(serialized, CombinedFormatSeparator)

	var disclosures []string
	if len(parts) > 2 {
		disclosures = parts[1 : len(parts)-1]
	}

	var keyBinding string
	if len(parts) > 1 {
		keyBinding = parts[len(parts)-1]
	}

	return &CombinedFormatForPresentation{SDJWT: parts[0], Disclosures: disclosures, KeyBinding: keyBinding}
}

// DisclosureClaim is a decoded disclosure.
type DisclosureClaim struct {
	Disclosure string
	Salt       string
	Name       string
	Value      interface{}
}

// GetDisclosureClaims decodes disclosures.
func GetDisclosureClaims(disclosures []string) ([]*DisclosureClaim, error) {
	var claims []*DisclosureClaim

	for _, disclosure := range disclosures {
		claim, err := getDisclosureClaim(disclosure)
		if err != nil {
			return nil, err
		}

		claims = append(claims, claim)
	}

	return claims, nil
}

func getDisclosureClaim(disclosure string) (*DisclosureClaim, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(disclosure)
	if err != nil {
		return nil, fmt.Errorf("decode disclosure: %w", err)
	}

	var disclosureArr []interface{}

	if err = json.Unmarshal(decoded, &disclosureArr); err != nil {
		return nil, fmt.Errorf("unmarshal disclosure array: %w", err)
	}

	if len(disclosureArr) != disclosureParts {
		return nil, fmt.Errorf("disclosure array size[%d] must be %d", len(disclosureArr), disclosureParts)
	}

	salt, ok := disclosureArr[saltIndex].(string)
	if !ok {
		return nil, fmt.Errorf("disclosure salt type[%T] must be string", disclosureArr[saltIndex])
	}

	name, ok := disclosureArr[nameIndex].(string)
	if !ok {
		return nil, fmt.Errorf("disclosure name type[%T] must be string", disclosureArr[nameIndex])
	}

	return &DisclosureClaim{Disclosure: disclosure, Salt: salt, Name: name, Value: disclosureArr[valueIndex]}, nil
}

// GetHash hashes value with the given hash function and returns the raw
// base64url encoding of the result.
func GetHash(hash crypto.Hash, value string) (string, error) {
	if !hash.Available() {
		return "", fmt.Errorf("hash function not available for: %d", hash)
	}

	h := hash.New()

	if _, err := h.Write([]byte(value)); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

// GetCryptoHash maps an _sd_alg value to a hash function. Only sha-256 is
// deemed supported.
func GetCryptoHash(sdAlg string) (crypto.Hash, error) {
	if strings.EqualFold(sdAlg, crypto.SHA256.String()) {
		return crypto.SHA256, nil
	}

	return 0, fmt.Errorf("%s '%s' not supported", SDAlgorithmKey, sdAlg)
}

// GetSDAlg reads the _sd_alg claim from an SD-JWT payload.
func GetSDAlg(claims map[string]interface{}) (string, error) {
	obj, ok := claims[SDAlgorithmKey]
	if !ok {
		return "", fmt.Errorf("%s must be present in SD-JWT", SDAlgorithmKey)
	}

	str, ok := obj.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", SDAlgorithmKey)
	}

	return str, nil
}

// GetDisclosureDigests collects all _sd digests from a payload, descending
// into nested objects.
func GetDisclosureDigests(claims map[string]interface{}) (map[string]bool, error) {
	digests := make(map[string]bool)

	if err := collectDigests(claims, digests); err != nil {
		return nil, err
	}

	return digests, nil
}

func collectDigests(claims map[string]interface{}, digests map[string]bool) error {
	for key, value := range claims {
		if key == SDKey {
			arr, err := stringArray(value)
			if err != nil {
				return fmt.Errorf("get disclosure digests: %w", err)
			}

			for _, digest := range arr {
				digests[digest] = true
			}

			continue
		}

		if nested, ok := value.(map[string]interface{}); ok {
			if err := collectDigests(nested, digests); err != nil {
				return err
			}
		}
	}

	return nil
}

// VerifyDisclosuresInSDJWT checks that every disclosure's digest is referenced
// by the SD-JWT payload.
func VerifyDisclosuresInSDJWT(disclosures []string, claims map[string]interface{}) error {
	sdAlg, err := GetSDAlg(claims)
	if err != nil {
		return err
	}

	cryptoHash, err := GetCryptoHash(sdAlg)
	if err != nil {
		return err
	}

	claimsDisclosureDigests, err := GetDisclosureDigests(claims)
	if err != nil {
		return err
	}

	for _, disclosure := range disclosures {
		digest, err := GetHash(cryptoHash, disclosure)
		if err != nil {
			return err
		}

		if _, ok := claimsDisclosureDigests[digest]; !ok {
			return fmt.Errorf("disclosure digest '%s' not found in SD-JWT disclosure digests", digest)
		}
	}

	return nil
}

func stringArray(entry interface{}) ([]string, error) {
	if entry == nil {
		return nil, nil
	}

	entries, ok := entry.([]interface{})
	if !ok {
		return nil, fmt.Errorf("entry type[%T] is not an array", entry)
	}

	var result []string

	for _, e := range entries {
		eStr, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("entry item type[%T] is not a string", e)
		}

		result = append(result, eStr)
	}

	return result, nil
}
