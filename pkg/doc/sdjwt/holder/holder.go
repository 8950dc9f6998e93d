/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package holder operates on received SD-JWT VCs: structural decoding, full
// disclosure resolution and assembling selective presentations with an
// optional key-binding JWT.
package holder

import (
	"crypto"
	"fmt"
	"time"

	"github.com/trustbloc/wallet-engine/pkg/doc/sdjwt/common"
	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

// Decoded is the structural decomposition of an SD-JWT VC: issuer-signed JWT
// header and payload plus the raw disclosures, without disclosure resolution.
type Decoded struct {
	Headers     map[string]interface{}
	Payload     map[string]interface{}
	Disclosures []string
}

// Parse decodes the combined format for issuance into its structural parts.
func Parse(serialized string) (*Decoded, error) {
	cfi := common.ParseCombinedFormatForIssuance(serialized)

	parsed, err := common.ParseJWT(cfi.SDJWT)
	if err != nil {
		return nil, walleterror.NewCodecError(walleterror.SDJWTComponent, "Parse", err)
	}

	return &Decoded{
		Headers:     parsed.Headers,
		Payload:     parsed.Payload,
		Disclosures: cfi.Disclosures,
	}, nil
}

// ResolveClaims resolves all disclosures against the payload's _sd digest
// references and returns the fully disclosed flat claim set (issuer view).
// An unresolvable digest is a codec error.
func ResolveClaims(serialized string) (map[string]interface{}, error) {
	decoded, err := Parse(serialized)
	if err != nil {
		return nil, err
	}

	if err = checkForDuplicates(decoded.Disclosures); err != nil {
		return nil, walleterror.NewCodecError(walleterror.SDJWTComponent, "ResolveClaims", err)
	}

	if err = common.VerifyDisclosuresInSDJWT(decoded.Disclosures, decoded.Payload); err != nil {
		return nil, walleterror.NewCodecError(walleterror.SDJWTComponent, "ResolveClaims", err)
	}

	disclosureClaims, err := common.GetDisclosureClaims(decoded.Disclosures)
	if err != nil {
		return nil, walleterror.NewCodecError(walleterror.SDJWTComponent, "ResolveClaims", err)
	}

	claims := make(map[string]interface{})

	for name, value := range decoded.Payload {
		if name == common.SDKey || name == common.SDAlgorithmKey {
			continue
		}

		claims[name] = value
	}

	for _, claim := range disclosureClaims {
		claims[claim.Name] = claim.Value
	}

	return claims, nil
}

// KeyBindingPayload is the payload of a key-binding JWT.
type KeyBindingPayload struct {
	Audience string `json:"aud"`
	Nonce    string `json:"nonce"`
	IssuedAt int64  `json:"iat"`
	SDHash   string `json:"sd_hash"`
}

// KeyBindingInfo holds the signer and payload for an optional key-binding JWT.
type KeyBindingInfo struct {
	Signer   common.Signer
	Audience string
	Nonce    string
	IssuedAt int64
}

// presentationOpts holds options for CreatePresentation.
type presentationOpts struct {
	keyBinding *KeyBindingInfo
}

// Option is a presentation option.
type Option func(opts *presentationOpts)

// WithKeyBinding appends a key-binding JWT to the presentation.
func WithKeyBinding(info *KeyBindingInfo) Option {
	return func(opts *presentationOpts) {
		opts.keyBinding = info
	}
}

// CreatePresentation assembles the combined format for presentation from the
// disclosures selected by the presentation frame (claim name -> include).
// Disclosures whose claim name maps to false, or is absent from the frame, are
// dropped. An optional key-binding JWT scopes the presentation to a verifier
// and nonce.
func CreatePresentation(serialized string, frame map[string]bool, opts ...Option) (string, error) {
	pOpts := &presentationOpts{}

	for _, opt := range opts {
		opt(pOpts)
	}

	cfi := common.ParseCombinedFormatForIssuance(serialized)

	if _, err := common.ParseJWT(cfi.SDJWT); err != nil {
		return "", walleterror.NewCodecError(walleterror.SDJWTComponent, "CreatePresentation", err)
	}

	disclosureClaims, err := common.GetDisclosureClaims(cfi.Disclosures)
	if err != nil {
		return "", walleterror.NewCodecError(walleterror.SDJWTComponent, "CreatePresentation", err)
	}

	var selected []string

	for _, claim := range disclosureClaims {
		if frame[claim.Name] {
			selected = append(selected, claim.Disclosure)
		}
	}

	cfp := &common.CombinedFormatForPresentation{
		SDJWT:       cfi.SDJWT,
		Disclosures: selected,
	}

	if pOpts.keyBinding != nil {
		kbJWT, err := CreateKeyBinding(cfp.Serialize(), pOpts.keyBinding)
		if err != nil {
			return "", err
		}

		cfp.KeyBinding = kbJWT
	}

	return cfp.Serialize(), nil
}

// CreateKeyBinding creates a key-binding JWT over the presented SD-JWT string
// up to (not including) the KB-JWT itself. The sd_hash binds this exact
// presentation instance; aud and nonce bind the verifier and freshness.
func CreateKeyBinding(presentation string, info *KeyBindingInfo) (string, error) {
	sdHash, err := common.GetHash(crypto.SHA256, presentation)
	if err != nil {
		return "", walleterror.NewCryptoError(walleterror.SDJWTComponent, "CreateKeyBinding", err)
	}

	issuedAt := info.IssuedAt
	if issuedAt == 0 {
		issuedAt = time.Now().Unix()
	}

	payload := map[string]interface{}{
		"aud":            info.Audience,
		"nonce":          info.Nonce,
		"iat":            issuedAt,
		common.SDHashKey: sdHash,
	}

	headers := map[string]interface{}{
		"typ": common.KBJWTTypeHeader,
	}

	kbJWT, err := common.SignJWT(payload, headers, info.Signer)
	if err != nil {
		return "", walleterror.NewCryptoError(walleterror.SDJWTComponent, "CreateKeyBinding", err)
	}

	return kbJWT, nil
}

func checkForDuplicates(values []string) error {
	valuesMap := make(map[string]bool)

	for _, val := range values {
		if _, ok := valuesMap[val]; ok {
			return fmt.Errorf("duplicate disclosure value found %v", val)
		}

		valuesMap[val] = true
	}

	return nil
}
