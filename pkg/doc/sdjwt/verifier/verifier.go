/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package verifier checks SD-JWT VC presentations: issuer signature, disclosed
// claim coverage and the key-binding JWT against the holder key bound in the
// credential's cnf claim.
package verifier

import (
	"crypto"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"

	"github.com/trustbloc/wallet-engine/pkg/doc/sdjwt/common"
	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

var defaultSigningAlgorithms = []string{"ES256"} //nolint:gochecknoglobals

// parseOpts holds verification options.
type parseOpts struct {
	issuerPublicKey   *jose.JSONWebKey
	signingAlgorithms []string
	requiredClaimKeys []string
	requireKeyBinding bool
	expectedAudience  string
	expectedNonce     string
}

// ParseOpt is a verification option.
type ParseOpt func(opts *parseOpts)

// WithIssuerPublicKey supplies the issuer key for signature verification. When
// absent, only structural validation is performed.
func WithIssuerPublicKey(key *jose.JSONWebKey) ParseOpt {
	return func(opts *parseOpts) {
		opts.issuerPublicKey = key
	}
}

// WithSigningAlgorithms overrides the secure signing algorithm allow-list.
func WithSigningAlgorithms(algorithms []string) ParseOpt {
	return func(opts *parseOpts) {
		opts.signingAlgorithms = algorithms
	}
}

// WithRequiredClaimKeys requires every named claim to be disclosed.
func WithRequiredClaimKeys(keys []string) ParseOpt {
	return func(opts *parseOpts) {
		opts.requiredClaimKeys = keys
	}
}

// WithRequireKeyBinding requires a valid key-binding JWT signed by the holder
// key from the credential's cnf claim.
func WithRequireKeyBinding() ParseOpt {
	return func(opts *parseOpts) {
		opts.requireKeyBinding = true
	}
}

// WithExpectedAudience checks the KB-JWT aud value.
func WithExpectedAudience(audience string) ParseOpt {
	return func(opts *parseOpts) {
		opts.expectedAudience = audience
	}
}

// WithExpectedNonce checks the KB-JWT nonce value.
func WithExpectedNonce(nonce string) ParseOpt {
	return func(opts *parseOpts) {
		opts.expectedNonce = nonce
	}
}

// Validate checks structural well-formedness of an SD-JWT (issuance or
// presentation form) and, when an issuer key is supplied, the issuer
// signature.
func Validate(serialized string, opts ...ParseOpt) error {
	pOpts := &parseOpts{
		signingAlgorithms: defaultSigningAlgorithms,
	}

	for _, opt := range opts {
		opt(pOpts)
	}

	cfi := common.ParseCombinedFormatForIssuance(serialized)

	return validateSDJWT(cfi.SDJWT, cfi.Disclosures, pOpts)
}

// VerifyPresentation checks a presented SD-JWT: issuer signature, disclosed
// claim coverage against the required claim keys and, when requested, the
// trailing key-binding JWT (signature against the cnf holder key, sd_hash over
// the presented prefix, optional aud/nonce match).
func VerifyPresentation(serialized string, opts ...ParseOpt) error {
	pOpts := &parseOpts{
		signingAlgorithms: defaultSigningAlgorithms,
	}

	for _, opt := range opts {
		opt(pOpts)
	}

	cfp := common.ParseCombinedFormatForPresentation(serialized)

	if err := validateSDJWT(cfp.SDJWT, cfp.Disclosures, pOpts); err != nil {
		return err
	}

	parsed, err := common.ParseJWT(cfp.SDJWT)
	if err != nil {
		return walleterror.NewCodecError(walleterror.SDJWTComponent, "VerifyPresentation", err)
	}

	if err = verifyRequiredClaims(cfp.Disclosures, parsed.Payload, pOpts); err != nil {
		return walleterror.NewProtocolError(walleterror.SDJWTComponent, "VerifyPresentation", err)
	}

	if pOpts.requireKeyBinding {
		if err = verifyKeyBinding(cfp, parsed.Payload, pOpts); err != nil {
			return err
		}
	}

	return nil
}

func validateSDJWT(sdJWT string, disclosures []string, pOpts *parseOpts) error {
	parsed, err := common.ParseJWT(sdJWT)
	if err != nil {
		return walleterror.NewCodecError(walleterror.SDJWTComponent, "Validate", err)
	}

	if err = common.VerifySigningAlg(parsed.Headers, pOpts.signingAlgorithms); err != nil {
		return walleterror.NewCodecError(walleterror.SDJWTComponent, "Validate", err)
	}

	if err = checkForDuplicates(disclosures); err != nil {
		return walleterror.NewCodecError(walleterror.SDJWTComponent, "Validate", err)
	}

	if err = common.VerifyDisclosuresInSDJWT(disclosures, parsed.Payload); err != nil {
		return walleterror.NewCodecError(walleterror.SDJWTComponent, "Validate", err)
	}

	if pOpts.issuerPublicKey != nil {
		if err = common.VerifyJWTSignature(sdJWT, pOpts.issuerPublicKey); err != nil {
			return walleterror.NewCryptoError(walleterror.SDJWTComponent, "Validate", err)
		}
	}

	return nil
}

func verifyRequiredClaims(disclosures []string, payload map[string]interface{}, pOpts *parseOpts) error {
	if len(pOpts.requiredClaimKeys) == 0 {
		return nil
	}

	disclosed := make(map[string]bool)

	disclosureClaims, err := common.GetDisclosureClaims(disclosures)
	if err != nil {
		return err
	}

	for _, claim := range disclosureClaims {
		disclosed[claim.Name] = true
	}

	for name := range payload {
		if name != common.SDKey && name != common.SDAlgorithmKey {
			disclosed[name] = true
		}
	}

	var missing []string

	for _, required := range pOpts.requiredClaimKeys {
		if !disclosed[required] {
			missing = append(missing, required)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("required claim keys not disclosed: %s", strings.Join(missing, ", "))
	}

	return nil
}

func verifyKeyBinding(cfp *common.CombinedFormatForPresentation, payload map[string]interface{},
	pOpts *parseOpts) error {
	if cfp.KeyBinding == "" {
		return walleterror.NewProtocolError(walleterror.SDJWTComponent, "VerifyPresentation",
			fmt.Errorf("key-binding JWT is required but not present"))
	}

	holderKey, err := common.GetCNFJWK(payload)
	if err != nil {
		return walleterror.NewCodecError(walleterror.SDJWTComponent, "VerifyPresentation", err)
	}

	kbParsed, err := common.ParseJWT(cfp.KeyBinding)
	if err != nil {
		return walleterror.NewCodecError(walleterror.SDJWTComponent, "VerifyPresentation", err)
	}

	if typ, _ := kbParsed.Headers["typ"].(string); typ != common.KBJWTTypeHeader {
		return walleterror.NewCodecError(walleterror.SDJWTComponent, "VerifyPresentation",
			fmt.Errorf("key-binding JWT typ header %q must be %q", typ, common.KBJWTTypeHeader))
	}

	if err = common.VerifyJWTSignature(cfp.KeyBinding, holderKey); err != nil {
		return walleterror.NewCryptoError(walleterror.SDJWTComponent, "VerifyPresentation", err)
	}

	// sd_hash covers the presentation up to and including the last separator
	presentedPrefix := strings.TrimSuffix(cfp.Serialize(), cfp.KeyBinding)

	expectedSDHash, err := common.GetHash(crypto.SHA256, presentedPrefix)
	if err != nil {
		return walleterror.NewCryptoError(walleterror.SDJWTComponent, "VerifyPresentation", err)
	}

	sdHash, _ := kbParsed.Payload[common.SDHashKey].(string)
	if sdHash != expectedSDHash {
		return walleterror.NewProtocolError(walleterror.SDJWTComponent, "VerifyPresentation",
			fmt.Errorf("sd_hash mismatch: presentation does not match key-binding JWT"))
	}

	if pOpts.expectedAudience != "" {
		if aud, _ := kbParsed.Payload["aud"].(string); aud != pOpts.expectedAudience {
			return walleterror.NewProtocolError(walleterror.SDJWTComponent, "VerifyPresentation",
				fmt.Errorf("key-binding JWT audience %q does not match expected %q", aud, pOpts.expectedAudience))
		}
	}

	if pOpts.expectedNonce != "" {
		if nonce, _ := kbParsed.Payload["nonce"].(string); nonce != pOpts.expectedNonce {
			return walleterror.NewProtocolError(walleterror.SDJWTComponent, "VerifyPresentation",
				fmt.Errorf("key-binding JWT nonce does not match expected value"))
		}
	}

	return nil
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
