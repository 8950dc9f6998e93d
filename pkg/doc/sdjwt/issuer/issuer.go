/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package issuer creates signed SD-JWT Verifiable Credentials. Claims named by
// the disclosure frame become salted disclosures referenced from the payload's
// _sd digest array; the rest stay plain payload claims.
package issuer

import (
	"crypto"
	"encoding/base64"
	"encoding/json"
	"fmt"
	mathrand "math/rand"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v3"

	walletcrypto "github.com/trustbloc/wallet-engine/pkg/crypto"
	"github.com/trustbloc/wallet-engine/pkg/doc/sdjwt/common"
	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

const (
	defaultHash     = crypto.SHA256
	defaultSaltSize = 128 / 8
)

var mr = mathrand.New(mathrand.NewSource(time.Now().Unix())) //nolint:gochecknoglobals,gosec

// DisclosureFrame names the claims that must be selectively disclosable.
type DisclosureFrame []string

// newOpts holds options for creating a new SD-JWT.
type newOpts struct {
	Subject string
	JTI     string

	Expiry   int64
	IssuedAt int64

	HolderPublicKey *jose.JSONWebKey

	HashAlg crypto.Hash

	jsonMarshal func(v interface{}) ([]byte, error)
	getSalt     func() (string, error)
}

// NewOpt is an SD-JWT creation option.
type NewOpt func(opts *newOpts)

// WithJSONMarshaller overrides the disclosure marshaller.
func WithJSONMarshaller(jsonMarshal func(v interface{}) ([]byte, error)) NewOpt {
	return func(opts *newOpts) {
		opts.jsonMarshal = jsonMarshal
	}
}

// WithSaltFnc overrides the disclosure salt generator.
func WithSaltFnc(fnc func() (string, error)) NewOpt {
	return func(opts *newOpts) {
		opts.getSalt = fnc
	}
}

// WithIssuedAt sets the iat payload claim (Unix seconds).
func WithIssuedAt(issuedAt int64) NewOpt {
	return func(opts *newOpts) {
		opts.IssuedAt = issuedAt
	}
}

// WithExpiry sets the exp payload claim (Unix seconds).
func WithExpiry(expiry int64) NewOpt {
	return func(opts *newOpts) {
		opts.Expiry = expiry
	}
}

// WithSubject sets the sub payload claim.
func WithSubject(subject string) NewOpt {
	return func(opts *newOpts) {
		opts.Subject = subject
	}
}

// WithJTI sets the jti payload claim.
func WithJTI(jti string) NewOpt {
	return func(opts *newOpts) {
		opts.JTI = jti
	}
}

// WithHolderPublicKey binds the holder's public JWK into the cnf claim.
func WithHolderPublicKey(jwk *jose.JSONWebKey) NewOpt {
	return func(opts *newOpts) {
		opts.HolderPublicKey = jwk
	}
}

// WithHashAlgorithm overrides the disclosure hash algorithm.
func WithHashAlgorithm(alg crypto.Hash) NewOpt {
	return func(opts *newOpts) {
		opts.HashAlg = alg
	}
}

// SelectiveDisclosureJWT is a signed SD-JWT with its disclosures.
type SelectiveDisclosureJWT struct {
	SignedJWT   string
	Disclosures []string
}

// Serialize assembles the combined format for issuance.
func (j *SelectiveDisclosureJWT) Serialize() string {
	cf := common.CombinedFormatForIssuance{
		SDJWT:       j.SignedJWT,
		Disclosures: j.Disclosures,
	}

	return cf.Serialize()
}

// New creates a signed SD-JWT from the input claims. Every claim named by
// frame is replaced with a salted disclosure; a frame entry with no matching
// claim is an error.
func New(issuer string, claims map[string]interface{}, frame DisclosureFrame,
	signer common.Signer, opts ...NewOpt) (*SelectiveDisclosureJWT, error) {
	nOpts := &newOpts{
		jsonMarshal: json.Marshal,
		getSalt:     generateSalt,
		HashAlg:     defaultHash,
	}

	for _, opt := range opts {
		opt(nOpts)
	}

	for _, name := range frame {
		if _, ok := claims[name]; !ok {
			return nil, walleterror.NewCodecError(walleterror.SDJWTComponent, "New",
				fmt.Errorf("disclosure frame references claim %q absent from claims", name))
		}
	}

	disclosures, digests, err := createDisclosuresAndDigests(claims, frame, nOpts)
	if err != nil {
		return nil, walleterror.NewCodecError(walleterror.SDJWTComponent, "New", err)
	}

	payload := createPayload(issuer, claims, frame, digests, nOpts)

	headers := map[string]interface{}{
		"typ": common.SDJWTTypeHeader,
	}

	signedJWT, err := common.SignJWT(payload, headers, signer)
	if err != nil {
		return nil, walleterror.NewCryptoError(walleterror.SDJWTComponent, "New", err)
	}

	return &SelectiveDisclosureJWT{SignedJWT: signedJWT, Disclosures: disclosures}, nil
}

func createPayload(issuer string, claims map[string]interface{}, frame DisclosureFrame,
	digests []string, nOpts *newOpts) map[string]interface{} {
	payload := make(map[string]interface{})

	disclosable := make(map[string]bool, len(frame))
	for _, name := range frame {
		disclosable[name] = true
	}

	for name, value := range claims {
		if !disclosable[name] {
			payload[name] = value
		}
	}

	if issuer != "" {
		payload["iss"] = issuer
	}

	if nOpts.Subject != "" {
		payload["sub"] = nOpts.Subject
	}

	if nOpts.JTI != "" {
		payload["jti"] = nOpts.JTI
	}

	if nOpts.IssuedAt != 0 {
		payload["iat"] = nOpts.IssuedAt
	}

	if nOpts.Expiry != 0 {
		payload["exp"] = nOpts.Expiry
	}

	if nOpts.HolderPublicKey != nil {
		payload[common.CNFKey] = map[string]interface{}{
			"jwk": nOpts.HolderPublicKey,
		}
	}

	if len(digests) > 0 {
		payload[common.SDKey] = digests
	}

	payload[common.SDAlgorithmKey] = strings.ToLower(nOpts.HashAlg.String())

	return payload
}

func createDisclosuresAndDigests(claims map[string]interface{}, frame DisclosureFrame,
	opts *newOpts) ([]string, []string, error) {
	var disclosures []string

	for _, name := range frame {
		disclosure, err := createDisclosure(name, claims[name], opts)
		if err != nil {
			return nil, nil, fmt.Errorf("create disclosure: %w", err)
		}

		disclosures = append(disclosures, disclosure)
	}

	digests, err := createDigests(disclosures, opts)
	if err != nil {
		return nil, nil, err
	}

	return disclosures, digests, nil
}

func createDisclosure(name string, value interface{}, opts *newOpts) (string, error) {
	salt, err := opts.getSalt()
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	disclosure := []interface{}{salt, name, value}

	disclosureBytes, err := opts.jsonMarshal(disclosure)
	if err != nil {
		return "", fmt.Errorf("marshal disclosure: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(disclosureBytes), nil
}

func createDigests(disclosures []string, opts *newOpts) ([]string, error) {
	var digests []string

	for _, disclosure := range disclosures {
		digest, err := common.GetHash(opts.HashAlg, disclosure)
		if err != nil {
			return nil, fmt.Errorf("hash disclosure: %w", err)
		}

		digests = append(digests, digest)
	}

	mr.Shuffle(len(digests), func(i, j int) {
		digests[i], digests[j] = digests[j], digests[i]
	})

	return digests, nil
}

func generateSalt() (string, error) {
	salt, err := walletcrypto.RandomBytes(defaultSaltSize)
	if err != nil {
		return "", err
	}

	// it is RECOMMENDED to base64url-encode the salt value, producing a string.
	return base64.RawURLEncoding.EncodeToString(salt), nil
}
