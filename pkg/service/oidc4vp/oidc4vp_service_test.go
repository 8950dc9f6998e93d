/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oidc4vp_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/wallet-engine/pkg/crypto"
	"github.com/trustbloc/wallet-engine/pkg/doc/sdjwt/holder"
	"github.com/trustbloc/wallet-engine/pkg/doc/sdjwt/issuer"
	"github.com/trustbloc/wallet-engine/pkg/doc/sdjwt/verifier"
	"github.com/trustbloc/wallet-engine/pkg/doc/verifiable"
	"github.com/trustbloc/wallet-engine/pkg/securestore"
	"github.com/trustbloc/wallet-engine/pkg/service/oidc4vp"
	"github.com/trustbloc/wallet-engine/pkg/storage/sqlite"
)

type testEnv struct {
	service    *oidc4vp.Service
	store      *sqlite.CredentialStore
	audit      *sqlite.AuditLogStore
	issuerKeys *crypto.KeyPair
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := sqlite.NewDB(filepath.Join(t.TempDir(), "wallet.db"), securestore.NewMemStore())
	store := sqlite.NewCredentialStore(db)
	audit := sqlite.NewAuditLogStore(db)

	issuerKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	return &testEnv{
		service: oidc4vp.NewService(&oidc4vp.Config{
			CredentialRetriever: store,
			AuditLog:            audit,
		}),
		store:      store,
		audit:      audit,
		issuerKeys: issuerKeys,
	}
}

func (e *testEnv) storeCredential(t *testing.T, vct string, claims map[string]interface{},
	withHolderKey bool) int64 {
	t.Helper()

	signer, err := crypto.NewES256Signer(e.issuerKeys.PrivateKey)
	require.NoError(t, err)

	var (
		holderKeys *crypto.KeyPair
		opts       []issuer.NewOpt
	)

	opts = append(opts, issuer.WithIssuedAt(time.Now().Unix()))

	if withHolderKey {
		holderKeys, err = crypto.GenerateKeyPair()
		require.NoError(t, err)

		opts = append(opts, issuer.WithHolderPublicKey(holderKeys.PublicKey))
	}

	all := map[string]interface{}{"vct": vct}

	var frame issuer.DisclosureFrame

	for name, value := range claims {
		all[name] = value
		frame = append(frame, name)
	}

	token, err := issuer.New("https://issuer.example.com", all, frame, signer, opts...)
	require.NoError(t, err)

	id, err := e.store.Store(context.Background(), token.Serialize(), holderKeys)
	require.NoError(t, err)

	return id
}

func TestBuildPresentation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.storeCredential(t, verifiable.VCTIBAN, map[string]interface{}{
		"iban":       "DE89370400440532013000",
		"bic":        "COBADEFF",
		"given_name": "John",
	}, true)

	presentation, err := env.service.BuildPresentation(ctx, []*oidc4vp.PresentationRequest{
		{
			CredentialID: id,
			ClaimKeys:    []string{"iban", "given_name"},
			Audience:     "https://verifier.example.com",
			Nonce:        "verifier-nonce",
		},
	})
	require.NoError(t, err)
	require.Len(t, presentation.SDJWTs, 1)
	require.Len(t, presentation.Payload, 1)

	// payload carries exactly the requested attributes
	require.Equal(t, id, presentation.Payload[0].CredentialID)
	require.Equal(t, map[string]interface{}{
		"iban":       "DE89370400440532013000",
		"given_name": "John",
	}, presentation.Payload[0].Attributes)

	// the presented SD-JWT discloses only the requested claims and carries a
	// valid key-binding JWT for the verifier
	require.NoError(t, verifier.VerifyPresentation(presentation.SDJWTs[0],
		verifier.WithIssuerPublicKey(env.issuerKeys.PublicKey),
		verifier.WithRequiredClaimKeys([]string{"iban", "given_name"}),
		verifier.WithRequireKeyBinding(),
		verifier.WithExpectedAudience("https://verifier.example.com"),
		verifier.WithExpectedNonce("verifier-nonce")))

	claims, err := holder.ResolveClaims(presentation.SDJWTs[0])
	require.NoError(t, err)
	require.NotContains(t, claims, "bic")

	entries, err := env.audit.Query(ctx, &sqlite.LogFilter{
		TransactionType: sqlite.TransactionTypePresentation,
		Status:          sqlite.LogStatusSuccess,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "https://verifier.example.com", entries[0].RelyingParty)
}

func TestBuildPresentationWithoutKeyBinding(t *testing.T) {
	env := newTestEnv(t)

	id := env.storeCredential(t, verifiable.VCTIBAN,
		map[string]interface{}{"iban": "DE89"}, true)

	presentation, err := env.service.BuildPresentation(context.Background(),
		[]*oidc4vp.PresentationRequest{{CredentialID: id, ClaimKeys: []string{"iban"}}})
	require.NoError(t, err)
	require.Len(t, presentation.SDJWTs, 1)
}

func TestBuildPresentationEmptySelection(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.BuildPresentation(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "selection is empty")
}

func TestBuildPresentationPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.storeCredential(t, verifiable.VCTIBAN,
		map[string]interface{}{"iban": "DE89"}, true)

	presentation, err := env.service.BuildPresentation(ctx, []*oidc4vp.PresentationRequest{
		{CredentialID: 9999, ClaimKeys: []string{"iban"}},
		{CredentialID: id, ClaimKeys: []string{"iban"}},
	})
	require.NoError(t, err)
	require.Len(t, presentation.Payload, 1)
	require.Equal(t, id, presentation.Payload[0].CredentialID)

	failed, err := env.audit.Query(ctx, &sqlite.LogFilter{Status: sqlite.LogStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.Contains(t, failed[0].Details, "not found")
}

func TestBuildPresentationStudentIDHasNoHolderKey(t *testing.T) {
	env := newTestEnv(t)

	id := env.storeCredential(t, verifiable.VCTStudentID,
		map[string]interface{}{"student_number": "s1234567"}, false)

	// key binding requested but the stored key columns hold the sentinel
	_, err := env.service.BuildPresentation(context.Background(),
		[]*oidc4vp.PresentationRequest{{
			CredentialID: id,
			ClaimKeys:    []string{"student_number"},
			Audience:     "https://verifier.example.com",
			Nonce:        "nonce",
		}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no usable holder key")
}
