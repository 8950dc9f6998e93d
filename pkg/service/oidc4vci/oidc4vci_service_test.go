/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oidc4vci_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/wallet-engine/pkg/crypto"
	"github.com/trustbloc/wallet-engine/pkg/doc/sdjwt/issuer"
	"github.com/trustbloc/wallet-engine/pkg/oauth2client"
	"github.com/trustbloc/wallet-engine/pkg/securestore"
	"github.com/trustbloc/wallet-engine/pkg/service/oidc4vci"
	"github.com/trustbloc/wallet-engine/pkg/service/wellknown"
	"github.com/trustbloc/wallet-engine/pkg/storage/sqlite"
	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

const (
	testClientID    = "test-wallet"
	testRedirectURI = "http://127.0.0.1:8099/callback"
)

// fakeIssuer is an httptest-backed OpenID4VCI issuer. Credentials returned
// from the credential endpoints are real SD-JWTs signed with a per-issuer
// test key.
type fakeIssuer struct {
	t      *testing.T
	server *httptest.Server
	signer *crypto.ES256Signer

	authState string

	tokenCalls   atomic.Int32
	parCalls     atomic.Int32
	notifyCalls  atomic.Int32
	proofJWKs    []string
	malformedIdx map[int]bool
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()

	keys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	signer, err := crypto.NewES256Signer(keys.PrivateKey)
	require.NoError(t, err)

	f := &fakeIssuer{
		t:            t,
		signer:       signer,
		malformedIdx: map[int]bool{},
	}

	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeIssuer) url() string { return f.server.URL }

func (f *fakeIssuer) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/.well-known/openid-configuration":
		fmt.Fprintf(w, `{
			"issuer": %[1]q,
			"authorization_endpoint": "%[1]s/authorize",
			"pushed_authorization_request_endpoint": "%[1]s/par",
			"token_endpoint": "%[1]s/token"
		}`, f.url())
	case "/.well-known/openid-credential-issuer":
		fmt.Fprintf(w, `{
			"credential_issuer": %[1]q,
			"credential_endpoint": "%[1]s/credential",
			"batch_credential_endpoint": "%[1]s/batch_credential",
			"notification_endpoint": "%[1]s/notification",
			"credential_configurations_supported": {
				"IBANCredential": {"format": "vc+sd-jwt", "vct": "IBANCredential"},
				"HealthIDCredential": {"format": "vc+sd-jwt", "vct": "HealthIDCredential"}
			}
		}`, f.url())
	case "/par":
		f.parCalls.Add(1)
		require.NoError(f.t, r.ParseForm())
		require.Equal(f.t, "S256", r.FormValue("code_challenge_method"))
		require.NotEmpty(f.t, r.FormValue("code_challenge"))
		require.NotEmpty(f.t, r.FormValue("authorization_details"))

		f.authState = r.FormValue("state")

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"request_uri": "urn:ietf:params:oauth:request_uri:test", "expires_in": 60}`)
	case "/token":
		f.tokenCalls.Add(1)
		require.NoError(f.t, r.ParseForm())
		require.Equal(f.t, "authorization_code", r.FormValue("grant_type"))
		require.NotEmpty(f.t, r.FormValue("code_verifier"))

		fmt.Fprint(w, `{"access_token": "test-access-token", "token_type": "bearer",`+
			`"refresh_token": "test-refresh-token", "c_nonce": "test-c-nonce"}`)
	case "/credential":
		var req map[string]interface{}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

		vct := f.recordProofAndVCT(req)

		fmt.Fprintf(w, `{"credential": %q, "notification_id": "notif-1"}`, f.issueSDJWT(vct, 0))
	case "/batch_credential":
		require.Equal(f.t, "Bearer test-access-token", r.Header.Get("Authorization"))

		var req struct {
			CredentialRequests []map[string]interface{} `json:"credential_requests"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

		responses := make([]map[string]string, 0, len(req.CredentialRequests))

		for i, item := range req.CredentialRequests {
			vct := f.recordProofAndVCT(item)
			responses = append(responses, map[string]string{"credential": f.issueSDJWT(vct, i)})
		}

		require.NoError(f.t, json.NewEncoder(w).Encode(map[string]interface{}{
			"credential_responses": responses,
			"notification_id":      "notif-batch-1",
		}))
	case "/notification":
		f.notifyCalls.Add(1)

		var req map[string]string
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(f.t, "credential_accepted", req["event"])

		w.WriteHeader(http.StatusNoContent)
	case "/studentid":
		require.Equal(f.t, "Bearer test-access-token", r.Header.Get("Authorization"))
		fmt.Fprintf(w, `{"credential": %q}`, f.issueSDJWT("StudentIDCredential", 0))
	default:
		f.t.Errorf("unexpected request to %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

// recordProofAndVCT captures the proof's jwk header for key-distinctness
// assertions and returns the requested vct.
func (f *fakeIssuer) recordProofAndVCT(request map[string]interface{}) string {
	proofObj, _ := request["proof"].(map[string]interface{})
	require.NotNil(f.t, proofObj)
	require.Equal(f.t, "jwt", proofObj["proof_type"])

	jwt, _ := proofObj["jwt"].(string)
	parts := strings.Split(jwt, ".")
	require.Len(f.t, parts, 3)

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(f.t, err)

	var header map[string]interface{}
	require.NoError(f.t, json.Unmarshal(headerJSON, &header))
	require.Equal(f.t, "openid4vci-proof+jwt", header["typ"])

	jwk, err := json.Marshal(header["jwk"])
	require.NoError(f.t, err)

	f.proofJWKs = append(f.proofJWKs, string(jwk))

	if vct, ok := request["vct"].(string); ok {
		return vct
	}

	id, _ := request["credential_identifier"].(string)

	return id
}

func (f *fakeIssuer) issueSDJWT(vct string, index int) string {
	if f.malformedIdx[index] {
		return "not-a-credential"
	}

	token, err := issuer.New(f.url(), map[string]interface{}{
		"vct":        vct,
		"given_name": "John",
	}, issuer.DisclosureFrame{"given_name"}, f.signer,
		issuer.WithIssuedAt(time.Now().Unix()))
	require.NoError(f.t, err)

	return token.Serialize()
}

type testEnv struct {
	service     *oidc4vci.Service
	store       *sqlite.CredentialStore
	audit       *sqlite.AuditLogStore
	secureStore *securestore.MemStore
	issuer      *fakeIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fake := newFakeIssuer(t)

	secureStore := securestore.NewMemStore()
	db := sqlite.NewDB(filepath.Join(t.TempDir(), "wallet.db"), secureStore)
	store := sqlite.NewCredentialStore(db)
	audit := sqlite.NewAuditLogStore(db)

	service := oidc4vci.NewService(&oidc4vci.Config{
		HTTPClient:        fake.server.Client(),
		OAuth2Client:      oauth2client.NewOAuth2Client(),
		MetadataService:   wellknown.NewService(fake.server.Client()),
		CredentialStore:   store,
		AuditLog:          audit,
		SecureStore:       secureStore,
		IssuerURL:         fake.url(),
		ClientID:          testClientID,
		RedirectURI:       testRedirectURI,
		StudentIDEndpoint: fake.url() + "/studentid",
	})

	return &testEnv{
		service:     service,
		store:       store,
		audit:       audit,
		secureStore: secureStore,
		issuer:      fake,
	}
}

func (e *testEnv) failedEntries(t *testing.T) []*sqlite.LogEntry {
	t.Helper()

	entries, err := e.audit.Query(context.Background(), &sqlite.LogFilter{Status: sqlite.LogStatusFailed})
	require.NoError(t, err)

	return entries
}

type countingTransport struct {
	calls atomic.Int32
}

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	c.calls.Add(1)

	return nil, fmt.Errorf("no network expected")
}

func TestRequestCredentialEmptySelection(t *testing.T) {
	transport := &countingTransport{}

	secureStore := securestore.NewMemStore()
	db := sqlite.NewDB(filepath.Join(t.TempDir(), "wallet.db"), secureStore)
	audit := sqlite.NewAuditLogStore(db)

	service := oidc4vci.NewService(&oidc4vci.Config{
		HTTPClient:      &http.Client{Transport: transport},
		OAuth2Client:    oauth2client.NewOAuth2Client(),
		MetadataService: wellknown.NewService(&http.Client{Transport: transport}),
		CredentialStore: sqlite.NewCredentialStore(db),
		AuditLog:        audit,
		SecureStore:     secureStore,
		IssuerURL:       "https://issuer.example.com",
		ClientID:        testClientID,
		RedirectURI:     testRedirectURI,
	})

	_, err := service.RequestCredential(context.Background(), nil)
	require.Error(t, err)
	require.Equal(t, walleterror.ValidationError, walleterror.CodeOf(err))

	require.Zero(t, transport.calls.Load())

	entries, err := audit.Query(context.Background(), &sqlite.LogFilter{Status: sqlite.LogStatusFailed})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, sqlite.TransactionTypeIssuance, entries[0].TransactionType)
}

func TestRequestCredentialReturnsAuthURL(t *testing.T) {
	env := newTestEnv(t)

	authURL, err := env.service.RequestCredential(context.Background(), []string{"IBANCredential"})
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	require.Equal(t, "/authorize", parsed.Path)
	require.Equal(t, testClientID, parsed.Query().Get("client_id"))
	require.Equal(t, "urn:ietf:params:oauth:request_uri:test", parsed.Query().Get("request_uri"))

	require.EqualValues(t, 1, env.issuer.parCalls.Load())

	// one pending audit entry for the browser handoff
	entries, err := env.audit.Query(context.Background(), &sqlite.LogFilter{Status: sqlite.LogStatusPending})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestCompleteAuthorizationStateMismatch(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.RequestCredential(context.Background(), []string{"IBANCredential"})
	require.NoError(t, err)

	_, err = env.service.CompleteAuthorization(context.Background(), "auth-code", "wrong-state")
	require.Error(t, err)
	require.Equal(t, walleterror.ProtocolError, walleterror.CodeOf(err))
	require.Contains(t, err.Error(), "state mismatch")

	// token endpoint must not have been contacted
	require.Zero(t, env.issuer.tokenCalls.Load())

	require.NotEmpty(t, env.failedEntries(t))

	// the attempt is consumed; a retry needs a fresh authorization request
	_, err = env.service.CompleteAuthorization(context.Background(), "auth-code", "any")
	require.Contains(t, err.Error(), "no issuance attempt in progress")
}

func TestCompleteAuthorizationExpiredSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.RequestCredential(context.Background(), []string{"IBANCredential"})
	require.NoError(t, err)

	// age the persisted attempt beyond its TTL
	raw, err := env.secureStore.Get(securestore.IssuanceSessionID)
	require.NoError(t, err)

	var session map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &session))
	session["created_at"] = time.Now().Add(-time.Hour).Format(time.RFC3339)

	aged, err := json.Marshal(session)
	require.NoError(t, err)
	require.NoError(t, env.secureStore.Set(securestore.IssuanceSessionID, aged))

	_, err = env.service.CompleteAuthorization(context.Background(), "auth-code", env.issuer.authState)
	require.Error(t, err)
	require.Contains(t, err.Error(), "expired")
	require.Zero(t, env.issuer.tokenCalls.Load())
}

func TestEndToEndSingleCredential(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.RequestCredential(ctx, []string{"IBANCredential"})
	require.NoError(t, err)

	stored, err := env.service.CompleteAuthorization(ctx, "auth-code", env.issuer.authState)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	records, err := env.store.RetrieveCredentials(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "IBANCredential", records[0].Claims["vct"])

	// tokens persisted
	accessToken, err := env.secureStore.Get(securestore.AccessTokenID)
	require.NoError(t, err)
	require.Equal(t, "test-access-token", string(accessToken))

	refreshToken, err := env.secureStore.Get(securestore.RefreshTokenID)
	require.NoError(t, err)
	require.Equal(t, "test-refresh-token", string(refreshToken))

	// notification acknowledged best-effort
	require.EqualValues(t, 1, env.issuer.notifyCalls.Load())
}

func TestEndToEndBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.RequestCredential(ctx, []string{"IBANCredential", "HealthIDCredential"})
	require.NoError(t, err)

	stored, err := env.service.CompleteAuthorization(ctx, "auth-code", env.issuer.authState)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	records, err := env.store.RetrieveCredentials(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// each batch item gets its own fresh key pair
	require.Len(t, env.issuer.proofJWKs, 2)
	require.NotEqual(t, env.issuer.proofJWKs[0], env.issuer.proofJWKs[1])
	require.NotEqual(t, string(records[0].PublicKey), string(records[1].PublicKey))

	successes, err := env.audit.Query(ctx, &sqlite.LogFilter{
		TransactionType: sqlite.TransactionTypeIssuance,
		Status:          sqlite.LogStatusSuccess,
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(successes), 2)
}

func TestBatchPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.RequestCredential(ctx,
		[]string{"IBANCredential", "HealthIDCredential", "IBANCredential"})
	require.NoError(t, err)

	// second batch item comes back undecodable
	env.issuer.malformedIdx[1] = true

	stored, err := env.service.CompleteAuthorization(ctx, "auth-code", env.issuer.authState)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	records, err := env.store.RetrieveCredentials(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// a failed audit entry exists for the malformed item
	var found bool

	for _, entry := range env.failedEntries(t) {
		if strings.Contains(entry.Details, "store credential 2 of 3") {
			found = true
		}
	}

	require.True(t, found)
}

func TestStudentIDSideFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// the student ID flow reuses the stored access token
	require.NoError(t, env.secureStore.Set(securestore.AccessTokenID, []byte("test-access-token")))

	authURL, err := env.service.RequestCredential(ctx, []string{"StudentIDCredential"})
	require.NoError(t, err)
	require.Empty(t, authURL)

	// no OAuth flow for a student-ID-only selection
	require.Zero(t, env.issuer.parCalls.Load())

	records, err := env.store.RetrieveCredentials(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "StudentIDCredential", records[0].Claims["vct"])
	require.JSONEq(t, `{"value":"Not Available"}`, string(records[0].PrivateKey))
}
