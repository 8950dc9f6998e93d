/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oidc4vci

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/trustbloc/logutil-go/pkg/log"
	"golang.org/x/oauth2"

	"github.com/trustbloc/wallet-engine/internal/logfields"
	"github.com/trustbloc/wallet-engine/pkg/crypto"
	"github.com/trustbloc/wallet-engine/pkg/doc/sdjwt/common"
	"github.com/trustbloc/wallet-engine/pkg/securestore"
	"github.com/trustbloc/wallet-engine/pkg/storage/sqlite"
	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

const (
	proofJWTType               = "openid4vci-proof+jwt"
	notificationEventAccepted  = "credential_accepted"
	contentTypeApplicationJSON = "application/json"
)

// CompleteAuthorization finishes an issuance attempt after the browser
// redirect. The returned state must match the persisted attempt exactly; a
// mismatch aborts before the token endpoint is contacted. Each requested
// credential gets its own fresh key pair and proof JWT. Storage is best
// effort per item: one malformed credential in a batch does not abort the
// rest.
func (s *Service) CompleteAuthorization(ctx context.Context, code, state string) ([]*StoredCredential, error) {
	const op = "CompleteAuthorization"

	session, err := s.loadSession()
	if err != nil {
		s.auditFail(ctx, "authorization callback without an active issuance attempt")

		return nil, err
	}

	defer s.clearSession()

	if session.expired(time.Now()) {
		err = walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op,
			errors.New("issuance attempt expired before the authorization callback"))

		s.auditFail(ctx, err.Error())

		return nil, err
	}

	if state != session.AuthState {
		err = walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op,
			errors.New("authorization state mismatch, possible CSRF"))

		s.auditFail(ctx, err.Error())

		return nil, err
	}

	stored, err := s.exchangeAndRequestCredentials(ctx, session, code)
	if err != nil {
		s.auditFail(ctx, err.Error())

		return stored, err
	}

	return stored, nil
}

func (s *Service) exchangeAndRequestCredentials(ctx context.Context, session *issuanceSession,
	code string) ([]*StoredCredential, error) {
	const op = "CompleteAuthorization"

	token, err := s.exchangeCode(ctx, session, code)
	if err != nil {
		return nil, err
	}

	if err = s.transition(session, FlowStateTokenExchanged); err != nil {
		return nil, walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op, err)
	}

	nonce, _ := token.Extra("c_nonce").(string)

	proofs := make([]*proof, 0, len(session.Requested))
	keyPairs := make([]*crypto.KeyPair, 0, len(session.Requested))

	for range session.Requested {
		proofJWT, keyPair, err := s.buildProof(session.IssuerURL, nonce)
		if err != nil {
			return nil, err
		}

		proofs = append(proofs, &proof{ProofType: "jwt", JWT: proofJWT})
		keyPairs = append(keyPairs, keyPair)
	}

	if err = s.transition(session, FlowStateProofGenerated); err != nil {
		return nil, walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op, err)
	}

	credentials, notificationID, err := s.requestCredentials(ctx, session, token.AccessToken, proofs)
	if err != nil {
		return nil, err
	}

	if err = s.transition(session, FlowStateCredentialRequested); err != nil {
		return nil, walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op, err)
	}

	s.notifyIssuer(ctx, session, token.AccessToken, notificationID)

	stored := s.storeCredentials(ctx, session, credentials, keyPairs)

	if err = s.transition(session, FlowStateStored); err != nil {
		return stored, walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op, err)
	}

	logger.Infoc(ctx, "issuance attempt complete",
		logfields.WithAttemptID(session.CorrelationID),
		logfields.WithStoredCount(len(stored)))

	return stored, nil
}

func (s *Service) exchangeCode(ctx context.Context, session *issuanceSession,
	code string) (*oauth2.Token, error) {
	const op = "CompleteAuthorization"

	cfg := oauth2.Config{
		ClientID:    s.clientID,
		RedirectURL: s.redirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  session.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	token, err := s.oauthClient.Exchange(ctx, cfg, code, s.retryClient,
		oauth2.SetAuthURLParam("code_verifier", session.CodeVerifier),
		oauth2.SetAuthURLParam("state", session.AuthState),
	)
	if err != nil {
		return nil, walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op,
			fmt.Errorf("token exchange: %w", err))
	}

	if err = s.secureStore.Set(securestore.AccessTokenID, []byte(token.AccessToken)); err != nil {
		return nil, walleterror.NewStorageError(walleterror.OIDC4VCIComponent, op, err)
	}

	if token.RefreshToken != "" {
		if err = s.secureStore.Set(securestore.RefreshTokenID, []byte(token.RefreshToken)); err != nil {
			return nil, walleterror.NewStorageError(walleterror.OIDC4VCIComponent, op, err)
		}
	}

	if idToken, ok := token.Extra("id_token").(string); ok && idToken != "" {
		if err = s.secureStore.Set(securestore.IDTokenID, []byte(idToken)); err != nil {
			return nil, walleterror.NewStorageError(walleterror.OIDC4VCIComponent, op, err)
		}
	}

	return token, nil
}

// buildProof creates a fresh key pair and a proof-of-possession JWT binding
// it to this issuer. The key pair stays in memory until its credential is
// stored; it is never persisted before issuance succeeds.
func (s *Service) buildProof(audience, nonce string) (string, *crypto.KeyPair, error) {
	const op = "CompleteAuthorization"

	keyPair, err := crypto.GenerateKeyPair()
	if err != nil {
		return "", nil, walleterror.NewCryptoError(walleterror.OIDC4VCIComponent, op, err)
	}

	signer, err := crypto.NewES256Signer(keyPair.PrivateKey)
	if err != nil {
		return "", nil, walleterror.NewCryptoError(walleterror.OIDC4VCIComponent, op, err)
	}

	headers := map[string]interface{}{
		"typ": proofJWTType,
		"jwk": keyPair.PublicKey,
	}

	payload := map[string]interface{}{
		"iss": s.clientID,
		"aud": audience,
		"iat": time.Now().Unix(),
		"jti": uuid.NewString(),
	}

	if nonce != "" {
		payload["nonce"] = nonce
	}

	proofJWT, err := common.SignJWT(payload, headers, signer)
	if err != nil {
		return "", nil, walleterror.NewCryptoError(walleterror.OIDC4VCIComponent, op, err)
	}

	return proofJWT, keyPair, nil
}

// requestCredentials POSTs a single or batch credential request, returning
// one response credential per requested type.
func (s *Service) requestCredentials(ctx context.Context, session *issuanceSession,
	accessToken string, proofs []*proof) ([]*credentialResponse, string, error) {
	const op = "CompleteAuthorization"

	if len(session.Requested) == 1 {
		request := newCredentialRequest(session.Requested[0], proofs[0])

		var response credentialResponse

		if err := s.postJSON(ctx, session.CredentialEndpoint, accessToken, request, &response); err != nil {
			return nil, "", err
		}

		if response.Credential == "" {
			return nil, "", walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op,
				errors.New("credential response is missing the credential"))
		}

		return []*credentialResponse{&response}, response.NotificationID, nil
	}

	request := &batchCredentialRequest{}

	for i, r := range session.Requested {
		request.CredentialRequests = append(request.CredentialRequests, newCredentialRequest(r, proofs[i]))
	}

	var response batchCredentialResponse

	if err := s.postJSON(ctx, session.BatchCredentialEndpoint, accessToken, request, &response); err != nil {
		return nil, "", err
	}

	if len(response.CredentialResponses) != len(session.Requested) {
		return nil, "", walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op,
			fmt.Errorf("batch credential response has %d items, expected %d",
				len(response.CredentialResponses), len(session.Requested)))
	}

	return response.CredentialResponses, response.NotificationID, nil
}

func newCredentialRequest(r *requestedCredential, p *proof) *credentialRequest {
	request := &credentialRequest{Proof: p}

	if r.ConfigurationID != "" {
		request.CredentialIdentifier = r.ConfigurationID
	} else {
		request.Format = r.Format
		request.VCT = r.VCT
	}

	return request
}

// notifyIssuer acknowledges receipt. Failure never rolls back storage.
func (s *Service) notifyIssuer(ctx context.Context, session *issuanceSession,
	accessToken, notificationID string) {
	if session.NotificationEndpoint == "" || notificationID == "" {
		return
	}

	request := &notificationRequest{
		NotificationID: notificationID,
		Event:          notificationEventAccepted,
	}

	if err := s.postJSON(ctx, session.NotificationEndpoint, accessToken, request, nil); err != nil {
		logger.Warnc(ctx, "issuer notification failed",
			logfields.WithNotificationID(notificationID), log.WithError(err))
	}
}

// storeCredentials persists the returned credentials one by one. A failed
// item is logged and skipped; the rest of the batch is still stored.
func (s *Service) storeCredentials(ctx context.Context, session *issuanceSession,
	credentials []*credentialResponse, keyPairs []*crypto.KeyPair) []*StoredCredential {
	var stored []*StoredCredential

	for i, response := range credentials {
		id, err := s.credentialStore.Store(ctx, response.Credential, keyPairs[i])
		if err != nil {
			s.audit(ctx, &sqlite.LogEntry{
				TransactionType: sqlite.TransactionTypeIssuance,
				Status:          sqlite.LogStatusFailed,
				Details:         fmt.Sprintf("store credential %d of %d: %s", i+1, len(credentials), err),
				RelyingParty:    session.IssuerURL,
			})

			logger.Warnc(ctx, "failed to store credential from batch",
				logfields.WithAttemptID(session.CorrelationID), log.WithError(err))

			continue
		}

		vct := session.Requested[i].VCT

		stored = append(stored, &StoredCredential{CredentialID: id, VCT: vct})

		s.audit(ctx, &sqlite.LogEntry{
			TransactionType: sqlite.TransactionTypeIssuance,
			Status:          sqlite.LogStatusSuccess,
			Details:         fmt.Sprintf("credential %s stored", vct),
			RelyingParty:    session.IssuerURL,
		})
	}

	return stored
}

func (s *Service) postJSON(ctx context.Context, endpoint, accessToken string,
	request, response interface{}) error {
	const op = "CompleteAuthorization"

	body, err := json.Marshal(request)
	if err != nil {
		return walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return walleterror.NewNetworkError(walleterror.OIDC4VCIComponent, op, err)
	}

	req.Header.Set("Content-Type", contentTypeApplicationJSON)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.retryClient.Do(req)
	if err != nil {
		return walleterror.NewNetworkError(walleterror.OIDC4VCIComponent, op, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op,
			fmt.Errorf("post %s: status code %d", endpoint, resp.StatusCode))
	}

	if response == nil {
		return nil
	}

	if err = json.NewDecoder(resp.Body).Decode(response); err != nil {
		return walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op,
			fmt.Errorf("decode %s response: %w", endpoint, err))
	}

	return nil
}
