/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package oidc4vci drives the wallet side of an OpenID4VCI authorization-code
// issuance: metadata discovery, PKCE, pushed authorization request, token
// exchange, proof-of-possession and the (batch) credential request, ending in
// encrypted storage. Every attempt is tracked by a per-attempt session in the
// secure store and audited on every transition.
package oidc4vci

import (
	"context"
	"encoding/base64"
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
	"github.com/trustbloc/wallet-engine/pkg/doc/verifiable"
	"github.com/trustbloc/wallet-engine/pkg/oauth2client"
	"github.com/trustbloc/wallet-engine/pkg/securestore"
	"github.com/trustbloc/wallet-engine/pkg/service/wellknown"
	"github.com/trustbloc/wallet-engine/pkg/storage/sqlite"
	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

var logger = log.New("oidc4vci")

const (
	authorizationDetailsType = "openid_credential"
	stateEntropy             = 16
)

// Config holds the dependencies of the issuance service.
type Config struct {
	HTTPClient        *http.Client
	OAuth2Client      *oauth2client.Client
	MetadataService   metadataService
	CredentialStore   credentialStore
	AuditLog          auditLogStore
	SecureStore       securestore.SecureKeyValueStore
	IssuerURL         string
	ClientID          string
	RedirectURI       string
	StudentIDEndpoint string
}

// Service is the issuance orchestrator.
type Service struct {
	httpClient        *http.Client
	retryClient       *http.Client
	oauthClient       *oauth2client.Client
	metadata          metadataService
	credentialStore   credentialStore
	auditLog          auditLogStore
	secureStore       securestore.SecureKeyValueStore
	issuerURL         string
	clientID          string
	redirectURI       string
	studentIDEndpoint string
}

// NewService creates an issuance service.
func NewService(config *Config) *Service {
	return &Service{
		httpClient:        config.HTTPClient,
		retryClient:       newRetryClient(config.HTTPClient),
		oauthClient:       config.OAuth2Client,
		metadata:          config.MetadataService,
		credentialStore:   config.CredentialStore,
		auditLog:          config.AuditLog,
		secureStore:       config.SecureStore,
		issuerURL:         config.IssuerURL,
		clientID:          config.ClientID,
		redirectURI:       config.RedirectURI,
		studentIDEndpoint: config.StudentIDEndpoint,
	}
}

// RequestCredential starts an issuance attempt for the given credential
// types (vct values) and returns the authorization URL for the browser
// handoff. The student ID type is not issued over OAuth: it is removed from
// the selection and fetched independently. When the selection holds only the
// student ID, the returned URL is empty and no authorization is needed.
func (s *Service) RequestCredential(ctx context.Context, types []string) (string, error) {
	const op = "RequestCredential"

	if len(types) == 0 {
		err := walleterror.NewValidationError(walleterror.OIDC4VCIComponent, op,
			errors.New("credential type selection is empty"))

		s.auditFail(ctx, "empty credential type selection")

		return "", err
	}

	oauthTypes := make([]string, 0, len(types))

	for _, vct := range types {
		if vct == verifiable.VCTStudentID {
			if err := s.processStudentID(ctx); err != nil {
				logger.Warnc(ctx, "student ID side flow failed", log.WithError(err))
			}

			continue
		}

		oauthTypes = append(oauthTypes, vct)
	}

	if len(oauthTypes) == 0 {
		return "", nil
	}

	session := &issuanceSession{
		CorrelationID: uuid.NewString(),
		FlowState:     FlowStateIdle,
		IssuerURL:     s.issuerURL,
		CreatedAt:     time.Now(),
	}

	logger.Infoc(ctx, "starting issuance attempt",
		logfields.WithAttemptID(session.CorrelationID), logfields.WithIssuerURL(s.issuerURL))

	authURL, err := s.submitAuthorizationRequest(ctx, session, oauthTypes)
	if err != nil {
		s.auditFail(ctx, err.Error())

		return "", err
	}

	return authURL, nil
}

func (s *Service) submitAuthorizationRequest(ctx context.Context, session *issuanceSession,
	types []string) (string, error) {
	const op = "RequestCredential"

	openIDConfig, err := s.metadata.GetOpenIDConfiguration(ctx, s.issuerURL)
	if err != nil {
		return "", err
	}

	issuerMetadata, err := s.metadata.GetCredentialIssuerMetadata(ctx, s.issuerURL)
	if err != nil {
		return "", err
	}

	if err = s.transition(session, FlowStateMetadataFetched); err != nil {
		return "", walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op, err)
	}

	session.TokenEndpoint = openIDConfig.TokenEndpoint
	session.CredentialEndpoint = issuerMetadata.CredentialEndpoint
	session.BatchCredentialEndpoint = issuerMetadata.BatchCredentialEndpoint
	session.NotificationEndpoint = issuerMetadata.NotificationEndpoint
	session.Requested = resolveRequestedCredentials(issuerMetadata, types)

	verifier, challenge, method, err := s.oauthClient.GeneratePKCE()
	if err != nil {
		return "", walleterror.NewCryptoError(walleterror.OIDC4VCIComponent, op, err)
	}

	session.CodeVerifier = verifier

	session.AuthState, err = generateAuthState()
	if err != nil {
		return "", walleterror.NewCryptoError(walleterror.OIDC4VCIComponent, op, err)
	}

	details, err := buildAuthorizationDetails(session.Requested)
	if err != nil {
		return "", walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op, err)
	}

	authURL, err := s.oauthClient.AuthCodeURLWithPAR(ctx,
		s.oauthConfig(openIDConfig),
		openIDConfig.PushedAuthorizationRequestEndpoint,
		session.AuthState,
		s.retryClient,
		oauth2client.SetAuthURLParam("code_challenge", challenge),
		oauth2client.SetAuthURLParam("code_challenge_method", method),
		oauth2client.SetAuthURLParam("authorization_details", details),
	)
	if err != nil {
		return "", walleterror.NewNetworkError(walleterror.OIDC4VCIComponent, op,
			fmt.Errorf("pushed authorization request: %w", err))
	}

	if err = s.transition(session, FlowStateParSubmitted); err != nil {
		return "", walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op, err)
	}

	if err = s.transition(session, FlowStateAwaitingUserAuthorization); err != nil {
		return "", walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op, err)
	}

	if err = s.saveSession(session); err != nil {
		return "", err
	}

	s.audit(ctx, &sqlite.LogEntry{
		TransactionType: sqlite.TransactionTypeIssuance,
		Status:          sqlite.LogStatusPending,
		Details:         "awaiting user authorization",
		RelyingParty:    s.issuerURL,
	})

	logger.Infoc(ctx, "authorization request pushed",
		logfields.WithAttemptID(session.CorrelationID),
		logfields.WithState(string(session.FlowState)))

	return authURL, nil
}

func (s *Service) oauthConfig(openIDConfig *wellknown.OpenIDConfiguration) oauth2.Config {
	return oauth2.Config{
		ClientID:    s.clientID,
		RedirectURL: s.redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   openIDConfig.AuthorizationEndpoint,
			TokenURL:  openIDConfig.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// resolveRequestedCredentials matches the selected types against the issuer's
// offered configurations. A type with a matching configuration carries its
// configuration id; the rest fall back to explicit format/vct pairs.
func resolveRequestedCredentials(metadata *wellknown.CredentialIssuerMetadata,
	types []string) []*requestedCredential {
	requested := make([]*requestedCredential, 0, len(types))

	for _, vct := range types {
		r := &requestedCredential{
			Format: string(verifiable.OIDCFormatSDJWTVC),
			VCT:    vct,
		}

		for id, config := range metadata.CredentialConfigurationsSupported {
			if config.VCT == vct {
				r.ConfigurationID = id
				r.Format = config.Format

				break
			}
		}

		requested = append(requested, r)
	}

	return requested
}

func generateAuthState() (string, error) {
	b, err := crypto.RandomBytes(stateEntropy)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// buildAuthorizationDetails serializes the authorization_details PAR
// parameter: configuration ids for a multi-credential batch, an explicit
// format/vct pair for a single credential.
func buildAuthorizationDetails(requested []*requestedCredential) (string, error) {
	details := make([]*authorizationDetails, 0, len(requested))

	if len(requested) == 1 {
		details = append(details, &authorizationDetails{
			Type:   authorizationDetailsType,
			Format: requested[0].Format,
			VCT:    requested[0].VCT,
		})
	} else {
		for _, r := range requested {
			d := &authorizationDetails{Type: authorizationDetailsType}

			if r.ConfigurationID != "" {
				d.CredentialConfigurationID = r.ConfigurationID
			} else {
				d.Format = r.Format
				d.VCT = r.VCT
			}

			details = append(details, d)
		}
	}

	b, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("marshal authorization_details: %w", err)
	}

	return string(b), nil
}

func (s *Service) transition(session *issuanceSession, next FlowState) error {
	if err := validateStateTransition(session.FlowState, next); err != nil {
		return err
	}

	session.FlowState = next

	return nil
}

func (s *Service) saveSession(session *issuanceSession) error {
	const op = "saveSession"

	b, err := json.Marshal(session)
	if err != nil {
		return walleterror.NewStorageError(walleterror.OIDC4VCIComponent, op, err)
	}

	if err = s.secureStore.Set(securestore.IssuanceSessionID, b); err != nil {
		return walleterror.NewStorageError(walleterror.OIDC4VCIComponent, op, err)
	}

	return nil
}

func (s *Service) loadSession() (*issuanceSession, error) {
	const op = "loadSession"

	b, err := s.secureStore.Get(securestore.IssuanceSessionID)
	if err != nil {
		return nil, walleterror.NewStorageError(walleterror.OIDC4VCIComponent, op,
			fmt.Errorf("no issuance attempt in progress: %w", err))
	}

	var session issuanceSession

	if err = json.Unmarshal(b, &session); err != nil {
		return nil, walleterror.NewStorageError(walleterror.OIDC4VCIComponent, op, err)
	}

	return &session, nil
}

func (s *Service) clearSession() {
	_ = s.secureStore.Delete(securestore.IssuanceSessionID)
}

func (s *Service) audit(ctx context.Context, entry *sqlite.LogEntry) {
	if err := s.auditLog.Log(ctx, entry); err != nil {
		logger.Warnc(ctx, "failed to write audit log entry", log.WithError(err))
	}
}

func (s *Service) auditFail(ctx context.Context, details string) {
	s.audit(ctx, &sqlite.LogEntry{
		TransactionType: sqlite.TransactionTypeIssuance,
		Status:          sqlite.LogStatusFailed,
		Details:         details,
		RelyingParty:    s.issuerURL,
	})
}
