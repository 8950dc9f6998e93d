/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package oidc4vp assembles selective-disclosure presentations from stored
// credentials: per credential a presentation frame over the caller-selected
// claim keys, an optional key-binding JWT scoping the presentation to a
// verifier and nonce, and a compact transport payload for out-of-band (QR)
// delivery.
package oidc4vp

import (
	"context"
	"fmt"

	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/wallet-engine/internal/logfields"
	"github.com/trustbloc/wallet-engine/pkg/crypto"
	"github.com/trustbloc/wallet-engine/pkg/doc/sdjwt/holder"
	"github.com/trustbloc/wallet-engine/pkg/storage/sqlite"
	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

var logger = log.New("oidc4vp")

type credentialRetriever interface {
	RetrieveCredentials(ctx context.Context) ([]*sqlite.CredentialRecord, error)
}

type auditLogStore interface {
	Log(ctx context.Context, entry *sqlite.LogEntry) error
}

// PresentationRequest selects one stored credential and the claim keys to
// disclose. Audience and Nonce, when set, bind the presentation to a verifier
// with a key-binding JWT.
type PresentationRequest struct {
	CredentialID int64
	ClaimKeys    []string
	Audience     string
	Nonce        string
}

// PresentedCredential is one entry of the transport payload.
type PresentedCredential struct {
	CredentialID int64                  `json:"credential_id"`
	Attributes   map[string]interface{} `json:"attributes"`
}

// Presentation is the result of a presentation exchange build.
type Presentation struct {
	Payload []*PresentedCredential
	SDJWTs  []string
}

// Config holds the dependencies of the presentation service.
type Config struct {
	CredentialRetriever credentialRetriever
	AuditLog            auditLogStore
}

// Service is the presentation orchestrator.
type Service struct {
	credentials credentialRetriever
	auditLog    auditLogStore
}

// NewService creates a presentation service.
func NewService(config *Config) *Service {
	return &Service{
		credentials: config.CredentialRetriever,
		auditLog:    config.AuditLog,
	}
}

// BuildPresentation re-encodes each selected credential with only the
// requested disclosures. Failures are per credential: a credential that
// cannot be presented is logged and skipped, and the rest of the selection
// still goes out. An empty selection or a fully failed build is an error.
func (s *Service) BuildPresentation(ctx context.Context,
	requests []*PresentationRequest) (*Presentation, error) {
	const op = "BuildPresentation"

	if len(requests) == 0 {
		return nil, walleterror.NewValidationError(walleterror.OIDC4VPComponent, op,
			fmt.Errorf("presentation selection is empty"))
	}

	records, err := s.credentials.RetrieveCredentials(ctx)
	if err != nil {
		return nil, err
	}

	recordByID := make(map[int64]*sqlite.CredentialRecord, len(records))
	for _, record := range records {
		recordByID[record.ID] = record
	}

	presentation := &Presentation{}

	var lastErr error

	for _, request := range requests {
		presented, attributes, err := s.presentOne(recordByID, request)
		if err != nil {
			lastErr = err

			s.audit(ctx, &sqlite.LogEntry{
				TransactionType: sqlite.TransactionTypePresentation,
				Status:          sqlite.LogStatusFailed,
				Details:         err.Error(),
				RelyingParty:    request.Audience,
			})

			logger.Warnc(ctx, "failed to present credential",
				logfields.WithCredentialID(request.CredentialID), log.WithError(err))

			continue
		}

		presentation.SDJWTs = append(presentation.SDJWTs, presented)
		presentation.Payload = append(presentation.Payload, &PresentedCredential{
			CredentialID: request.CredentialID,
			Attributes:   attributes,
		})

		s.audit(ctx, &sqlite.LogEntry{
			TransactionType: sqlite.TransactionTypePresentation,
			Status:          sqlite.LogStatusSuccess,
			Details:         fmt.Sprintf("presented %d claims", len(request.ClaimKeys)),
			RelyingParty:    request.Audience,
		})
	}

	if len(presentation.Payload) == 0 {
		return nil, lastErr
	}

	return presentation, nil
}

func (s *Service) presentOne(recordByID map[int64]*sqlite.CredentialRecord,
	request *PresentationRequest) (string, map[string]interface{}, error) {
	const op = "BuildPresentation"

	record, ok := recordByID[request.CredentialID]
	if !ok {
		return "", nil, walleterror.NewValidationError(walleterror.OIDC4VPComponent, op,
			fmt.Errorf("credential %d not found", request.CredentialID))
	}

	frame := make(map[string]bool, len(request.ClaimKeys))
	for _, key := range request.ClaimKeys {
		frame[key] = true
	}

	var opts []holder.Option

	if request.Audience != "" || request.Nonce != "" {
		signer, err := s.holderSigner(record)
		if err != nil {
			return "", nil, err
		}

		opts = append(opts, holder.WithKeyBinding(&holder.KeyBindingInfo{
			Signer:   signer,
			Audience: request.Audience,
			Nonce:    request.Nonce,
		}))
	}

	presented, err := holder.CreatePresentation(record.CredentialString, frame, opts...)
	if err != nil {
		return "", nil, err
	}

	attributes := make(map[string]interface{}, len(request.ClaimKeys))

	for _, key := range request.ClaimKeys {
		if value, ok := record.Claims[key]; ok {
			attributes[key] = value
		}
	}

	return presented, attributes, nil
}

// holderSigner loads the credential's stored private key. The student ID
// sentinel has no usable key material.
func (s *Service) holderSigner(record *sqlite.CredentialRecord) (*crypto.ES256Signer, error) {
	const op = "BuildPresentation"

	privateKey, err := crypto.ParseJWK(record.PrivateKey)
	if err != nil {
		return nil, walleterror.NewCryptoError(walleterror.OIDC4VPComponent, op,
			fmt.Errorf("credential %d has no usable holder key: %w", record.ID, err))
	}

	signer, err := crypto.NewES256Signer(privateKey)
	if err != nil {
		return nil, walleterror.NewCryptoError(walleterror.OIDC4VPComponent, op, err)
	}

	return signer, nil
}

func (s *Service) audit(ctx context.Context, entry *sqlite.LogEntry) {
	if err := s.auditLog.Log(ctx, entry); err != nil {
		logger.Warnc(ctx, "failed to write audit log entry", log.WithError(err))
	}
}
