/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oidc4vci

import (
	"time"
)

// FlowState is the position of an issuance attempt in the protocol state
// machine.
type FlowState string

const (
	FlowStateIdle                      FlowState = "IDLE"
	FlowStateMetadataFetched           FlowState = "METADATA_FETCHED"
	FlowStateParSubmitted              FlowState = "PAR_SUBMITTED"
	FlowStateAwaitingUserAuthorization FlowState = "AWAITING_USER_AUTHORIZATION"
	FlowStateTokenExchanged            FlowState = "TOKEN_EXCHANGED"
	FlowStateProofGenerated            FlowState = "PROOF_GENERATED"
	FlowStateCredentialRequested       FlowState = "CREDENTIAL_REQUESTED"
	FlowStateStored                    FlowState = "STORED"
	FlowStateFailed                    FlowState = "FAILED"
)

// sessionTTL bounds how long a browser handoff may take before the attempt
// is considered stale.
const sessionTTL = 15 * time.Minute

// requestedCredential is one credential type captured at request time and
// replayed at the callback.
type requestedCredential struct {
	ConfigurationID string `json:"configuration_id,omitempty"`
	Format          string `json:"format,omitempty"`
	VCT             string `json:"vct,omitempty"`
}

// issuanceSession is the per-attempt state persisted in the secure store
// between the authorization request and the redirect callback. Every attempt
// gets its own correlation id so a stale callback can be told apart from the
// current attempt.
type issuanceSession struct {
	CorrelationID string                 `json:"correlation_id"`
	FlowState     FlowState              `json:"flow_state"`
	AuthState     string                 `json:"auth_state"`
	CodeVerifier  string                 `json:"code_verifier"`
	Requested     []*requestedCredential `json:"requested"`

	IssuerURL               string `json:"issuer_url"`
	TokenEndpoint           string `json:"token_endpoint"`
	CredentialEndpoint      string `json:"credential_endpoint"`
	BatchCredentialEndpoint string `json:"batch_credential_endpoint,omitempty"`
	NotificationEndpoint    string `json:"notification_endpoint,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (s *issuanceSession) expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) > sessionTTL
}

// authorizationDetails is one entry of the authorization_details PAR
// parameter.
type authorizationDetails struct {
	Type                      string `json:"type"`
	CredentialConfigurationID string `json:"credential_configuration_id,omitempty"`
	Format                    string `json:"format,omitempty"`
	VCT                       string `json:"vct,omitempty"`
}

// proof carries the proof-of-possession JWT in a credential request.
type proof struct {
	ProofType string `json:"proof_type"`
	JWT       string `json:"jwt"`
}

// credentialRequest is the POST body of the single-credential endpoint. The
// type selectors are mutually exclusive.
type credentialRequest struct {
	CredentialIdentifier string `json:"credential_identifier,omitempty"`
	Format               string `json:"format,omitempty"`
	VCT                  string `json:"vct,omitempty"`
	Doctype              string `json:"doctype,omitempty"`
	Proof                *proof `json:"proof"`
}

// batchCredentialRequest is the POST body of the batch endpoint.
type batchCredentialRequest struct {
	CredentialRequests []*credentialRequest `json:"credential_requests"`
}

type credentialResponse struct {
	Credential     string `json:"credential"`
	NotificationID string `json:"notification_id,omitempty"`
}

type batchCredentialResponse struct {
	CredentialResponses []*credentialResponse `json:"credential_responses"`
	NotificationID      string                `json:"notification_id,omitempty"`
}

type notificationRequest struct {
	NotificationID string `json:"notification_id"`
	Event          string `json:"event"`
}

// StoredCredential reports one credential persisted by an issuance attempt.
type StoredCredential struct {
	CredentialID int64
	VCT          string
}
