/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logfields

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trustbloc/logutil-go/pkg/log"
)

func TestStandardFields(t *testing.T) {
	const module = "test_module"

	stdOut := newMockWriter()

	logger := log.New(module, log.WithStdOut(stdOut), log.WithEncoding(log.JSON))

	attemptID := "someAttemptID"
	claimKeys := []string{"given_name", "family_name"}
	credentialFormat := "sd_jwt_vc"
	credentialID := int64(42)
	credentialType := "UniversityDegreeCredential"
	credentialTypes := []string{"A", "B"}
	endpoint := "https://issuer.example.com/credential"
	issuerURL := "https://issuer.example.com"
	jsonPath := "credential_claims.iban"
	notificationID := "someNotificationID"
	state := "PAR_SUBMITTED"
	storedCount := 2
	transactionType := "credential_issuance"
	vct := "EmployeeIDCredential"
	verifier := "https://verifier.example.com"

	logger.Info(
		"Some message",
		WithAttemptID(attemptID),
		WithClaimKeys(claimKeys),
		WithCredentialFormat(credentialFormat),
		WithCredentialID(credentialID),
		WithCredentialType(credentialType),
		WithCredentialTypes(credentialTypes),
		WithEndpoint(endpoint),
		WithIssuerURL(issuerURL),
		WithJSONPath(jsonPath),
		WithNotificationID(notificationID),
		WithState(state),
		WithStoredCount(storedCount),
		WithTransactionType(transactionType),
		WithVCT(vct),
		WithVerifier(verifier),
	)

	l := unmarshalLogData(t, stdOut.Bytes())

	require.Equal(t, attemptID, l.AttemptID)
	require.Equal(t, claimKeys, l.ClaimKeys)
	require.Equal(t, credentialFormat, l.CredentialFormat)
	require.Equal(t, credentialID, l.CredentialID)
	require.Equal(t, credentialType, l.CredentialType)
	require.Equal(t, credentialTypes, l.CredentialTypes)
	require.Equal(t, endpoint, l.Endpoint)
	require.Equal(t, issuerURL, l.IssuerURL)
	require.Equal(t, jsonPath, l.JSONPath)
	require.Equal(t, notificationID, l.NotificationID)
	require.Equal(t, state, l.State)
	require.Equal(t, storedCount, l.StoredCount)
	require.Equal(t, transactionType, l.TransactionType)
	require.Equal(t, vct, l.VCT)
	require.Equal(t, verifier, l.Verifier)
}

type logData struct {
	Level  string `json:"level"`
	Time   string `json:"time"`
	Logger string `json:"logger"`
	Caller string `json:"caller"`
	Msg    string `json:"msg"`
	Error  string `json:"error"`

	AttemptID        string   `json:"attemptID"`
	ClaimKeys        []string `json:"claimKeys"`
	CredentialFormat string   `json:"credentialFormat"`
	CredentialID     int64    `json:"credentialID"`
	CredentialType   string   `json:"credentialType"`
	CredentialTypes  []string `json:"credentialTypes"`
	Endpoint         string   `json:"endpoint"`
	IssuerURL        string   `json:"issuerURL"`
	JSONPath         string   `json:"jsonPath"`
	NotificationID   string   `json:"notificationID"`
	State            string   `json:"state"`
	StoredCount      int      `json:"storedCount"`
	TransactionType  string   `json:"transactionType"`
	VCT              string   `json:"vct"`
	Verifier         string   `json:"verifier"`
}

func unmarshalLogData(t *testing.T, b []byte) *logData {
	t.Helper()

	l := &logData{}

	require.NoError(t, json.Unmarshal(b, l))

	return l
}

type mockWriter struct {
	*bytes.Buffer
}

func (m *mockWriter) Sync() error {
	return nil
}

func newMockWriter() *mockWriter {
	return &mockWriter{Buffer: bytes.NewBuffer(nil)}
}
