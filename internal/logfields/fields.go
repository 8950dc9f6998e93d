/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logfields

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log Fields.
const (
	FieldAttemptID        = "attemptID"
	FieldClaimKeys        = "claimKeys"
	FieldCredentialFormat = "credentialFormat"
	FieldCredentialID     = "credentialID"
	FieldCredentialType   = "credentialType"
	FieldCredentialTypes  = "credentialTypes"
	FieldEndpoint         = "endpoint"
	FieldIssuerURL        = "issuerURL"
	FieldJSONPath         = "jsonPath"
	FieldNotificationID   = "notificationID"
	FieldState            = "state"
	FieldStoredCount      = "storedCount"
	FieldTransactionType  = "transactionType"
	FieldVCT              = "vct"
	FieldVerifier         = "verifier"
)

// WithAttemptID sets the issuance attempt correlation id field.
func WithAttemptID(attemptID string) zap.Field {
	return zap.String(FieldAttemptID, attemptID)
}

// WithClaimKeys sets the claim keys field.
func WithClaimKeys(claimKeys []string) zap.Field {
	return zap.Strings(FieldClaimKeys, claimKeys)
}

// WithCredentialFormat sets the credential format field.
func WithCredentialFormat(format string) zap.Field {
	return zap.String(FieldCredentialFormat, format)
}

// WithCredentialID sets the credential id field.
func WithCredentialID(credentialID int64) zap.Field {
	return zap.Int64(FieldCredentialID, credentialID)
}

// WithCredentialType sets the credential type field.
func WithCredentialType(credentialType string) zap.Field {
	return zap.String(FieldCredentialType, credentialType)
}

// WithCredentialTypes sets the credential types field.
func WithCredentialTypes(credentialTypes []string) zap.Field {
	return zap.Strings(FieldCredentialTypes, credentialTypes)
}

// WithEndpoint sets the endpoint field.
func WithEndpoint(endpoint string) zap.Field {
	return zap.String(FieldEndpoint, endpoint)
}

// WithIssuerURL sets the issuer URL field.
func WithIssuerURL(issuerURL string) zap.Field {
	return zap.String(FieldIssuerURL, issuerURL)
}

// WithJSONPath sets the JSON path field.
func WithJSONPath(jsonPath string) zap.Field {
	return zap.String(FieldJSONPath, jsonPath)
}

// WithNotificationID sets the notification id field.
func WithNotificationID(notificationID string) zap.Field {
	return zap.String(FieldNotificationID, notificationID)
}

// WithState sets the issuance state field.
func WithState(state string) zap.Field {
	return zap.String(FieldState, state)
}

// WithStoredCount sets the stored credential count field.
func WithStoredCount(count int) zap.Field {
	return zap.Int(FieldStoredCount, count)
}

// WithTransactionType sets the audit transaction type field.
func WithTransactionType(transactionType string) zap.Field {
	return zap.String(FieldTransactionType, transactionType)
}

// WithVCT sets the verifiable credential type field.
func WithVCT(vct string) zap.Field {
	return zap.String(FieldVCT, vct)
}

// WithVerifier sets the verifier (relying party) field.
func WithVerifier(verifier string) zap.Field {
	return zap.String(FieldVerifier, verifier)
}

// ObjectMarshaller uses reflection to marshal an object's fields.
type ObjectMarshaller struct {
	key string
	obj interface{}
}

// NewObjectMarshaller returns a new ObjectMarshaller.
func NewObjectMarshaller(key string, obj interface{}) *ObjectMarshaller {
	return &ObjectMarshaller{key: key, obj: obj}
}

// MarshalLogObject marshals the object's fields.
func (m *ObjectMarshaller) MarshalLogObject(e zapcore.ObjectEncoder) error {
	return e.AddReflected(m.key, m.obj)
}
