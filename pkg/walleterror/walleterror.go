/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package walleterror defines the closed error taxonomy shared by the wallet
// engine services. Orchestrators inspect the code to decide whether a step
// aborts the flow or continues best-effort.
package walleterror

import (
	"errors"
	"fmt"
)

// Code classifies a failure.
type Code string

const (
	// NetworkError is a transport-level failure (request never produced an issuer response).
	NetworkError Code = "network_error"
	// ProtocolError is a non-2xx issuer response, a state mismatch or a missing required response field.
	ProtocolError Code = "protocol_error"
	// CryptoError is a key generation, signing or verification failure.
	CryptoError Code = "crypto_error"
	// CodecError is a malformed SD-JWT or an unresolvable disclosure digest.
	CodecError Code = "codec_error"
	// StorageError is an encryption-key, constraint or connection failure in the stores.
	StorageError Code = "storage_error"
	// ValidationError is a caller-supplied precondition violation.
	ValidationError Code = "validation_error"
)

// Component identifies the subsystem that produced an error.
type Component string

const (
	CryptoComponent          Component = "crypto"
	SDJWTComponent           Component = "sdjwt"
	CredentialStoreComponent Component = "credential-store"
	AuditLogComponent        Component = "audit-log"
	SecureStoreComponent     Component = "secure-store"
	OIDC4VCIComponent        Component = "oidc4vci"
	OIDC4VPComponent         Component = "oidc4vp"
	WellKnownComponent       Component = "wellknown"
	AuthenticatorComponent   Component = "authenticator"
)

// Error carries the code, the originating component and the failed operation
// along with the wrapped cause.
type Error struct {
	Code      Code
	Component Component
	Operation string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s[component: %s; operation: %s]: %v", e.Code, e.Component, e.Operation, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given code.
func New(code Code, component Component, operation string, err error) *Error {
	return &Error{
		Code:      code,
		Component: component,
		Operation: operation,
		Err:       err,
	}
}

// NewNetworkError creates a network_error.
func NewNetworkError(component Component, operation string, err error) *Error {
	return New(NetworkError, component, operation, err)
}

// NewProtocolError creates a protocol_error.
func NewProtocolError(component Component, operation string, err error) *Error {
	return New(ProtocolError, component, operation, err)
}

// NewCryptoError creates a crypto_error.
func NewCryptoError(component Component, operation string, err error) *Error {
	return New(CryptoError, component, operation, err)
}

// NewCodecError creates a codec_error.
func NewCodecError(component Component, operation string, err error) *Error {
	return New(CodecError, component, operation, err)
}

// NewStorageError creates a storage_error.
func NewStorageError(component Component, operation string, err error) *Error {
	return New(StorageError, component, operation, err)
}

// NewValidationError creates a validation_error.
func NewValidationError(component Component, operation string, err error) *Error {
	return New(ValidationError, component, operation, err)
}

// CodeOf returns the code of err if it is (or wraps) an *Error, or "" otherwise.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
