/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package authenticator manages the wallet's local access factors: a bcrypt
// hashed PIN and a salted hash of the bound recovery email. Only hashes reach
// the secure store, never the PIN or email themselves.
package authenticator

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/wallet-engine/pkg/crypto"
	"github.com/trustbloc/wallet-engine/pkg/securestore"
	"github.com/trustbloc/wallet-engine/pkg/storage/sqlite"
	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

var logger = log.New("authenticator")

const minPINLength = 4

type auditLogStore interface {
	Log(ctx context.Context, entry *sqlite.LogEntry) error
}

// Config holds the dependencies of the authenticator service.
type Config struct {
	SecureStore securestore.SecureKeyValueStore
	AuditLog    auditLogStore
}

// Service gates wallet access with a PIN and binds a recovery email.
type Service struct {
	secureStore securestore.SecureKeyValueStore
	auditLog    auditLogStore
}

// NewService creates an authenticator service.
func NewService(config *Config) *Service {
	return &Service{
		secureStore: config.SecureStore,
		auditLog:    config.AuditLog,
	}
}

// SetPIN hashes the PIN with bcrypt and stores the hash, replacing any
// previously set PIN.
func (s *Service) SetPIN(ctx context.Context, pin string) error {
	const op = "SetPIN"

	if len(pin) < minPINLength {
		return walleterror.NewValidationError(walleterror.AuthenticatorComponent, op,
			fmt.Errorf("pin must be at least %d characters", minPINLength))
	}

	hash, err := crypto.PasswordHash(pin)
	if err != nil {
		return walleterror.NewCryptoError(walleterror.AuthenticatorComponent, op, err)
	}

	if err = s.secureStore.Set(securestore.PINHashID, []byte(hash)); err != nil {
		return walleterror.NewStorageError(walleterror.AuthenticatorComponent, op, err)
	}

	s.audit(ctx, sqlite.LogStatusSuccess, "pin set")

	logger.Infoc(ctx, "wallet pin set")

	return nil
}

// VerifyPIN checks the PIN against the stored hash. A missing stored hash and
// a mismatch both fail, with distinct errors.
func (s *Service) VerifyPIN(ctx context.Context, pin string) error {
	const op = "VerifyPIN"

	hash, err := s.secureStore.Get(securestore.PINHashID)
	if err != nil {
		if errors.Is(err, securestore.ErrDataNotFound) {
			return walleterror.NewValidationError(walleterror.AuthenticatorComponent, op,
				errors.New("no pin has been set"))
		}

		return walleterror.NewStorageError(walleterror.AuthenticatorComponent, op, err)
	}

	if !crypto.PasswordVerify(pin, string(hash)) {
		s.audit(ctx, sqlite.LogStatusFailed, "pin verification failed")

		return walleterror.NewValidationError(walleterror.AuthenticatorComponent, op,
			errors.New("pin verification failed"))
	}

	s.audit(ctx, sqlite.LogStatusSuccess, "pin verified")

	return nil
}

// boundEmail is the stored form of the email binding.
type boundEmail struct {
	Hash string `json:"hash"`
	Salt string `json:"salt"`
}

// BindEmail stores a salted hash of the recovery email address.
func (s *Service) BindEmail(ctx context.Context, email string) error {
	const op = "BindEmail"

	if email == "" {
		return walleterror.NewValidationError(walleterror.AuthenticatorComponent, op,
			errors.New("email is empty"))
	}

	salted, err := crypto.HashWithSalt(email, "")
	if err != nil {
		return walleterror.NewCryptoError(walleterror.AuthenticatorComponent, op, err)
	}

	b, err := json.Marshal(&boundEmail{Hash: salted.Hash, Salt: salted.Salt})
	if err != nil {
		return walleterror.NewStorageError(walleterror.AuthenticatorComponent, op, err)
	}

	if err = s.secureStore.Set(securestore.EmailHashID, b); err != nil {
		return walleterror.NewStorageError(walleterror.AuthenticatorComponent, op, err)
	}

	s.audit(ctx, sqlite.LogStatusSuccess, "recovery email bound")

	return nil
}

// VerifyEmail checks an email address against the stored binding.
func (s *Service) VerifyEmail(ctx context.Context, email string) error {
	const op = "VerifyEmail"

	b, err := s.secureStore.Get(securestore.EmailHashID)
	if err != nil {
		if errors.Is(err, securestore.ErrDataNotFound) {
			return walleterror.NewValidationError(walleterror.AuthenticatorComponent, op,
				errors.New("no email has been bound"))
		}

		return walleterror.NewStorageError(walleterror.AuthenticatorComponent, op, err)
	}

	var bound boundEmail

	if err = json.Unmarshal(b, &bound); err != nil {
		return walleterror.NewStorageError(walleterror.AuthenticatorComponent, op, err)
	}

	salted, err := crypto.HashWithSalt(email, bound.Salt)
	if err != nil {
		return walleterror.NewCryptoError(walleterror.AuthenticatorComponent, op, err)
	}

	if subtle.ConstantTimeCompare([]byte(salted.Hash), []byte(bound.Hash)) != 1 {
		s.audit(ctx, sqlite.LogStatusFailed, "email verification failed")

		return walleterror.NewValidationError(walleterror.AuthenticatorComponent, op,
			errors.New("email verification failed"))
	}

	s.audit(ctx, sqlite.LogStatusSuccess, "email verified")

	return nil
}

func (s *Service) audit(ctx context.Context, status sqlite.LogStatus, details string) {
	if s.auditLog == nil {
		return
	}

	if err := s.auditLog.Log(ctx, &sqlite.LogEntry{
		TransactionType: sqlite.TransactionTypeAuthentication,
		Status:          status,
		Details:         details,
	}); err != nil {
		logger.Warnc(ctx, "failed to write audit log entry", log.WithError(err))
	}
}
