/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oidc4vci

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/trustbloc/wallet-engine/internal/logfields"
	"github.com/trustbloc/wallet-engine/pkg/securestore"
	"github.com/trustbloc/wallet-engine/pkg/storage/sqlite"
	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

type studentIDResponse struct {
	Credential string `json:"credential"`
}

// processStudentID fetches the campus-issued student ID with a plain
// authenticated GET. The credential has no holder binding and is stored with
// sentinel key columns.
func (s *Service) processStudentID(ctx context.Context) error {
	const op = "ProcessStudentID"

	if s.studentIDEndpoint == "" {
		err := walleterror.NewValidationError(walleterror.OIDC4VCIComponent, op,
			errors.New("student ID endpoint is not configured"))

		s.auditFail(ctx, err.Error())

		return err
	}

	accessToken, err := s.secureStore.Get(securestore.AccessTokenID)
	if err != nil {
		err = walleterror.NewStorageError(walleterror.OIDC4VCIComponent, op,
			fmt.Errorf("student ID requires an access token: %w", err))

		s.auditFail(ctx, err.Error())

		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.studentIDEndpoint, nil)
	if err != nil {
		return walleterror.NewNetworkError(walleterror.OIDC4VCIComponent, op, err)
	}

	req.Header.Set("Authorization", "Bearer "+string(accessToken))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		err = walleterror.NewNetworkError(walleterror.OIDC4VCIComponent, op, err)

		s.auditFail(ctx, err.Error())

		return err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		err = walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op,
			fmt.Errorf("get student ID: status code %d", resp.StatusCode))

		s.auditFail(ctx, err.Error())

		return err
	}

	var response studentIDResponse

	if err = json.NewDecoder(resp.Body).Decode(&response); err != nil {
		err = walleterror.NewProtocolError(walleterror.OIDC4VCIComponent, op,
			fmt.Errorf("decode student ID response: %w", err))

		s.auditFail(ctx, err.Error())

		return err
	}

	id, err := s.credentialStore.Store(ctx, response.Credential, nil)
	if err != nil {
		s.auditFail(ctx, err.Error())

		return err
	}

	s.audit(ctx, &sqlite.LogEntry{
		TransactionType: sqlite.TransactionTypeIssuance,
		Status:          sqlite.LogStatusSuccess,
		Details:         "student ID stored",
		RelyingParty:    s.studentIDEndpoint,
	})

	logger.Infoc(ctx, "student ID stored", logfields.WithCredentialID(id))

	return nil
}
