/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package wellknown fetches the issuer's OpenID discovery documents.
package wellknown

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/wallet-engine/internal/logfields"
	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

var logger = log.New("wellknown")

const (
	openIDConfigurationPath      = "/.well-known/openid-configuration"
	credentialIssuerMetadataPath = "/.well-known/openid-credential-issuer"
)

// Service fetches issuer metadata over HTTPS.
type Service struct {
	httpClient *http.Client
}

// NewService creates a metadata fetcher using httpClient.
func NewService(httpClient *http.Client) *Service {
	return &Service{httpClient: httpClient}
}

// GetOpenIDConfiguration fetches the issuer's OAuth2 endpoint document.
func (s *Service) GetOpenIDConfiguration(ctx context.Context, issuerURL string) (*OpenIDConfiguration, error) {
	var config OpenIDConfiguration

	if err := s.getJSON(ctx, "GetOpenIDConfiguration", issuerURL+openIDConfigurationPath, &config); err != nil {
		return nil, err
	}

	if config.TokenEndpoint == "" || config.AuthorizationEndpoint == "" {
		return nil, walleterror.NewProtocolError(walleterror.WellKnownComponent, "GetOpenIDConfiguration",
			fmt.Errorf("issuer openid configuration is missing required endpoints"))
	}

	return &config, nil
}

// GetCredentialIssuerMetadata fetches the OpenID4VCI issuer document.
func (s *Service) GetCredentialIssuerMetadata(ctx context.Context,
	issuerURL string) (*CredentialIssuerMetadata, error) {
	var metadata CredentialIssuerMetadata

	if err := s.getJSON(ctx, "GetCredentialIssuerMetadata",
		issuerURL+credentialIssuerMetadataPath, &metadata); err != nil {
		return nil, err
	}

	if metadata.CredentialEndpoint == "" {
		return nil, walleterror.NewProtocolError(walleterror.WellKnownComponent, "GetCredentialIssuerMetadata",
			fmt.Errorf("issuer metadata is missing credential_endpoint"))
	}

	return &metadata, nil
}

func (s *Service) getJSON(ctx context.Context, op, url string, target interface{}) error {
	logger.Debugc(ctx, "fetching issuer metadata", logfields.WithEndpoint(url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return walleterror.NewNetworkError(walleterror.WellKnownComponent, op, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return walleterror.NewNetworkError(walleterror.WellKnownComponent, op, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return walleterror.NewProtocolError(walleterror.WellKnownComponent, op,
			fmt.Errorf("get %s: status code %d", url, resp.StatusCode))
	}

	if err = json.NewDecoder(resp.Body).Decode(target); err != nil {
		return walleterror.NewProtocolError(walleterror.WellKnownComponent, op,
			fmt.Errorf("decode %s: %w", url, err))
	}

	return nil
}
