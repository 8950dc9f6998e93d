/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oidc4vci

import (
	"context"

	"github.com/trustbloc/wallet-engine/pkg/crypto"
	"github.com/trustbloc/wallet-engine/pkg/service/wellknown"
	"github.com/trustbloc/wallet-engine/pkg/storage/sqlite"
)

type metadataService interface {
	GetOpenIDConfiguration(ctx context.Context, issuerURL string) (*wellknown.OpenIDConfiguration, error)
	GetCredentialIssuerMetadata(ctx context.Context, issuerURL string) (*wellknown.CredentialIssuerMetadata, error)
}

type credentialStore interface {
	Store(ctx context.Context, credentialString string, keyPair *crypto.KeyPair) (int64, error)
}

type auditLogStore interface {
	Log(ctx context.Context, entry *sqlite.LogEntry) error
}
