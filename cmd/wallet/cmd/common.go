/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package cmd wires the wallet engine services into cobra commands. All logic
// lives in pkg/; the commands only parse flags, build the service graph and
// print results.
package cmd

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/trustbloc/wallet-engine/pkg/securestore"
	"github.com/trustbloc/wallet-engine/pkg/service/authenticator"
	"github.com/trustbloc/wallet-engine/pkg/service/oidc4vp"
	"github.com/trustbloc/wallet-engine/pkg/service/wellknown"
	"github.com/trustbloc/wallet-engine/pkg/storage/sqlite"
)

const httpTimeout = 30 * time.Second

type serviceFlags struct {
	walletDir string
}

func (f *serviceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.walletDir, "wallet-dir", defaultWalletDir(),
		"directory holding the wallet database and secret store")
}

func defaultWalletDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wallet"
	}

	return filepath.Join(home, ".wallet")
}

type services struct {
	httpClient    *http.Client
	secureStore   securestore.SecureKeyValueStore
	db            *sqlite.DB
	credentials   *sqlite.CredentialStore
	auditLog      *sqlite.AuditLogStore
	metadata      *wellknown.Service
	presentation  *oidc4vp.Service
	authenticator *authenticator.Service
}

func initServices(flags *serviceFlags) (*services, error) {
	secureStore, err := securestore.NewFileStore(filepath.Join(flags.walletDir, "secrets.json"))
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: httpTimeout}

	db := sqlite.NewDB(filepath.Join(flags.walletDir, "wallet.db"), secureStore)
	credentials := sqlite.NewCredentialStore(db)
	auditLog := sqlite.NewAuditLogStore(db)

	return &services{
		httpClient:  httpClient,
		secureStore: secureStore,
		db:          db,
		credentials: credentials,
		auditLog:    auditLog,
		metadata:    wellknown.NewService(httpClient),
		presentation: oidc4vp.NewService(&oidc4vp.Config{
			CredentialRetriever: credentials,
			AuditLog:            auditLog,
		}),
		authenticator: authenticator.NewService(&authenticator.Config{
			SecureStore: secureStore,
			AuditLog:    auditLog,
		}),
	}, nil
}
