/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package sqlite persists issued credentials and the audit log in a local
// sqlite database. Sensitive columns are encrypted with AES-GCM under the
// database key held in the secure store; the key is created lazily on first
// access. Every operation opens its own connection and closes it before
// returning.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/wallet-engine/pkg/dataprotect"
	"github.com/trustbloc/wallet-engine/pkg/securestore"
)

var logger = log.New("storage-sqlite")

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS credentials (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	credential_string BLOB NOT NULL,
	parsed_credential BLOB NOT NULL,
	credential_format TEXT NOT NULL,
	credential_claims BLOB NOT NULL,
	public_key BLOB NOT NULL,
	private_key BLOB NOT NULL,
	iss_date INTEGER NOT NULL,
	exp_date INTEGER
);

CREATE TABLE IF NOT EXISTS logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	transaction_type TEXT NOT NULL,
	status TEXT NOT NULL,
	details TEXT,
	relying_party TEXT,
	transaction_datetime INTEGER NOT NULL
);
`

// DB provides per-operation connections to the wallet database and the
// column protector keyed by the lazily created database key.
type DB struct {
	path        string
	secureStore securestore.SecureKeyValueStore
}

// NewDB creates a database accessor for the sqlite file at path.
func NewDB(path string, secureStore securestore.SecureKeyValueStore) *DB {
	return &DB{
		path:        path,
		secureStore: secureStore,
	}
}

// open returns a fresh connection with the schema ensured. Callers must
// close it.
func (d *DB) open() (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", d.path)
	if err != nil {
		return nil, fmt.Errorf("open wallet db: %w", err)
	}

	if _, err = conn.Exec(createTablesSQL); err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("ensure wallet db schema: %w", err)
	}

	return conn, nil
}

// protector returns the AES-GCM column protector. The 32-byte database key is
// generated and stored on first use and never surfaced as a user error.
func (d *DB) protector() (dataprotect.Protector, error) {
	key, err := d.secureStore.Get(securestore.DBKeyID)
	if errors.Is(err, securestore.ErrDataNotFound) {
		logger.Info("database key not found, generating a new one")

		key, err = dataprotect.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("generate database key: %w", err)
		}

		if err = d.secureStore.Set(securestore.DBKeyID, key); err != nil {
			return nil, fmt.Errorf("persist database key: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("load database key: %w", err)
	}

	return dataprotect.NewAES(key)
}
