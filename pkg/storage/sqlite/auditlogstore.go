/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

// TransactionType classifies an audit log entry.
type TransactionType string

const (
	TransactionTypeIssuance       TransactionType = "credential_issuance"
	TransactionTypePresentation   TransactionType = "credential_presentation"
	TransactionTypeAuthentication TransactionType = "authentication"
	TransactionTypeSignature      TransactionType = "signature"
	TransactionTypeError          TransactionType = "error"
)

// LogStatus is the outcome recorded for an audit log entry.
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusFailed  LogStatus = "failed"
	LogStatusPending LogStatus = "pending"
)

// LogEntry is one append-only audit record. Entries are never mutated or
// deleted by the wallet engine.
type LogEntry struct {
	ID                  int64
	TransactionType     TransactionType
	Status              LogStatus
	Details             string
	RelyingParty        string
	TransactionDateTime int64
}

// LogFilter narrows a Query. Zero values match everything.
type LogFilter struct {
	TransactionType TransactionType
	Status          LogStatus
}

// AuditLogStore appends to and reads the logs table.
type AuditLogStore struct {
	db *DB
}

// NewAuditLogStore creates an audit log store over db.
func NewAuditLogStore(db *DB) *AuditLogStore {
	return &AuditLogStore{db: db}
}

// Log appends an entry. A zero TransactionDateTime is stamped with the
// current time.
func (s *AuditLogStore) Log(ctx context.Context, entry *LogEntry) error {
	const op = "Log"

	if entry.TransactionDateTime == 0 {
		entry.TransactionDateTime = time.Now().Unix()
	}

	conn, err := s.db.open()
	if err != nil {
		return walleterror.NewStorageError(walleterror.AuditLogComponent, op, err)
	}
	defer conn.Close() //nolint:errcheck

	result, err := conn.ExecContext(ctx,
		`INSERT INTO logs (transaction_type, status, details, relying_party, transaction_datetime)
		VALUES (?, ?, ?, ?, ?)`,
		string(entry.TransactionType), string(entry.Status), entry.Details,
		entry.RelyingParty, entry.TransactionDateTime)
	if err != nil {
		return walleterror.NewStorageError(walleterror.AuditLogComponent, op, err)
	}

	entry.ID, err = result.LastInsertId()
	if err != nil {
		return walleterror.NewStorageError(walleterror.AuditLogComponent, op, err)
	}

	return nil
}

// Query returns entries matching the filter in insertion order.
func (s *AuditLogStore) Query(ctx context.Context, filter *LogFilter) ([]*LogEntry, error) {
	const op = "Query"

	if filter == nil {
		filter = &LogFilter{}
	}

	query := "SELECT id, transaction_type, status, details, relying_party, transaction_datetime FROM logs"

	var (
		conditions []string
		args       []interface{}
	)

	if filter.TransactionType != "" {
		conditions = append(conditions, "transaction_type = ?")
		args = append(args, string(filter.TransactionType))
	}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}

	for i, condition := range conditions {
		if i == 0 {
			query += " WHERE " + condition
		} else {
			query += " AND " + condition
		}
	}

	query += " ORDER BY id"

	conn, err := s.db.open()
	if err != nil {
		return nil, walleterror.NewStorageError(walleterror.AuditLogComponent, op, err)
	}
	defer conn.Close() //nolint:errcheck

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, walleterror.NewStorageError(walleterror.AuditLogComponent, op, err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []*LogEntry

	for rows.Next() {
		var (
			entry                 LogEntry
			details, relyingParty sql.NullString
		)

		if err = rows.Scan(&entry.ID, &entry.TransactionType, &entry.Status,
			&details, &relyingParty, &entry.TransactionDateTime); err != nil {
			return nil, walleterror.NewStorageError(walleterror.AuditLogComponent, op, err)
		}

		entry.Details = details.String
		entry.RelyingParty = relyingParty.String

		entries = append(entries, &entry)
	}

	if err = rows.Err(); err != nil {
		return nil, walleterror.NewStorageError(walleterror.AuditLogComponent, op, err)
	}

	return entries, nil
}
