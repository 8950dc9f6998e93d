/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/wallet-engine/pkg/storage/sqlite"
)

func TestAuditLog(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewAuditLogStore(newTestDB(t))

	entries := []*sqlite.LogEntry{
		{
			TransactionType: sqlite.TransactionTypeIssuance,
			Status:          sqlite.LogStatusSuccess,
			Details:         "credential stored",
			RelyingParty:    "https://issuer.example.com",
		},
		{
			TransactionType: sqlite.TransactionTypeIssuance,
			Status:          sqlite.LogStatusFailed,
			Details:         "token exchange failed",
			RelyingParty:    "https://issuer.example.com",
		},
		{
			TransactionType: sqlite.TransactionTypePresentation,
			Status:          sqlite.LogStatusSuccess,
			RelyingParty:    "https://verifier.example.com",
		},
	}

	for _, entry := range entries {
		require.NoError(t, store.Log(ctx, entry))
		require.Positive(t, entry.ID)
		require.Positive(t, entry.TransactionDateTime)
	}

	t.Run("no filter", func(t *testing.T) {
		got, err := store.Query(ctx, nil)
		require.NoError(t, err)
		require.Len(t, got, 3)

		// insertion order
		require.Less(t, got[0].ID, got[1].ID)
		require.Less(t, got[1].ID, got[2].ID)
	})

	t.Run("by type", func(t *testing.T) {
		got, err := store.Query(ctx, &sqlite.LogFilter{
			TransactionType: sqlite.TransactionTypeIssuance,
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("by type and status", func(t *testing.T) {
		got, err := store.Query(ctx, &sqlite.LogFilter{
			TransactionType: sqlite.TransactionTypeIssuance,
			Status:          sqlite.LogStatusFailed,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "token exchange failed", got[0].Details)
	})

	t.Run("by status only", func(t *testing.T) {
		got, err := store.Query(ctx, &sqlite.LogFilter{Status: sqlite.LogStatusSuccess})
		require.NoError(t, err)
		require.Len(t, got, 2)
	})
}
