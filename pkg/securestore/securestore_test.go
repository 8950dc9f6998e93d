/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package securestore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/wallet-engine/pkg/securestore"
)

func TestStores(t *testing.T) {
	fileStore, err := securestore.NewFileStore(filepath.Join(t.TempDir(), "secure", "store.json"))
	require.NoError(t, err)

	stores := map[string]securestore.SecureKeyValueStore{
		"mem":  securestore.NewMemStore(),
		"file": fileStore,
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(securestore.DBKeyID)
			require.ErrorIs(t, err, securestore.ErrDataNotFound)

			require.NoError(t, store.Set(securestore.DBKeyID, []byte{0x01, 0x02}))

			got, err := store.Get(securestore.DBKeyID)
			require.NoError(t, err)
			require.Equal(t, []byte{0x01, 0x02}, got)

			require.NoError(t, store.Set(securestore.DBKeyID, []byte{0x03}))

			got, err = store.Get(securestore.DBKeyID)
			require.NoError(t, err)
			require.Equal(t, []byte{0x03}, got)

			require.NoError(t, store.Delete(securestore.DBKeyID))

			_, err = store.Get(securestore.DBKeyID)
			require.ErrorIs(t, err, securestore.ErrDataNotFound)

			// deleting a missing key is not an error
			require.NoError(t, store.Delete("unknown"))
		})
	}
}

func TestFileStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	first, err := securestore.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(securestore.PINHashID, []byte("hash")))

	second, err := securestore.NewFileStore(path)
	require.NoError(t, err)

	got, err := second.Get(securestore.PINHashID)
	require.NoError(t, err)
	require.Equal(t, []byte("hash"), got)
}
