/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/wallet-engine/pkg/crypto"
	"github.com/trustbloc/wallet-engine/pkg/doc/sdjwt/issuer"
	"github.com/trustbloc/wallet-engine/pkg/doc/verifiable"
)

func TestFromOIDCFormat(t *testing.T) {
	format, err := verifiable.FromOIDCFormat(verifiable.OIDCFormatSDJWTVC)
	require.NoError(t, err)
	require.Equal(t, verifiable.FormatSDJWTVC, format)

	format, err = verifiable.FromOIDCFormat(verifiable.OIDCFormatMdoc)
	require.NoError(t, err)
	require.Equal(t, verifiable.FormatMdoc, format)

	_, err = verifiable.FromOIDCFormat("ldp_vc")
	require.ErrorContains(t, err, "unsupported credential format")
}

func TestDetectFormat(t *testing.T) {
	require.Equal(t, verifiable.FormatSDJWTVC, verifiable.DetectFormat("a.b.c"))
	require.Equal(t, verifiable.FormatSDJWTVC, verifiable.DetectFormat("a.b.c~d1~d2"))
	require.Equal(t, verifiable.FormatMdoc, verifiable.DetectFormat("o2d2aWdlc3Rz"))
}

func TestCodecFor(t *testing.T) {
	t.Run("sd-jwt vc", func(t *testing.T) {
		codec, err := verifiable.CodecFor(verifiable.FormatSDJWTVC)
		require.NoError(t, err)

		keys, err := crypto.GenerateKeyPair()
		require.NoError(t, err)

		signer, err := crypto.NewES256Signer(keys.PrivateKey)
		require.NoError(t, err)

		token, err := issuer.New("https://issuer.example.com",
			map[string]interface{}{"vct": "TestCredential", "given_name": "John"},
			issuer.DisclosureFrame{"given_name"}, signer,
			issuer.WithIssuedAt(time.Now().Unix()))
		require.NoError(t, err)

		claims, err := codec.Claims(token.Serialize())
		require.NoError(t, err)
		require.Equal(t, "John", claims["given_name"])

		decoded, err := codec.Decode(token.Serialize())
		require.NoError(t, err)
		require.Contains(t, decoded, "payload")
		require.Contains(t, decoded, "disclosures")
	})

	t.Run("mdoc is a named failure", func(t *testing.T) {
		_, err := verifiable.CodecFor(verifiable.FormatMdoc)
		require.ErrorContains(t, err, "mdoc credentials are not supported")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := verifiable.CodecFor("ldp")
		require.ErrorContains(t, err, "unknown credential format")
	})
}
