/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package verifiable defines the closed set of credential formats the wallet
// stores and the per-format codec contract.
package verifiable

import (
	"fmt"
	"strings"
)

// Format is a stored credential format. The set is closed: adding a format
// means adding a Codec implementation and extending CodecFor.
type Format string

const (
	// FormatSDJWTVC is the SD-JWT Verifiable Credential compact serialization.
	FormatSDJWTVC Format = "sd_jwt_vc"
	// FormatMdoc is the ISO mdoc format. Recognized but not implemented.
	FormatMdoc Format = "mdoc"
)

// OIDCFormat values as they appear in issuer metadata and credential requests.
type OIDCFormat string

const (
	OIDCFormatSDJWTVC = OIDCFormat("vc+sd-jwt")
	OIDCFormatMdoc    = OIDCFormat("mso_mdoc")
)

var oidcToFormat = map[OIDCFormat]Format{ //nolint:gochecknoglobals
	OIDCFormatSDJWTVC: FormatSDJWTVC,
	OIDCFormatMdoc:    FormatMdoc,
}

// FromOIDCFormat maps an issuer-side format identifier to a stored Format.
func FromOIDCFormat(f OIDCFormat) (Format, error) {
	format, ok := oidcToFormat[f]
	if !ok {
		return "", fmt.Errorf("unsupported credential format %q", f)
	}

	return format, nil
}

// DetectFormat infers the format of a raw credential string. An SD-JWT VC is
// a compact JWS, optionally followed by ~-separated disclosures.
func DetectFormat(credential string) Format {
	jwtPart, _, _ := strings.Cut(credential, "~")

	if strings.Count(jwtPart, ".") == 2 {
		return FormatSDJWTVC
	}

	return FormatMdoc
}

// Codec is the per-format transformation contract.
type Codec interface {
	// Decode returns the parsed structural form as a JSON-compatible map.
	Decode(credential string) (map[string]interface{}, error)
	// Claims returns the fully disclosed flat claim map.
	Claims(credential string) (map[string]interface{}, error)
}

// CodecFor selects the codec for a format. The mdoc variant is a named
// failure until the format is implemented.
func CodecFor(format Format) (Codec, error) {
	switch format {
	case FormatSDJWTVC:
		return &sdJWTCodec{}, nil
	case FormatMdoc:
		return nil, fmt.Errorf("mdoc credentials are not supported")
	default:
		return nil, fmt.Errorf("unknown credential format %q", format)
	}
}
