/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"github.com/trustbloc/wallet-engine/pkg/doc/sdjwt/holder"
)

// sdJWTCodec adapts the SD-JWT packages to the Codec contract.
type sdJWTCodec struct{}

func (c *sdJWTCodec) Decode(credential string) (map[string]interface{}, error) {
	decoded, err := holder.Parse(credential)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"header":      decoded.Headers,
		"payload":     decoded.Payload,
		"disclosures": decoded.Disclosures,
	}, nil
}

func (c *sdJWTCodec) Claims(credential string) (map[string]interface{}, error) {
	return holder.ResolveClaims(credential)
}
