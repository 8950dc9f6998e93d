/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sqlite

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/trustbloc/wallet-engine/pkg/doc/verifiable"
)

// Short type tags accepted by DeleteCredentialByType.
const (
	TypeTagStudentID       = "studentID"
	TypeTagIBAN            = "iban"
	TypeTagAgeVerification = "ageVerification"
	TypeTagHealthID        = "healthID"
)

// ageOver18Claim marks age-verification credentials that carry a boolean age
// claim instead of a vct match.
const ageOver18Claim = "age_over_18"

// typeTagToVCT maps each short tag to exactly one vct. The mapping is
// bijective so a tag deletion can never match an unrelated credential type.
var typeTagToVCT = map[string]string{ //nolint:gochecknoglobals
	TypeTagStudentID:       verifiable.VCTStudentID,
	TypeTagIBAN:            verifiable.VCTIBAN,
	TypeTagAgeVerification: verifiable.VCTAgeVerification,
	TypeTagHealthID:        verifiable.VCTHealthID,
}

func vctForTypeTag(tag string) (string, error) {
	vct, ok := typeTagToVCT[tag]
	if !ok {
		return "", fmt.Errorf("unknown credential type tag %q", tag)
	}

	return vct, nil
}

func claimsMatchType(claimsJSON []byte, vct, tag string) bool {
	if gjson.GetBytes(claimsJSON, "vct").String() == vct {
		return true
	}

	if tag == TypeTagAgeVerification {
		return gjson.GetBytes(claimsJSON, ageOver18Claim).Exists()
	}

	return false
}
