/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

// Well-known vct values the wallet treats specially.
const (
	// VCTStudentID is issued by the campus service over plain authenticated
	// HTTP rather than the OAuth flow and carries no holder binding.
	VCTStudentID = "StudentIDCredential"
	// VCTAgeVerification carries a boolean age claim instead of a birthdate.
	VCTAgeVerification = "AgeVerificationCredential"
	VCTIBAN            = "IBANCredential"
	VCTHealthID        = "HealthIDCredential"
)
