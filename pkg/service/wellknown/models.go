/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wellknown

// OpenIDConfiguration is the issuer's OAuth2/OIDC endpoint document served at
// /.well-known/openid-configuration.
type OpenIDConfiguration struct {
	Issuer                             string   `json:"issuer"`
	AuthorizationEndpoint              string   `json:"authorization_endpoint"`
	PushedAuthorizationRequestEndpoint string   `json:"pushed_authorization_request_endpoint"`
	TokenEndpoint                      string   `json:"token_endpoint"`
	GrantTypesSupported                []string `json:"grant_types_supported,omitempty"`
	ScopesSupported                    []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported             []string `json:"response_types_supported,omitempty"`
	CodeChallengeMethodsSupported      []string `json:"code_challenge_methods_supported,omitempty"`
}

// CredentialIssuerMetadata is the OpenID4VCI issuer document served at
// /.well-known/openid-credential-issuer.
type CredentialIssuerMetadata struct {
	CredentialIssuer        string `json:"credential_issuer"`
	CredentialEndpoint      string `json:"credential_endpoint"`
	BatchCredentialEndpoint string `json:"batch_credential_endpoint,omitempty"`
	NotificationEndpoint    string `json:"notification_endpoint,omitempty"`

	CredentialConfigurationsSupported map[string]*CredentialConfiguration `json:"credential_configurations_supported,omitempty"`
}

// CredentialConfiguration describes one offered credential type.
type CredentialConfiguration struct {
	Format                               string   `json:"format"`
	Scope                                string   `json:"scope,omitempty"`
	VCT                                  string   `json:"vct,omitempty"`
	Doctype                              string   `json:"doctype,omitempty"`
	CryptographicBindingMethodsSupported []string `json:"cryptographic_binding_methods_supported,omitempty"`
	CredentialSigningAlgValuesSupported  []string `json:"credential_signing_alg_values_supported,omitempty"`
}
