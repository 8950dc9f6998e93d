/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cli/browser"
	"github.com/spf13/cobra"

	"github.com/trustbloc/wallet-engine/pkg/oauth2client"
	"github.com/trustbloc/wallet-engine/pkg/service/oidc4vci"
)

const authorizationTimeout = 5 * time.Minute

type issueCommandFlags struct {
	serviceFlags      *serviceFlags
	issuerURL         string
	clientID          string
	credentialTypes   []string
	studentIDEndpoint string
}

// NewIssueCommand creates the `issue` command: it starts an issuance attempt,
// hands the authorization URL to the browser and completes the flow with the
// authorization code intercepted on a localhost callback listener.
func NewIssueCommand() *cobra.Command {
	flags := &issueCommandFlags{
		serviceFlags: &serviceFlags{},
	}

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "requests credentials from an issuer",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := initServices(flags.serviceFlags)
			if err != nil {
				return err
			}

			listener, err := net.Listen("tcp4", "127.0.0.1:0")
			if err != nil {
				return fmt.Errorf("start callback listener: %w", err)
			}
			defer listener.Close() //nolint:errcheck

			redirectURI := fmt.Sprintf("http://127.0.0.1:%d/callback",
				listener.Addr().(*net.TCPAddr).Port)

			issuance := oidc4vci.NewService(&oidc4vci.Config{
				HTTPClient:        svc.httpClient,
				OAuth2Client:      oauth2client.NewOAuth2Client(),
				MetadataService:   svc.metadata,
				CredentialStore:   svc.credentials,
				AuditLog:          svc.auditLog,
				SecureStore:       svc.secureStore,
				IssuerURL:         flags.issuerURL,
				ClientID:          flags.clientID,
				RedirectURI:       redirectURI,
				StudentIDEndpoint: flags.studentIDEndpoint,
			})

			ctx := cmd.Context()

			authURL, err := issuance.RequestCredential(ctx, flags.credentialTypes)
			if err != nil {
				return err
			}

			if authURL == "" {
				fmt.Println("no authorization needed, done")

				return nil
			}

			code, state, err := interceptAuthorizationCode(authURL, listener)
			if err != nil {
				return err
			}

			stored, err := issuance.CompleteAuthorization(ctx, code, state)
			if err != nil {
				return err
			}

			for _, credential := range stored {
				fmt.Printf("stored credential %d (%s)\n", credential.CredentialID, credential.VCT)
			}

			return nil
		},
	}

	flags.serviceFlags.register(cmd)
	cmd.Flags().StringVar(&flags.issuerURL, "issuer-url", "", "credential issuer base url")
	cmd.Flags().StringVar(&flags.clientID, "client-id", "wallet-cli", "oauth2 client id")
	cmd.Flags().StringSliceVar(&flags.credentialTypes, "type", nil, "credential types (vct values) to request")
	cmd.Flags().StringVar(&flags.studentIDEndpoint, "student-id-endpoint", "", "endpoint for the authenticated student ID fetch")

	_ = cmd.MarkFlagRequired("issuer-url")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

// interceptAuthorizationCode serves the redirect target on listener and waits
// for the issuer to deliver the authorization code and state.
func interceptAuthorizationCode(authURL string, listener net.Listener) (string, string, error) {
	server := &callbackServer{
		resultChan: make(chan callbackResult, 1),
	}

	go func() {
		_ = http.Serve(listener, server) //nolint:gosec
	}()

	fmt.Printf("Log in with a browser:\n\n%s\n\nor press [Enter] to open the link in your default browser\n", authURL)

	enterPressed := make(chan struct{})

	go func() {
		_, _ = fmt.Scanln()
		close(enterPressed)
	}()

	for {
		select {
		case <-enterPressed:
			if err := browser.OpenURL(authURL); err != nil {
				return "", "", fmt.Errorf("open browser: %w", err)
			}

			enterPressed = nil
		case result := <-server.resultChan:
			return result.code, result.state, nil
		case <-time.After(authorizationTimeout):
			return "", "", fmt.Errorf("timed out waiting for authorization")
		}
	}
}

type callbackResult struct {
	code  string
	state string
}

type callbackServer struct {
	resultChan chan callbackResult
}

func (s *callbackServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/callback" {
		http.NotFound(w, r)

		return
	}

	s.resultChan <- callbackResult{
		code:  r.URL.Query().Get("code"),
		state: r.URL.Query().Get("state"),
	}

	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, "<html><body>Authorization received. You can close this window.</body></html>")
}
