/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trustbloc/wallet-engine/pkg/service/oidc4vp"
)

type presentCommandFlags struct {
	serviceFlags *serviceFlags
	credentialID int64
	claimKeys    []string
	audience     string
	nonce        string
}

// NewPresentCommand creates the `present` command: it builds a
// selective-disclosure presentation of one stored credential and prints the
// transport payload and the presented SD-JWT.
func NewPresentCommand() *cobra.Command {
	flags := &presentCommandFlags{
		serviceFlags: &serviceFlags{},
	}

	cmd := &cobra.Command{
		Use:   "present",
		Short: "builds a selective-disclosure presentation",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := initServices(flags.serviceFlags)
			if err != nil {
				return err
			}

			presentation, err := svc.presentation.BuildPresentation(cmd.Context(),
				[]*oidc4vp.PresentationRequest{
					{
						CredentialID: flags.credentialID,
						ClaimKeys:    flags.claimKeys,
						Audience:     flags.audience,
						Nonce:        flags.nonce,
					},
				})
			if err != nil {
				return err
			}

			payload, err := json.MarshalIndent(presentation.Payload, "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(payload))

			for _, sdJWT := range presentation.SDJWTs {
				fmt.Println(sdJWT)
			}

			return nil
		},
	}

	flags.serviceFlags.register(cmd)
	cmd.Flags().Int64Var(&flags.credentialID, "id", 0, "stored credential id")
	cmd.Flags().StringSliceVar(&flags.claimKeys, "claim", nil, "claim keys to disclose")
	cmd.Flags().StringVar(&flags.audience, "audience", "", "verifier the presentation is bound to")
	cmd.Flags().StringVar(&flags.nonce, "nonce", "", "verifier-provided nonce")

	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("claim")

	return cmd
}
