/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/trustbloc/wallet-engine/cmd/wallet/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet CLI",
		Long:  "Wallet CLI manages digital credentials: OIDC4VCI issuance, selective-disclosure presentations, local PIN and audit logs.",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	rootCmd.AddCommand(cmd.NewIssueCommand())
	rootCmd.AddCommand(cmd.NewPresentCommand())
	rootCmd.AddCommand(cmd.NewCredentialsCommand())
	rootCmd.AddCommand(cmd.NewPINCommand())
	rootCmd.AddCommand(cmd.NewEmailCommand())
	rootCmd.AddCommand(cmd.NewLogsCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
