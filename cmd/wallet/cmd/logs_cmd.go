/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/trustbloc/wallet-engine/pkg/storage/sqlite"
)

type logsCommandFlags struct {
	serviceFlags    *serviceFlags
	transactionType string
	status          string
}

// NewLogsCommand creates the `logs` command: it prints the audit log,
// optionally filtered by transaction type and status.
func NewLogsCommand() *cobra.Command {
	flags := &logsCommandFlags{
		serviceFlags: &serviceFlags{},
	}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "prints the wallet audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := initServices(flags.serviceFlags)
			if err != nil {
				return err
			}

			entries, err := svc.auditLog.Query(cmd.Context(), &sqlite.LogFilter{
				TransactionType: sqlite.TransactionType(flags.transactionType),
				Status:          sqlite.LogStatus(flags.status),
			})
			if err != nil {
				return err
			}

			for _, entry := range entries {
				line := fmt.Sprintf("%s\t%s\t%s\t%s",
					time.Unix(entry.TransactionDateTime, 0).Format(time.RFC3339),
					entry.TransactionType, entry.Status, entry.Details)

				if entry.RelyingParty != "" {
					line += "\t" + entry.RelyingParty
				}

				fmt.Println(line)
			}

			return nil
		},
	}

	flags.serviceFlags.register(cmd)
	cmd.Flags().StringVar(&flags.transactionType, "type", "",
		"filter by transaction type (credential_issuance, credential_presentation, authentication, signature, error)")
	cmd.Flags().StringVar(&flags.status, "status", "", "filter by status (success, failed, pending)")

	return cmd
}
