/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewCredentialsCommand creates the `credentials` command group for listing
// and deleting stored credentials.
func NewCredentialsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "manages stored credentials",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	cmd.AddCommand(newCredentialsListCommand())
	cmd.AddCommand(newCredentialsDeleteCommand())

	return cmd
}

func newCredentialsListCommand() *cobra.Command {
	flags := &serviceFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "lists stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := initServices(flags)
			if err != nil {
				return err
			}

			records, err := svc.credentials.RetrieveCredentials(cmd.Context())
			if err != nil {
				return err
			}

			for _, record := range records {
				vct, _ := record.Claims["vct"].(string)

				line := fmt.Sprintf("%d\t%s\t%s\tissued %s", record.ID, record.Format, vct,
					time.Unix(record.IssDate, 0).Format(time.RFC3339))

				if record.ExpDate > 0 {
					line += fmt.Sprintf("\texpires %s", time.Unix(record.ExpDate, 0).Format(time.RFC3339))
				}

				fmt.Println(line)
			}

			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

type credentialsDeleteFlags struct {
	serviceFlags *serviceFlags
	id           int64
	typeTag      string
	all          bool
}

func newCredentialsDeleteCommand() *cobra.Command {
	flags := &credentialsDeleteFlags{
		serviceFlags: &serviceFlags{},
	}

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "deletes stored credentials by id, type tag or all at once",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := initServices(flags.serviceFlags)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			switch {
			case flags.all:
				return svc.credentials.DeleteAllCredentials(ctx)
			case flags.typeTag != "":
				return svc.credentials.DeleteCredentialByType(ctx, flags.typeTag)
			case flags.id != 0:
				return svc.credentials.DeleteCredentialByID(ctx, flags.id)
			default:
				return fmt.Errorf("one of --id, --type or --all is required")
			}
		},
	}

	flags.serviceFlags.register(cmd)
	cmd.Flags().Int64Var(&flags.id, "id", 0, "credential id to delete")
	cmd.Flags().StringVar(&flags.typeTag, "type", "", "type tag to delete (studentID, iban, ageVerification, healthID)")
	cmd.Flags().BoolVar(&flags.all, "all", false, "delete all stored credentials")

	return cmd
}
