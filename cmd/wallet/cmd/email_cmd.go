/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewEmailCommand creates the `email` command group for the recovery email
// binding.
func NewEmailCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "email",
		Short: "manages the bound recovery email",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	cmd.AddCommand(newEmailBindCommand())
	cmd.AddCommand(newEmailVerifyCommand())

	return cmd
}

func newEmailBindCommand() *cobra.Command {
	flags := &serviceFlags{}

	var email string

	cmd := &cobra.Command{
		Use:   "bind",
		Short: "binds a recovery email address",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := initServices(flags)
			if err != nil {
				return err
			}

			if err := svc.authenticator.BindEmail(cmd.Context(), email); err != nil {
				return err
			}

			fmt.Println("email bound")

			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&email, "email", "", "the email address to bind")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newEmailVerifyCommand() *cobra.Command {
	flags := &serviceFlags{}

	var email string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "verifies an email address against the binding",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := initServices(flags)
			if err != nil {
				return err
			}

			if err := svc.authenticator.VerifyEmail(cmd.Context(), email); err != nil {
				return err
			}

			fmt.Println("email ok")

			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&email, "email", "", "the email address to verify")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
