/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPINCommand creates the `pin` command group.
func NewPINCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "manages the wallet PIN",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	cmd.AddCommand(newPINSetCommand())
	cmd.AddCommand(newPINVerifyCommand())

	return cmd
}

func newPINSetCommand() *cobra.Command {
	flags := &serviceFlags{}

	var pin string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "sets the wallet PIN",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := initServices(flags)
			if err != nil {
				return err
			}

			if err := svc.authenticator.SetPIN(cmd.Context(), pin); err != nil {
				return err
			}

			fmt.Println("pin set")

			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&pin, "pin", "", "the PIN to set")
	_ = cmd.MarkFlagRequired("pin")

	return cmd
}

func newPINVerifyCommand() *cobra.Command {
	flags := &serviceFlags{}

	var pin string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "verifies the wallet PIN",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := initServices(flags)
			if err != nil {
				return err
			}

			if err := svc.authenticator.VerifyPIN(cmd.Context(), pin); err != nil {
				return err
			}

			fmt.Println("pin ok")

			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&pin, "pin", "", "the PIN to verify")
	_ = cmd.MarkFlagRequired("pin")

	return cmd
}
