// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cairn-dev/cairn/internal/secrets"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// secretStoreFactory creates the secret store. Tests swap it for an
// in-memory one.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyring()
}

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets stored in the OS keyring",
		Long: "Store credentials in the operating system keyring and reference them from config as " +
			"keyring://cairn/<name>, e.g. database.password: keyring://cairn/database.password.",
	}

	cmd.AddCommand(
		newSecretSetCmd(),
		newSecretListCmd(),
		newSecretDeleteCmd(),
	)

	return cmd
}

func newSecretSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Store a secret, reading the value from --value or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			value, _ := cmd.Flags().GetString("value")
			if !cmd.Flags().Changed("value") {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return cairnerr.Wrap(err, cairnerr.CodeCLIInputInvalid, "reading secret from stdin")
				}
				value = strings.TrimRight(string(raw), "\r\n")
			}
			if value == "" {
				return cairnerr.New(cairnerr.CodeCLIInputInvalid, "secret value must not be empty")
			}

			if err := secretStoreFactory().Set(secrets.DefaultService, name, value); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored secret %s, reference it as %s\n",
				name, secrets.URI(secrets.DefaultService, name))
			return nil
		},
	}

	cmd.Flags().String("value", "", "secret value (read from stdin when omitted)")

	return cmd
}

func newSecretListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored secret names",
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, err := secretStoreFactory().Keys(secrets.DefaultService)
			if err != nil {
				return err
			}
			if keys == nil {
				keys = []string{}
			}
			return render(cmd, keys, func(w io.Writer) error {
				if len(keys) == 0 {
					return none(w, "secrets")
				}
				for _, k := range keys {
					if _, err := fmt.Fprintln(w, k); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newSecretDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := secretStoreFactory().Delete(secrets.DefaultService, args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted secret %s\n", args[0])
			return nil
		},
	}
}
