package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/todosync/internal/credential"
)

var credentialKeys = []string{credential.KeyCalDAVPassword, credential.KeyGitHubToken}

func credentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage secrets stored in the system keyring",
	}
	cmd.AddCommand(credentialsSetCmd(), credentialsDeleteCmd())
	return cmd
}

func credentialsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set <key>",
		Short:     "Prompt for a secret and store it in the keyring",
		Long:      "Known keys: " + strings.Join(credentialKeys, ", "),
		Args:      validCredentialKey,
		ValidArgs: credentialKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			var secret string
			err := huh.NewInput().
				Title(key).
				Description("Stored in the system keyring, never in the config file").
				EchoMode(huh.EchoModePassword).
				Value(&secret).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("value is required")
					}
					return nil
				}).
				Run()
			if err != nil {
				return err
			}

			if err := credential.New().Set(key, strings.TrimSpace(secret)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", key)
			return nil
		},
	}
}

func credentialsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "delete <key>",
		Short:     "Remove a secret from the keyring",
		Args:      validCredentialKey,
		ValidArgs: credentialKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credential.New().Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func validCredentialKey(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	if !slices.Contains(credentialKeys, args[0]) {
		return fmt.Errorf("unknown credential %q (known: %s)", args[0], strings.Join(credentialKeys, ", "))
	}
	return nil
}
