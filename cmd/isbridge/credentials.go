package main

import (
	"fmt"

	"github.com/holtech/isbridge/pkg/auth"
	"github.com/holtech/isbridge/pkg/secrets"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the Infusionsoft application credentials",
	}

	cmd.AddCommand(newCredentialsSetCmd())
	cmd.AddCommand(newCredentialsShowCmd())

	return cmd
}

func newCredentialsSetCmd() *cobra.Command {
	var creds auth.CredentialConfig

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the client key, secret and redirect URI",
		Long: `Store the application credentials.

Flags left unset keep their stored value. Markup is stripped and
surrounding whitespace trimmed before saving.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			current := a.bridge.Credentials()
			if !cmd.Flags().Changed("client-id") {
				creds.ClientID = current.ClientID
			}
			if !cmd.Flags().Changed("client-secret") {
				creds.ClientSecret = current.ClientSecret
			}
			if !cmd.Flags().Changed("redirect-uri") {
				creds.RedirectURI = current.RedirectURI
			}

			if err := a.bridge.SaveCredentials(cmd.Context(), creds); err != nil {
				return err
			}

			if a.bridge.Manager().Configured() {
				pterm.Success.Println("Credentials saved.")
			} else {
				pterm.Warning.Println("Credentials saved but incomplete.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&creds.ClientID, "client-id", "", "OAuth client key")
	cmd.Flags().StringVar(&creds.ClientSecret, "client-secret", "", "OAuth client secret")
	cmd.Flags().StringVar(&creds.RedirectURI, "redirect-uri", "", "OAuth redirect URI (the settings page URL)")

	return cmd
}

func newCredentialsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored credentials with the secret masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			creds := a.bridge.Credentials()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "client_key:    %s\n", creds.ClientID)
			fmt.Fprintf(out, "client_secret: %s\n", secrets.MaskValue(creds.ClientSecret, nil))
			fmt.Fprintf(out, "redirect_uri:  %s\n", creds.RedirectURI)
			return nil
		},
	}
}
