package main

import (
	"time"

	"github.com/holtech/isbridge/pkg/auth"
	"github.com/holtech/isbridge/pkg/output"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

type statusView struct {
	State       string `json:"state"`
	ClientKey   string `json:"client_key"`
	RedirectURI string `json:"redirect_uri"`
	Storage     string `json:"storage"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show credential and token status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			mgr := a.bridge.Manager()
			creds := a.bridge.Credentials()
			state := mgr.Status(ctx)

			view := statusView{
				State:       state.String(),
				ClientKey:   creds.ClientID,
				RedirectURI: creds.RedirectURI,
				Storage:     string(a.cfg.Storage.Type),
			}
			if state == auth.StateAuthorized {
				if tok, err := mgr.Token(ctx); err == nil && !tok.ExpiresAt.IsZero() {
					view.ExpiresAt = tok.ExpiresAt.Format(time.RFC3339)
				}
			}

			if err := output.Write(cmd.OutOrStdout(), format, view); err != nil {
				return err
			}
			if format != "table" {
				return nil
			}

			switch state {
			case auth.StateUnconfigured:
				pterm.Warning.Println("Enter your Infusionsoft App details with 'isbridge credentials set'.")
			case auth.StateUnauthorized:
				pterm.Warning.Println("Infusionsoft is not authorized. Run 'isbridge auth url --open'.")
			default:
				pterm.Success.Println("Infusionsoft is authorized.")
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "table", "output format (json, yaml, table)")

	return cmd
}
