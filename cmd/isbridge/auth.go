package main

import (
	"fmt"

	"github.com/holtech/isbridge/pkg/auth"
	"github.com/holtech/isbridge/pkg/config"
	"github.com/holtech/isbridge/pkg/progress"
	"github.com/holtech/isbridge/pkg/state"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Infusionsoft authorization",
	}

	cmd.AddCommand(newAuthURLCmd())
	cmd.AddCommand(newAuthExchangeCmd())
	cmd.AddCommand(newAuthRefreshCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

func newAuthURLCmd() *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the authorization URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			mgr := a.bridge.Manager()
			if !open {
				url, ok := mgr.AuthorizationURL()
				if !ok {
					return auth.ErrNotConfigured
				}
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			}

			if _, err := mgr.OpenAuthorization(&auth.SystemBrowserOpener{}, cmd.OutOrStdout()); err != nil {
				// The URL was printed; a missing browser is not fatal.
				pterm.Warning.Println(err.Error())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&open, "open", false, "open the URL in the default browser")

	return cmd
}

func newAuthExchangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exchange CODE",
		Short: "Exchange an authorization code for a token",
		Long: `Exchange an authorization code for a token.

Codes already exchanged from this machine are remembered in the session
file under $XDG_STATE_HOME/isbridge and are not sent again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := state.NewManager(config.AppName)
			if err != nil {
				return err
			}
			sess.SetSessionCommand(cmd.CommandPath())

			err = progress.Run(nil, "Exchanging authorization code...", "Authorization code exchanged.", func() error {
				return a.bridge.CodeReceived(cmd.Context(), sess, args[0])
			})

			if saveErr := sess.Save(); saveErr != nil {
				pterm.Warning.Printf("Failed to save session file: %v\n", saveErr)
			}
			if err != nil {
				return err
			}

			if a.bridge.Manager().Authorized() {
				pterm.Success.Println("Infusionsoft authorized.")
			} else {
				pterm.Warning.Println("Code accepted but the token is not usable.")
			}
			return nil
		},
	}
}

func newAuthRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the stored token now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			return progress.Run(nil, "Refreshing token...", "Token refreshed.", func() error {
				return a.bridge.Manager().Refresh(cmd.Context())
			})
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.bridge.Manager().Logout(cmd.Context()); err != nil {
				return err
			}

			sess, err := state.NewManager(config.AppName)
			if err == nil {
				sess.ClearPendingCodes()
				_ = sess.Save()
			}

			pterm.Success.Println("Stored token deleted.")
			return nil
		},
	}
}
