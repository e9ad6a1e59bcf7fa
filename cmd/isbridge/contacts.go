package main

import (
	"fmt"
	"strconv"

	"github.com/holtech/isbridge/internal/bridge"
	"github.com/holtech/isbridge/pkg/hooks"
	"github.com/holtech/isbridge/pkg/output"
	"github.com/spf13/cobra"
)

func newContactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Read contacts from Infusionsoft",
	}

	cmd.AddCommand(newContactsGetCmd())

	return cmd
}

func newContactsGetCmd() *cobra.Command {
	var (
		fields []string
		format string
	)

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Print a contact as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid contact id %q", args[0])
			}

			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			contact, err := hooks.Apply(cmd.Context(), a.bus, bridge.GetContacts, nil, bridge.ContactArgs{
				ID:     id,
				Fields: fields,
			})
			if err != nil {
				return err
			}

			return output.Write(cmd.OutOrStdout(), format, contact)
		},
	}

	cmd.Flags().StringSliceVar(&fields, "fields", nil, "fields to return (gjson paths, comma separated)")
	cmd.Flags().StringVarP(&format, "output", "o", "json", "output format (json, yaml, table)")

	return cmd
}
