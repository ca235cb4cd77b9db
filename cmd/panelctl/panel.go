package main

import (
	"errors"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTestConnectionCmd(c *cli) *cobra.Command {
	var f panelFlags
	cmd := &cobra.Command{
		Use:   "test-connection",
		Short: "Check that a panel accepts the API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := f.params()
			c.fillHostname(cmd.Context(), &params)

			res := c.app.Provisioner.TestConnection(cmd.Context(), params)
			if !res.Success {
				return errors.New(res.Error)
			}
			printf(cmd.OutOrStdout(), "connection OK\n")
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newSquadsCmd(c *cli) *cobra.Command {
	var f panelFlags
	cmd := &cobra.Command{
		Use:   "squads",
		Short: "List the internal squads of a panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := f.params()
			res := c.app.Provisioner.ListSquads(cmd.Context(), params)
			if !res.Success {
				return errors.New(res.Error)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(w, "ID\tNAME\n")
			for _, s := range res.Squads {
				printf(w, "%s\t%s\n", s.ID, s.Name)
			}
			return w.Flush()
		},
	}
	f.register(cmd)
	return cmd
}
