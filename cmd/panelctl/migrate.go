package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or extend the module tables",
		Long:  `Creates the server config, service data and call log tables. Existing tables only gain missing columns; rows are kept.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Schema.Ensure(cmd.Context()); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "schema is up to date\n")
			return nil
		},
	}
}
