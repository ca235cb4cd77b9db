package main

import (
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLogsCmd(c *cli) *cobra.Command {
	var (
		serviceID int
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent module call log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := c.app.CallLog.List(cmd.Context(), serviceID, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(w, "TIME\tSERVICE\tSERVER\tACTION\tSTATUS\tMESSAGE\n")
			for _, e := range entries {
				printf(w, "%s\t%d\t%d\t%s\t%s\t%s\n",
					e.CreatedAt.UTC().Format("2006-01-02 15:04:05"), e.ServiceID, e.ServerID, e.Action, e.Status, e.Message)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&serviceID, "service-id", 0, "only entries of this service")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries (max 500)")
	return cmd
}
