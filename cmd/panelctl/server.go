package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newServerCmd(c *cli) *cobra.Command {
	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Inspect and edit per-server overrides",
	}
	serverCmd.AddCommand(
		newServerListCmd(c),
		newServerShowCmd(c),
		newServerSetCmd(c),
		newServerSetPortCmd(c),
		newServerSetBasePathCmd(c),
	)
	return serverCmd
}

func newServerListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List servers with stored overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := c.app.Servers.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(w, "ID\tHOSTNAME\tPORT\tBASE PATH\tSUB DOMAIN\tSUB PORT\tSUB PATH\n")
			for _, row := range rows {
				printf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					row.ServerID, orDash(row.Hostname), intOrDash(row.Port), orDash(row.BasePath),
					orDash(row.SubDomain), intOrDash(row.SubPort), orDash(row.SubURIPath))
			}
			return w.Flush()
		},
	}
}

func newServerShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <server-id>",
		Short: "Show the settings stored for a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseServerID(args[0])
			if err != nil {
				return err
			}
			s, err := c.app.Provisioner.GetServerSettings(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "server:       %d\n", s.ServerID)
			printf(out, "hostname:     %s\n", dash(s.Hostname))
			printf(out, "port:         %s\n", intOrDash(s.Port))
			printf(out, "base path:    %s\n", dash(s.BasePath))
			printf(out, "sub domain:   %s\n", dash(s.SubDomain))
			printf(out, "sub port:     %s\n", intOrDash(s.SubPort))
			printf(out, "sub uri path: %s\n", dash(s.SubURIPath))
			return nil
		},
	}
}

func newServerSetCmd(c *cli) *cobra.Command {
	var (
		hostname   string
		port       int
		basePath   string
		subDomain  string
		subPort    int
		subURIPath string
	)

	setCmd := &cobra.Command{
		Use:   "set <server-id>",
		Short: "Update server overrides; flags not given keep their stored value",
		Long: `Update the overrides of a server. A port of 0 or an empty path clears
the stored value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseServerID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			s, err := c.app.Provisioner.GetServerSettings(ctx, id)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("hostname") {
				s.Hostname = hostname
			}
			if flags.Changed("port") {
				s.Port = &port
			}
			if flags.Changed("base-path") {
				s.BasePath = basePath
			}
			if flags.Changed("sub-domain") {
				s.SubDomain = subDomain
			}
			if flags.Changed("sub-port") {
				s.SubPort = &subPort
			}
			if flags.Changed("sub-uri-path") {
				s.SubURIPath = subURIPath
			}

			if err := c.app.Provisioner.SaveServerSettings(ctx, s); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "server %d updated\n", id)
			return nil
		},
	}

	setCmd.Flags().StringVar(&hostname, "hostname", "", "panel hostname")
	setCmd.Flags().IntVar(&port, "port", 0, "API port override")
	setCmd.Flags().StringVar(&basePath, "base-path", "", "API base path override, e.g. /panel")
	setCmd.Flags().StringVar(&subDomain, "sub-domain", "", "subscription domain")
	setCmd.Flags().IntVar(&subPort, "sub-port", 0, "subscription port (default 443)")
	setCmd.Flags().StringVar(&subURIPath, "sub-uri-path", "", "subscription path (default /sub/)")
	return setCmd
}

func newServerSetPortCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set-port <server-id> <port>",
		Short: "Write only the API port override; 0 clears it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseServerID(args[0])
			if err != nil {
				return err
			}
			port, err := strconv.Atoi(args[1])
			if err != nil || port < 0 || port > 65535 {
				return fmt.Errorf("invalid port %q", args[1])
			}
			if err := c.app.Servers.SetPort(cmd.Context(), id, &port); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "server %d port updated\n", id)
			return nil
		},
	}
}

func newServerSetBasePathCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set-base-path <server-id> [path]",
		Short: "Write only the API base path override; no path clears it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseServerID(args[0])
			if err != nil {
				return err
			}
			basePath := ""
			if len(args) == 2 {
				basePath = args[1]
			}
			if err := c.app.Servers.SetBasePath(cmd.Context(), id, basePath); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "server %d base path updated\n", id)
			return nil
		},
	}
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return dash(*s)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func intOrDash(v *int) string {
	if v == nil || *v <= 0 {
		return "-"
	}
	return strconv.Itoa(*v)
}
