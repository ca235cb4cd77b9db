package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/app"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/config"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/logging"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
)

// cli holds the wired application for the running command
type cli struct {
	app      *app.App
	logLevel string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "panelctl",
		Short:         "panelctl - Remnawave provisioner operator tool",
		Long:          `panelctl manages the Remnawave provisioning module's storage and talks to Remnawave panels with the same connection rules the billing callbacks use.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "help", "version", "completion":
				return nil
			}
			return c.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				c.app.Close()
				c.app = nil
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newMigrateCmd(c),
		newServerCmd(c),
		newTestConnectionCmd(c),
		newSquadsCmd(c),
		newLogsCmd(c),
		newVersionCmd(),
	)
	return rootCmd
}

func (c *cli) open(ctx context.Context) error {
	cfg := config.Load()
	logging.Setup(c.logLevel, "console")

	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

// panelFlags are the connection fields the billing host would pass
type panelFlags struct {
	serverID   int
	hostname   string
	token      string
	accessHash string
	insecure   bool
}

func (f *panelFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.serverID, "server-id", 0, "server id in the billing host")
	cmd.Flags().StringVar(&f.hostname, "hostname", "", "panel hostname (defaults to the stored hostname of --server-id)")
	cmd.Flags().StringVar(&f.token, "token", "", "panel API token (default $PANEL_TOKEN)")
	cmd.Flags().StringVar(&f.accessHash, "access-hash", "", "access hash field: timeout in seconds or legacy \"id,port\"")
	cmd.Flags().BoolVar(&f.insecure, "insecure", false, "skip TLS certificate verification")
}

func (f *panelFlags) params() models.Params {
	token := f.token
	if token == "" {
		token = os.Getenv("PANEL_TOKEN")
	}
	secure := !f.insecure
	return models.Params{
		ServerID:         f.serverID,
		ServerHostname:   f.hostname,
		ServerPassword:   token,
		ServerAccessHash: f.accessHash,
		ServerSecure:     &secure,
	}
}

// fillHostname uses the stored hostname when none was given
func (c *cli) fillHostname(ctx context.Context, params *models.Params) {
	if params.ServerHostname != "" || params.ServerID <= 0 {
		return
	}
	settings, err := c.app.Provisioner.GetServerSettings(ctx, params.ServerID)
	if err == nil {
		params.ServerHostname = settings.Hostname
	}
}

func parseServerID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid server id %q", arg)
	}
	return id, nil
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
