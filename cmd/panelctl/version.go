package main

import (
	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.BuildVersion=..."
var (
	BuildVersion = "dev"
	BuildCommit  = "none"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printf(cmd.OutOrStdout(), "panelctl %s (%s)\n", BuildVersion, BuildCommit)
		},
	}
}
