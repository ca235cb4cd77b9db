// Command panelctl is the operator CLI for the Remnawave provisioner: it
// migrates the module tables, edits per-server overrides, checks a panel
// and reads the module call log.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
