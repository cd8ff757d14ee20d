// Command relay-server runs the clipslot multi-tenant relay/storage
// server. Command structure is grounded on dexidp-dex's cmd/dex: a cobra
// root plus a single `serve` subcommand.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay-server",
		Short: "clipslot relay/storage server",
	}
	cmd.AddCommand(newServeCommand())
	return cmd
}
