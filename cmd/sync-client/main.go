// Command sync-client runs one device's half of clipslot: a CLI over the
// Sync Manager, mirroring cmd/relay-server's cobra structure and
// original_source's bin/cli.rs command set (register, login, pair, slot,
// history, sync).
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
		Use:   "sync-client",
		Short: "clipslot per-device sync client",
	}
	cmd.AddCommand(
		newRegisterCommand(),
		newLoginCommand(),
		newLogoutCommand(),
		newDeviceCommand(),
		newPairCommand(),
		newSlotCommand(),
		newHistoryCommand(),
		newSyncCommand(),
	)
	return cmd
}
