package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newSyncCommand() *cobra.Command {
	root := &cobra.Command{Use: "sync", Short: "Run live synchronization"}
	root.AddCommand(newSyncStartCommand())
	return root
}

// newSyncStartCommand restores auth (already done by newApp), reconciles
// slots, optionally reconciles history, opens the WebSocket, then blocks
// handling live traffic until interrupted.
func newSyncStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Reconcile and hold a live connection to the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if !a.manager.IsAuthenticated() {
				return fmt.Errorf("not logged in: run 'sync-client login' first")
			}

			if err := a.manager.StartSync(a.api.WebSocketURL()); err != nil {
				return err
			}
			a.log.Info().Str("state", a.manager.State().String()).Msg("sync started")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			a.manager.Disconnect()
			return nil
		},
	}
}
