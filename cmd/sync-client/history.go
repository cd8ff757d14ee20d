package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/splenwilz/clipslot/internal/envelope"
)

func newHistoryCommand() *cobra.Command {
	root := &cobra.Command{Use: "history", Short: "Manage the local clipboard history mirror"}
	root.AddCommand(newHistoryListCommand(), newHistoryAddCommand(), newHistoryDeleteCommand(), newHistorySearchCommand())
	return root
}

func newHistoryListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List captured history items, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			items, err := a.store.GetHistory(limit, 0)
			if err != nil {
				return err
			}
			for _, item := range items {
				plaintext, err := a.enc.Decrypt(item.Content)
				if err != nil {
					fmt.Printf("%s\t<decrypt failed>\n", item.ID)
					continue
				}
				fmt.Printf("%s\t%s\n", item.ID, plaintext)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum items to list")
	return cmd
}

// newHistoryAddCommand captures one clipboard-equivalent item manually; the
// real clipboard poller is an out-of-scope external collaborator (spec
// §1), this is its CLI stand-in for a single capture.
func newHistoryAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <content>",
		Short: "Capture content into history and notify peers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			content := args[0]
			encrypted, err := a.enc.Encrypt(content)
			if err != nil {
				return err
			}
			hash := envelope.ContentHash(content)

			var deviceID *uuid.UUID
			if auth := a.manager.AuthState(); auth != nil {
				deviceID = auth.DeviceID
			}

			id := uuid.New()
			inserted, err := a.store.InsertItem(id, encrypted, hash, deviceID, time.Now().UnixMilli())
			if err != nil {
				return err
			}
			if !inserted {
				fmt.Println("debounced: identical content captured too recently")
				return nil
			}
			if err := a.manager.NotifyHistoryPush(id, encrypted, hash); err != nil {
				a.log.Warn().Err(err).Msg("captured locally but notify failed")
			}
			if err := a.store.ApplyRetention(a.cfg.HistoryLimit); err != nil {
				a.log.Warn().Err(err).Msg("failed to apply history retention")
			}
			fmt.Println("captured")
			return nil
		},
	}
}

func newHistoryDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a history item by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid item id: %w", err)
			}
			return a.store.DeleteItem(id)
		},
	}
}

func newHistorySearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search decrypted history items in memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			matches, err := a.store.Search(a.enc.Decrypt, args[0])
			if err != nil {
				return err
			}
			for _, item := range matches {
				plaintext, err := a.enc.Decrypt(item.Content)
				if err != nil {
					continue
				}
				fmt.Printf("%s\t%s\n", item.ID, plaintext)
			}
			return nil
		},
	}
}
