package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/splenwilz/clipslot/internal/envelope"
)

func newSlotCommand() *cobra.Command {
	root := &cobra.Command{Use: "slot", Short: "Read or write one of the 5 local clipboard slots"}
	root.AddCommand(newSlotGetCommand(), newSlotSetCommand(), newSlotClearCommand(), newSlotRenameCommand())
	return root
}

func parseSlotNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid slot number %q", arg)
	}
	return n, nil
}

func newSlotGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <n>",
		Short: "Print the decrypted content of slot n",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			n, err := parseSlotNumber(args[0])
			if err != nil {
				return err
			}

			info, err := a.store.GetSlot(n, a.enc.Decrypt)
			if err != nil {
				return err
			}
			if info.IsEmpty {
				fmt.Println("(empty)")
				return nil
			}
			fmt.Println(info.Content)
			return nil
		},
	}
}

func newSlotSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <n> <content>",
		Short: "Write content into slot n and notify peers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			n, err := parseSlotNumber(args[0])
			if err != nil {
				return err
			}
			content := args[1]

			encrypted, err := a.enc.Encrypt(content)
			if err != nil {
				return err
			}

			var deviceID *uuid.UUID
			if auth := a.manager.AuthState(); auth != nil {
				deviceID = auth.DeviceID
			}

			hash := envelope.ContentHash(content)
			id := uuid.New()
			nowMS := time.Now().UnixMilli()
			if err := a.store.SaveToSlot(n, id, encrypted, hash, deviceID, nowMS); err != nil {
				return err
			}
			if err := a.manager.NotifySlotChanged(n); err != nil {
				a.log.Warn().Err(err).Msg("slot saved locally but notify failed")
			}
			fmt.Printf("slot %d updated\n", n)
			return nil
		},
	}
}

func newSlotClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <n>",
		Short: "Unlink slot n's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			n, err := parseSlotNumber(args[0])
			if err != nil {
				return err
			}
			if err := a.store.ClearSlot(n, time.Now().UnixMilli()); err != nil {
				return err
			}
			return a.manager.NotifySlotChanged(n)
		},
	}
}

func newSlotRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <n> <name>",
		Short: "Set slot n's display name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			n, err := parseSlotNumber(args[0])
			if err != nil {
				return err
			}
			return a.store.RenameSlot(n, args[1])
		},
	}
}
