package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPairCommand() *cobra.Command {
	root := &cobra.Command{Use: "pair", Short: "Transfer the master key between devices"}
	root.AddCommand(newPairGenerateCommand(), newPairRedeemCommand())
	return root
}

func newPairGenerateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Issue a 6-digit code carrying this device's master key",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			token, err := a.requireAuth()
			if err != nil {
				return err
			}

			masterKey, ok, err := a.secrets.Load()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no master key on this device yet")
			}

			code, err := a.pairing.GenerateCodeForKey(token, masterKey)
			if err != nil {
				return err
			}
			fmt.Printf("pairing code: %s (expires in 5 minutes)\n", code)
			return nil
		},
	}
}

func newPairRedeemCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "redeem <code>",
		Short: "Adopt the master key carried by a pairing code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			token, err := a.requireAuth()
			if err != nil {
				return err
			}

			key, err := a.pairing.RedeemCodeToKey(token, args[0])
			if err != nil {
				return err
			}
			if err := a.secrets.Save(key); err != nil {
				return err
			}
			fmt.Println("master key installed; restart sync-client so the new key takes effect")
			return nil
		},
	}
}
