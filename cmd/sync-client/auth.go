package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRegisterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register <email> <password>",
		Short: "Create a new account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.manager.Register(args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("registered and logged in; run 'sync-client device register <name>' next")
			return nil
		},
	}
}

func newLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Log into an existing account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.manager.Login(args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("logged in")
			return nil
		},
	}
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear persisted auth and disconnect",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.manager.Logout(); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

func newDeviceCommand() *cobra.Command {
	root := &cobra.Command{Use: "device", Short: "Manage this device's registration"}
	root.AddCommand(&cobra.Command{
		Use:   "register <name> [device-type]",
		Short: "Exchange the account token for a device-bound token",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			deviceType := "desktop"
			if len(args) == 2 {
				deviceType = args[1]
			}
			if err := a.manager.RegisterDevice(args[0], deviceType); err != nil {
				return err
			}
			fmt.Println("device registered")
			return nil
		},
	})
	return root
}
