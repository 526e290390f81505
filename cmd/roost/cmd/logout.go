package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Destroy the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, closeStore, err := newSession()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := c.Logout(cmd.Context()); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Println("Logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
