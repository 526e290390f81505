package cmd

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/roostapp/roost-go/client"
	"github.com/roostapp/roost-go/session"
)

var loginEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, closeStore, err := newSession()
		if err != nil {
			return err
		}
		defer closeStore()

		fmt.Print("Password: ")
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}

		user, err := c.Login(cmd.Context(), loginEmail, string(password))
		if err != nil {
			return fmt.Errorf("login failed: %s", client.Message(err))
		}

		fmt.Printf("Logged in as %s (%s)\n", user.Email, user.Role)
		fmt.Printf("Next: %s\n", session.RouteAfterLogin(user))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
	loginCmd.MarkFlagRequired("email")
}
