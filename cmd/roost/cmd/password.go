package cmd

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/roostapp/roost-go/client"
)

var (
	forgotEmail string
	resetEmail  string
	resetCode   string
)

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password",
	Short: "Request a password reset code by email",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, closeStore, err := newSession()
		if err != nil {
			return err
		}
		defer closeStore()

		msg, err := c.ForgotPassword(cmd.Context(), forgotEmail)
		if err != nil {
			return fmt.Errorf("request failed: %s", client.Message(err))
		}
		fmt.Println(msg)
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Confirm a password reset with the emailed code",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, closeStore, err := newSession()
		if err != nil {
			return err
		}
		defer closeStore()

		fmt.Print("New password: ")
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}

		if err := c.ResetPassword(cmd.Context(), resetEmail, resetCode, string(password)); err != nil {
			return fmt.Errorf("reset failed: %s", client.Message(err))
		}
		fmt.Println("Password updated, please log in")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forgotPasswordCmd)
	forgotPasswordCmd.Flags().StringVarP(&forgotEmail, "email", "e", "", "Account email")
	forgotPasswordCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(resetPasswordCmd)
	resetPasswordCmd.Flags().StringVarP(&resetEmail, "email", "e", "", "Account email")
	resetPasswordCmd.Flags().StringVarP(&resetCode, "code", "c", "", "Reset code from the email")
	resetPasswordCmd.MarkFlagRequired("email")
	resetPasswordCmd.MarkFlagRequired("code")
}
