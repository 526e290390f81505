package cmd

import (
	"errors"
	"fmt"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/roostapp/roost-go/client"
	"github.com/roostapp/roost-go/session"
)

var (
	registerEmail string
	registerName  string
	registerPhone string
	registerRole  string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	RunE: func(cmd *cobra.Command, args []string) error {
		role := session.Role(registerRole)
		if !role.Valid() {
			return fmt.Errorf("role must be %q or %q", session.RoleLister, session.RoleRenter)
		}

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

		user, err := c.Register(cmd.Context(), client.RegisterParams{
			Email:    registerEmail,
			Password: string(password),
			Name:     registerName,
			Phone:    registerPhone,
			Role:     role,
		})
		if err != nil {
			printFieldErrors(err)
			return fmt.Errorf("registration failed: %s", client.Message(err))
		}

		fmt.Printf("Registered %s as %s\n", user.Email, user.Role)
		fmt.Printf("Next: %s\n", session.RouteAfterRegister(user))
		return nil
	},
}

// printFieldErrors lists server-side validation errors, one per line.
func printFieldErrors(err error) {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return
	}
	fields := make([]string, 0, len(apiErr.Fields))
	for field := range apiErr.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Printf("  %s: %s\n", field, apiErr.Fields[field])
	}
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVarP(&registerEmail, "email", "e", "", "Account email")
	registerCmd.Flags().StringVarP(&registerName, "name", "n", "", "Display name")
	registerCmd.Flags().StringVar(&registerPhone, "phone", "", "Phone number (optional)")
	registerCmd.Flags().StringVarP(&registerRole, "role", "r", "", "Application role: lister or renter")
	registerCmd.MarkFlagRequired("email")
	registerCmd.MarkFlagRequired("name")
	registerCmd.MarkFlagRequired("role")
}
