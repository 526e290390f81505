package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roostapp/roost-go/credstore"
	"github.com/roostapp/roost-go/session"
)

var whoamiRemote bool

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, store, closeStore, err := newSession()
		if err != nil {
			return err
		}
		defer closeStore()

		if whoamiRemote {
			// Round-trips through the backend; an expired access token is
			// refreshed transparently.
			user, err := c.Me(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching profile: %w", err)
			}
			printUser(user)
			return nil
		}

		data, err := store.User()
		if errors.Is(err, credstore.ErrNotFound) {
			fmt.Println("Not logged in")
			return nil
		}
		if err != nil {
			return err
		}
		user, err := session.DecodeUser(data)
		if err != nil {
			return fmt.Errorf("decoding cached user: %w", err)
		}
		printUser(user)
		return nil
	},
}

func printUser(u *session.User) {
	fmt.Printf("%s <%s>\n", u.Name, u.Email)
	fmt.Printf("  role: %s\n", u.Role)
	fmt.Printf("  verified: %t\n", u.Verified)
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
	whoamiCmd.Flags().BoolVar(&whoamiRemote, "remote", false, "Fetch the profile from the backend instead of the cache")
}
