package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roostapp/roost-go/client"
	"github.com/roostapp/roost-go/config"
	bboltstore "github.com/roostapp/roost-go/credstore/bbolt"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "roost",
	Short: "Roost is the command-line client for the Roost rental marketplace",
	Long: `Command-line client for the Roost property rental marketplace.
Sessions are stored durably, access tokens are refreshed transparently,
and all commands talk to the backend configured in roost.yaml.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file")
}

// newSession builds the client over the durable credential store. The
// returned cleanup closes the store.
func newSession() (*client.Client, *bboltstore.Store, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, nil, nil, fmt.Errorf("creating data directory: %w", err)
	}
	store, err := bboltstore.NewStoreFromFile(cfg.SessionPath(), nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening session store: %w", err)
	}

	opts := []client.Option{client.WithTimeout(cfg.Timeout)}
	if cfg.SingleFlight {
		opts = append(opts, client.WithSingleFlight())
	}
	c := client.New(cfg.BaseURL, store, opts...)
	return c, store, func() { store.Close() }, nil
}
