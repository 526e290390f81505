package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/roostapp/roost-go/mockapi"
	"github.com/roostapp/roost-go/session"
)

var (
	mockPort      int
	mockSeedEmail string
	mockAccessTTL time.Duration
	mockRotate    bool
	mockSingleUse bool
)

var serveMockCmd = &cobra.Command{
	Use:   "serve-mock",
	Short: "Run the mock Roost backend locally",
	Long: `Runs the in-process mock backend on localhost. Useful for developing
against the API contract without network access: seed an account, point
ROOST_BASE_URL at it, and exercise the full session lifecycle including
token expiry and refresh.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []mockapi.Option{mockapi.WithAccessTTL(mockAccessTTL)}
		if mockRotate || mockSingleUse {
			opts = append(opts, mockapi.WithRefreshRotation(mockSingleUse))
		}
		srv := mockapi.New(opts...)

		if mockSeedEmail != "" {
			if _, err := srv.Seed(mockSeedEmail, "password123", "Seeded User", session.RoleRenter); err != nil {
				return fmt.Errorf("seeding account: %w", err)
			}
			fmt.Printf("Seeded account %s (password: password123)\n", mockSeedEmail)
		}

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})
		r.Mount("/", srv.Router())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", mockPort),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		fmt.Printf("Mock backend listening on port %d (docs at /docs)\n", mockPort)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serveMockCmd)
	serveMockCmd.Flags().IntVarP(&mockPort, "port", "p", 8080, "Port to listen on")
	serveMockCmd.Flags().StringVar(&mockSeedEmail, "seed", "", "Seed an account with this email")
	serveMockCmd.Flags().DurationVar(&mockAccessTTL, "access-ttl", 15*time.Minute, "Access token lifetime")
	serveMockCmd.Flags().BoolVar(&mockRotate, "rotate-refresh", false, "Rotate the refresh token on every refresh")
	serveMockCmd.Flags().BoolVar(&mockSingleUse, "single-use-refresh", false, "Rotate and invalidate used refresh tokens")
}
