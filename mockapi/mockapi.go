// Package mockapi is an in-process mock of the Roost backend. It
// implements the real API contract — the {success, data, message}
// envelope, bearer auth, token refresh with optional rotation — so the
// client test suite, the CLI's serve-mock command, and the examples can
// run against a faithful server without network access to production.
package mockapi

import (
	"crypto/rand"
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/roostapp/roost-go/session"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Server holds the mock backend state.
type Server struct {
	mu         sync.Mutex
	users      map[string]*account // keyed by email
	resetCodes map[string]string   // email -> code
	usedJTIs   map[string]bool     // single-use refresh tracking

	tokens      *tokenMinter
	rateLimiter *loginRateLimiter
	logger      *slog.Logger

	rotateRefresh    bool
	singleUseRefresh bool
	oauthVerify      func(identityToken string) (email, name string, err error)
}

type account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	Role         session.Role
	Verified     bool
}

// Option configures the mock server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAccessTTL sets the access token lifetime.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) {
		s.tokens.accessTTL = d
	}
}

// WithRefreshRotation makes the refresh endpoint issue a new refresh
// token on every call. With singleUse, the previous refresh token is
// invalidated as well — the backend semantics under which concurrent
// naive refreshes race.
func WithRefreshRotation(singleUse bool) Option {
	return func(s *Server) {
		s.rotateRefresh = true
		s.singleUseRefresh = singleUse
	}
}

// WithOAuthVerifier replaces the identity-token verifier. The default
// accepts tokens of the form "oauth:<email>:<name>".
func WithOAuthVerifier(fn func(identityToken string) (email, name string, err error)) Option {
	return func(s *Server) {
		s.oauthVerify = fn
	}
}

// New creates a mock backend with a random signing secret.
func New(opts ...Option) *Server {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(err)
	}
	s := &Server{
		users:       make(map[string]*account),
		resetCodes:  make(map[string]string),
		usedJTIs:    make(map[string]bool),
		tokens:      newTokenMinter(secret),
		rateLimiter: newLoginRateLimiter(5, 10),
		oauthVerify: defaultOAuthVerify,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return s
}

// Router returns a chi.Router with all mock API routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})
	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/openapi.yaml",
		Path:    "docs",
	}, nil))
	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/openapi.yaml",
		Path:    "redoc",
	}, nil))

	r.Post("/login", s.Login)
	r.Post("/oauth-login", s.OAuthLogin)
	r.Post("/register", s.Register)
	r.Post("/refresh", s.Refresh)
	r.Get("/me", s.Me)
	r.Post("/forgot-password", s.ForgotPassword)
	r.Post("/reset-password", s.ResetPassword)

	return r
}

// envelope is the generic response shape shared with the client.
type envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}

func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusUnprocessableEntity, envelope{
		Success: false,
		Message: "validation failed",
		Errors:  fields,
	})
}

// decodeJSON decodes a bounded JSON body, writing a 400 on failure.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, maxSize int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return v, false
	}
	return v, true
}

const maxAuthBodySize = 64 << 10
