package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roostapp/roost-go/credstore"
)

// defaultValidateInterval is how often an active session is re-checked
// against the backend.
const defaultValidateInterval = 30 * time.Second

// Validator confirms that locally-held credentials still represent a
// usable session from the server's perspective. Implemented by
// client.Client via a lightweight authenticated call.
type Validator interface {
	// ValidateSession returns true if the session is confirmed usable and
	// false if the server no longer recognizes it. A non-nil error means
	// the check was inconclusive (e.g. the backend was unreachable) and
	// the session should be left alone.
	ValidateSession(ctx context.Context) (bool, error)
}

// Manager owns the in-memory "current user" and its lifecycle. It is the
// single place session state changes: login-succeeded, logout, and
// invalidation all pass through here, and observers react to the
// resulting user value instead of polling globals.
type Manager struct {
	store  credstore.Store
	logger *slog.Logger

	interval time.Duration

	mu        sync.RWMutex
	user      *User
	observers []func(*User)
	cancel    context.CancelFunc

	loggingOut atomic.Bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger. If not set, a default JSON
// logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithValidateInterval overrides the periodic validation interval.
func WithValidateInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.interval = d
	}
}

// NewManager creates a Manager over the given credential store.
func NewManager(store credstore.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		interval: defaultValidateInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return m
}

// CurrentUser returns the in-memory user, or nil when logged out.
func (m *Manager) CurrentUser() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// OnChange registers an observer invoked with the new user value (nil on
// logout or invalidation) after every session transition. Observers are
// called synchronously and must not block.
func (m *Manager) OnChange(fn func(*User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Start restores session state at cold start: it clears corrupted
// storage, loads the cached user if any, and confirms the session with
// the validator before any authenticated state is exposed. If the
// validator rejects the session the store is cleared. A confirmed
// session starts the periodic validation loop.
func (m *Manager) Start(ctx context.Context, v Validator) error {
	cleared, err := CheckAndClearCorruptedStorage(m.store)
	if err != nil {
		return err
	}
	if cleared {
		m.logger.Warn("cleared corrupted session storage")
		return nil
	}

	data, err := m.store.User()
	if errors.Is(err, credstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	user, err := DecodeUser(data)
	if err != nil {
		// Undecodable user_data is corruption in a different coat.
		m.logger.Warn("clearing undecodable cached user", "error", err)
		return m.store.Clear()
	}

	if v != nil {
		ok, verr := v.ValidateSession(ctx)
		if verr != nil {
			m.logger.Warn("startup session validation inconclusive", "error", verr)
		} else if !ok {
			m.logger.Info("startup session validation failed, clearing session")
			return m.store.Clear()
		}
	}

	m.setUser(user)
	if v != nil {
		m.startValidateLoop(v)
	}
	return nil
}

// LoginSucceeded records a freshly established session and starts the
// periodic validation loop if a validator is supplied. The credential
// store is expected to have been written by the auth operation already.
func (m *Manager) LoginSucceeded(user *User, v Validator) {
	m.setUser(user)
	if v != nil {
		m.startValidateLoop(v)
	}
}

// Logout destroys the session: credential store cleared, in-memory user
// reset, validation loop cancelled, observers notified. It is idempotent
// and safe to call with no session. Concurrent double-invocation (user
// action racing invalidation detection) collapses to a single logout.
func (m *Manager) Logout(ctx context.Context) error {
	if !m.loggingOut.CompareAndSwap(false, true) {
		return nil
	}
	defer m.loggingOut.Store(false)

	if err := m.store.Clear(); err != nil {
		// A failed clear leaves session state in an unknown condition;
		// drop the in-memory user regardless so the UI falls back to the
		// unauthenticated flow.
		m.setUser(nil)
		return err
	}
	m.setUser(nil)
	return nil
}

// Invalidated handles a server-side session invalidation detected by the
// validator or the refresh protocol: silent transition to logged-out.
func (m *Manager) Invalidated() {
	if err := m.store.Clear(); err != nil {
		m.logger.Error("clearing store after invalidation", "error", err)
	}
	m.setUser(nil)
}

func (m *Manager) setUser(user *User) {
	m.mu.Lock()
	changed := !(user == nil && m.user == nil)
	m.user = user
	if user == nil && m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	observers := make([]func(*User), len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	// Logging out when already logged out is a no-op for observers, so
	// double-invocation cannot produce duplicate navigation.
	if !changed {
		return
	}
	for _, fn := range observers {
		fn(user)
	}
}

// startValidateLoop begins the periodic re-validation of an active
// session. The loop stops as soon as the user value becomes nil so no
// periodic task outlives the session.
func (m *Manager) startValidateLoop(v Validator) {
	m.mu.Lock()
	if m.cancel != nil {
		// Already running.
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	go m.validateLoop(ctx, v)
}

func (m *Manager) validateLoop(ctx context.Context, v Validator) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := v.ValidateSession(ctx)
			if err != nil {
				m.logger.Debug("session validation inconclusive", "error", err)
				continue
			}
			if !ok {
				m.logger.Info("session no longer valid, logging out")
				m.Invalidated()
				return
			}
		}
	}
}
