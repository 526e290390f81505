// Package credstore defines the storage abstraction for session
// credentials: the access token, the refresh token, and the cached user
// profile. Implementations live in subpackages (memory, bbolt).
package credstore

import "errors"

// Fixed storage keys. Absence of a key is a valid, meaningful state
// (logged out); there is no versioning or migration.
const (
	KeyToken        = "auth_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user_data"
)

// ErrNotFound is returned when a credential key is absent.
var ErrNotFound = errors.New("credential not found")

// Store persists the three session credentials. Implementations must be
// safe for concurrent use by independent callers (outbound interceptors,
// the refresh handler, login, logout, the periodic validator), but
// cross-key consistency is last-writer-wins: callers needing stronger
// guarantees must serialize their own mutations.
type Store interface {
	// SetToken stores the access token.
	SetToken(token string) error
	// Token returns the stored access token, or ErrNotFound.
	Token() (string, error)
	// RemoveToken deletes the access token. Removing an absent token is
	// not an error.
	RemoveToken() error

	// SetRefreshToken stores the refresh token.
	SetRefreshToken(token string) error
	// RefreshToken returns the stored refresh token, or ErrNotFound.
	RefreshToken() (string, error)
	// RemoveRefreshToken deletes the refresh token.
	RemoveRefreshToken() error

	// SetUser stores the JSON-serialized cached user profile.
	SetUser(data []byte) error
	// User returns the stored user profile bytes, or ErrNotFound.
	User() ([]byte, error)
	// RemoveUser deletes the cached user profile.
	RemoveUser() error

	// Clear removes all three keys. After Clear returns successfully all
	// three reads return ErrNotFound. A failed Clear leaves the session
	// state in an unknown condition; callers must not assume a valid
	// session remains.
	Clear() error
}
