package client_test

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roostapp/roost-go/client"
	"github.com/roostapp/roost-go/credstore"
	"github.com/roostapp/roost-go/credstore/memory"
	"github.com/roostapp/roost-go/mockapi"
	"github.com/roostapp/roost-go/session"
)

func setupBackend(t *testing.T, opts ...mockapi.Option) (*mockapi.Server, *httptest.Server) {
	t.Helper()
	opts = append(opts, mockapi.WithLogger(quietLogger()))
	backend := mockapi.New(opts...)
	r := chi.NewRouter()
	r.Mount("/", backend.Router())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return backend, srv
}

func setupClient(t *testing.T, srv *httptest.Server) (*client.Client, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	c := client.New(srv.URL, store, client.WithLogger(quietLogger()))
	return c, store
}

// Scenario A: a lister logs in; the store holds the full session and the
// routing function sends them to property management.
func TestLoginLister(t *testing.T) {
	backend, srv := setupBackend(t)
	_, err := backend.Seed("lena@example.com", "hunter2hunter2", "Lena", session.RoleLister)
	require.NoError(t, err)

	c, store := setupClient(t, srv)
	user, err := c.Login(t.Context(), "lena@example.com", "hunter2hunter2")
	require.NoError(t, err)

	assert.Equal(t, "lena@example.com", user.Email)
	assert.Equal(t, session.RoleLister, user.Role)
	assert.Equal(t, session.DestManageProperties, session.RouteAfterLogin(user))

	token, err := store.Token()
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	refresh, err := store.RefreshToken()
	require.NoError(t, err)
	assert.NotEmpty(t, refresh)
	data, err := store.User()
	require.NoError(t, err)
	cached, err := session.DecodeUser(data)
	require.NoError(t, err)
	assert.Equal(t, user.ID, cached.ID)
}

// A failed login mutates no stored state.
func TestLoginFailureLeavesStoreAlone(t *testing.T) {
	backend, srv := setupBackend(t)
	_, err := backend.Seed("lena@example.com", "hunter2hunter2", "Lena", session.RoleLister)
	require.NoError(t, err)

	c, store := setupClient(t, srv)
	_, err = c.Login(t.Context(), "lena@example.com", "wrong-password")

	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))
	assert.Equal(t, "invalid email or password", client.Message(err))
	_, terr := store.Token()
	assert.True(t, errors.Is(terr, credstore.ErrNotFound))
}

func TestLoginNormalizesEmail(t *testing.T) {
	backend, srv := setupBackend(t)
	_, err := backend.Seed("lena@example.com", "hunter2hunter2", "Lena", session.RoleLister)
	require.NoError(t, err)

	c, _ := setupClient(t, srv)
	user, err := c.Login(t.Context(), "  LENA@Example.Com ", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "lena@example.com", user.Email)
}

func TestOAuthLoginRequiresRole(t *testing.T) {
	_, srv := setupBackend(t)
	c, store := setupClient(t, srv)

	_, err := c.OAuthLogin(t.Context(), "oauth:sam@example.com:Sam", "")
	assert.ErrorIs(t, err, client.ErrRoleRequired)
	_, terr := store.Token()
	assert.True(t, errors.Is(terr, credstore.ErrNotFound), "no exchange may be attempted without a role")
}

func TestOAuthLogin(t *testing.T) {
	_, srv := setupBackend(t)
	c, store := setupClient(t, srv)

	user, err := c.OAuthLogin(t.Context(), "oauth:sam@example.com:Sam", session.RoleRenter)
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", user.Email)
	assert.Equal(t, session.RoleRenter, user.Role)
	assert.True(t, user.Verified, "oauth identities arrive verified")

	token, err := store.Token()
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestOAuthLoginRejectedToken(t *testing.T) {
	_, srv := setupBackend(t)
	c, _ := setupClient(t, srv)

	_, err := c.OAuthLogin(t.Context(), "garbage", session.RoleRenter)
	assert.True(t, client.IsUnauthorized(err))
}

func TestRegisterRenterRoutesToPreferences(t *testing.T) {
	_, srv := setupBackend(t)
	c, store := setupClient(t, srv)

	user, err := c.Register(t.Context(), client.RegisterParams{
		Email:    "nico@example.com",
		Password: "longenough",
		Name:     "Nico",
		Role:     session.RoleRenter,
	})
	require.NoError(t, err)
	assert.Equal(t, session.DestPreferences, session.RouteAfterRegister(user))

	token, err := store.Token()
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestRegisterValidationErrors(t *testing.T) {
	_, srv := setupBackend(t)
	c, store := setupClient(t, srv)

	_, err := c.Register(t.Context(), client.RegisterParams{
		Email:    "not-an-email",
		Password: "short",
		Role:     session.Role("pilot"),
	})
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Fields, "email")
	assert.Contains(t, apiErr.Fields, "password")
	assert.Contains(t, apiErr.Fields, "name")
	assert.Contains(t, apiErr.Fields, "role")

	_, terr := store.Token()
	assert.True(t, errors.Is(terr, credstore.ErrNotFound))
}

func TestLogoutIdempotent(t *testing.T) {
	backend, srv := setupBackend(t)
	_, err := backend.Seed("lena@example.com", "hunter2hunter2", "Lena", session.RoleLister)
	require.NoError(t, err)

	c, store := setupClient(t, srv)
	_, err = c.Login(t.Context(), "lena@example.com", "hunter2hunter2")
	require.NoError(t, err)

	require.NoError(t, c.Logout(t.Context()))
	_, terr := store.Token()
	assert.True(t, errors.Is(terr, credstore.ErrNotFound))

	// Safe with no session.
	require.NoError(t, c.Logout(t.Context()))
}

func TestValidateSession(t *testing.T) {
	backend, srv := setupBackend(t)
	_, err := backend.Seed("lena@example.com", "hunter2hunter2", "Lena", session.RoleLister)
	require.NoError(t, err)

	c, store := setupClient(t, srv)

	_, err = c.Login(t.Context(), "lena@example.com", "hunter2hunter2")
	require.NoError(t, err)
	ok, err := c.ValidateSession(t.Context())
	require.NoError(t, err)
	assert.True(t, ok)

	// Wreck the credentials: the server no longer recognizes them.
	require.NoError(t, store.SetToken("forged"))
	require.NoError(t, store.SetRefreshToken("also-forged"))
	ok, err = c.ValidateSession(t.Context())
	require.NoError(t, err)
	assert.False(t, ok)
}

// Scenario D: the forgot-password response is identical for known and
// unknown addresses.
func TestForgotPasswordNoEnumeration(t *testing.T) {
	backend, srv := setupBackend(t)
	_, err := backend.Seed("real@x.com", "hunter2hunter2", "Real", session.RoleRenter)
	require.NoError(t, err)

	c, _ := setupClient(t, srv)

	knownMsg, err := c.ForgotPassword(t.Context(), "real@x.com")
	require.NoError(t, err)
	unknownMsg, err := c.ForgotPassword(t.Context(), "nonexistent@x.com")
	require.NoError(t, err)
	assert.Equal(t, knownMsg, unknownMsg)
	assert.NotEmpty(t, knownMsg)
}

func TestResetPasswordFlow(t *testing.T) {
	backend, srv := setupBackend(t)
	_, err := backend.Seed("real@x.com", "old-password-1", "Real", session.RoleRenter)
	require.NoError(t, err)

	c, store := setupClient(t, srv)

	_, err = c.ForgotPassword(t.Context(), "real@x.com")
	require.NoError(t, err)
	code, ok := backend.ResetCodeFor("real@x.com")
	require.True(t, ok)

	require.NoError(t, c.ResetPassword(t.Context(), "real@x.com", code, "new-password-1"))

	// Reset does not establish a session.
	_, terr := store.Token()
	assert.True(t, errors.Is(terr, credstore.ErrNotFound))

	// The old password is dead, the new one works.
	_, err = c.Login(t.Context(), "real@x.com", "old-password-1")
	assert.True(t, client.IsUnauthorized(err))
	_, err = c.Login(t.Context(), "real@x.com", "new-password-1")
	require.NoError(t, err)
}

func TestResetPasswordBadCode(t *testing.T) {
	backend, srv := setupBackend(t)
	_, err := backend.Seed("real@x.com", "old-password-1", "Real", session.RoleRenter)
	require.NoError(t, err)

	c, _ := setupClient(t, srv)
	_, err = c.ForgotPassword(t.Context(), "real@x.com")
	require.NoError(t, err)

	err = c.ResetPassword(t.Context(), "real@x.com", "wrong-code", "new-password-1")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid or expired reset code", apiErr.Message)
}

// A storage failure partway through persisting a fresh session must not
// leave partial credential state behind: the store ends up fully
// cleared and the login reports the failure.
func TestLoginPartialWriteClearsStore(t *testing.T) {
	backend, srv := setupBackend(t)
	_, err := backend.Seed("lena@example.com", "hunter2hunter2", "Lena", session.RoleLister)
	require.NoError(t, err)

	store := &flakyStore{Store: memory.NewStore(), failSetRefresh: true}
	c := client.New(srv.URL, store, client.WithLogger(quietLogger()))

	_, err = c.Login(t.Context(), "lena@example.com", "hunter2hunter2")
	require.Error(t, err)
	assert.ErrorIs(t, err, errStorage)

	// The access token written before the failure must be gone too.
	_, terr := store.Token()
	assert.ErrorIs(t, terr, credstore.ErrNotFound)
	_, rerr := store.RefreshToken()
	assert.ErrorIs(t, rerr, credstore.ErrNotFound)
	_, uerr := store.User()
	assert.ErrorIs(t, uerr, credstore.ErrNotFound)
}
