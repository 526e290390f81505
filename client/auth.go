package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/roostapp/roost-go/internal/util"
	"github.com/roostapp/roost-go/session"
)

// persistSession writes all three credential keys for a freshly minted
// session. A write failure mid-way leaves partial state, which is unsafe
// to keep, so the store is cleared before the error is returned.
func (c *Client) persistSession(p *authPayload) (*session.User, error) {
	err := func() error {
		if err := c.store.SetToken(p.AccessToken); err != nil {
			return err
		}
		if err := c.store.SetRefreshToken(p.RefreshToken); err != nil {
			return err
		}
		data, err := session.EncodeUser(p.User)
		if err != nil {
			return err
		}
		return c.store.SetUser(data)
	}()
	if err != nil {
		if cerr := c.store.Clear(); cerr != nil {
			c.logger.Error("clearing partial session state", "error", cerr)
		}
		return nil, fmt.Errorf("persisting session: %w", err)
	}
	return p.User, nil
}

// Login exchanges credentials for a session. On success all three
// credential keys are written; on failure no stored state is mutated.
func (c *Client) Login(ctx context.Context, email, password string) (*session.User, error) {
	var payload authPayload
	req := loginRequest{
		Email:    util.NormalizeEmail(email),
		Password: util.Normalize(password),
	}
	if err := c.post(ctx, "/login", req, &payload); err != nil {
		return nil, err
	}
	return c.persistSession(&payload)
}

// OAuthLogin exchanges a third-party identity token for a session. The
// caller must have selected an application role first; the exchange is
// refused without one.
func (c *Client) OAuthLogin(ctx context.Context, identityToken string, role session.Role) (*session.User, error) {
	if !role.Valid() {
		return nil, ErrRoleRequired
	}
	var payload authPayload
	req := oauthLoginRequest{IdentityToken: identityToken, Role: role}
	if err := c.post(ctx, "/oauth-login", req, &payload); err != nil {
		return nil, err
	}
	return c.persistSession(&payload)
}

// Register creates an account and establishes a session in one step. On
// failure the server's field-level validation errors are surfaced via
// *APIError and no stored state is mutated.
func (c *Client) Register(ctx context.Context, params RegisterParams) (*session.User, error) {
	var payload authPayload
	req := registerRequest{
		Email:    util.NormalizeEmail(params.Email),
		Password: util.Normalize(params.Password),
		Name:     params.Name,
		Phone:    params.Phone,
		Role:     params.Role,
	}
	if err := c.post(ctx, "/register", req, &payload); err != nil {
		return nil, err
	}
	return c.persistSession(&payload)
}

// Logout destroys the local session. There is no server call: the
// backend's tokens simply expire. Safe to call when no session exists.
func (c *Client) Logout(ctx context.Context) error {
	return c.store.Clear()
}

// Me fetches the current profile with the stored access token. It goes
// through the authenticated transport, so an expired token is refreshed
// and retried transparently.
func (c *Client) Me(ctx context.Context) (*session.User, error) {
	var user session.User
	if err := c.get(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ValidateSession confirms the stored credentials still represent a
// usable session. It returns false when the server rejects them and an
// error when the check was inconclusive. It performs no side effects;
// the caller decides whether to clear state.
func (c *Client) ValidateSession(ctx context.Context) (bool, error) {
	_, err := c.Me(ctx)
	switch {
	case err == nil:
		return true, nil
	case IsUnauthorized(err):
		return false, nil
	default:
		return false, err
	}
}

// ForgotPassword requests a reset code by email. The backend returns the
// same generic message whether or not the address exists, to avoid
// account enumeration; that message is returned for display.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	req := forgotPasswordRequest{Email: util.NormalizeEmail(email)}
	env, err := c.doEnvelope(ctx, http.MethodPost, "/forgot-password", req)
	if err != nil {
		return "", err
	}
	if env.Message != "" {
		return env.Message, nil
	}
	return "if an account exists for that address, a reset code has been sent", nil
}

// ResetPassword confirms a reset with the emailed code and a new
// password. It does not establish a session; the user logs in after.
func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	req := resetPasswordRequest{
		Email:       util.NormalizeEmail(email),
		Code:        code,
		NewPassword: util.Normalize(newPassword),
	}
	return c.post(ctx, "/reset-password", req, nil)
}

var _ session.Validator = (*Client)(nil)
