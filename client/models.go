package client

import (
	"encoding/json"

	"github.com/roostapp/roost-go/session"
)

// envelope is the generic response shape used by every backend endpoint.
type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// authPayload is the data shape returned by login, oauth-login and
// register: a profile snapshot plus the token pair.
type authPayload struct {
	User         *session.User `json:"user"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
}

// refreshPayload is the data shape returned by the refresh endpoint. The
// refresh token is only present when the server rotates it.
type refreshPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// loginRequest is the JSON body for POST /login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// oauthLoginRequest is the JSON body for POST /oauth-login.
type oauthLoginRequest struct {
	IdentityToken string       `json:"identityToken"`
	Role          session.Role `json:"role"`
}

// RegisterParams are the profile fields for Register.
type RegisterParams struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Role     session.Role
}

// registerRequest is the JSON body for POST /register.
type registerRequest struct {
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Name     string       `json:"name"`
	Phone    string       `json:"phone,omitempty"`
	Role     session.Role `json:"role"`
}

// refreshRequest is the JSON body for POST /refresh.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// forgotPasswordRequest is the JSON body for POST /forgot-password.
type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// resetPasswordRequest is the JSON body for POST /reset-password.
type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}
