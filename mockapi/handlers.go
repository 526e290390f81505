package mockapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/roostapp/roost-go/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type oauthLoginRequest struct {
	IdentityToken string `json:"identityToken"`
	Role          string `json:"role"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// defaultOAuthVerify accepts identity tokens of the form
// "oauth:<email>:<name>". Real deployments plug in a verifier for the
// actual provider via WithOAuthVerifier.
func defaultOAuthVerify(identityToken string) (email, name string, err error) {
	parts := strings.SplitN(identityToken, ":", 3)
	if len(parts) != 3 || parts[0] != "oauth" || parts[1] == "" {
		return "", "", errInvalidIdentityToken
	}
	return parts[1], parts[2], nil
}

var errInvalidIdentityToken = errors.New("invalid identity token")

// authData is the payload shape shared by login, oauth-login and
// register responses.
type authData struct {
	User         *session.User `json:"user"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken,omitempty"`
}

// forgotMessage is returned for every forgot-password request, whether
// or not the address exists, to avoid account enumeration.
const forgotMessage = "if an account exists for that address, a reset code has been sent"

func userPayload(acc *account) *session.User {
	return &session.User{
		ID:       acc.ID,
		Email:    acc.Email,
		Name:     acc.Name,
		Role:     acc.Role,
		Verified: acc.Verified,
	}
}

// Seed creates an account directly, bypassing the registration endpoint.
// Intended for tests and the serve-mock command.
func (s *Server) Seed(email, password, name string, role session.Role) (*session.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := &account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		Verified:     true,
	}
	s.users[email] = acc
	return userPayload(acc), nil
}

// ResetCodeFor returns the pending reset code for an email, if any.
// Intended for tests.
func (s *Server) ResetCodeFor(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.resetCodes[email]
	return code, ok
}

func (s *Server) mintPair(acc *account) (*authData, error) {
	access, err := s.tokens.mintAccess(acc)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.mintRefresh(acc)
	if err != nil {
		return nil, err
	}
	return &authData{
		User:         userPayload(acc),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Login handles POST /login.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	if !s.rateLimiter.allow(r) {
		writeError(w, http.StatusTooManyRequests, "too many login attempts, slow down")
		return
	}
	req, ok := decodeJSON[loginRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}

	s.mu.Lock()
	acc := s.users[req.Email]
	s.mu.Unlock()

	if acc == nil || bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	data, err := s.mintPair(acc)
	if err != nil {
		s.logger.Error("minting tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeData(w, http.StatusOK, data)
}

// OAuthLogin handles POST /oauth-login: exchanges a third-party identity
// token (plus a chosen role for first-time users) for a session.
func (s *Server) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[oauthLoginRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	if !session.Role(req.Role).Valid() {
		writeValidationError(w, map[string]string{"role": "a valid role is required"})
		return
	}

	email, name, err := s.oauthVerify(req.IdentityToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "identity token rejected")
		return
	}

	s.mu.Lock()
	acc := s.users[email]
	if acc == nil {
		acc = &account{
			ID:       uuid.NewString(),
			Email:    email,
			Name:     name,
			Role:     session.Role(req.Role),
			Verified: true,
		}
		s.users[email] = acc
	}
	s.mu.Unlock()

	data, err := s.mintPair(acc)
	if err != nil {
		s.logger.Error("minting tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeData(w, http.StatusOK, data)
}

// Register handles POST /register.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[registerRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}

	fields := make(map[string]string)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		fields["email"] = "a valid email is required"
	}
	if len(req.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	}
	if req.Name == "" {
		fields["name"] = "name is required"
	}
	if !session.Role(req.Role).Valid() {
		fields["role"] = "a valid role is required"
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[req.Email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "an account with this email already exists")
		return
	}
	acc := &account{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         session.Role(req.Role),
	}
	s.users[req.Email] = acc
	s.mu.Unlock()

	data, err := s.mintPair(acc)
	if err != nil {
		s.logger.Error("minting tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeData(w, http.StatusCreated, data)
}

// Refresh handles POST /refresh. With rotation enabled a new refresh
// token is included; with single-use semantics the presented token is
// invalidated.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[refreshRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}

	claims, err := s.tokens.validateRefresh(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	s.mu.Lock()
	if s.singleUseRefresh {
		if s.usedJTIs[claims.ID] {
			s.mu.Unlock()
			writeError(w, http.StatusUnauthorized, "refresh token already used")
			return
		}
		s.usedJTIs[claims.ID] = true
	}
	acc := s.accountByID(claims.Subject)
	s.mu.Unlock()

	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unknown account")
		return
	}

	access, err := s.tokens.mintAccess(acc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to mint token")
		return
	}
	data := map[string]string{"accessToken": access}
	if s.rotateRefresh {
		rotated, err := s.tokens.mintRefresh(acc)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to mint token")
			return
		}
		data["refreshToken"] = rotated
	}
	writeData(w, http.StatusOK, data)
}

// Me handles GET /me: returns the profile for the bearer token.
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	claims, err := s.tokens.validateAccess(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	s.mu.Lock()
	acc := s.accountByID(claims.Subject)
	s.mu.Unlock()
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unknown account")
		return
	}
	writeData(w, http.StatusOK, userPayload(acc))
}

// ForgotPassword handles POST /forgot-password. The response is
// identical whether or not the address exists.
func (s *Server) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[forgotPasswordRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}

	s.mu.Lock()
	if _, exists := s.users[req.Email]; exists {
		s.resetCodes[req.Email] = uuid.NewString()[:8]
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, envelope{Success: true, Message: forgotMessage})
}

// ResetPassword handles POST /reset-password. It does not establish a
// session.
func (s *Server) ResetPassword(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[resetPasswordRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	if len(req.NewPassword) < 8 {
		writeValidationError(w, map[string]string{"newPassword": "password must be at least 8 characters"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code, ok := s.resetCodes[req.Email]
	if !ok || code != req.Code {
		writeError(w, http.StatusBadRequest, "invalid or expired reset code")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}
	s.users[req.Email].PasswordHash = hash
	delete(s.resetCodes, req.Email)

	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "password updated, please log in"})
}

// accountByID must be called with s.mu held.
func (s *Server) accountByID(id string) *account {
	for _, acc := range s.users {
		if acc.ID == id {
			return acc
		}
	}
	return nil
}
