package mockapi

import (
	"fmt"
	"time"

	"github.com/awnumar/memguard"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// accessClaims are the claims carried by an access token.
type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// refreshClaims are the claims carried by a refresh token.
type refreshClaims struct {
	jwt.RegisteredClaims
}

// tokenMinter signs and validates HS256 tokens. The signing secret is
// kept in a memguard enclave and only opened for the duration of a
// single sign or verify.
type tokenMinter struct {
	secret     *memguard.Enclave
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func newTokenMinter(secret []byte) *tokenMinter {
	return &tokenMinter{
		secret:     memguard.NewEnclave(secret),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
}

func (m *tokenMinter) withSecret(fn func(secret []byte) error) error {
	buf, err := m.secret.Open()
	if err != nil {
		return err
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}

// mintAccess signs an access token for the account.
func (m *tokenMinter) mintAccess(acc *account) (string, error) {
	now := time.Now().UTC()
	claims := &accessClaims{
		Email: acc.Email,
		Role:  string(acc.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			Issuer:    "roost-mockapi",
		},
	}
	var signed string
	err := m.withSecret(func(secret []byte) error {
		var serr error
		signed, serr = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		return serr
	})
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// mintRefresh signs a refresh token for the account. Each token gets a
// unique JTI so single-use semantics can be enforced.
func (m *tokenMinter) mintRefresh(acc *account) (string, error) {
	now := time.Now().UTC()
	claims := &refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   acc.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
			Issuer:    "roost-mockapi",
		},
	}
	var signed string
	err := m.withSecret(func(secret []byte) error {
		var serr error
		signed, serr = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		return serr
	})
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

func (m *tokenMinter) parse(tokenString string, claims jwt.Claims) error {
	return m.withSecret(func(secret []byte) error {
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil {
			return err
		}
		if !token.Valid {
			return fmt.Errorf("invalid token")
		}
		return nil
	})
}

// validateAccess parses and validates an access token.
func (m *tokenMinter) validateAccess(tokenString string) (*accessClaims, error) {
	var claims accessClaims
	if err := m.parse(tokenString, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// validateRefresh parses and validates a refresh token.
func (m *tokenMinter) validateRefresh(tokenString string) (*refreshClaims, error) {
	var claims refreshClaims
	if err := m.parse(tokenString, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}
