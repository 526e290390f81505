// Package session holds the client-side session state: the cached user
// profile, the corruption check over the credential store, post-auth
// routing, and the Manager that owns the in-memory "current user" and
// the periodic session validation loop.
package session

import "encoding/json"

// Role is the application role a user picks at registration. The two
// roles are mutually exclusive.
type Role string

const (
	// RoleLister lists properties for rent.
	RoleLister Role = "lister"
	// RoleRenter browses and requests properties.
	RoleRenter Role = "renter"
)

// Valid reports whether r is one of the two application roles.
func (r Role) Valid() bool {
	return r == RoleLister || r == RoleRenter
}

// User is the cached profile snapshot stored alongside the tokens. It is
// a read-through cache of server state, not authoritative.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Role     Role   `json:"role"`
	Verified bool   `json:"verified"`
}

// EncodeUser serializes a user for the credential store's user_data key.
func EncodeUser(u *User) ([]byte, error) {
	return json.Marshal(u)
}

// DecodeUser deserializes a user from the credential store's user_data
// key.
func DecodeUser(data []byte) (*User, error) {
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
