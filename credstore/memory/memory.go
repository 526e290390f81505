// Package memory provides a thread-safe in-memory implementation of
// credstore.Store. Suitable for tests and short-lived processes; nothing
// survives a restart.
package memory

import (
	"sync"

	"github.com/awnumar/memguard"

	"github.com/roostapp/roost-go/credstore"
)

// Store is an in-memory credstore.Store. Token values are held in
// memguard enclaves so credential material stays encrypted at rest in
// process memory; the cached user profile is not secret and is kept as a
// plain copy.
type Store struct {
	mu      sync.RWMutex
	token   *memguard.Enclave
	refresh *memguard.Enclave
	user    []byte
}

var _ credstore.Store = (*Store)(nil)

// NewStore creates an empty in-memory Store.
func NewStore() *Store {
	return &Store{}
}

func sealToken(token string) *memguard.Enclave {
	return memguard.NewEnclave([]byte(token))
}

func openToken(e *memguard.Enclave) (string, error) {
	if e == nil {
		return "", credstore.ErrNotFound
	}
	buf, err := e.Open()
	if err != nil {
		return "", err
	}
	defer buf.Destroy()
	// buf.String() aliases the locked buffer, which Destroy unmaps;
	// copy the bytes out so the returned string stays valid.
	return string(buf.Bytes()), nil
}

func (s *Store) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = sealToken(token)
	return nil
}

func (s *Store) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return openToken(s.token)
}

func (s *Store) RemoveToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	return nil
}

func (s *Store) SetRefreshToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = sealToken(token)
	return nil
}

func (s *Store) RefreshToken() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return openToken(s.refresh)
}

func (s *Store) RemoveRefreshToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = nil
	return nil
}

func (s *Store) SetUser(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = append([]byte(nil), data...)
	return nil
}

func (s *Store) User() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil, credstore.ErrNotFound
	}
	return append([]byte(nil), s.user...), nil
}

func (s *Store) RemoveUser() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	return nil
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	s.refresh = nil
	s.user = nil
	return nil
}
