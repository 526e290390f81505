// Package bbolt provides a BBolt-backed credstore.Store. This is the
// durable store used by the CLI: the session survives process restarts.
package bbolt

import (
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/roostapp/roost-go/credstore"
)

var bucketName = []byte("session")

// Store implements credstore.Store backed by a BBolt database.
type Store struct {
	db *bbolt.DB
}

var _ credstore.Store = (*Store)(nil)

// NewStore returns a Store backed by the given BBolt database.
func NewStore(db *bbolt.DB) *Store {
	return &Store{db: db}
}

// NewStoreFromFile opens a BBolt database at the given path and returns
// a new Store.
func NewStoreFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewStore(db), nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) put(key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
}

func (s *Store) get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return fmt.Errorf("%s: %w", key, credstore.ErrNotFound)
		}
		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%s: %w", key, credstore.ErrNotFound)
		}
		value = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) remove(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (s *Store) SetToken(token string) error {
	return s.put(credstore.KeyToken, []byte(token))
}

func (s *Store) Token() (string, error) {
	data, err := s.get(credstore.KeyToken)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Store) RemoveToken() error {
	return s.remove(credstore.KeyToken)
}

func (s *Store) SetRefreshToken(token string) error {
	return s.put(credstore.KeyRefreshToken, []byte(token))
}

func (s *Store) RefreshToken() (string, error) {
	data, err := s.get(credstore.KeyRefreshToken)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Store) RemoveRefreshToken() error {
	return s.remove(credstore.KeyRefreshToken)
}

func (s *Store) SetUser(data []byte) error {
	return s.put(credstore.KeyUser, data)
}

func (s *Store) User() ([]byte, error) {
	return s.get(credstore.KeyUser)
}

func (s *Store) RemoveUser() error {
	return s.remove(credstore.KeyUser)
}

// Clear removes all three keys in a single transaction, so from the
// caller's perspective the wipe is atomic.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		for _, key := range []string{credstore.KeyToken, credstore.KeyRefreshToken, credstore.KeyUser} {
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
}
