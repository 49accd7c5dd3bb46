package kvstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// DefaultBucket holds service markers such as the last report date.
const DefaultBucket = "markers"

// ErrNotFound is returned for a missing key.
var ErrNotFound = errors.New("kvstore: key not found")

// Store keeps small process markers in a local bbolt file so they survive restarts.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open creates the file and its parent directory on first use.
func Open(path string, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state file %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, bucket: []byte(bucket)}, nil
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.view(func(b *bolt.Bucket) error {
		v := b.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		value = append([]byte(nil), v...)
		return nil
	})
	return value, err
}

func (s *Store) Put(key string, value []byte) error {
	return s.update(func(b *bolt.Bucket) error {
		return b.Put([]byte(key), value)
	})
}

// Ping verifies the file is open and the bucket readable.
func (s *Store) Ping() error {
	return s.view(func(*bolt.Bucket) error { return nil })
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) view(fn func(*bolt.Bucket) error) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return bolt.ErrBucketNotFound
		}
		return fn(b)
	})
}

func (s *Store) update(fn func(*bolt.Bucket) error) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return bolt.ErrBucketNotFound
		}
		return fn(b)
	})
}
