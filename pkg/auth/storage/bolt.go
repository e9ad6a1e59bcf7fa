package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/holtech/isbridge/pkg/auth/types"
	bolt "go.etcd.io/bbolt"
)

const (
	// boltOpenTimeout is the maximum time to wait for the database lock.
	boltOpenTimeout = 5 * time.Second
)

var optionsBucket = []byte("options")

// BoltStore implements a key-value store on an embedded bbolt database.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the bbolt database named by config.Path,
// defaulting to the XDG data directory.
func NewBoltStore(config *types.StorageConfig, appName string) (*BoltStore, error) {
	path := config.Path
	if path == "" {
		path = filepath.Join(xdg.DataHome, appName, "options.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(optionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize bolt store: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Get reads key from the options bucket.
func (b *BoltStore) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)

	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(optionsBucket).Get([]byte(key))
		if v != nil {
			value = string(v)
			found = true
		}
		return nil
	})

	return value, found, err
}

// Set writes key to the options bucket.
func (b *BoltStore) Set(ctx context.Context, key, value string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(optionsBucket).Put([]byte(key), []byte(value))
	})
}

// Delete removes key from the options bucket.
func (b *BoltStore) Delete(ctx context.Context, key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(optionsBucket).Delete([]byte(key))
	})
}

// Close closes the database.
func (b *BoltStore) Close() error {
	return b.db.Close()
}
