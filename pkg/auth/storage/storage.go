// Package storage provides key-value store implementations for credentials
// and tokens.
package storage

import (
	"context"
	"fmt"

	"github.com/holtech/isbridge/pkg/auth/types"
)

// Store is a durable string key-value store with last-write-wins semantics.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the store.
	Close() error
}

// Factory creates store instances based on configuration.
type Factory struct{}

// NewFactory creates a new storage factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create creates a store instance based on the configuration.
func (f *Factory) Create(ctx context.Context, config *types.StorageConfig, appName string) (Store, error) {
	if config == nil {
		return nil, fmt.Errorf("storage config is required")
	}

	switch config.Type {
	case types.StorageTypeFile:
		return NewFileStore(config, appName)
	case types.StorageTypeKeyring:
		return NewKeyringStore(config)
	case types.StorageTypeMemory:
		return NewMemoryStore(), nil
	case types.StorageTypeBolt:
		return NewBoltStore(config, appName)
	case types.StorageTypeRedis:
		return NewRedisStore(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
}
