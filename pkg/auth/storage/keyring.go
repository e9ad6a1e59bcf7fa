package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/holtech/isbridge/pkg/auth/types"
	"github.com/zalando/go-keyring"
)

// KeyringStore implements an OS keyring-backed key-value store.
// Every key becomes its own keyring entry under the configured service.
type KeyringStore struct {
	service string
	user    string
}

// NewKeyringStore creates a new keyring-backed store.
func NewKeyringStore(config *types.StorageConfig) (*KeyringStore, error) {
	service := config.KeyringService
	if service == "" {
		return nil, fmt.Errorf("keyring_service is required for keyring storage")
	}

	user := config.KeyringUser
	if user == "" {
		user = "default"
	}

	return &KeyringStore{
		service: service,
		user:    user,
	}, nil
}

// Get reads key from the OS keyring.
func (k *KeyringStore) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := keyring.Get(k.service, k.entry(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to retrieve %s from keyring: %w", key, err)
	}

	return data, true, nil
}

// Set writes key to the OS keyring.
func (k *KeyringStore) Set(ctx context.Context, key, value string) error {
	if err := keyring.Set(k.service, k.entry(key), value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", key, err)
	}

	return nil
}

// Delete removes key from the OS keyring.
func (k *KeyringStore) Delete(ctx context.Context, key string) error {
	if err := keyring.Delete(k.service, k.entry(key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", key, err)
	}

	return nil
}

// Close is a no-op for keyring stores.
func (k *KeyringStore) Close() error {
	return nil
}

// GetService returns the keyring service name.
func (k *KeyringStore) GetService() string {
	return k.service
}

func (k *KeyringStore) entry(key string) string {
	return k.user + ":" + key
}
