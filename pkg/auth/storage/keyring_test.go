package storage

import (
	"context"
	"testing"

	"github.com/holtech/isbridge/pkg/auth/types"
	"github.com/zalando/go-keyring"
)

func TestNewKeyringStore(t *testing.T) {
	tests := []struct {
		name     string
		config   *types.StorageConfig
		wantUser string
		wantErr  bool
	}{
		{
			name: "service and user",
			config: &types.StorageConfig{
				KeyringService: "test-service",
				KeyringUser:    "test-user",
			},
			wantUser: "test-user",
		},
		{
			name:     "default user",
			config:   &types.StorageConfig{KeyringService: "test-service"},
			wantUser: "default",
		},
		{
			name:    "missing service",
			config:  &types.StorageConfig{KeyringUser: "test-user"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewKeyringStore(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewKeyringStore() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if store.user != tt.wantUser {
				t.Errorf("user = %v, want %v", store.user, tt.wantUser)
			}
			if store.GetService() != tt.config.KeyringService {
				t.Errorf("GetService() = %v, want %v", store.GetService(), tt.config.KeyringService)
			}
		})
	}
}

func TestKeyringStore_Contract(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore(&types.StorageConfig{KeyringService: "isbridge-contract"})
	if err != nil {
		t.Fatalf("NewKeyringStore() error = %v", err)
	}

	exerciseStore(t, store)
}

func TestKeyringStore_EntriesAreNamespacedByUser(t *testing.T) {
	keyring.MockInit()

	a, _ := NewKeyringStore(&types.StorageConfig{KeyringService: "svc", KeyringUser: "site-a"})
	b, _ := NewKeyringStore(&types.StorageConfig{KeyringService: "svc", KeyringUser: "site-b"})

	if err := a.Set(context.Background(), "client_key", "a-key"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, ok, _ := b.Get(context.Background(), "client_key"); ok {
		t.Error("entries leaked between keyring users")
	}
}
