package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/holtech/isbridge/pkg/auth/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialConfig_IsReady(t *testing.T) {
	tests := []struct {
		name  string
		creds CredentialConfig
		want  bool
	}{
		{"all set", CredentialConfig{"abc", "xyz", "https://host/cb"}, true},
		{"empty client id", CredentialConfig{"", "xyz", "https://host/cb"}, false},
		{"empty secret", CredentialConfig{"abc", "", "https://host/cb"}, false},
		{"empty redirect", CredentialConfig{"abc", "xyz", ""}, false},
		{"sentinel client id", CredentialConfig{SentinelClientID, "xyz", "https://host/cb"}, false},
		{"sentinel secret", CredentialConfig{"abc", SentinelClientSecret, "https://host/cb"}, false},
		{"sentinel redirect", CredentialConfig{"abc", "xyz", SentinelRedirectURI}, false},
		{"all sentinels", CredentialConfig{SentinelClientID, SentinelClientSecret, SentinelRedirectURI}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creds.IsReady(); got != tt.want {
				t.Errorf("IsReady() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCredentialConfig_NeedsDetails(t *testing.T) {
	tests := []struct {
		name  string
		creds CredentialConfig
		want  bool
	}{
		{"all set", CredentialConfig{"abc", "xyz", "https://host/cb"}, false},
		{"redirect unset only", CredentialConfig{"abc", "xyz", SentinelRedirectURI}, false},
		{"id unset", CredentialConfig{SentinelClientID, "xyz", ""}, true},
		{"secret empty", CredentialConfig{"abc", "", ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creds.NeedsDetails(); got != tt.want {
				t.Errorf("NeedsDetails() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadCredentials_MissingKeysYieldSentinels(t *testing.T) {
	creds := LoadCredentials(context.Background(), storage.NewMemoryStore())

	assert.Equal(t, CredentialConfig{SentinelClientID, SentinelClientSecret, SentinelRedirectURI}, creds)
	assert.False(t, creds.IsReady())
}

// brokenStore fails every read.
type brokenStore struct {
	*storage.MemoryStore
}

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

func TestLoadCredentials_ReadErrorsYieldSentinels(t *testing.T) {
	creds := LoadCredentials(context.Background(), brokenStore{storage.NewMemoryStore()})

	assert.Equal(t, SentinelClientID, creds.ClientID)
	assert.False(t, creds.IsReady())
}

func TestSeedDefaults(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, KeyClientID, "existing"))

	require.NoError(t, SeedDefaults(ctx, store))

	creds := LoadCredentials(ctx, store)
	assert.Equal(t, "existing", creds.ClientID)
	assert.Equal(t, SentinelClientSecret, creds.ClientSecret)
	assert.Equal(t, SentinelRedirectURI, creds.RedirectURI)

	_, ok, _ := store.Get(ctx, KeyToken)
	assert.False(t, ok, "seeding must not create a token")
}

func TestSeedDefaults_ReadError(t *testing.T) {
	err := SeedDefaults(context.Background(), brokenStore{storage.NewMemoryStore()})
	assert.Error(t, err)
}

func TestSaveCredentials_Sanitizes(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	err := SaveCredentials(ctx, store, CredentialConfig{
		ClientID:     "  abc<script>alert(1)</script>  ",
		ClientSecret: "<b>xyz</b>",
		RedirectURI:  "https://host/wp-admin/options-general.php?page=is&tab=1",
	})
	require.NoError(t, err)

	creds := LoadCredentials(ctx, store)
	assert.Equal(t, "abc", creds.ClientID)
	assert.Equal(t, "xyz", creds.ClientSecret)
	assert.Equal(t, "https://host/wp-admin/options-general.php?page=is&tab=1", creds.RedirectURI)
	assert.True(t, creds.IsReady())
}
