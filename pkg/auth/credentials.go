package auth

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/holtech/isbridge/pkg/auth/storage"
	"github.com/microcosm-cc/bluemonday"
)

// Store keys.
const (
	KeyClientID     = "client_key"
	KeyClientSecret = "client_secret"
	KeyRedirectURI  = "redirect_uri"
	KeyToken        = "infusionsoft_auth_token"
)

// Sentinel placeholders stored until the administrator fills in real values.
const (
	SentinelClientID     = "Client Key"
	SentinelClientSecret = "Client Secret"
	SentinelRedirectURI  = "Redirect URI"
)

// CredentialConfig holds the OAuth application credentials.
type CredentialConfig struct {
	ClientID     string `json:"client_id" yaml:"client_id"`
	ClientSecret string `json:"client_secret" yaml:"client_secret"`
	RedirectURI  string `json:"redirect_uri" yaml:"redirect_uri"`
}

// LoadCredentials reads the credentials from store. Missing keys and read
// failures yield the sentinel value for that field.
func LoadCredentials(ctx context.Context, store storage.Store) CredentialConfig {
	return CredentialConfig{
		ClientID:     readOption(ctx, store, KeyClientID, SentinelClientID),
		ClientSecret: readOption(ctx, store, KeyClientSecret, SentinelClientSecret),
		RedirectURI:  readOption(ctx, store, KeyRedirectURI, SentinelRedirectURI),
	}
}

func readOption(ctx context.Context, store storage.Store, key, fallback string) string {
	v, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return fallback
	}
	return v
}

// IsReady reports whether every field holds a real value.
func (c CredentialConfig) IsReady() bool {
	return isSet(c.ClientID, SentinelClientID) &&
		isSet(c.ClientSecret, SentinelClientSecret) &&
		isSet(c.RedirectURI, SentinelRedirectURI)
}

// NeedsDetails reports whether the client id or secret is still unset.
// The redirect URI is not considered.
func (c CredentialConfig) NeedsDetails() bool {
	return !isSet(c.ClientID, SentinelClientID) || !isSet(c.ClientSecret, SentinelClientSecret)
}

func isSet(value, sentinel string) bool {
	return value != "" && value != sentinel
}

// DefaultOptions returns the values written to a fresh store.
func DefaultOptions() map[string]string {
	return map[string]string{
		KeyClientID:     SentinelClientID,
		KeyClientSecret: SentinelClientSecret,
		KeyRedirectURI:  SentinelRedirectURI,
	}
}

// SeedDefaults writes the default options for keys that are absent.
// Existing values are left alone.
func SeedDefaults(ctx context.Context, store storage.Store) error {
	for key, value := range DefaultOptions() {
		_, ok, err := store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to read option %s: %w", key, err)
		}
		if ok {
			continue
		}
		if err := store.Set(ctx, key, value); err != nil {
			return fmt.Errorf("failed to seed option %s: %w", key, err)
		}
	}

	return nil
}

// SaveCredentials sanitizes creds and writes them to store.
func SaveCredentials(ctx context.Context, store storage.Store, creds CredentialConfig) error {
	clean := creds.Sanitized()

	values := []struct{ key, value string }{
		{KeyClientID, clean.ClientID},
		{KeyClientSecret, clean.ClientSecret},
		{KeyRedirectURI, clean.RedirectURI},
	}
	for _, v := range values {
		if err := store.Set(ctx, v.key, v.value); err != nil {
			return fmt.Errorf("failed to save option %s: %w", v.key, err)
		}
	}

	return nil
}

// Sanitized returns a copy with markup stripped and whitespace trimmed.
func (c CredentialConfig) Sanitized() CredentialConfig {
	return CredentialConfig{
		ClientID:     sanitizeOption(c.ClientID),
		ClientSecret: sanitizeOption(c.ClientSecret),
		RedirectURI:  sanitizeOption(c.RedirectURI),
	}
}

var stripPolicy = bluemonday.StrictPolicy()

func sanitizeOption(value string) string {
	// StrictPolicy escapes text; undo that so URLs keep their query strings.
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(value)))
}
