// Package types defines common types used across the auth package.
package types

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrDecode is returned when a persisted token blob cannot be decoded.
var ErrDecode = errors.New("token blob is corrupt or has an unknown format")

// expirySkew is subtracted from the expiry to absorb clock drift.
const expirySkew = 30 * time.Second

// Token represents an OAuth2 token issued by the remote API.
type Token struct {
	// AccessToken is the actual token value.
	AccessToken string `json:"access_token"`

	// RefreshToken is used to obtain a new access token.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is the type of token (e.g., "bearer").
	TokenType string `json:"token_type,omitempty"`

	// ExpiresAt is when the token expires.
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	// Scopes are the granted scopes for this token.
	Scopes []string `json:"scopes,omitempty"`

	// Extra holds additional string fields returned with the token.
	Extra map[string]string `json:"extra,omitempty"`
}

// IsExpired returns true if the token has expired.
// A token without an expiry never expires.
func (t *Token) IsExpired() bool {
	if t.ExpiresAt.IsZero() {
		return false
	}

	return time.Now().Add(expirySkew).After(t.ExpiresAt)
}

// IsValid returns true if the token is valid and not expired.
func (t *Token) IsValid() bool {
	return t.AccessToken != "" && !t.IsExpired()
}

// EncodeToken serializes a token into a string-safe blob suitable for a
// key-value store.
func EncodeToken(t *Token) (string, error) {
	if t == nil {
		return "", fmt.Errorf("token is nil")
	}

	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token: %w", err)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeToken reverses EncodeToken. Any failure wraps ErrDecode.
func DecodeToken(blob string) (*Token, error) {
	if blob == "" {
		return nil, fmt.Errorf("%w: empty blob", ErrDecode)
	}

	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token has no credentials", ErrDecode)
	}

	return &token, nil
}

// StorageConfig represents key-value store configuration.
type StorageConfig struct {
	// Type is the storage backend type.
	Type StorageType `yaml:"type" json:"type" mapstructure:"type"`

	// Path is the file path for file and bolt storage.
	Path string `yaml:"path,omitempty" json:"path,omitempty" mapstructure:"path"`

	// KeyringService is the service name for keyring storage.
	KeyringService string `yaml:"keyring_service,omitempty" json:"keyring_service,omitempty" mapstructure:"keyring_service"`

	// KeyringUser prefixes every keyring entry.
	KeyringUser string `yaml:"keyring_user,omitempty" json:"keyring_user,omitempty" mapstructure:"keyring_user"`

	// RedisURL is the connection URL for redis storage.
	RedisURL string `yaml:"redis_url,omitempty" json:"redis_url,omitempty" mapstructure:"redis_url"`

	// RedisPrefix is prepended to every redis key.
	RedisPrefix string `yaml:"redis_prefix,omitempty" json:"redis_prefix,omitempty" mapstructure:"redis_prefix"`
}

// StorageType represents the type of key-value storage.
type StorageType string

const (
	// StorageTypeFile uses a JSON file.
	StorageTypeFile StorageType = "file"
	// StorageTypeKeyring uses the OS keyring.
	StorageTypeKeyring StorageType = "keyring"
	// StorageTypeMemory uses in-memory storage.
	StorageTypeMemory StorageType = "memory"
	// StorageTypeBolt uses an embedded bbolt database.
	StorageTypeBolt StorageType = "bolt"
	// StorageTypeRedis uses a redis server.
	StorageTypeRedis StorageType = "redis"
)
