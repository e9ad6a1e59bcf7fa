// Package auth manages the OAuth2 authorization lifecycle for a single
// Infusionsoft application connection.
//
// The package owns three concerns:
//
//   - Credentials: the client id, secret and redirect URI read from a
//     key-value store. Unset values hold sentinel placeholders.
//   - Tokens: the persisted token blob, its expiry and its refresh.
//   - Exchange: turning an authorization code into a token exactly once per
//     session, even when the callback page is reloaded.
//
// # Example
//
//	store := storage.NewMemoryStore()
//	_ = auth.SeedDefaults(ctx, store)
//	creds := auth.LoadCredentials(ctx, store)
//
//	mgr := auth.NewManager(ctx, creds, infusionsoft.Factory(cfg), store,
//	    auth.WithLogger(logger),
//	    auth.WithBus(bus),
//	)
//
//	url, ok := mgr.AuthorizationURL()
//	// redirect the user to url, then on callback:
//	err := mgr.ExchangeCode(ctx, session, r.URL.Query().Get("code"))
//
// Remote failures never panic and never leave the manager unusable; they
// degrade to the Unauthorized state and are reported as wrapped sentinel
// errors (see errors.go).
package auth

import (
	"context"

	"github.com/holtech/isbridge/pkg/auth/types"
)

// Token is an alias for types.Token.
type Token = types.Token

// Client is the remote OAuth capability the Manager drives.
type Client interface {
	// AuthorizationURL returns the URL the user visits to grant access.
	AuthorizationURL() string

	// ExchangeCode trades an authorization code for a token. Failures wrap
	// ErrRemoteRejected.
	ExchangeCode(ctx context.Context, code string) (*types.Token, error)

	// Refresh obtains a fresh token from the refresh token in token.
	// Failures wrap ErrRemoteFailed.
	Refresh(ctx context.Context, token *types.Token) (*types.Token, error)

	// IsExpired reports whether token must be refreshed before use.
	IsExpired(token *types.Token) bool
}

// ClientFactory builds a Client from ready credentials.
type ClientFactory func(creds CredentialConfig) (Client, error)

// State is the authorization state of a Manager.
type State string

const (
	// StateUnconfigured means credentials are incomplete and no client exists.
	StateUnconfigured State = "unconfigured"
	// StateUnauthorized means a client exists but no usable token is stored.
	StateUnauthorized State = "unauthorized"
	// StateAuthorized means a usable token is stored.
	StateAuthorized State = "authorized"
)

// String returns the state name.
func (s State) String() string {
	return string(s)
}
