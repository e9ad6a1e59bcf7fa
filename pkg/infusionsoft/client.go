// Package infusionsoft talks to the Infusionsoft (Keap) OAuth endpoints and
// REST API.
package infusionsoft

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/holtech/isbridge/pkg/auth"
	"github.com/holtech/isbridge/pkg/auth/types"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Default endpoints.
const (
	DefaultAuthURL    = "https://accounts.infusionsoft.com/app/oauth/authorize"
	DefaultTokenURL   = "https://api.infusionsoft.com/token"
	DefaultAPIBaseURL = "https://api.infusionsoft.com/crm/rest/v1"
	DefaultScope      = "full"
	DefaultTimeout    = 30 * time.Second
	DefaultRetryMax   = 3
)

// Config holds the endpoints and transport settings.
type Config struct {
	AuthURL    string        `yaml:"auth_url" json:"auth_url" mapstructure:"auth_url"`
	TokenURL   string        `yaml:"token_url" json:"token_url" mapstructure:"token_url"`
	APIBaseURL string        `yaml:"api_base_url" json:"api_base_url" mapstructure:"api_base_url"`
	Scopes     []string      `yaml:"scopes" json:"scopes" mapstructure:"scopes"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
	RetryMax   int           `yaml:"retry_max" json:"retry_max" mapstructure:"retry_max"`
}

// DefaultConfig returns the production endpoints.
func DefaultConfig() Config {
	return Config{
		AuthURL:    DefaultAuthURL,
		TokenURL:   DefaultTokenURL,
		APIBaseURL: DefaultAPIBaseURL,
		Scopes:     []string{DefaultScope},
		Timeout:    DefaultTimeout,
		RetryMax:   DefaultRetryMax,
	}
}

// withDefaults fills empty fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AuthURL == "" {
		c.AuthURL = d.AuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = d.TokenURL
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = d.APIBaseURL
	}
	if len(c.Scopes) == 0 {
		c.Scopes = d.Scopes
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	return c
}

// Client implements auth.Client against the Infusionsoft OAuth endpoints.
type Client struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for creds. The credentials must be ready.
func NewClient(creds auth.CredentialConfig, cfg Config, opts ...Option) (*Client, error) {
	if !creds.IsReady() {
		return nil, auth.ErrNotConfigured
	}

	cfg = cfg.withDefaults()

	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		// Token requests are not retried; a code is single use.
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Factory returns an auth.ClientFactory building clients with cfg.
func Factory(cfg Config, opts ...Option) auth.ClientFactory {
	return func(creds auth.CredentialConfig) (auth.Client, error) {
		return NewClient(creds, cfg, opts...)
	}
}

// AuthorizationURL returns the consent page URL.
func (c *Client) AuthorizationURL() string {
	return c.oauth.AuthCodeURL("")
}

// ExchangeCode trades an authorization code for a token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*types.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", auth.ErrRemoteRejected, err)
	}

	return convertOAuth2Token(tok), nil
}

// Refresh obtains a new token using the refresh token in token.
func (c *Client) Refresh(ctx context.Context, token *types.Token) (*types.Token, error) {
	if token == nil || token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token not available", auth.ErrRemoteFailed)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	// Without an access token the source always hits the token endpoint.
	tok := &oauth2.Token{
		RefreshToken: token.RefreshToken,
		Expiry:       token.ExpiresAt,
	}

	newToken, err := c.oauth.TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", auth.ErrRemoteFailed, err)
	}

	c.logger.Debug("token endpoint issued new token", zap.Time("expires_at", newToken.Expiry))
	return convertOAuth2Token(newToken), nil
}

// IsExpired reports whether token needs a refresh. When the token carries no
// expiry and the access token is a JWT, its exp claim is used.
func (c *Client) IsExpired(token *types.Token) bool {
	if token == nil {
		return true
	}
	if !token.ExpiresAt.IsZero() {
		return token.IsExpired()
	}

	if exp, ok := jwtExpiry(token.AccessToken); ok {
		withExp := *token
		withExp.ExpiresAt = exp
		return withExp.IsExpired()
	}

	return false
}

// convertOAuth2Token converts an oauth2.Token to our Token type.
func convertOAuth2Token(token *oauth2.Token) *types.Token {
	t := &types.Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
	}

	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		t.Scopes = strings.Fields(scope)
		t.Extra = map[string]string{"scope": scope}
	}

	return t
}
