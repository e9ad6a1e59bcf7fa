package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/holtech/isbridge/pkg/auth/storage"
	"github.com/holtech/isbridge/pkg/auth/types"
	"github.com/holtech/isbridge/pkg/hooks"
	"github.com/holtech/isbridge/pkg/secrets"
	"go.uber.org/zap"
)

const (
	// DefaultRemoteTimeout bounds every call to the remote API.
	DefaultRemoteTimeout = 30 * time.Second

	// DefaultPendingCodeLimit is the number of exchanged codes remembered per session.
	DefaultPendingCodeLimit = 32
)

// Manager drives the token lifecycle for one set of credentials.
//
// A Manager built from incomplete credentials is permanently unconfigured:
// every operation reports ErrNotConfigured or false. Exchange, refresh and
// checks are serialized by a per-manager mutex.
type Manager struct {
	mu         sync.Mutex
	store      storage.Store
	client     Client
	authorized atomic.Bool

	logger    *zap.Logger
	bus       *hooks.Bus
	timeout   time.Duration
	codeLimit int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithBus emits Lifecycle events on bus.
func WithBus(bus *hooks.Bus) Option {
	return func(m *Manager) {
		m.bus = bus
	}
}

// WithRemoteTimeout bounds each remote call. Non-positive values keep the default.
func WithRemoteTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithPendingCodeLimit caps the number of codes remembered per session.
// Non-positive values keep the default.
func WithPendingCodeLimit(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.codeLimit = n
		}
	}
}

// NewManager creates a Manager. newClient is only invoked when creds are
// ready; a factory error leaves the manager unconfigured. When configured,
// the stored token is checked (and refreshed if stale) before returning.
func NewManager(ctx context.Context, creds CredentialConfig, newClient ClientFactory, store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		logger:    zap.NewNop(),
		timeout:   DefaultRemoteTimeout,
		codeLimit: DefaultPendingCodeLimit,
	}
	for _, opt := range opts {
		opt(m)
	}

	if !creds.IsReady() {
		m.logger.Info("infusionsoft credentials incomplete, manager unconfigured")
		return m
	}

	client, err := newClient(creds)
	if err != nil {
		m.logger.Error("failed to create infusionsoft client", zap.Error(err))
		return m
	}
	m.client = client

	m.IsAuthorized(ctx)
	return m
}

// Configured reports whether a remote client exists.
func (m *Manager) Configured() bool {
	return m.client != nil
}

// Authorized returns the flag recorded by the most recent check, exchange
// or refresh. It never touches the store or the network.
func (m *Manager) Authorized() bool {
	return m.authorized.Load()
}

// AuthorizationURL returns the URL the user visits to grant access.
func (m *Manager) AuthorizationURL() (string, bool) {
	if m.client == nil {
		return "", false
	}
	return m.client.AuthorizationURL(), true
}

// ExchangeCode trades code for a token unless sess has already exchanged it.
// A repeated code returns nil without contacting the remote API. A rejected
// code leaves sess unchanged. When the token cannot be persisted the code is
// still recorded, since the remote API will not accept it twice.
func (m *Manager) ExchangeCode(ctx context.Context, sess Session, code string) error {
	if m.client == nil {
		return ErrNotConfigured
	}
	if code == "" {
		return ErrEmptyCode
	}
	if sess == nil {
		sess = NewMemorySession()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	codes := sess.PendingCodes()
	if containsCode(codes, code) {
		m.logger.Debug("authorization code already exchanged", secrets.Field("code", code))
		m.emit(ctx, KindExchangeSkipped, nil)
		return nil
	}

	rctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	token, err := m.client.ExchangeCode(rctx, code)
	if err == nil && token == nil {
		err = errors.New("empty token response")
	}
	if err != nil {
		err = wrapSentinel(ErrRemoteRejected, err)
		m.logger.Warn("authorization code exchange failed",
			secrets.Field("code", code),
			zap.Error(err),
		)
		m.emit(ctx, KindExchangeRejected, err)
		return err
	}

	saveErr := m.saveToken(ctx, token)
	sess.SetPendingCodes(appendCode(codes, code, m.codeLimit))

	if saveErr != nil {
		m.authorized.Store(false)
		m.logger.Error("failed to persist token", zap.Error(saveErr))
		m.emit(ctx, KindExchanged, saveErr)
		return saveErr
	}

	m.authorized.Store(!m.client.IsExpired(token))
	m.logger.Info("authorization code exchanged",
		zap.Time("expires_at", token.ExpiresAt),
		zap.Bool("authorized", m.authorized.Load()),
	)
	m.emit(ctx, KindExchanged, nil)
	return nil
}

// IsAuthorized reports whether a usable token is stored. An expired token
// triggers exactly one refresh attempt, after which the result is decided
// locally.
func (m *Manager) IsAuthorized(ctx context.Context) bool {
	if m.client == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.checkLocked(ctx)
}

func (m *Manager) checkLocked(ctx context.Context) bool {
	token, err := m.loadToken(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			m.logger.Warn("stored token unusable", zap.Error(err))
		}
		m.authorized.Store(false)
		return false
	}

	if !m.client.IsExpired(token) {
		m.authorized.Store(true)
		return true
	}

	m.logger.Debug("stored token expired, refreshing", zap.Time("expires_at", token.ExpiresAt))
	if _, err := m.refreshLocked(ctx, token); err != nil {
		return false
	}

	return m.authorized.Load()
}

// Refresh obtains a new token from the stored refresh token. On failure the
// stored token is left untouched.
func (m *Manager) Refresh(ctx context.Context) error {
	if m.client == nil {
		return ErrNotConfigured
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.loadToken(ctx)
	if err != nil {
		return err
	}

	_, err = m.refreshLocked(ctx, token)
	return err
}

func (m *Manager) refreshLocked(ctx context.Context, token *types.Token) (*types.Token, error) {
	rctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	refreshed, err := m.client.Refresh(rctx, token)
	if err == nil && refreshed == nil {
		err = errors.New("empty token response")
	}
	if err != nil {
		err = wrapSentinel(ErrRemoteFailed, err)
		m.authorized.Store(!m.client.IsExpired(token))
		m.logger.Warn("token refresh failed", zap.Error(err))
		m.emit(ctx, KindRefreshFailed, err)
		return nil, err
	}

	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = token.RefreshToken
	}

	if err := m.saveToken(ctx, refreshed); err != nil {
		m.authorized.Store(!m.client.IsExpired(token))
		m.logger.Error("failed to persist refreshed token", zap.Error(err))
		m.emit(ctx, KindRefreshFailed, err)
		return nil, err
	}

	m.authorized.Store(!m.client.IsExpired(refreshed))
	m.logger.Info("token refreshed", zap.Time("expires_at", refreshed.ExpiresAt))
	m.emit(ctx, KindRefreshed, nil)
	return refreshed, nil
}

// Status computes the current state, refreshing a stale token if needed.
func (m *Manager) Status(ctx context.Context) State {
	if m.client == nil {
		return StateUnconfigured
	}
	if m.IsAuthorized(ctx) {
		return StateAuthorized
	}
	return StateUnauthorized
}

// Token returns a usable token for API calls, refreshing it if needed.
func (m *Manager) Token(ctx context.Context) (*types.Token, error) {
	if m.client == nil {
		return nil, ErrNotConfigured
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.loadToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAuthorized, err)
	}

	if !m.client.IsExpired(token) {
		m.authorized.Store(true)
		return token, nil
	}

	refreshed, err := m.refreshLocked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAuthorized, err)
	}
	if m.client.IsExpired(refreshed) {
		return nil, ErrNotAuthorized
	}

	return refreshed, nil
}

// Logout deletes the stored token.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(ctx, KeyToken); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	m.authorized.Store(false)
	m.logger.Info("stored token deleted")
	m.emit(ctx, KindLoggedOut, nil)
	return nil
}

func (m *Manager) loadToken(ctx context.Context) (*types.Token, error) {
	blob, ok, err := m.store.Get(ctx, KeyToken)
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	if !ok || blob == "" {
		return nil, ErrNoToken
	}

	return types.DecodeToken(blob)
}

func (m *Manager) saveToken(ctx context.Context, token *types.Token) error {
	blob, err := types.EncodeToken(token)
	if err != nil {
		return err
	}

	if err := m.store.Set(ctx, KeyToken, blob); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}

func (m *Manager) emit(ctx context.Context, kind LifecycleKind, err error) {
	if m.bus == nil {
		return
	}

	event := LifecycleEvent{Kind: kind, Authorized: m.authorized.Load(), Err: err}
	if herr := hooks.Emit(ctx, m.bus, Lifecycle, event); herr != nil {
		m.logger.Warn("lifecycle handler failed", zap.String("kind", string(kind)), zap.Error(herr))
	}
}

func wrapSentinel(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
