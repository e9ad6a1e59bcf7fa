// Package bridge assembles the token lifecycle manager, the contact service
// and the host events into one unit the server and CLI share.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holtech/isbridge/pkg/auth"
	"github.com/holtech/isbridge/pkg/auth/storage"
	"github.com/holtech/isbridge/pkg/auth/types"
	"github.com/holtech/isbridge/pkg/config"
	"github.com/holtech/isbridge/pkg/hooks"
	"github.com/holtech/isbridge/pkg/infusionsoft"
	"go.uber.org/zap"
)

// Bridge owns the current Manager and rebuilds it when credentials change.
type Bridge struct {
	cfg      *config.Config
	store    storage.Store
	bus      *hooks.Bus
	logger   *zap.Logger
	factory  auth.ClientFactory
	contacts *infusionsoft.ContactService

	mu      sync.RWMutex
	manager *auth.Manager
	creds   auth.CredentialConfig
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClientFactory replaces the Infusionsoft client factory.
func WithClientFactory(f auth.ClientFactory) Option {
	return func(b *Bridge) {
		b.factory = f
	}
}

// WithContactService replaces the contact service.
func WithContactService(s *infusionsoft.ContactService) Option {
	return func(b *Bridge) {
		b.contacts = s
	}
}

// New seeds default options, registers the host events on bus and builds
// the first Manager.
func New(ctx context.Context, cfg *config.Config, store storage.Store, bus *hooks.Bus, opts ...Option) (*Bridge, error) {
	b := &Bridge{
		cfg:    cfg,
		store:  store,
		bus:    bus,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.factory == nil {
		b.factory = infusionsoft.Factory(cfg.Infusionsoft, infusionsoft.WithLogger(b.logger.Named("oauth")))
	}
	if b.contacts == nil {
		b.contacts = infusionsoft.NewContactService(cfg.Infusionsoft, b, nil, b.logger.Named("contacts"))
	}

	if err := auth.SeedDefaults(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to seed default options: %w", err)
	}

	b.registerHooks()
	b.Reload(ctx)

	return b, nil
}

// Reload re-reads the credentials and replaces the Manager.
func (b *Bridge) Reload(ctx context.Context) {
	creds := auth.LoadCredentials(ctx, b.store)

	mgr := auth.NewManager(ctx, creds, b.factory, b.store,
		auth.WithLogger(b.logger.Named("auth")),
		auth.WithBus(b.bus),
		auth.WithRemoteTimeout(b.cfg.Infusionsoft.Timeout),
		auth.WithPendingCodeLimit(b.cfg.Auth.PendingCodeLimit),
	)

	b.mu.Lock()
	b.manager = mgr
	b.creds = creds
	b.mu.Unlock()

	b.logger.Info("credentials loaded",
		zap.Bool("configured", mgr.Configured()),
		zap.Bool("authorized", mgr.Authorized()),
	)
}

// Manager returns the current Manager.
func (b *Bridge) Manager() *auth.Manager {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.manager
}

// Credentials returns the credentials the current Manager was built from.
func (b *Bridge) Credentials() auth.CredentialConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.creds
}

// Bus returns the event bus.
func (b *Bridge) Bus() *hooks.Bus {
	return b.bus
}

// Store returns the key-value store.
func (b *Bridge) Store() storage.Store {
	return b.store
}

// SaveCredentials stores creds and rebuilds the Manager.
func (b *Bridge) SaveCredentials(ctx context.Context, creds auth.CredentialConfig) error {
	if err := auth.SaveCredentials(ctx, b.store, creds); err != nil {
		return err
	}

	b.Reload(ctx)
	return nil
}

// Token delegates to the current Manager.
func (b *Bridge) Token(ctx context.Context) (*types.Token, error) {
	return b.Manager().Token(ctx)
}

// Sweep checks the stored token, refreshing it when stale. It is the job
// run by the background scheduler.
func (b *Bridge) Sweep(ctx context.Context) error {
	mgr := b.Manager()
	if !mgr.Configured() {
		return nil
	}

	if !mgr.IsAuthorized(ctx) {
		return auth.ErrNotAuthorized
	}
	return nil
}

// CodeReceived fires ProcessRequestCode for an inbound callback.
func (b *Bridge) CodeReceived(ctx context.Context, sess auth.Session, code string) error {
	err := hooks.Emit(ctx, b.bus, ProcessRequestCode, CodeArgs{Session: sess, Code: code})
	if err != nil && !errors.Is(err, auth.ErrRemoteRejected) {
		b.logger.Error("authorization callback failed", zap.Error(err))
	}
	return err
}

// Close releases the store.
func (b *Bridge) Close() error {
	return b.store.Close()
}
