// Package server is the HTTP gateway: the admin settings page that receives
// the OAuth callback, the public banner, and a small JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/holtech/isbridge/internal/bridge"
	"github.com/holtech/isbridge/internal/metrics"
	"github.com/holtech/isbridge/pkg/config"
	"go.uber.org/zap"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Server serves the gateway routes.
type Server struct {
	cfg     config.ServerConfig
	bridge  *bridge.Bridge
	metrics *metrics.Metrics
	logger  *zap.Logger
	cookies *sessions.CookieStore
	router  *mux.Router
}

// New builds the router. m may be nil, which disables /metrics.
func New(cfg config.ServerConfig, secure bool, br *bridge.Bridge, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionName == "" {
		cfg.SessionName = config.Default().Server.SessionName
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		logger.Warn("no session secret configured, sessions will not survive a restart")
		secret = securecookie.GenerateRandomKey(32)
	}

	cookies := sessions.NewCookieStore(secret)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	s := &Server{
		cfg:     cfg,
		bridge:  br,
		metrics: m,
		logger:  logger,
		cookies: cookies,
		router:  mux.NewRouter(),
	}
	s.routes()

	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.requestID, s.observe)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/banner", s.handleBanner).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(s.adminAuth)
	admin.HandleFunc("/settings", s.handleSettings).Methods(http.MethodGet)
	admin.HandleFunc("/settings", s.handleSaveSettings).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.adminAuth)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/contacts/{id:[0-9]+}", s.handleContact).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
