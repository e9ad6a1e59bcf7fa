package server

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// observe logs every request and counts it by route template.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		if s.metrics != nil {
			s.metrics.ObserveRequest(route, sw.status)
		}

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", RequestID(r.Context())),
		}
		switch {
		case sw.status >= 500:
			s.logger.Error("http request completed", fields...)
		case sw.status >= 400:
			s.logger.Warn("http request completed", fields...)
		default:
			s.logger.Debug("http request completed", fields...)
		}
	})
}

// adminAuth requires HTTP basic credentials when an admin user is configured.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	if s.cfg.AdminUser == "" {
		return next
	}

	wantUser := sha256.Sum256([]byte(s.cfg.AdminUser))
	wantPass := sha256.Sum256([]byte(s.cfg.AdminPassword))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		gotUser := sha256.Sum256([]byte(user))
		gotPass := sha256.Sum256([]byte(pass))

		// ConstantTimeCompare returns early on a length mismatch; compare digests.
		userOK := subtle.ConstantTimeCompare(wantUser[:], gotUser[:]) == 1
		passOK := subtle.ConstantTimeCompare(wantPass[:], gotPass[:]) == 1
		if !ok || !userOK || !passOK {
			s.logger.Warn("admin authentication failed", zap.String("request_id", RequestID(r.Context())))
			w.Header().Set("WWW-Authenticate", `Basic realm="isbridge", charset="UTF-8"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
