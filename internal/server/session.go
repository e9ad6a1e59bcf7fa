package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// pendingCodesKey holds the JSON array of exchanged authorization codes.
const pendingCodesKey = "is_plugin_code"

// cookieSession adapts a gorilla session to auth.Session.
type cookieSession struct {
	sess   *sessions.Session
	logger *zap.Logger
	dirty  bool
}

func (c *cookieSession) PendingCodes() []string {
	raw, ok := c.sess.Values[pendingCodesKey].(string)
	if !ok || raw == "" {
		return nil
	}

	var codes []string
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		c.logger.Warn("discarding malformed pending codes", zap.Error(err))
		return nil
	}
	return codes
}

func (c *cookieSession) SetPendingCodes(codes []string) {
	raw, err := json.Marshal(codes)
	if err != nil {
		return
	}
	c.sess.Values[pendingCodesKey] = string(raw)
	c.dirty = true
}

// save writes the cookie if the codes changed.
func (c *cookieSession) save(r *http.Request, w http.ResponseWriter) error {
	if !c.dirty {
		return nil
	}
	return c.sess.Save(r, w)
}

// session loads the browser session for r. A cookie that fails to decode
// yields a fresh session.
func (s *Server) session(r *http.Request) *cookieSession {
	sess, err := s.cookies.Get(r, s.cfg.SessionName)
	if err != nil {
		s.logger.Debug("starting new browser session", zap.Error(err))
	}
	return &cookieSession{sess: sess, logger: s.logger}
}
