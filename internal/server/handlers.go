package server

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/holtech/isbridge/internal/bridge"
	"github.com/holtech/isbridge/pkg/auth"
	"github.com/holtech/isbridge/pkg/hooks"
	"github.com/holtech/isbridge/pkg/infusionsoft"
	"go.uber.org/zap"
)

const settingsPath = "/admin/settings"

var settingsPage = template.Must(template.New("settings").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>IS Bridge Settings</title></head>
<body>
<h1>IS Bridge Settings</h1>
{{.Details}}
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Saved}}<p class="notice">Settings saved.</p>{{end}}
<form method="post" action="/admin/settings">
  <label>Client Key <input type="text" name="client_key" value="{{.Creds.ClientID}}"></label>
  <label>Client Secret <input type="password" name="client_secret" value="{{.Creds.ClientSecret}}"></label>
  <label>Redirect URI <input type="text" name="redirect_uri" value="{{.Creds.RedirectURI}}"></label>
  <button type="submit" class="button">Save</button>
</form>
<p>Status: <strong>{{.State}}</strong></p>
{{if not .Authorized}}{{.AuthLink}}{{end}}
</body>
</html>
`))

type settingsData struct {
	Creds      auth.CredentialConfig
	State      string
	Authorized bool
	Saved      bool
	Error      string
	Details    template.HTML
	AuthLink   template.HTML
}

// bannerMarkup is served to public pages while no usable token is stored.
const bannerMarkup = `<div class="is_auth_alert_wrap"><span>Infusionsoft is not Authorized! <a href="` +
	settingsPath + `">Click Here</a> to authorize.</span></div>`

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSettings renders the settings page. A ?code= query is the OAuth
// callback and is exchanged before rendering.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := settingsData{Saved: r.URL.Query().Get("saved") == "1"}

	if code := r.URL.Query().Get("code"); code != "" {
		sess := s.session(r)
		if err := s.bridge.CodeReceived(ctx, sess, code); err != nil {
			data.Error = "Authorization failed: " + err.Error()
		}
		if err := sess.save(r, w); err != nil {
			s.logger.Error("failed to save browser session", zap.Error(err))
		}
	}

	mgr := s.bridge.Manager()
	state := mgr.Status(ctx)
	data.State = state.String()
	data.Authorized = state == auth.StateAuthorized
	data.Creds = s.bridge.Credentials()

	details, err := hooks.Apply(ctx, s.bridge.Bus(), bridge.DetailsCheck, "p", struct{}{})
	if err != nil {
		s.logger.Error("details check failed", zap.Error(err))
	}
	link, err := hooks.Apply(ctx, s.bridge.Bus(), bridge.AuthLink, "Authorize", bridge.LinkArgs{
		Element: "a",
		Classes: []string{"button", "button-primary"},
	})
	if err != nil {
		s.logger.Error("auth link failed", zap.Error(err))
	}

	// Both filters return escaped markup.
	data.Details = template.HTML(details)
	data.AuthLink = template.HTML(link)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := settingsPage.Execute(w, data); err != nil {
		s.logger.Error("failed to render settings page", zap.Error(err))
	}
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	creds := auth.CredentialConfig{
		ClientID:     r.PostForm.Get(auth.KeyClientID),
		ClientSecret: r.PostForm.Get(auth.KeyClientSecret),
		RedirectURI:  r.PostForm.Get(auth.KeyRedirectURI),
	}
	if err := s.bridge.SaveCredentials(r.Context(), creds); err != nil {
		s.logger.Error("failed to save credentials", zap.Error(err))
		http.Error(w, "failed to save settings", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, settingsPath+"?saved=1", http.StatusSeeOther)
}

// handleBanner serves the public "not authorized" banner, or nothing once
// authorized.
func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	authed, err := hooks.Apply(r.Context(), s.bridge.Bus(), bridge.IsAuthed, false, struct{}{})
	if err != nil {
		s.logger.Error("authorization check failed", zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if authed {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_, _ = w.Write([]byte(bannerMarkup))
}

type statusResponse struct {
	State            string `json:"state"`
	Configured       bool   `json:"configured"`
	Authorized       bool   `json:"authorized"`
	DetailsRequired  bool   `json:"details_required"`
	AuthorizationURL string `json:"authorization_url,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	mgr := s.bridge.Manager()
	state := mgr.Status(r.Context())
	url, _ := mgr.AuthorizationURL()

	if s.metrics != nil {
		s.metrics.SetAuthorized(state == auth.StateAuthorized)
	}

	writeJSON(w, http.StatusOK, statusResponse{
		State:            state.String(),
		Configured:       mgr.Configured(),
		Authorized:       state == auth.StateAuthorized,
		DetailsRequired:  s.bridge.Credentials().NeedsDetails(),
		AuthorizationURL: url,
	})
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid contact id")
		return
	}

	var fields []string
	if raw := r.URL.Query().Get("fields"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}

	contact, err := hooks.Apply(r.Context(), s.bridge.Bus(), bridge.GetContacts, nil, bridge.ContactArgs{ID: id, Fields: fields})
	if err != nil {
		status := contactErrorStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("contact lookup failed", zap.Int64("contact_id", id), zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, contact)
}

func contactErrorStatus(err error) int {
	switch {
	case errors.Is(err, infusionsoft.ErrContactNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrNotConfigured), errors.Is(err, auth.ErrNotAuthorized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
