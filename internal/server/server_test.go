package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/holtech/isbridge/internal/bridge"
	"github.com/holtech/isbridge/internal/metrics"
	"github.com/holtech/isbridge/pkg/auth"
	"github.com/holtech/isbridge/pkg/auth/storage"
	"github.com/holtech/isbridge/pkg/auth/types"
	"github.com/holtech/isbridge/pkg/config"
	"github.com/holtech/isbridge/pkg/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu        sync.Mutex
	exchanged []string
}

func (f *fakeClient) AuthorizationURL() string {
	return "https://accounts.example.com/authorize?client_id=abc&response_type=code"
}

func (f *fakeClient) ExchangeCode(_ context.Context, code string) (*types.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanged = append(f.exchanged, code)
	if code == "bad" {
		return nil, errors.New("invalid_grant")
	}
	return &types.Token{AccessToken: "t-" + code, RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeClient) Refresh(context.Context, *types.Token) (*types.Token, error) {
	return nil, errors.New("refresh disabled")
}

func (f *fakeClient) IsExpired(t *types.Token) bool { return t.IsExpired() }

func (f *fakeClient) exchanges() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.exchanged)
}

type fixture struct {
	srv    *Server
	bridge *bridge.Bridge
	client *fakeClient
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Server.SessionSecret = strings.Repeat("s", 32)
	if mutate != nil {
		mutate(cfg)
	}

	client := &fakeClient{}
	factory := func(auth.CredentialConfig) (auth.Client, error) { return client, nil }

	bus := hooks.New()
	m := metrics.New()
	m.Subscribe(bus)

	br, err := bridge.New(context.Background(), cfg, storage.NewMemoryStore(), bus, bridge.WithClientFactory(factory))
	require.NoError(t, err)

	return &fixture{
		srv:    New(cfg.Server, false, br, m, nil),
		bridge: br,
		client: client,
	}
}

func (f *fixture) configure(t *testing.T) {
	t.Helper()
	require.NoError(t, f.bridge.SaveCredentials(context.Background(), auth.CredentialConfig{
		ClientID:     "abc",
		ClientSecret: "xyz",
		RedirectURI:  "https://host/admin/settings",
	}))
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestID_Propagated(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := f.do(req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestSettings_Unconfigured(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/admin/settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `<p id="is_details_alert">Enter your Infusionsoft App details below to proceed.</p>`)
	assert.Contains(t, body, "<strong>unconfigured</strong>")
	assert.NotContains(t, body, "accounts.example.com")
}

func TestSettings_SaveThenAuthorize(t *testing.T) {
	f := newFixture(t, nil)

	form := url.Values{
		"client_key":    {"  abc "},
		"client_secret": {"<b>xyz</b>"},
		"redirect_uri":  {"https://host/admin/settings"},
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/settings", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := f.do(req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/settings?saved=1", rec.Header().Get("Location"))
	assert.Equal(t, "abc", f.bridge.Credentials().ClientID)
	assert.Equal(t, "xyz", f.bridge.Credentials().ClientSecret)
	assert.True(t, f.bridge.Manager().Configured())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/admin/settings?saved=1", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "Settings saved.")
	assert.Contains(t, body, `<a class="button button-primary" href="https://accounts.example.com/authorize?client_id=abc&amp;response_type=code">Authorize</a>`)
	assert.NotContains(t, body, "is_details_alert")
}

func TestSettings_CodeCallbackExchangesOncePerSession(t *testing.T) {
	f := newFixture(t, nil)
	f.configure(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/admin/settings?code=c1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<strong>authorized</strong>")
	assert.Equal(t, 1, f.client.exchanges())

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/admin/settings?code=c1", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.client.exchanges(), "repeated code in the same session must not be exchanged")

	// A new browser session has no record of the code.
	f.do(httptest.NewRequest(http.MethodGet, "/admin/settings?code=c1", nil))
	assert.Equal(t, 2, f.client.exchanges())
}

func TestSettings_RejectedCode(t *testing.T) {
	f := newFixture(t, nil)
	f.configure(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/admin/settings?code=bad", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authorization failed")
	assert.Empty(t, rec.Result().Cookies(), "rejected code leaves the session untouched")
}

func TestBanner(t *testing.T) {
	f := newFixture(t, nil)
	f.configure(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/banner", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bannerMarkup, rec.Body.String())

	f.do(httptest.NewRequest(http.MethodGet, "/admin/settings?code=c1", nil))

	rec = f.do(httptest.NewRequest(http.MethodGet, "/banner", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestStatus(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name  string
		setup func(t *testing.T)
		want  statusResponse
	}{
		{
			name: "unconfigured",
			want: statusResponse{State: "unconfigured", DetailsRequired: true},
		},
		{
			name:  "configured",
			setup: f.configure,
			want: statusResponse{
				State:            "unauthorized",
				Configured:       true,
				AuthorizationURL: "https://accounts.example.com/authorize?client_id=abc&response_type=code",
			},
		},
		{
			name: "authorized",
			setup: func(t *testing.T) {
				require.NoError(t, f.bridge.CodeReceived(context.Background(), nil, "c1"))
			},
			want: statusResponse{
				State:            "authorized",
				Configured:       true,
				Authorized:       true,
				AuthorizationURL: "https://accounts.example.com/authorize?client_id=abc&response_type=code",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup(t)
			}

			rec := f.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var got statusResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			if got != tt.want {
				t.Errorf("status = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestContacts(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"non numeric id", "/api/contacts/abc", http.StatusNotFound},
		{"zero id", "/api/contacts/0", http.StatusBadRequest},
		{"unconfigured", "/api/contacts/42", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestContacts_Lookup(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contacts/42" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"given_name":"Ada","email_addresses":[{"email":"ada@example.com"}]}`))
	}))
	defer api.Close()

	f := newFixture(t, func(c *config.Config) {
		c.Infusionsoft.APIBaseURL = api.URL
		c.Infusionsoft.RetryMax = 0
	})
	f.configure(t)
	require.NoError(t, f.bridge.CodeReceived(context.Background(), nil, "c1"))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/contacts/42?fields=given_name,email_addresses.0.email", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"given_name":"Ada","email_addresses.0.email":"ada@example.com"}`, rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/contacts/7", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminAuth(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Server.AdminUser = "admin"
		c.Server.AdminPassword = "hunter2"
	})

	tests := []struct {
		name       string
		user, pass string
		basic      bool
		want       int
	}{
		{"missing", "", "", false, http.StatusUnauthorized},
		{"wrong password", "admin", "nope", true, http.StatusUnauthorized},
		{"wrong user", "root", "hunter2", true, http.StatusUnauthorized},
		{"valid", "admin", "hunter2", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
			if tt.basic {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := f.do(req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	// Public routes stay open.
	rec := f.do(httptest.NewRequest(http.MethodGet, "/banner", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `isbridge_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestCookieSession_MalformedCodes(t *testing.T) {
	f := newFixture(t, nil)

	sess := f.srv.session(httptest.NewRequest(http.MethodGet, "/", nil))
	sess.sess.Values[pendingCodesKey] = "not json"
	assert.Nil(t, sess.PendingCodes())

	sess.SetPendingCodes([]string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, sess.PendingCodes())
	assert.Equal(t, `["a","b"]`, sess.sess.Values[pendingCodesKey])
}
