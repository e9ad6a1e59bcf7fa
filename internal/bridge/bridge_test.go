package bridge

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/holtech/isbridge/pkg/auth"
	"github.com/holtech/isbridge/pkg/auth/storage"
	"github.com/holtech/isbridge/pkg/auth/types"
	"github.com/holtech/isbridge/pkg/config"
	"github.com/holtech/isbridge/pkg/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authorizeURL = "https://accounts.example.com/authorize?client_id=abc&x=1"

var readyCreds = auth.CredentialConfig{
	ClientID:     "abc",
	ClientSecret: "xyz",
	RedirectURI:  "https://host/cb",
}

type fakeClient struct {
	mu        sync.Mutex
	exchanged []string
	rejectAll bool
}

func (f *fakeClient) AuthorizationURL() string { return authorizeURL }

func (f *fakeClient) ExchangeCode(_ context.Context, code string) (*types.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanged = append(f.exchanged, code)
	if f.rejectAll {
		return nil, errors.New("invalid_grant")
	}
	return &types.Token{
		AccessToken:  "good-token",
		RefreshToken: "r1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeClient) Refresh(context.Context, *types.Token) (*types.Token, error) {
	return nil, errors.New("refresh disabled")
}

func (f *fakeClient) IsExpired(t *types.Token) bool { return t.IsExpired() }

func (f *fakeClient) exchanges() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.exchanged...)
}

func newTestBridge(t *testing.T, client *fakeClient, apiURL string) (*Bridge, *storage.MemoryStore) {
	t.Helper()

	cfg := config.Default()
	cfg.Infusionsoft.RetryMax = 0
	if apiURL != "" {
		cfg.Infusionsoft.APIBaseURL = apiURL
	}

	store := storage.NewMemoryStore()
	factory := func(creds auth.CredentialConfig) (auth.Client, error) {
		return client, nil
	}

	b, err := New(context.Background(), cfg, store, hooks.New(), WithClientFactory(factory))
	require.NoError(t, err)
	return b, store
}

func TestNew_SeedsDefaultsAndRegistersHooks(t *testing.T) {
	b, store := newTestBridge(t, &fakeClient{}, "")

	v, ok, err := store.Get(context.Background(), auth.KeyClientID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Client Key", v)

	assert.False(t, b.Manager().Configured())
	assert.True(t, b.Credentials().NeedsDetails())

	for _, name := range []string{"is_auth_link", "is_is_authed", "is_details_check", "process_request_code", "get_inf_contacts"} {
		assert.Equal(t, 1, b.Bus().Count(name), name)
	}
}

func TestSaveCredentials_Reloads(t *testing.T) {
	b, _ := newTestBridge(t, &fakeClient{}, "")
	ctx := context.Background()

	before := b.Manager()
	require.NoError(t, b.SaveCredentials(ctx, readyCreds))

	assert.NotSame(t, before, b.Manager())
	assert.True(t, b.Manager().Configured())
	assert.Equal(t, readyCreds, b.Credentials())
	assert.Equal(t, auth.StateUnauthorized, b.Manager().Status(ctx))
}

func TestAuthLink(t *testing.T) {
	b, _ := newTestBridge(t, &fakeClient{}, "")
	ctx := context.Background()

	html, err := hooks.Apply(ctx, b.Bus(), AuthLink, "Authorize", LinkArgs{Element: "a", Classes: []string{"button", "button-primary"}})
	require.NoError(t, err)
	assert.Empty(t, html, "unconfigured bridge renders no link")

	require.NoError(t, b.SaveCredentials(ctx, readyCreds))

	tests := []struct {
		name string
		text string
		args LinkArgs
		want string
	}{
		{
			name: "button",
			text: "Authorize",
			args: LinkArgs{Element: "a", Classes: []string{"button", "button-primary"}},
			want: `<a class="button button-primary" href="https://accounts.example.com/authorize?client_id=abc&amp;x=1">Authorize</a>`,
		},
		{
			name: "defaults",
			want: `<a class="" href="https://accounts.example.com/authorize?client_id=abc&amp;x=1">Click here to authorized</a>`,
		},
		{
			name: "escapes text",
			text: "<b>go</b>",
			args: LinkArgs{Element: "span"},
			want: `<span class="" href="https://accounts.example.com/authorize?client_id=abc&amp;x=1">&lt;b&gt;go&lt;/b&gt;</span>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hooks.Apply(ctx, b.Bus(), AuthLink, tt.text, tt.args)
			require.NoError(t, err)
			if got != tt.want {
				t.Errorf("AuthLink = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetailsCheck(t *testing.T) {
	b, _ := newTestBridge(t, &fakeClient{}, "")
	ctx := context.Background()

	got, err := hooks.Apply(ctx, b.Bus(), DetailsCheck, "p", struct{}{})
	require.NoError(t, err)
	assert.Equal(t, `<p id="is_details_alert">Enter your Infusionsoft App details below to proceed.</p>`, got)

	require.NoError(t, b.SaveCredentials(ctx, readyCreds))

	got, err = hooks.Apply(ctx, b.Bus(), DetailsCheck, "p", struct{}{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProcessRequestCode_AuthorizesOnce(t *testing.T) {
	client := &fakeClient{}
	b, _ := newTestBridge(t, client, "")
	ctx := context.Background()
	require.NoError(t, b.SaveCredentials(ctx, readyCreds))

	authed, err := hooks.Apply(ctx, b.Bus(), IsAuthed, false, struct{}{})
	require.NoError(t, err)
	assert.False(t, authed)

	sess := auth.NewMemorySession()
	require.NoError(t, b.CodeReceived(ctx, sess, "c1"))
	require.NoError(t, b.CodeReceived(ctx, sess, "c1"))

	assert.Equal(t, []string{"c1"}, client.exchanges())
	assert.Equal(t, []string{"c1"}, sess.PendingCodes())

	authed, err = hooks.Apply(ctx, b.Bus(), IsAuthed, false, struct{}{})
	require.NoError(t, err)
	assert.True(t, authed)
	assert.NoError(t, b.Sweep(ctx))
}

func TestProcessRequestCode_Rejected(t *testing.T) {
	b, _ := newTestBridge(t, &fakeClient{rejectAll: true}, "")
	ctx := context.Background()
	require.NoError(t, b.SaveCredentials(ctx, readyCreds))

	err := b.CodeReceived(ctx, auth.NewMemorySession(), "bad")
	assert.ErrorIs(t, err, auth.ErrRemoteRejected)
	assert.ErrorIs(t, b.Sweep(ctx), auth.ErrNotAuthorized)
}

func TestSweep_Unconfigured(t *testing.T) {
	b, _ := newTestBridge(t, &fakeClient{}, "")
	assert.NoError(t, b.Sweep(context.Background()))
}

func TestGetContacts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"given_name":"Ada","family_name":"Lovelace"}`))
	}))
	defer srv.Close()

	b, _ := newTestBridge(t, &fakeClient{}, srv.URL)
	ctx := context.Background()

	_, err := hooks.Apply(ctx, b.Bus(), GetContacts, nil, ContactArgs{ID: 42})
	assert.ErrorIs(t, err, auth.ErrNotConfigured)

	require.NoError(t, b.SaveCredentials(ctx, readyCreds))
	require.NoError(t, b.CodeReceived(ctx, auth.NewMemorySession(), "c1"))

	contact, err := hooks.Apply(ctx, b.Bus(), GetContacts, nil, ContactArgs{ID: 42, Fields: []string{"given_name"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"given_name": "Ada"}, contact)
}
