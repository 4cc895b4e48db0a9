package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/graphreports/internal/config"
)

// tokenServer is a fake Azure AD token endpoint that records the grants it sees.
type tokenServer struct {
	*httptest.Server

	mu      sync.Mutex
	forms   []map[string]string
	fail    bool
	counter int
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()

	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())

		ts.mu.Lock()
		defer ts.mu.Unlock()

		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		ts.forms = append(ts.forms, form)

		w.Header().Set("Content-Type", "application/json")
		if ts.fail {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"AADSTS70000"}`))
			return
		}

		ts.counter++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-" + form["grant_type"] + "-" + strconv.Itoa(ts.counter),
			"token_type":    "Bearer",
			"refresh_token": "refresh-token",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   ts.URL + "/authorize",
		TokenURL:  ts.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

func (ts *tokenServer) lastForm() map[string]string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.forms) == 0 {
		return nil
	}
	return ts.forms[len(ts.forms)-1]
}

func (ts *tokenServer) requests() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.forms)
}

func testConfig(flow string) config.Config {
	return config.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		ProgramEmail: "reports@example.org",
		AuthFlow:     flow,
		RedirectURL:  "https://login.example.org/nativeclient",
	}
}

func newTestStore() *KeyringTokenStore {
	return NewKeyringTokenStore(keyring.NewArrayKeyring(nil), "test_token.txt")
}

func TestAccount_AuthenticateConsent(t *testing.T) {
	ctx := context.Background()
	server := newTokenServer(t)
	store := newTestStore()
	var out bytes.Buffer

	account := NewAccount(testConfig(config.AuthFlowAuthorization), store,
		WithEndpoint(server.endpoint()),
		WithHTTPClient(server.Client()),
		WithPrompt(strings.NewReader("the-code\n"), &out),
	)

	assert.False(t, account.IsAuthenticated(ctx))

	ok, err := account.Authenticate(ctx, []string{"Mail.Read", "offline_access"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, account.IsAuthenticated(ctx))

	prompt := out.String()
	assert.Contains(t, prompt, server.URL+"/authorize?")
	assert.Contains(t, prompt, "code_challenge_method=S256")
	assert.Contains(t, prompt, "scope=Mail.Read+offline_access")
	assert.Contains(t, prompt, "state=")

	form := server.lastForm()
	assert.Equal(t, "authorization_code", form["grant_type"])
	assert.Equal(t, "the-code", form["code"])
	assert.NotEmpty(t, form["code_verifier"])
	assert.Equal(t, "client-id", form["client_id"])

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-authorization_code-1", stored.AccessToken)
	assert.Equal(t, "refresh-token", stored.RefreshToken)
}

func TestAccount_AuthenticateWithoutPrompt(t *testing.T) {
	server := newTokenServer(t)
	account := NewAccount(testConfig(""), newTestStore(), WithEndpoint(server.endpoint()))

	ok, err := account.Authenticate(context.Background(), DefaultScopes())
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNoPrompt)
	assert.Zero(t, server.requests())
}

func TestAccount_AuthenticateExchangeFails(t *testing.T) {
	server := newTokenServer(t)
	server.fail = true
	store := newTestStore()

	account := NewAccount(testConfig(""), store,
		WithEndpoint(server.endpoint()),
		WithHTTPClient(server.Client()),
		WithPrompt(strings.NewReader("bad-code"), nil),
	)

	ok, err := account.Authenticate(context.Background(), []string{"Mail.Read"})
	assert.False(t, ok)
	assert.ErrorContains(t, err, "failed to exchange auth code")

	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestAccount_AuthenticateCredentials(t *testing.T) {
	ctx := context.Background()
	server := newTokenServer(t)
	store := newTestStore()

	account := NewAccount(testConfig(config.AuthFlowCredentials), store,
		WithEndpoint(server.endpoint()),
		WithHTTPClient(server.Client()),
	)

	ok, err := account.Authenticate(ctx, DefaultScopes())
	require.NoError(t, err)
	assert.True(t, ok)

	form := server.lastForm()
	assert.Equal(t, "client_credentials", form["grant_type"])
	assert.Equal(t, CredentialsScope, form["scope"])

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-client_credentials-1", stored.AccessToken)
}

func TestAccount_IsAuthenticated_ValidStoredToken(t *testing.T) {
	ctx := context.Background()
	server := newTokenServer(t)
	store := newTestStore()
	require.NoError(t, store.Save(ctx, &oauth2.Token{
		AccessToken:  "stored",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}))

	account := NewAccount(testConfig(""), store, WithEndpoint(server.endpoint()), WithHTTPClient(server.Client()))

	assert.True(t, account.IsAuthenticated(ctx))
	assert.Zero(t, server.requests(), "a valid token needs no refresh")
}

func TestAccount_IsAuthenticated_RefreshesAndPersists(t *testing.T) {
	ctx := context.Background()
	server := newTokenServer(t)
	store := newTestStore()
	require.NoError(t, store.Save(ctx, &oauth2.Token{
		AccessToken:  "expired",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	account := NewAccount(testConfig(""), store, WithEndpoint(server.endpoint()), WithHTTPClient(server.Client()))

	assert.True(t, account.IsAuthenticated(ctx))
	assert.Equal(t, "refresh_token", server.lastForm()["grant_type"])

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-refresh_token-1", stored.AccessToken)
}

func TestAccount_IsAuthenticated_RefreshFails(t *testing.T) {
	ctx := context.Background()
	server := newTokenServer(t)
	server.fail = true
	store := newTestStore()
	require.NoError(t, store.Save(ctx, &oauth2.Token{
		AccessToken:  "expired",
		RefreshToken: "revoked",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	account := NewAccount(testConfig(""), store, WithEndpoint(server.endpoint()), WithHTTPClient(server.Client()))

	assert.False(t, account.IsAuthenticated(ctx))
}

func TestAccount_ClientAuthorizesRequests(t *testing.T) {
	ctx := context.Background()
	server := newTokenServer(t)

	var gotAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer api.Close()

	account := NewAccount(testConfig(""), newTestStore(),
		WithEndpoint(server.endpoint()),
		WithHTTPClient(server.Client()),
	)

	_, err := account.Client().Get(api.URL)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	account = NewAccount(testConfig(""), newTestStore(),
		WithEndpoint(server.endpoint()),
		WithHTTPClient(server.Client()),
		WithPrompt(strings.NewReader("code\n"), nil),
	)
	_, err = account.Authenticate(ctx, []string{"Mail.Read"})
	require.NoError(t, err)

	resp, err := account.Client().Get(api.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "Bearer access-authorization_code-1", gotAuth)
}

func TestParseAuthResponse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr string
	}{
		{name: "bare code", input: "  abc123 \n", want: "abc123"},
		{name: "redirect url", input: "https://login.example.org/nativeclient?code=xyz&state=s1", want: "xyz"},
		{name: "redirect url without state", input: "https://login.example.org/nativeclient?code=xyz", want: "xyz"},
		{name: "query only", input: "?code=q1&state=s1", want: "q1"},
		{name: "empty", input: "\n", wantErr: "empty authorization response"},
		{name: "state mismatch", input: "https://x/cb?code=xyz&state=other", wantErr: "state mismatch"},
		{name: "denied", input: "https://x/cb?error=access_denied&error_description=user+said+no", wantErr: "access_denied: user said no"},
		{name: "no code", input: "https://x/cb?state=s1", wantErr: "no authorization code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAuthResponse(tt.input, "s1")
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
