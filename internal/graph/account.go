package graph

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"

	"github.com/teemow/graphreports/internal/config"
	"github.com/teemow/graphreports/internal/instrumentation"
	"github.com/teemow/graphreports/internal/logging"
	"github.com/teemow/graphreports/internal/mail"
)

// ErrNotAuthenticated is returned by Graph requests made before the account
// holds a usable token.
var ErrNotAuthenticated = errors.New("account is not authenticated")

// ErrNoPrompt is returned when interactive consent is needed but the account
// has nowhere to ask.
var ErrNoPrompt = errors.New("interactive consent required but no prompt is configured")

// Account is an authenticated handle on a Microsoft Graph tenant.
type Account struct {
	cfg        config.Config
	store      TokenStore
	endpoint   oauth2.Endpoint
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	in         io.Reader
	out        io.Writer

	mu     sync.Mutex
	source oauth2.TokenSource
}

// Option configures an Account.
type Option func(*Account)

// WithEndpoint overrides the Azure AD endpoint derived from the tenant.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(a *Account) { a.endpoint = endpoint }
}

// WithHTTPClient sets the client used for token and Graph requests.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Account) { a.httpClient = client }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Account) { a.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(a *Account) { a.metrics = metrics }
}

// WithPrompt sets where the consent URL is written and the redirect read
// back. Without a prompt the authorization flow cannot authenticate.
func WithPrompt(in io.Reader, out io.Writer) Option {
	return func(a *Account) {
		a.in = in
		a.out = out
	}
}

// NewAccount creates an account for cfg that persists tokens in store.
func NewAccount(cfg config.Config, store TokenStore, opts ...Option) *Account {
	a := &Account{
		cfg:      cfg,
		store:    store,
		endpoint: microsoft.AzureADEndpoint(cfg.Tenant()),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.out == nil {
		a.out = io.Discard
	}
	return a
}

// IsAuthenticated reports whether a usable token is available, refreshing
// an expired stored token when possible.
func (a *Account) IsAuthenticated(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.source != nil {
		if _, err := a.source.Token(); err == nil {
			return true
		}
		a.source = nil
	}

	tok, err := a.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			a.logger.Warn("stored token unusable", logging.Err(err))
		}
		return false
	}

	source := a.persisting(a.baseSource(ctx, tok), tok)
	if _, err := source.Token(); err != nil {
		a.logger.Info("cached token invalid", logging.Err(err))
		return false
	}

	a.source = source
	return true
}

// Authenticate obtains a token for scopes and writes it to the token store.
// The authorization flow asks the user for consent through the prompt; the
// credentials flow requests an application token directly.
func (a *Account) Authenticate(ctx context.Context, scopes []string) (bool, error) {
	start := time.Now()

	var (
		tok    *oauth2.Token
		source oauth2.TokenSource
		err    error
	)
	if a.cfg.Flow() == config.AuthFlowCredentials {
		tok, source, err = a.authenticateCredentials(ctx, scopes)
	} else {
		tok, source, err = a.authenticateConsent(ctx, scopes)
	}

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	a.metrics.RecordGraphAPIOperation(ctx, instrumentation.ServiceOAuth, instrumentation.OperationExchange, status, "", time.Since(start))

	if err != nil {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return false, err
	}

	if err := a.store.Save(ctx, tok); err != nil {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return false, fmt.Errorf("failed to save token: %w", err)
	}

	a.mu.Lock()
	a.source = a.persisting(source, tok)
	a.mu.Unlock()

	a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	a.logger.Info("authenticated", logging.Scopes(scopes), slog.String("flow", a.cfg.Flow()))
	return true, nil
}

// Mailbox returns the mailbox of resource, a user principal name or address.
// An empty resource addresses the signed-in user.
func (a *Account) Mailbox(resource string) mail.Mailbox {
	client := mail.NewClient(a.Client(), a.cfg.BaseURL(),
		mail.WithLogger(a.logger),
		mail.WithMetrics(a.metrics),
	)
	return client.Mailbox(resource)
}

// Client returns an HTTP client that authorizes requests with the account's
// token. Requests fail with ErrNotAuthenticated until a token is available.
func (a *Account) Client() *http.Client {
	a.mu.Lock()
	source := a.source
	a.mu.Unlock()

	if source == nil {
		source = unauthenticatedSource{}
	}
	return oauth2.NewClient(a.clientContext(context.Background()), source)
}

func (a *Account) authenticateConsent(ctx context.Context, scopes []string) (*oauth2.Token, oauth2.TokenSource, error) {
	if a.in == nil {
		return nil, nil, ErrNoPrompt
	}

	conf := a.oauthConfig(scopes)
	state, err := newState()
	if err != nil {
		return nil, nil, err
	}
	verifier := oauth2.GenerateVerifier()

	authURL := conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	fmt.Fprintf(a.out, "Visit the following URL to grant access:\n\n%s\n\n", authURL)
	fmt.Fprint(a.out, "Paste the URL you were redirected to (or just the code): ")

	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
		return nil, nil, fmt.Errorf("failed to read authorization response: %w", err)
	}

	code, err := parseAuthResponse(line, state)
	if err != nil {
		return nil, nil, err
	}

	tok, err := conf.Exchange(a.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}

	return tok, conf.TokenSource(a.clientContext(context.WithoutCancel(ctx)), tok), nil
}

func (a *Account) authenticateCredentials(ctx context.Context, scopes []string) (*oauth2.Token, oauth2.TokenSource, error) {
	conf := a.credentialsConfig(credentialScopes(scopes))

	tok, err := conf.Token(a.clientContext(ctx))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to obtain application token: %w", err)
	}

	source := oauth2.ReuseTokenSource(tok, conf.TokenSource(a.clientContext(context.WithoutCancel(ctx))))
	return tok, source, nil
}

// baseSource returns a refreshing source seeded with a stored token.
func (a *Account) baseSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	ctx = a.clientContext(context.WithoutCancel(ctx))
	if a.cfg.Flow() == config.AuthFlowCredentials {
		conf := a.credentialsConfig([]string{CredentialsScope})
		return oauth2.ReuseTokenSource(tok, conf.TokenSource(ctx))
	}
	return a.oauthConfig(nil).TokenSource(ctx, tok)
}

func (a *Account) persisting(base oauth2.TokenSource, tok *oauth2.Token) oauth2.TokenSource {
	return &persistingSource{
		base:    base,
		store:   a.store,
		last:    tok.AccessToken,
		logger:  a.logger,
		metrics: a.metrics,
	}
}

func (a *Account) oauthConfig(scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		Endpoint:     a.endpoint,
		RedirectURL:  a.cfg.RedirectURL,
		Scopes:       scopes,
	}
}

func (a *Account) credentialsConfig(scopes []string) *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		TokenURL:     a.endpoint.TokenURL,
		Scopes:       scopes,
		AuthStyle:    a.endpoint.AuthStyle,
	}
}

func (a *Account) clientContext(ctx context.Context) context.Context {
	if a.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

// persistingSource writes every newly issued token back to the store.
type persistingSource struct {
	base    oauth2.TokenSource
	store   TokenStore
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	tok, err := s.base.Token()
	if err != nil {
		s.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		return nil, err
	}

	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		s.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
		if err := s.store.Save(ctx, tok); err != nil {
			// The fresh token is still usable for this run.
			s.logger.Warn("failed to persist refreshed token", logging.Err(err))
		} else {
			s.logger.Debug("persisted refreshed token", slog.Int("access_token_length", len(tok.AccessToken)))
		}
	}
	return tok, nil
}

type unauthenticatedSource struct{}

func (unauthenticatedSource) Token() (*oauth2.Token, error) {
	return nil, ErrNotAuthenticated
}

// parseAuthResponse extracts the authorization code from a pasted redirect
// URL or accepts a bare code.
func parseAuthResponse(input, state string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty authorization response")
	}

	if !strings.Contains(input, "://") && !strings.HasPrefix(input, "?") {
		return input, nil
	}

	var query url.Values
	if strings.HasPrefix(input, "?") {
		q, err := url.ParseQuery(input[1:])
		if err != nil {
			return "", fmt.Errorf("invalid authorization response: %w", err)
		}
		query = q
	} else {
		u, err := url.Parse(input)
		if err != nil {
			return "", fmt.Errorf("invalid redirect URL: %w", err)
		}
		query = u.Query()
	}

	if e := query.Get("error"); e != "" {
		if desc := query.Get("error_description"); desc != "" {
			return "", fmt.Errorf("authorization denied: %s: %s", e, desc)
		}
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	if got := query.Get("state"); got != "" && got != state {
		return "", errors.New("authorization response state mismatch")
	}

	code := query.Get("code")
	if code == "" {
		return "", errors.New("redirect URL carries no authorization code")
	}
	return code, nil
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
