package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/mail"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultPath is the dotenv file read when no path is given.
	DefaultPath = ".env"

	// DefaultTenantID lets any work, school or personal Microsoft account sign in.
	DefaultTenantID = "common"

	// DefaultRedirectURL is the native-client redirect registered for console consent.
	DefaultRedirectURL = "https://login.microsoftonline.com/common/oauth2/nativeclient"

	// DefaultGraphBaseURL is the Microsoft Graph v1.0 service root.
	DefaultGraphBaseURL = "https://graph.microsoft.com/v1.0"

	// DefaultTokenDir is where token files are written.
	DefaultTokenDir = "."
)

// Supported authentication flows.
const (
	AuthFlowAuthorization = "authorization"
	AuthFlowCredentials   = "credentials"
)

// Supported token storage backends.
const (
	TokenBackendFile    = "file"
	TokenBackendKeyring = "keyring"
)

// Config holds the settings needed to reach the shared mailbox.
type Config struct {
	// ClientID is the Azure AD application (client) ID.
	ClientID string `mapstructure:"client_id"`

	// ClientSecret is the application's client secret.
	ClientSecret string `mapstructure:"client_secret"`

	// ProgramEmail is the shared mailbox that receives the workforce reports.
	ProgramEmail string `mapstructure:"program_email"`

	// TenantID selects the Azure AD tenant (default: common).
	TenantID string `mapstructure:"tenant_id"`

	// AuthFlow is "authorization" (user consent) or "credentials" (application permissions).
	AuthFlow string `mapstructure:"auth_flow"`

	// RedirectURL is the redirect URI registered for the authorization flow.
	RedirectURL string `mapstructure:"redirect_url"`

	// TokenDir is the directory holding token files (file backend) or the keyring file fallback.
	TokenDir string `mapstructure:"token_dir"`

	// TokenBackend is "file" or "keyring".
	TokenBackend string `mapstructure:"token_backend"`

	// GraphBaseURL is the Graph service root, overridable for national clouds.
	GraphBaseURL string `mapstructure:"graph_base_url"`
}

// keys lists every accepted configuration key. Each may also be set through
// the upper-cased environment variable of the same name.
var keys = []string{
	"client_id",
	"client_secret",
	"program_email",
	"tenant_id",
	"auth_flow",
	"redirect_url",
	"token_dir",
	"token_backend",
	"graph_base_url",
}

// Load reads the dotenv file at path, applies environment overrides and
// validates the result. A missing file is not an error; the environment
// alone may carry the settings. Keys the schema does not know are rejected.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	setDefaults(v)

	for _, key := range keys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("binding environment for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.UnmarshalExact(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tenant_id", DefaultTenantID)
	v.SetDefault("auth_flow", AuthFlowAuthorization)
	v.SetDefault("redirect_url", DefaultRedirectURL)
	v.SetDefault("token_dir", DefaultTokenDir)
	v.SetDefault("token_backend", TokenBackendFile)
	v.SetDefault("graph_base_url", DefaultGraphBaseURL)
}

// Validate checks required keys and enumerated values.
func (c *Config) Validate() error {
	var errs []error

	if c.ClientID == "" {
		errs = append(errs, errors.New("CLIENT_ID is required"))
	}
	if c.ClientSecret == "" {
		errs = append(errs, errors.New("CLIENT_SECRET is required"))
	}
	if c.ProgramEmail == "" {
		errs = append(errs, errors.New("PROGRAM_EMAIL is required"))
	} else if _, err := mail.ParseAddress(c.ProgramEmail); err != nil {
		errs = append(errs, fmt.Errorf("PROGRAM_EMAIL %q is not a valid address: %w", c.ProgramEmail, err))
	}

	switch c.AuthFlow {
	case "", AuthFlowAuthorization, AuthFlowCredentials:
	default:
		errs = append(errs, fmt.Errorf("AUTH_FLOW %q must be one of: %s, %s", c.AuthFlow, AuthFlowAuthorization, AuthFlowCredentials))
	}

	switch c.TokenBackend {
	case "", TokenBackendFile, TokenBackendKeyring:
	default:
		errs = append(errs, fmt.Errorf("TOKEN_BACKEND %q must be one of: %s, %s", c.TokenBackend, TokenBackendFile, TokenBackendKeyring))
	}

	if c.GraphBaseURL != "" {
		u, err := url.Parse(c.GraphBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("GRAPH_BASE_URL %q must be an absolute URL", c.GraphBaseURL))
		}
	}

	return errors.Join(errs...)
}

// Tenant returns the configured tenant or the default.
func (c *Config) Tenant() string {
	if c.TenantID == "" {
		return DefaultTenantID
	}
	return c.TenantID
}

// Flow returns the configured authentication flow or the default.
func (c *Config) Flow() string {
	if c.AuthFlow == "" {
		return AuthFlowAuthorization
	}
	return c.AuthFlow
}

// BaseURL returns the Graph service root without a trailing slash.
func (c *Config) BaseURL() string {
	if c.GraphBaseURL == "" {
		return DefaultGraphBaseURL
	}
	return strings.TrimRight(c.GraphBaseURL, "/")
}
