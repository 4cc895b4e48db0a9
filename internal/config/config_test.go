package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env_test")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeEnvFile(t, `CLIENT_ID=client-123
CLIENT_SECRET=secret-456
PROGRAM_EMAIL=reports@example.org
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "client-123", cfg.ClientID)
	assert.Equal(t, "secret-456", cfg.ClientSecret)
	assert.Equal(t, "reports@example.org", cfg.ProgramEmail)
	assert.Equal(t, DefaultTenantID, cfg.TenantID)
	assert.Equal(t, AuthFlowAuthorization, cfg.AuthFlow)
	assert.Equal(t, DefaultRedirectURL, cfg.RedirectURL)
	assert.Equal(t, DefaultTokenDir, cfg.TokenDir)
	assert.Equal(t, TokenBackendFile, cfg.TokenBackend)
	assert.Equal(t, DefaultGraphBaseURL, cfg.GraphBaseURL)
}

func TestLoad_OptionalKeys(t *testing.T) {
	path := writeEnvFile(t, `CLIENT_ID=client-123
CLIENT_SECRET=secret-456
PROGRAM_EMAIL=reports@example.org
TENANT_ID=contoso.onmicrosoft.com
AUTH_FLOW=credentials
TOKEN_BACKEND=keyring
TOKEN_DIR=/var/lib/graphreports
GRAPH_BASE_URL=https://graph.microsoft.us/v1.0/
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "contoso.onmicrosoft.com", cfg.Tenant())
	assert.Equal(t, AuthFlowCredentials, cfg.Flow())
	assert.Equal(t, TokenBackendKeyring, cfg.TokenBackend)
	assert.Equal(t, "/var/lib/graphreports", cfg.TokenDir)
	assert.Equal(t, "https://graph.microsoft.us/v1.0", cfg.BaseURL())
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	path := writeEnvFile(t, `CLIENT_ID=client-123
CLIENT_SECRET=secret-456
PROGRAM_EMAIL=reports@example.org
`)
	t.Setenv("PROGRAM_EMAIL", "other@example.org")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "other@example.org", cfg.ProgramEmail)
}

func TestLoad_MissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("CLIENT_ID", "env-client")
	t.Setenv("CLIENT_SECRET", "env-secret")
	t.Setenv("PROGRAM_EMAIL", "env@example.org")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "env-client", cfg.ClientID)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing client id",
			content: "CLIENT_SECRET=s\nPROGRAM_EMAIL=reports@example.org\n",
			wantErr: "CLIENT_ID is required",
		},
		{
			name:    "missing secret",
			content: "CLIENT_ID=c\nPROGRAM_EMAIL=reports@example.org\n",
			wantErr: "CLIENT_SECRET is required",
		},
		{
			name:    "missing program email",
			content: "CLIENT_ID=c\nCLIENT_SECRET=s\n",
			wantErr: "PROGRAM_EMAIL is required",
		},
		{
			name:    "unknown key",
			content: "CLIENT_ID=c\nCLIENT_SECRET=s\nPROGRAM_EMAIL=reports@example.org\nPROGRAM_MAIL=typo@example.org\n",
			wantErr: "program_mail",
		},
		{
			name:    "invalid email",
			content: "CLIENT_ID=c\nCLIENT_SECRET=s\nPROGRAM_EMAIL=not-an-address\n",
			wantErr: "not a valid address",
		},
		{
			name:    "invalid auth flow",
			content: "CLIENT_ID=c\nCLIENT_SECRET=s\nPROGRAM_EMAIL=reports@example.org\nAUTH_FLOW=device\n",
			wantErr: "AUTH_FLOW",
		},
		{
			name:    "invalid token backend",
			content: "CLIENT_ID=c\nCLIENT_SECRET=s\nPROGRAM_EMAIL=reports@example.org\nTOKEN_BACKEND=redis\n",
			wantErr: "TOKEN_BACKEND",
		},
		{
			name:    "relative graph url",
			content: "CLIENT_ID=c\nCLIENT_SECRET=s\nPROGRAM_EMAIL=reports@example.org\nGRAPH_BASE_URL=graph/v1.0\n",
			wantErr: "GRAPH_BASE_URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeEnvFile(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, DefaultTenantID, cfg.Tenant())
	assert.Equal(t, AuthFlowAuthorization, cfg.Flow())
	assert.Equal(t, DefaultGraphBaseURL, cfg.BaseURL())
}
