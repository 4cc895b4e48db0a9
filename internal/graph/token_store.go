package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"

	"github.com/teemow/graphreports/internal/config"
)

// DefaultTokenFilename is the token file used when none is given.
const DefaultTokenFilename = "o365_token.txt"

const keyringServiceName = "graphreports"

// ErrNoToken is returned by a TokenStore that holds no token yet.
var ErrNoToken = errors.New("no stored token")

// TokenStore persists the OAuth token between runs.
type TokenStore interface {
	// Load returns the stored token, or ErrNoToken.
	Load(ctx context.Context) (*oauth2.Token, error)

	// Save replaces the stored token.
	Save(ctx context.Context, token *oauth2.Token) error
}

// NewTokenStore returns the store selected by cfg.TokenBackend. filename
// names the token file, or the keyring item for the keyring backend.
func NewTokenStore(cfg config.Config, filename string) (TokenStore, error) {
	if filename == "" {
		filename = DefaultTokenFilename
	}

	dir := cfg.TokenDir
	if dir == "" {
		dir = config.DefaultTokenDir
	}

	switch cfg.TokenBackend {
	case "", config.TokenBackendFile:
		return NewFileTokenStore(filepath.Join(dir, filename)), nil
	case config.TokenBackendKeyring:
		ring, err := OpenKeyring(dir)
		if err != nil {
			return nil, err
		}
		return NewKeyringTokenStore(ring, filename), nil
	default:
		return nil, fmt.Errorf("unsupported token backend %q", cfg.TokenBackend)
	}
}

// FileTokenStore keeps the token as JSON in a single file readable only by
// the owner.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates a store backed by the file at path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Path returns the token file location.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Load reads the token file.
func (s *FileTokenStore) Load(_ context.Context) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	return decodeToken(data)
}

// Save writes the token file with mode 0600, creating its directory if needed.
func (s *FileTokenStore) Save(_ context.Context, token *oauth2.Token) error {
	data, err := encodeToken(token)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(s.path, 0600); err != nil {
		return fmt.Errorf("failed to restrict token file permissions: %w", err)
	}
	return nil
}

// KeyringTokenStore keeps the token as a single item in the OS keyring.
type KeyringTokenStore struct {
	ring keyring.Keyring
	key  string
}

// NewKeyringTokenStore creates a store for the item key in ring.
func NewKeyringTokenStore(ring keyring.Keyring, key string) *KeyringTokenStore {
	return &KeyringTokenStore{ring: ring, key: key}
}

// OpenKeyring opens the platform keyring. fileDir is used by the encrypted
// file backend on systems without a native keyring.
func OpenKeyring(fileDir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(fileDir, ".graphreports-keyring"),
		FilePasswordFunc:         keyring.FixedStringPrompt(keyringServiceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Load reads the token item.
func (s *KeyringTokenStore) Load(_ context.Context) (*oauth2.Token, error) {
	item, err := s.ring.Get(s.key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("getting token %q from keyring: %w", s.key, err)
	}
	return decodeToken(item.Data)
}

// Save stores the token item.
func (s *KeyringTokenStore) Save(_ context.Context, token *oauth2.Token) error {
	data, err := encodeToken(token)
	if err != nil {
		return err
	}

	err = s.ring.Set(keyring.Item{
		Key:         s.key,
		Data:        data,
		Label:       keyringServiceName + " token",
		Description: "Microsoft Graph OAuth token",
	})
	if err != nil {
		return fmt.Errorf("setting token %q in keyring: %w", s.key, err)
	}
	return nil
}

func encodeToken(token *oauth2.Token) ([]byte, error) {
	if token == nil {
		return nil, errors.New("refusing to store a nil token")
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode token: %w", err)
	}
	return data, nil
}

func decodeToken(data []byte) (*oauth2.Token, error) {
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token format: %w", err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, errors.New("invalid token format: no access or refresh token")
	}
	return &token, nil
}
