package spotify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

// ErrNotLoggedIn is returned when no token is stored for a username.
var ErrNotLoggedIn = errors.New("spotify adapter: not logged in")

// TokenStore keeps OAuth tokens per Spotify username in a single JSON file.
type TokenStore struct {
	path string
	mu   sync.Mutex
}

type storedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
	ObtainedAt   time.Time `json:"obtained_at"`
}

type tokenFile struct {
	Version int                     `json:"version"`
	Users   map[string]*storedToken `json:"users"`
}

// NewTokenStore returns a store backed by path. An empty path uses
// DefaultTokenPath.
func NewTokenStore(path string) (*TokenStore, error) {
	if path == "" {
		p, err := DefaultTokenPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &TokenStore{path: path}, nil
}

// DefaultTokenPath is tokens.json under the user's config directory.
func DefaultTokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("spotify adapter: locate config dir: %w", err)
	}
	return filepath.Join(dir, "tastemap", "tokens.json"), nil
}

// Path returns the backing file.
func (s *TokenStore) Path() string {
	return s.path
}

// Load returns the stored token for username, or ErrNotLoggedIn.
func (s *TokenStore) Load(username string) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return nil, err
	}
	st, ok := f.Users[username]
	if !ok || st.AccessToken == "" {
		return nil, fmt.Errorf("%w as %q", ErrNotLoggedIn, username)
	}
	return &oauth2.Token{
		AccessToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
		TokenType:    st.TokenType,
		Expiry:       st.Expiry,
	}, nil
}

// Save stores tok for username, keeping other users' tokens.
func (s *TokenStore) Save(username string, tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	f.Users[username] = &storedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		ObtainedAt:   time.Now().UTC(),
	}
	return s.write(f)
}

// Delete forgets username's token.
func (s *TokenStore) Delete(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	delete(f.Users, username)
	return s.write(f)
}

func (s *TokenStore) read() (*tokenFile, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &tokenFile{Version: 1, Users: make(map[string]*storedToken)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: read %s: %w", s.path, err)
	}

	var f tokenFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("spotify adapter: parse %s: %w", s.path, err)
	}
	if f.Users == nil {
		f.Users = make(map[string]*storedToken)
	}
	return &f, nil
}

// write replaces the file atomically (temp file + rename), mode 0600.
func (s *TokenStore) write(f *tokenFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("spotify adapter: create token dir: %w", err)
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("spotify adapter: encode tokens: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("spotify adapter: write tokens: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("spotify adapter: replace tokens: %w", err)
	}
	return nil
}
