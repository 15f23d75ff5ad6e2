package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func newTokenServer(t *testing.T, accessToken string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":%q,"token_type":"Bearer","refresh_token":"refresh-%s","expires_in":3600}`, accessToken, r.Form.Get("grant_type"))
	}))
}

func TestTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	store, err := NewTokenStore(path)
	if err != nil {
		t.Fatalf("NewTokenStore: %v", err)
	}

	if _, err := store.Load("alice"); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := store.Save("alice", &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: expiry}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save("bob", &oauth2.Token{AccessToken: "b"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load("alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AccessToken != "a" || got.RefreshToken != "r" || !got.Expiry.Equal(expiry) {
		t.Fatalf("unexpected token: %+v", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("token file mode: got %o, want 600", perm)
	}

	if err := store.Delete("alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load("alice"); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("alice should be gone, got %v", err)
	}
	if _, err := store.Load("bob"); err != nil {
		t.Fatalf("bob should remain: %v", err)
	}
}

func TestLogin(t *testing.T) {
	var hits atomic.Int32
	tokens := newTokenServer(t, "fresh-token", &hits)
	defer tokens.Close()

	store, _ := NewTokenStore(filepath.Join(t.TempDir(), "tokens.json"))
	auth := NewAuthenticator(AuthConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://127.0.0.1:0/callback",
		AuthURL:      "https://accounts.example/authorize",
		TokenURL:     tokens.URL,
	}, store)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := auth.Login(ctx, "alice", func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		if q.Get("scope") == "" {
			t.Errorf("consent url should carry scopes: %s", authURL)
		}
		callback := q.Get("redirect_uri") + "?code=the-code&state=" + url.QueryEscape(q.Get("state"))
		resp, err := http.Get(callback)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("token endpoint hits: got %d, want 1", hits.Load())
	}

	tok, err := auth.Token("alice")
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "fresh-token" || tok.RefreshToken != "refresh-authorization_code" {
		t.Fatalf("unexpected stored token: %+v", tok)
	}
}

func TestLoginStateMismatch(t *testing.T) {
	store, _ := NewTokenStore(filepath.Join(t.TempDir(), "tokens.json"))
	auth := NewAuthenticator(AuthConfig{
		RedirectURL: "http://127.0.0.1:0/callback",
		AuthURL:     "https://accounts.example/authorize",
		TokenURL:    "https://accounts.example/token",
	}, store)

	err := auth.Login(context.Background(), "alice", func(authURL string) error {
		u, _ := url.Parse(authURL)
		resp, err := http.Get(u.Query().Get("redirect_uri") + "?code=x&state=forged")
		if err != nil {
			return err
		}
		return resp.Body.Close()
	})
	if !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch, got %v", err)
	}
}

func TestHTTPClientPersistsRefreshedToken(t *testing.T) {
	var hits atomic.Int32
	tokens := newTokenServer(t, "refreshed", &hits)
	defer tokens.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer refreshed" {
			t.Errorf("authorization: got %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	store, _ := NewTokenStore(filepath.Join(t.TempDir(), "tokens.json"))
	expired := &oauth2.Token{AccessToken: "stale", RefreshToken: "r1", TokenType: "Bearer", Expiry: time.Now().Add(-time.Hour)}
	if err := store.Save("alice", expired); err != nil {
		t.Fatalf("Save: %v", err)
	}

	auth := NewAuthenticator(AuthConfig{ClientID: "id", ClientSecret: "secret", TokenURL: tokens.URL}, store)
	client, err := auth.HTTPClient(context.Background(), "alice")
	if err != nil {
		t.Fatalf("HTTPClient: %v", err)
	}

	resp, err := client.Get(api.URL)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()

	got, err := store.Load("alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AccessToken != "refreshed" {
		t.Fatalf("refreshed token not persisted: %+v", got)
	}
}

func TestHTTPClientNotLoggedIn(t *testing.T) {
	store, _ := NewTokenStore(filepath.Join(t.TempDir(), "tokens.json"))
	auth := NewAuthenticator(AuthConfig{}, store)
	if _, err := auth.HTTPClient(context.Background(), "nobody"); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestStaticHTTPClient(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer env-token" {
			t.Errorf("authorization: got %q", got)
		}
	}))
	defer api.Close()

	resp, err := StaticHTTPClient(context.Background(), "env-token").Get(api.URL)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
}
