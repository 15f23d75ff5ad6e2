package spotify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/ewilliams-labs/tastemap/internal/logging"
)

// DefaultScopes cover reading the saved-tracks library and playlists.
var DefaultScopes = []string{
	"user-library-read",
	"playlist-read-private",
	"playlist-read-collaborative",
}

// ErrStateMismatch is returned when the callback state does not match the request.
var ErrStateMismatch = errors.New("spotify adapter: oauth state mismatch")

// AuthConfig configures the authorization-code flow.
type AuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	Scopes       []string
}

// Authenticator runs the OAuth login and hands out authorized HTTP clients.
type Authenticator struct {
	oauth *oauth2.Config
	store *TokenStore
	log   zerolog.Logger
}

// NewAuthenticator builds an Authenticator persisting tokens in store.
func NewAuthenticator(cfg AuthConfig, store *TokenStore) *Authenticator {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	return &Authenticator{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		store: store,
		log:   logging.Component("spotify"),
	}
}

type callbackResult struct {
	code  string
	state string
	err   error
}

// Login runs the authorization-code flow: it listens on the redirect URL's
// loopback address, passes the consent URL to open, waits for the callback,
// exchanges the code and stores the token for username.
func (a *Authenticator) Login(ctx context.Context, username string, open func(authURL string) error) error {
	redirect, err := url.Parse(a.oauth.RedirectURL)
	if err != nil {
		return fmt.Errorf("spotify adapter: invalid redirect url: %w", err)
	}
	callbackPath := redirect.Path
	if callbackPath == "" {
		callbackPath = "/callback"
	}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("spotify adapter: listen for oauth callback: %w", err)
	}

	// A ":0" redirect port is resolved to the port actually bound.
	cfg := *a.oauth
	redirect.Host = listener.Addr().String()
	cfg.RedirectURL = redirect.String()

	results := make(chan callbackResult, 1)
	var once sync.Once
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res := callbackResult{code: q.Get("code"), state: q.Get("state")}
		if e := q.Get("error"); e != "" {
			res.err = fmt.Errorf("spotify adapter: authorization denied: %s", e)
		} else if res.code == "" {
			res.err = errors.New("spotify adapter: no authorization code in callback")
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if res.err != nil {
			fmt.Fprintf(w, "<html><body><h2>Authentication failed</h2><p>%s</p></body></html>", html.EscapeString(res.err.Error()))
		} else {
			fmt.Fprint(w, "<html><body><h2>Authenticated</h2><p>You can close this tab.</p></body></html>")
		}
		once.Do(func() { results <- res })
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Msg("oauth callback server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	state := uuid.NewString()
	if err := open(cfg.AuthCodeURL(state)); err != nil {
		return fmt.Errorf("spotify adapter: open consent page: %w", err)
	}

	var res callbackResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return fmt.Errorf("spotify adapter: waiting for oauth callback: %w", ctx.Err())
	}
	if res.err != nil {
		return res.err
	}
	if res.state != state {
		return ErrStateMismatch
	}

	tok, err := cfg.Exchange(ctx, res.code)
	if err != nil {
		return fmt.Errorf("spotify adapter: token exchange failed: %w", err)
	}
	if err := a.store.Save(username, tok); err != nil {
		return err
	}

	a.log.Info().Str("user", username).Str("token_file", a.store.Path()).Msg("logged in")
	return nil
}

// Token returns the stored token for username without refreshing it.
func (a *Authenticator) Token(username string) (*oauth2.Token, error) {
	return a.store.Load(username)
}

// HTTPClient returns a client that authorizes requests as username, refreshing
// the access token when it expires and writing refreshed tokens back.
func (a *Authenticator) HTTPClient(ctx context.Context, username string) (*http.Client, error) {
	tok, err := a.store.Load(username)
	if err != nil {
		return nil, err
	}

	src := &persistingSource{
		base:     a.oauth.TokenSource(ctx, tok),
		store:    a.store,
		username: username,
		last:     tok.AccessToken,
		log:      a.log,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// StaticHTTPClient authorizes every request with a fixed access token.
func StaticHTTPClient(ctx context.Context, accessToken string) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
}

// persistingSource saves each newly issued token.
type persistingSource struct {
	base     oauth2.TokenSource
	store    *TokenStore
	username string
	log      zerolog.Logger

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := s.store.Save(s.username, tok); err != nil {
			s.log.Warn().Err(err).Msg("failed to persist refreshed token")
		} else {
			s.last = tok.AccessToken
		}
	}
	return tok, nil
}
