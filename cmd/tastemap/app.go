package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/ewilliams-labs/tastemap/internal/adapters/snapshot"
	"github.com/ewilliams-labs/tastemap/internal/adapters/spotify"
	"github.com/ewilliams-labs/tastemap/internal/adapters/sqlite"
	"github.com/ewilliams-labs/tastemap/internal/config"
	"github.com/ewilliams-labs/tastemap/internal/core/ports"
	"github.com/ewilliams-labs/tastemap/internal/core/services"
	"github.com/ewilliams-labs/tastemap/internal/logging"
	"github.com/ewilliams-labs/tastemap/internal/worker"
)

// AccessTokenEnvVar bypasses the stored OAuth token with a fixed bearer token.
const AccessTokenEnvVar = "SPOTIFY_ACCESS_TOKEN"

// app is the wired analyzer plus the resources to release afterwards.
type app struct {
	cfg      *config.Config
	analyzer *services.Analyzer
	closers  []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			logging.Warn().Err(err).Msg("close failed")
		}
	}
}

// newApp wires the collaborators the configuration selects. Without Spotify
// credentials the file and sqlite sources still work, but unresolved tracks
// stay unresolved and search-based commands are unavailable.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	client, err := newSpotifyClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var deps services.Deps
	if client != nil {
		deps.Playlists = client
		deps.Searcher = client
		deps.Enricher = worker.NewPool(client, cfg.Spotify.Workers, cfg.Spotify.FeatureBatchSize)
	}

	var cache *sqlite.Adapter
	if cfg.Source.Kind == config.SourceSQLite || cfg.Cache.WriteThrough {
		cache, err = sqlite.NewAdapter(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, cache.Close)
	}

	switch cfg.Source.Kind {
	case config.SourceRemote:
		deps.Source = client
	case config.SourceFile:
		deps.Source = snapshot.New(cfg.Source.LocalFile)
	case config.SourceSQLite:
		deps.Source = cache
		if client == nil {
			deps.Playlists = cache
		}
	default:
		a.Close()
		return nil, fmt.Errorf("unknown source %q", cfg.Source.Kind)
	}

	if cfg.Source.SavePath != "" {
		deps.LibrarySinks = append(deps.LibrarySinks, snapshot.New(cfg.Source.SavePath))
	}
	if cfg.Cache.WriteThrough {
		if cfg.Source.Kind != config.SourceSQLite {
			deps.LibrarySinks = append(deps.LibrarySinks, cache)
		}
		deps.PlaylistSinks = append(deps.PlaylistSinks, cache)
	}

	logging.Debug().
		Str("source", cfg.Source.Kind).
		Bool("spotify", client != nil).
		Int("library_sinks", len(deps.LibrarySinks)).
		Msg("analyzer wired")

	a.analyzer = services.NewAnalyzer(deps, cfg.Catalog())
	return a, nil
}

// newSpotifyClient returns nil when no credentials are available and the
// source does not need them.
func newSpotifyClient(ctx context.Context, cfg *config.Config) (*spotify.Client, error) {
	remote := cfg.Source.Kind == config.SourceRemote

	httpClient, err := spotifyHTTPClient(ctx, cfg)
	if err != nil {
		if remote {
			return nil, err
		}
		logging.Debug().Err(err).Msg("spotify unavailable, working offline")
		return nil, nil
	}

	return spotify.NewClient(httpClient, spotify.Options{
		BaseURL:           cfg.Spotify.BaseURL,
		Market:            cfg.Spotify.Market,
		LibraryPageSize:   cfg.Spotify.TrackBatchSize,
		PlaylistPageSize:  cfg.Spotify.PlaylistBatchSize,
		MaxRetries:        cfg.Spotify.MaxRetries,
		RetryBackoff:      cfg.Spotify.RetryBackoff(),
		RequestsPerSecond: cfg.Spotify.RequestsPerSecond,
		Burst:             cfg.Spotify.Burst,
		BreakerFailures:   cfg.Spotify.BreakerFailures,
		BreakerTimeout:    cfg.Spotify.BreakerTimeout,
	}), nil
}

var errNoUsername = errors.New("a Spotify username is required (--spotify-username or SPOTIFY_USERNAME)")

func spotifyHTTPClient(ctx context.Context, cfg *config.Config) (*http.Client, error) {
	if tok := os.Getenv(AccessTokenEnvVar); tok != "" {
		return withTimeout(spotify.StaticHTTPClient(ctx, tok), cfg), nil
	}

	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	if cfg.Spotify.Username == "" {
		return nil, errNoUsername
	}

	auth, err := newAuthenticator(cfg)
	if err != nil {
		return nil, err
	}
	client, err := auth.HTTPClient(ctx, cfg.Spotify.Username)
	if errors.Is(err, spotify.ErrNotLoggedIn) {
		return nil, fmt.Errorf("%w: run 'tastemap auth login --spotify-username %s' first", err, cfg.Spotify.Username)
	}
	if err != nil {
		return nil, err
	}
	return withTimeout(client, cfg), nil
}

func withTimeout(c *http.Client, cfg *config.Config) *http.Client {
	c.Timeout = cfg.Spotify.Timeout
	return c
}

func newAuthenticator(cfg *config.Config) (*spotify.Authenticator, error) {
	store, err := spotify.NewTokenStore(cfg.Spotify.TokenFile)
	if err != nil {
		return nil, err
	}
	return spotify.NewAuthenticator(spotify.AuthConfig{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURL:  cfg.Spotify.RedirectURL,
		AuthURL:      cfg.Spotify.AuthURL,
		TokenURL:     cfg.Spotify.TokenURL,
	}, store), nil
}

// ports the CLI relies on the adapters providing.
var (
	_ ports.LibraryRepository = (*sqlite.Adapter)(nil)
	_ ports.LibrarySource     = (*snapshot.Store)(nil)
)
