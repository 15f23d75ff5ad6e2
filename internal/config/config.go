// Package config loads tastemap settings.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults
//  2. a YAML file (--config, TASTEMAP_CONFIG, or ./tastemap.yaml)
//  3. environment variables, including the legacy SPOTIPY_* names
//
// Command-line flags are applied on top by the caller, which then calls
// Validate again.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

// Source kinds.
const (
	SourceRemote = "remote"
	SourceFile   = "file"
	SourceSQLite = "sqlite"
)

// Config is the full application configuration.
type Config struct {
	Spotify  SpotifyConfig  `koanf:"spotify"`
	Features FeaturesConfig `koanf:"features"`
	Source   SourceConfig   `koanf:"source"`
	Cache    CacheConfig    `koanf:"cache"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// SpotifyConfig configures the Web API client and its OAuth flow.
type SpotifyConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	Username     string `koanf:"username"`
	RedirectURL  string `koanf:"redirect_url" validate:"required,url"`
	TokenFile    string `koanf:"token_file"`
	BaseURL      string `koanf:"base_url" validate:"required,url"`
	AuthURL      string `koanf:"auth_url" validate:"required,url"`
	TokenURL     string `koanf:"token_url" validate:"required,url"`
	Market       string `koanf:"market" validate:"omitempty,len=2"`

	TrackBatchSize    int `koanf:"track_batch_size" validate:"min=1,max=50"`
	PlaylistBatchSize int `koanf:"playlist_batch_size" validate:"min=1,max=100"`
	FeatureBatchSize  int `koanf:"feature_batch_size" validate:"min=1,max=100"`
	Workers           int `koanf:"workers" validate:"min=1,max=16"`

	Timeout           time.Duration `koanf:"timeout"`
	MaxRetries        int           `koanf:"max_retries" validate:"min=0,max=10"`
	RetryBackoffMs    int           `koanf:"retry_backoff_ms" validate:"min=1"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int           `koanf:"burst" validate:"min=1"`
	BreakerFailures   uint32        `koanf:"breaker_failures" validate:"min=1"`
	BreakerTimeout    time.Duration `koanf:"breaker_timeout"`
}

// FeaturesConfig names the attributes used for ranking and plotting.
type FeaturesConfig struct {
	Catalog []string `koanf:"catalog" validate:"required,min=1,dive,required"`
}

// SourceConfig chooses where the library comes from and where it is saved.
type SourceConfig struct {
	Kind      string `koanf:"kind" validate:"oneof=remote file sqlite"`
	LocalFile string `koanf:"local_file"`
	SavePath  string `koanf:"save_path"`
}

// CacheConfig configures the SQLite cache.
type CacheConfig struct {
	Path         string `koanf:"path" validate:"required"`
	WriteThrough bool   `koanf:"write_through"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=console json"`
}

func defaultConfig() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURL:       "http://127.0.0.1:8888/callback",
			BaseURL:           "https://api.spotify.com/v1",
			AuthURL:           "https://accounts.spotify.com/authorize",
			TokenURL:          "https://accounts.spotify.com/api/token",
			Market:            "US",
			TrackBatchSize:    50,
			PlaylistBatchSize: 100,
			FeatureBatchSize:  100,
			Workers:           4,
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			RetryBackoffMs:    500,
			RequestsPerSecond: 10,
			Burst:             5,
			BreakerFailures:   5,
			BreakerTimeout:    30 * time.Second,
		},
		Features: FeaturesConfig{
			Catalog: []string(domain.DefaultCatalog()),
		},
		Source: SourceConfig{
			Kind: SourceRemote,
		},
		Cache: CacheConfig{
			Path: "tastemap.db",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// Catalog returns the configured attribute catalog. Call after Validate.
func (c *Config) Catalog() domain.Catalog {
	cat, err := domain.ParseCatalog(c.Features.Catalog)
	if err != nil {
		return domain.DefaultCatalog()
	}
	return cat
}

// RetryBackoff returns the base retry backoff as a duration.
func (c SpotifyConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

// ErrMissingCredentials is returned when remote access lacks client credentials.
var ErrMissingCredentials = errors.New("config: spotify client id and secret are required")

// RequireCredentials checks the settings the remote source needs.
func (c *Config) RequireCredentials() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w (set SPOTIPY_CLIENT_ID and SPOTIPY_CLIENT_SECRET)", ErrMissingCredentials)
	}
	return nil
}
