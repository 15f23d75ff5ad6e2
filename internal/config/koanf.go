package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the environment variable holding the config file path.
const ConfigPathEnvVar = "TASTEMAP_CONFIG"

// DefaultConfigPaths are searched when no path is given.
var DefaultConfigPaths = []string{
	"tastemap.yaml",
	"tastemap.yml",
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment. An explicit path must exist; the default paths are optional.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	configPath, err := resolveConfigFile(path)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveConfigFile(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config: %w", err)
		}
		return path, nil
	}

	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("config: %s: %w", ConfigPathEnvVar, err)
		}
		return envPath, nil
	}

	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// sliceConfigPaths arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{
	"features.catalog",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("config: set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to config paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	// Legacy SPOTIPY_* names.
	"spotipy_client_id":     "spotify.client_id",
	"spotipy_client_secret": "spotify.client_secret",
	"spotipy_redirect_uri":  "spotify.redirect_url",
	"spotify_username":      "spotify.username",

	"spotify_client_id":          "spotify.client_id",
	"spotify_client_secret":      "spotify.client_secret",
	"spotify_base_url":           "spotify.base_url",
	"spotify_market":             "spotify.market",
	"spotify_token_file":         "spotify.token_file",
	"spotify_max_retries":        "spotify.max_retries",
	"spotify_retry_backoff_ms":   "spotify.retry_backoff_ms",
	"spotify_requests_per_sec":   "spotify.requests_per_second",
	"spotify_workers":            "spotify.workers",
	"spotify_feature_batch_size": "spotify.feature_batch_size",

	"tastemap_catalog":    "features.catalog",
	"tastemap_source":     "source.kind",
	"tastemap_local_file": "source.local_file",
	"tastemap_save_path":  "source.save_path",
	"tastemap_cache_path": "cache.path",
	"tastemap_addr":       "server.addr",

	"log_level":  "logging.level",
	"log_format": "logging.format",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
