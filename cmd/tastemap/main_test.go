package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/tastemap/internal/adapters/snapshot"
	"github.com/ewilliams-labs/tastemap/internal/config"
)

const librarySnapshot = `{
  "a": {"id": "a", "name": "Song a", "artists": [{"name": "Artist a"}], "album": {"name": "A"}, "duration_ms": 1, "features": {"tempo": 100}},
  "b": {"id": "b", "name": "Song b", "artists": [{"name": "Artist b"}], "album": {"name": "B"}, "duration_ms": 1, "features": {"tempo": 140}},
  "c": {"id": "c", "name": "Song c", "artists": [{"name": "Artist c"}], "album": {"name": "C"}, "duration_ms": 1, "features": {"tempo": 120}},
  "d": {"id": "d", "name": "Song d", "artists": [{"name": "Artist d"}], "album": {"name": "D"}, "duration_ms": 1, "features": null}
}`

var configEnv = []string{
	"SPOTIPY_CLIENT_ID", "SPOTIPY_CLIENT_SECRET", "SPOTIPY_REDIRECT_URI", "SPOTIFY_USERNAME",
	"SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET", "SPOTIFY_BASE_URL", "SPOTIFY_MARKET",
	"SPOTIFY_TOKEN_FILE", "SPOTIFY_MAX_RETRIES", "SPOTIFY_RETRY_BACKOFF_MS", "SPOTIFY_REQUESTS_PER_SEC",
	"SPOTIFY_WORKERS", "SPOTIFY_FEATURE_BATCH_SIZE",
	"TASTEMAP_CATALOG", "TASTEMAP_SOURCE", "TASTEMAP_LOCAL_FILE", "TASTEMAP_SAVE_PATH",
	"TASTEMAP_CACHE_PATH", "TASTEMAP_ADDR", "LOG_LEVEL", "LOG_FORMAT",
	AccessTokenEnvVar, config.ConfigPathEnvVar,
}

// setup isolates the test from the host environment, ranks on tempo only and
// returns the path of a library snapshot.
func setup(t *testing.T) string {
	t.Helper()
	for _, name := range configEnv {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	t.Setenv("TASTEMAP_CATALOG", "tempo")
	t.Setenv("LOG_LEVEL", "error")

	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "library.json")
	require.NoError(t, os.WriteFile(path, []byte(librarySnapshot), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestGetFavorites(t *testing.T) {
	lib := setup(t)

	out, errOut, err := run(t, "get-favorites", "--local-file", lib, "--limit", "2")
	require.NoError(t, err)
	assert.Empty(t, errOut)

	c := strings.Index(out, "Song c")
	a := strings.Index(out, "Song a")
	require.True(t, c >= 0 && a >= 0, out)
	assert.Less(t, c, a, "closest track first")
	assert.NotContains(t, out, "Song b")
}

func TestGetFavorites_ShortfallWarns(t *testing.T) {
	lib := setup(t)

	out, errOut, err := run(t, "get-favorites", "--local-file", lib, "--limit", "10")
	require.NoError(t, err)
	assert.Contains(t, errOut, "only 4 of 10")
	assert.Contains(t, out, "Song d")
	assert.Contains(t, out, "∞")
}

func TestGetFavorites_InvalidLimit(t *testing.T) {
	lib := setup(t)

	_, _, err := run(t, "get-favorites", "--local-file", lib, "--limit", "0")
	assert.Error(t, err)
}

func TestPlaylistOwnerRequiresID(t *testing.T) {
	lib := setup(t)

	for _, name := range []string{"get-favorites", "profile"} {
		t.Run(name, func(t *testing.T) {
			_, _, err := run(t, name, "--local-file", lib, "--playlist-owner", "alice")
			assert.ErrorContains(t, err, "playlist-owner requires playlist-id")
		})
	}
}

func TestUsernameAndLocalFileAreExclusive(t *testing.T) {
	lib := setup(t)

	_, _, err := run(t, "get-favorites", "--local-file", lib, "--spotify-username", "someone")
	assert.Error(t, err)
}

func TestRemoteSourceNeedsCredentials(t *testing.T) {
	setup(t)

	_, _, err := run(t, "get-favorites", "--source", "remote")
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
}

func TestProfile(t *testing.T) {
	lib := setup(t)

	out, _, err := run(t, "profile", "--local-file", lib)
	require.NoError(t, err)
	assert.Contains(t, out, "tempo")
	assert.Contains(t, out, "3/4")
	assert.Contains(t, out, "120.0000")
}

func TestScoreNeedsSpotify(t *testing.T) {
	lib := setup(t)

	_, _, err := run(t, "score", "--local-file", lib, "--title", "x", "--artist", "y")
	assert.Error(t, err)
}

func TestFetch_SaveAndCacheRoundTrip(t *testing.T) {
	lib := setup(t)
	saved := filepath.Join(t.TempDir(), "saved.json")

	out, _, err := run(t, "fetch", "--local-file", lib, "--save-path", saved, "--cache")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved 4 tracks (1 without audio features)")

	got, err := snapshot.New(saved).Library(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, got.IDs())

	out, _, err = run(t, "get-favorites", "--source", "sqlite", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Song c")
}

func TestFetch_NeedsDestination(t *testing.T) {
	lib := setup(t)

	_, _, err := run(t, "fetch", "--local-file", lib)
	assert.Error(t, err)
}

func TestGraphInterests(t *testing.T) {
	lib := setup(t)
	outDir := t.TempDir()

	_, _, err := run(t, "graph-interests", "--local-file", lib, "--out-dir", outDir)
	require.NoError(t, err)

	for _, name := range []string{histogramFile, scatterplotFile} {
		info, err := os.Stat(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size())
	}
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tastemap dev")
}
