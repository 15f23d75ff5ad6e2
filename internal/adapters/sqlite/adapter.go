// Package sqlite provides a SQLite-backed implementation of the repository port.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously
	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/ports"
	"github.com/ewilliams-labs/tastemap/internal/logging"
)

var _ ports.LibraryRepository = (*Adapter)(nil)

const librarySavedKey = "library_saved_at"

// Adapter implements the repository port for SQLite
type Adapter struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open db: %w", err)
	}
	// One connection: ":memory:" databases are per connection, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping db: %w", err)
	}

	adapter := &Adapter{db: db, log: logging.Component("sqlite")}
	if err := adapter.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migration failed: %w", err)
	}

	adapter.log.Debug().Str("path", storagePath).Msg("cache opened")
	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

// featureColumn prefixes attribute columns so duration_ms cannot clash with
// the track's own duration.
func featureColumn(attr string) string {
	return "feat_" + attr
}

var (
	trackColumns = func() string {
		cols := []string{"t.id", "t.title", "t.artists", "t.album", "t.duration_ms", "t.isrc", "t.has_features", "t.extra"}
		for _, attr := range domain.KnownAttributes {
			cols = append(cols, "t."+featureColumn(attr))
		}
		return strings.Join(cols, ", ")
	}()

	upsertTrack = func() string {
		cols := []string{"id", "title", "artists", "album", "duration_ms", "isrc", "has_features", "extra"}
		for _, attr := range domain.KnownAttributes {
			cols = append(cols, featureColumn(attr))
		}
		// A row without a vector keeps the one already stored.
		updates := make([]string, 0, len(cols)-1)
		for _, c := range cols[1:] {
			switch {
			case c == "has_features":
				updates = append(updates, "has_features=MAX(tracks.has_features, excluded.has_features)")
			case c == "extra" || strings.HasPrefix(c, "feat_"):
				updates = append(updates, fmt.Sprintf(
					"%[1]s=CASE WHEN excluded.has_features = 1 THEN excluded.%[1]s ELSE tracks.%[1]s END", c))
			default:
				updates = append(updates, c+"=excluded."+c)
			}
		}
		return fmt.Sprintf(
			"INSERT INTO tracks (%s, updated_at) VALUES (%s, CURRENT_TIMESTAMP)\nON CONFLICT(id) DO UPDATE SET %s, updated_at=CURRENT_TIMESTAMP",
			strings.Join(cols, ", "),
			strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
			strings.Join(updates, ", "),
		)
	}()
)

// trackArgs flattens a track into upsertTrack's placeholders.
func trackArgs(t domain.Track) ([]any, error) {
	artists, err := json.Marshal(t.Artists)
	if err != nil {
		return nil, fmt.Errorf("encode artists: %w", err)
	}

	var extra sql.NullString
	hasFeatures := 0
	if t.Features != nil {
		hasFeatures = 1
		if len(t.Features.Extra) > 0 {
			b, err := json.Marshal(t.Features.Extra)
			if err != nil {
				return nil, fmt.Errorf("encode feature extras: %w", err)
			}
			extra = sql.NullString{String: string(b), Valid: true}
		}
	}

	args := []any{t.ID, t.Title, string(artists), t.Album, t.DurationMs, t.ISRC, hasFeatures, extra}
	for _, attr := range domain.KnownAttributes {
		if v, ok := t.Features.Value(attr); ok {
			args = append(args, v)
		} else {
			args = append(args, nil)
		}
	}
	return args, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(row scanner) (domain.Track, error) {
	var (
		track       domain.Track
		artists     string
		album       sql.NullString
		isrc        sql.NullString
		duration    sql.NullInt64
		hasFeatures bool
		extra       sql.NullString
		values      = make([]sql.NullFloat64, len(domain.KnownAttributes))
	)

	dest := []any{&track.ID, &track.Title, &artists, &album, &duration, &isrc, &hasFeatures, &extra}
	for i := range values {
		dest = append(dest, &values[i])
	}
	if err := row.Scan(dest...); err != nil {
		return domain.Track{}, err
	}

	if err := json.Unmarshal([]byte(artists), &track.Artists); err != nil {
		return domain.Track{}, fmt.Errorf("decode artists of %s: %w", track.ID, err)
	}
	if album.Valid {
		track.Album = album.String
	}
	if duration.Valid {
		track.DurationMs = int(duration.Int64)
	}
	if isrc.Valid {
		track.ISRC = isrc.String
	}

	if hasFeatures {
		features := &domain.AudioFeatures{}
		for i, attr := range domain.KnownAttributes {
			if values[i].Valid {
				features.Set(attr, values[i].Float64)
			}
		}
		if extra.Valid {
			if err := json.Unmarshal([]byte(extra.String), &features.Extra); err != nil {
				return domain.Track{}, fmt.Errorf("decode feature extras of %s: %w", track.ID, err)
			}
		}
		track.Features = features
	}
	return track, nil
}

func (a *Adapter) readTracks(ctx context.Context, query string, args ...any) (*domain.Library, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lib := domain.NewLibrary()
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		lib.Put(track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tracks: %w", err)
	}
	return lib, nil
}

// writeTracks upserts tracks and records their order in a link table.
// linkSQL takes (position, track_id) after any leading args.
func writeTracks(ctx context.Context, tx *sql.Tx, tracks []domain.Track, linkSQL string, linkArgs ...any) error {
	stmtTrack, err := tx.PrepareContext(ctx, upsertTrack)
	if err != nil {
		return err
	}
	defer stmtTrack.Close()

	stmtLink, err := tx.PrepareContext(ctx, linkSQL)
	if err != nil {
		return err
	}
	defer stmtLink.Close()

	for pos, t := range tracks {
		args, err := trackArgs(t)
		if err != nil {
			return fmt.Errorf("track %s: %w", t.ID, err)
		}
		if _, err := stmtTrack.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to save track %s: %w", t.ID, err)
		}
		link := append(append([]any{}, linkArgs...), pos, t.ID)
		if _, err := stmtLink.ExecContext(ctx, link...); err != nil {
			return fmt.Errorf("failed to link track %s: %w", t.ID, err)
		}
	}
	return nil
}

// SaveLibrary replaces the stored library, keeping its iteration order.
func (a *Adapter) SaveLibrary(ctx context.Context, lib *domain.Library) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM library_tracks"); err != nil {
		return fmt.Errorf("sqlite: failed to clear library: %w", err)
	}
	if err := writeTracks(ctx, tx, lib.Tracks(), "INSERT INTO library_tracks (position, track_id) VALUES (?, ?)"); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value
	`, librarySavedKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("sqlite: failed to stamp library: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: transaction commit failed: %w", err)
	}
	a.log.Debug().Int("tracks", lib.Len()).Msg("library saved")
	return nil
}

// Library returns the stored library, or domain.ErrNotFound if none was saved.
func (a *Adapter) Library(ctx context.Context) (*domain.Library, error) {
	var savedAt string
	err := a.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", librarySavedKey).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: no library cached: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to read library stamp: %w", err)
	}

	lib, err := a.readTracks(ctx, `
		SELECT `+trackColumns+`
		FROM library_tracks lt
		JOIN tracks t ON t.id = lt.track_id
		ORDER BY lt.position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load library: %w", err)
	}

	a.log.Debug().Int("tracks", lib.Len()).Str("saved_at", savedAt).Msg("library loaded from cache")
	return lib, nil
}

// SavePlaylist stores a playlist and its track order, replacing any earlier copy.
func (a *Adapter) SavePlaylist(ctx context.Context, p *domain.Playlist) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO playlists (id, owner, name) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET owner=excluded.owner, name=excluded.name
	`, p.Ref.ID, p.Ref.Owner, p.Name); err != nil {
		return fmt.Errorf("sqlite: failed to save playlist metadata: %w", err)
	}

	// Links are rebuilt; the tracks themselves are shared with the library.
	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_tracks WHERE playlist_id = ?", p.Ref.ID); err != nil {
		return fmt.Errorf("sqlite: failed to clear old tracks: %w", err)
	}
	if err := writeTracks(ctx, tx, p.Tracks.Tracks(),
		"INSERT INTO playlist_tracks (playlist_id, position, track_id) VALUES (?, ?, ?)", p.Ref.ID); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: transaction commit failed: %w", err)
	}
	return nil
}

// PlaylistTracks loads a stored playlist by id. The owner is not part of the key.
func (a *Adapter) PlaylistTracks(ctx context.Context, ref domain.PlaylistRef) (*domain.Playlist, error) {
	var owner, name string
	err := a.db.QueryRowContext(ctx, "SELECT owner, name FROM playlists WHERE id = ?", ref.ID).Scan(&owner, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: playlist %s: %w", ref, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load playlist: %w", err)
	}

	pl, err := domain.NewPlaylist(domain.PlaylistRef{Owner: owner, ID: ref.ID}, name)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	tracks, err := a.readTracks(ctx, `
		SELECT `+trackColumns+`
		FROM playlist_tracks pt
		JOIN tracks t ON t.id = pt.track_id
		WHERE pt.playlist_id = ?
		ORDER BY pt.position ASC
	`, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load playlist tracks: %w", err)
	}
	pl.Tracks = tracks
	return pl, nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		artists TEXT NOT NULL DEFAULT '[]',
		album TEXT,
		duration_ms INTEGER,
		isrc TEXT,
		has_features INTEGER NOT NULL DEFAULT 0,
		extra TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS playlists (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS playlist_tracks (
		playlist_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		track_id TEXT NOT NULL,
		PRIMARY KEY (playlist_id, position),
		FOREIGN KEY(playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
		FOREIGN KEY(track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS library_tracks (
		position INTEGER PRIMARY KEY,
		track_id TEXT NOT NULL,
		FOREIGN KEY(track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	// Feature columns are added one by one so new attributes migrate in place.
	for _, attr := range domain.KnownAttributes {
		if _, err := a.db.Exec("ALTER TABLE tracks ADD COLUMN " + featureColumn(attr) + " REAL"); err != nil {
			if !isDuplicateColumnError(err) {
				return err
			}
		}
	}
	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
