// Package snapshot reads and writes a library as a JSON file keyed by track
// id. The layout follows Spotify's track object with an extra "features" key
// holding the audio-features object or null.
package snapshot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/ports"
)

var (
	_ ports.LibrarySource = (*Store)(nil)
	_ ports.LibrarySink   = (*Store)(nil)
)

type artist struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type album struct {
	Name string `json:"name"`
}

type externalIDs struct {
	ISRC string `json:"isrc,omitempty"`
}

// record is one track as stored on disk.
type record struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Artists     []artist              `json:"artists"`
	Album       album                 `json:"album"`
	DurationMs  int                   `json:"duration_ms"`
	ExternalIDs externalIDs           `json:"external_ids"`
	Features    *domain.AudioFeatures `json:"features"`
}

func toRecord(t domain.Track) record {
	artists := make([]artist, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, artist{ID: a.ID, Name: a.Name})
	}
	return record{
		ID:          t.ID,
		Name:        t.Title,
		Artists:     artists,
		Album:       album{Name: t.Album},
		DurationMs:  t.DurationMs,
		ExternalIDs: externalIDs{ISRC: t.ISRC},
		Features:    t.Features,
	}
}

func (r record) track(id string) domain.Track {
	artists := make([]domain.Artist, 0, len(r.Artists))
	for _, a := range r.Artists {
		artists = append(artists, domain.Artist{ID: a.ID, Name: a.Name})
	}
	return domain.Track{
		ID:         id,
		Title:      r.Name,
		Artists:    artists,
		Album:      r.Album.Name,
		DurationMs: r.DurationMs,
		ISRC:       r.ExternalIDs.ISRC,
		Features:   r.Features,
	}
}

// Decode reads a snapshot, keeping the file's key order. A repeated key
// replaces the earlier track in place.
func Decode(r io.Reader) (*domain.Library, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("snapshot: read opening brace: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("snapshot: expected a JSON object, got %v", tok)
	}

	lib := domain.NewLibrary()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("snapshot: read key: %w", err)
		}
		id, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("snapshot: expected a track id, got %v", tok)
		}

		var rec record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("snapshot: decode track %q: %w", id, err)
		}
		if id == "" {
			id = rec.ID
		}
		lib.Put(rec.track(id))
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("snapshot: read closing brace: %w", err)
	}
	return lib, nil
}

// Encode writes lib as a snapshot in library order.
func Encode(w io.Writer, lib *domain.Library) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("{"); err != nil {
		return err
	}
	for i, t := range lib.Tracks() {
		if i > 0 {
			bw.WriteString(",")
		}
		bw.WriteString("\n  ")

		key, err := json.Marshal(t.ID)
		if err != nil {
			return fmt.Errorf("snapshot: encode id %q: %w", t.ID, err)
		}
		value, err := json.Marshal(toRecord(t))
		if err != nil {
			return fmt.Errorf("snapshot: encode track %q: %w", t.ID, err)
		}
		bw.Write(key)
		bw.WriteString(": ")
		bw.Write(value)
	}
	if lib.Len() > 0 {
		bw.WriteString("\n")
	}
	bw.WriteString("}\n")
	return bw.Flush()
}

// Store is a snapshot file on disk.
type Store struct {
	path string
}

// New returns a store for path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file.
func (s *Store) Path() string {
	return s.path
}

// Library loads the snapshot. A missing file wraps domain.ErrNotFound.
func (s *Store) Library(ctx context.Context) (*domain.Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("snapshot: %s: %w", s.path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", s.path, err)
	}
	defer f.Close()

	lib, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%w (file %s)", err, s.path)
	}
	return lib, nil
}

// SaveLibrary replaces the snapshot file atomically.
func (s *Store) SaveLibrary(ctx context.Context, lib *domain.Library) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("snapshot: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, lib); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("snapshot: replace %s: %w", s.path, err)
	}
	return nil
}
