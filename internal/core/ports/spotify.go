package ports

import (
	"context"
	"errors"
	"fmt"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

// ErrNoConfidentMatch indicates search results did not meet the confidence threshold.
var ErrNoConfidentMatch = errors.New("no confident match")

// NoConfidentMatchError provides context for a failed track match.
type NoConfidentMatchError struct {
	Title  string
	Artist string
}

func (e NoConfidentMatchError) Error() string {
	if e.Title == "" && e.Artist == "" {
		return ErrNoConfidentMatch.Error()
	}
	return fmt.Sprintf("no confident match found for title %q artist %q", e.Title, e.Artist)
}

func (e NoConfidentMatchError) Is(target error) bool {
	return target == ErrNoConfidentMatch
}

// LibrarySource yields the user's track collection.
type LibrarySource interface {
	Library(ctx context.Context) (*domain.Library, error)
}

// PlaylistSource yields the tracks of one playlist.
type PlaylistSource interface {
	PlaylistTracks(ctx context.Context, ref domain.PlaylistRef) (*domain.Playlist, error)
}

// FeatureResolver fetches attribute vectors for a batch of track ids. Ids
// the service has no vector for are absent from the result.
type FeatureResolver interface {
	AudioFeatures(ctx context.Context, ids []string) (map[string]*domain.AudioFeatures, error)
}

// TrackSearcher finds catalog tracks outside the user's library.
type TrackSearcher interface {
	GetTrackByMetadata(ctx context.Context, title, artist string) (domain.Track, error)
	GetArtistTopTracks(ctx context.Context, artist string) ([]domain.Track, error)
}

// Enricher fills in missing attribute vectors on a library in place and
// reports how many tracks it resolved.
type Enricher interface {
	Enrich(ctx context.Context, lib *domain.Library) (int, error)
}
