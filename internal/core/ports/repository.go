package ports

import (
	"context"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

// LibrarySink persists a library.
type LibrarySink interface {
	SaveLibrary(ctx context.Context, lib *domain.Library) error
}

// PlaylistSink persists a playlist.
type PlaylistSink interface {
	SavePlaylist(ctx context.Context, p *domain.Playlist) error
}

// LibraryRepository is a local store that can serve as both source and sink.
type LibraryRepository interface {
	LibrarySource
	LibrarySink
	PlaylistSource
	PlaylistSink
}
