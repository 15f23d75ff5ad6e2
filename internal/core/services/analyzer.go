package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/ports"
	"github.com/ewilliams-labs/tastemap/internal/core/ranking"
	"github.com/ewilliams-labs/tastemap/internal/logging"
)

var (
	// ErrSearchUnavailable is returned when a query needs catalog search but
	// the analyzer runs without a remote connection.
	ErrSearchUnavailable = errors.New("service: catalog search unavailable")
	// ErrPlaylistsUnavailable is returned when a playlist is requested but no
	// playlist source is configured.
	ErrPlaylistsUnavailable = errors.New("service: playlist source unavailable")
)

// Deps are the analyzer's collaborators. Only Source is required.
type Deps struct {
	Source        ports.LibrarySource
	Playlists     ports.PlaylistSource
	Enricher      ports.Enricher
	Searcher      ports.TrackSearcher
	LibrarySinks  []ports.LibrarySink
	PlaylistSinks []ports.PlaylistSink
}

// Analyzer loads the library and answers ranking queries over it.
type Analyzer struct {
	deps    Deps
	catalog domain.Catalog
	log     zerolog.Logger

	mu  sync.Mutex
	lib *domain.Library
}

// NewAnalyzer constructs an Analyzer ranking over catalog.
func NewAnalyzer(deps Deps, catalog domain.Catalog) *Analyzer {
	return &Analyzer{
		deps:    deps,
		catalog: catalog,
		log:     logging.Component("service"),
	}
}

// Catalog returns the attributes the analyzer ranks on.
func (a *Analyzer) Catalog() domain.Catalog {
	return a.catalog
}

// LoadLibrary fetches the library from the source, resolves missing
// attribute vectors and saves the result to every sink. The loaded library
// is kept for later queries.
func (a *Analyzer) LoadLibrary(ctx context.Context) (*domain.Library, error) {
	lib, err := a.deps.Source.Library(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load library: %w", err)
	}

	if err := a.enrich(ctx, lib); err != nil {
		return nil, err
	}

	for _, sink := range a.deps.LibrarySinks {
		if err := sink.SaveLibrary(ctx, lib); err != nil {
			return nil, fmt.Errorf("service: failed to save library: %w", err)
		}
	}

	a.log.Info().Int("tracks", lib.Len()).Int("unresolved", len(lib.Unresolved())).Msg("library loaded")

	a.mu.Lock()
	a.lib = lib
	a.mu.Unlock()
	return lib, nil
}

// Library returns the loaded library, loading it on first use.
func (a *Analyzer) Library(ctx context.Context) (*domain.Library, error) {
	a.mu.Lock()
	lib := a.lib
	a.mu.Unlock()
	if lib != nil {
		return lib, nil
	}
	return a.LoadLibrary(ctx)
}

func (a *Analyzer) enrich(ctx context.Context, lib *domain.Library) error {
	if a.deps.Enricher == nil || len(lib.Unresolved()) == 0 {
		return nil
	}
	resolved, err := a.deps.Enricher.Enrich(ctx, lib)
	if err != nil {
		return fmt.Errorf("service: failed to resolve audio features: %w", err)
	}
	a.log.Debug().Int("resolved", resolved).Msg("audio features resolved")
	return nil
}

// population returns the tracks the profile is built from: the playlist's
// when ref is set, otherwise the library's.
func (a *Analyzer) population(ctx context.Context, lib *domain.Library, ref *domain.PlaylistRef) ([]domain.Track, string, error) {
	if ref == nil {
		return lib.Tracks(), "library", nil
	}
	if a.deps.Playlists == nil {
		return nil, "", ErrPlaylistsUnavailable
	}

	pl, err := a.deps.Playlists.PlaylistTracks(ctx, *ref)
	if err != nil {
		return nil, "", fmt.Errorf("service: failed to load playlist %s: %w", ref, err)
	}
	if err := a.enrich(ctx, pl.Tracks); err != nil {
		return nil, "", err
	}
	for _, sink := range a.deps.PlaylistSinks {
		if err := sink.SavePlaylist(ctx, pl); err != nil {
			return nil, "", fmt.Errorf("service: failed to save playlist: %w", err)
		}
	}

	name := pl.Name
	if name == "" {
		name = pl.Ref.String()
	}
	return pl.Tracks.Tracks(), name, nil
}

// ProfileReport describes the reference profile of a population.
type ProfileReport struct {
	Profile    ranking.Profile
	Source     string // "library" or the playlist name
	Population int
}

// Profile computes the reference profile of the library or a playlist.
func (a *Analyzer) Profile(ctx context.Context, ref *domain.PlaylistRef) (ProfileReport, error) {
	lib, err := a.Library(ctx)
	if err != nil {
		return ProfileReport{}, err
	}
	tracks, source, err := a.population(ctx, lib, ref)
	if err != nil {
		return ProfileReport{}, err
	}
	return ProfileReport{
		Profile:    ranking.BuildProfile(tracks, a.catalog),
		Source:     source,
		Population: len(tracks),
	}, nil
}

// FavoritesRequest selects the closest (or farthest) library tracks.
type FavoritesRequest struct {
	Limit    int
	Playlist *domain.PlaylistRef
	Farthest bool
}

// Ranking is a ranked result with the profile it was measured against.
type Ranking struct {
	Items      []ranking.Scored
	Profile    ranking.Profile
	Source     string
	Population int
	Requested  int
}

// Favorites ranks the library against the profile of the library itself or
// of a playlist. When fewer than Limit tracks qualify, the partial ranking is
// returned along with an error matching ranking.ErrInsufficientItems.
func (a *Analyzer) Favorites(ctx context.Context, req FavoritesRequest) (Ranking, error) {
	if req.Limit <= 0 {
		return Ranking{}, ranking.ErrInvalidLimit
	}

	lib, err := a.Library(ctx)
	if err != nil {
		return Ranking{}, err
	}
	report, err := a.Profile(ctx, req.Playlist)
	if err != nil {
		return Ranking{}, err
	}

	scored := ranking.ScoreAll(lib.Tracks(), report.Profile)
	selectFn := ranking.TopK
	if req.Farthest {
		selectFn = ranking.Farthest
	}
	items, err := selectFn(scored, req.Limit)

	return Ranking{
		Items:      items,
		Profile:    report.Profile,
		Source:     report.Source,
		Population: report.Population,
		Requested:  req.Limit,
	}, err
}

// RecommendRequest ranks an artist's top tracks against the profile.
type RecommendRequest struct {
	Artist   string
	Limit    int
	Playlist *domain.PlaylistRef
}

// Recommend ranks an artist's top tracks by closeness to the profile.
func (a *Analyzer) Recommend(ctx context.Context, req RecommendRequest) (Ranking, error) {
	if req.Limit <= 0 {
		return Ranking{}, ranking.ErrInvalidLimit
	}
	if a.deps.Searcher == nil {
		return Ranking{}, ErrSearchUnavailable
	}

	report, err := a.Profile(ctx, req.Playlist)
	if err != nil {
		return Ranking{}, err
	}

	candidates, err := a.deps.Searcher.GetArtistTopTracks(ctx, req.Artist)
	if err != nil {
		return Ranking{}, fmt.Errorf("service: failed to fetch top tracks: %w", err)
	}

	items, err := ranking.TopK(ranking.ScoreAll(candidates, report.Profile), req.Limit)
	return Ranking{
		Items:      items,
		Profile:    report.Profile,
		Source:     report.Source,
		Population: report.Population,
		Requested:  req.Limit,
	}, err
}

// Score is one track's distance breakdown.
type Score struct {
	Track     domain.Track
	Breakdown ranking.Breakdown
	Source    string
}

// ScoreTrack finds a track by title and artist and explains its distance
// from the profile.
func (a *Analyzer) ScoreTrack(ctx context.Context, title, artist string, ref *domain.PlaylistRef) (Score, error) {
	if a.deps.Searcher == nil {
		return Score{}, ErrSearchUnavailable
	}

	report, err := a.Profile(ctx, ref)
	if err != nil {
		return Score{}, err
	}

	track, err := a.deps.Searcher.GetTrackByMetadata(ctx, title, artist)
	if err != nil {
		return Score{}, fmt.Errorf("service: failed to find track: %w", err)
	}

	return Score{
		Track:     track,
		Breakdown: ranking.Explain(track, report.Profile),
		Source:    report.Source,
	}, nil
}

// FeatureData holds what the plots draw.
type FeatureData struct {
	Catalog domain.Catalog
	Values  map[string][]float64
	Pairs   []AttributePair
}

// AttributePair is the per-track points for two attributes.
type AttributePair struct {
	X, Y   string
	Points [][2]float64
}

// FeatureValues collects per-attribute values and per-pair points over the
// library.
func (a *Analyzer) FeatureValues(ctx context.Context) (FeatureData, error) {
	lib, err := a.Library(ctx)
	if err != nil {
		return FeatureData{}, err
	}

	tracks := lib.Tracks()
	data := FeatureData{
		Catalog: a.catalog,
		Values:  ranking.FeatureValues(tracks, a.catalog),
	}
	for _, pair := range a.catalog.Pairs() {
		data.Pairs = append(data.Pairs, AttributePair{
			X:      pair[0],
			Y:      pair[1],
			Points: ranking.FeaturePairs(tracks, pair[0], pair[1]),
		})
	}
	return data, nil
}
