package rest

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/ranking"
	"github.com/ewilliams-labs/tastemap/internal/core/services"
)

const defaultLimit = 5

type scoredTrack struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
	Album   string   `json:"album,omitempty"`
	// Distance is null when the track has no audio features.
	Distance *float64 `json:"distance"`
}

type rankingResponse struct {
	Source     string        `json:"source"`
	Population int           `json:"population"`
	Requested  int           `json:"requested"`
	Available  int           `json:"available"`
	Items      []scoredTrack `json:"items"`
}

func toScoredTracks(items []ranking.Scored) []scoredTrack {
	out := make([]scoredTrack, 0, len(items))
	for _, s := range items {
		artists := make([]string, 0, len(s.Track.Artists))
		for _, a := range s.Track.Artists {
			artists = append(artists, a.Name)
		}
		st := scoredTrack{ID: s.Track.ID, Title: s.Track.Title, Artists: artists, Album: s.Track.Album}
		if !math.IsInf(s.Distance, 0) && !math.IsNaN(s.Distance) {
			d := s.Distance
			st.Distance = &d
		}
		out = append(out, st)
	}
	return out
}

// writeRanking answers with the ranking. A shortfall is not an HTTP error:
// available < requested tells the client.
func (h *Handler) writeRanking(w http.ResponseWriter, res services.Ranking, err error) {
	if err != nil && !errors.Is(err, ranking.ErrInsufficientItems) {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rankingResponse{
		Source:     res.Source,
		Population: res.Population,
		Requested:  res.Requested,
		Available:  len(res.Items),
		Items:      toScoredTracks(res.Items),
	})
}

// parseLimit reads ?limit=, defaulting to 5.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", raw)
	}
	return n, nil
}

// parsePlaylist reads ?playlist_owner=&playlist_id=. No id means no playlist.
func parsePlaylist(r *http.Request) (*domain.PlaylistRef, error) {
	q := r.URL.Query()
	id := q.Get("playlist_id")
	if id == "" {
		if q.Get("playlist_owner") != "" {
			return nil, errors.New("playlist_owner requires playlist_id")
		}
		return nil, nil
	}
	ref, err := domain.ParsePlaylistRef(q.Get("playlist_owner"), id)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// Favorites handles GET /favorites
func (h *Handler) Favorites(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidArgument)
		return
	}
	playlist, err := parsePlaylist(r)
	if err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidArgument)
		return
	}

	farthest := false
	if raw := r.URL.Query().Get("farthest"); raw != "" {
		if farthest, err = strconv.ParseBool(raw); err != nil {
			writeErrorWithCode(w, http.StatusBadRequest, "farthest must be a boolean", errCodeInvalidArgument)
			return
		}
	}

	res, err := h.svc.Favorites(r.Context(), services.FavoritesRequest{
		Limit:    limit,
		Playlist: playlist,
		Farthest: farthest,
	})
	h.writeRanking(w, res, err)
}

// Recommend handles GET /recommend?artist=
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	artist := r.URL.Query().Get("artist")
	if artist == "" {
		writeErrorWithCode(w, http.StatusBadRequest, "artist is required", errCodeInvalidArgument)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidArgument)
		return
	}
	playlist, err := parsePlaylist(r)
	if err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidArgument)
		return
	}

	res, err := h.svc.Recommend(r.Context(), services.RecommendRequest{
		Artist:   artist,
		Limit:    limit,
		Playlist: playlist,
	})
	h.writeRanking(w, res, err)
}
