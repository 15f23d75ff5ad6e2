package spotify

import (
	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

// mapTrackToDomain converts a raw Spotify track to a domain track. Features
// stay nil; they come from a separate audio-features call.
func mapTrackToDomain(st spotifyTrack) domain.Track {
	artists := make([]domain.Artist, 0, len(st.Artists))
	for _, a := range st.Artists {
		artists = append(artists, domain.Artist{ID: a.ID, Name: a.Name})
	}

	return domain.Track{
		ID:         st.ID,
		Title:      st.Name,
		Artists:    artists,
		Album:      st.Album.Name,
		DurationMs: st.DurationMs,
		ISRC:       st.ExternalIDs.ISRC,
	}
}

// usable reports whether a page item is a catalog track we can score.
// Local files, podcast episodes and removed tracks are skipped.
func usable(item trackItem) bool {
	t := item.Track
	if t == nil || t.ID == "" || t.IsLocal {
		return false
	}
	return t.Type == "" || t.Type == "track"
}

// appendPage adds the usable tracks of a page to lib, returning how many
// items were skipped.
func appendPage(lib *domain.Library, page trackPage) int {
	skipped := 0
	for _, item := range page.Items {
		if !usable(item) {
			skipped++
			continue
		}
		lib.Put(mapTrackToDomain(*item.Track))
	}
	return skipped
}
