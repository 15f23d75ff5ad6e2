package spotify

// spotifyArtist represents an artist from the Spotify API.
type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyImage struct {
	URL string `json:"url"`
}

type spotifyAlbum struct {
	Name   string         `json:"name"`
	Images []spotifyImage `json:"images"`
}

// spotifyTrack represents the Spotify API response for a track.
type spotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	IsLocal     bool            `json:"is_local"`
	Artists     []spotifyArtist `json:"artists"`
	Album       spotifyAlbum    `json:"album"`
	DurationMs  int             `json:"duration_ms"`
	ExternalIDs struct {
		ISRC string `json:"isrc"`
	} `json:"external_ids"`
}

// trackItem wraps a track in saved-track and playlist-track pages. Track is
// null for removed or unavailable items.
type trackItem struct {
	Track *spotifyTrack `json:"track"`
}

// trackPage is a paging object of track items.
type trackPage struct {
	Items  []trackItem `json:"items"`
	Next   *string     `json:"next"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// spotifyPlaylist carries the playlist metadata we display.
type spotifyPlaylist struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner struct {
		ID string `json:"id"`
	} `json:"owner"`
}
