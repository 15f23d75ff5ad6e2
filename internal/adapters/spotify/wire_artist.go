package spotify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

// GetArtistTopTracks searches for an artist by name and returns their top
// tracks with audio features attached where the API has them. Returns up to
// 10 tracks (Spotify's maximum for the top tracks endpoint).
func (c *Client) GetArtistTopTracks(ctx context.Context, artistName string) ([]domain.Track, error) {
	artistID, err := c.searchArtist(ctx, artistName)
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: failed to find artist %q: %w", artistName, err)
	}

	tracks, err := c.getTopTracks(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: failed to get top tracks for artist %q: %w", artistName, err)
	}

	trackIDs := make([]string, 0, len(tracks))
	for _, t := range tracks {
		trackIDs = append(trackIDs, t.ID)
	}

	features, err := c.AudioFeatures(ctx, trackIDs)
	if err != nil {
		// Unresolved tracks still rank, just last.
		c.log.Warn().Err(err).Str("artist", artistName).Msg("failed to get audio features")
		features = nil
	}

	domainTracks := make([]domain.Track, 0, len(tracks))
	for _, st := range tracks {
		dt := mapTrackToDomain(st)
		dt.Features = features[st.ID]
		domainTracks = append(domainTracks, dt)
	}

	return domainTracks, nil
}

// searchArtist searches for an artist by name and returns their Spotify ID.
func (c *Client) searchArtist(ctx context.Context, artistName string) (string, error) {
	query := url.Values{}
	query.Set("q", artistName)
	query.Set("type", "artist")
	query.Set("limit", "1")
	query.Set("market", c.marketOrDefault())
	searchURL := fmt.Sprintf("%s/search?%s", c.baseURL, query.Encode())

	c.log.Debug().Str("url", searchURL).Msg("artist search request")

	var searchBody struct {
		Artists struct {
			Items []spotifyArtist `json:"items"`
		} `json:"artists"`
	}
	if err := c.getJSON(ctx, searchURL, &searchBody); err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}

	if len(searchBody.Artists.Items) == 0 {
		return "", fmt.Errorf("no artist found with name %q: %w", artistName, domain.ErrNotFound)
	}

	return searchBody.Artists.Items[0].ID, nil
}

// getTopTracks fetches an artist's top tracks from Spotify.
func (c *Client) getTopTracks(ctx context.Context, artistID string) ([]spotifyTrack, error) {
	topTracksURL := fmt.Sprintf("%s/artists/%s/top-tracks?market=%s", c.baseURL, url.PathEscape(artistID), url.QueryEscape(c.marketOrDefault()))

	var body struct {
		Tracks []spotifyTrack `json:"tracks"`
	}
	if err := c.getJSON(ctx, topTracksURL, &body); err != nil {
		return nil, fmt.Errorf("top tracks request failed: %w", err)
	}

	out := body.Tracks[:0]
	for _, t := range body.Tracks {
		if t.ID != "" {
			out = append(out, t)
		}
	}
	return out, nil
}
