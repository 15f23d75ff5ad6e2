package spotify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/ports"
)

const searchMatchThreshold = 0.8

// GetTrackByMetadata searches for a track using title and artist metadata and
// attaches its audio features when available.
func (c *Client) GetTrackByMetadata(ctx context.Context, title string, artist string) (domain.Track, error) {
	st, err := c.searchTrack(ctx, title, artist)
	if err != nil {
		return domain.Track{}, err
	}

	track := mapTrackToDomain(st)
	features, err := c.AudioFeatures(ctx, []string{track.ID})
	if err != nil {
		c.log.Warn().Err(err).Str("track", track.ID).Msg("failed to get audio features")
	} else {
		track.Features = features[track.ID]
	}
	return track, nil
}

func (c *Client) searchTrack(ctx context.Context, title string, artist string) (spotifyTrack, error) {
	queryTitle, queryArtist := searchTerms(title, artist)

	query := url.Values{}
	query.Set("q", fmt.Sprintf("track:%s artist:%s", queryTitle, queryArtist))
	query.Set("type", "track")
	query.Set("limit", "5")
	searchURL := fmt.Sprintf("%s/search?%s", c.baseURL, query.Encode())

	c.log.Debug().Str("url", searchURL).Msg("search request")

	var searchBody struct {
		Tracks struct {
			Items []spotifyTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := c.getJSON(ctx, searchURL, &searchBody); err != nil {
		return spotifyTrack{}, fmt.Errorf("spotify adapter: search request failed: %w", err)
	}

	items := searchBody.Tracks.Items
	if len(items) == 0 {
		return spotifyTrack{}, fmt.Errorf("spotify adapter: %w", ports.NoConfidentMatchError{Title: title, Artist: artist})
	}

	bestScore := 0.0
	bestIndex := -1
	for i, candidate := range items[:min(len(items), 5)] {
		candidateArtist := joinArtistNames(candidate)
		score := ScoreResult(artist, title, candidateArtist, candidate.Name)
		if fieldScore, ok := trackMatchScore(title, artist, candidate); ok && fieldScore > score {
			score = fieldScore
		}
		c.log.Debug().Str("artist", candidateArtist).Str("title", candidate.Name).Float64("score", score).Msg("search candidate")
		if score >= searchMatchThreshold && score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}

	if bestIndex == -1 {
		return spotifyTrack{}, fmt.Errorf("spotify adapter: %w", ports.NoConfidentMatchError{Title: title, Artist: artist})
	}

	return items[bestIndex], nil
}
