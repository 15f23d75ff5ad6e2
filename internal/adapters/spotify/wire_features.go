package spotify

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

// AudioFeatures fetches attribute vectors for up to 100 tracks in one request.
// The API answers null for tracks it has no analysis for; those ids are left
// out of the result.
func (c *Client) AudioFeatures(ctx context.Context, ids []string) (map[string]*domain.AudioFeatures, error) {
	if len(ids) == 0 {
		return map[string]*domain.AudioFeatures{}, nil
	}
	if len(ids) > maxFeatureBatch {
		return nil, fmt.Errorf("spotify adapter: %d ids exceeds the audio-features batch limit of %d", len(ids), maxFeatureBatch)
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	endpoint := fmt.Sprintf("%s/audio-features?%s", c.baseURL, query.Encode())

	var body struct {
		AudioFeatures []json.RawMessage `json:"audio_features"`
	}
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return nil, fmt.Errorf("spotify adapter: features request failed: %w", err)
	}

	result := make(map[string]*domain.AudioFeatures, len(body.AudioFeatures))
	for _, raw := range body.AudioFeatures {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}

		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &head); err != nil || head.ID == "" {
			continue
		}

		var f domain.AudioFeatures
		if err := json.Unmarshal(raw, &f); err != nil {
			c.log.Warn().Err(err).Str("track", head.ID).Msg("skipping undecodable audio features")
			continue
		}
		result[head.ID] = &f
	}

	if missing := len(ids) - len(result); missing > 0 {
		c.log.Debug().Int("requested", len(ids)).Int("missing", missing).Msg("audio features unavailable for some tracks")
	}
	return result, nil
}
