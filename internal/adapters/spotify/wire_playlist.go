package spotify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

// PlaylistTracks fetches a playlist's name and pages through its tracks.
// With an owner the legacy /users/{owner}/playlists path is used.
func (c *Client) PlaylistTracks(ctx context.Context, ref domain.PlaylistRef) (*domain.Playlist, error) {
	if ref.ID == "" {
		return nil, fmt.Errorf("spotify adapter: playlist id is required")
	}

	base := fmt.Sprintf("%s/playlists/%s", c.baseURL, url.PathEscape(ref.ID))
	if ref.Owner != "" {
		base = fmt.Sprintf("%s/users/%s/playlists/%s", c.baseURL, url.PathEscape(ref.Owner), url.PathEscape(ref.ID))
	}

	var meta spotifyPlaylist
	if err := c.getJSON(ctx, base+"?fields=id,name,owner.id", &meta); err != nil {
		return nil, fmt.Errorf("spotify adapter: playlist %s lookup failed: %w", ref, err)
	}

	pl, err := domain.NewPlaylist(ref, meta.Name)
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: %w", err)
	}

	limit := c.playlistPage
	if limit <= 0 {
		limit = maxPlaylistPage
	}

	for offset := 0; ; offset += limit {
		endpoint := fmt.Sprintf("%s/tracks?%s", base, pageQuery(limit, offset, c.market).Encode())

		var page trackPage
		if err := c.getJSON(ctx, endpoint, &page); err != nil {
			return nil, fmt.Errorf("spotify adapter: playlist %s page at offset %d failed: %w", ref, offset, err)
		}
		if skipped := appendPage(pl.Tracks, page); skipped > 0 {
			c.log.Debug().Str("playlist", ref.String()).Int("skipped", skipped).Msg("skipped non-track playlist items")
		}

		if len(page.Items) < limit || page.Next == nil {
			break
		}
	}

	return pl, nil
}
