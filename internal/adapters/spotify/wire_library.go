package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

// Library pages through the current user's saved tracks, oldest page first
// as the API returns them. Features are not resolved here.
func (c *Client) Library(ctx context.Context) (*domain.Library, error) {
	limit := c.libraryPage
	if limit <= 0 {
		limit = maxLibraryPage
	}

	lib := domain.NewLibrary()
	skipped := 0
	for offset := 0; ; offset += limit {
		endpoint := fmt.Sprintf("%s/me/tracks?%s", c.baseURL, pageQuery(limit, offset, c.market).Encode())

		var page trackPage
		if err := c.getJSON(ctx, endpoint, &page); err != nil {
			return nil, fmt.Errorf("spotify adapter: saved tracks page at offset %d failed: %w", offset, err)
		}
		skipped += appendPage(lib, page)

		c.log.Debug().Int("offset", offset).Int("items", len(page.Items)).Int("total", page.Total).Msg("saved tracks page")
		if len(page.Items) < limit || page.Next == nil {
			break
		}
	}

	if skipped > 0 {
		c.log.Info().Int("skipped", skipped).Msg("skipped local or unavailable saved items")
	}
	return lib, nil
}

func pageQuery(limit, offset int, market string) url.Values {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	if market != "" {
		q.Set("market", market)
	}
	return q
}
