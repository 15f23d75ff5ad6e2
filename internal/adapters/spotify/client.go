package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/ports"
	"github.com/ewilliams-labs/tastemap/internal/logging"
)

// DefaultBaseURL is the Spotify Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

// Page size limits enforced by the Web API.
const (
	maxLibraryPage  = 50
	maxPlaylistPage = 100
	maxFeatureBatch = 100
)

// Client is an HTTP client for the Spotify adapter.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxRetries  int
	baseBackoff time.Duration

	market       string
	libraryPage  int
	playlistPage int
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker[*http.Response]
	log          zerolog.Logger // zero value discards
}

// compile-time interface assertions
var (
	_ ports.LibrarySource   = (*Client)(nil)
	_ ports.PlaylistSource  = (*Client)(nil)
	_ ports.FeatureResolver = (*Client)(nil)
	_ ports.TrackSearcher   = (*Client)(nil)
)

// Options tunes paging, retries, pacing and the circuit breaker.
type Options struct {
	BaseURL           string
	Market            string
	LibraryPageSize   int
	PlaylistPageSize  int
	MaxRetries        int
	RetryBackoff      time.Duration
	RequestsPerSecond float64 // 0 disables pacing
	Burst             int
	BreakerFailures   uint32 // consecutive failures before the breaker opens; 0 disables it
	BreakerTimeout    time.Duration
}

// DefaultOptions returns the settings used against the real API.
func DefaultOptions() Options {
	return Options{
		BaseURL:           DefaultBaseURL,
		Market:            "US",
		LibraryPageSize:   maxLibraryPage,
		PlaylistPageSize:  maxPlaylistPage,
		MaxRetries:        defaultMaxRetries,
		RetryBackoff:      time.Duration(defaultBackoffMs) * time.Millisecond,
		RequestsPerSecond: 10,
		Burst:             5,
		BreakerFailures:   5,
		BreakerTimeout:    30 * time.Second,
	}
}

// NewClient constructs a new Spotify client. httpClient is expected to carry
// authorization (see Authenticator.HTTPClient).
func NewClient(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	c := &Client{
		httpClient:   httpClient,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		maxRetries:   opts.MaxRetries,
		baseBackoff:  opts.RetryBackoff,
		market:       opts.Market,
		libraryPage:  clamp(opts.LibraryPageSize, maxLibraryPage),
		playlistPage: clamp(opts.PlaylistPageSize, maxPlaylistPage),
		log:          logging.Component("spotify"),
	}

	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(opts.Burst, 1))
	}
	if opts.BreakerFailures > 0 {
		c.breaker = newBreaker(opts.BreakerFailures, opts.BreakerTimeout, c.log)
	}
	return c
}

// NewClientWithBaseURL constructs a client against a custom API root with
// pacing and the breaker disabled. Tests point it at an httptest server.
func NewClientWithBaseURL(httpClient *http.Client, baseURL string) *Client {
	opts := DefaultOptions()
	opts.BaseURL = baseURL
	opts.RequestsPerSecond = 0
	opts.BreakerFailures = 0
	return NewClient(httpClient, opts)
}

func newBreaker(failures uint32, timeout time.Duration, log zerolog.Logger) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "spotify-api",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
}

func clamp(n, limit int) int {
	if n <= 0 || n > limit {
		return limit
	}
	return n
}

func (c *Client) marketOrDefault() string {
	if c.market == "" {
		return "US"
	}
	return c.market
}

// statusError reports a non-200 response.
type statusError struct {
	StatusCode int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d", e.StatusCode)
}

// Is maps 404 onto domain.ErrNotFound.
func (e *statusError) Is(target error) bool {
	return target == domain.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// getJSON issues a GET through the retry path and decodes a 200 body into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.doWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode error: %w", err)
	}
	return nil
}
