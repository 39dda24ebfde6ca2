package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"
)

const (
	// resultLimit is the fixed page size requested from the search endpoint.
	resultLimit = 200

	defaultMaxRetries      = 3
	defaultRetryDelay      = time.Second
	defaultSearchTimeout   = 10 * time.Second
	defaultDownloadTimeout = 30 * time.Second
	defaultUserAgent       = "subrift/1.0"
)

// ClientConfig contains options for creating a Client.
type ClientConfig struct {
	BaseURL         string
	APIKey          string
	UserAgent       string
	MaxRetries      int           // attempts per search call (default 3)
	RetryDelay      time.Duration // base backoff delay (default 1s, doubles per attempt)
	SearchTimeout   time.Duration // per-attempt timeout (default 10s)
	DownloadTimeout time.Duration // download timeout (default 30s)
	HTTPClient      *http.Client  // optional; shared connection pool
	Logger          zerolog.Logger
}

// Client issues search and download requests against the remote API,
// absorbing transient failures with a status-code-driven retry policy.
// Safe for concurrent use.
type Client struct {
	baseURL         string
	apiKey          string
	userAgent       string
	maxRetries      int
	retryDelay      time.Duration
	searchTimeout   time.Duration
	downloadTimeout time.Duration
	httpClient      *http.Client
	logger          zerolog.Logger
}

// NewClient creates a new API client. The API key is required.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &ProviderError{Code: ErrCodeConfiguration, Message: "api key is required"}
	}
	if cfg.BaseURL == "" {
		return nil, &ProviderError{Code: ErrCodeConfiguration, Message: "base url is required"}
	}

	c := &Client{
		baseURL:         cfg.BaseURL,
		apiKey:          cfg.APIKey,
		userAgent:       cfg.UserAgent,
		maxRetries:      cfg.MaxRetries,
		retryDelay:      cfg.RetryDelay,
		searchTimeout:   cfg.SearchTimeout,
		downloadTimeout: cfg.DownloadTimeout,
		httpClient:      cfg.HTTPClient,
		logger:          cfg.Logger.With().Str("component", "api-client").Logger(),
	}

	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.retryDelay <= 0 {
		c.retryDelay = defaultRetryDelay
	}
	if c.searchTimeout <= 0 {
		c.searchTimeout = defaultSearchTimeout
	}
	if c.downloadTimeout <= 0 {
		c.downloadTimeout = defaultDownloadTimeout
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}

	return c, nil
}

// Search runs one query against the search endpoint, retrying transient
// failures with exponential backoff. Returns the raw result items on
// success and a nil slice when the query matched nothing. Only invalid
// credentials and an exhausted rate-limit budget surface as errors;
// other failures degrade to an empty result once retries are spent.
func (c *Client) Search(ctx context.Context, q Query) ([]RawResultItem, error) {
	params, err := c.searchParams(q)
	if err != nil {
		// No criteria to search on is an empty result, not a failure.
		c.logger.Debug().Str("query", q.Text).Msg("No usable search criteria, skipping query")
		return nil, nil
	}

	var items []RawResultItem

	err = retry.Do(
		func() error {
			result, attemptErr := c.searchAttempt(ctx, params)
			if attemptErr != nil {
				return attemptErr
			}
			items = result
			return nil
		},
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn().
				Err(err).
				Uint("attempt", n+1).
				Int("maxRetries", c.maxRetries).
				Str("query", q.Text).
				Msg("Search attempt failed, backing off")
		}),
	)

	if err == nil {
		return items, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		switch perr.Code {
		case ErrCodeConfiguration, ErrCodeRateLimit:
			return nil, perr
		case ErrCodeBadRequest, ErrCodeNotFound:
			c.logger.Debug().
				Int("status", perr.StatusCode).
				Str("query", q.Text).
				Msg("Search returned no results")
			return nil, nil
		}
	}

	// Server errors and transport/parse failures degrade to an empty
	// result so one video's search never aborts a batch.
	c.logger.Error().
		Err(err).
		Str("query", q.Text).
		Int("maxRetries", c.maxRetries).
		Msg("Search failed after all retries")
	return nil, nil
}

// searchAttempt performs a single HTTP attempt with its own timeout.
func (c *Client) searchAttempt(ctx context.Context, params url.Values) ([]RawResultItem, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.searchTimeout)
	defer cancel()

	endpoint := c.baseURL + "/api/subtitles/search?" + params.Encode()
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, newNetworkError(err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newNetworkError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return nil, newBadRequestError(resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, newConfigError(resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, newNotFoundError(resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, newRateLimitError(resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, newServerError(resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, newServerError(resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, newParseError(err)
	}

	c.logger.Debug().
		Int("total", body.Total).
		Int("items", len(body.Items)).
		Msg("Search response received")

	return body.Items, nil
}

// searchParams builds the query parameters for one search attempt. The
// IMDb id is preferred over the title when available; season and episode
// narrowing is applied client-side by the result filter, not here.
func (c *Client) searchParams(q Query) (url.Values, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(resultLimit))
	params.Set("video_type", string(q.VideoType))

	switch {
	case q.ImdbID != "":
		params.Set("imdb_id", q.ImdbID)
	case q.Text != "":
		params.Set("title", q.Text)
	default:
		return nil, &ProviderError{Code: ErrCodeBadRequest, Message: "no search criteria (imdb id or title)"}
	}

	if q.Year > 0 {
		params.Set("year", strconv.Itoa(q.Year))
	}

	return params, nil
}

// Download fetches the raw (typically archived) payload of a candidate.
func (c *Client) Download(ctx context.Context, downloadURL string) ([]byte, error) {
	dlCtx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(dlCtx, http.MethodGet, downloadURL, http.NoBody)
	if err != nil {
		return nil, &ProviderError{Code: ErrCodeDownload, Message: "invalid download request", Cause: err}
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Code: ErrCodeDownload, Message: "download request failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &ProviderError{Code: ErrCodeDownload, Message: "download failed", StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Code: ErrCodeDownload, Message: "failed to read download", Retryable: true, Cause: err}
	}

	c.logger.Debug().
		Int("size", len(data)).
		Str("url", downloadURL).
		Msg("Download completed")

	return data, nil
}

// ItemPageURL returns the page URL for a result item, deriving one from
// the item id when the endpoint did not supply it.
func (c *Client) ItemPageURL(item *RawResultItem) string {
	if item.PageURL != "" {
		return item.PageURL
	}
	return fmt.Sprintf("%s/api/subtitles/%s", c.baseURL, item.ID)
}

// ItemDownloadURL returns the download URL for a result item.
func (c *Client) ItemDownloadURL(item *RawResultItem) string {
	return fmt.Sprintf("%s/api/subtitles/%s/download", c.baseURL, item.ID)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
}
