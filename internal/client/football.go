package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/cache"
	"github.com/SpaceTransformer/xgoals-framework/internal/metrics"
	"github.com/SpaceTransformer/xgoals-framework/internal/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api-football-v1.p.rapidapi.com/v3"
	DefaultHost    = "api-football-v1.p.rapidapi.com"
)

// Envelope is the common API-Football response wrapper
type Envelope struct {
	Get        string          `json:"get"`
	Parameters json.RawMessage `json:"parameters"`
	Errors     json.RawMessage `json:"errors"`
	Results    int             `json:"results"`
	Response   json.RawMessage `json:"response"`
}

// HasErrors reports whether the API listed errors in a 2xx response
func (e *Envelope) HasErrors() bool {
	s := strings.TrimSpace(string(e.Errors))
	return s != "" && s != "[]" && s != "{}" && s != "null"
}

// Options configures a Client
type Options struct {
	BaseURL      string
	APIKey       string
	Host         string
	Timeout      time.Duration
	Season       int
	Timezone     string
	CallInterval time.Duration // minimum spacing between outbound calls
	MaxRetries   int           // extra attempts after the first
	RetryDelay   time.Duration // first backoff, doubled per retry
	Quota        *DailyQuota
	Cache        cache.Cache
	Leagues      *models.LeagueCatalog
	HTTPClient   *http.Client
}

// Client is the API-Football client. All calls share one throttle, one daily
// quota and one memo cache.
type Client struct {
	baseURL    string
	apiKey     string
	host       string
	season     int
	timezone   string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	quota      *DailyQuota
	cache      cache.Cache
	leagues    *models.LeagueCatalog
}

// NewClient creates a client. Unset options fall back to the production defaults.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	host := opts.Host
	if host == "" {
		host = DefaultHost
	}
	timezone := opts.Timezone
	if timezone == "" {
		timezone = "Europe/Rome"
	}
	season := opts.Season
	if season == 0 {
		season = 2024
	}
	quota := opts.Quota
	if quota == nil {
		quota = NewDailyQuota(7500, nil)
	}
	memo := opts.Cache
	if memo == nil {
		memo = cache.NewMemoryCache()
	}
	leagues := opts.Leagues
	if leagues == nil {
		leagues = models.DefaultLeagueCatalog()
	}

	limit := rate.Inf
	if opts.CallInterval > 0 {
		limit = rate.Every(opts.CallInterval)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		host:       host,
		season:     season,
		timezone:   timezone,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: max(opts.MaxRetries, 0),
		retryDelay: opts.RetryDelay,
		quota:      quota,
		cache:      memo,
		leagues:    leagues,
	}
}

// Quota returns the client's daily quota
func (c *Client) Quota() *DailyQuota {
	return c.quota
}

// Leagues returns the monitored league catalog
func (c *Client) Leagues() *models.LeagueCatalog {
	return c.leagues
}

// Request performs a GET against endpoint. It fails fast with
// ErrQuotaExceeded when today's ceiling is reached, waits for the shared
// throttle before every attempt, and retries transport failures with
// doubling backoff. Only a successful call is counted against the quota.
func (c *Client) Request(ctx context.Context, endpoint string, params map[string]string) (*Envelope, error) {
	if err := c.quota.Check(); err != nil {
		metrics.RecordError("client", "quota_exceeded")
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(endpoint, "/"))
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Err(lastErr).
				Msg("Retrying API request after backoff")
			metrics.RecordAPIRetry(endpoint)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		env, err := c.do(ctx, endpoint, reqURL, attempt)
		if err == nil {
			used := c.quota.Record()
			log.Debug().
				Str("endpoint", endpoint).
				Int("results", env.Results).
				Int("quota_used", used).
				Int("quota_limit", c.quota.Limit()).
				Msg("API request successful")
			if env.HasErrors() {
				log.Warn().
					Str("endpoint", endpoint).
					RawJSON("errors", env.Errors).
					Msg("API reported errors")
			}
			return env, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}

	metrics.RecordError("client", "transport")
	return nil, &TransportError{Endpoint: endpoint, Attempts: c.maxRetries + 1, Err: lastErr}
}

func (c *Client) do(ctx context.Context, endpoint, reqURL string, attempt int) (*Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	log.Debug().
		Str("endpoint", endpoint).
		Int("attempt", attempt+1).
		Msg("Making API request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(endpoint, "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.RecordAPICall(endpoint, fmt.Sprintf("%d", resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &env, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
