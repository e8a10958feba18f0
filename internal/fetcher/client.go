package fetcher

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const columnPath = "/data/column"

// SeriesFetcher retrieves the raw time-series payload for one indicator.
type SeriesFetcher interface {
	Fetch(ctx context.Context, indicatorID string) (json.RawMessage, error)
}

// Options parameterise the time-series API client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	Retries     int
	BackoffBase time.Duration
	Insecure    bool
	UserAgent   string
	Concurrency int
}

// Client talks to the time-series API with bounded retry.
type Client struct {
	opts    Options
	policy  RetryPolicy
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs an API client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")

	httpClient := &http.Client{Timeout: timeout}
	if opts.Insecure {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	return &Client{
		opts: opts,
		policy: RetryPolicy{
			MaxRetries:  opts.Retries,
			BackoffBase: opts.BackoffBase,
			Retryable:   DefaultRetryable,
		},
		logger:  logger.With().Str("component", "fetcher").Logger(),
		client:  httpClient,
		baseURL: baseURL,
	}
}

// Fetch retrieves the raw payload for one indicator, retrying transient
// failures under the client's policy.
func (c *Client) Fetch(ctx context.Context, indicatorID string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, columnPath, url.Values{"fields": {indicatorID}}.Encode())

	policy := c.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.logger.Warn().
			Str("indicator_id", indicatorID).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(err).
			Msg("transient fetch failure, will retry")
	}

	var payload json.RawMessage
	err := policy.Do(ctx, func() error {
		body, err := c.doRequest(ctx, endpoint)
		if err != nil {
			return err
		}
		payload = body
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch indicator %s: %w", indicatorID, err)
	}
	return payload, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "trendwatch/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return json.RawMessage(body), nil
}

// Result pairs an indicator with its fetched payload.
type Result struct {
	IndicatorID string
	Payload     json.RawMessage
}

// Failure records an indicator whose fetch ultimately failed.
type Failure struct {
	IndicatorID string
	Err         error
}

// FetchAll fans out across indicators with a bounded worker count. Failures
// are collected per indicator and never cancel sibling fetches. Results are
// returned in the input order for a deterministic downstream fold.
func (c *Client) FetchAll(ctx context.Context, indicatorIDs []string) ([]Result, []Failure) {
	payloads := make([]json.RawMessage, len(indicatorIDs))
	errs := make([]error, len(indicatorIDs))

	g := &errgroup.Group{}
	g.SetLimit(c.opts.Concurrency)

	for i, id := range indicatorIDs {
		g.Go(func() error {
			payloads[i], errs[i] = c.Fetch(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	results := make([]Result, 0, len(indicatorIDs))
	failures := make([]Failure, 0)
	for i, id := range indicatorIDs {
		if errs[i] != nil {
			c.logger.Error().Str("indicator_id", id).Err(errs[i]).Msg("fetch failed")
			failures = append(failures, Failure{IndicatorID: id, Err: errs[i]})
			continue
		}
		results = append(results, Result{IndicatorID: id, Payload: payloads[i]})
	}
	sort.SliceStable(failures, func(a, b int) bool { return failures[a].IndicatorID < failures[b].IndicatorID })
	return results, failures
}

var _ SeriesFetcher = (*Client)(nil)
