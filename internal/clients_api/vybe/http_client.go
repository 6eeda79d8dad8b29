package vybe

// Package vybe contains the client for the Vybe Network API.
// This file is the transport layer: rate limiting, circuit breaking,
// retries and response size capping around plain GET requests. It
// knows nothing about alert logic.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	logging "vybe-pulse/internal/infra/log"
	"vybe-pulse/internal/infra/retry"
	"vybe-pulse/internal/tracker"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production Vybe Network API.
const DefaultBaseURL = "https://api.vybenetwork.xyz"

// Options configures a Client.
type Options struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration // per-request HTTP timeout
	MaxRetries     int           // attempts beyond the first
	// WhaleLookback is the fetch window for token large-transaction
	// queries. Normally one whale-alert interval.
	WhaleLookback time.Duration
}

// Client is a Vybe Network API client. Safe for concurrent use.
type Client struct {
	baseURL         string
	apiKey          string
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	circuitBreaker  *gobreaker.CircuitBreaker
	retryOpts       retry.Options
	maxResponseSize int64
	whaleLookback   time.Duration
	clock           func() time.Time
}

var _ tracker.DataSource = (*Client)(nil)

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.WhaleLookback <= 0 {
		opts.WhaleLookback = 2 * time.Minute
	}

	return &Client{
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		// 10 rps, burst 20: stays under the provider's per-key limit
		// even with several fetch workers in flight.
		rateLimiter: rate.NewLimiter(rate.Limit(10), 20),
		circuitBreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "VybeAPI",
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
		retryOpts: retry.Options{
			MaxRetries: opts.MaxRetries,
			BaseDelay:  300 * time.Millisecond,
			MaxDelay:   5 * time.Second,
		},
		maxResponseSize: 10 * 1024 * 1024,
		whaleLookback:   opts.WhaleLookback,
		clock:           time.Now,
		httpClient: &http.Client{
			Timeout: opts.RequestTimeout,
			Transport: &http.Transport{
				DisableKeepAlives: false,
				MaxIdleConns:      10,
				IdleConnTimeout:   90 * time.Second,
			},
		},
	}
}

// get performs a retried GET and classifies terminal failures:
// transient exhaustion and breaker rejections surface as
// tracker.ErrProviderUnavailable so the scheduler skips the entity for
// the tick; permanent API errors pass through unchanged.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, c.retryOpts, func() error {
		b, reqErr := c.makeRequest(ctx, endpoint)
		if reqErr != nil {
			return reqErr
		}
		body = b
		return nil
	})
	if err == nil {
		return body, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	var he *retry.HTTPError
	if errors.As(err, &he) && !retry.IsRetryable(err) {
		// 4xx other than 429: the provider answered, retrying or
		// skipping won't help.
		return nil, fmt.Errorf("vybe API error: GET %s: %w", endpoint, err)
	}
	return nil, fmt.Errorf("%w: GET %s: %v", tracker.ErrProviderUnavailable, endpoint, err)
}

// makeRequest executes a single attempt through the rate limiter and
// circuit breaker.
func (c *Client) makeRequest(ctx context.Context, endpoint string) ([]byte, error) {
	requestID := logging.GenerateRequestID()
	startTime := time.Now()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, requestID, endpoint, startTime)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.LogWarn("Circuit breaker rejected request",
				zap.String("request_id", requestID),
				zap.String("endpoint", endpoint))
		}
		return nil, err
	}
	return result.([]byte), nil
}

func (c *Client) doRequest(ctx context.Context, requestID, endpoint string, startTime time.Time) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	logging.LogRequest(requestID, http.MethodGet, endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.LogResponse(requestID, 0, time.Since(startTime).Milliseconds(),
			zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	duration := time.Since(startTime).Milliseconds()
	if err != nil {
		logging.LogResponse(requestID, resp.StatusCode, duration,
			zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.LogResponse(requestID, resp.StatusCode, duration,
			zap.String("endpoint", endpoint))
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	logging.LogResponse(requestID, resp.StatusCode, duration,
		zap.String("endpoint", endpoint))
	return respBody, nil
}
