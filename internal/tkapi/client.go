package tkapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tommyvanderwal/motiematcher-sub000/internal/ratelimit"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/telemetry"
)

// Limiter keys. Entity queries and resource downloads hit different backend
// paths and are throttled independently.
const (
	limitKeyOData    = "odata"
	limitKeyResource = "resource"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the OData API root, without a trailing slash.
	BaseURL string

	// UserAgent identifies the pipeline to the API operator.
	UserAgent string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with Timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual requests. Defaults to 45 seconds.
	Timeout time.Duration

	// Limiter throttles outgoing requests. If nil, no throttling is applied.
	Limiter ratelimit.Limiter

	// Budget caps logical API calls for the run. Nil means unlimited.
	Budget *Budget

	// RetryMax is the number of attempts per request. Defaults to 5.
	RetryMax int

	// RetryBase is the backoff base delay. Defaults to 400ms.
	RetryBase time.Duration

	// Pause is an unconditional sleep after each completed request, a
	// courtesy gap on top of the limiter. Zero disables it.
	Pause time.Duration

	Logger *slog.Logger
}

// Client talks to the Tweede Kamer OData API. All methods are safe for
// concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   ratelimit.Limiter
	budget    *Budget
	retryMax  int
	retryBase time.Duration
	pause     time.Duration
	logger    *slog.Logger

	requests metric.Int64Counter
	retries  metric.Int64Counter
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("tkapi: BaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}

	retryMax := cfg.RetryMax
	if retryMax <= 0 {
		retryMax = 5
	}
	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = 400 * time.Millisecond
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	meter := telemetry.Meter("tkapi")
	requests, _ := meter.Int64Counter("tkapi.requests",
		metric.WithDescription("Completed API requests, by endpoint kind and status"))
	retries, _ := meter.Int64Counter("tkapi.retries",
		metric.WithDescription("Retried API attempts"))

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client:    httpClient,
		limiter:   limiter,
		budget:    cfg.Budget,
		retryMax:  retryMax,
		retryBase: retryBase,
		pause:     cfg.Pause,
		logger:    logger,
		requests:  requests,
		retries:   retries,
	}, nil
}

// Budget returns the client's call budget (may be nil).
func (c *Client) Budget() *Budget { return c.budget }

// Query holds OData query options for a collection request.
type Query struct {
	Filter  string
	OrderBy string
	Expand  string
	Top     int
	Skip    int
}

func (q Query) encode() string {
	params := url.Values{}
	if q.Filter != "" {
		params.Set("$filter", q.Filter)
	}
	if q.OrderBy != "" {
		params.Set("$orderby", q.OrderBy)
	}
	if q.Expand != "" {
		params.Set("$expand", q.Expand)
	}
	if q.Top > 0 {
		params.Set("$top", strconv.Itoa(q.Top))
	}
	if q.Skip > 0 {
		params.Set("$skip", strconv.Itoa(q.Skip))
	}
	return params.Encode()
}

// List fetches one page of an entity collection and returns the raw response
// body (the {"value":[...]} envelope) verbatim, so callers can persist it
// unmodified. Consumes one budget call.
func (c *Client) List(ctx context.Context, entity string, q Query) ([]byte, error) {
	if !c.budget.TryAcquire() {
		return nil, ErrBudgetExhausted
	}
	target := c.baseURL + "/" + entity
	if encoded := q.encode(); encoded != "" {
		target += "?" + encoded
	}
	body, _, err := c.do(ctx, target, limitKeyOData)
	return body, err
}

// ListValues fetches one page and unwraps the envelope's value array.
func (c *Client) ListValues(ctx context.Context, entity string, q Query) (json.RawMessage, error) {
	body, err := c.List(ctx, entity, q)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("tkapi: decode %s envelope: %w", entity, err)
	}
	return envelope.Value, nil
}

// GetByID fetches a single entity by GUID, optionally expanding relations.
// A missing entity is reported as a *Error with status 404, recognizable
// via IsNotFound. Consumes one budget call.
func (c *Client) GetByID(ctx context.Context, entity, id, expand string) (json.RawMessage, error) {
	values, err := c.ListValues(ctx, entity, Query{
		Filter: "Id eq " + id,
		Expand: expand,
		Top:    1,
	})
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(values, &items); err != nil {
		return nil, fmt.Errorf("tkapi: decode %s list: %w", entity, err)
	}
	if len(items) == 0 {
		return nil, &Error{
			StatusCode: http.StatusNotFound,
			URL:        entity + "/" + id,
			Message:    "entity not found",
		}
	}
	return items[0], nil
}

// Resource downloads the binary body of a publication resource, returning
// the payload and its Content-Type. Consumes one budget call.
func (c *Client) Resource(ctx context.Context, publicationID string) ([]byte, string, error) {
	if !c.budget.TryAcquire() {
		return nil, "", ErrBudgetExhausted
	}
	target := c.baseURL + "/DocumentPublicatie(" + publicationID + ")/Resource"
	return c.do(ctx, target, limitKeyResource)
}

// do runs one logical request with rate limiting and jittered exponential
// backoff on transient failures. Budget must already be acquired.
func (c *Client) do(ctx context.Context, target, limitKey string) ([]byte, string, error) {
	var lastErr error
	for attempt := 0; attempt < c.retryMax; attempt++ {
		if attempt > 0 {
			c.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", limitKey)))
			if err := sleepCtx(ctx, backoff(c.retryBase, attempt)); err != nil {
				return nil, "", err
			}
		}
		if err := ratelimit.Wait(ctx, c.limiter, limitKey); err != nil {
			return nil, "", err
		}

		body, contentType, err := c.once(ctx, target, limitKey)
		if err == nil {
			return body, contentType, nil
		}
		lastErr = err

		var apiErr *Error
		if errors.As(err, &apiErr) && !retryable(apiErr.StatusCode) {
			return nil, "", err
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		c.logger.Warn("api request failed, retrying",
			"url", target,
			"attempt", attempt+1,
			"error", err)
	}
	return nil, "", fmt.Errorf("tkapi: giving up after %d attempts: %w", c.retryMax, lastErr)
}

func (c *Client) once(ctx context.Context, target, limitKey string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("tkapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("tkapi: GET %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", limitKey),
		attribute.Int("status", resp.StatusCode),
	))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("tkapi: read response: %w", err)
	}

	if c.pause > 0 {
		if err := sleepCtx(ctx, c.pause); err != nil {
			return nil, "", err
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "", &Error{
			StatusCode: resp.StatusCode,
			URL:        target,
			Message:    snippet(body),
		}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// backoff returns the jittered exponential delay for the given attempt (1-based
// retry count). attempt 1 → ~base, attempt 2 → ~2*base, capped at 30s.
func backoff(base time.Duration, attempt int) time.Duration {
	delay := base << (attempt - 1)
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	// Up to 50% jitter to avoid thundering retries.
	return delay + rand.N(delay/2+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func snippet(body []byte) string {
	const max = 512
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max]
	}
	return s
}
