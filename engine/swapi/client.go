// Package swapi builds embeddable documents from the public Star Wars API:
// it fetches every collection, resolves cross references to display names
// and flattens each entity into a text document.
package swapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/WessleyAI/holocron/engine/domain"
	"github.com/WessleyAI/holocron/pkg/fn"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public catalog root.
const DefaultBaseURL = "https://swapi.dev/api"

// StatusError is returned for a non-200 page response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("swapi: GET %s: status %d", e.URL, e.Code)
}

// retryable retries transport errors and 5xx responses only.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Retry             fn.RetryOpts
	HTTPClient        *http.Client
}

// Client pages through catalog collections.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	retry       fn.RetryOpts
	logger      *slog.Logger
}

// NewClient creates a catalog client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = fn.DefaultRetry
	}
	opts.Retry.Retryable = retryable
	opts.Retry.OnRetry = func(attempt int, err error) {
		logger.Warn("swapi: retrying page", "attempt", attempt, "err", err)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		httpClient:  hc,
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		retry:       opts.Retry,
		logger:      logger,
	}
}

type page struct {
	Next    *string          `json:"next"`
	Results []map[string]any `json:"results"`
}

// FetchAll follows the "next" pointer until it is null and returns every
// entity of the collection with its id parsed from the self reference.
func (c *Client) FetchAll(ctx context.Context, t domain.EntityType) ([]domain.Entity, error) {
	var out []domain.Entity
	next := c.baseURL + "/" + string(t) + "/"
	pages := 0
	for next != "" {
		url := next
		p, err := fn.Retry(ctx, c.retry, func(ctx context.Context) fn.Result[page] {
			return c.fetchPage(ctx, url)
		}).Unwrap()
		if err != nil {
			return nil, fmt.Errorf("swapi: fetch %s: %w", t, err)
		}
		pages++
		for _, item := range p.Results {
			self, _ := item["url"].(string)
			typ, id, ok := domain.ParseReference(self)
			if !ok || typ != t {
				c.logger.Warn("swapi: skipping item without self reference", "type", t, "url", self)
				continue
			}
			out = append(out, domain.Entity{ID: id, Type: t, Raw: item})
		}
		next = ""
		if p.Next != nil {
			next = *p.Next
		}
	}
	c.logger.Info("swapi: collection fetched", "type", t, "pages", pages, "entities", len(out))
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, url string) fn.Result[page] {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fn.Err[page](err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fn.Err[page](err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fn.Err[page](err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fn.Err[page](&StatusError{URL: url, Code: resp.StatusCode})
	}
	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return fn.Errf[page]("swapi: decode %s: %w", url, err)
	}
	return fn.Ok(p)
}
