// Package shopify is a minimal Admin REST API client covering the
// catalog surface the toolkit touches: paginated product scans, single
// product fetch and update, and inventory levels. Every request flows
// through one rate limiter sized for the standard API bucket, and
// transient failures retry with Fibonacci backoff before surfacing.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	retry "github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

const (
	defaultAPIVersion = "2024-01"
	defaultTimeout    = 30 * time.Second
	defaultBackoff    = 500 * time.Millisecond
	defaultMaxRetries = 4

	// The standard Admin API bucket refills at 2 requests/second;
	// 550ms keeps a safety margin under sustained scans.
	defaultRequestInterval = 550 * time.Millisecond
)

// Config wires a Client. Zero values fall back to defaults; Store and
// AccessToken are required.
type Config struct {
	Store       string // "my-shop" or "my-shop.myshopify.com"
	AccessToken string
	APIVersion  string
	BaseURL     string // overrides the store-derived URL, for tests
	Timeout     time.Duration

	RequestInterval time.Duration
	MaxRetries      int
	Logger          *slog.Logger
}

// Client talks to one store's Admin API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries uint64
	log        *slog.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" && cfg.Store == "" {
		return nil, errors.New("shopify store is not configured")
	}
	if cfg.AccessToken == "" {
		return nil, errors.New("shopify access token is not configured")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestInterval == 0 {
		cfg.RequestInterval = defaultRequestInterval
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		host := cfg.Store
		if !strings.Contains(host, ".") {
			host += ".myshopify.com"
		}
		baseURL = fmt.Sprintf("https://%s/admin/api/%s", host, cfg.APIVersion)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      cfg.AccessToken,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		maxRetries: uint64(cfg.MaxRetries),
		log:        cfg.Logger,
	}, nil
}

// FromEnv builds a client from SHOPIFY_STORE and SHOPIFY_ACCESS_TOKEN.
// A missing credential is a configuration error: the caller is expected
// to report it and exit before any batch work starts.
func FromEnv(logger *slog.Logger) (*Client, error) {
	store := os.Getenv("SHOPIFY_STORE")
	token := os.Getenv("SHOPIFY_ACCESS_TOKEN")
	if store == "" {
		return nil, errors.New("SHOPIFY_STORE is not set")
	}
	if token == "" {
		return nil, errors.New("SHOPIFY_ACCESS_TOKEN is not set")
	}
	return NewClient(Config{Store: store, AccessToken: token, Logger: logger})
}

// APIError is a non-2xx response that retrying cannot fix.
type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Path, e.Status, e.Body)
}

// do runs one API call with rate limiting and transient-error retries.
// 429 and 5xx responses retry; other non-2xx statuses return an
// *APIError immediately.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
	}

	b := retry.NewFibonacci(defaultBackoff)
	return retry.Do(ctx, retry.WithMaxRetries(c.maxRetries, b), func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build request %s %s: %w", method, path, err)
		}
		req.Header.Set("X-Shopify-Access-Token", c.token)
		req.Header.Set("Accept", "application/json")
		if len(payload) > 0 {
			req.Header.Set("Content-Type", "application/json")
		}
		if len(query) > 0 {
			req.URL.RawQuery = query.Encode()
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("request %s %s: %w", method, path, err))
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read %s response: %w", path, err))
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			c.log.Warn("rate limited", "path", path, "retry_after", resp.Header.Get("Retry-After"))
			c.waitRetryAfter(ctx, resp.Header.Get("Retry-After"))
			return retry.RetryableError(fmt.Errorf("rate limited on %s", path))
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("server error %d on %s", resp.StatusCode, path))
		case resp.StatusCode >= 400:
			return &APIError{Status: resp.StatusCode, Path: path, Body: trimBody(data)}
		}

		if out != nil {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decode %s response: %w", path, err)
			}
		}
		return nil
	})
}

// waitRetryAfter sleeps out the server-requested pause so the next
// attempt is not wasted on a still-empty bucket.
func (c *Client) waitRetryAfter(ctx context.Context, header string) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(header), 64)
	if err != nil || secs <= 0 {
		return
	}
	select {
	case <-time.After(time.Duration(secs * float64(time.Second))):
	case <-ctx.Done():
	}
}

func trimBody(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}
