// Package ai holds the model backend clients and the shared request
// and reply shapes the router speaks. Backends are plain REST clients:
// each carries its own rate limiter and retry budget so one slow
// provider never throttles another.
package ai

import (
	"context"
	"time"
)

// Tier orders backends by cost.
type Tier int

const (
	TierCheap Tier = iota
	TierAccurate
)

func (t Tier) String() string {
	if t == TierAccurate {
		return "accurate"
	}
	return "cheap"
}

// Media is one image attached to a request.
type Media struct {
	MIME string
	Data []byte
}

// Request is a single classification call.
type Request struct {
	System    string
	Prompt    string
	Media     []Media
	MaxTokens int
}

// Reply is the raw backend answer plus its billable unit counts.
type Reply struct {
	Text        string
	InputUnits  int64
	OutputUnits int64
}

// Backend is one model provider. Invoke blocks until the reply arrives,
// the context ends, or the retry budget is spent.
type Backend interface {
	Name() string
	Tier() Tier
	// Available reports whether credentials are configured. The router
	// falls through unavailable backends instead of calling them.
	Available() bool
	Invoke(ctx context.Context, req Request) (*Reply, error)
}

// ClientConfig configures one backend client. Zero values fall back to
// per-client defaults.
type ClientConfig struct {
	Model           string
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
	RequestInterval time.Duration
	MaxRetries      int
}

const (
	defaultTimeout     = 60 * time.Second
	defaultMaxRetries  = 3
	defaultBaseBackoff = 1 * time.Second
	defaultMaxTokens   = 2048
)

// retryableError marks an error worth another attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable walks the error chain looking for a retryable marker.
func isRetryable(err error) bool {
	for e := err; e != nil; {
		if _, ok := e.(*retryableError); ok {
			return true
		}
		if unwrapper, ok := e.(interface{ Unwrap() error }); ok {
			e = unwrapper.Unwrap()
		} else {
			break
		}
	}
	return false
}
