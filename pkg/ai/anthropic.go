package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultClaudeModel   = "claude-sonnet-4-20250514"
	defaultClaudeBaseURL = "https://api.anthropic.com"
	defaultClaudeInterval = 1 * time.Second
)

// Claude is the accurate-tier backend over the Anthropic Messages API.
type Claude struct {
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

// NewClaude builds a Claude client. An empty API key yields a client
// that reports itself unavailable rather than an error; the router
// handles the fallthrough.
func NewClaude(cfg ClientConfig) *Claude {
	model := cfg.Model
	if model == "" {
		model = defaultClaudeModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultClaudeBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	interval := cfg.RequestInterval
	if interval <= 0 {
		interval = defaultClaudeInterval
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Claude{
		model:   model,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		maxRetries: maxRetries,
	}
}

func (c *Claude) Name() string { return "claude" }

func (c *Claude) Tier() Tier { return TierAccurate }

func (c *Claude) Available() bool { return c.apiKey != "" }

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type   string             `json:"type"`
	Text   string             `json:"text,omitempty"`
	Source *claudeImageSource `json:"source,omitempty"`
}

type claudeImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

type claudeError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke sends one classification request, retrying transient failures
// with exponential backoff.
func (c *Claude) Invoke(ctx context.Context, req Request) (*Reply, error) {
	if !c.Available() {
		return nil, fmt.Errorf("claude backend not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	content := make([]claudeContent, 0, len(req.Media)+1)
	for _, m := range req.Media {
		content = append(content, claudeContent{
			Type: "image",
			Source: &claudeImageSource{
				Type:      "base64",
				MediaType: m.MIME,
				Data:      base64.StdEncoding.EncodeToString(m.Data),
			},
		})
	}
	content = append(content, claudeContent{Type: "text", Text: req.Prompt})

	body := claudeRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Temperature: 0.2,
		Messages:    []claudeMessage{{Role: "user", Content: content}},
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		reply, err := c.doRequest(ctx, body)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Claude) doRequest(ctx context.Context, body claudeRequest) (*Reply, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &retryableError{err: fmt.Errorf("rate limited (429)")}
	}
	if resp.StatusCode >= 500 {
		return nil, &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, string(respBody))}
	}
	if resp.StatusCode != http.StatusOK {
		var errResp claudeError
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var parsed claudeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return nil, fmt.Errorf("empty response from API")
	}

	return &Reply{
		Text:        parsed.Content[0].Text,
		InputUnits:  parsed.Usage.InputTokens,
		OutputUnits: parsed.Usage.OutputTokens,
	}, nil
}

var _ Backend = (*Claude)(nil)
