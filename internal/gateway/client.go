package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/physbench/physbench/internal/cache"
	"github.com/physbench/physbench/internal/metrics"
	"github.com/physbench/physbench/internal/models"
	"github.com/physbench/physbench/internal/utils"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client calls an OpenAI-compatible chat completions endpoint (OpenRouter
// by default) for a single model.
type Client struct {
	model        string
	apiKey       string
	apiURL       string
	systemPrompt string
	maxTokens    int
	retry        RetryConfig

	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.ResponseCache
	metrics    *metrics.Collectors
	logger     *slog.Logger

	sleep      func(context.Context, time.Duration) error
	newBackOff func(initial time.Duration) backoff.BackOff
}

var _ Invoker = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

func WithAPIURL(url string) ClientOption {
	return func(c *Client) { c.apiURL = url }
}

// WithRetryConfig sets the retry policy.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

// WithDefaultSystemPrompt sets the role prompt sent with every call.
func WithDefaultSystemPrompt(prompt string) ClientOption {
	return func(c *Client) { c.systemPrompt = prompt }
}

func WithMaxTokens(n int) ClientOption {
	return func(c *Client) { c.maxTokens = n }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimiter throttles attempts. The limiter may be shared between
// clients to cap the total request rate of a run.
func WithRateLimiter(l *rate.Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// WithResponseCache serves repeated identical requests from disk.
func WithResponseCache(rc *cache.ResponseCache) ClientOption {
	return func(c *Client) { c.cache = rc }
}

func WithMetrics(m *metrics.Collectors) ClientOption {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for model.
func NewClient(model, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		model:      model,
		apiKey:     apiKey,
		apiURL:     models.DefaultAPIURL,
		maxTokens:  models.DefaultMaxTokens,
		retry:      DefaultRetryConfig(),
		httpClient: &http.Client{},
		sleep:      sleepContext,
		newBackOff: newBackOff,
	}
	for _, o := range opts {
		o(c)
	}
	c.retry = c.retry.normalized()
	c.logger = utils.Component(c.logger, "gateway").With("model", model)
	return c
}

// Model returns the backend model id.
func (c *Client) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type responseFormat struct {
	Type       string           `json:"type"`
	JSONSchema jsonSchemaFormat `json:"json_schema"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Invoke runs the retry state machine: an attempt that succeeds returns at
// once, a transient failure backs off and retries, and any other failure or
// an exhausted budget returns an *APIError. Context cancellation is
// returned as the context error.
func (c *Client) Invoke(ctx context.Context, prompt string, opts ...CallOption) (string, time.Duration, error) {
	callOpts := ResolveCallOptions(opts...)
	systemPrompt := c.systemPrompt
	if callOpts.SystemPrompt != nil {
		systemPrompt = *callOpts.SystemPrompt
	}

	body, err := c.buildRequest(systemPrompt, prompt, callOpts.Schema)
	if err != nil {
		return "", 0, &APIError{Model: c.model, Message: err.Error(), Kind: KindFatal, Err: err}
	}

	cacheKey := ""
	if c.cache != nil {
		var schemaJSON []byte
		if callOpts.Schema != nil {
			schemaJSON, _ = json.Marshal(callOpts.Schema)
		}
		cacheKey, err = cache.Key(c.model, systemPrompt, prompt, schemaJSON)
		if err == nil {
			if entry, ok := c.cache.Get(cacheKey); ok {
				c.metrics.RecordRequest(c.model, metrics.OutcomeCached, 0)
				c.logger.Debug("cache_hit")
				return entry.Text, entry.Elapsed, nil
			}
		}
	}

	start := time.Now()
	bo := c.newBackOff(c.retry.InitialBackoff)
	var delay time.Duration
	var last *APIError

	for attempt := 1; attempt <= c.retry.MaxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", 0, contextErr(ctx, err)
			}
		}

		attemptStart := time.Now()
		text, apiErr := c.attempt(ctx, body)
		if apiErr == nil {
			elapsed := time.Since(start)
			c.metrics.RecordRequest(c.model, metrics.OutcomeSuccess, time.Since(attemptStart))
			c.logger.Info("request_succeeded",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", c.retry.MaxRetries),
				slog.Duration("elapsed", elapsed))
			if cacheKey != "" {
				if err := c.cache.Put(cacheKey, &cache.Entry{Model: c.model, Text: text, Elapsed: elapsed, CreatedAt: time.Now()}); err != nil {
					c.logger.Warn("cache_put_failed", slog.String("error", err.Error()))
				}
			}
			return text, elapsed, nil
		}

		if ctx.Err() != nil {
			return "", 0, ctx.Err()
		}

		apiErr.Attempts = attempt
		last = apiErr
		if apiErr.Kind == KindFatal {
			c.metrics.RecordRequest(c.model, metrics.OutcomeFatal, 0)
			c.logger.Error("request_failed",
				slog.Int("attempt", attempt),
				slog.Int("status", apiErr.StatusCode),
				slog.String("error", apiErr.Message))
			return "", 0, apiErr
		}

		c.metrics.RecordRequest(c.model, metrics.OutcomeTransient, 0)
		if attempt == c.retry.MaxRetries {
			break
		}

		c.metrics.RecordRetry(c.model)
		delay = nextDelay(bo, c.retry.InitialBackoff, delay)
		c.logger.Warn("transient_error",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.retry.MaxRetries),
			slog.Int("status", apiErr.StatusCode),
			slog.String("error", apiErr.Message),
			slog.Duration("backoff", delay))

		if err := c.sleep(ctx, delay); err != nil {
			return "", 0, err
		}
	}

	c.logger.Error("max_retries_exceeded", slog.Int("max_attempts", c.retry.MaxRetries))
	return "", 0, &APIError{
		Model:      c.model,
		StatusCode: last.StatusCode,
		Message:    fmt.Sprintf("failed to get a successful response from %s after %d attempts: %s", c.model, c.retry.MaxRetries, last.Message),
		Kind:       KindFatal,
		Attempts:   c.retry.MaxRetries,
		Err:        last,
	}
}

func (c *Client) buildRequest(systemPrompt, prompt string, schema *ResponseSchema) ([]byte, error) {
	req := chatRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
	}
	if systemPrompt != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt})
	if schema != nil {
		req.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchemaFormat{
				Name:   schema.Name,
				Strict: true,
				Schema: schema.Schema,
			},
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	return body, nil
}

// attempt performs one HTTP round trip under the request timeout and
// classifies its outcome.
func (c *Client) attempt(ctx context.Context, body []byte) (string, *APIError) {
	attemptCtx := ctx
	if c.retry.RequestTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.retry.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", &APIError{Model: c.model, Message: err.Error(), Kind: KindFatal, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors and request timeouts are transient.
		return "", &APIError{Model: c.model, Message: fmt.Sprintf("network error: %v", err), Kind: KindTransient, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		kind := KindFatal
		if transientStatus(resp.StatusCode) {
			kind = KindTransient
		}
		return "", &APIError{
			Model:      c.model,
			StatusCode: resp.StatusCode,
			Message:    ParseErrorMessage(data),
			Kind:       kind,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &APIError{Model: c.model, Message: fmt.Sprintf("reading response: %v", err), Kind: KindTransient, Err: err}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &APIError{Model: c.model, StatusCode: resp.StatusCode, Message: fmt.Sprintf("decoding response: %v", err), Kind: KindFatal, Err: err}
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", &APIError{Model: c.model, StatusCode: resp.StatusCode, Message: ParseErrorMessage(data), Kind: KindFatal}
	}
	if len(parsed.Choices) == 0 {
		return "", &APIError{Model: c.model, StatusCode: resp.StatusCode, Message: "response contained no choices", Kind: KindFatal}
	}
	return parsed.Choices[0].Message.Content, nil
}

func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &APIError{Message: err.Error(), Kind: KindFatal, Err: err}
}
