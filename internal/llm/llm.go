// Package llm talks to hosted chat-completion APIs. Clients share one retry,
// rate-limit and latency-tracking path; CachedClient adds a reply cache in
// front of any Client.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Provider names a hosted API.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Request is one single-turn completion.
type Request struct {
	System      string
	User        string
	JSON        bool // Ask for a bare JSON object reply.
	Temperature float64
	MaxTokens   int
}

// Client completes a request and returns the reply text.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Options configure a hosted client.
type Options struct {
	Provider          Provider
	APIKey            string
	Model             string
	BaseURL           string // Overrides the provider endpoint (tests, proxies).
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerSecond float64 // <= 0 disables limiting.
	MaxRetries        int
	Logger            *slog.Logger
}

// HostedClient is a Client with latency stats and a model name.
type HostedClient interface {
	Client
	Model() string
	LatencyStats() *Stats
	Close()
}

// New builds the client for opts.Provider.
func New(opts Options) (HostedClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("llm: api key required for provider %q", opts.Provider)
	}
	switch opts.Provider {
	case ProviderAnthropic, "":
		return NewClaudeClient(opts), nil
	case ProviderOpenAI:
		return NewOpenAIClient(opts), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", opts.Provider)
	}
}

// transport is the part every hosted client shares.
type transport struct {
	model      string
	maxTokens  int
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    func(attempt int) time.Duration
	stats      *Stats
	log        *slog.Logger
}

func newTransport(opts Options, defaultModel string) transport {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return transport{
		model:      opts.Model,
		maxTokens:  opts.MaxTokens,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    limiter,
		maxRetries: max(opts.MaxRetries, 0),
		backoff:    Backoff,
		stats:      NewStats(time.Hour),
		log:        opts.Logger.With("component", "llm", "model", opts.Model),
	}
}

// Model returns the configured model name.
func (t *transport) Model() string { return t.model }

// LatencyStats returns the rolling latency tracker.
func (t *transport) LatencyStats() *Stats { return t.stats }

// Close releases idle connections.
func (t *transport) Close() { t.httpClient.CloseIdleConnections() }

// call runs send under the rate limiter, retrying RetryableError failures
// with backoff.
func (t *transport) call(ctx context.Context, send func(context.Context) (string, error)) (string, error) {
	for attempt := 0; ; attempt++ {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limit wait: %w", err)
			}
		}

		start := time.Now()
		out, err := send(ctx)
		t.stats.Record(time.Since(start), err)
		if err == nil {
			return out, nil
		}
		if !IsRetryable(err) || attempt >= t.maxRetries {
			return "", err
		}

		delay := t.backoff(attempt)
		t.log.Warn("llm call failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
}
