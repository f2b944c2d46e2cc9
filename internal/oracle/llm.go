package oracle

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgallion1/docnav/internal/llm"
	"github.com/dgallion1/docnav/internal/metrics"
)

// DefaultTemperature keeps navigation close to deterministic.
const DefaultTemperature = 0.1

// LLMOracle asks a chat-completion model for decisions and answers.
type LLMOracle struct {
	client      llm.Client
	temperature float64
	maxTokens   int
	metrics     *metrics.Metrics
	log         *slog.Logger
}

// LLMOption customizes an LLMOracle.
type LLMOption func(*LLMOracle)

// WithTemperature overrides DefaultTemperature.
func WithTemperature(t float64) LLMOption {
	return func(o *LLMOracle) { o.temperature = t }
}

// WithMaxTokens caps reply length.
func WithMaxTokens(n int) LLMOption {
	return func(o *LLMOracle) { o.maxTokens = n }
}

// WithMetrics records each round-trip.
func WithMetrics(m *metrics.Metrics) LLMOption {
	return func(o *LLMOracle) { o.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) LLMOption {
	return func(o *LLMOracle) { o.log = l }
}

// NewLLMOracle wraps client.
func NewLLMOracle(client llm.Client, opts ...LLMOption) *LLMOracle {
	o := &LLMOracle{
		client:      client,
		temperature: DefaultTemperature,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Navigate requests a JSON decision. Transport failures become
// *UnavailableError; malformed replies become *ParseError.
func (o *LLMOracle) Navigate(ctx context.Context, nc NavigationContext) (Decision, error) {
	reply, err := o.complete(ctx, "navigate", llm.Request{
		System: NavigationSystemPrompt(nc.DocumentType),
		User:   NavigationPrompt(nc),
		JSON:   true,
	})
	if err != nil {
		return Decision{}, err
	}
	d, err := ParseDecision(reply)
	if err != nil {
		o.log.Warn("unparseable navigation reply", "node", nc.CurrentID, "error", err)
		return Decision{}, err
	}
	return d, nil
}

// Synthesize requests a free-text answer and returns it verbatim.
func (o *LLMOracle) Synthesize(ctx context.Context, req SynthesisRequest) (string, error) {
	return o.complete(ctx, "synthesize", llm.Request{
		System: SynthesisSystemPrompt(req.DocumentType),
		User:   SynthesisPrompt(req),
	})
}

func (o *LLMOracle) complete(ctx context.Context, op string, req llm.Request) (string, error) {
	req.Temperature = o.temperature
	req.MaxTokens = o.maxTokens

	start := time.Now()
	reply, err := o.client.Complete(ctx, req)
	o.metrics.ObserveOracle(op, time.Since(start), err)
	if err != nil {
		return "", &UnavailableError{Op: op, Err: err}
	}
	return reply, nil
}

// CacheableReply reports whether a reply is worth keeping in a reply cache:
// navigation replies only when they parse into a decision.
func CacheableReply(req llm.Request, reply string) bool {
	if !req.JSON {
		return true
	}
	_, err := ParseDecision(reply)
	return err == nil
}
