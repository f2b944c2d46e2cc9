// Package navigator answers questions about a document by walking its
// section tree one oracle decision at a time, then synthesizing an answer
// from the fragments it extracted along the way.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/dgallion1/docnav/internal/oracle"
	"github.com/google/uuid"
)

// DefaultMaxSteps is the navigate-call budget per query.
const DefaultMaxSteps = 15

const (
	defaultContentPreview = 800
	defaultChildPreview   = 200
)

const (
	parseFallbackReason = "Oracle reply could not be parsed; finishing with the evidence gathered so far"
	timeoutTraceLine    = "Navigation stopped: time limit reached"
)

// Termination says why the navigation loop ended.
type Termination string

const (
	TerminationComplete      Termination = "complete"
	TerminationBudget        Termination = "budget_exhausted"
	TerminationParseFallback Termination = "parse_fallback"
	TerminationTimeout       Termination = "timeout"
)

// Result is the outcome of one query. Sources and Extracts are index-aligned
// and in extraction order.
type Result struct {
	QueryID        string      `json:"query_id"`
	Answer         string      `json:"answer"`
	Sources        []string    `json:"sources"`
	Extracts       []string    `json:"extracts"`
	Confidence     float64     `json:"confidence"`
	NavigationPath []string    `json:"navigation_path"`
	ReasoningTrace []string    `json:"reasoning_trace"`
	Steps          int         `json:"steps"`
	Termination    Termination `json:"termination"`
}

// Options bound a query. Zero values take the defaults.
type Options struct {
	MaxSteps int
	// Timeout caps the navigation loop only. When it fires, synthesis still
	// runs on the evidence gathered so far.
	Timeout             time.Duration
	ContentPreviewChars int
	ChildPreviewChars   int
}

func (o Options) withDefaults() Options {
	if o.MaxSteps <= 0 {
		o.MaxSteps = DefaultMaxSteps
	}
	if o.ContentPreviewChars <= 0 {
		o.ContentPreviewChars = defaultContentPreview
	}
	if o.ChildPreviewChars <= 0 {
		o.ChildPreviewChars = defaultChildPreview
	}
	return o
}

// QueryOption overrides Options for a single query.
type QueryOption func(*Options)

// WithMaxSteps overrides the step budget.
func WithMaxSteps(n int) QueryOption {
	return func(o *Options) {
		if n > 0 {
			o.MaxSteps = n
		}
	}
}

// WithTimeout overrides the navigation time limit.
func WithTimeout(d time.Duration) QueryOption {
	return func(o *Options) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// Engine runs queries. It keeps no per-query state and is safe for
// concurrent use; indexes are only read.
type Engine struct {
	oracle  oracle.Oracle
	synth   *Synthesizer
	opts    Options
	metrics *metrics.Metrics
	log     *slog.Logger
}

// New returns an engine. m may be nil.
func New(o oracle.Oracle, opts Options, m *metrics.Metrics, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		oracle:  o,
		synth:   NewSynthesizer(o),
		opts:    opts.withDefaults(),
		metrics: m,
		log:     log.With("component", "navigator"),
	}
}

// Query answers query against idx with the default step budget.
func Query(ctx context.Context, o oracle.Oracle, idx *doctree.Index, query string, maxSteps int) (*Result, error) {
	return New(o, Options{MaxSteps: maxSteps}, nil, nil).Query(ctx, idx, query)
}

// Query navigates idx for query and synthesizes an answer.
//
// Unparseable oracle replies end navigation early as if the oracle had
// chosen complete. Any other oracle failure, or cancellation of ctx, aborts
// the query with an error.
func (e *Engine) Query(ctx context.Context, idx *doctree.Index, query string, opts ...QueryOption) (*Result, error) {
	o := e.opts
	for _, opt := range opts {
		opt(&o)
	}
	o = o.withDefaults()

	qid := uuid.NewString()
	log := e.log.With("query_id", qid, "doc_id", idx.DocumentID)
	start := time.Now()

	s := newState(idx.Root)
	term, err := e.navigate(ctx, s, idx.DocumentType(), query, o, log)
	if err != nil {
		return nil, err
	}

	answer, err := e.synth.Synthesize(ctx, query, s.extracts, s.sources, idx.DocumentType())
	if err != nil {
		return nil, fmt.Errorf("synthesize answer: %w", err)
	}

	res := &Result{
		QueryID:        qid,
		Answer:         answer,
		Sources:        s.sources,
		Extracts:       s.extracts,
		Confidence:     s.confidence(),
		NavigationPath: s.path,
		ReasoningTrace: s.trace,
		Steps:          s.steps,
		Termination:    term,
	}
	e.metrics.ObserveQuery(string(term), s.steps)
	log.Info("query answered",
		"steps", s.steps,
		"extracts", len(s.extracts),
		"termination", term,
		"confidence", res.Confidence,
		"duration", time.Since(start),
	)
	return res, nil
}

func (e *Engine) navigate(ctx context.Context, s *state, docType, query string, o Options, log *slog.Logger) (Termination, error) {
	loopCtx := ctx
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		loopCtx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	for s.steps < o.MaxSteps {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if loopCtx.Err() != nil {
			s.trace = append(s.trace, timeoutTraceLine)
			return TerminationTimeout, nil
		}

		d, err := e.oracle.Navigate(loopCtx, s.navigationContext(query, docType, o))
		if err == nil && !d.Action.Valid() {
			err = &oracle.ParseError{Raw: fmt.Sprintf("%+v", d), Err: fmt.Errorf("invalid action %v", d.Action)}
		}
		if err != nil {
			var pe *oracle.ParseError
			switch {
			case ctx.Err() != nil:
				return "", fmt.Errorf("navigate step %d: %w", s.steps+1, ctx.Err())
			case loopCtx.Err() != nil:
				s.trace = append(s.trace, timeoutTraceLine)
				return TerminationTimeout, nil
			case errors.As(err, &pe):
				s.steps++
				log.Warn("falling back to complete", "step", s.steps, "error", err)
				e.metrics.ParseFallback()
				s.record(oracle.Decision{Action: oracle.ActionComplete, Reasoning: parseFallbackReason})
				return TerminationParseFallback, nil
			default:
				return "", fmt.Errorf("navigate step %d: %w", s.steps+1, err)
			}
		}

		s.steps++
		log.Debug("navigation step", "step", s.steps, "node", s.cursor.ID, "action", d.Action, "target", d.TargetSection)
		if done := s.record(d); done {
			return TerminationComplete, nil
		}
	}
	return TerminationBudget, nil
}

// state is one query's private cursor and accumulators.
type state struct {
	cursor   *doctree.Node
	path     []string
	extracts []string
	sources  []string
	trace    []string
	steps    int
	last     oracle.Decision
}

func newState(root *doctree.Node) *state {
	return &state{
		cursor:   root,
		path:     []string{root.ID},
		extracts: []string{},
		sources:  []string{},
		trace:    []string{},
	}
}

// record logs d as step s.steps and applies it.
func (s *state) record(d oracle.Decision) (done bool) {
	s.last = d
	s.trace = append(s.trace, fmt.Sprintf("Step %d: %s - %s", s.steps, d.Action, d.Reasoning))
	return s.apply(d)
}

// apply moves the cursor or grows the accumulators. Invalid descends and
// backtracking at the root leave the cursor and path untouched.
func (s *state) apply(d oracle.Decision) (done bool) {
	switch d.Action {
	case oracle.ActionDescend:
		child, ok := s.cursor.Child(d.TargetSection)
		if d.TargetSection == "" || !ok {
			s.trace = append(s.trace, fmt.Sprintf("  -> Invalid section '%s', staying at current location", d.TargetSection))
			return false
		}
		s.cursor = child
		s.path = append(s.path, child.ID)
	case oracle.ActionExtract:
		if d.ExtractedInfo != "" {
			s.extracts = append(s.extracts, d.ExtractedInfo)
			s.sources = append(s.sources, s.cursor.Label())
		}
	case oracle.ActionBacktrack:
		if parent := s.cursor.Parent(); parent != nil {
			s.cursor = parent
			s.path = append(s.path, "[up]"+parent.ID)
		}
	case oracle.ActionComplete:
		return true
	}
	return false
}

// confidence is the latest decision's self-reported confidence, or 0 when
// nothing was extracted.
func (s *state) confidence() float64 {
	if len(s.extracts) == 0 {
		return 0
	}
	return s.last.Confidence
}

func (s *state) navigationContext(query, docType string, o Options) oracle.NavigationContext {
	children := s.cursor.Children()
	summaries := make([]oracle.SectionSummary, len(children))
	for i, c := range children {
		summaries[i] = oracle.SectionSummary{
			ID:          c.ID,
			Title:       c.Title,
			Preview:     c.ContentPreview(o.ChildPreviewChars),
			HasChildren: c.HasChildren(),
		}
	}
	return oracle.NavigationContext{
		Query:          query,
		DocumentType:   docType,
		CurrentID:      s.cursor.ID,
		CurrentTitle:   s.cursor.Title,
		CurrentContent: s.cursor.ContentPreview(o.ContentPreviewChars),
		Children:       summaries,
		Extracted:      slices.Clone(s.extracts),
		Path:           slices.Clone(s.path),
	}
}
