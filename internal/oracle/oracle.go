// Package oracle defines what the navigator needs from a reasoning backend:
// one structured navigation decision per step and a free-text synthesis at
// the end. LLMOracle is the hosted-model implementation.
package oracle

import (
	"context"
	"fmt"
	"strings"
)

// Oracle makes navigation decisions and synthesizes answers. It is stateless
// across calls; everything a decision depends on travels in the context.
type Oracle interface {
	Navigate(ctx context.Context, nc NavigationContext) (Decision, error)
	Synthesize(ctx context.Context, req SynthesisRequest) (string, error)
}

// Action is the closed set of navigation moves.
type Action uint8

const (
	actionInvalid Action = iota
	ActionDescend
	ActionExtract
	ActionBacktrack
	ActionComplete
)

var actionNames = [...]string{
	ActionDescend:   "descend",
	ActionExtract:   "extract",
	ActionBacktrack: "backtrack",
	ActionComplete:  "complete",
}

func (a Action) String() string {
	if a == actionInvalid || int(a) >= len(actionNames) {
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
	return actionNames[a]
}

// Valid reports whether a is one of the four moves.
func (a Action) Valid() bool {
	return a > actionInvalid && int(a) < len(actionNames)
}

// ParseAction maps a reply token to an Action, ignoring case and
// surrounding space.
func ParseAction(s string) (Action, error) {
	token := strings.ToLower(strings.TrimSpace(s))
	for a := ActionDescend; a <= ActionComplete; a++ {
		if actionNames[a] == token {
			return a, nil
		}
	}
	return actionInvalid, fmt.Errorf("unknown action %q", s)
}

// Decision is one step's choice. TargetSection only matters for descend and
// ExtractedInfo only for extract.
type Decision struct {
	Action        Action
	TargetSection string
	Reasoning     string
	ExtractedInfo string
	Confidence    float64 // In [0, 1].
}

// SectionSummary describes one child of the current node.
type SectionSummary struct {
	ID          string
	Title       string
	Preview     string
	HasChildren bool
}

// NavigationContext is everything the oracle sees at one step.
type NavigationContext struct {
	Query          string
	DocumentType   string
	CurrentID      string
	CurrentTitle   string
	CurrentContent string // Preview of the current node's own content.
	Children       []SectionSummary
	Extracted      []string
	Path           []string
}

// SynthesisRequest asks for a final answer from gathered evidence.
type SynthesisRequest struct {
	Query        string
	DocumentType string
	Extracts     []string
	Sources      []string
}

// ParseError means a navigation reply could not be turned into a Decision.
// The navigator recovers from it.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse navigation decision: %v (raw: %s)", e.Err, clip(e.Raw, 200))
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnavailableError means the backend could not be reached or refused the
// request. It aborts the query.
type UnavailableError struct {
	Op  string // "navigate" or "synthesize"
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("oracle unavailable during %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// clip keeps the first n runes of s.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
