package navigator

import (
	"context"
	"slices"

	"github.com/dgallion1/docnav/internal/oracle"
)

// NoInformationAnswer is returned when navigation extracted nothing.
const NoInformationAnswer = "Unable to find relevant information in the document."

// Synthesizer turns extracted fragments into a final answer.
type Synthesizer struct {
	oracle oracle.Oracle
}

// NewSynthesizer returns a synthesizer backed by o.
func NewSynthesizer(o oracle.Oracle) *Synthesizer {
	return &Synthesizer{oracle: o}
}

// Synthesize asks the oracle for an answer built from extracts. With no
// extracts it returns NoInformationAnswer without calling the oracle. The
// oracle's reply is returned as is.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, extracts, sources []string, documentType string) (string, error) {
	if len(extracts) == 0 {
		return NoInformationAnswer, nil
	}
	return s.oracle.Synthesize(ctx, oracle.SynthesisRequest{
		Query:        query,
		DocumentType: documentType,
		Extracts:     slices.Clone(extracts),
		Sources:      slices.Clone(sources),
	})
}
