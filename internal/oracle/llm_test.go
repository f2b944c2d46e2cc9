package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/dgallion1/docnav/internal/llm"
)

type fakeClient struct {
	reply string
	err   error
	last  llm.Request
}

func (f *fakeClient) Complete(_ context.Context, req llm.Request) (string, error) {
	f.last = req
	return f.reply, f.err
}

func TestLLMOracle_Navigate(t *testing.T) {
	fc := &fakeClient{reply: `{"action":"descend","target_section":"Policy","reasoning":"r","confidence":0.3}`}
	o := NewLLMOracle(fc)

	d, err := o.Navigate(context.Background(), NavigationContext{CurrentID: "root", DocumentType: "SOP"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Action != ActionDescend || d.TargetSection != "Policy" {
		t.Errorf("unexpected decision %+v", d)
	}
	if !fc.last.JSON || fc.last.Temperature != DefaultTemperature {
		t.Errorf("expected JSON request at default temperature, got %+v", fc.last)
	}
}

func TestLLMOracle_NavigateParseError(t *testing.T) {
	o := NewLLMOracle(&fakeClient{reply: "no idea"})
	_, err := o.Navigate(context.Background(), NavigationContext{})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestLLMOracle_Unavailable(t *testing.T) {
	upstream := &llm.RetryableError{StatusCode: 503, Message: "overloaded"}
	o := NewLLMOracle(&fakeClient{err: upstream})

	_, err := o.Navigate(context.Background(), NavigationContext{})
	var ue *UnavailableError
	if !errors.As(err, &ue) || ue.Op != "navigate" {
		t.Fatalf("expected navigate *UnavailableError, got %v", err)
	}
	if !llm.IsRetryable(err) {
		t.Errorf("expected upstream error to stay in the chain")
	}

	_, err = o.Synthesize(context.Background(), SynthesisRequest{Extracts: []string{"x"}})
	if !errors.As(err, &ue) || ue.Op != "synthesize" {
		t.Fatalf("expected synthesize *UnavailableError, got %v", err)
	}
}

func TestLLMOracle_SynthesizeVerbatim(t *testing.T) {
	fc := &fakeClient{reply: "  Dairy is marked down 20% after 3 days.\n"}
	o := NewLLMOracle(fc, WithTemperature(0), WithMaxTokens(512))

	got, err := o.Synthesize(context.Background(), SynthesisRequest{Query: "q", Extracts: []string{"x"}, Sources: []string{"s"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != fc.reply {
		t.Errorf("expected reply returned verbatim, got %q", got)
	}
	if fc.last.JSON || fc.last.MaxTokens != 512 || fc.last.Temperature != 0 {
		t.Errorf("unexpected synthesis request %+v", fc.last)
	}
}

func TestCacheableReply(t *testing.T) {
	nav := llm.Request{JSON: true}
	if !CacheableReply(nav, `{"action":"complete","confidence":0.8}`) {
		t.Errorf("expected a valid decision to be cacheable")
	}
	if CacheableReply(nav, "I would look at section 2") {
		t.Errorf("expected an unparseable navigation reply not to be cacheable")
	}
	if CacheableReply(nav, `[{"action":"complete"}]`) {
		t.Errorf("expected an array reply not to be cacheable")
	}
	if !CacheableReply(llm.Request{}, "Free text answer.") {
		t.Errorf("expected synthesis replies to be cacheable")
	}
}
