package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/ingest"
	"github.com/dgallion1/docnav/internal/library"
	"github.com/dgallion1/docnav/internal/llm"
	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/dgallion1/docnav/internal/navigator"
	"github.com/dgallion1/docnav/internal/oracle"
	"github.com/dgallion1/docnav/internal/pipeline"
)

const testKey = "test-key"

// walker descends into section 1, extracts it and completes. It keeps no
// state, so concurrent queries are independent.
type walker struct{}

func (walker) Navigate(_ context.Context, nc oracle.NavigationContext) (oracle.Decision, error) {
	switch {
	case nc.CurrentID == doctree.RootID:
		return oracle.Decision{Action: oracle.ActionDescend, TargetSection: "1", Confidence: 0.5}, nil
	case len(nc.Extracted) == 0:
		return oracle.Decision{Action: oracle.ActionExtract, ExtractedInfo: nc.CurrentContent, Confidence: 0.9}, nil
	}
	return oracle.Decision{Action: oracle.ActionComplete, Confidence: 0.9}, nil
}

func (walker) Synthesize(_ context.Context, req oracle.SynthesisRequest) (string, error) {
	return "Answer: " + strings.Join(req.Extracts, " "), nil
}

type downOracle struct{}

func (downOracle) Navigate(context.Context, oracle.NavigationContext) (oracle.Decision, error) {
	return oracle.Decision{}, &oracle.UnavailableError{Op: "navigate", Err: errors.New("connection refused")}
}

func (downOracle) Synthesize(context.Context, oracle.SynthesisRequest) (string, error) {
	return "", errors.New("unreachable")
}

type fakeLLM struct{ stats *llm.Stats }

func (f *fakeLLM) Complete(context.Context, llm.Request) (string, error) { return "", nil }
func (f *fakeLLM) Model() string                                         { return "fake-model" }
func (f *fakeLLM) LatencyStats() *llm.Stats                              { return f.stats }
func (f *fakeLLM) Close()                                                {}

type fixture struct {
	srv  *Server
	lib  *library.Library
	orch *pipeline.Orchestrator
	m    *metrics.Metrics
}

func newFixture(t *testing.T, o oracle.Oracle) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	lib := library.New(m, log)
	t.Cleanup(lib.Close)

	b := doctree.NewBuilder("handbook", map[string]any{doctree.MetaDocumentType: "Standard Operating Procedure"}, "Store Handbook", "")
	pol, _ := b.Add(b.Root(), "1", "Markdown Policy", "Dairy is marked down 20% after 3 days.")
	b.Add(pol, "1.1", "Approvals", "Store managers approve up to 30%.")
	b.Add(b.Root(), "2", "Staffing", "Schedules post two weeks ahead.")
	if _, err := lib.Add(b.Build(), "handbook.md", ""); err != nil {
		t.Fatal(err)
	}

	cfg := config.Config{Server: config.ServerConfig{APIKey: testKey, MaxUploadBytes: 1 << 20, BatchLimit: 3, BatchWorkers: 2}}
	orch := pipeline.NewOrchestrator(config.PipelineConfig{WorkerCount: 1, MaxQueueSize: 4, JobTTL: time.Hour}, lib, ingest.Options{}, m, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	stats := llm.NewStats(time.Minute)
	stats.Record(120*time.Millisecond, nil)

	srv := NewServer(Deps{
		Library:      lib,
		Orchestrator: orch,
		Engine:       navigator.New(o, navigator.Options{}, m, log),
		LLM:          &fakeLLM{stats: stats},
		Metrics:      m,
	}, log, cfg)
	return &fixture{srv: srv, lib: lib, orch: orch, m: m}
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthIsPublic(t *testing.T) {
	f := newFixture(t, walker{})
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" || body["documents"] != float64(1) {
		t.Errorf("unexpected body %v", body)
	}
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t, walker{})

	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", rec.Code)
	}
}

func TestListAndOutline(t *testing.T) {
	f := newFixture(t, walker{})

	rec := f.do(t, http.MethodGet, "/api/documents", nil, "")
	list := decode[struct {
		Documents []library.Summary `json:"documents"`
	}](t, rec)
	if len(list.Documents) != 1 || list.Documents[0].ID != "handbook" || list.Documents[0].Sections != 4 {
		t.Fatalf("unexpected listing %+v", list.Documents)
	}

	rec = f.do(t, http.MethodGet, "/api/documents/handbook/outline?depth=1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	outline := decode[struct {
		TOC     []string    `json:"table_of_contents"`
		Outline outlineNode `json:"outline"`
	}](t, rec)
	want := []string{"- root: Store Handbook", "  - 1: Markdown Policy", "  - 2: Staffing"}
	if strings.Join(outline.TOC, "|") != strings.Join(want, "|") {
		t.Errorf("unexpected toc %q", outline.TOC)
	}
	if len(outline.Outline.Children) != 2 || !outline.Outline.Children[0].HasChildren || outline.Outline.Children[0].Children != nil {
		t.Errorf("expected depth-limited outline, got %+v", outline.Outline.Children)
	}

	if rec := f.do(t, http.MethodGet, "/api/documents/handbook/outline?depth=x", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad depth, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/documents/nope/outline", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown document, got %d", rec.Code)
	}
}

func TestSectionAndSearch(t *testing.T) {
	f := newFixture(t, walker{})

	rec := f.do(t, http.MethodGet, "/api/documents/handbook/sections/1.1", nil, "")
	sec := decode[map[string]any](t, rec)
	if sec["parent"] != "1" || !strings.Contains(sec["content"].(string), "30%") {
		t.Errorf("unexpected section %v", sec)
	}

	rec = f.do(t, http.MethodGet, "/api/documents/handbook/search?q=dairy", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	res := decode[struct {
		Hits []struct {
			ID string `json:"id"`
		} `json:"hits"`
	}](t, rec)
	if len(res.Hits) != 1 || res.Hits[0].ID != "1" {
		t.Errorf("unexpected hits %+v", res.Hits)
	}

	if rec := f.do(t, http.MethodGet, "/api/documents/handbook/search", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without q, got %d", rec.Code)
	}
}

func TestQuery(t *testing.T) {
	f := newFixture(t, walker{})

	rec := f.do(t, http.MethodPost, "/api/documents/handbook/query", strings.NewReader(`{"query":"How fast is dairy marked down?"}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	res := decode[navigator.Result](t, rec)
	if res.Termination != navigator.TerminationComplete {
		t.Errorf("unexpected termination %q", res.Termination)
	}
	if len(res.Sources) != 1 || res.Sources[0] != "1: Markdown Policy" {
		t.Errorf("unexpected sources %q", res.Sources)
	}
	if !strings.Contains(res.Answer, "20% after 3 days") {
		t.Errorf("unexpected answer %q", res.Answer)
	}
	if res.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", res.Confidence)
	}

	if got := testutil.ToFloat64(f.m.QueriesTotal.WithLabelValues(string(navigator.TerminationComplete))); got != 1 {
		t.Errorf("expected one completed query metric, got %v", got)
	}

	if rec := f.do(t, http.MethodPost, "/api/documents/handbook/query", strings.NewReader(`{"query":"  "}`), "application/json"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank query, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/documents/handbook/query", strings.NewReader(`{"q":"x"}`), "application/json"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestQuery_OracleUnavailableIsBadGateway(t *testing.T) {
	f := newFixture(t, downOracle{})
	rec := f.do(t, http.MethodPost, "/api/documents/handbook/query", strings.NewReader(`{"query":"anything"}`), "application/json")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body)
	}
}

func TestQueryBatch(t *testing.T) {
	f := newFixture(t, walker{})

	rec := f.do(t, http.MethodPost, "/api/documents/handbook/query/batch",
		strings.NewReader(`{"queries":["dairy markdown?","", "approvals?"]}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	res := decode[struct {
		Results []batchItem `json:"results"`
	}](t, rec)
	if len(res.Results) != 2 {
		t.Fatalf("expected blank query dropped, got %d results", len(res.Results))
	}
	if res.Results[0].Query != "dairy markdown?" || res.Results[1].Query != "approvals?" {
		t.Errorf("expected input order, got %+v", res.Results)
	}
	for _, r := range res.Results {
		if r.Result == nil || r.Error != "" {
			t.Errorf("expected result for %q, got error %q", r.Query, r.Error)
		}
	}

	rec = f.do(t, http.MethodPost, "/api/documents/handbook/query/batch",
		strings.NewReader(`{"queries":["a","b","c","d"]}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 over batch limit, got %d", rec.Code)
	}
}

func waitJob(t *testing.T, f *fixture, id string) pipeline.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := f.do(t, http.MethodGet, "/api/ingest/"+id+"/status", nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		snap := decode[pipeline.JobSnapshot](t, rec)
		if snap.Status.Terminal() {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return pipeline.JobSnapshot{}
}

func TestIngestUpload(t *testing.T) {
	f := newFixture(t, walker{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "../../Receiving Guide.md")
	fw.Write([]byte("# Receiving\n\nCheck trailer temperature.\n"))
	mw.WriteField("title", "Receiving Guide")
	mw.Close()

	rec := f.do(t, http.MethodPost, "/api/ingest", &body, mw.FormDataContentType())
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body)
	}
	accepted := decode[map[string]any](t, rec)
	if accepted["filename"] != "Receiving Guide.md" {
		t.Errorf("expected sanitized filename, got %v", accepted["filename"])
	}

	snap := waitJob(t, f, accepted["job_id"].(string))
	if snap.Status != pipeline.StatusCompleted || snap.DocID != "receiving-guide" {
		t.Fatalf("unexpected job %+v", snap)
	}
	doc, err := f.lib.Get("receiving-guide")
	if err != nil || doc.Index.Title() != "Receiving Guide" {
		t.Errorf("expected ingested document, got %v %v", doc, err)
	}

	if rec := f.do(t, http.MethodGet, "/api/ingest/missing/status", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown job, got %d", rec.Code)
	}
}

func TestIngestRejectsUnsupportedType(t *testing.T) {
	f := newFixture(t, walker{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "payload.exe")
	fw.Write([]byte("MZ"))
	mw.Close()

	rec := f.do(t, http.MethodPost, "/api/ingest", &body, mw.FormDataContentType())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestIngestURLValidation(t *testing.T) {
	f := newFixture(t, walker{})
	rec := f.do(t, http.MethodPost, "/api/ingest", strings.NewReader(`{"url":"ftp://x"}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture(t, walker{})
	if rec := f.do(t, http.MethodDelete, "/api/documents/handbook", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodDelete, "/api/documents/handbook", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestLLMStats(t *testing.T) {
	f := newFixture(t, walker{})
	rec := f.do(t, http.MethodGet, "/api/stats/llm", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["model"] != "fake-model" {
		t.Errorf("unexpected model %v", body["model"])
	}
}

func TestMetricsEndpointAndRouteLabels(t *testing.T) {
	f := newFixture(t, walker{})
	f.do(t, http.MethodGet, "/api/documents/handbook/outline", nil, "")

	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="/api/documents/{docID}/outline"`) {
		t.Errorf("expected route pattern label in metrics output")
	}
}
