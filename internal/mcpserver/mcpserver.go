// Package mcpserver exposes the document library and the navigator as MCP
// tools over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/docnav/internal/library"
	"github.com/dgallion1/docnav/internal/navigator"
)

const (
	serverName          = "docnav"
	defaultOutlineDepth = 2
	maxOutlineDepth     = 10
	defaultSearchLimit  = 5
)

// Tools holds what the tool handlers read.
type Tools struct {
	lib    *library.Library
	engine *navigator.Engine
	log    *slog.Logger
}

func NewTools(lib *library.Library, engine *navigator.Engine, log *slog.Logger) *Tools {
	if log == nil {
		log = slog.Default()
	}
	return &Tools{lib: lib, engine: engine, log: log}
}

// NewServer builds an MCP server with every tool registered.
func NewServer(t *Tools, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	t.Register(server)
	return server
}

// Run serves over stdin/stdout until the client disconnects or ctx ends.
func Run(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// Register adds the document tools to server.
func (t *Tools) Register(server *mcp.Server) {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "list_documents",
			Description: "List the loaded documents with their ids, titles, types and section counts.",
		},
		t.ListDocuments,
	)
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "document_outline",
			Description: "Show a document's section tree (id: title per line) down to a depth.",
		},
		t.DocumentOutline,
	)
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "search_sections",
			Description: "Full-text search over the section titles and text of one document.",
		},
		t.SearchSections,
	)
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "query_document",
			Description: "Answer a question by navigating a document's structure section by section. Returns the answer with sources, the navigation path and the reasoning trace.",
		},
		t.QueryDocument,
	)
}

// DocumentInfo is one entry of list_documents.
type DocumentInfo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	DocumentType string `json:"document_type"`
	Sections     int    `json:"sections"`
	Source       string `json:"source,omitempty"`
	LoadedAt     string `json:"loaded_at"`
}

type ListDocumentsInput struct{}

type ListDocumentsOutput struct {
	Documents []DocumentInfo `json:"documents"`
}

func (t *Tools) ListDocuments(ctx context.Context, req *mcp.CallToolRequest, input ListDocumentsInput) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	out := ListDocumentsOutput{Documents: []DocumentInfo{}}
	for _, s := range t.lib.List() {
		out.Documents = append(out.Documents, DocumentInfo{
			ID:           s.ID,
			Title:        s.Title,
			DocumentType: s.DocumentType,
			Sections:     s.Sections,
			Source:       s.Source,
			LoadedAt:     s.LoadedAt.Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

type DocumentOutlineInput struct {
	DocumentID string `json:"document_id" jsonschema:"Id of the document, as returned by list_documents"`
	Depth      int    `json:"depth,omitempty" jsonschema:"Levels below the root to show (optional, defaults to 2)"`
}

type DocumentOutlineOutput struct {
	DocumentID   string   `json:"document_id"`
	Title        string   `json:"title"`
	DocumentType string   `json:"document_type"`
	Outline      []string `json:"outline"`
}

func (t *Tools) DocumentOutline(ctx context.Context, req *mcp.CallToolRequest, input DocumentOutlineInput) (*mcp.CallToolResult, DocumentOutlineOutput, error) {
	doc, err := t.document(input.DocumentID)
	if err != nil {
		return nil, DocumentOutlineOutput{}, err
	}
	depth := input.Depth
	if depth <= 0 {
		depth = defaultOutlineDepth
	}
	depth = min(depth, maxOutlineDepth)
	return nil, DocumentOutlineOutput{
		DocumentID:   doc.Index.DocumentID,
		Title:        doc.Index.Title(),
		DocumentType: doc.Index.DocumentType(),
		Outline:      slices.Collect(doc.Index.Root.TableOfContents(depth)),
	}, nil
}

type SearchSectionsInput struct {
	DocumentID string `json:"document_id" jsonschema:"Id of the document to search"`
	Query      string `json:"query" jsonschema:"Search terms"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of results (optional, defaults to 5)"`
}

type SectionHit struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Path    string  `json:"path"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

type SearchSectionsOutput struct {
	Query string       `json:"query"`
	Hits  []SectionHit `json:"hits"`
}

func (t *Tools) SearchSections(ctx context.Context, req *mcp.CallToolRequest, input SearchSectionsInput) (*mcp.CallToolResult, SearchSectionsOutput, error) {
	if input.Query == "" {
		return nil, SearchSectionsOutput{}, errors.New("query is required")
	}
	doc, err := t.document(input.DocumentID)
	if err != nil {
		return nil, SearchSectionsOutput{}, err
	}
	limit := input.MaxResults
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	hits, err := doc.Search.Search(input.Query, limit)
	if err != nil {
		return nil, SearchSectionsOutput{}, fmt.Errorf("search failed: %w", err)
	}
	out := SearchSectionsOutput{Query: input.Query, Hits: make([]SectionHit, 0, len(hits))}
	for _, h := range hits {
		out.Hits = append(out.Hits, SectionHit{ID: h.ID, Title: h.Title, Path: h.Path, Snippet: h.Snippet, Score: h.Score})
	}
	return nil, out, nil
}

type QueryDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"Id of the document to query"`
	Query      string `json:"query" jsonschema:"The question to answer"`
	MaxSteps   int    `json:"max_steps,omitempty" jsonschema:"Navigation step budget (optional, defaults to 15)"`
}

type QueryDocumentOutput struct {
	Answer         string   `json:"answer"`
	Sources        []string `json:"sources"`
	Confidence     float64  `json:"confidence"`
	NavigationPath []string `json:"navigation_path"`
	ReasoningTrace []string `json:"reasoning_trace"`
	Steps          int      `json:"steps"`
	Termination    string   `json:"termination"`
}

func (t *Tools) QueryDocument(ctx context.Context, req *mcp.CallToolRequest, input QueryDocumentInput) (*mcp.CallToolResult, QueryDocumentOutput, error) {
	if input.Query == "" {
		return nil, QueryDocumentOutput{}, errors.New("query is required")
	}
	doc, err := t.document(input.DocumentID)
	if err != nil {
		return nil, QueryDocumentOutput{}, err
	}
	res, err := t.engine.Query(ctx, doc.Index, input.Query, navigator.WithMaxSteps(input.MaxSteps))
	if err != nil {
		t.log.Error("query failed", "doc_id", input.DocumentID, "error", err)
		return nil, QueryDocumentOutput{}, err
	}
	return nil, QueryDocumentOutput{
		Answer:         res.Answer,
		Sources:        nonNil(res.Sources),
		Confidence:     res.Confidence,
		NavigationPath: nonNil(res.NavigationPath),
		ReasoningTrace: nonNil(res.ReasoningTrace),
		Steps:          res.Steps,
		Termination:    string(res.Termination),
	}, nil
}

func (t *Tools) document(id string) (*library.Document, error) {
	if id == "" {
		return nil, errors.New("document_id is required")
	}
	return t.lib.Get(id)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
