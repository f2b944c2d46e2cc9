// Package search keeps an in-memory full-text index over the sections of one
// document. It locates sections for people and tools; navigation never
// consults it.
package search

import (
	"fmt"
	"slices"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/dgallion1/docnav/internal/doctree"
)

const (
	batchSize       = 100
	defaultLimit    = 10
	maxLimit        = 50
	titleBoost      = 2.0
	snippetMaxChars = 200
)

// Hit is one matching section.
type Hit struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Path    string  `json:"path"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score"`
}

type section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Path    string `json:"path"`
}

// Index searches the sections of a single document.
type Index struct {
	doc   *doctree.Index
	bleve bleve.Index
}

// Build indexes every node of doc, including the root.
func Build(doc *doctree.Index) (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create section index: %w", err)
	}

	batch := idx.NewBatch()
	var walkErr error
	doc.Walk(func(n *doctree.Node) bool {
		if err := batch.Index(n.ID, section{Title: n.Title, Content: n.Content, Path: Breadcrumb(n)}); err != nil {
			walkErr = fmt.Errorf("index section %s: %w", n.ID, err)
			return false
		}
		if batch.Size() >= batchSize {
			if err := idx.Batch(batch); err != nil {
				walkErr = fmt.Errorf("index batch: %w", err)
				return false
			}
			batch = idx.NewBatch()
		}
		return true
	})
	if walkErr == nil && batch.Size() > 0 {
		if err := idx.Batch(batch); err != nil {
			walkErr = fmt.Errorf("index final batch: %w", err)
		}
	}
	if walkErr != nil {
		idx.Close()
		return nil, walkErr
	}
	return &Index{doc: doc, bleve: idx}, nil
}

// Search returns up to limit sections matching terms, best first. Title
// matches weigh more than body matches.
func (s *Index) Search(terms string, limit int) ([]Hit, error) {
	terms = strings.TrimSpace(terms)
	if terms == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	title := bleve.NewMatchQuery(terms)
	title.SetField("title")
	title.SetBoost(titleBoost)
	content := bleve.NewMatchQuery(terms)
	content.SetField("content")

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery([]query.Query{title, content}...))
	req.Size = limit
	res, err := s.bleve.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		n, ok := s.doc.Node(h.ID)
		if !ok {
			continue
		}
		hits = append(hits, Hit{
			ID:      n.ID,
			Title:   n.Title,
			Path:    Breadcrumb(n),
			Snippet: n.ContentPreview(snippetMaxChars),
			Score:   h.Score,
		})
	}
	return hits, nil
}

// Len reports the number of indexed sections.
func (s *Index) Len() int {
	n, err := s.bleve.DocCount()
	if err != nil {
		return 0
	}
	return int(n)
}

func (s *Index) Close() error {
	return s.bleve.Close()
}

// Breadcrumb joins the titles from the root to n with " > ".
func Breadcrumb(n *doctree.Node) string {
	var titles []string
	for c := n; c != nil; c = c.Parent() {
		titles = append(titles, c.Title)
	}
	slices.Reverse(titles)
	return strings.Join(titles, " > ")
}
