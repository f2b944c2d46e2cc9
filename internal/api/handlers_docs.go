package api

import (
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/library"
)

const (
	defaultOutlineDepth = 2
	maxOutlineDepth     = 10
	defaultSearchLimit  = 10
)

// outlineNode is the JSON form of a section in an outline.
type outlineNode struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Level       int            `json:"level"`
	HasContent  bool           `json:"has_content"`
	HasChildren bool           `json:"has_children"`
	Children    []*outlineNode `json:"children,omitempty"`
}

func buildOutline(n *doctree.Node, depth, maxDepth int) *outlineNode {
	out := &outlineNode{
		ID:          n.ID,
		Title:       n.Title,
		Level:       n.Level,
		HasContent:  n.Content != "",
		HasChildren: n.HasChildren(),
	}
	if depth >= maxDepth {
		return out
	}
	for _, c := range n.Children() {
		out.Children = append(out.Children, buildOutline(c, depth+1, maxDepth))
	}
	return out
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"documents": s.deps.Library.List()})
}

// document resolves {docID} or writes a 404.
func (s *Server) document(w http.ResponseWriter, r *http.Request) (*library.Document, bool) {
	doc, err := s.deps.Library.Get(chi.URLParam(r, "docID"))
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			jsonError(w, err.Error(), http.StatusNotFound)
		} else {
			jsonError(w, err.Error(), http.StatusInternalServerError)
		}
		return nil, false
	}
	return doc, true
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document": doc.Summary(),
		"metadata": doc.Index.Metadata,
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if !s.deps.Library.Remove(docID) {
		jsonError(w, "document not found: "+docID, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": docID})
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	depth := defaultOutlineDepth
	if v := r.URL.Query().Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, "depth must be a non-negative integer", http.StatusBadRequest)
			return
		}
		depth = min(n, maxOutlineDepth)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":       doc.Index.DocumentID,
		"title":             doc.Index.Title(),
		"document_type":     doc.Index.DocumentType(),
		"depth":             depth,
		"table_of_contents": slices.Collect(doc.Index.Root.TableOfContents(depth)),
		"outline":           buildOutline(doc.Index.Root, 0, depth),
	})
}

func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	n, found := doc.Index.Node(chi.URLParam(r, "sectionID"))
	if !found {
		jsonError(w, "section not found", http.StatusNotFound)
		return
	}
	children := make([]map[string]any, 0, len(n.Children()))
	for _, c := range n.Children() {
		children = append(children, map[string]any{"id": c.ID, "title": c.Title, "has_children": c.HasChildren()})
	}
	var parent string
	if p := n.Parent(); p != nil {
		parent = p.ID
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       n.ID,
		"title":    n.Title,
		"level":    n.Level,
		"parent":   parent,
		"content":  n.Content,
		"children": children,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}
	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	hits, err := doc.Search.Search(q, limit)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "hits": hits})
}
