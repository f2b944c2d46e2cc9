// Package doctree holds the hierarchical document model walked by the navigator.
//
// A document is an Index that exclusively owns a Root Node. Every Node owns its
// children in reading order and keeps a non-owning reference to its parent.
// Indexes are assembled with a Builder and are read-only once built, so a
// single Index can be shared by any number of concurrent queries.
package doctree

import (
	"iter"
	"strings"
)

// RootID is the id given to the root node by every ingestion adapter.
const RootID = "root"

// MetaDocumentType is the metadata key holding the document type.
const MetaDocumentType = "document_type"

// Node is a section of a document.
type Node struct {
	ID      string
	Title   string
	Content string // May be empty for structural-only nodes.
	Level   int    // Depth from root, root = 0.

	parent   *Node
	children []*Node
	childIdx map[string]int
}

// Parent returns the enclosing node, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the child nodes in reading order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Child returns the direct child with the given id.
func (n *Node) Child(id string) (*Node, bool) {
	i, ok := n.childIdx[id]
	if !ok {
		return nil, false
	}
	return n.children[i], true
}

// HasChildren reports whether the node has any subsections.
func (n *Node) HasChildren() bool {
	return len(n.children) > 0
}

// Label is the human-readable "{id}: {title}" form used for sources.
func (n *Node) Label() string {
	return n.ID + ": " + n.Title
}

// ContentPreview returns the content clipped to maxChars runes, with "..."
// appended when clipped.
func (n *Node) ContentPreview(maxChars int) string {
	return Preview(n.Content, maxChars)
}

// TableOfContents yields an outline of n and its descendants down to maxDepth
// levels below n. Each call to the returned sequence starts a fresh walk.
func (n *Node) TableOfContents(maxDepth int) iter.Seq[string] {
	return func(yield func(string) bool) {
		n.walkTOC(0, maxDepth, yield)
	}
}

func (n *Node) walkTOC(depth, maxDepth int, yield func(string) bool) bool {
	if !yield(strings.Repeat("  ", depth) + "- " + n.Label()) {
		return false
	}
	if depth >= maxDepth {
		return true
	}
	for _, c := range n.children {
		if !c.walkTOC(depth+1, maxDepth, yield) {
			return false
		}
	}
	return true
}

// Preview clips s to maxChars runes and marks the cut with "...".
func Preview(s string, maxChars int) string {
	if s == "" {
		return ""
	}
	if maxChars < 0 {
		maxChars = 0
	}
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	return string(r[:maxChars]) + "..."
}

// Index is a complete document.
type Index struct {
	DocumentID string
	Metadata   map[string]any
	Root       *Node

	nodesByID map[string]*Node
}

// Node looks a node up by id.
func (idx *Index) Node(id string) (*Node, bool) {
	n, ok := idx.nodesByID[id]
	return n, ok
}

// Len returns the number of nodes in the document.
func (idx *Index) Len() int {
	return len(idx.nodesByID)
}

// DocumentType returns the document_type metadata value, or "Document".
func (idx *Index) DocumentType() string {
	if v, ok := idx.Metadata[MetaDocumentType].(string); ok && v != "" {
		return v
	}
	return "Document"
}

// Title returns the best display title for the document.
func (idx *Index) Title() string {
	for _, key := range []string{"title", "company"} {
		if v, ok := idx.Metadata[key].(string); ok && v != "" {
			return v
		}
	}
	if idx.Root != nil && idx.Root.Title != "" {
		return idx.Root.Title
	}
	return idx.DocumentID
}

// Walk visits every node depth-first in reading order.
func (idx *Index) Walk(fn func(*Node) bool) {
	var walk func(*Node) bool
	walk = func(n *Node) bool {
		if !fn(n) {
			return false
		}
		for _, c := range n.children {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	if idx.Root != nil {
		walk(idx.Root)
	}
}

// Outline is the raw section hierarchy produced by a format parser, before ids
// and levels are assigned.
type Outline struct {
	Title    string     // Document title (from metadata or filename)
	Sections []*Section // Top-level sections
}

// Section is a recursive section in an Outline.
type Section struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Text content of this section (may be empty for container sections)
	Page     int        // Source page/line (0 if N/A)
	Children []*Section // Subsections
}
