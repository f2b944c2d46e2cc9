// Package render formats indexes and query results as plain text for the
// command line.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/ingest"
	"github.com/dgallion1/docnav/internal/navigator"
	"github.com/dgallion1/docnav/internal/search"
)

const rule = "============================================================"

// Heading is the first line of a structure tree.
func Heading(idx *doctree.Index) string {
	docType := idx.DocumentType()
	switch {
	case strings.Contains(docType, "SEC") || strings.Contains(docType, "Filing"):
		return strings.TrimSpace(fmt.Sprintf("[FILING] %s %s", metaString(idx, "company"), metaString(idx, "filing_type")))
	case docType == ingest.TypeProcedure:
		title := metaString(idx, "title")
		if title == "" {
			title = idx.DocumentID
		}
		return "[SOP] " + title
	}
	return fmt.Sprintf("[%s] %s", strings.ToUpper(docType), idx.Title())
}

// Structure writes the section tree down to maxDepth levels below the root.
// Sections with children are marked [+], leaves [-]; a truncated subtree
// shows as "...".
func Structure(w io.Writer, idx *doctree.Index, maxDepth int) error {
	var b strings.Builder
	b.WriteString(Heading(idx))
	b.WriteByte('\n')
	writeChildren(&b, idx.Root, "", 0, maxDepth)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeChildren(b *strings.Builder, n *doctree.Node, indent string, depth, maxDepth int) {
	children := n.Children()
	if depth >= maxDepth {
		if len(children) > 0 {
			b.WriteString(indent + "└── ...\n")
		}
		return
	}
	for i, c := range children {
		branch, next := "├── ", "│   "
		if i == len(children)-1 {
			branch, next = "└── ", "    "
		}
		icon := "[-]"
		if c.HasChildren() {
			icon = "[+]"
		}
		fmt.Fprintf(b, "%s%s%s %s\n", indent, branch, icon, c.Label())
		writeChildren(b, c, indent+next, depth+1, maxDepth)
	}
}

// Result writes an answer with its sources, navigation path and confidence.
// The reasoning trace is included when showTrace is set.
func Result(w io.Writer, res *navigator.Result, showTrace bool) error {
	var b strings.Builder
	b.WriteString("Answer\n------\n")
	b.WriteString(strings.TrimSpace(res.Answer))
	b.WriteString("\n")

	if len(res.Sources) > 0 {
		b.WriteString("\nSources\n-------\n")
		for _, s := range res.Sources {
			b.WriteString("  " + s + "\n")
		}
	}

	fmt.Fprintf(&b, "\nNavigation Path: %s\n", strings.Join(res.NavigationPath, " -> "))

	if showTrace {
		b.WriteString("\nNavigation Trace\n----------------\n")
		for _, line := range res.ReasoningTrace {
			b.WriteString(line + "\n")
		}
	}

	fmt.Fprintf(&b, "\nConfidence: %s (%s)\n", Percent(res.Confidence), ConfidenceLevel(res.Confidence))
	_, err := io.WriteString(w, b.String())
	return err
}

// Hits writes search results one per line with their breadcrumb.
func Hits(w io.Writer, hits []search.Hit) error {
	var b strings.Builder
	if len(hits) == 0 {
		b.WriteString("No matching sections.\n")
	}
	for _, h := range hits {
		fmt.Fprintf(&b, "%6.3f  %s: %s\n", h.Score, h.ID, h.Title)
		if h.Path != "" {
			fmt.Fprintf(&b, "        %s\n", h.Path)
		}
		if h.Snippet != "" {
			fmt.Fprintf(&b, "        %s\n", h.Snippet)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Separator ends one interactive answer.
func Separator(w io.Writer) error {
	_, err := io.WriteString(w, "\n"+rule+"\n\n")
	return err
}

// Percent formats a [0,1] confidence as a whole percentage.
func Percent(c float64) string {
	return fmt.Sprintf("%.0f%%", c*100)
}

// ConfidenceLevel buckets a confidence as high (> 0.7), medium (> 0.4) or low.
func ConfidenceLevel(c float64) string {
	switch {
	case c > 0.7:
		return "high"
	case c > 0.4:
		return "medium"
	}
	return "low"
}

func metaString(idx *doctree.Index, key string) string {
	if v, ok := idx.Metadata[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}
