package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docnav/internal/doctree"
)

// Document types assigned by the structured loader.
const (
	TypeFiling    = "SEC Filing"
	TypeProcedure = "Standard Operating Procedure"
)

// LoadStructured reads a JSON or YAML outline. Two shapes are recognized: a
// regulatory filing (company, filing_type, fiscal_year, sections, footnotes)
// and a procedure guide (title, version, effective_date, classification,
// sections, appendices). Section order follows the source.
func LoadStructured(r io.Reader, fallbackID string) (*doctree.Index, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("structured document is empty")
		}
		return nil, fmt.Errorf("decode structured document: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("structured document must be a mapping, got %s", kindName(root.Kind))
	}

	if lookup(root, "company") != nil || lookup(root, "filing_type") != nil {
		return loadFiling(root, fallbackID)
	}
	return loadProcedure(root, fallbackID)
}

func loadFiling(m *yaml.Node, fallbackID string) (*doctree.Index, error) {
	company := scalar(m, "company")
	filingType := scalar(m, "filing_type")
	year := scalar(m, "fiscal_year")

	meta := map[string]any{
		"company":                company,
		"filing_type":            filingType,
		"fiscal_year":            value(lookup(m, "fiscal_year")),
		doctree.MetaDocumentType: TypeFiling,
	}
	title := fmt.Sprintf("%s %s FY%s", company, filingType, year)
	b := doctree.NewBuilder(orDefault(scalar(m, "document_id"), fallbackID), meta, title, "")

	if err := addSections(b, b.Root(), lookup(m, "sections")); err != nil {
		return nil, err
	}
	if notes := lookup(m, "footnotes"); notes != nil {
		if err := addBranch(b, "Footnotes", "Financial Statement Footnotes", notes); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

func loadProcedure(m *yaml.Node, fallbackID string) (*doctree.Index, error) {
	header := fmt.Sprintf("Document ID: %s\nVersion: %s\nEffective Date: %s\nClassification: %s",
		orDefault(scalar(m, "document_id"), "N/A"),
		orDefault(scalar(m, "version"), "N/A"),
		orDefault(scalar(m, "effective_date"), "N/A"),
		orDefault(scalar(m, "classification"), "N/A"),
	)
	meta := map[string]any{
		"title":                  value(lookup(m, "title")),
		doctree.MetaDocumentType: orDefault(scalar(m, "document_type"), TypeProcedure),
		"version":                value(lookup(m, "version")),
		"effective_date":         value(lookup(m, "effective_date")),
		"classification":         value(lookup(m, "classification")),
	}
	id := orDefault(scalar(m, "document_id"), orDefault(fallbackID, "unknown"))
	b := doctree.NewBuilder(id, meta, orDefault(scalar(m, "title"), "Supply Chain SOP"), header)

	if err := addSections(b, b.Root(), lookup(m, "sections")); err != nil {
		return nil, err
	}
	if apps := lookup(m, "appendices"); apps != nil {
		if err := addBranch(b, "Appendices", "Appendices", apps); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// addBranch hangs a fixed structural node off the root and adds one flat
// child per entry.
func addBranch(b *doctree.Builder, id, title string, entries *yaml.Node) error {
	branch, err := b.Add(b.Root(), id, title, "")
	if err != nil {
		return err
	}
	for _, e := range keyedEntries(entries) {
		if _, err := b.Add(branch, e.id, orDefault(scalar(e.body, "title"), e.id), text(lookup(e.body, "content"))); err != nil {
			return err
		}
	}
	return nil
}

func addSections(b *doctree.Builder, parent *doctree.Node, sections *yaml.Node) error {
	for _, e := range keyedEntries(sections) {
		node, err := b.Add(parent, e.id, orDefault(scalar(e.body, "title"), e.id), text(lookup(e.body, "content")))
		if err != nil {
			return fmt.Errorf("section %q: %w", e.id, err)
		}
		if err := addSections(b, node, lookup(e.body, "subsections")); err != nil {
			return err
		}
	}
	return nil
}

type entry struct {
	id   string
	body *yaml.Node
}

// keyedEntries lists keyed children in source order. A mapping is keyed by its
// keys; a sequence of mappings is keyed by each item's "id".
func keyedEntries(n *yaml.Node) []entry {
	if n == nil {
		return nil
	}
	var out []entry
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			out = append(out, entry{id: n.Content[i].Value, body: n.Content[i+1]})
		}
	case yaml.SequenceNode:
		for i, item := range n.Content {
			id := scalar(item, "id")
			if id == "" {
				id = fmt.Sprintf("%d", i+1)
			}
			out = append(out, entry{id: id, body: item})
		}
	}
	return out
}

func lookup(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			v := n.Content[i+1]
			if v.Kind == yaml.ScalarNode && v.Tag == "!!null" {
				return nil
			}
			return v
		}
	}
	return nil
}

func scalar(n *yaml.Node, key string) string {
	v := lookup(n, key)
	if v == nil || v.Kind != yaml.ScalarNode {
		return ""
	}
	return v.Value
}

// value decodes a scalar into its natural Go type (int, float, bool, string).
func value(n *yaml.Node) any {
	if n == nil {
		return nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return n.Value
	}
	return v
}

// text flattens section content. Lists become one line per item and
// mappings become "key: value" lines.
func text(n *yaml.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value
	case yaml.SequenceNode:
		lines := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			lines = append(lines, "- "+text(item))
		}
		return strings.Join(lines, "\n")
	case yaml.MappingNode:
		var lines []string
		for i := 0; i+1 < len(n.Content); i += 2 {
			lines = append(lines, n.Content[i].Value+": "+text(n.Content[i+1]))
		}
		return strings.Join(lines, "\n")
	case yaml.AliasNode:
		return text(n.Alias)
	}
	return ""
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "document"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
