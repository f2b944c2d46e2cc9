package doctree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/docnav/internal/chunker"
)

// OutlineOptions controls how an Outline becomes an Index.
type OutlineOptions struct {
	// Split breaks long leaf text into "Part n" children. A zero ChunkSize
	// disables splitting.
	Split chunker.Config
}

// FromOutline converts parser output into a sealed Index. Sections get dotted
// ids in reading order ("1", "1.2", "1.2.3"); untitled sections are named
// after their first words.
func FromOutline(documentID string, metadata map[string]any, o *Outline, opts OutlineOptions) (*Index, error) {
	if o == nil {
		return nil, fmt.Errorf("nil outline")
	}
	b := NewBuilder(documentID, metadata, o.Title, "")
	if _, ok := b.idx.Metadata["title"]; !ok && o.Title != "" {
		b.idx.Metadata["title"] = o.Title
	}
	for i, s := range o.Sections {
		if err := addSection(b, b.Root(), strconv.Itoa(i+1), s, opts); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

func addSection(b *Builder, parent *Node, id string, s *Section, opts OutlineOptions) error {
	title := s.Title
	if title == "" {
		title = untitled(s.Text)
	}

	var parts []string
	if opts.Split.ChunkSize > 0 && len(s.Children) == 0 {
		parts = chunker.Split(s.Text, opts.Split)
	}

	content := s.Text
	if len(parts) > 1 {
		content = ""
	}
	node, err := b.Add(parent, id, title, content)
	if err != nil {
		return err
	}

	if len(parts) > 1 {
		for i, p := range parts {
			if _, err := b.Add(node, fmt.Sprintf("%s.%d", id, i+1), fmt.Sprintf("%s (Part %d)", title, i+1), p); err != nil {
				return err
			}
		}
		return nil
	}

	for i, c := range s.Children {
		if err := addSection(b, node, fmt.Sprintf("%s.%d", id, i+1), c, opts); err != nil {
			return err
		}
	}
	return nil
}

func untitled(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "(untitled)"
	}
	if len(words) > 8 {
		return strings.Join(words[:8], " ") + "..."
	}
	return strings.Join(words, " ")
}
