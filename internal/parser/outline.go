package parser

import (
	"strings"

	"github.com/dgallion1/docnav/internal/doctree"
)

// headingStack nests sections by heading level. Level 0 is the document
// itself; text seen before any heading belongs to it.
type headingStack struct {
	entries []stackEntry
	pending strings.Builder
}

type stackEntry struct {
	section *doctree.Section
	level   int
}

func newHeadingStack() *headingStack {
	return &headingStack{entries: []stackEntry{{section: &doctree.Section{}, level: 0}}}
}

// text buffers a block of body text for the innermost open section.
func (s *headingStack) text(t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		return
	}
	if s.pending.Len() > 0 {
		s.pending.WriteString("\n\n")
	}
	s.pending.WriteString(t)
}

// heading closes sections at the same or deeper level and opens a new one.
func (s *headingStack) heading(level int, title string) {
	s.flush()
	for len(s.entries) > 1 && s.entries[len(s.entries)-1].level >= level {
		s.entries = s.entries[:len(s.entries)-1]
	}
	sec := &doctree.Section{Title: title}
	parent := s.entries[len(s.entries)-1].section
	parent.Children = append(parent.Children, sec)
	s.entries = append(s.entries, stackEntry{section: sec, level: level})
}

func (s *headingStack) flush() {
	t := s.pending.String()
	s.pending.Reset()
	if t == "" {
		return
	}
	top := s.entries[len(s.entries)-1].section
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// outline finishes the walk. Documents without headings get their text as a
// single untitled section. Text before the first heading becomes a leading
// untitled section so it stays navigable.
func (s *headingStack) outline(title string) *doctree.Outline {
	s.flush()
	doc := s.entries[0].section
	o := &doctree.Outline{Title: title}
	if doc.Text != "" {
		o.Sections = append(o.Sections, &doctree.Section{Text: doc.Text})
	}
	o.Sections = append(o.Sections, doc.Children...)
	return o
}
