// Package parser turns uploaded files into section outlines. Each format
// parser reads raw bytes and produces a doctree.Outline whose nesting follows
// the document's own headings (or pages, row batches, paragraphs).
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docnav/internal/doctree"
)

// Parser converts raw document bytes into an Outline.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Outline, error)
}

// Options tune parsers that shell out or fall back.
type Options struct {
	PdftotextFallback bool
}

var documentTypes = map[string]string{
	".txt":      "Text Document",
	".md":       "Markdown Document",
	".markdown": "Markdown Document",
	".csv":      "Spreadsheet",
	".html":     "Web Page",
	".htm":      "Web Page",
	".pdf":      "PDF Document",
	".docx":     "Word Document",
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PdftotextFallback}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	_, ok := documentTypes[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// DocumentType names the kind of document a file holds, for prompt shaping.
func DocumentType(filename string) string {
	if t, ok := documentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}
	return "Document"
}

// baseTitle is the filename without directories or extension.
func baseTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
