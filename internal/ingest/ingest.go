// Package ingest builds document indexes from files, structured outlines and
// web pages. Every loader yields a sealed doctree.Index whose root id is
// "root" and whose metadata carries a document_type.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dgallion1/docnav/internal/chunker"
	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/parser"
)

// Options tune loading.
type Options struct {
	Split             chunker.Config // Zero ChunkSize disables splitting long sections.
	PdftotextFallback bool
	HTTPClient        *http.Client
	MaxBytes          int64 // Upper bound on fetched page size.
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (o Options) maxBytes() int64 {
	if o.MaxBytes > 0 {
		return o.MaxBytes
	}
	return 10 << 20
}

// MissingSourceError means the input could not be found or read. It is
// fatal to the load.
type MissingSourceError struct {
	Source string
	Err    error
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("source %q unavailable: %v", e.Source, e.Err)
}

func (e *MissingSourceError) Unwrap() error { return e.Err }

// IsMissingSource reports whether err carries a *MissingSourceError.
func IsMissingSource(err error) bool {
	var me *MissingSourceError
	return errors.As(err, &me)
}

// Load reads source, which is a local path or an http(s) URL.
func Load(ctx context.Context, source string, opts Options) (*doctree.Index, error) {
	if IsURL(source) {
		return LoadURL(ctx, source, opts)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, &MissingSourceError{Source: source, Err: err}
	}
	defer f.Close()

	if st, err := f.Stat(); err == nil && st.IsDir() {
		return nil, &MissingSourceError{Source: source, Err: fs.ErrInvalid}
	}
	return LoadReader(f, source, "", opts)
}

// LoadReader builds an index from already-open content. filename selects the
// format; documentID falls back to a slug of the file name.
func LoadReader(rd io.Reader, filename, documentID string, opts Options) (*doctree.Index, error) {
	if documentID == "" {
		documentID = DocumentIDFor(filename)
	}
	if IsStructured(filename) {
		return LoadStructured(rd, documentID)
	}

	p, err := parser.ForFile(filename, parser.Options{PdftotextFallback: opts.PdftotextFallback})
	if err != nil {
		return nil, err
	}
	outline, err := p.Parse(rd, filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(filename), err)
	}
	meta := map[string]any{
		doctree.MetaDocumentType: parser.DocumentType(filename),
		"source":                 filepath.Base(filename),
	}
	return doctree.FromOutline(documentID, meta, outline, doctree.OutlineOptions{Split: opts.Split})
}

// IsSupported reports whether filename has a loadable extension.
func IsSupported(filename string) bool {
	return IsStructured(filename) || parser.IsSupportedExtension(filename)
}

// IsStructured reports whether filename is a JSON or YAML outline.
func IsStructured(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// IsURL reports whether source is fetched over HTTP.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// DocumentIDFor derives a document id from a path or URL.
func DocumentIDFor(source string) string {
	base := filepath.Base(source)
	id := Slugify(strings.TrimSuffix(base, filepath.Ext(base)))
	if id == "" {
		return "document"
	}
	return id
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify lowercases s and reduces it to [a-z0-9-], at most 50 bytes.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}
