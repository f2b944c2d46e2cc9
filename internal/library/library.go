// Package library holds the set of loaded documents that the server, the
// MCP tools and the ingest pipeline share.
package library

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/ingest"
	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/dgallion1/docnav/internal/search"
)

// ErrNotFound is returned for unknown document ids.
var ErrNotFound = errors.New("document not found")

// Document is a sealed index plus its section search index.
type Document struct {
	Index       *doctree.Index
	Search      *search.Index
	Source      string
	ContentHash string
	LoadedAt    time.Time
}

// Summary describes a document for listings.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	DocumentType string    `json:"document_type"`
	Sections     int       `json:"sections"`
	Source       string    `json:"source,omitempty"`
	LoadedAt     time.Time `json:"loaded_at"`
}

func (d *Document) Summary() Summary {
	return Summary{
		ID:           d.Index.DocumentID,
		Title:        d.Index.Title(),
		DocumentType: d.Index.DocumentType(),
		Sections:     d.Index.Len(),
		Source:       d.Source,
		LoadedAt:     d.LoadedAt,
	}
}

// Library is safe for concurrent use.
type Library struct {
	mu     sync.RWMutex
	docs   map[string]*Document
	byHash map[string]string

	metrics *metrics.Metrics
	log     *slog.Logger
}

func New(m *metrics.Metrics, log *slog.Logger) *Library {
	if log == nil {
		log = slog.Default()
	}
	return &Library{
		docs:    make(map[string]*Document),
		byHash:  make(map[string]string),
		metrics: m,
		log:     log,
	}
}

// Add registers idx, replacing any document with the same id. hash is the
// content hash used for duplicate detection and may be empty.
func (l *Library) Add(idx *doctree.Index, source, hash string) (*Document, error) {
	if idx == nil || idx.DocumentID == "" {
		return nil, fmt.Errorf("document has no id")
	}
	si, err := search.Build(idx)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		Index:       idx,
		Search:      si,
		Source:      source,
		ContentHash: hash,
		LoadedAt:    time.Now().UTC(),
	}

	l.mu.Lock()
	old := l.docs[idx.DocumentID]
	if old != nil && old.ContentHash != "" {
		delete(l.byHash, old.ContentHash)
	}
	l.docs[idx.DocumentID] = doc
	if hash != "" {
		l.byHash[hash] = idx.DocumentID
	}
	n := len(l.docs)
	l.mu.Unlock()

	if old != nil {
		old.Search.Close()
	}
	l.metrics.SetDocuments(n)
	l.log.Info("document registered", "doc_id", idx.DocumentID, "sections", idx.Len(), "source", source)
	return doc, nil
}

// Get returns a document by id.
func (l *Library) Get(id string) (*Document, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, nil
}

// FindByHash returns the id of a document with the given content hash.
func (l *Library) FindByHash(hash string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.byHash[hash]
	return id, ok
}

// Remove drops a document.
func (l *Library) Remove(id string) bool {
	l.mu.Lock()
	d, ok := l.docs[id]
	if ok {
		delete(l.docs, id)
		if d.ContentHash != "" {
			delete(l.byHash, d.ContentHash)
		}
	}
	n := len(l.docs)
	l.mu.Unlock()

	if ok {
		d.Search.Close()
		l.metrics.SetDocuments(n)
	}
	return ok
}

// List returns summaries sorted by id.
func (l *Library) List() []Summary {
	l.mu.RLock()
	out := make([]Summary, 0, len(l.docs))
	for _, d := range l.docs {
		out = append(out, d.Summary())
	}
	l.mu.RUnlock()

	slices.SortFunc(out, func(a, b Summary) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.docs)
}

// LoadDir loads every supported file under dir. Files that fail to load are
// logged and reported together; the rest stay registered.
func (l *Library) LoadDir(ctx context.Context, dir string, opts ingest.Options) (int, error) {
	var loaded int
	var errs []error
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !ingest.IsSupported(path) {
			return nil
		}
		if _, err := l.Load(ctx, path, opts); err != nil {
			l.log.Warn("skipping document", "path", path, "error", err)
			errs = append(errs, err)
			return nil
		}
		loaded++
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	return loaded, errors.Join(errs...)
}

// Load loads and registers one local file or URL.
func (l *Library) Load(ctx context.Context, source string, opts ingest.Options) (*Document, error) {
	if ingest.IsURL(source) {
		idx, err := ingest.LoadURL(ctx, source, opts)
		if err != nil {
			return nil, err
		}
		return l.Add(idx, source, ContentHash(idx))
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, &ingest.MissingSourceError{Source: source, Err: err}
	}
	idx, err := ingest.LoadReader(bytes.NewReader(data), source, "", opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return l.Add(idx, source, ContentHash(idx))
}

// Close releases every search index.
func (l *Library) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, d := range l.docs {
		d.Search.Close()
		delete(l.docs, id)
	}
	clear(l.byHash)
}

// ContentHash hashes the section titles and text of idx in reading order,
// so the same document uploaded under another name or format still matches.
func ContentHash(idx *doctree.Index) string {
	var sb strings.Builder
	idx.Walk(func(n *doctree.Node) bool {
		if n == idx.Root {
			return true
		}
		sb.WriteString(n.Title)
		sb.WriteByte('\n')
		if n.Content != "" {
			sb.WriteString(n.Content)
			sb.WriteByte('\n')
		}
		return true
	})
	return HashBytes([]byte(sb.String()))
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
