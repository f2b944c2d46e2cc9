package ingest

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"

	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/parser"
)

// TypeWebArticle is the document type of fetched pages.
const TypeWebArticle = "Web Article"

// LoadURL fetches a page, reduces it to its main article and builds an index
// from the article's heading structure.
func LoadURL(ctx context.Context, rawURL string, opts Options) (*doctree.Index, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &MissingSourceError{Source: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &MissingSourceError{Source: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", "docnav/1.0")
	resp, err := opts.httpClient().Do(req)
	if err != nil {
		return nil, &MissingSourceError{Source: rawURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &MissingSourceError{Source: rawURL, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, opts.maxBytes()))
	if err != nil {
		return nil, &MissingSourceError{Source: rawURL, Err: err}
	}
	return loadArticle(body, u, opts)
}

func loadArticle(body []byte, u *url.URL, opts Options) (*doctree.Index, error) {
	page := string(body)
	meta := map[string]any{
		doctree.MetaDocumentType: TypeWebArticle,
		"source":                 u.String(),
	}

	var title string
	if article, err := readability.FromReader(bytes.NewReader(body), u); err == nil {
		title = article.Title
		switch {
		case strings.TrimSpace(article.Content) != "":
			page = article.Content
		case strings.TrimSpace(article.TextContent) != "":
			page = "<p>" + html.EscapeString(article.TextContent) + "</p>"
		}
		if article.Byline != "" {
			meta["byline"] = article.Byline
		}
		if article.SiteName != "" {
			meta["site_name"] = article.SiteName
		}
	}

	outline, err := (&parser.HTMLParser{}).Parse(strings.NewReader(page), u.Host)
	if err != nil {
		return nil, fmt.Errorf("parse article %s: %w", u, err)
	}
	if title != "" {
		outline.Title = title
	}

	id := Slugify(u.Host + "-" + u.Path)
	if id == "" {
		id = "web-article"
	}
	return doctree.FromOutline(id, meta, outline, doctree.OutlineOptions{Split: opts.Split})
}
