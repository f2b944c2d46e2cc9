package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/navigator"
)

const guide = `# Operations Guide

## Receiving

Inspect every pallet on arrival.

## Shipping

### Carriers

Use approved carriers only.
`

func writeGuide(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guide.md")
	if err := os.WriteFile(path, []byte(guide), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOutlineCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeGuide(t)
	cfg := ""
	cmd := outlineCMD(&cfg)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path, "--depth", "5"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("outline failed: %v", err)
	}
	for _, want := range []string{"Receiving", "Shipping", "Carriers", "[+]"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in outline:\n%s", want, out.String())
		}
	}
}

func TestSearchCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeGuide(t)
	cfg := ""
	cmd := searchCMD(&cfg)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path, "carriers"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(out.String(), "Carriers") {
		t.Errorf("expected Carriers hit, got:\n%s", out.String())
	}
}

func TestOutlineCommand_MissingSource(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := ""
	cmd := outlineCMD(&cfg)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope.md")})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestQueryCommand_RequiresAPIKey(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DOCNAV_LLM_ANTHROPIC_API_KEY", "")
	path := writeGuide(t)
	cfg := ""
	cmd := queryCMD(&cfg)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path, "who", "ships?"})
	err := cmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Fatalf("expected API key error, got %v", err)
	}
}

func TestInteractiveLoop(t *testing.T) {
	idx := doctree.NewBuilder("guide", map[string]any{doctree.MetaDocumentType: "Markdown Document"}, "Guide", "").Build()

	var asked []string
	ask := func(_ context.Context, q string) (*navigator.Result, error) {
		asked = append(asked, q)
		if q == "broken" {
			return nil, errors.New("oracle down")
		}
		return &navigator.Result{Answer: "answer to " + q, NavigationPath: []string{"root"}}, nil
	}

	in := strings.NewReader("first question\n\n   \nbroken\nQUIT\nnever asked\n")
	var out bytes.Buffer
	if err := interactiveLoop(context.Background(), in, &out, idx, ask, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(asked) != 2 || asked[0] != "first question" || asked[1] != "broken" {
		t.Fatalf("expected two queries, got %q", asked)
	}
	s := out.String()
	if !strings.Contains(s, "Interactive Query Mode - Markdown Document") {
		t.Errorf("expected banner, got:\n%s", s)
	}
	if !strings.Contains(s, "answer to first question") {
		t.Errorf("expected first answer, got:\n%s", s)
	}
	if !strings.Contains(s, "Query failed: oracle down") {
		t.Errorf("expected failure notice, got:\n%s", s)
	}
}

func TestInteractiveLoop_EOF(t *testing.T) {
	idx := doctree.NewBuilder("guide", nil, "Guide", "").Build()
	ask := func(context.Context, string) (*navigator.Result, error) {
		t.Fatal("no query expected")
		return nil, nil
	}
	if err := interactiveLoop(context.Background(), strings.NewReader(""), &bytes.Buffer{}, idx, ask, false); err != nil {
		t.Fatalf("expected clean exit on EOF, got %v", err)
	}
}
