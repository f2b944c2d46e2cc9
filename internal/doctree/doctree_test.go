package doctree

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/dgallion1/docnav/internal/chunker"
)

func buildSample(t *testing.T) *Index {
	t.Helper()
	b := NewBuilder("doc-1", map[string]any{MetaDocumentType: "Standard Operating Procedure"}, "Guide", "")
	policy, err := b.Add(b.Root(), "Policy", "Policy", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Add(policy, "Markdown Rules", "Markdown Rules", "Dairy markdown: 20% after 3 days, 50% after 7 days"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Add(b.Root(), "Appendix", "Appendix", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return b.Build()
}

func TestBuilder_TreeAndLookupConsistent(t *testing.T) {
	idx := buildSample(t)

	if idx.Len() != 4 {
		t.Fatalf("expected 4 nodes, got %d", idx.Len())
	}

	seen := 0
	idx.Walk(func(n *Node) bool {
		seen++
		got, ok := idx.Node(n.ID)
		if !ok || got != n {
			t.Errorf("node %q reachable from root but missing from lookup", n.ID)
		}
		return true
	})
	if seen != idx.Len() {
		t.Errorf("expected %d reachable nodes, got %d", idx.Len(), seen)
	}

	leaf, _ := idx.Node("Markdown Rules")
	if leaf.Level != 2 {
		t.Errorf("expected level 2, got %d", leaf.Level)
	}
	if leaf.Parent().ID != "Policy" || leaf.Parent().Parent() != idx.Root {
		t.Errorf("unexpected parent chain for %q", leaf.ID)
	}
	if idx.Root.Parent() != nil {
		t.Errorf("expected root to have no parent")
	}
}

func TestBuilder_ChildrenKeepInsertionOrder(t *testing.T) {
	b := NewBuilder("d", nil, "T", "")
	for _, id := range []string{"c", "a", "b"} {
		if _, err := b.Add(b.Root(), id, id, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	idx := b.Build()

	var ids []string
	for _, c := range idx.Root.Children() {
		ids = append(ids, c.ID)
	}
	if !slices.Equal(ids, []string{"c", "a", "b"}) {
		t.Errorf("expected [c a b], got %v", ids)
	}
}

func TestBuilder_RejectsDuplicateID(t *testing.T) {
	b := NewBuilder("d", nil, "T", "")
	a, _ := b.Add(b.Root(), "a", "A", "")
	_, err := b.Add(a, "a", "Again", "")
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	_, err = b.Add(b.Root(), RootID, "Root again", "")
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID for root id, got %v", err)
	}
}

func TestBuilder_SealedAfterBuild(t *testing.T) {
	b := NewBuilder("d", nil, "T", "")
	idx := b.Build()
	if _, err := b.Add(idx.Root, "x", "X", ""); !errors.Is(err, ErrSealed) {
		t.Fatalf("expected ErrSealed, got %v", err)
	}
	if err := b.SetMeta("k", "v"); !errors.Is(err, ErrSealed) {
		t.Fatalf("expected ErrSealed from SetMeta, got %v", err)
	}
}

func TestBuilder_RejectsForeignParent(t *testing.T) {
	other := NewBuilder("other", nil, "O", "")
	b := NewBuilder("d", nil, "T", "")
	if _, err := b.Add(other.Root(), "x", "X", ""); !errors.Is(err, ErrForeignParent) {
		t.Fatalf("expected ErrForeignParent, got %v", err)
	}
}

func TestNode_ChildLookup(t *testing.T) {
	idx := buildSample(t)
	if _, ok := idx.Root.Child("Policy"); !ok {
		t.Errorf("expected Policy to be a direct child of root")
	}
	if _, ok := idx.Root.Child("Markdown Rules"); ok {
		t.Errorf("expected grandchild not to be a direct child")
	}
}

func TestNode_TableOfContents(t *testing.T) {
	idx := buildSample(t)

	got := slices.Collect(idx.Root.TableOfContents(2))
	want := []string{
		"- root: Guide",
		"  - Policy: Policy",
		"    - Markdown Rules: Markdown Rules",
		"  - Appendix: Appendix",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}

	shallow := slices.Collect(idx.Root.TableOfContents(1))
	if len(shallow) != 3 {
		t.Errorf("expected 3 lines at depth 1, got %d: %q", len(shallow), shallow)
	}

	// Restartable: a second walk yields the same lines.
	again := slices.Collect(idx.Root.TableOfContents(2))
	if !slices.Equal(got, again) {
		t.Errorf("expected restarted walk to match, got %q", again)
	}
}

func TestNode_TableOfContentsStopsEarly(t *testing.T) {
	idx := buildSample(t)
	n := 0
	for range idx.Root.TableOfContents(5) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("expected to stop after 2 lines, got %d", n)
	}
}

func TestNode_ContentPreview(t *testing.T) {
	n := &Node{Content: "abcdefghij"}
	if got := n.ContentPreview(20); got != "abcdefghij" {
		t.Errorf("expected unclipped content, got %q", got)
	}
	if got := n.ContentPreview(4); got != "abcd..." {
		t.Errorf("expected %q, got %q", "abcd...", got)
	}
	if got := n.ContentPreview(10); got != "abcdefghij" {
		t.Errorf("expected content at exact length to be unclipped, got %q", got)
	}

	empty := &Node{}
	if got := empty.ContentPreview(4); got != "" {
		t.Errorf("expected empty preview for empty content, got %q", got)
	}

	multi := &Node{Content: "héllo wörld"}
	if got := multi.ContentPreview(5); got != "héllo..." {
		t.Errorf("expected rune-aware clipping, got %q", got)
	}
}

func TestIndex_DocumentTypeAndTitle(t *testing.T) {
	idx := buildSample(t)
	if idx.DocumentType() != "Standard Operating Procedure" {
		t.Errorf("unexpected document type %q", idx.DocumentType())
	}
	if idx.Title() != "Guide" {
		t.Errorf("expected title from root, got %q", idx.Title())
	}

	bare := NewBuilder("bare", nil, "", "").Build()
	if bare.DocumentType() != "Document" {
		t.Errorf("expected default document type, got %q", bare.DocumentType())
	}
	if bare.Title() != "bare" {
		t.Errorf("expected title to fall back to document id, got %q", bare.Title())
	}
}

func TestFromOutline_AssignsDottedIDs(t *testing.T) {
	o := &Outline{
		Title: "Handbook",
		Sections: []*Section{
			{Title: "Intro", Text: "Welcome."},
			{Title: "Rules", Children: []*Section{
				{Title: "Returns", Text: "Thirty days."},
				{Text: "Untitled paragraph with some words in it for naming purposes."},
			}},
		},
	}
	idx, err := FromOutline("hb", map[string]any{MetaDocumentType: "Markdown Document"}, o, OutlineOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if idx.Root.ID != RootID || idx.Root.Title != "Handbook" {
		t.Errorf("unexpected root %q %q", idx.Root.ID, idx.Root.Title)
	}
	if idx.Metadata["title"] != "Handbook" {
		t.Errorf("expected title metadata to be filled from outline, got %v", idx.Metadata["title"])
	}
	n, ok := idx.Node("2.1")
	if !ok || n.Title != "Returns" || n.Level != 2 {
		t.Fatalf("expected node 2.1 Returns at level 2, got %+v", n)
	}
	u, ok := idx.Node("2.2")
	if !ok || !strings.HasPrefix(u.Title, "Untitled paragraph with") || !strings.HasSuffix(u.Title, "...") {
		t.Errorf("expected untitled section named from its words, got %q", u.Title)
	}
}

func TestFromOutline_SplitsLongLeaves(t *testing.T) {
	long := strings.Repeat("Sentence number one is here. ", 200)
	o := &Outline{Title: "Big", Sections: []*Section{{Title: "Page 1", Text: long}}}

	idx, err := FromOutline("big", nil, o, OutlineOptions{Split: chunker.Config{ChunkSize: 200, MinChunk: 10}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page, _ := idx.Node("1")
	if page.Content != "" {
		t.Errorf("expected split section to become structural")
	}
	parts := page.Children()
	if len(parts) < 2 {
		t.Fatalf("expected at least 2 parts, got %d", len(parts))
	}
	if parts[0].ID != "1.1" || parts[0].Title != "Page 1 (Part 1)" {
		t.Errorf("unexpected first part %q %q", parts[0].ID, parts[0].Title)
	}
}
