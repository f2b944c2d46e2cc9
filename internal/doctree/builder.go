package doctree

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is returned when a node id is already present in the index.
	ErrDuplicateID = errors.New("duplicate node id")
	// ErrSealed is returned when a built index is modified.
	ErrSealed = errors.New("index is sealed")
	// ErrForeignParent is returned when the parent belongs to another builder.
	ErrForeignParent = errors.New("parent is not part of this index")
)

// Builder assembles an Index. It is not safe for concurrent use.
type Builder struct {
	idx    *Index
	sealed bool
}

// NewBuilder starts a document whose root node has id RootID.
func NewBuilder(documentID string, metadata map[string]any, rootTitle, rootContent string) *Builder {
	if metadata == nil {
		metadata = map[string]any{}
	}
	root := &Node{ID: RootID, Title: rootTitle, Content: rootContent}
	return &Builder{
		idx: &Index{
			DocumentID: documentID,
			Metadata:   metadata,
			Root:       root,
			nodesByID:  map[string]*Node{RootID: root},
		},
	}
}

// Root returns the root node under construction.
func (b *Builder) Root() *Node {
	return b.idx.Root
}

// SetMeta sets a metadata value.
func (b *Builder) SetMeta(key string, value any) error {
	if b.sealed {
		return ErrSealed
	}
	b.idx.Metadata[key] = value
	return nil
}

// Add appends a child to parent and registers it in the id lookup.
func (b *Builder) Add(parent *Node, id, title, content string) (*Node, error) {
	if b.sealed {
		return nil, ErrSealed
	}
	if parent == nil || b.idx.nodesByID[parent.ID] != parent {
		return nil, ErrForeignParent
	}
	if _, exists := b.idx.nodesByID[id]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	n := &Node{
		ID:      id,
		Title:   title,
		Content: content,
		Level:   parent.Level + 1,
		parent:  parent,
	}
	if parent.childIdx == nil {
		parent.childIdx = make(map[string]int)
	}
	parent.childIdx[id] = len(parent.children)
	parent.children = append(parent.children, n)
	b.idx.nodesByID[id] = n
	return n, nil
}

// Build seals the builder and returns the finished index.
func (b *Builder) Build() *Index {
	b.sealed = true
	return b.idx
}
