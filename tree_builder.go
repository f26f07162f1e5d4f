package gogit

import (
	"sort"

	"github.com/Nivl/git-go/backend"
	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/ginternals/object"
)

// TreeBuilder assembles a tree object entry by entry, the way the
// write-tree command and the clone pipeline stage a directory
// snapshot before persisting it as a single tree object.
type TreeBuilder struct {
	backend backend.Backend
	entries map[string]object.TreeEntry
}

// NewTreeBuilder returns an empty TreeBuilder
func (r *Repository) NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{
		backend: r.dotGit,
		entries: map[string]object.TreeEntry{},
	}
}

// NewTreeBuilderFromTree returns a TreeBuilder pre-populated with the
// entries of the given tree, so it can be edited incrementally
func (r *Repository) NewTreeBuilderFromTree(t *object.Tree) *TreeBuilder {
	tb := r.NewTreeBuilder()
	for _, e := range t.Entries() {
		tb.entries[e.Path] = e
	}
	return tb
}

// Insert adds (or overwrites) an entry in the tree being built
func (tb *TreeBuilder) Insert(path string, oid ginternals.Oid, mode object.TreeObjectMode) error {
	if !mode.IsValid() {
		return object.ErrObjectInvalid
	}
	tb.entries[path] = object.TreeEntry{
		Path: path,
		ID:   oid,
		Mode: mode,
	}
	return nil
}

// Remove removes an entry from the tree being built, if present
func (tb *TreeBuilder) Remove(path string) {
	delete(tb.entries, path)
}

// Write persists the tree built so far and returns it
func (tb *TreeBuilder) Write() (*object.Tree, error) {
	entries := make([]object.TreeEntry, 0, len(tb.entries))
	for _, e := range tb.entries {
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return sortName(entries[i]) < sortName(entries[j])
	})

	t := object.NewTree(entries)
	if _, err := tb.backend.WriteObject(t.ToObject()); err != nil {
		return nil, err
	}
	return t, nil
}

// sortName returns the name used to order a tree entry against its
// siblings. Directories are compared as if their name had a trailing
// slash, so a file "a.b" sorts before a directory "a" ('.' (0x2E) is
// less than '/' (0x2F)), while a file "a" sorts before a directory "a.b".
func sortName(e object.TreeEntry) string {
	if e.Mode == object.ModeDirectory {
		return e.Path + "/"
	}
	return e.Path
}
