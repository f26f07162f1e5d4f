package gogit

import (
	"os"

	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/ginternals/object"
	"golang.org/x/xerrors"
)

// GetObject returns the raw object stored under the given oid
func (r *Repository) GetObject(oid ginternals.Oid) (*object.Object, error) {
	o, err := r.dotGit.Object(oid)
	if err != nil {
		return nil, xerrors.Errorf("could not get object %s: %w", oid.String(), err)
	}
	return o, nil
}

// GetTree returns the tree stored under the given oid
func (r *Repository) GetTree(oid ginternals.Oid) (*object.Tree, error) {
	o, err := r.GetObject(oid)
	if err != nil {
		return nil, err
	}
	return o.AsTree()
}

// GetCommit returns the commit stored under the given oid
func (r *Repository) GetCommit(oid ginternals.Oid) (*object.Commit, error) {
	o, err := r.GetObject(oid)
	if err != nil {
		return nil, err
	}
	return o.AsCommit()
}

// NewBlob stores the given content as a blob and returns the
// resulting object
func (r *Repository) NewBlob(content []byte) (*object.Object, error) {
	o := object.New(object.TypeBlob, content)
	if _, err := r.dotGit.WriteObject(o); err != nil {
		return nil, xerrors.Errorf("could not write blob: %w", err)
	}
	return o, nil
}

// NewCommit creates a commit pointing at the given tree and parents,
// persists it, and returns it. Like git commit-tree, it doesn't
// validate that the tree or parents actually exist in the odb, and it
// doesn't move any reference: moving HEAD/a branch after a commit is
// the caller's responsibility.
func (r *Repository) NewCommit(treeID ginternals.Oid, parentIDs []ginternals.Oid, message string) (*object.Commit, error) {
	sig := authorSignature()
	c := object.NewCommit(treeID, sig, &object.CommitOptions{
		Message:   message,
		ParentsID: parentIDs,
	})
	if _, err := r.dotGit.WriteObject(c.ToObject()); err != nil {
		return nil, xerrors.Errorf("could not write commit: %w", err)
	}
	return c, nil
}

// authorSignature builds the signature used to author commit-tree
// commits, following git's GIT_AUTHOR_NAME/GIT_AUTHOR_EMAIL
// environment convention, with a fallback identity when unset.
func authorSignature() object.Signature {
	name := os.Getenv("GIT_AUTHOR_NAME")
	if name == "" {
		name = "gogit"
	}
	email := os.Getenv("GIT_AUTHOR_EMAIL")
	if email == "" {
		email = "gogit@localhost"
	}
	return object.NewSignature(name, email)
}
