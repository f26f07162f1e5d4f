package gogit

import (
	"errors"
	"path/filepath"

	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/ginternals/object"
	"github.com/Nivl/git-go/internal/gitpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// ErrBareRepository is returned by operations that require a working
// tree on a repository that doesn't have one
var ErrBareRepository = errors.New("repository has no working tree")

// WriteTree snapshots the current working tree (everything but the
// .git directory) into a tree object, persists it, and returns its
// id. Empty directories have no representation in a tree object and
// are silently skipped, same as git does.
func (r *Repository) WriteTree() (ginternals.Oid, error) {
	if r.wt == nil {
		return ginternals.NullOid, ErrBareRepository
	}

	t, err := r.writeTreeDir(r.root)
	if err != nil {
		return ginternals.NullOid, err
	}
	return t.ID(), nil
}

func (r *Repository) writeTreeDir(dir string) (*object.Tree, error) {
	infos, err := afero.ReadDir(r.wt, dir)
	if err != nil {
		return nil, xerrors.Errorf("could not list %s: %w", dir, err)
	}

	tb := r.NewTreeBuilder()
	for _, info := range infos {
		if dir == r.root && info.Name() == gitpath.DotGitPath {
			continue
		}
		p := filepath.Join(dir, info.Name())

		if info.IsDir() {
			subtree, err := r.writeTreeDir(p)
			if err != nil {
				return nil, err
			}
			if len(subtree.Entries()) == 0 {
				continue
			}
			if err := tb.Insert(info.Name(), subtree.ID(), object.ModeDirectory); err != nil {
				return nil, err
			}
			continue
		}

		content, err := afero.ReadFile(r.wt, p)
		if err != nil {
			return nil, xerrors.Errorf("could not read %s: %w", p, err)
		}
		blob, err := r.NewBlob(content)
		if err != nil {
			return nil, err
		}

		mode := object.ModeFile
		if info.Mode()&0o111 != 0 {
			mode = object.ModeExecutable
		}
		if err := tb.Insert(info.Name(), blob.ID(), mode); err != nil {
			return nil, err
		}
	}

	return tb.Write()
}
