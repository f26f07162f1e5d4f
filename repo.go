// Package gogit ties together the object store, backend, and working
// tree into a single Repository facade, the way the cmd/gogit CLI and
// the clone pipeline need it.
package gogit

import (
	"errors"
	"path/filepath"

	"github.com/Nivl/git-go/backend"
	"github.com/Nivl/git-go/backend/fsbackend"
	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/internal/gitpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// defaultBranch is the branch HEAD points to on a freshly initialized
// or cloned repository
const defaultBranch = "main"

// List of errors returned by the Repository struct
var (
	// ErrRepositoryNotExist is returned when trying to open a
	// repository that doesn't exist
	ErrRepositoryNotExist = errors.New("repository does not exist")
	// ErrRepositoryExists is returned when trying to initialize a
	// repository that already exists
	ErrRepositoryExists = errors.New("repository already exists")
)

// Repository represents a git repository: the .git directory tracking
// history (the backend) plus, for non-bare repositories, the working
// tree it's checked out into.
type Repository struct {
	dotGitPath string
	dotGit     backend.Backend
	root       string
	wt         afero.Fs
}

// InitOptions contains all the optional data used to initialize a
// repository
type InitOptions struct {
	// IsBare represents whether a bare repository will be created or not
	IsBare bool
	// GitBackend represents the underlying backend to use to init the
	// repository and interact with the odb.
	// Defaults to a filesystem backend rooted at root/.git
	GitBackend backend.Backend
	// WorkingTreeFS represents the filesystem implementation to use to
	// interact with the working tree.
	// Defaults to the OS filesystem. Unused if IsBare is set.
	WorkingTreeFS afero.Fs
}

// InitRepository initializes a new git repository by creating the
// .git directory in root, which is where almost everything this
// module stores and manipulates lives.
// https://git-scm.com/book/en/v2/Git-Internals-Plumbing-and-Porcelain
func InitRepository(root string) (*Repository, error) {
	return InitRepositoryWithOptions(root, InitOptions{})
}

// InitRepositoryWithOptions is InitRepository with explicit control
// over the backend and working-tree filesystem used.
func InitRepositoryWithOptions(root string, opts InitOptions) (*Repository, error) {
	r := newRepository(root, opts.IsBare, opts.GitBackend, opts.WorkingTreeFS)

	if err := r.dotGit.Init(); err != nil {
		return nil, xerrors.Errorf("could not initialize backend: %w", err)
	}

	ref := ginternals.NewSymbolicReference(ginternals.Head, ginternals.LocalBranchFullName(defaultBranch))
	if err := r.dotGit.WriteReferenceSafe(ref); err != nil {
		if errors.Is(err, ginternals.ErrRefExists) {
			return nil, ErrRepositoryExists
		}
		return nil, xerrors.Errorf("could not write HEAD: %w", err)
	}

	return r, nil
}

// OpenRepository loads an existing git repository by locating its
// HEAD reference, and returns a Repository instance
func OpenRepository(root string) (*Repository, error) {
	return OpenRepositoryWithOptions(root, InitOptions{})
}

// OpenRepositoryWithOptions is OpenRepository with explicit control
// over the backend and working-tree filesystem used.
func OpenRepositoryWithOptions(root string, opts InitOptions) (*Repository, error) {
	r := newRepository(root, opts.IsBare, opts.GitBackend, opts.WorkingTreeFS)

	// There's no reliable "does this directory look like a repo" check
	// that works identically across afero backends, so we probe for
	// HEAD instead: every repository this module creates has one.
	if _, err := r.dotGit.Reference(ginternals.Head); err != nil {
		return nil, ErrRepositoryNotExist
	}

	return r, nil
}

func newRepository(root string, isBare bool, gitBackend backend.Backend, wtFS afero.Fs) *Repository {
	dotGitPath := root
	if !isBare {
		dotGitPath = filepath.Join(root, gitpath.DotGitPath)
	}

	r := &Repository{
		root:       root,
		dotGitPath: dotGitPath,
		dotGit:     gitBackend,
	}
	if r.dotGit == nil {
		r.dotGit = fsbackend.New(dotGitPath)
	}

	if !isBare {
		r.wt = wtFS
		if r.wt == nil {
			r.wt = afero.NewOsFs()
		}
	}

	return r
}

// IsBare returns whether the repository has no working tree
func (r *Repository) IsBare() bool {
	return r.wt == nil
}

// Root returns the path to the repository's root directory (the
// working tree for a non-bare repository, the .git directory for a
// bare one)
func (r *Repository) Root() string {
	return r.root
}

// Backend returns the backend used to store and retrieve objects and
// references
func (r *Repository) Backend() backend.Backend {
	return r.dotGit
}

// WorkingTree returns the filesystem the working tree is checked out
// on. It's nil for bare repositories.
func (r *Repository) WorkingTree() afero.Fs {
	return r.wt
}

// Close releases the resources held by the repository's backend
func (r *Repository) Close() error {
	return r.dotGit.Close()
}
