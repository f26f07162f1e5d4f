// Package fsbackend contains an implementation of the backend.Backend
// interface for the filesystem
package fsbackend

import (
	"path/filepath"
	"sync"

	"github.com/Nivl/git-go/backend"
	"github.com/Nivl/git-go/internal/cache"
	"github.com/Nivl/git-go/internal/gitpath"
	"github.com/Nivl/git-go/internal/syncutil"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// we make sure the struct implements the interface
var _ backend.Backend = (*Backend)(nil)

// objectLockShards is the amount of mutexes used to guard concurrent
// access to a single object. 2 keys may collide and share a lock.
const objectLockShards = 256

// Backend is a Backend implementation that uses the filesystem to store data
type Backend struct {
	root string
	fs   afero.Fs

	cache        *cache.LRU
	objectMu     *syncutil.NamedMutex
	looseObjects sync.Map
}

// New returns a new Backend object using the OS filesystem.
// The backend still needs to be loaded (or initialized) before use.
func New(dotGitPath string) *Backend {
	return NewWithFS(afero.NewOsFs(), dotGitPath)
}

// NewWithFS returns a new Backend object backed by the given
// filesystem. Tests typically use an in-memory afero.Fs.
func NewWithFS(fs afero.Fs, dotGitPath string) *Backend {
	return &Backend{
		root:     dotGitPath,
		fs:       fs,
		cache:    cache.NewLRU(0),
		objectMu: syncutil.NewNamedMutex(objectLockShards),
	}
}

// Load records the oids of the existing repository's loose objects
// in memory; only objects recorded this way (or written through this
// backend) can be read back.
// It should be called once, right after New()/NewWithFS(), on a
// repository that already exists on disk.
func (b *Backend) Load() error {
	return b.loadLooseObject()
}

// Close releases the resources held by the backend
func (b *Backend) Close() error {
	b.cache.Clear()
	return nil
}

// Init initializes a repository
func (b *Backend) Init() error {
	// Create the directories
	dirs := []string{
		gitpath.ObjectsPath,
		gitpath.RefsTagsPath,
		gitpath.RefsHeadsPath,
		gitpath.ObjectsInfoPath,
		gitpath.ObjectsPackPath,
	}
	for _, d := range dirs {
		fullPath := filepath.Join(b.root, d)
		if err := b.fs.MkdirAll(fullPath, 0o750); err != nil {
			return xerrors.Errorf("could not create directory %s: %w", d, err)
		}
	}

	// Create the files with the default content
	// (taken from a repo created on github)
	files := []struct {
		path    string
		content []byte
	}{
		{
			path:    gitpath.DescriptionPath,
			content: []byte("Unnamed repository; edit this file 'description' to name the repository.\n"),
		},
	}
	for _, f := range files {
		fullPath := filepath.Join(b.root, f.path)
		if err := afero.WriteFile(b.fs, fullPath, f.content, 0o644); err != nil {
			return xerrors.Errorf("could not create file %s: %w", f, err)
		}
	}

	if err := b.setDefaultCfg(); err != nil {
		return xerrors.Errorf("could not set the default config: %w", err)
	}

	return nil
}
