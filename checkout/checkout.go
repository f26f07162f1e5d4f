// Package checkout materializes tree and commit objects onto a
// working tree filesystem, the way `git checkout` and the tail end of
// `git clone` populate a directory from the odb.
package checkout

import (
	"os"
	"path/filepath"

	"github.com/Nivl/git-go/backend"
	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/ginternals/object"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Tree materializes the tree identified by oid into dir on fs.
// Subtrees are checked out recursively; files are created (or
// truncated if already present) with the permissions recorded for
// their entry: 0755 for an executable entry, 0644 otherwise.
// Checkout is not atomic: a failure partway through can leave dir
// partially populated.
func Tree(b backend.Backend, fs afero.Fs, oid ginternals.Oid, dir string) error {
	o, err := b.Object(oid)
	if err != nil {
		return xerrors.Errorf("could not get tree %s: %w", oid.String(), err)
	}
	t, err := o.AsTree()
	if err != nil {
		return xerrors.Errorf("%s is not a tree: %w", oid.String(), err)
	}

	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return xerrors.Errorf("could not create %s: %w", dir, err)
	}

	for _, entry := range t.Entries() {
		p := filepath.Join(dir, entry.Path)

		switch entry.Mode {
		case object.ModeDirectory:
			if err := Tree(b, fs, entry.ID, p); err != nil {
				return err
			}
		case object.ModeGitLink:
			// submodules aren't part of this client's scope; skip
			// rather than writing the gitlink's raw id bytes as if
			// they were file content.
			continue
		case object.ModeSymLink:
			if err := checkoutSymlink(b, fs, entry, p); err != nil {
				return err
			}
		default:
			if err := checkoutFile(b, fs, entry, p); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkoutSymlink materializes a symlink entry, whose blob content is
// the link target. Falls back to writing the target path as a regular
// file's content when fs doesn't implement afero.Linker (ex. an
// in-memory fs used by tests).
func checkoutSymlink(b backend.Backend, fs afero.Fs, entry object.TreeEntry, p string) error {
	o, err := b.Object(entry.ID)
	if err != nil {
		return xerrors.Errorf("could not get blob %s: %w", entry.ID.String(), err)
	}
	blob := o.AsBlob()

	linker, ok := fs.(afero.Linker)
	if !ok {
		return checkoutFile(b, fs, entry, p)
	}
	if err := linker.SymlinkIfPossible(string(blob.Bytes()), p); err != nil {
		return xerrors.Errorf("could not symlink %s: %w", p, err)
	}
	return nil
}

func checkoutFile(b backend.Backend, fs afero.Fs, entry object.TreeEntry, p string) error {
	o, err := b.Object(entry.ID)
	if err != nil {
		return xerrors.Errorf("could not get blob %s: %w", entry.ID.String(), err)
	}
	blob := o.AsBlob()

	perm := os.FileMode(0o644)
	if entry.Mode == object.ModeExecutable {
		perm = 0o755
	}

	f, err := fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return xerrors.Errorf("could not create %s: %w", p, err)
	}
	if _, err := f.Write(blob.Bytes()); err != nil {
		f.Close() //nolint:errcheck // we already have the error we care about
		return xerrors.Errorf("could not write %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		return xerrors.Errorf("could not close %s: %w", p, err)
	}
	return nil
}

// Commit checks out the working tree of the commit identified by oid
// into dir.
func Commit(b backend.Backend, fs afero.Fs, oid ginternals.Oid, dir string) error {
	o, err := b.Object(oid)
	if err != nil {
		return xerrors.Errorf("could not get commit %s: %w", oid.String(), err)
	}
	c, err := o.AsCommit()
	if err != nil {
		return xerrors.Errorf("%s is not a commit: %w", oid.String(), err)
	}
	return Tree(b, fs, c.TreeID(), dir)
}
