package gogit

import (
	"net/http"

	"github.com/Nivl/git-go/checkout"
	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/ginternals/object"
	"github.com/Nivl/git-go/ginternals/packfile"
	"github.com/Nivl/git-go/transport"
	"golang.org/x/xerrors"
)

// Clone discovers repoURL's refs over smart-HTTP, downloads a
// packfile containing everything reachable from its HEAD, persists
// every object it contains, points HEAD and refs/heads/main at the
// discovered commit regardless of the remote's actual default branch
// name, and checks out the result into dir.
func Clone(repoURL, dir string) (*Repository, error) {
	r, err := InitRepositoryWithOptions(dir, InitOptions{})
	if err != nil {
		return nil, xerrors.Errorf("could not initialize %s: %w", dir, err)
	}

	client := &http.Client{}

	adv, err := transport.DiscoverRefs(client, repoURL)
	if err != nil {
		return nil, xerrors.Errorf("could not discover refs on %s: %w", repoURL, err)
	}

	pack, err := transport.UploadPack(client, repoURL, adv.Head)
	if err != nil {
		return nil, xerrors.Errorf("could not fetch pack from %s: %w", repoURL, err)
	}

	dec, err := packfile.NewDecoder(pack, r.dotGit.Object)
	if err != nil {
		return nil, xerrors.Errorf("could not read packfile: %w", err)
	}
	err = dec.Decode(func(_ ginternals.Oid, o *object.Object) error {
		_, err := r.dotGit.WriteObject(o)
		return err
	})
	if err != nil {
		return nil, xerrors.Errorf("could not ingest packfile: %w", err)
	}

	branchRef := ginternals.NewReference(ginternals.LocalBranchFullName(defaultBranch), adv.Head)
	if err := r.dotGit.WriteReference(branchRef); err != nil {
		return nil, xerrors.Errorf("could not write %s: %w", branchRef.Name(), err)
	}

	if err := r.dotGit.WriteRemote("origin", repoURL); err != nil {
		return nil, xerrors.Errorf("could not write remote: %w", err)
	}

	if err := checkout.Commit(r.dotGit, r.wt, adv.Head, r.root); err != nil {
		return nil, xerrors.Errorf("could not check out %s: %w", adv.Head.String(), err)
	}

	return r, nil
}
