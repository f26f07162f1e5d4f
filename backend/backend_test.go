package backend_test

import (
	"testing"

	"github.com/Nivl/git-go/backend"
	"github.com/Nivl/git-go/backend/fsbackend"
	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/ginternals/object"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBackendRoundTrip exercises the backend.Backend interface end to
// end against the filesystem implementation: init, write/read objects,
// write/read/walk references.
func TestBackendRoundTrip(t *testing.T) {
	t.Parallel()

	var b backend.Backend = fsbackend.NewWithFS(afero.NewMemMapFs(), "/repo/.git")
	require.NoError(t, b.Init())
	t.Cleanup(func() {
		require.NoError(t, b.Close())
	})

	o := object.New(object.TypeBlob, []byte("hello world"))
	oid, err := b.WriteObject(o)
	require.NoError(t, err)

	has, err := b.HasObject(oid)
	require.NoError(t, err)
	assert.True(t, has)

	got, err := b.Object(oid)
	require.NoError(t, err)
	assert.Equal(t, o.Bytes(), got.Bytes())

	target, err := ginternals.NewOidFromString("bbb720a96e4c29b9950a4c577c98470a4d5dd089")
	require.NoError(t, err)
	ref := ginternals.NewReference("refs/heads/master", target)
	require.NoError(t, b.WriteReference(ref))

	err = b.WriteReferenceSafe(ref)
	assert.ErrorIs(t, err, ginternals.ErrRefExists)

	got2, err := b.Reference("refs/heads/master")
	require.NoError(t, err)
	assert.Equal(t, target, got2.Target())

	seenRefs := map[string]bool{}
	require.NoError(t, b.WalkReferences(func(ref *ginternals.Reference) error {
		seenRefs[ref.Name()] = true
		return nil
	}))
	assert.True(t, seenRefs["refs/heads/master"])

	seenObjects := map[ginternals.Oid]bool{}
	require.NoError(t, b.WalkLooseObjectIDs(func(id ginternals.Oid) error {
		seenObjects[id] = true
		return nil
	}))
	assert.True(t, seenObjects[oid])
}
