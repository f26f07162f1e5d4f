package fsbackend

import (
	"path/filepath"
	"testing"

	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/internal/gitpath"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()

	b := NewWithFS(afero.NewMemMapFs(), "/repo/.git")
	require.NoError(t, b.Init())
	return b
}

func TestReference(t *testing.T) {
	t.Parallel()

	t.Run("Should fail if reference doesn't exists", func(t *testing.T) {
		t.Parallel()

		b := newTestBackend(t)
		ref, err := b.Reference("refs/heads/doesnt_exists")
		require.Error(t, err)
		assert.True(t, xerrors.Is(err, ginternals.ErrRefNotFound), "unexpected error returned")
		assert.Nil(t, ref)
	})

	t.Run("Should success to follow a symbolic ref", func(t *testing.T) {
		t.Parallel()

		b := newTestBackend(t)

		target, err := ginternals.NewOidFromString("bbb720a96e4c29b9950a4c577c98470a4d5dd089")
		require.NoError(t, err)
		require.NoError(t, b.WriteReference(ginternals.NewReference("refs/heads/master", target)))
		require.NoError(t, b.WriteReference(ginternals.NewSymbolicReference("HEAD", "refs/heads/master")))

		ref, err := b.Reference("HEAD")
		require.NoError(t, err)
		require.NotNil(t, ref)

		assert.Equal(t, "HEAD", ref.Name())
		assert.Equal(t, "refs/heads/master", ref.SymbolicTarget())
		assert.Equal(t, target, ref.Target())
	})

	t.Run("Should success to follow an oid ref", func(t *testing.T) {
		t.Parallel()

		b := newTestBackend(t)

		target, err := ginternals.NewOidFromString("bbb720a96e4c29b9950a4c577c98470a4d5dd089")
		require.NoError(t, err)
		require.NoError(t, b.WriteReference(ginternals.NewReference("refs/heads/master", target)))

		ref, err := b.Reference("refs/heads/master")
		require.NoError(t, err)
		require.NotNil(t, ref)

		assert.Equal(t, "refs/heads/master", ref.Name())
		assert.Empty(t, ref.SymbolicTarget())
		assert.Equal(t, target, ref.Target())
	})
}

func TestParsePackedRefs(t *testing.T) {
	t.Parallel()

	t.Run("Should return empty list if no files", func(t *testing.T) {
		t.Parallel()

		b := newTestBackend(t)

		data, err := b.parsePackedRefs()
		require.NoError(t, err)
		assert.NotNil(t, data)
		assert.Empty(t, data)
	})

	t.Run("Should fail if file contains invalid data", func(t *testing.T) {
		t.Parallel()

		b := newTestBackend(t)
		fPath := filepath.Join(b.root, gitpath.PackedRefsPath)
		require.NoError(t, afero.WriteFile(b.fs, fPath, []byte("not valid data"), 0o644))

		_, err := b.parsePackedRefs()
		require.Error(t, err)
		assert.True(t, xerrors.Is(err, ginternals.ErrPackedRefInvalid), "unexpected error received")
	})

	t.Run("Should pass with comments and annotations", func(t *testing.T) {
		t.Parallel()

		b := newTestBackend(t)
		fPath := filepath.Join(b.root, gitpath.PackedRefsPath)
		require.NoError(t, afero.WriteFile(b.fs, fPath, []byte("^de111c003b5661db802f17ac69419dcb9f4f3137\n# this is a comment"), 0o644))

		_, err := b.parsePackedRefs()
		require.NoError(t, err)
	})

	t.Run("Should correctly extract data", func(t *testing.T) {
		t.Parallel()

		b := newTestBackend(t)
		fPath := filepath.Join(b.root, gitpath.PackedRefsPath)
		content := "bbb720a96e4c29b9950a4c577c98470a4d5dd089 refs/heads/master\n" +
			"b328320060eb503cf337c7cff281712ef236963a refs/heads/ml/cleanup-062020\n" +
			"^de111c003b5661db802f17ac69419dcb9f4f3137\n" +
			"# a comment\n"
		require.NoError(t, afero.WriteFile(b.fs, fPath, []byte(content), 0o644))

		data, err := b.parsePackedRefs()
		require.NoError(t, err)
		expected := map[string]string{
			"refs/heads/master":            "bbb720a96e4c29b9950a4c577c98470a4d5dd089",
			"refs/heads/ml/cleanup-062020": "b328320060eb503cf337c7cff281712ef236963a",
		}
		assert.Equal(t, expected, data)
	})
}

func TestWalkReferences(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t)
	target, err := ginternals.NewOidFromString("bbb720a96e4c29b9950a4c577c98470a4d5dd089")
	require.NoError(t, err)
	require.NoError(t, b.WriteReference(ginternals.NewReference("refs/heads/master", target)))
	require.NoError(t, b.WriteReference(ginternals.NewReference("refs/heads/other", target)))

	found := map[string]bool{}
	err = b.WalkReferences(func(ref *ginternals.Reference) error {
		found[ref.Name()] = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, found["refs/heads/master"])
	assert.True(t, found["refs/heads/other"])
}
