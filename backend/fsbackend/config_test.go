package fsbackend

import (
	"path/filepath"
	"testing"

	"github.com/Nivl/git-go/internal/gitpath"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func TestWriteRemote(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t)

	require.NoError(t, b.WriteRemote("origin", "https://example.com/repo.git"))

	f, err := afero.ReadFile(b.fs, filepath.Join(b.root, gitpath.ConfigPath))
	require.NoError(t, err)

	cfg, err := ini.Load(f)
	require.NoError(t, err)

	section := cfg.Section(`remote "origin"`)
	assert.Equal(t, "https://example.com/repo.git", section.Key("url").String())
	assert.Equal(t, "+refs/heads/*:refs/remotes/origin/*", section.Key("fetch").String())
}

func TestWriteRemoteOverwritesExisting(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t)

	require.NoError(t, b.WriteRemote("origin", "https://example.com/old.git"))
	require.NoError(t, b.WriteRemote("origin", "https://example.com/new.git"))

	f, err := afero.ReadFile(b.fs, filepath.Join(b.root, gitpath.ConfigPath))
	require.NoError(t, err)

	cfg, err := ini.Load(f)
	require.NoError(t, err)

	section := cfg.Section(`remote "origin"`)
	assert.Equal(t, "https://example.com/new.git", section.Key("url").String())
}
