package fsbackend

import (
	"fmt"
	"path/filepath"

	"github.com/Nivl/git-go/backend"
	"github.com/Nivl/git-go/internal/gitpath"
	"golang.org/x/xerrors"
	"gopkg.in/ini.v1"
)

// setDefaultCfg set and persists the default git configuration for
// the repository
func (b *Backend) setDefaultCfg() error {
	cfg := ini.Empty()

	// Core
	core, err := cfg.NewSection(backend.CfgCore)
	if err != nil {
		return xerrors.Errorf("could not create core section: %w", err)
	}
	coreCfg := map[string]string{
		backend.CfgCoreFormatVersion:     "0",
		backend.CfgCoreFileMode:          "true",
		backend.CfgCoreBare:              "false",
		backend.CfgCoreLogAllRefUpdate:   "true",
		backend.CfgCoreIgnoreCase:        "true",
		backend.CfgCorePrecomposeUnicode: "true",
	}
	for k, v := range coreCfg {
		if _, err := core.NewKey(k, v); err != nil {
			return xerrors.Errorf("could not set %s: %w", k, err)
		}
	}

	f, err := b.fs.Create(filepath.Join(b.root, gitpath.ConfigPath))
	if err != nil {
		return xerrors.Errorf("could not create config file: %w", err)
	}
	defer f.Close() //nolint:errcheck // best effort, we already have what we need

	if _, err := cfg.WriteTo(f); err != nil {
		return xerrors.Errorf("could not write config file: %w", err)
	}
	return nil
}

// WriteRemote adds (or overwrites) a `[remote "name"]` section in the
// local config file, with the given url and the standard
// all-branches fetch refspec.
func (b *Backend) WriteRemote(name, url string) error {
	p := filepath.Join(b.root, gitpath.ConfigPath)

	cfg := ini.Empty()
	if f, err := b.fs.Open(p); err == nil {
		loaded, loadErr := ini.Load(f)
		closeErr := f.Close()
		if loadErr != nil {
			return xerrors.Errorf("could not parse existing config file: %w", loadErr)
		}
		if closeErr != nil {
			return xerrors.Errorf("could not close config file: %w", closeErr)
		}
		cfg = loaded
	}

	section, err := cfg.NewSection(fmt.Sprintf("remote %q", name))
	if err != nil {
		return xerrors.Errorf("could not create remote section: %w", err)
	}
	if _, err := section.NewKey("url", url); err != nil {
		return xerrors.Errorf("could not set remote url: %w", err)
	}
	if _, err := section.NewKey("fetch", fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", name)); err != nil {
		return xerrors.Errorf("could not set remote fetch refspec: %w", err)
	}

	f, err := b.fs.Create(p)
	if err != nil {
		return xerrors.Errorf("could not open config file for writing: %w", err)
	}
	defer f.Close() //nolint:errcheck // best effort, we already have what we need

	if _, err := cfg.WriteTo(f); err != nil {
		return xerrors.Errorf("could not write config file: %w", err)
	}
	return nil
}
