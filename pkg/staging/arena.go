// Package staging manages the scratch area a sync session writes to before
// anything reaches the live tree.
//
// An Arena is private to one session. Downloads land under files/ mirroring
// their final relative paths, and the override archive is expanded under
// overrides/. Nothing in this package writes to the live tree except
// Promote, which the sync engine calls only while finalizing.
package staging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/logging"
	"github.com/arthur-debert/modsync/pkg/paths"
	"github.com/arthur-debert/modsync/pkg/types"
	"github.com/rs/zerolog"
)

const (
	filesDir     = "files"
	overridesDir = "overrides"
	archivesDir  = "archives"
)

// Arena is one session's staging subtree.
type Arena struct {
	fs     types.FS
	root   string
	logger zerolog.Logger
}

// New creates the arena directory at root.
func New(fsys types.FS, root string) (*Arena, error) {
	if err := fsys.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrDirCreate, "failed to create staging area %s", root)
	}
	return &Arena{
		fs:     fsys,
		root:   root,
		logger: logging.ForArena(logging.GetLogger("staging"), root),
	}, nil
}

// Root is the arena directory.
func (a *Arena) Root() string {
	return a.root
}

// FilePath is where the download for a manifest path is staged.
func (a *Arena) FilePath(rel string) string {
	return paths.Join(filepath.Join(a.root, filesDir), rel)
}

// OverridePath is where an expanded override entry is staged.
func (a *Arena) OverridePath(rel string) string {
	return paths.Join(filepath.Join(a.root, overridesDir), rel)
}

// ArchivePath is where a downloaded archive named name is kept.
func (a *Arena) ArchivePath(name string) string {
	return filepath.Join(a.root, archivesDir, name)
}

// Create opens path for writing, creating parent directories.
func (a *Arena) Create(path string) (types.File, error) {
	if err := a.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", filepath.Dir(path))
	}
	f, err := a.fs.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileWrite, "failed to create %s", path)
	}
	return f, nil
}

// Cleanup removes the arena, and the shared staging directory above it when
// no other session is using it.
func (a *Arena) Cleanup() error {
	if err := a.fs.RemoveAll(a.root); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to remove staging area %s", a.root)
	}

	parent := filepath.Dir(a.root)
	if entries, err := a.fs.ReadDir(parent); err == nil && len(entries) == 0 {
		_ = a.fs.Remove(parent)
	}

	a.logger.Debug().Msg("Staging area removed")
	return nil
}

// Promote moves a staged file to dst, creating parent directories and
// replacing any file already there. A rename is tried first; when source and
// destination are on different devices the content is copied next to dst
// and renamed into place instead.
func Promote(fsys types.FS, src, dst string) error {
	if err := fsys.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", filepath.Dir(dst))
	}

	if err := fsys.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyInto(fsys, src, dst); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to move %s to %s", src, dst)
	}
	_ = fsys.Remove(src)
	return nil
}

// copyInto writes src to a temporary file beside dst and renames it over dst.
func copyInto(fsys types.FS, src, dst string) error {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	tmp := dst + ".modsync-tmp"
	out, err := fsys.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		_ = fsys.Remove(tmp)
	}()

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if err := fsys.Rename(tmp, dst); err != nil {
		if !os.IsExist(err) {
			return err
		}
		if err := fsys.Remove(dst); err != nil {
			return err
		}
		return fsys.Rename(tmp, dst)
	}
	return nil
}
