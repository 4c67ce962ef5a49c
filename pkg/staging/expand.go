package staging

import (
	"archive/zip"
	"context"
	"io"
	"sort"
	"strings"

	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/paths"
)

// DefaultChunkSize is the number of archive entries written between two
// cancellation checks.
const DefaultChunkSize = 64

// Expand unpacks the zip archive at archivePath into the arena's override
// subtree and returns the normalized relative paths it wrote, sorted.
//
// Entries are processed in chunks of chunkSize; ctx is checked before every
// chunk, so a cancellation is observed within one chunk. Entries that are
// absolute, escape the root or target the staging directory are skipped.
// When an archive lists a path twice the later entry wins.
func (a *Arena) Expand(ctx context.Context, archivePath string, chunkSize int) ([]string, error) {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}

	f, err := a.fs.Open(archivePath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrSyncIO, "failed to open archive %s", archivePath)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrSyncIO, "failed to stat archive %s", archivePath)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err == zip.ErrInsecurePath {
		// unsafe names are filtered per entry below
		err = nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrSyncIO, "failed to read archive %s", archivePath)
	}

	written := make(map[string]bool)
	for start := 0; start < len(zr.File); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrSyncCancelled, "override extraction cancelled")
		}

		end := start + chunkSize
		if end > len(zr.File) {
			end = len(zr.File)
		}
		for _, entry := range zr.File[start:end] {
			rel, ok := a.entryPath(entry)
			if !ok {
				continue
			}
			if err := a.extract(entry, rel); err != nil {
				return nil, err
			}
			written[rel] = true
		}
	}

	out := make([]string, 0, len(written))
	for rel := range written {
		out = append(out, rel)
	}
	sort.Strings(out)

	a.logger.Debug().
		Str("archive", archivePath).
		Int("entries", len(zr.File)).
		Int("files", len(out)).
		Msg("Expanded override archive")
	return out, nil
}

// entryPath returns the install path of a regular file entry.
func (a *Arena) entryPath(entry *zip.File) (string, bool) {
	if entry.FileInfo().IsDir() || strings.HasSuffix(entry.Name, "/") {
		return "", false
	}

	rel, err := paths.NormalizeRelPath(entry.Name)
	if err != nil {
		a.logger.Warn().Str("entry", entry.Name).Err(err).Msg("Skipping unsafe archive entry")
		return "", false
	}
	if rel == paths.StagingDirName || strings.HasPrefix(rel, paths.StagingDirName+"/") {
		a.logger.Warn().Str("entry", entry.Name).Msg("Skipping archive entry inside the staging directory")
		return "", false
	}
	return rel, true
}

func (a *Arena) extract(entry *zip.File, rel string) error {
	rc, err := entry.Open()
	if err != nil {
		return errors.Wrapf(err, errors.ErrSyncIO, "failed to open archive entry %s", entry.Name)
	}
	defer func() {
		_ = rc.Close()
	}()

	out, err := a.Create(a.OverridePath(rel))
	if err != nil {
		return errors.Wrapf(err, errors.ErrSyncIO, "failed to stage override %s", rel)
	}

	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return errors.Wrapf(err, errors.ErrSyncIO, "failed to extract override %s", rel)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrSyncIO, "failed to extract override %s", rel)
	}
	return nil
}
