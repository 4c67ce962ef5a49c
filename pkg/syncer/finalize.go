package syncer

import (
	"os"
	"path"

	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/paths"
	"github.com/arthur-debert/modsync/pkg/staging"
	"github.com/arthur-debert/modsync/pkg/types"
)

// finalize commits the staged session to the live tree. It runs on the
// session goroutine and does not look at the cancellation token: once
// started it either completes or fails on a filesystem error. Deletes run
// before installs so a tracked file standing where a new entry needs a
// directory is gone first. LocalState is written last, and only if every
// move succeeded.
func (s *run) finalize(state *types.LocalState, plan *Plan, overrides []string) error {
	e := s.engine
	s.enter(PhaseFinalizing, Event{Percent: 100, Completed: len(plan.Downloads), Total: len(plan.Downloads)})

	next := state.Clone()

	for _, rel := range plan.Deletes {
		if err := e.fs.Remove(paths.Join(s.live, rel)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, errors.ErrSyncIO, "failed to delete %s", rel).
				WithDetail("path", rel)
		}
		delete(next.Files, rel)
		pruneEmptyParents(e.fs, s.live, rel)
	}
	e.metrics.FilesDeleted(len(plan.Deletes))

	for _, entry := range plan.Downloads {
		dst := paths.Join(s.live, entry.Path)
		if err := staging.Promote(e.fs, s.arena.FilePath(entry.Path), dst); err != nil {
			return errors.Wrapf(err, errors.ErrSyncIO, "failed to install %s", entry.Path).
				WithDetail("path", entry.Path)
		}
		next.Files[entry.Path] = entry.SHA1
	}

	declared := s.manifest.HashMap()
	for _, rel := range plan.Unchanged {
		next.Files[rel] = declared[rel]
	}

	for _, rel := range overrides {
		if err := staging.Promote(e.fs, s.arena.OverridePath(rel), paths.Join(s.live, rel)); err != nil {
			return errors.Wrapf(err, errors.ErrSyncIO, "failed to apply override %s", rel).
				WithDetail("path", rel)
		}
	}

	next.TargetVersionID = s.manifest.VersionID
	next.LastSyncedAt = e.now().UTC()
	if err := e.store.Save(s.instance, next); err != nil {
		return errors.Wrap(err, errors.ErrSyncIO, "failed to persist local state")
	}
	return nil
}

// pruneEmptyParents removes the directories of rel left empty by a delete,
// stopping at the first non-empty one or at root.
func pruneEmptyParents(fsys types.FS, root, rel string) {
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		abs := paths.Join(root, dir)
		entries, err := fsys.ReadDir(abs)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := fsys.Remove(abs); err != nil {
			return
		}
	}
}
