package syncer

import (
	stderrors "errors"
	"os"
	"sort"
	"syscall"

	"github.com/arthur-debert/modsync/pkg/config"
	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/internal/hashutil"
	"github.com/arthur-debert/modsync/pkg/paths"
	"github.com/arthur-debert/modsync/pkg/types"
)

// Plan is the outcome of diffing a manifest against an instance.
type Plan struct {
	// Downloads are the entries to fetch, in manifest order.
	Downloads []types.FileEntry
	// Deletes are tracked paths the manifest no longer lists, sorted.
	Deletes []string
	// Unchanged are the manifest paths already up to date, in manifest order.
	Unchanged []string
	// Overrides is the manifest's override archive, if any.
	Overrides *types.Overrides
}

// IsEmpty reports whether applying the plan would change nothing.
func (p *Plan) IsEmpty() bool {
	return len(p.Downloads) == 0 && len(p.Deletes) == 0 && p.Overrides == nil
}

// diff compares m with the recorded state and the live tree at root.
//
// In trust mode a tracked path's recorded hash is taken as the on-disk hash
// and only untracked paths are hashed from disk. In rehash mode every path is
// hashed from disk. The unchecked sentinel only matches a recorded
// "unchecked", so such entries are fetched once and then trusted.
func diff(fsys types.FS, root string, m *types.Manifest, state *types.LocalState, mode config.VerifyMode) (*Plan, error) {
	plan := &Plan{Overrides: m.Overrides}

	for _, entry := range m.Files {
		current, err := currentHash(fsys, root, entry.Path, state, mode)
		if err != nil {
			return nil, err
		}

		switch {
		case current == "":
			plan.Downloads = append(plan.Downloads, entry)
		case hashutil.Equal(current, entry.SHA1):
			plan.Unchanged = append(plan.Unchanged, entry.Path)
		default:
			plan.Downloads = append(plan.Downloads, entry)
		}
	}

	wanted := m.PathSet()
	for p := range state.Files {
		if !wanted[p] {
			plan.Deletes = append(plan.Deletes, p)
		}
	}
	sort.Strings(plan.Deletes)

	return plan, nil
}

// currentHash returns what the instance holds at rel, or "" for nothing.
func currentHash(fsys types.FS, root, rel string, state *types.LocalState, mode config.VerifyMode) (string, error) {
	if mode != config.VerifyRehash {
		if h, ok := state.Files[rel]; ok {
			return h, nil
		}
	}

	live := paths.Join(root, rel)
	info, err := fsys.Stat(live)
	if err != nil {
		// A parent that is currently a file means rel is absent too.
		if os.IsNotExist(err) || stderrors.Is(err, syscall.ENOTDIR) {
			return "", nil
		}
		return "", errors.Wrapf(err, errors.ErrSyncIO, "failed to inspect %s", rel).WithDetail("path", rel)
	}
	if info.IsDir() {
		return "", nil
	}

	h, err := hashutil.CalculateFileChecksum(fsys, live)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrSyncIO, "failed to hash %s", rel).WithDetail("path", rel)
	}
	return h, nil
}
