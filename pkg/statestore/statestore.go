// Package statestore persists the per-instance LocalState document.
//
// There is one JSON document per instance. Reads never fail the caller: a
// missing document is a first sync and a corrupt one is reported through the
// log and replaced by an empty state, which forces a full re-evaluation on
// the next sync. Writes replace the whole document through a temporary file
// and a rename, so a crash leaves either the old or the new document.
package statestore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/logging"
	"github.com/arthur-debert/modsync/pkg/paths"
	"github.com/arthur-debert/modsync/pkg/types"
	"github.com/rs/zerolog"
)

const tempSuffix = ".tmp"

// Store reads and writes LocalState documents.
type Store struct {
	fs     types.FS
	locate func(instanceID string) string
	logger zerolog.Logger
}

// New creates a Store. locator maps an instance id to its document path,
// typically paths.Paths.StateFilePath.
func New(fsys types.FS, locator func(instanceID string) string) *Store {
	return &Store{
		fs:     fsys,
		locate: locator,
		logger: logging.GetLogger("statestore"),
	}
}

// Path returns where the document of instanceID lives.
func (s *Store) Path(instanceID string) string {
	return s.locate(instanceID)
}

// Load returns the state of instanceID. Absent and corrupt documents both
// yield an empty state; corruption is logged.
func (s *Store) Load(instanceID string) *types.LocalState {
	st, err := s.LoadStrict(instanceID)
	if err != nil {
		logger := logging.ForInstance(s.logger, instanceID)
		logger.Warn().
			Err(err).
			Str("path", s.Path(instanceID)).
			Msg("Local state unreadable, treating instance as never synced")
		return types.NewLocalState()
	}
	return st
}

// LoadStrict is Load without the recovery: a corrupt document is returned
// as STATE_CORRUPTION. An absent document is still an empty state.
func (s *Store) LoadStrict(instanceID string) (*types.LocalState, error) {
	path := s.Path(instanceID)

	data, err := s.fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.NewLocalState(), nil
		}
		return nil, errors.Wrapf(err, errors.ErrStateCorruption, "failed to read state of %s", instanceID).
			WithDetail("path", path)
	}

	var st types.LocalState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.Wrapf(err, errors.ErrStateCorruption, "failed to parse state of %s", instanceID).
			WithDetail("path", path)
	}

	files := make(map[string]string, len(st.Files))
	for p, hash := range st.Files {
		normalized, err := paths.NormalizeRelPath(p)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrStateCorruption, "state of %s tracks an invalid path", instanceID).
				WithDetail("path", path).
				WithDetail("entry", p)
		}
		files[normalized] = hash
	}
	st.Files = files
	return &st, nil
}

// Save replaces the document of instanceID with st.
func (s *Store) Save(instanceID string, st *types.LocalState) error {
	path := s.Path(instanceID)
	if st.Files == nil {
		st = st.Clone()
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "failed to encode state of %s", instanceID)
	}

	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create state directory %s", dir)
	}

	tmp := path + tempSuffix
	if err := s.fs.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to write state of %s", instanceID).
			WithDetail("path", tmp)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to replace state of %s", instanceID).
			WithDetail("path", path)
	}

	logger := logging.ForInstance(s.logger, instanceID)
	logger.Debug().
		Int("files", len(st.Files)).
		Msg("Saved local state")
	return nil
}
