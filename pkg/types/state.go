package types

import "time"

// LocalState is the persisted record of what the last successful sync put
// on disk for one instance.
type LocalState struct {
	Files           map[string]string `json:"files"`
	TargetVersionID string            `json:"targetVersionId,omitempty"`
	LastSyncedAt    time.Time         `json:"lastSyncedAt,omitempty"`
}

// NewLocalState returns the empty state of an instance never synced before.
func NewLocalState() *LocalState {
	return &LocalState{Files: make(map[string]string)}
}

// Clone returns a deep copy so callers can mutate without touching the
// original.
func (s *LocalState) Clone() *LocalState {
	out := &LocalState{
		Files:           make(map[string]string, len(s.Files)),
		TargetVersionID: s.TargetVersionID,
		LastSyncedAt:    s.LastSyncedAt,
	}
	for k, v := range s.Files {
		out.Files[k] = v
	}
	return out
}

// IsEmpty reports whether the instance has never been synced.
func (s *LocalState) IsEmpty() bool {
	return len(s.Files) == 0 && s.TargetVersionID == "" && s.LastSyncedAt.IsZero()
}
