package types

// Manifest is the desired state of one instance: an ordered list of files
// with unique paths plus an optional override archive expanded verbatim over
// the install.
type Manifest struct {
	// VersionID identifies the manifest version being synced. It becomes
	// LocalState.TargetVersionID after a successful commit.
	VersionID string      `json:"versionId,omitempty" yaml:"versionId,omitempty" toml:"versionId,omitempty"`
	Files     []FileEntry `json:"files" yaml:"files" toml:"files"`
	Overrides *Overrides  `json:"overrides,omitempty" yaml:"overrides,omitempty" toml:"overrides,omitempty"`
}

// FileEntry is one file the instance must contain.
type FileEntry struct {
	Path string `json:"path" yaml:"path" toml:"path"`
	URL  string `json:"url" yaml:"url" toml:"url"`
	SHA1 string `json:"sha1" yaml:"sha1" toml:"sha1"`
	Size int64  `json:"size,omitempty" yaml:"size,omitempty" toml:"size,omitempty"`
}

// Overrides references an archive whose tree is merged over the install.
type Overrides struct {
	URL  string `json:"url" yaml:"url" toml:"url"`
	SHA1 string `json:"sha1,omitempty" yaml:"sha1,omitempty" toml:"sha1,omitempty"`
}

// PathSet returns the set of entry paths.
func (m *Manifest) PathSet() map[string]bool {
	set := make(map[string]bool, len(m.Files))
	for _, f := range m.Files {
		set[f.Path] = true
	}
	return set
}

// HashMap returns the path → sha1 mapping the manifest declares.
func (m *Manifest) HashMap() map[string]string {
	out := make(map[string]string, len(m.Files))
	for _, f := range m.Files {
		out[f.Path] = f.SHA1
	}
	return out
}
