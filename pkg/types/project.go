package types

// ProjectType identifies what kind of content a project ships.
type ProjectType string

const (
	ProjectTypeMod          ProjectType = "mod"
	ProjectTypeResourcePack ProjectType = "resourcepack"
	ProjectTypeShader       ProjectType = "shader"
	ProjectTypeDataPack     ProjectType = "datapack"
	ProjectTypeModpack      ProjectType = "modpack"
)

// DependencyType is the kind of edge between a version and another project.
type DependencyType string

const (
	DependencyRequired     DependencyType = "required"
	DependencyOptional     DependencyType = "optional"
	DependencyIncompatible DependencyType = "incompatible"
	DependencyEmbedded     DependencyType = "embedded"
)

// Project is a catalog entry. ID is the registry-assigned canonical id;
// Slug is the human alias users usually type.
type Project struct {
	ID      string      `json:"id" yaml:"id"`
	Slug    string      `json:"slug,omitempty" yaml:"slug,omitempty"`
	Title   string      `json:"title" yaml:"title"`
	IconURL string      `json:"icon_url,omitempty" yaml:"icon_url,omitempty"`
	Type    ProjectType `json:"project_type" yaml:"type"`
}

// Platform is the target-platform tuple a version must support.
type Platform struct {
	GameVersion string
	Loader      string
}

// ProjectVersion is one published version of a project.
type ProjectVersion struct {
	ID            string        `json:"id" yaml:"id"`
	ProjectID     string        `json:"project_id" yaml:"project_id"`
	Name          string        `json:"name,omitempty" yaml:"name,omitempty"`
	VersionNumber string        `json:"version_number,omitempty" yaml:"version_number,omitempty"`
	GameVersions  []string      `json:"game_versions" yaml:"game_versions"`
	Loaders       []string      `json:"loaders" yaml:"loaders"`
	Files         []VersionFile `json:"files" yaml:"files"`
	Dependencies  []Dependency  `json:"dependencies" yaml:"dependencies"`
}

// VersionFile is one downloadable file of a version.
type VersionFile struct {
	URL      string     `json:"url" yaml:"url"`
	Filename string     `json:"filename" yaml:"filename"`
	Primary  bool       `json:"primary" yaml:"primary"`
	Hashes   FileHashes `json:"hashes" yaml:"hashes"`
	Size     int64      `json:"size" yaml:"size"`
}

// FileHashes holds the digests a registry publishes for a file.
type FileHashes struct {
	SHA1   string `json:"sha1" yaml:"sha1"`
	SHA512 string `json:"sha512,omitempty" yaml:"sha512,omitempty"`
}

// Dependency is an edge from a version to another project. VersionID, when
// set, names the exact version the dependency expects.
type Dependency struct {
	ProjectID string         `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	VersionID string         `json:"version_id,omitempty" yaml:"version_id,omitempty"`
	FileName  string         `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	Type      DependencyType `json:"dependency_type" yaml:"dependency_type"`
}

// IsRequired reports whether the edge must be followed by the resolver.
func (d Dependency) IsRequired() bool {
	return d.Type == DependencyRequired
}

// PrimaryFile returns the file flagged primary, else the first file. The
// boolean is false when the version has no files.
func (v ProjectVersion) PrimaryFile() (VersionFile, bool) {
	if len(v.Files) == 0 {
		return VersionFile{}, false
	}
	for _, f := range v.Files {
		if f.Primary {
			return f, true
		}
	}
	return v.Files[0], true
}
