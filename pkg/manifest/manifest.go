// Package manifest reads, validates and assembles sync manifests.
//
// A manifest file may be JSON, YAML or TOML; the format follows the file
// extension. Every loaded manifest is normalized: entry paths become clean,
// slash separated and relative, and must be unique.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/internal/hashutil"
	"github.com/arthur-debert/modsync/pkg/logging"
	"github.com/arthur-debert/modsync/pkg/paths"
	"github.com/arthur-debert/modsync/pkg/types"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var log = logging.GetLogger("manifest")

// Format is a manifest serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", errors.Newf(errors.ErrInvalidInput,
			"unsupported manifest extension %q (use .json, .yaml, .yml or .toml)", filepath.Ext(path)).
			WithDetail("path", path)
	}
}

// Load reads, parses and normalizes the manifest at path.
func Load(path string) (*types.Manifest, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to read manifest %s", path)
	}

	m, err := Parse(data, format)
	if err != nil {
		if me, ok := err.(*errors.ModsyncError); ok {
			me.WithDetail("path", path)
		}
		return nil, err
	}

	log.Debug().Str("path", path).Int("files", len(m.Files)).Msg("Loaded manifest")
	return m, nil
}

// Parse decodes data in the given format and normalizes the result.
func Parse(data []byte, format Format) (*types.Manifest, error) {
	var m types.Manifest
	var err error

	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &m)
	case FormatYAML:
		err = yaml.Unmarshal(data, &m)
	case FormatTOML:
		err = toml.Unmarshal(data, &m)
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "unknown manifest format %q", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestParse, "failed to parse %s manifest", format)
	}

	if err := Normalize(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save writes m to path in the format matching its extension.
func Save(path string, m *types.Manifest) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	data, err := Marshal(m, format)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to write manifest %s", path)
	}
	return nil
}

// Marshal encodes m in format.
func Marshal(m *types.Manifest, format Format) ([]byte, error) {
	var data []byte
	var err error

	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(m, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	case FormatYAML:
		data, err = yaml.Marshal(m)
	case FormatTOML:
		data, err = toml.Marshal(m)
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "unknown manifest format %q", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal, "failed to encode %s manifest", format)
	}
	return data, nil
}

// Normalize rewrites entry paths to their canonical form and checks the
// manifest is usable: every entry needs a path, a URL and a hash (or the
// unchecked sentinel), and no two entries may share a path.
func Normalize(m *types.Manifest) error {
	seen := make(map[string]int, len(m.Files))

	for i := range m.Files {
		entry := &m.Files[i]

		normalized, err := paths.NormalizeRelPath(entry.Path)
		if err != nil {
			return errors.Wrapf(err, errors.ErrManifestInvalid, "entry %d has an invalid path", i).
				WithDetail("path", entry.Path)
		}
		entry.Path = normalized

		if first, dup := seen[normalized]; dup {
			return errors.Newf(errors.ErrManifestInvalid,
				"entries %d and %d both install to %s", first, i, normalized).
				WithDetail("path", normalized)
		}
		seen[normalized] = i

		if strings.TrimSpace(entry.URL) == "" {
			return errors.Newf(errors.ErrManifestInvalid, "entry %s has no url", normalized).
				WithDetail("path", normalized)
		}

		entry.SHA1 = strings.TrimSpace(entry.SHA1)
		if entry.SHA1 == "" {
			return errors.Newf(errors.ErrManifestInvalid,
				"entry %s has no sha1 (use %q to skip verification)", normalized, hashutil.Unchecked).
				WithDetail("path", normalized)
		}
		if entry.Size < 0 {
			return errors.Newf(errors.ErrManifestInvalid, "entry %s has a negative size", normalized).
				WithDetail("path", normalized)
		}
	}

	if m.Overrides != nil {
		if strings.TrimSpace(m.Overrides.URL) == "" {
			return errors.New(errors.ErrManifestInvalid, "overrides declared without url")
		}
		m.Overrides.SHA1 = strings.TrimSpace(m.Overrides.SHA1)
	}
	return nil
}
