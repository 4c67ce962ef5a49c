package manifest

import (
	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/internal/hashutil"
	"github.com/arthur-debert/modsync/pkg/resolver"
	"github.com/arthur-debert/modsync/pkg/types"
)

// DefaultTypeDir is used for project types missing from the type map.
const DefaultTypeDir = "mods"

// FromResolution turns a resolver result into a manifest. Each chosen file
// installs at <typeDir>/<filename>, where typeDir comes from typeDirs keyed
// by project type. Files the registry published without a sha1 are marked
// unchecked. overridesURL may be empty.
func FromResolution(result *resolver.Result, typeDirs map[string]string, overridesURL string) (*types.Manifest, error) {
	if result == nil || len(result.Chosen) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "resolution chose nothing")
	}

	m := &types.Manifest{
		VersionID: result.Chosen[0].Project.ID + "@" + result.Chosen[0].Version.ID,
		Files:     make([]types.FileEntry, 0, len(result.Chosen)),
	}

	for _, c := range result.Chosen {
		dir, ok := typeDirs[string(c.Project.Type)]
		if !ok || dir == "" {
			dir = DefaultTypeDir
		}

		hash := c.File.Hashes.SHA1
		if hash == "" {
			log.Warn().
				Str("project", c.Project.ID).
				Str("file", c.File.Filename).
				Msg("Registry published no sha1, file will not be verified")
			hash = hashutil.Unchecked
		}

		m.Files = append(m.Files, types.FileEntry{
			Path: dir + "/" + c.File.Filename,
			URL:  c.File.URL,
			SHA1: hash,
			Size: c.File.Size,
		})
	}

	if overridesURL != "" {
		m.Overrides = &types.Overrides{URL: overridesURL}
	}

	if err := Normalize(m); err != nil {
		return nil, err
	}
	return m, nil
}
