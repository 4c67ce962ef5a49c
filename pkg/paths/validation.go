package paths

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/modsync/pkg/errors"
)

// ValidateInstanceID ensures an instance id is valid for use in paths.
// Instance ids must:
// - Not be empty
// - Not contain path separators
// - Not be reserved names (. or ..)
// - Not contain control characters
func ValidateInstanceID(id string) error {
	if id == "" {
		return errors.New(errors.ErrInvalidInput, "instance id cannot be empty")
	}

	if strings.ContainsAny(id, "/\\") {
		return errors.New(errors.ErrInvalidInput, "instance id cannot contain path separators")
	}

	if id == "." || id == ".." {
		return errors.New(errors.ErrInvalidInput, "instance id cannot be '.' or '..'")
	}

	invalidChars := ":*?\"<>|"
	if strings.ContainsAny(id, invalidChars) {
		return errors.Newf(errors.ErrInvalidInput,
			"instance id contains invalid characters: %s", invalidChars)
	}

	for _, r := range id {
		if r < 32 {
			return errors.New(errors.ErrInvalidInput,
				"instance id contains control characters")
		}
	}

	return nil
}

// NormalizeRelPath turns a user or registry supplied install path into the
// canonical form used as a key in manifests and state: forward slashes,
// cleaned, relative. Absolute paths and paths escaping the root are
// rejected.
func NormalizeRelPath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New(errors.ErrInvalidInput, "path cannot be empty")
	}
	if strings.Contains(p, "\x00") {
		return "", errors.New(errors.ErrInvalidInput, "path contains null bytes")
	}

	s := strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(s, "/") || (len(s) > 1 && s[1] == ':') {
		return "", errors.Newf(errors.ErrInvalidInput, "path must be relative: %s", p)
	}

	cleaned := path.Clean(s)
	if cleaned == "." {
		return "", errors.Newf(errors.ErrInvalidInput, "path resolves to the root: %s", p)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.Newf(errors.ErrInvalidInput, "path escapes the instance root: %s", p)
	}

	return cleaned, nil
}

// Join resolves a normalized relative path under root.
func Join(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}
