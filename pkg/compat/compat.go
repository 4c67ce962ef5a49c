// Package compat decides whether a published version supports a target
// platform.
//
// Game versions are compared as plain strings first. When the requested
// version or a declared one is not an exact match, both sides are tried as
// semantic versions so that a declared "1.20.x" or ">=1.20 <1.21" entry
// covers "1.20.1". Plain declared names are never widened: "1.20" does not
// cover "1.20.1". Snapshot identifiers such as "23w13a" never parse and
// therefore only ever match exactly.
package compat

import (
	"strings"

	mm "github.com/Masterminds/semver/v3"
	"github.com/arthur-debert/modsync/pkg/types"
)

// GameVersionMatches reports whether a version declaring the given game
// versions runs on requested. An empty request matches everything.
func GameVersionMatches(declared []string, requested string) bool {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return true
	}

	for _, d := range declared {
		if strings.EqualFold(strings.TrimSpace(d), requested) {
			return true
		}
	}

	want, err := mm.NewVersion(requested)
	if err != nil {
		return false
	}
	for _, d := range declared {
		if !isConstraint(d) {
			continue
		}
		c, err := mm.NewConstraint(strings.TrimSpace(d))
		if err != nil {
			continue
		}
		if c.Check(want) {
			return true
		}
	}
	return false
}

// isConstraint keeps plain release names such as "1.20" from being read as
// the range 1.20.x.
func isConstraint(d string) bool {
	return strings.ContainsAny(d, "xX*<>=~^,| ")
}

// LoaderMatches reports whether loader is among the declared loaders. An
// empty request matches everything.
func LoaderMatches(declared []string, loader string) bool {
	loader = strings.TrimSpace(loader)
	if loader == "" {
		return true
	}
	for _, d := range declared {
		if strings.EqualFold(strings.TrimSpace(d), loader) {
			return true
		}
	}
	return false
}

// Supports reports whether v can run on platform p.
func Supports(v types.ProjectVersion, p types.Platform) bool {
	return GameVersionMatches(v.GameVersions, p.GameVersion) && LoaderMatches(v.Loaders, p.Loader)
}

// Filter keeps the versions supporting p, preserving their order.
func Filter(versions []types.ProjectVersion, p types.Platform) []types.ProjectVersion {
	out := make([]types.ProjectVersion, 0, len(versions))
	for _, v := range versions {
		if Supports(v, p) {
			out = append(out, v)
		}
	}
	return out
}
