// Package registry is the query surface over a remote content catalog.
//
// The resolver only depends on the Client interface. HTTPClient talks to a
// Modrinth-style v2 API; Memory serves a fixed catalog for tests and
// offline fixtures.
package registry

import (
	"context"

	"github.com/arthur-debert/modsync/pkg/types"
)

// Client is what the dependency resolver consumes.
type Client interface {
	// GetProject resolves an id or slug to the canonical project.
	GetProject(ctx context.Context, idOrSlug string) (*types.Project, error)

	// GetProjectVersions lists versions of a project supporting the platform.
	// Empty platform fields do not filter. The returned order is the
	// registry's own "best first" order and must not be re-sorted.
	GetProjectVersions(ctx context.Context, projectID string, platform types.Platform) ([]types.ProjectVersion, error)
}
