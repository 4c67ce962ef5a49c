package registry

import (
	"context"
	"os"
	"sync"

	"github.com/arthur-debert/modsync/pkg/compat"
	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/types"
	"gopkg.in/yaml.v3"
)

// Memory is an in-process catalog. It is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	projects map[string]types.Project
	slugs    map[string]string
	versions map[string][]types.ProjectVersion
	failures map[string]error
	calls    map[string]int
}

// NewMemory returns an empty catalog.
func NewMemory() *Memory {
	return &Memory{
		projects: make(map[string]types.Project),
		slugs:    make(map[string]string),
		versions: make(map[string][]types.ProjectVersion),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// AddProject registers a project and its versions in registry order.
func (m *Memory) AddProject(p types.Project, versions ...types.ProjectVersion) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.projects[p.ID] = p
	if p.Slug != "" {
		m.slugs[p.Slug] = p.ID
	}
	for i := range versions {
		if versions[i].ProjectID == "" {
			versions[i].ProjectID = p.ID
		}
	}
	m.versions[p.ID] = versions
	return m
}

// FailVersions makes every version query for projectID return err.
func (m *Memory) FailVersions(projectID string, err error) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[projectID] = err
	return m
}

// VersionCalls reports how many times versions of projectID were queried.
func (m *Memory) VersionCalls(projectID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[projectID]
}

// GetProject implements Client.
func (m *Memory) GetProject(ctx context.Context, idOrSlug string) (*types.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id := idOrSlug
	if canonical, ok := m.slugs[idOrSlug]; ok {
		id = canonical
	}
	p, ok := m.projects[id]
	if !ok {
		return nil, errors.Newf(errors.ErrProjectNotFound, "project %q not found", idOrSlug).
			WithDetail("project", idOrSlug)
	}
	return &p, nil
}

// GetProjectVersions implements Client.
func (m *Memory) GetProjectVersions(ctx context.Context, projectID string, platform types.Platform) ([]types.ProjectVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls[projectID]++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err, ok := m.failures[projectID]; ok {
		return nil, err
	}
	versions, ok := m.versions[projectID]
	if !ok {
		return nil, errors.Newf(errors.ErrProjectNotFound, "project %q not found", projectID).
			WithDetail("project", projectID)
	}
	return compat.Filter(versions, platform), nil
}

// catalogFile is the YAML fixture format read by LoadMemory.
type catalogFile struct {
	Projects []struct {
		types.Project `yaml:",inline"`
		Versions      []types.ProjectVersion `yaml:"versions"`
	} `yaml:"projects"`
}

// LoadMemory reads a YAML catalog fixture:
//
//	projects:
//	  - id: AANobbMI
//	    slug: sodium
//	    title: Sodium
//	    type: mod
//	    versions:
//	      - id: v1
//	        game_versions: ["1.20.1"]
//	        loaders: [fabric]
//	        files: [...]
//	        dependencies: [...]
func LoadMemory(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to read catalog %s", path)
	}

	var cat catalogFile
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, errors.Wrapf(err, errors.ErrRegistry, "failed to parse catalog %s", path)
	}

	m := NewMemory()
	for _, p := range cat.Projects {
		if p.ID == "" {
			return nil, errors.Newf(errors.ErrRegistry, "catalog %s has a project without id", path)
		}
		m.AddProject(p.Project, p.Versions...)
	}
	return m, nil
}
