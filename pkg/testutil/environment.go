package testutil

import (
	"path/filepath"
	"testing"

	"github.com/arthur-debert/modsync/pkg/filesystem"
	"github.com/arthur-debert/modsync/pkg/paths"
	"github.com/arthur-debert/modsync/pkg/statestore"
	"github.com/arthur-debert/modsync/pkg/types"
)

// EnvType defines the type of test environment
type EnvType int

const (
	EnvMemoryOnly EnvType = iota // Pure in-memory, no real filesystem
	EnvIsolated                  // Real filesystem in temp directory
)

// TestEnvironment provides a complete test environment with all dependencies
type TestEnvironment struct {
	Root         string
	InstancesDir string

	FS    types.FS
	Paths paths.Paths
	Store *statestore.Store

	Type EnvType
}

// NewTestEnvironment creates a new test environment. Both kinds point the
// MODSYNC_* directory variables at the environment root so nothing touches
// the real user directories.
func NewTestEnvironment(t *testing.T, envType EnvType) *TestEnvironment {
	t.Helper()

	env := &TestEnvironment{Type: envType}

	switch envType {
	case EnvMemoryOnly:
		env.Root = "/virtual"
		env.FS = filesystem.NewMemory()
	default:
		env.Root = t.TempDir()
		env.FS = filesystem.NewOS()
	}
	env.InstancesDir = filepath.Join(env.Root, "instances")

	t.Setenv(paths.EnvDataDir, filepath.Join(env.Root, "data"))
	t.Setenv(paths.EnvConfigDir, filepath.Join(env.Root, "config"))
	t.Setenv(paths.EnvCacheDir, filepath.Join(env.Root, "cache"))
	t.Setenv(paths.EnvStateDir, filepath.Join(env.Root, "state"))

	p, err := paths.New(env.InstancesDir)
	if err != nil {
		t.Fatalf("Failed to create paths: %v", err)
	}
	env.Paths = p
	env.Store = statestore.New(env.FS, p.StateFilePath)

	if err := env.FS.MkdirAll(env.InstancesDir, 0755); err != nil {
		t.Fatalf("Failed to create instances dir: %v", err)
	}
	return env
}

// Path joins rel onto the environment root.
func (env *TestEnvironment) Path(rel string) string {
	return filepath.Join(env.Root, filepath.FromSlash(rel))
}

// WriteFile writes content at rel under the root, creating parents.
func (env *TestEnvironment) WriteFile(t *testing.T, rel, content string) string {
	t.Helper()
	path := env.Path(rel)
	if err := env.FS.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := env.FS.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// InstanceFile returns the live path of rel inside instance id.
func (env *TestEnvironment) InstanceFile(id, rel string) string {
	return filepath.Join(env.Paths.InstanceDir(id), filepath.FromSlash(rel))
}
