package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/types"
)

// Environment variable names
const (
	// EnvDataDir overrides the XDG data directory for modsync
	EnvDataDir = "MODSYNC_DATA_DIR"

	// EnvConfigDir overrides the XDG config directory for modsync
	EnvConfigDir = "MODSYNC_CONFIG_DIR"

	// EnvCacheDir overrides the XDG cache directory for modsync
	EnvCacheDir = "MODSYNC_CACHE_DIR"

	// EnvStateDir overrides the XDG state directory for modsync
	EnvStateDir = "MODSYNC_STATE_DIR"

	// EnvHome is the standard home directory variable
	EnvHome = "HOME"
)

// Default directories and files. These define modsync's internal layout and
// are not user-configurable; the instances root is the only exception (see
// pkg/config).
const (
	AppDirName       = "modsync"
	InstancesDirName = "instances"
	StagingDirName   = ".modsync-staging"
	StateFileName    = "state.json"
	ConfigFileName   = "config.toml"
	LogFileName      = "modsync.log"
)

// Paths provides centralized path management for modsync
type Paths interface {
	types.Pather

	InstancesDir() string
	InstanceDir(instanceID string) string
	StagingDir(instanceID string) string
	StateFilePath(instanceID string) string
	ConfigFilePath() string
	LogFilePath() string
}

type paths struct {
	xdgData   string
	xdgConfig string
	xdgCache  string
	xdgState  string

	// instancesDir is where live trees live; defaults to <data>/instances
	instancesDir string
}

// New creates a new Paths instance. instancesDir overrides where instance
// live trees are kept; empty means <data>/instances.
func New(instancesDir string) (Paths, error) {
	p := &paths{}

	if err := p.setupXDGDirs(); err != nil {
		return nil, err
	}

	if instancesDir == "" {
		p.instancesDir = filepath.Join(p.xdgData, InstancesDirName)
		return p, nil
	}

	abs, err := filepath.Abs(expandHome(instancesDir))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to get absolute path for instances dir")
	}
	p.instancesDir = abs
	return p, nil
}

// setupXDGDirs initializes XDG directories, respecting environment overrides
func (p *paths) setupXDGDirs() error {
	if dataDir := os.Getenv(EnvDataDir); dataDir != "" {
		p.xdgData = expandHome(dataDir)
	} else {
		p.xdgData = filepath.Join(xdg.DataHome, AppDirName)
	}

	if configDir := os.Getenv(EnvConfigDir); configDir != "" {
		p.xdgConfig = expandHome(configDir)
	} else {
		p.xdgConfig = filepath.Join(xdg.ConfigHome, AppDirName)
	}

	if cacheDir := os.Getenv(EnvCacheDir); cacheDir != "" {
		p.xdgCache = expandHome(cacheDir)
	} else {
		p.xdgCache = filepath.Join(xdg.CacheHome, AppDirName)
	}

	if stateDir := os.Getenv(EnvStateDir); stateDir != "" {
		p.xdgState = expandHome(stateDir)
	} else {
		p.xdgState = filepath.Join(xdg.StateHome, AppDirName)
	}

	return nil
}

// expandHome expands ~ to the home directory
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv(EnvHome)
		if homeDir == "" {
			return path
		}
	}

	if len(path) == 1 {
		return homeDir
	}
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:])
	}

	// ~something (not the user's home)
	return path
}

func (p *paths) DataDir() string {
	return p.xdgData
}

func (p *paths) ConfigDir() string {
	return p.xdgConfig
}

func (p *paths) CacheDir() string {
	return p.xdgCache
}

func (p *paths) StateDir() string {
	return p.xdgState
}

// InstancesDir returns the directory holding every instance live tree
func (p *paths) InstancesDir() string {
	return p.instancesDir
}

// InstanceDir returns the live tree of one instance
func (p *paths) InstanceDir(instanceID string) string {
	return filepath.Join(p.instancesDir, instanceID)
}

// StagingDir returns the staging arena root for one instance. It sits
// inside the live tree so commit moves stay on one filesystem.
func (p *paths) StagingDir(instanceID string) string {
	return filepath.Join(p.InstanceDir(instanceID), StagingDirName)
}

// StateFilePath returns where the LocalState document of an instance lives
func (p *paths) StateFilePath(instanceID string) string {
	return filepath.Join(p.xdgState, InstancesDirName, instanceID, StateFileName)
}

func (p *paths) ConfigFilePath() string {
	return filepath.Join(p.xdgConfig, ConfigFileName)
}

func (p *paths) LogFilePath() string {
	return filepath.Join(p.xdgState, LogFileName)
}
