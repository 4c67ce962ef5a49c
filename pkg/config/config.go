package config

import (
	"time"

	"github.com/arthur-debert/modsync/pkg/errors"
)

// VerifyMode controls how the sync diff decides whether a tracked file is
// up to date.
type VerifyMode string

const (
	// VerifyTrust trusts the hash recorded in LocalState and only hashes
	// files that are not tracked yet.
	VerifyTrust VerifyMode = "trust"
	// VerifyRehash hashes every file present on disk, ignoring LocalState.
	VerifyRehash VerifyMode = "rehash"
)

// Registry holds content registry client settings
type Registry struct {
	BaseURL     string        `koanf:"base_url"`
	UserAgent   string        `koanf:"user_agent"`
	Timeout     time.Duration `koanf:"timeout"`
	Concurrency int           `koanf:"concurrency"`
}

// Sync holds sync engine settings
type Sync struct {
	DownloadConcurrency int           `koanf:"download_concurrency"`
	VerifyMode          VerifyMode    `koanf:"verify_mode"`
	ExtractChunkSize    int           `koanf:"extract_chunk_size"`
	HTTPTimeout         time.Duration `koanf:"http_timeout"`
}

// Paths holds user-configurable locations. Internal layout lives in pkg/paths.
type Paths struct {
	InstancesDir string `koanf:"instances_dir"`
}

// Manifest holds manifest assembly settings
type Manifest struct {
	// TypeDirs maps a project type to the directory its files install into
	TypeDirs map[string]string `koanf:"type_dirs"`
}

// Config is the main configuration structure
type Config struct {
	Registry Registry `koanf:"registry"`
	Sync     Sync     `koanf:"sync"`
	Paths    Paths    `koanf:"paths"`
	Manifest Manifest `koanf:"manifest"`
}

// Default returns the configuration built from the embedded defaults only
func Default() *Config {
	cfg, err := LoadConfiguration("", nil)
	if err != nil {
		// Fallback to minimal config if the embedded defaults fail to load
		return &Config{
			Registry: Registry{
				BaseURL:     "https://api.modrinth.com/v2",
				UserAgent:   "arthur-debert/modsync",
				Timeout:     30 * time.Second,
				Concurrency: 1,
			},
			Sync: Sync{
				DownloadConcurrency: 1,
				VerifyMode:          VerifyTrust,
				ExtractChunkSize:    64,
				HTTPTimeout:         5 * time.Minute,
			},
			Manifest: Manifest{TypeDirs: map[string]string{"mod": "mods"}},
		}
	}
	return cfg
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Registry.BaseURL == "" {
		return errors.New(errors.ErrConfigValid, "registry.base_url is required")
	}
	if c.Registry.Concurrency < 1 {
		return errors.Newf(errors.ErrConfigValid,
			"registry.concurrency must be at least 1, got %d", c.Registry.Concurrency)
	}
	if c.Sync.DownloadConcurrency < 1 {
		return errors.Newf(errors.ErrConfigValid,
			"sync.download_concurrency must be at least 1, got %d", c.Sync.DownloadConcurrency)
	}
	if c.Sync.ExtractChunkSize < 1 {
		return errors.Newf(errors.ErrConfigValid,
			"sync.extract_chunk_size must be at least 1, got %d", c.Sync.ExtractChunkSize)
	}

	switch c.Sync.VerifyMode {
	case VerifyTrust, VerifyRehash:
		// valid
	default:
		return errors.Newf(errors.ErrConfigValid,
			"invalid sync.verify_mode: %s (must be trust or rehash)", c.Sync.VerifyMode)
	}

	return nil
}
