// Package config loads modsync configuration with koanf.
//
// Layers, later ones winning:
//
//  1. embedded/defaults.toml
//  2. the user config file (TOML)
//  3. MODSYNC_<SECTION>_<KEY> environment variables
//  4. explicit overrides (command line flags)
package config
