// Package types defines the core types and interfaces used throughout modsync.
// This includes the catalog model (Project, ProjectVersion, VersionFile), the
// desired-state Manifest, the persisted LocalState, and the FS abstraction
// used by the state store, staging arena and sync engine.
package types
