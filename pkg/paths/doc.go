// Package paths provides centralized path handling for modsync.
//
// It resolves the XDG data, config, cache and state directories (each
// overridable through MODSYNC_* environment variables) and derives the
// per-instance layout from them:
//
//	<data>/instances/<id>/                 live tree of an instance
//	<data>/instances/<id>/.modsync-staging  staging arena (same filesystem as the live tree)
//	<state>/instances/<id>/state.json      persisted LocalState
//	<state>/modsync.log                    log file
//
// It also owns the relative-path normalization shared by manifests, state
// documents and archive expansion.
package paths
