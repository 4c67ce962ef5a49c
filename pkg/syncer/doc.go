// Package syncer reconciles an instance's live tree with a manifest.
//
// A session moves through Scanning, Downloading, ApplyingOverrides and
// Finalizing and ends Completed, Cancelled or Failed. Everything before
// Finalizing happens in a private staging arena, so a cancellation or error
// observed before then leaves the live tree and the persisted LocalState as
// they were. Finalizing runs on a single goroutine, ignores cancellation,
// and writes LocalState only after every move succeeded. The staging arena
// is removed whatever the outcome.
//
// At most one session runs per instance. Starting a new one cancels the
// running session and waits for it to let go of the instance before
// scanning; sessions for different instances share nothing.
package syncer
