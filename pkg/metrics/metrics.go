// Package metrics holds the prometheus collectors for resolution and sync
// sessions. A nil *Recorder is valid and records nothing, so components take
// one as an optional dependency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "modsync"

// Session outcomes used as the "outcome" label.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Recorder owns a private registry so several engines in one process (and
// tests) never collide on the default registerer.
type Recorder struct {
	registry *prometheus.Registry

	sessionsTotal    *prometheus.CounterVec
	filesDownloaded  prometheus.Counter
	bytesDownloaded  prometheus.Counter
	filesDeleted     prometheus.Counter
	resolverWarnings *prometheus.CounterVec
	sessionDuration  prometheus.Histogram
	resolveDuration  prometheus.Histogram
	resolvedProjects prometheus.Counter
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_sessions_total",
				Help:      "Number of sync sessions by outcome.",
			},
			[]string{"outcome"},
		),
		filesDownloaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_files_downloaded_total",
				Help:      "Total number of files downloaded and verified.",
			},
		),
		bytesDownloaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_bytes_downloaded_total",
				Help:      "Total number of bytes downloaded.",
			},
		),
		filesDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_files_deleted_total",
				Help:      "Total number of tracked files removed from live trees.",
			},
		),
		resolverWarnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolver_warnings_total",
				Help:      "Number of pruned dependency branches by reason.",
			},
			[]string{"reason"},
		),
		sessionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_session_duration_seconds",
				Help:      "Time taken by sync sessions, any outcome.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		resolveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolver_duration_seconds",
				Help:      "Time taken to resolve a dependency graph.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		resolvedProjects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolver_projects_chosen_total",
				Help:      "Total number of projects chosen by the resolver.",
			},
		),
	}

	r.registry.MustRegister(
		r.sessionsTotal,
		r.filesDownloaded,
		r.bytesDownloaded,
		r.filesDeleted,
		r.resolverWarnings,
		r.sessionDuration,
		r.resolveDuration,
		r.resolvedProjects,
	)
	return r
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// SessionFinished counts a session under outcome and observes its duration.
func (r *Recorder) SessionFinished(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.sessionsTotal.WithLabelValues(outcome).Inc()
	r.sessionDuration.Observe(d.Seconds())
}

// FileDownloaded records one verified download of size bytes.
func (r *Recorder) FileDownloaded(size int64) {
	if r == nil {
		return
	}
	r.filesDownloaded.Inc()
	if size > 0 {
		r.bytesDownloaded.Add(float64(size))
	}
}

// FilesDeleted records n deletions applied during finalize.
func (r *Recorder) FilesDeleted(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.filesDeleted.Add(float64(n))
}

// ResolverWarning counts one pruned branch.
func (r *Recorder) ResolverWarning(reason string) {
	if r == nil {
		return
	}
	r.resolverWarnings.WithLabelValues(reason).Inc()
}

// ResolveFinished observes a resolve call that chose n projects.
func (r *Recorder) ResolveFinished(n int, d time.Duration) {
	if r == nil {
		return
	}
	r.resolvedProjects.Add(float64(n))
	r.resolveDuration.Observe(d.Seconds())
}

// WriteTextfile writes all metrics in the text exposition format, suitable
// for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
