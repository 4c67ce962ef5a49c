package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/logging"
	"github.com/arthur-debert/modsync/pkg/metrics"
	"github.com/arthur-debert/modsync/pkg/registry"
	"github.com/arthur-debert/modsync/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of registry queries issued in parallel
// within one BFS level.
const DefaultConcurrency = 4

// Warning reasons.
const (
	ReasonLookupFailed        = "lookup_failed"
	ReasonNoCompatibleVersion = "no_compatible_version"
	ReasonNoFiles             = "no_files"
)

// Request describes one resolve call.
type Request struct {
	// RootID is the root project id or slug.
	RootID      string
	GameVersion string
	Loader      string

	// Installed holds canonical ids already present; they are never added.
	Installed map[string]bool

	// Pins maps canonical project id to the version id to prefer.
	Pins map[string]string
}

// Choice is one resolved project with the version and file picked for it.
type Choice struct {
	Project types.Project
	Version types.ProjectVersion
	File    types.VersionFile
}

// Warning records a pruned branch.
type Warning struct {
	ProjectID string
	Reason    string
	Err       error
}

func (w Warning) String() string {
	if w.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", w.ProjectID, w.Reason, w.Err)
	}
	return fmt.Sprintf("%s: %s", w.ProjectID, w.Reason)
}

// Result is the flattened, deduplicated outcome of a resolve call. Chosen is
// in BFS order, root first.
type Result struct {
	Root     string
	Chosen   []Choice
	Warnings []Warning
}

// IDs returns the canonical ids of all chosen projects in order.
func (r *Result) IDs() []string {
	ids := make([]string, 0, len(r.Chosen))
	for _, c := range r.Chosen {
		ids = append(ids, c.Project.ID)
	}
	return ids
}

// Resolver resolves dependency graphs against a registry.
type Resolver struct {
	registry    registry.Client
	concurrency int
	metrics     *metrics.Recorder
	logger      zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConcurrency bounds parallel registry queries per level. Values below 1
// mean sequential.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n < 1 {
			n = 1
		}
		r.concurrency = n
	}
}

// WithMetrics reports warnings and timings to m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// New creates a Resolver over reg.
func New(reg registry.Client, opts ...Option) *Resolver {
	r := &Resolver{
		registry:    reg,
		concurrency: DefaultConcurrency,
		logger:      logging.GetLogger("resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// lookup is what one registry round trip produced for an id.
type lookup struct {
	project  *types.Project
	versions []types.ProjectVersion
	err      error
}

// Resolve walks the graph rooted at req.RootID. The returned Result is never
// nil. A non-nil error means the root itself could not be resolved
// (ROOT_UNRESOLVED) or ctx was cancelled.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	result := &Result{Root: req.RootID}
	start := time.Now()
	defer func() {
		r.metrics.ResolveFinished(len(result.Chosen), time.Since(start))
	}()

	logger := logging.ForResolve(r.logger, req.RootID, req.GameVersion, req.Loader)
	done := logging.LogOperationStart(logger, "resolve")
	defer done()

	platform := types.Platform{GameVersion: req.GameVersion, Loader: req.Loader}

	root, err := r.registry.GetProject(ctx, req.RootID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		r.warn(result, logger, Warning{ProjectID: req.RootID, Reason: ReasonLookupFailed, Err: err})
		return result, errors.Wrapf(err, errors.ErrRootUnresolved, "root %q could not be resolved", req.RootID).
			WithDetail("root", req.RootID)
	}
	result.Root = root.ID

	if req.Installed[root.ID] {
		logger.Info().Str("project", root.ID).Msg("Root already installed, nothing to resolve")
		return result, nil
	}

	pins := make(map[string]string, len(req.Pins))
	for id, version := range req.Pins {
		pins[id] = version
	}
	processed := make(map[string]bool)
	enqueued := map[string]bool{root.ID: true}
	known := map[string]*types.Project{root.ID: root}

	queue := []string{root.ID}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var level []string
		for _, id := range queue {
			if req.Installed[id] || processed[id] {
				continue
			}
			processed[id] = true
			level = append(level, id)
		}
		queue = nil

		lookups := r.fetchLevel(ctx, level, known, platform)
		if err := ctx.Err(); err != nil {
			return result, err
		}

		claimed := make(map[string]bool, len(level))
		for i, id := range level {
			// A slug and an id of the same project resolve to one entry.
			if p := lookups[i].project; p != nil && p.ID != id {
				if req.Installed[p.ID] || processed[p.ID] || claimed[p.ID] {
					logger.Debug().Str("alias", id).Str("project", p.ID).Msg("Dependency already handled under its id")
					continue
				}
				processed[p.ID] = true
				enqueued[p.ID] = true
				known[p.ID] = p
				if pin, ok := pins[id]; ok {
					if _, pinned := pins[p.ID]; !pinned {
						pins[p.ID] = pin
					}
				}
				id = p.ID
			} else if claimed[id] {
				continue
			}
			claimed[id] = true

			choice, warning, ok := r.choose(id, lookups[i], pins, logger)
			if !ok {
				r.warn(result, logger, warning)
				continue
			}
			result.Chosen = append(result.Chosen, choice)
			logger.Debug().
				Str("project", id).
				Str("version", choice.Version.ID).
				Str("file", choice.File.Filename).
				Msg("Chose version")

			for _, dep := range choice.Version.Dependencies {
				if !dep.IsRequired() || dep.ProjectID == "" {
					continue
				}
				if req.Installed[dep.ProjectID] || enqueued[dep.ProjectID] {
					continue
				}
				enqueued[dep.ProjectID] = true
				if dep.VersionID != "" {
					if _, pinned := pins[dep.ProjectID]; !pinned {
						pins[dep.ProjectID] = dep.VersionID
					}
				}
				queue = append(queue, dep.ProjectID)
			}
		}
	}

	if len(result.Chosen) == 0 || result.Chosen[0].Project.ID != root.ID {
		return result, errors.Newf(errors.ErrRootUnresolved, "no installable version of %q for %s/%s",
			req.RootID, req.GameVersion, req.Loader).
			WithDetail("root", root.ID)
	}

	logger.Info().
		Int("chosen", len(result.Chosen)).
		Int("warnings", len(result.Warnings)).
		Msg("Resolution finished")
	return result, nil
}

// fetchLevel queries the registry for every id of one level. Results are
// positional; errors stay on their own slot.
func (r *Resolver) fetchLevel(ctx context.Context, ids []string, known map[string]*types.Project, platform types.Platform) []lookup {
	out := make([]lookup, len(ids))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		i, id := i, id
		project := known[id]
		g.Go(func() error {
			out[i] = r.fetch(ctx, id, project, platform)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *Resolver) fetch(ctx context.Context, id string, project *types.Project, platform types.Platform) lookup {
	if project == nil {
		p, err := r.registry.GetProject(ctx, id)
		if err != nil {
			return lookup{err: err}
		}
		project = p
	}
	versions, err := r.registry.GetProjectVersions(ctx, project.ID, platform)
	if err != nil {
		return lookup{project: project, err: err}
	}
	return lookup{project: project, versions: versions}
}

// choose picks the version and file for id, or explains why none fits.
func (r *Resolver) choose(id string, l lookup, pins map[string]string, logger zerolog.Logger) (Choice, Warning, bool) {
	if l.err != nil {
		return Choice{}, Warning{ProjectID: id, Reason: ReasonLookupFailed, Err: l.err}, false
	}
	if len(l.versions) == 0 {
		return Choice{}, Warning{ProjectID: id, Reason: ReasonNoCompatibleVersion}, false
	}

	version := l.versions[0]
	if pin, ok := pins[id]; ok {
		found := false
		for _, v := range l.versions {
			if v.ID == pin {
				version = v
				found = true
				break
			}
		}
		if !found {
			logger.Warn().
				Str("project", id).
				Str("pin", pin).
				Str("fallback", version.ID).
				Msg("Pinned version is not compatible, using first compatible version")
		}
	}

	file, ok := version.PrimaryFile()
	if !ok {
		return Choice{}, Warning{ProjectID: id, Reason: ReasonNoFiles}, false
	}
	return Choice{Project: *l.project, Version: version, File: file}, Warning{}, true
}

func (r *Resolver) warn(result *Result, logger zerolog.Logger, w Warning) {
	result.Warnings = append(result.Warnings, w)
	r.metrics.ResolverWarning(w.Reason)

	event := logger.Warn().Str("project", w.ProjectID).Str("reason", w.Reason)
	if w.Err != nil {
		event = event.Err(w.Err)
	}
	event.Msg("Dependency pruned")
}
