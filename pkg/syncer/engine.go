package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/arthur-debert/modsync/pkg/config"
	"github.com/arthur-debert/modsync/pkg/download"
	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/filesystem"
	"github.com/arthur-debert/modsync/pkg/logging"
	"github.com/arthur-debert/modsync/pkg/manifest"
	"github.com/arthur-debert/modsync/pkg/metrics"
	"github.com/arthur-debert/modsync/pkg/paths"
	"github.com/arthur-debert/modsync/pkg/staging"
	"github.com/arthur-debert/modsync/pkg/statestore"
	"github.com/arthur-debert/modsync/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the download batch width.
const DefaultConcurrency = 6

const overridesArchiveName = "overrides.zip"

// Layout locates instance directories. paths.Paths satisfies it.
type Layout interface {
	InstanceDir(instanceID string) string
	StagingDir(instanceID string) string
}

// Result summarizes a completed session.
type Result struct {
	Downloaded    int
	Deleted       int
	Unchanged     int
	OverrideFiles int
}

// Engine runs sync sessions.
type Engine struct {
	layout      Layout
	fs          types.FS
	store       *statestore.Store
	fetcher     download.Fetcher
	sessions    *SessionRegistry
	concurrency int
	verify      config.VerifyMode
	chunkSize   int
	metrics     *metrics.Recorder
	now         func() time.Time
	logger      zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFS sets the filesystem holding live trees and staging areas.
func WithFS(fsys types.FS) Option {
	return func(e *Engine) {
		e.fs = fsys
	}
}

// WithConcurrency sets how many downloads run at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.concurrency = n
	}
}

// WithVerifyMode chooses whether recorded hashes are trusted.
func WithVerifyMode(mode config.VerifyMode) Option {
	return func(e *Engine) {
		e.verify = mode
	}
}

// WithExtractChunkSize sets how many archive entries are expanded between
// cancellation checks.
func WithExtractChunkSize(n int) Option {
	return func(e *Engine) {
		e.chunkSize = n
	}
}

// WithMetrics reports sessions to m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock replaces time.Now, used for LastSyncedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithSessionRegistry injects the registry tracking running sessions.
func WithSessionRegistry(r *SessionRegistry) Option {
	return func(e *Engine) {
		e.sessions = r
	}
}

// NewEngine creates an engine. Without WithFS it works on the OS filesystem.
func NewEngine(layout Layout, store *statestore.Store, fetcher download.Fetcher, opts ...Option) *Engine {
	e := &Engine{
		layout:      layout,
		fs:          filesystem.NewOS(),
		store:       store,
		fetcher:     fetcher,
		sessions:    NewSessionRegistry(),
		concurrency: DefaultConcurrency,
		verify:      config.VerifyTrust,
		chunkSize:   staging.DefaultChunkSize,
		now:         time.Now,
		logger:      logging.GetLogger("syncer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sessions exposes the engine's session registry.
func (e *Engine) Sessions() *SessionRegistry {
	return e.sessions
}

// Plan computes what a sync of m would do, without touching anything.
func (e *Engine) Plan(ctx context.Context, instanceID string, m *types.Manifest) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	desired, err := e.prepare(instanceID, m)
	if err != nil {
		return nil, err
	}
	state := e.store.Load(instanceID)
	return diff(e.fs, e.layout.InstanceDir(instanceID), desired, state, e.verify)
}

// StartSync reconciles instanceID with m. ctx is the cancellation token:
// cancelling it before finalizing aborts the session with SYNC_CANCELLED
// and no live-tree change. A later StartSync for the same instance cancels
// this one the same way. sink may be nil.
func (e *Engine) StartSync(ctx context.Context, instanceID string, m *types.Manifest, sink ProgressSink) (*Result, error) {
	out := &emitter{sink: sink, instance: instanceID}

	desired, err := e.prepare(instanceID, m)
	if err != nil {
		out.emit(Event{Phase: PhaseFailed, Err: err})
		return nil, err
	}

	began := time.Now()
	sess, sessCtx := e.sessions.acquire(ctx, instanceID)
	defer e.sessions.release(sess)

	s := &run{
		engine:   e,
		ctx:      sessCtx,
		instance: instanceID,
		live:     e.layout.InstanceDir(instanceID),
		manifest: desired,
		out:      out,
		logger:   logging.ForSession(e.logger, instanceID, sess.id),
	}

	result, err := s.execute(fmt.Sprintf("%d-%d", e.now().UnixNano(), sess.id))
	elapsed := time.Since(began)

	switch {
	case err == nil:
		e.metrics.SessionFinished(metrics.OutcomeCompleted, elapsed)
		out.emit(Event{Phase: PhaseCompleted, Percent: 100})
		s.logger.Info().
			Int("downloaded", result.Downloaded).
			Int("deleted", result.Deleted).
			Int("unchanged", result.Unchanged).
			Int("overrides", result.OverrideFiles).
			Dur("duration", elapsed).
			Msg("Sync completed")
		return result, nil
	case errors.IsCancelled(err):
		err = asCancelled(err, instanceID)
		e.metrics.SessionFinished(metrics.OutcomeCancelled, elapsed)
		out.emit(Event{Phase: PhaseCancelled, Err: err})
		s.logger.Info().Str("phase", string(s.phase)).Msg("Sync cancelled")
		return nil, err
	default:
		e.metrics.SessionFinished(metrics.OutcomeFailed, elapsed)
		out.emit(Event{Phase: PhaseFailed, Err: err})
		s.logger.Error().Err(err).Str("phase", string(s.phase)).Msg("Sync failed")
		return nil, err
	}
}

// prepare validates the inputs and returns a normalized copy of m.
func (e *Engine) prepare(instanceID string, m *types.Manifest) (*types.Manifest, error) {
	if err := paths.ValidateInstanceID(instanceID); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New(errors.ErrInvalidInput, "manifest is required")
	}

	desired := &types.Manifest{
		VersionID: m.VersionID,
		Files:     append([]types.FileEntry(nil), m.Files...),
	}
	if m.Overrides != nil {
		o := *m.Overrides
		desired.Overrides = &o
	}
	if err := manifest.Normalize(desired); err != nil {
		return nil, err
	}
	for _, f := range desired.Files {
		if f.Path == paths.StagingDirName || strings.HasPrefix(f.Path, paths.StagingDirName+"/") {
			return nil, errors.Newf(errors.ErrManifestInvalid, "entry %s is inside the staging directory", f.Path).
				WithDetail("path", f.Path)
		}
	}
	return desired, nil
}

func asCancelled(err error, instanceID string) error {
	if errors.IsErrorCode(err, errors.ErrSyncCancelled) {
		return err
	}
	return errors.Wrapf(err, errors.ErrSyncCancelled, "sync of %s cancelled", instanceID)
}

// run is the state of one session.
type run struct {
	engine   *Engine
	ctx      context.Context
	instance string
	live     string
	manifest *types.Manifest
	out      *emitter
	logger   zerolog.Logger
	phase    Phase
	arena    *staging.Arena
}

func (s *run) enter(p Phase, ev Event) {
	s.phase = p
	ev.Phase = p
	s.logger.Debug().Str("phase", string(p)).Msg("Entering phase")
	s.out.emit(ev)
}

func (s *run) cancelled() error {
	if err := s.ctx.Err(); err != nil {
		return errors.Wrapf(err, errors.ErrSyncCancelled, "sync of %s cancelled during %s", s.instance, s.phase)
	}
	return nil
}

func (s *run) execute(arenaName string) (*Result, error) {
	e := s.engine
	s.phase = PhaseIdle

	if err := s.cancelled(); err != nil {
		return nil, err
	}

	s.enter(PhaseScanning, Event{})
	state := e.store.Load(s.instance)
	plan, err := diff(e.fs, s.live, s.manifest, state, e.verify)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Int("downloads", len(plan.Downloads)).
		Int("deletes", len(plan.Deletes)).
		Int("unchanged", len(plan.Unchanged)).
		Msg("Computed plan")

	if err := s.cancelled(); err != nil {
		return nil, err
	}

	arena, err := staging.New(e.fs, filepath.Join(e.layout.StagingDir(s.instance), arenaName))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrSyncIO, "failed to prepare staging area")
	}
	s.arena = arena
	defer func() {
		if err := arena.Cleanup(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to remove staging area")
		}
	}()

	if err := s.download(plan.Downloads); err != nil {
		return nil, err
	}

	overrides, err := s.applyOverrides()
	if err != nil {
		return nil, err
	}

	if err := s.cancelled(); err != nil {
		return nil, err
	}

	if err := s.finalize(state, plan, overrides); err != nil {
		return nil, err
	}

	return &Result{
		Downloaded:    len(plan.Downloads),
		Deleted:       len(plan.Deletes),
		Unchanged:     len(plan.Unchanged),
		OverrideFiles: len(overrides),
	}, nil
}

// download stages every entry, verifying each against its declared hash.
func (s *run) download(entries []types.FileEntry) error {
	e := s.engine
	total := len(entries)
	s.enter(PhaseDownloading, Event{Total: total, Percent: percent(0, total)})
	if total == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(s.ctx)
	g.SetLimit(e.concurrency)

	var mu sync.Mutex
	completed := 0
	for _, entry := range entries {
		if err := s.cancelled(); err != nil {
			_ = g.Wait()
			return err
		}
		if gctx.Err() != nil {
			break
		}

		entry := entry
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.Wrap(err, errors.ErrSyncCancelled, "download skipped")
			}

			staged := s.arena.FilePath(entry.Path)
			if err := e.fs.MkdirAll(filepath.Dir(staged), 0755); err != nil {
				return errors.Wrapf(err, errors.ErrSyncIO, "failed to stage %s", entry.Path)
			}

			got, err := download.ToFile(gctx, e.fetcher, e.fs, entry.URL, staged)
			if err != nil {
				return err
			}
			if err := download.Verify(got, entry.SHA1); err != nil {
				return errors.Wrapf(err, errors.ErrSyncIntegrity, "refusing %s", entry.Path).
					WithDetail("path", entry.Path)
			}

			e.metrics.FileDownloaded(got.Size)
			mu.Lock()
			completed++
			s.out.emit(Event{
				Phase:       PhaseDownloading,
				Percent:     percent(completed, total),
				CurrentFile: entry.Path,
				Completed:   completed,
				Total:       total,
			})
			mu.Unlock()
			s.logger.Debug().Str("path", entry.Path).Int64("bytes", got.Size).Msg("Staged file")
			return nil
		})
	}

	err := g.Wait()
	if cancelErr := s.cancelled(); cancelErr != nil {
		return cancelErr
	}
	return err
}

// applyOverrides downloads and expands the override archive into staging.
func (s *run) applyOverrides() ([]string, error) {
	e := s.engine
	o := s.manifest.Overrides
	if o == nil {
		return nil, nil
	}

	if err := s.cancelled(); err != nil {
		return nil, err
	}
	s.enter(PhaseApplyingOverrides, Event{CurrentFile: o.URL})

	archive := s.arena.ArchivePath(overridesArchiveName)
	if err := e.fs.MkdirAll(filepath.Dir(archive), 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrSyncIO, "failed to stage override archive")
	}

	got, err := download.ToFile(s.ctx, e.fetcher, e.fs, o.URL, archive)
	if err != nil {
		return nil, err
	}
	if o.SHA1 != "" {
		if err := download.Verify(got, o.SHA1); err != nil {
			return nil, err
		}
	}
	e.metrics.FileDownloaded(got.Size)

	files, err := s.arena.Expand(s.ctx, archive, e.chunkSize)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Int("files", len(files)).Msg("Staged overrides")
	return files, nil
}
