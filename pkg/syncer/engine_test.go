package syncer_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arthur-debert/modsync/pkg/config"
	"github.com/arthur-debert/modsync/pkg/download"
	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/metrics"
	"github.com/arthur-debert/modsync/pkg/syncer"
	"github.com/arthur-debert/modsync/pkg/testutil"
	"github.com/arthur-debert/modsync/pkg/types"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSync_FirstSyncDownloadsAndRecords(t *testing.T) {
	f := newFixture(t)
	a := f.entry("mods/a.jar", "jar a")
	m := &types.Manifest{VersionID: "pack-1", Files: []types.FileEntry{a}}
	events := &syncer.Recorder{}

	res, err := f.engine(nil).StartSync(context.Background(), "survival", m, events)
	require.NoError(t, err)

	assert.Equal(t, &syncer.Result{Downloaded: 1}, res)
	assert.Equal(t, "jar a", f.readLive(t, "survival", "mods/a.jar"))

	st := f.store.Load("survival")
	assert.Equal(t, map[string]string{"mods/a.jar": a.SHA1}, st.Files)
	assert.Equal(t, "pack-1", st.TargetVersionID)
	assert.True(t, fixedNow.Equal(st.LastSyncedAt))

	assert.Equal(t, []syncer.Phase{
		syncer.PhaseScanning,
		syncer.PhaseDownloading,
		syncer.PhaseFinalizing,
		syncer.PhaseCompleted,
	}, events.Phases())

	all := events.Events()
	last := all[len(all)-1]
	assert.True(t, last.Phase.IsTerminal())
	assert.NoError(t, last.Err)
	assert.Equal(t, "survival", last.Instance)

	assert.False(t, f.exists("survival", ".modsync-staging"), "staging is removed")
}

func TestSync_DeletesPathsDroppedFromManifest(t *testing.T) {
	f := newFixture(t)
	f.writeLive(t, "i", "mods/old.jar", "old")
	require.NoError(t, f.store.Save("i", &types.LocalState{Files: map[string]string{"mods/old.jar": testutil.SHA1Hex("old")}}))

	keep := f.entry("mods/keep.jar", "keep")
	res, err := f.engine(nil).StartSync(context.Background(), "i", &types.Manifest{Files: []types.FileEntry{keep}}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Deleted)
	assert.False(t, f.exists("i", "mods/old.jar"))
	st := f.store.Load("i")
	assert.NotContains(t, st.Files, "mods/old.jar")
	assert.Equal(t, map[string]string{"mods/keep.jar": keep.SHA1}, st.Files)
}

func TestSync_DeleteOfMissingFileSucceeds(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Save("i", &types.LocalState{Files: map[string]string{"mods/gone.jar": "h0"}}))

	res, err := f.engine(nil).StartSync(context.Background(), "i", &types.Manifest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
	assert.Empty(t, f.store.Load("i").Files)
}

func TestSync_Idempotent(t *testing.T) {
	f := newFixture(t)
	m := &types.Manifest{Files: []types.FileEntry{
		f.entry("mods/a.jar", "a"),
		f.entry("mods/b.jar", "b"),
		f.entry("config/c.toml", "c"),
	}}
	engine := f.engine(nil, syncer.WithConcurrency(2))

	_, err := engine.StartSync(context.Background(), "i", m, nil)
	require.NoError(t, err)
	fetched := f.host.total()

	res, err := engine.StartSync(context.Background(), "i", m, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Downloaded)
	assert.Equal(t, 3, res.Unchanged)
	assert.Equal(t, fetched, f.host.total(), "second run fetches nothing")
	assert.Equal(t, m.HashMap(), f.store.Load("i").Files)
}

func TestPlan_IsDeterministic(t *testing.T) {
	f := newFixture(t)
	f.writeLive(t, "i", "mods/b.jar", "b")
	require.NoError(t, f.store.Save("i", &types.LocalState{Files: map[string]string{
		"mods/z.jar": "hz",
		"mods/y.jar": "hy",
		"mods/a.jar": "stale",
	}}))
	m := &types.Manifest{Files: []types.FileEntry{
		f.entry("mods/a.jar", "a"),
		f.entry("mods/b.jar", "b"),
		f.entry("mods/c.jar", "c"),
	}}
	engine := f.engine(nil)

	first, err := engine.Plan(context.Background(), "i", m)
	require.NoError(t, err)
	second, err := engine.Plan(context.Background(), "i", m)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"mods/y.jar", "mods/z.jar"}, first.Deletes)
	assert.Equal(t, []string{"mods/b.jar"}, first.Unchanged)
	require.Len(t, first.Downloads, 2)
	assert.Equal(t, "mods/a.jar", first.Downloads[0].Path)
	assert.Equal(t, "mods/c.jar", first.Downloads[1].Path)
	assert.Zero(t, f.host.total(), "planning downloads nothing")
}

func TestSync_IntegrityFailureAbortsWholeSession(t *testing.T) {
	f := newFixture(t)
	f.writeLive(t, "i", "mods/existing.jar", "existing")
	before := f.snapshot(t, "i")

	good := f.entry("mods/good.jar", "good")
	bad := f.entry("mods/bad.jar", "bad")
	bad.SHA1 = testutil.SHA1Hex("something else")
	events := &syncer.Recorder{}

	_, err := f.engine(nil, syncer.WithConcurrency(1)).StartSync(context.Background(), "i",
		&types.Manifest{Files: []types.FileEntry{good, bad}}, events)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrSyncIntegrity))
	assert.False(t, errors.IsCancelled(err))

	assert.Equal(t, before, f.snapshot(t, "i"), "live tree untouched")
	assert.True(t, f.store.Load("i").IsEmpty(), "state untouched")

	all := events.Events()
	last := all[len(all)-1]
	assert.Equal(t, syncer.PhaseFailed, last.Phase)
	assert.Error(t, last.Err)
}

func TestSync_NetworkFailureAbortsWholeSession(t *testing.T) {
	f := newFixture(t)
	missing := types.FileEntry{Path: "mods/missing.jar", URL: "https://cdn.example/missing", SHA1: testutil.SHA1Hex("x")}

	_, err := f.engine(nil).StartSync(context.Background(), "i",
		&types.Manifest{Files: []types.FileEntry{f.entry("mods/a.jar", "a"), missing}}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrSyncIO))
	assert.False(t, f.exists("i", "mods/a.jar"))
}

func TestSync_UncheckedSentinel(t *testing.T) {
	f := newFixture(t)
	e := f.entry("resourcepacks/pack.zip", "whatever the host sends")
	e.SHA1 = "unchecked"
	m := &types.Manifest{Files: []types.FileEntry{e}}
	engine := f.engine(nil)

	res, err := engine.StartSync(context.Background(), "i", m, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Downloaded)
	assert.Equal(t, map[string]string{"resourcepacks/pack.zip": "unchecked"}, f.store.Load("i").Files)

	res, err = engine.StartSync(context.Background(), "i", m, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Downloaded)
}

func TestSync_UncheckedEntryReplacesTrackedFile(t *testing.T) {
	f := newFixture(t)
	f.writeLive(t, "i", "mods/a.jar", "old")
	require.NoError(t, f.store.Save("i", &types.LocalState{Files: map[string]string{"mods/a.jar": testutil.SHA1Hex("old")}}))

	e := f.entry("mods/a.jar", "new")
	e.SHA1 = "unchecked"
	m := &types.Manifest{Files: []types.FileEntry{e}}
	engine := f.engine(nil)

	res, err := engine.StartSync(context.Background(), "i", m, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Downloaded)
	assert.Equal(t, "new", f.readLive(t, "i", "mods/a.jar"))
	assert.Equal(t, map[string]string{"mods/a.jar": "unchecked"}, f.store.Load("i").Files)

	res, err = engine.StartSync(context.Background(), "i", m, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Downloaded)
	assert.Equal(t, 1, f.host.count(e.URL))
}

func TestSync_RecordsDeclaredHashAsWritten(t *testing.T) {
	f := newFixture(t)
	a := f.entry("mods/a.jar", "a")
	a.SHA1 = strings.ToUpper(a.SHA1)
	m := &types.Manifest{Files: []types.FileEntry{a}}
	engine := f.engine(nil)

	_, err := engine.StartSync(context.Background(), "i", m, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"mods/a.jar": a.SHA1}, f.store.Load("i").Files)

	res, err := engine.StartSync(context.Background(), "i", m, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Downloaded)
	assert.Equal(t, 1, res.Unchanged)
}

func TestSync_DurationIgnoresInjectedClock(t *testing.T) {
	f := newFixture(t)
	rec := metrics.New()
	var calls int
	clock := func() time.Time {
		calls++
		return fixedNow.Add(time.Duration(calls) * time.Hour)
	}

	_, err := f.engine(nil, syncer.WithMetrics(rec), syncer.WithClock(clock)).
		StartSync(context.Background(), "i", &types.Manifest{Files: []types.FileEntry{f.entry("mods/a.jar", "a")}}, nil)
	require.NoError(t, err)

	assert.True(t, f.store.Load("i").LastSyncedAt.After(fixedNow))

	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	var sum float64
	var found bool
	for _, mf := range families {
		if mf.GetName() == "modsync_sync_session_duration_seconds" {
			found = true
			sum = mf.GetMetric()[0].GetHistogram().GetSampleSum()
		}
	}
	require.True(t, found)
	assert.Less(t, sum, time.Minute.Seconds())
}

func TestSync_UntrackedFileWithMatchingHashIsAdopted(t *testing.T) {
	f := newFixture(t)
	f.writeLive(t, "i", "mods/a.jar", "a")
	a := f.entry("mods/a.jar", "a")

	res, err := f.engine(nil).StartSync(context.Background(), "i", &types.Manifest{Files: []types.FileEntry{a}}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Downloaded)
	assert.Equal(t, 1, res.Unchanged)
	assert.Zero(t, f.host.count(a.URL))
	assert.Equal(t, map[string]string{"mods/a.jar": a.SHA1}, f.store.Load("i").Files)
}

func TestSync_TrustVersusRehash(t *testing.T) {
	f := newFixture(t)
	a := f.entry("mods/a.jar", "a")
	m := &types.Manifest{Files: []types.FileEntry{a}}

	_, err := f.engine(nil).StartSync(context.Background(), "i", m, nil)
	require.NoError(t, err)
	f.writeLive(t, "i", "mods/a.jar", "edited by hand")

	trusting, err := f.engine(nil, syncer.WithVerifyMode(config.VerifyTrust)).Plan(context.Background(), "i", m)
	require.NoError(t, err)
	assert.Empty(t, trusting.Downloads, "recorded hash is trusted")

	rehashing := f.engine(nil, syncer.WithVerifyMode(config.VerifyRehash))
	plan, err := rehashing.Plan(context.Background(), "i", m)
	require.NoError(t, err)
	require.Len(t, plan.Downloads, 1)

	_, err = rehashing.StartSync(context.Background(), "i", m, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", f.readLive(t, "i", "mods/a.jar"))
}

func TestSync_Overrides(t *testing.T) {
	f := newFixture(t)
	a := f.entry("mods/a.jar", "from registry")
	archiveURL := "https://cdn.example/overrides.zip"
	f.host.put(archiveURL, testutil.ZipBytes(t, map[string]string{
		"config/sodium.json": `{"fog":false}`,
		"mods/a.jar":         "patched",
		"../escape.txt":      "nope",
	}))
	m := &types.Manifest{
		Files:     []types.FileEntry{a},
		Overrides: &types.Overrides{URL: archiveURL},
	}
	events := &syncer.Recorder{}

	res, err := f.engine(nil, syncer.WithExtractChunkSize(1)).StartSync(context.Background(), "i", m, events)
	require.NoError(t, err)

	assert.Equal(t, 2, res.OverrideFiles)
	assert.Equal(t, `{"fog":false}`, f.readLive(t, "i", "config/sodium.json"))
	assert.Equal(t, "patched", f.readLive(t, "i", "mods/a.jar"), "override wins path conflicts")
	assert.Equal(t, map[string]string{"mods/a.jar": a.SHA1}, f.store.Load("i").Files, "overrides are not tracked")
	assert.Contains(t, events.Phases(), syncer.PhaseApplyingOverrides)
	_, err = f.fs.Stat("/data/instances/escape.txt")
	assert.Error(t, err)
}

func TestSync_OverrideArchiveHashMismatch(t *testing.T) {
	f := newFixture(t)
	archiveURL := "https://cdn.example/overrides.zip"
	f.host.put(archiveURL, testutil.ZipBytes(t, map[string]string{"options.txt": "x"}))
	m := &types.Manifest{Overrides: &types.Overrides{URL: archiveURL, SHA1: testutil.SHA1Hex("other")}}

	_, err := f.engine(nil).StartSync(context.Background(), "i", m, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrSyncIntegrity))
	assert.False(t, f.exists("i", "options.txt"))
}

func TestSync_CancelBeforeFinalizeLeavesLiveTreeIntact(t *testing.T) {
	f := newFixture(t)
	f.writeLive(t, "i", "mods/old.jar", "old")
	f.writeLive(t, "i", "mods/a.jar", "stale a")
	prior := &types.LocalState{Files: map[string]string{"mods/old.jar": testutil.SHA1Hex("old"), "mods/a.jar": testutil.SHA1Hex("stale a")}}
	require.NoError(t, f.store.Save("i", prior))
	before := f.snapshot(t, "i")

	a := f.entry("mods/a.jar", "a")
	b := f.entry("mods/b.jar", "b")
	m := &types.Manifest{Files: []types.FileEntry{a, b}}

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := download.FetcherFunc(func(fctx context.Context, url string, w io.Writer) (int64, error) {
		if url == b.URL {
			cancel()
			<-fctx.Done()
			return 0, fctx.Err()
		}
		return f.host.Fetch(fctx, url, w)
	})
	events := &syncer.Recorder{}
	rec := metrics.New()

	_, err := f.engine(fetcher, syncer.WithConcurrency(1), syncer.WithMetrics(rec)).StartSync(ctx, "i", m, events)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrSyncCancelled))

	assert.Equal(t, before, f.snapshot(t, "i"))
	assert.Equal(t, prior.Files, f.store.Load("i").Files)
	assert.NotContains(t, events.Phases(), syncer.PhaseFinalizing)

	all := events.Events()
	assert.Equal(t, syncer.PhaseCancelled, all[len(all)-1].Phase)

	expected := `
# HELP modsync_sync_sessions_total Number of sync sessions by outcome.
# TYPE modsync_sync_sessions_total counter
modsync_sync_sessions_total{outcome="cancelled"} 1
`
	assert.NoError(t, promtest.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "modsync_sync_sessions_total"))
}

func TestSync_CancelDuringOverridesLeavesLiveTreeIntact(t *testing.T) {
	f := newFixture(t)
	f.writeLive(t, "i", "options.txt", "original")
	before := f.snapshot(t, "i")

	archiveURL := "https://cdn.example/overrides.zip"
	archive := testutil.ZipBytes(t, map[string]string{"options.txt": "overridden", "config/a.json": "{}"})
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := download.FetcherFunc(func(fctx context.Context, url string, w io.Writer) (int64, error) {
		n, err := w.Write(archive)
		cancel()
		return int64(n), err
	})

	_, err := f.engine(fetcher).StartSync(ctx, "i", &types.Manifest{Overrides: &types.Overrides{URL: archiveURL}}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))
	assert.Equal(t, before, f.snapshot(t, "i"))
}

func TestSync_AlreadyCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine(nil).StartSync(ctx, "i", &types.Manifest{Files: []types.FileEntry{f.entry("mods/a.jar", "a")}}, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrSyncCancelled))
	assert.Zero(t, f.host.total())
}

func TestSync_NewSessionSupersedesRunningOne(t *testing.T) {
	f := newFixture(t)
	slow := f.entry("mods/slow.jar", "slow")
	fast := f.entry("mods/fast.jar", "fast")

	started := make(chan struct{})
	var once sync.Once
	fetcher := download.FetcherFunc(func(ctx context.Context, url string, w io.Writer) (int64, error) {
		if url == slow.URL {
			once.Do(func() { close(started) })
			<-ctx.Done()
			return 0, ctx.Err()
		}
		return f.host.Fetch(ctx, url, w)
	})
	engine := f.engine(fetcher)

	firstErr := make(chan error, 1)
	go func() {
		_, err := engine.StartSync(context.Background(), "i", &types.Manifest{Files: []types.FileEntry{slow}}, nil)
		firstErr <- err
	}()
	<-started
	assert.True(t, engine.Sessions().Active("i"))

	res, err := engine.StartSync(context.Background(), "i", &types.Manifest{Files: []types.FileEntry{fast}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Downloaded)

	err = <-firstErr
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))

	assert.False(t, f.exists("i", "mods/slow.jar"))
	assert.Equal(t, map[string]string{"mods/fast.jar": fast.SHA1}, f.store.Load("i").Files)
	assert.Equal(t, 0, engine.Sessions().Len())
}

func TestSync_InstancesAreIndependent(t *testing.T) {
	f := newFixture(t)
	engine := f.engine(nil)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := []string{"alpha", "beta", "gamma", "delta"}[i]
			m := &types.Manifest{Files: []types.FileEntry{f.entry("mods/"+id+".jar", id)}}
			_, errs[i] = engine.StartSync(context.Background(), id, m, nil)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, "gamma", f.readLive(t, "gamma", "mods/gamma.jar"))
	assert.Equal(t, 0, engine.Sessions().Len())
}

func TestSync_CorruptStateForcesFullEvaluation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fs.MkdirAll("/state/i", 0755))
	require.NoError(t, f.fs.WriteFile("/state/i/state.json", []byte("not json"), 0644))
	f.writeLive(t, "i", "mods/a.jar", "outdated")

	a := f.entry("mods/a.jar", "a")
	res, err := f.engine(nil).StartSync(context.Background(), "i", &types.Manifest{Files: []types.FileEntry{a}}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Downloaded)
	assert.Equal(t, "a", f.readLive(t, "i", "mods/a.jar"))
	assert.Equal(t, map[string]string{"mods/a.jar": a.SHA1}, f.store.Load("i").Files)
}

func TestSync_RejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	engine := f.engine(nil)
	a := f.entry("mods/a.jar", "a")

	tests := []struct {
		name     string
		instance string
		manifest *types.Manifest
		code     errors.ErrorCode
	}{
		{"bad instance id", "../escape", &types.Manifest{}, errors.ErrInvalidInput},
		{"nil manifest", "i", nil, errors.ErrInvalidInput},
		{"duplicate paths", "i", &types.Manifest{Files: []types.FileEntry{a, a}}, errors.ErrManifestInvalid},
		{"staging path", "i", &types.Manifest{Files: []types.FileEntry{{Path: ".modsync-staging/x", URL: "u", SHA1: "h"}}}, errors.ErrManifestInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &syncer.Recorder{}
			_, err := engine.StartSync(context.Background(), tt.instance, tt.manifest, events)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, tt.code))
			assert.Equal(t, []syncer.Phase{syncer.PhaseFailed}, events.Phases())
		})
	}
}

func TestSync_DoesNotMutateCallerManifest(t *testing.T) {
	f := newFixture(t)
	a := f.entry("mods/a.jar", "a")
	a.Path = "./mods/a.jar"
	m := &types.Manifest{Files: []types.FileEntry{a}}

	_, err := f.engine(nil).StartSync(context.Background(), "i", m, nil)
	require.NoError(t, err)
	assert.Equal(t, "./mods/a.jar", m.Files[0].Path)
	assert.Equal(t, "a", f.readLive(t, "i", "mods/a.jar"))
}

func TestSync_ProgressCountsFiles(t *testing.T) {
	f := newFixture(t)
	m := &types.Manifest{Files: []types.FileEntry{
		f.entry("mods/a.jar", "a"),
		f.entry("mods/b.jar", "b"),
		f.entry("mods/c.jar", "c"),
		f.entry("mods/d.jar", "d"),
	}}
	events := &syncer.Recorder{}

	_, err := f.engine(nil, syncer.WithConcurrency(3)).StartSync(context.Background(), "i", m, events)
	require.NoError(t, err)

	var completed []int
	for _, e := range events.Events() {
		if e.Phase == syncer.PhaseDownloading && e.CurrentFile != "" {
			assert.Equal(t, 4, e.Total)
			completed = append(completed, e.Completed)
		}
	}
	assert.Equal(t, []int{1, 2, 3, 4}, completed)
}
