package style_test

import (
	"testing"
	"time"

	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/resolver"
	"github.com/arthur-debert/modsync/pkg/style"
	"github.com/arthur-debert/modsync/pkg/syncer"
	"github.com/arthur-debert/modsync/pkg/types"
	"github.com/stretchr/testify/assert"
)

func sampleResolution() *resolver.Result {
	return &resolver.Result{
		Root: "AANobbMI",
		Chosen: []resolver.Choice{{
			Project: types.Project{ID: "AANobbMI", Title: "Sodium", Type: types.ProjectTypeMod},
			Version: types.ProjectVersion{ID: "v1"},
			File:    types.VersionFile{Filename: "sodium.jar"},
		}},
		Warnings: []resolver.Warning{{ProjectID: "P7dR8mSH", Reason: resolver.ReasonNoCompatibleVersion}},
	}
}

func TestRenderers_Resolution(t *testing.T) {
	for _, r := range []style.Renderer{style.NewPlainRenderer(), style.NewTerminalRenderer()} {
		out := r.RenderResolution(sampleResolution())
		assert.Contains(t, out, "AANobbMI")
		assert.Contains(t, out, "sodium.jar")
		assert.Contains(t, out, "P7dR8mSH")
		assert.Contains(t, out, "no compatible version")
	}
}

func TestPlainRenderer_Plan(t *testing.T) {
	r := style.NewPlainRenderer()

	assert.Equal(t, "Plan for i\nNothing to do.", r.RenderPlan("i", &syncer.Plan{Unchanged: []string{"a"}}))

	out := r.RenderPlan("i", &syncer.Plan{
		Downloads: []types.FileEntry{{Path: "mods/a.jar"}},
		Deletes:   []string{"mods/old.jar"},
		Unchanged: []string{"mods/b.jar"},
	})
	assert.Equal(t, "Plan for i\n  download mods/a.jar\n  delete mods/old.jar\n  1 unchanged", out)
}

func TestPlainRenderer_State(t *testing.T) {
	r := style.NewPlainRenderer()

	assert.Contains(t, r.RenderState("i", types.NewLocalState()), "Never synced.")

	out := r.RenderState("i", &types.LocalState{
		Files:           map[string]string{"mods/b.jar": "hb", "mods/a.jar": "ha"},
		TargetVersionID: "pack-2",
		LastSyncedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	assert.Equal(t, "State of i\nversion pack-2, synced 2024-01-02T03:04:05Z\n  mods/a.jar ha\n  mods/b.jar hb", out)
}

func TestRenderers_SyncResult(t *testing.T) {
	res := &syncer.Result{Downloaded: 2, Deleted: 1, Unchanged: 5}
	assert.Equal(t, "i is up to date (2 downloaded, 1 deleted, 5 unchanged, 0 override files)",
		style.NewPlainRenderer().RenderSyncResult("i", res))
	assert.Contains(t, style.NewTerminalRenderer().RenderSyncResult("i", res), "2 downloaded")
}

func TestRenderError(t *testing.T) {
	err := errors.New(errors.ErrSyncIntegrity, "hash mismatch")

	assert.Equal(t, "", style.NewPlainRenderer().RenderError(nil))
	assert.Equal(t, "Error: [SYNC_INTEGRITY] hash mismatch", style.NewPlainRenderer().RenderError(err))
	assert.Contains(t, style.NewTerminalRenderer().RenderError(err), "SYNC_INTEGRITY")
}

func TestNewRenderer(t *testing.T) {
	assert.IsType(t, &style.TerminalRenderer{}, style.NewRenderer(style.FormatTerminal))
	assert.IsType(t, &style.PlainRenderer{}, style.NewRenderer(style.FormatText))
}

func TestDetectFormat_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, style.FormatText, style.DetectFormat(nil))
}

func TestBadge(t *testing.T) {
	assert.Contains(t, style.Badge(style.StatusDownload), "download")
	assert.NotNil(t, style.StatusStyle(style.StatusTracked))
}
