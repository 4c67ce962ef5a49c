package style

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/resolver"
	"github.com/arthur-debert/modsync/pkg/syncer"
	"github.com/arthur-debert/modsync/pkg/types"
	"github.com/pterm/pterm"
)

// Renderer turns command results into printable text
type Renderer interface {
	RenderResolution(res *resolver.Result) string
	RenderPlan(instanceID string, plan *syncer.Plan) string
	RenderSyncResult(instanceID string, res *syncer.Result) string
	RenderState(instanceID string, st *types.LocalState) string
	RenderError(err error) string
}

// NewRenderer returns the renderer for format
func NewRenderer(format Format) Renderer {
	if format == FormatTerminal {
		return NewTerminalRenderer()
	}
	return NewPlainRenderer()
}

// TerminalRenderer renders with colors and badges
type TerminalRenderer struct{}

// NewTerminalRenderer creates a new terminal renderer
func NewTerminalRenderer() *TerminalRenderer {
	return &TerminalRenderer{}
}

// RenderResolution lists chosen projects and warnings
func (r *TerminalRenderer) RenderResolution(res *resolver.Result) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Resolved %s", res.Root)))
	b.WriteString("\n")

	for _, c := range res.Chosen {
		title := c.Project.Title
		if title == "" {
			title = c.Project.ID
		}
		fmt.Fprintf(&b, "%s %s %s %s\n",
			SuccessIndicator,
			TypeStyle(c.Project.Type).Render(fmt.Sprintf("%-12s", c.Project.Type)),
			title,
			MutedStyle.Render(c.Version.ID+" · "+c.File.Filename))
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "%s %s %s\n", WarningIndicator, WarningStyle.Render(w.ProjectID), MutedStyle.Render(warningText(w)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderPlan shows what a sync would do
func (r *TerminalRenderer) RenderPlan(instanceID string, plan *syncer.Plan) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Plan for " + instanceID))
	b.WriteString("\n")

	if plan.IsEmpty() {
		b.WriteString(MutedStyle.Render("Nothing to do."))
		return b.String()
	}
	for _, e := range plan.Downloads {
		fmt.Fprintf(&b, "%s %s\n", Badge(StatusDownload), PathStyle.Render(e.Path))
	}
	for _, p := range plan.Deletes {
		fmt.Fprintf(&b, "%s %s\n", Badge(StatusDelete), PathStyle.Render(p))
	}
	if plan.Overrides != nil {
		fmt.Fprintf(&b, "%s %s\n", Badge(StatusOverride), PathStyle.Render(plan.Overrides.URL))
	}
	fmt.Fprintf(&b, "%s %d unchanged", PendingIndicator, len(plan.Unchanged))
	return b.String()
}

// RenderSyncResult summarizes a completed sync
func (r *TerminalRenderer) RenderSyncResult(instanceID string, res *syncer.Result) string {
	return fmt.Sprintf("%s %s %s",
		SuccessIndicator,
		SuccessStyle.Render(instanceID+" is up to date"),
		MutedStyle.Render(summary(res)))
}

// RenderState lists tracked files with their hashes
func (r *TerminalRenderer) RenderState(instanceID string, st *types.LocalState) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("State of " + instanceID))
	b.WriteString("\n")

	if st.IsEmpty() {
		b.WriteString(MutedStyle.Render("Never synced."))
		return b.String()
	}

	fmt.Fprintf(&b, "%s version %s, synced %s\n", InfoIndicator,
		InfoStyle.Render(orDash(st.TargetVersionID)),
		st.LastSyncedAt.Format(time.RFC3339))
	for _, p := range sortedKeys(st.Files) {
		line := fmt.Sprintf("%s %s %s", Badge(StatusTracked), PathStyle.Render(p), HashStyle.Render(shortHash(st.Files[p])))
		b.WriteString(Indent(line, 1))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderError renders an error message
func (r *TerminalRenderer) RenderError(err error) string {
	if err == nil {
		return ""
	}

	if code := errors.GetErrorCode(err); code != errors.ErrUnknown {
		return fmt.Sprintf("%s Error [%s]: %s",
			pterm.Error.Prefix.Text,
			ErrorStyle.Render(string(code)),
			err.Error())
	}

	return fmt.Sprintf("%s %s", pterm.Error.Prefix.Text, pterm.Error.MessageStyle.Sprint(err.Error()))
}

// PlainRenderer implements Renderer with plain text output (no styling)
type PlainRenderer struct{}

// NewPlainRenderer creates a new plain text renderer
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

// RenderResolution lists chosen projects and warnings
func (r *PlainRenderer) RenderResolution(res *resolver.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resolved %s\n", res.Root)
	for _, c := range res.Chosen {
		fmt.Fprintf(&b, "  + %s %s %s %s\n", c.Project.Type, c.Project.ID, c.Version.ID, c.File.Filename)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "  ! %s %s\n", w.ProjectID, warningText(w))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderPlan shows what a sync would do
func (r *PlainRenderer) RenderPlan(instanceID string, plan *syncer.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan for %s\n", instanceID)
	if plan.IsEmpty() {
		b.WriteString("Nothing to do.")
		return b.String()
	}
	for _, e := range plan.Downloads {
		fmt.Fprintf(&b, "  download %s\n", e.Path)
	}
	for _, p := range plan.Deletes {
		fmt.Fprintf(&b, "  delete %s\n", p)
	}
	if plan.Overrides != nil {
		fmt.Fprintf(&b, "  override %s\n", plan.Overrides.URL)
	}
	fmt.Fprintf(&b, "  %d unchanged", len(plan.Unchanged))
	return b.String()
}

// RenderSyncResult summarizes a completed sync
func (r *PlainRenderer) RenderSyncResult(instanceID string, res *syncer.Result) string {
	return fmt.Sprintf("%s is up to date (%s)", instanceID, summary(res))
}

// RenderState lists tracked files with their hashes
func (r *PlainRenderer) RenderState(instanceID string, st *types.LocalState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "State of %s\n", instanceID)
	if st.IsEmpty() {
		b.WriteString("Never synced.")
		return b.String()
	}
	fmt.Fprintf(&b, "version %s, synced %s\n", orDash(st.TargetVersionID), st.LastSyncedAt.Format(time.RFC3339))
	for _, p := range sortedKeys(st.Files) {
		fmt.Fprintf(&b, "  %s %s\n", p, st.Files[p])
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderError renders an error message
func (r *PlainRenderer) RenderError(err error) string {
	if err == nil {
		return ""
	}
	return "Error: " + err.Error()
}

func summary(res *syncer.Result) string {
	return fmt.Sprintf("%d downloaded, %d deleted, %d unchanged, %d override files",
		res.Downloaded, res.Deleted, res.Unchanged, res.OverrideFiles)
}

func warningText(w resolver.Warning) string {
	if w.Err != nil {
		return fmt.Sprintf("%s: %v", strings.ReplaceAll(w.Reason, "_", " "), w.Err)
	}
	return strings.ReplaceAll(w.Reason, "_", " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
