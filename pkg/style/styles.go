package style

import (
	"github.com/arthur-debert/modsync/pkg/types"
	"github.com/charmbracelet/lipgloss"
)

// Base styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(HeadingColor).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	PathStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Italic(true)

	HashStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)
)

// Operation indicator styles
var (
	SuccessIndicator = SuccessStyle.Render("✓")
	WarningIndicator = WarningStyle.Render("!")
	InfoIndicator    = InfoStyle.Render("•")
	PendingIndicator = MutedStyle.Render("○")
)

// TypeStyle returns the style used to label a project type.
func TypeStyle(t types.ProjectType) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch t {
	case types.ProjectTypeMod:
		return base.Foreground(ModColor)
	case types.ProjectTypeResourcePack:
		return base.Foreground(ResourcePackColor)
	case types.ProjectTypeShader:
		return base.Foreground(ShaderColor)
	case types.ProjectTypeDataPack:
		return base.Foreground(DataPackColor)
	default:
		return base.Foreground(MutedColor)
	}
}

// Indent pads s by level steps of two spaces.
func Indent(s string, level int) string {
	return lipgloss.NewStyle().PaddingLeft(level * 2).Render(s)
}
