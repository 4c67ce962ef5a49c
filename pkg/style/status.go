package style

import (
	"github.com/pterm/pterm"
)

// Status of a file in a plan or in the recorded state
type Status string

const (
	StatusDownload  Status = "download"
	StatusDelete    Status = "delete"
	StatusUnchanged Status = "unchanged"
	StatusTracked   Status = "tracked"
	StatusOverride  Status = "override"
)

// StatusStyle returns the pterm style of a status badge
func StatusStyle(status Status) *pterm.Style {
	switch status {
	case StatusDownload:
		return pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	case StatusDelete:
		return pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	case StatusUnchanged:
		return pterm.NewStyle(pterm.FgGray)
	case StatusOverride:
		return pterm.NewStyle(pterm.FgCyan)
	default:
		return pterm.NewStyle(pterm.BgGreen, pterm.FgWhite)
	}
}

// Badge renders status as a fixed-width label
func Badge(status Status) string {
	return StatusStyle(status).Sprintf(" %-9s ", string(status))
}
