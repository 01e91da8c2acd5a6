package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorOrange = lipgloss.Color("#fe8019")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleOrange = lipgloss.NewStyle().Foreground(ColorOrange)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

var StyleRedBold = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)

// SeverityColor returns the style for a severity of either vocabulary.
func SeverityColor(sev domain.Severity) lipgloss.Style {
	switch sev.Rank() {
	case 4:
		return StyleRedBold
	case 3:
		return StyleOrange
	case 2:
		return StyleYellow
	case 1:
		return StyleBlue
	default:
		return StyleDim
	}
}

// SeverityBadge renders a severity such as "● HIGH".
func SeverityBadge(sev domain.Severity) string {
	if sev == "" {
		return StyleDim.Render("--")
	}
	return SeverityColor(sev).Render("● " + strings.ToUpper(string(sev)))
}

func PriorityBadge(p domain.Priority) string {
	switch p {
	case domain.PriorityP1:
		return StyleRedBold.Render("P1")
	case domain.PriorityP2:
		return StyleYellow.Render("P2")
	case domain.PriorityP3:
		return StyleGreen.Render("P3")
	default:
		return StyleDim.Render("--")
	}
}

// PlanStatusPill returns a colored indicator for a plan status.
func PlanStatusPill(status domain.PlanStatus) string {
	switch status {
	case domain.PlanNotStarted:
		return StyleDim.Render("○ Not started")
	case domain.PlanGenerating:
		return StyleYellow.Render("◐ Generating")
	case domain.PlanDraft:
		return StyleBlue.Render("● Draft")
	case domain.PlanPublished:
		return StyleGreen.Render("✔ Published")
	default:
		return StyleDim.Render(string(status))
	}
}

// ItemStatusPill returns a colored indicator for an item status.
func ItemStatusPill(status domain.ItemStatus) string {
	switch status {
	case domain.ItemProposed:
		return StyleBlue.Render("○ Proposed")
	case domain.ItemValidated:
		return StyleGreen.Render("● Validated")
	case domain.ItemExcluded:
		return StyleDim.Render("⊘ Excluded")
	case domain.ItemPublished:
		return StylePurple.Render("✔ Published")
	default:
		return StyleDim.Render(string(status))
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}
