package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	colorPrimary   = lipgloss.Color("12")  // bright blue
	colorSecondary = lipgloss.Color("10")  // bright green
	colorDanger    = lipgloss.Color("9")   // bright red
	colorDim       = lipgloss.Color("240") // gray
	colorHighlight = lipgloss.Color("11")  // bright yellow
	colorBorder    = lipgloss.Color("238") // dark gray

	// Criteria row
	styleCriteria = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleDayOn = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)

	styleDayOff = lipgloss.NewStyle().
			Foreground(colorDim)

	// List items
	styleListSelected = lipgloss.NewStyle().
				Foreground(colorHighlight).
				Bold(true)

	styleListNormal = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	styleListInactive = lipgloss.NewStyle().
				Foreground(colorDim)

	styleStatusIncluded = lipgloss.NewStyle().
				Foreground(colorSecondary)

	styleStatusExcluded = lipgloss.NewStyle().
				Foreground(colorDanger)

	// Panels
	stylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorBorder)

	styleActiveBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary)

	// Status bar
	styleStatusBar = lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(0, 1)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorDanger).
			Padding(0, 1)
)
