package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/chatdash/internal/filter"
)

// linesPerItem is the number of terminal lines each sender occupies.
const linesPerItem = 1

// renderList renders the left panel: the sender list with scrolling.
func (m model) renderList(width, height int) string {
	senders := m.meta.Senders
	if len(senders) == 0 {
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No messages")
	}

	var lines []string
	for i, s := range senders {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, m.formatSender(s, width, i == m.cursor))
	}

	// Pad remaining lines
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}

	return strings.Join(lines, "\n")
}

func statusMark(s filter.SenderStatus) string {
	switch s {
	case filter.Excluded:
		return styleStatusExcluded.Render("-")
	case filter.Included:
		return styleStatusIncluded.Render("+")
	default:
		return " "
	}
}

// formatSender renders one row:
//
//	[>] [+-] name  share%
func (m model) formatSender(sender string, width int, selected bool) string {
	share := fmt.Sprintf("%5.1f%%", m.meta.Share(sender))
	nameMax := width - 2 - 2 - len(share) - 1
	if nameMax < 0 {
		nameMax = 0
	}
	name := m.meta.ShortName(sender)
	if runewidth.StringWidth(name) > nameMax {
		name = runewidth.Truncate(name, nameMax, "…")
	}
	name = runewidth.FillRight(name, nameMax)

	style := styleListNormal
	if !m.senderActive(sender) {
		style = styleListInactive
	}
	row := statusMark(m.criteria.Status(sender)) + " " + style.Render(name) + " " + style.Render(share)
	if selected {
		return styleListSelected.Render("> ") + row
	}
	return "  " + row
}

// senderActive evaluates the sender rule against the criteria being edited,
// so the list reacts before the filter pass comes back.
func (m model) senderActive(sender string) bool {
	return filter.SenderActive(sender, m.meta.SenderCounts[sender], m.meta.Total, m.criteria)
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := listHeight / linesPerItem
	if visibleItems < 1 {
		visibleItems = 1
	}
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
