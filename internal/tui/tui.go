package tui

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Zuo-Peng/chatdash/internal/filter"
	"github.com/Zuo-Peng/chatdash/internal/metadata"
	"github.com/Zuo-Peng/chatdash/internal/render"
	"github.com/Zuo-Peng/chatdash/internal/worker"
)

const debounceDelay = 150 * time.Millisecond

// message types

type debounceTickMsg struct {
	rev int
}

type copiedMsg struct {
	n   int
	err error
}

// model

type model struct {
	harness  *worker.Harness
	meta     metadata.Metadata
	defaults filter.Criteria
	criteria filter.Criteria
	rev      int // bumped on every criteria change

	result       *worker.FilterResult
	appliedRev   int
	showInactive bool
	status       string
	warning      string

	cursor     int
	listOffset int
	preview    viewport.Model
	width      int
	height     int
	ready      bool
	quitting   bool
}

func newModel(h *worker.Harness, c filter.Criteria) model {
	doc := h.Current()
	var meta metadata.Metadata
	if doc != nil {
		meta = doc.Meta
	}
	return model{
		harness:  h,
		meta:     meta,
		defaults: c,
		criteria: c,
		preview:  viewport.New(0, 0),
	}
}

// Run starts the dashboard on the harness's current document and blocks
// until it exits.
func Run(h *worker.Harness, c filter.Criteria) error {
	if h.Current() == nil {
		return fmt.Errorf("tui: no transcript loaded")
	}
	m := newModel(h, c)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// Init triggers the first filter pass.
func (m model) Init() tea.Cmd {
	return filterCmd(m.harness, m.criteria, m.rev)
}

// setCriteria replaces the criteria and schedules a debounced filter pass.
func (m *model) setCriteria(c filter.Criteria) tea.Cmd {
	m.criteria = c
	m.rev++
	rev := m.rev
	return tea.Tick(debounceDelay, func(time.Time) tea.Msg {
		return debounceTickMsg{rev: rev}
	})
}

func (m model) selectedSender() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.meta.Senders) {
		return "", false
	}
	return m.meta.Senders[m.cursor], true
}

// Update handles messages.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.preview = newViewport(m.previewWidth(), m.panelHeight())
		m.refreshPreview()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.adjustListScroll(m.panelHeight())
			}
			return m, nil

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.meta.Senders)-1 {
				m.cursor++
				m.adjustListScroll(m.panelHeight())
			}
			return m, nil

		case key.Matches(msg, keys.Cycle):
			sender, ok := m.selectedSender()
			if !ok {
				return m, nil
			}
			next := m.criteria.Status(sender).Next()
			return m, m.setCriteria(m.criteria.WithSenderStatus(sender, next))

		case key.Matches(msg, keys.Weekday):
			n, _ := strconv.Atoi(msg.String())
			day := time.Weekday(n % 7) // 1 = Monday .. 7 = Sunday
			return m, m.setCriteria(m.criteria.WithWeekdays(m.criteria.Weekdays.Toggle(day)))

		case key.Matches(msg, keys.MorePct):
			if m.criteria.MinPercentage >= 100 {
				return m, nil
			}
			return m, m.setCriteria(m.criteria.WithMinPercentage(stepPct(m.criteria.MinPercentage, true)))

		case key.Matches(msg, keys.LessPct):
			if m.criteria.MinPercentage <= 0 {
				return m, nil
			}
			return m, m.setCriteria(m.criteria.WithMinPercentage(stepPct(m.criteria.MinPercentage, false)))

		case key.Matches(msg, keys.Reset):
			return m, m.setCriteria(m.defaults)

		case key.Matches(msg, keys.ShowInactive):
			m.showInactive = !m.showInactive
			m.refreshPreview()
			return m, nil

		case key.Matches(msg, keys.Copy):
			return m, m.copyActive()

		case key.Matches(msg, keys.PreviewUp):
			m.preview.LineUp(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PreviewDn):
			m.preview.LineDown(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PageUp):
			m.preview.LineUp(m.panelHeight())
			return m, nil

		case key.Matches(msg, keys.PageDown):
			m.preview.LineDown(m.panelHeight())
			return m, nil
		}
		return m, nil

	case tea.MouseMsg:
		if msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown {
			var vpCmd tea.Cmd
			m.preview, vpCmd = m.preview.Update(msg)
			return m, vpCmd
		}
		return m, nil

	case debounceTickMsg:
		// Only submit if the criteria haven't changed since the tick was scheduled
		if msg.rev != m.rev {
			return m, nil
		}
		return m, filterCmd(m.harness, m.criteria, msg.rev)

	case filterResultMsg:
		if msg.rev < m.appliedRev {
			return m, nil
		}
		if msg.err != nil {
			m.warning = "filter failed: " + msg.err.Error()
			return m, nil
		}
		m.result = msg.result
		m.appliedRev = msg.rev
		m.warning = ""
		if msg.fallback {
			m.warning = "background filter failed; ran inline"
		}
		m.refreshPreview()
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.warning = "copy failed: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("copied %d messages", msg.n)
		}
		return m, nil
	}

	return m, nil
}

// stepPct moves the threshold by 1, or by 0.1 below 1% where most senders
// of a large group sit.
func stepPct(p float64, up bool) float64 {
	step := 1.0
	if p < 1 || (!up && p <= 1) {
		step = 0.1
	}
	if !up {
		step = -step
	}
	next := math.Round((p+step)*10) / 10
	return math.Max(0, math.Min(100, next))
}

func (m *model) refreshPreview() {
	if m.result == nil {
		m.preview.SetContent("filtering...")
		return
	}
	content := render.Messages(m.result.Result, m.showInactive, render.Options{Width: m.previewWidth()})
	if content == "" {
		content = "No active messages"
	}
	m.preview.SetContent(content)
}

func (m model) copyActive() tea.Cmd {
	if m.result == nil {
		return nil
	}
	res := m.result.Result
	return func() tea.Msg {
		var buf bytes.Buffer
		if err := render.TSV(&buf, res); err != nil {
			return copiedMsg{err: err}
		}
		return copiedMsg{n: res.ActiveCount, err: clipboard.WriteAll(buf.String())}
	}
}

// View renders the full TUI.
func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	listW := m.listWidth()
	previewW := m.previewWidth()
	panelH := m.panelHeight()

	listPanel := stylePanelBorder.
		Width(listW).
		Height(panelH).
		Render(m.renderList(listW, panelH))

	m.preview.Width = previewW
	m.preview.Height = panelH
	previewPanel := styleActiveBorder.
		Width(previewW).
		Height(panelH).
		Render(m.preview.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel)

	return lipgloss.JoinVertical(lipgloss.Left, m.criteriaRow(), panels, m.statusBar())
}

// criteriaRow shows the date range, weekday toggles and threshold.
func (m model) criteriaRow() string {
	var parts []string
	rng := "all dates"
	if !m.criteria.Start.IsZero() || !m.criteria.End.IsZero() {
		from, to := "…", "…"
		if !m.criteria.Start.IsZero() {
			from = m.criteria.Start.Format("2006-01-02")
		}
		if !m.criteria.End.IsZero() {
			to = m.criteria.End.Format("2006-01-02")
		}
		rng = from + " to " + to
	}
	parts = append(parts, styleCriteria.Render(rng))

	var days []string
	for i := 1; i <= 7; i++ {
		d := time.Weekday(i % 7)
		label := d.String()[:2]
		if m.criteria.Weekdays.Has(d) {
			days = append(days, styleDayOn.Render(label))
		} else {
			days = append(days, styleDayOff.Render(label))
		}
	}
	parts = append(parts, strings.Join(days, " "))
	parts = append(parts, styleCriteria.Render(fmt.Sprintf("min %g%%", m.criteria.MinPercentage)))
	return " " + strings.Join(parts, "  ")
}

// helper methods

func (m model) listWidth() int {
	if m.width <= 0 {
		return 30
	}
	// 30% for list, minus border padding
	w := m.width*30/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) previewWidth() int {
	if m.width <= 0 {
		return 60
	}
	// 70% for messages, minus border padding
	w := m.width*70/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// Subtract criteria row (1) + status bar (1) + borders (4)
	h := m.height - 6
	if h < 5 {
		h = 5
	}
	return h
}

func (m model) statusBar() string {
	if m.warning != "" {
		return styleWarning.Render(m.warning)
	}
	var parts []string
	if m.result != nil {
		parts = append(parts, fmt.Sprintf("%d/%d active", m.result.ActiveCount, m.meta.Total))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	parts = append(parts, "space status", "1-7 days", "+/- min%", "a inactive", "y copy", "r reset", "q quit")
	return styleStatusBar.Render(strings.Join(parts, " | "))
}
