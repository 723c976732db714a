package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	cerrors "github.com/Zuo-Peng/chatdash/internal/errors"
	"github.com/Zuo-Peng/chatdash/internal/filter"
	"github.com/Zuo-Peng/chatdash/internal/worker"
)

// filterResultMsg is sent when a filter pass submitted to the harness
// resolves. Superseded passes never produce one.
type filterResultMsg struct {
	rev      int
	result   *worker.FilterResult
	fallback bool // computed inline after the background pass failed
	err      error
}

// filterCmd submits c to the harness and waits for it off the UI loop. A
// background failure or timeout is retried inline.
func filterCmd(h *worker.Harness, c filter.Criteria, rev int) tea.Cmd {
	return func() tea.Msg {
		res, err := h.SubmitFilter(c).Wait(context.Background())
		switch {
		case err == nil:
			return filterResultMsg{rev: rev, result: res}
		case cerrors.Is(err, cerrors.ErrCodeStaleResult):
			return nil
		case cerrors.Is(err, cerrors.ErrCodeBackgroundFailure), cerrors.Is(err, cerrors.ErrCodeTimeout):
			res, syncErr := h.FilterNow(c)
			if syncErr != nil {
				if cerrors.Is(syncErr, cerrors.ErrCodeStaleResult) {
					return nil
				}
				return filterResultMsg{rev: rev, err: syncErr}
			}
			return filterResultMsg{rev: rev, result: res, fallback: true}
		default:
			return filterResultMsg{rev: rev, err: err}
		}
	}
}

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = stylePanelBorder
	return vp
}
