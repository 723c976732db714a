package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/chatdash/internal/filter"
	"github.com/Zuo-Peng/chatdash/internal/metadata"
)

// Messages renders a filter result for a terminal. Inactive messages are
// left out unless showInactive is set, in which case they are dimmed.
func Messages(res filter.Result, showInactive bool, opts Options) string {
	w := &writer{width: opts.Width, noColor: opts.NoColor}
	for _, m := range res.Messages {
		if !m.IsActive() && !showInactive {
			continue
		}
		w.message(m.Message, false, !m.IsActive(), opts)
	}
	return w.b.String()
}

// TSV writes active messages one per line: RFC 3339 timestamp, time as
// written, sender, body. Tabs and newlines in the body are escaped.
func TSV(out io.Writer, res filter.Result) error {
	esc := strings.NewReplacer("\\", "\\\\", "\t", "\\t", "\n", "\\n", "\r", "\\r")
	for _, m := range res.Messages {
		if !m.IsActive() {
			continue
		}
		_, err := fmt.Fprintf(out, "%s\t%s\t%s\t%s\n",
			m.Timestamp.Format(time.RFC3339), esc.Replace(m.Time), esc.Replace(m.Sender), esc.Replace(m.Body))
		if err != nil {
			return err
		}
	}
	return nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Faint(true).Padding(0, 1)
)

// Truncate shortens s to width display columns.
func Truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// SenderTable lists every sender with its share and whether it is active
// under c. active may be nil, in which case it is computed from meta.
func SenderTable(meta metadata.Metadata, c filter.Criteria, active map[string]bool, nameWidth int) string {
	if active == nil {
		active = filter.ActiveSenders(meta.SenderCounts, meta.Total, c)
	}
	t := ltable.New().
		Border(lipgloss.RoundedBorder()).
		Headers("SENDER", "SHORT", "MESSAGES", "SHARE", "STATUS", "ACTIVE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(meta.Senders) && !active[meta.Senders[row]] {
				return mutedStyle
			}
			return cellStyle
		})

	for _, s := range meta.Senders {
		mark := "no"
		if active[s] {
			mark = "yes"
		}
		t = t.Row(
			Truncate(s, nameWidth),
			meta.ShortName(s),
			humanize.Comma(int64(meta.SenderCounts[s])),
			strconv.FormatFloat(meta.Share(s), 'f', 1, 64)+"%",
			c.Status(s).String(),
			mark,
		)
	}
	return t.String()
}

// Summary is a one-line description of a transcript and a filter pass.
func Summary(meta metadata.Metadata, res *filter.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s messages from %d senders", meta.FileName, humanize.Comma(int64(meta.Total)), len(meta.Senders))
	if meta.HasDateRange() {
		fmt.Fprintf(&b, ", %s to %s (%s)",
			meta.FirstTimestamp.Format("2006-01-02"),
			meta.LastTimestamp.Format("2006-01-02"),
			strings.TrimSuffix(humanize.RelTime(meta.FirstTimestamp, meta.LastTimestamp, "", ""), " "))
	}
	if res != nil {
		fmt.Fprintf(&b, "; %s active", humanize.Comma(int64(res.ActiveCount)))
	}
	return b.String()
}
