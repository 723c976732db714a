package render

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	cerrors "github.com/Zuo-Peng/chatdash/internal/errors"
	"github.com/Zuo-Peng/chatdash/internal/index"
	"github.com/Zuo-Peng/chatdash/internal/parse"
)

const (
	colorReset   = "\033[0m"
	colorDim     = "\033[2m"
	colorHit     = "\033[43m"   // yellow background
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights
)

// senderColors are cycled by a hash of the sender name so a sender keeps
// its colour across runs.
var senderColors = []string{
	"\033[1;34m", // bold blue
	"\033[1;32m", // bold green
	"\033[1;35m", // bold magenta
	"\033[1;36m", // bold cyan
	"\033[1;33m", // bold yellow
	"\033[1;31m", // bold red
}

const timeLayout = "2006-01-02 15:04"

type Options struct {
	HitSeq   int
	Context  int    // messages before/after hit to show
	Width    int    // wrap width (0 = no wrap)
	Query    string // search query for keyword highlighting
	Location *time.Location
	NoColor  bool
}

func senderColor(sender string) string {
	h := fnv.New32a()
	h.Write([]byte(sender))
	return senderColors[h.Sum32()%uint32(len(senderColors))]
}

// highlightKeywords wraps case-insensitive matches of query terms in bold red ANSI codes.
func highlightKeywords(text, query string) string {
	if query == "" {
		return text
	}
	for _, term := range strings.Fields(query) {
		lower := strings.ToLower(term)
		i := 0
		for i < len(text) {
			rest := strings.ToLower(text[i:])
			if len(rest) != len(text)-i {
				break // case folding changed byte length
			}
			idx := strings.Index(rest, lower)
			if idx < 0 {
				break
			}
			pos := i + idx
			orig := text[pos : pos+len(term)]
			replacement := colorBoldRed + orig + colorReset
			text = text[:pos] + replacement + text[pos+len(term):]
			i = pos + len(replacement)
		}
	}
	return text
}

// indentLines prepends each line of text with the given prefix.
func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, correctly skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// check for ANSI escape sequence: ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++ // include 'm'
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}

	if len(result) == 0 {
		return []string{""}
	}
	return result
}

// stripANSI drops escape sequences for NoColor output.
func stripANSI(s string) string {
	if !strings.Contains(s, "\033[") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\033' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && s[j] != 'm' {
				j++
			}
			i = j
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

type writer struct {
	b         strings.Builder
	lineCount int
	width     int
	noColor   bool
}

// writeLine tracks the line count; it wraps long lines if width is set.
func (w *writer) writeLine(s string) {
	if w.noColor {
		s = stripANSI(s)
	}
	for _, wl := range wrapLine(s, w.width) {
		w.b.WriteString(wl)
		w.b.WriteString("\n")
		w.lineCount++
	}
}

func (w *writer) message(m parse.Message, hit bool, dim bool, opts Options) {
	ts := m.Timestamp
	if opts.Location != nil {
		ts = ts.In(opts.Location)
	}
	stamp := ts.Format(timeLayout)
	switch {
	case hit:
		w.writeLine(fmt.Sprintf("%s>> %s > %s <<%s", colorHit, m.Sender, stamp, colorReset))
	case dim:
		w.writeLine(fmt.Sprintf("%s%s > %s%s", colorDim, m.Sender, stamp, colorReset))
	default:
		w.writeLine(fmt.Sprintf("%s%s >%s %s%s%s", senderColor(m.Sender), m.Sender, colorReset, colorDim, stamp, colorReset))
	}

	text := highlightKeywords(m.Body, opts.Query)
	if dim {
		text = colorDim + m.Body + colorReset
	}
	for _, tl := range strings.Split(indentLines(text, "  "), "\n") {
		w.writeLine(tl)
	}
}

// RenderTranscript renders cached messages around a hit and returns the
// content and the 0-based line number of the hit header (-1 if no hit).
func RenderTranscript(db *index.DB, key string, opts Options) (string, int, error) {
	if opts.Context == 0 {
		opts.Context = 10
	}
	if opts.Context < 0 {
		opts.Context = 1000000 // no limit
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	t, err := db.GetTranscript(key)
	if err != nil {
		return "", -1, fmt.Errorf("get transcript: %w", err)
	}
	if t == nil {
		return "", -1, cerrors.NotFound("transcript " + key)
	}

	msgs, hitIdx, startPos, totalCount, err := db.GetMessagesWindow(key, opts.HitSeq, opts.Context, loc)
	if err != nil {
		return "", -1, fmt.Errorf("get messages: %w", err)
	}

	if totalCount == 0 {
		return "(empty transcript)", -1, nil
	}

	skipAfter := totalCount - startPos - len(msgs)
	w := &writer{width: opts.Width, noColor: opts.NoColor}
	hitLine := -1

	w.writeLine(fmt.Sprintf("%s--- %s [%s] %s ---%s", colorDim, t.FileName, t.Format, key, colorReset))

	if startPos > 0 {
		w.writeLine(fmt.Sprintf("%s... (%d messages before) ...%s", colorDim, startPos, colorReset))
	}

	for i, m := range msgs {
		if i == hitIdx {
			hitLine = w.lineCount
		}
		w.message(m.Message, i == hitIdx, false, opts)
		w.writeLine("")
	}

	if skipAfter > 0 {
		w.writeLine(fmt.Sprintf("%s... (%d messages after) ...%s", colorDim, skipAfter, colorReset))
	}

	return w.b.String(), hitLine, nil
}
