package parse

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"
	"time"

	cerrors "github.com/Zuo-Peng/chatdash/internal/errors"
)

const maxLineSize = 10 * 1024 * 1024 // 10MB
const maxProblems = 20

type Options struct {
	Location        *time.Location
	SampleLines     int
	MinMatchRatio   float64
	MinMatchedLines int
	DefaultLanguage string
	Ignore          IgnoreList
}

func DefaultOptions() Options {
	return Options{
		Location:        time.Local,
		SampleLines:     20,
		MinMatchRatio:   0.8,
		MinMatchedLines: 1,
		DefaultLanguage: "en",
		Ignore:          DefaultIgnoreList(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Location == nil {
		o.Location = d.Location
	}
	if o.SampleLines <= 0 {
		o.SampleLines = d.SampleLines
	}
	if o.MinMatchRatio <= 0 {
		o.MinMatchRatio = d.MinMatchRatio
	}
	if o.MinMatchedLines <= 0 {
		o.MinMatchedLines = d.MinMatchedLines
	}
	if o.DefaultLanguage == "" {
		o.DefaultLanguage = d.DefaultLanguage
	}
	return o
}

// Parse converts raw transcript text into messages. When no known format
// matches, the result is empty with Format Unknown and the error carries
// ErrCodeUnrecognizedFormat. Individual bad lines never fail the parse.
func Parse(raw string, opts Options) (*Result, error) {
	return ParseReader(strings.NewReader(raw), opts)
}

func ParseFile(path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseReader(f, opts)
}

func ParseReader(r io.Reader, opts Options) (*Result, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	return parseLines(lines, opts)
}

func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(scanLines)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// scanLines is bufio.ScanLines that also ends a line at a lone \r, as
// written by some older exporters.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		switch {
		case i+1 < len(data) && data[i+1] == '\n':
			return i + 2, data[:i], nil
		case i+1 < len(data) || atEOF:
			return i + 1, data[:i], nil
		}
		// \r at the end of the buffer: wait to see whether \n follows
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func parseLines(lines []string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	det := Detect(lines, opts)
	if det.Format.IsUnknown() {
		return &Result{
			Format:   Unknown,
			Language: opts.DefaultLanguage,
			Stats:    Stats{Lines: len(lines)},
		}, cerrors.UnrecognizedFormat(det.Sampled, det.Matched)
	}

	result := &Result{
		Format:   det.Format,
		Language: detectLanguage(det.sample, det.Format.Family, opts.Ignore, opts.DefaultLanguage),
	}
	var ignore []string
	if opts.Ignore != nil {
		ignore = opts.Ignore.Lookup(result.Language, det.Format.Family)
	}

	p := lineParser{
		format: det.Format,
		loc:    opts.Location,
		ignore: ignore,
		result: result,
	}
	for i, raw := range lines {
		p.feed(i+1, raw)
	}
	p.flush()

	result.Stats.Lines = len(lines)
	result.Stats.Messages = len(result.Messages)
	return result, nil
}

// lineParser applies one committed format to a document line by line.
type lineParser struct {
	format Format
	loc    *time.Location
	ignore []string
	result *Result

	cur  *Message
	body strings.Builder
	// open is false after a dropped line: its continuations are dropped too
	open bool
}

func (p *lineParser) feed(lineNum int, raw string) {
	line := cleanLine(raw)

	pre, ok := matchFamily(p.format.Family, line)
	if !ok {
		p.continuation(strings.TrimRight(raw, "\r"))
		return
	}

	p.flush()

	ts, err := pre.timestamp(p.format, p.loc)
	if err != nil {
		p.result.Stats.Malformed++
		if len(p.result.Problems) < maxProblems {
			p.result.Problems = append(p.result.Problems, cerrors.MalformedLine(lineNum, line, err))
		}
		p.open = false
		return
	}

	sender, body, ok := splitSender(pre.rest)
	if !ok {
		p.result.Stats.SystemLines++
		p.open = false
		return
	}
	if containsAny(body, p.ignore) {
		p.result.Stats.Ignored++
		p.open = false
		return
	}

	p.cur = &Message{
		Timestamp: ts,
		Time:      pre.time,
		Sender:    sender,
		Line:      lineNum,
	}
	p.body.Reset()
	p.body.WriteString(body)
	p.open = true
}

func (p *lineParser) continuation(line string) {
	if p.cur == nil || !p.open {
		if strings.TrimSpace(line) != "" {
			p.result.Stats.Orphans++
		}
		return
	}
	p.result.Stats.Continuations++
	p.body.WriteByte('\n')
	p.body.WriteString(line)
}

func (p *lineParser) flush() {
	if p.cur == nil {
		return
	}
	p.cur.Body = strings.TrimRight(p.body.String(), "\n")
	p.result.Messages = append(p.result.Messages, *p.cur)
	p.cur = nil
	p.body.Reset()
}
