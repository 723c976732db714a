package parse

import "time"

// Message is one transcript entry. It is immutable once parsed.
type Message struct {
	Timestamp time.Time
	Time      string // time-of-day token as written in the transcript
	Sender    string
	Body      string
	Line      int // line number of the first line in the source
}

func (m Message) Weekday() time.Weekday {
	return m.Timestamp.Weekday()
}

// Stats counts what happened to each input line.
type Stats struct {
	Lines         int
	Messages      int
	Continuations int
	SystemLines   int
	Ignored       int
	Malformed     int
	Orphans       int // continuation lines with no message to attach to
}

type Result struct {
	Messages []Message
	Format   Format
	Language string
	Stats    Stats
	Problems []error // first maxProblems malformed lines
}

// Empty reports whether parsing produced no messages.
func (r *Result) Empty() bool {
	return r == nil || len(r.Messages) == 0
}
