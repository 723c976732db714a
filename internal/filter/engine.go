package filter

import (
	"github.com/Zuo-Peng/chatdash/internal/metadata"
	"github.com/Zuo-Peng/chatdash/internal/parse"
)

// Message is a parsed message with its filter outcome. The flag can only be
// set by Apply.
type Message struct {
	parse.Message
	active bool
}

func (m Message) IsActive() bool {
	return m.active
}

// Result is the outcome of one filter pass. Messages has the same length
// and order as the input.
type Result struct {
	Messages      []Message
	ActiveCount   int
	ActiveSenders map[string]bool
}

// Active returns only the active messages, in order.
func (r *Result) Active() []parse.Message {
	out := make([]parse.Message, 0, r.ActiveCount)
	for _, m := range r.Messages {
		if m.active {
			out = append(out, m.Message)
		}
	}
	return out
}

// SenderActive resolves the sender rule alone. Total must be the size of
// the full, unfiltered message set.
func SenderActive(sender string, count, total int, c Criteria) bool {
	switch c.Status(sender) {
	case Excluded:
		return false
	case Included:
		return true
	}
	if total == 0 {
		return false
	}
	// count/total*100 >= min without dividing
	return float64(count)*100 >= c.MinPercentage*float64(total)
}

// ActiveSenders evaluates the sender rule for every sender in counts.
func ActiveSenders(counts map[string]int, total int, c Criteria) map[string]bool {
	out := make(map[string]bool, len(counts))
	for sender, n := range counts {
		out[sender] = SenderActive(sender, n, total, c)
	}
	return out
}

func (c Criteria) inRange(m parse.Message) bool {
	if !c.Start.IsZero() && m.Timestamp.Before(c.Start) {
		return false
	}
	if !c.End.IsZero() && m.Timestamp.After(c.End) {
		return false
	}
	return true
}

// Apply flags every message against c. Sender shares are computed over
// messages itself, so callers must always pass the original set and never
// a previously filtered subset. The input is not modified.
func Apply(messages []parse.Message, c Criteria) Result {
	counts := metadata.CountSenders(messages)
	senders := ActiveSenders(counts, len(messages), c)

	res := Result{
		Messages:      make([]Message, len(messages)),
		ActiveSenders: senders,
	}
	for i, m := range messages {
		active := senders[m.Sender] && c.Weekdays.Has(m.Weekday()) && c.inRange(m)
		res.Messages[i] = Message{Message: m, active: active}
		if active {
			res.ActiveCount++
		}
	}
	return res
}

// Flags returns the active flag of each message, in order.
func (r *Result) Flags() []bool {
	out := make([]bool, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = m.active
	}
	return out
}
