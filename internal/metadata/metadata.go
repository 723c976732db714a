// Package metadata derives aggregate facts from a parsed message set.
package metadata

import (
	"sort"
	"time"

	"github.com/Zuo-Peng/chatdash/internal/parse"
)

// Metadata describes a full message set. It is built once per parse and
// replaced, never mutated, when another transcript is loaded.
type Metadata struct {
	FileName       string
	SenderCounts   map[string]int
	Senders        []string // by count desc, then name asc
	ShortNames     map[string]string
	Total          int
	FirstTimestamp time.Time
	LastTimestamp  time.Time
}

// Build makes a single pass over messages. Empty input yields empty maps
// and no date range.
func Build(messages []parse.Message, fileName string) Metadata {
	meta := Metadata{
		FileName:     fileName,
		SenderCounts: CountSenders(messages),
		Total:        len(messages),
	}

	for i, m := range messages {
		if i == 0 || m.Timestamp.Before(meta.FirstTimestamp) {
			meta.FirstTimestamp = m.Timestamp
		}
		if i == 0 || m.Timestamp.After(meta.LastTimestamp) {
			meta.LastTimestamp = m.Timestamp
		}
	}

	meta.Senders = orderSenders(meta.SenderCounts)
	meta.ShortNames = ShortNames(meta.Senders)
	return meta
}

// CountSenders returns sender -> message count.
func CountSenders(messages []parse.Message) map[string]int {
	counts := make(map[string]int)
	for _, m := range messages {
		counts[m.Sender]++
	}
	return counts
}

func orderSenders(counts map[string]int) []string {
	senders := make([]string, 0, len(counts))
	for s := range counts {
		senders = append(senders, s)
	}
	sort.Slice(senders, func(i, j int) bool {
		ci, cj := counts[senders[i]], counts[senders[j]]
		if ci != cj {
			return ci > cj
		}
		return senders[i] < senders[j]
	})
	return senders
}

// HasDateRange is false for an empty message set; the timestamps are then
// meaningless and must not seed a date picker.
func (m Metadata) HasDateRange() bool {
	return m.Total > 0
}

// Share returns the sender's percentage of all messages.
func (m Metadata) Share(sender string) float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.SenderCounts[sender]) * 100 / float64(m.Total)
}

func (m Metadata) ShortName(sender string) string {
	if s, ok := m.ShortNames[sender]; ok {
		return s
	}
	return sender
}
