package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/chatdash/internal/filter"
	"github.com/Zuo-Peng/chatdash/internal/metadata"
	"github.com/Zuo-Peng/chatdash/internal/parse"
)

func sample() []parse.Message {
	t0 := time.Date(2023, 2, 1, 14, 5, 0, 0, time.UTC)
	return []parse.Message{
		{Timestamp: t0, Time: "14:05", Sender: "Alice", Body: "Hello", Line: 1},
		{Timestamp: t0.Add(time.Minute), Time: "14:06", Sender: "Bob", Body: "Hi\nhow\tare you?", Line: 2},
	}
}

func TestTSV(t *testing.T) {
	res := filter.Apply(sample(), filter.Criteria{Weekdays: filter.AllWeekdays}.WithSenderStatus("Alice", filter.Excluded))

	var buf bytes.Buffer
	require.NoError(t, TSV(&buf, res))
	assert.Equal(t, "2023-02-01T14:06:00Z\t14:06\tBob\tHi\\nhow\\tare you?\n", buf.String())
}

func TestMessages(t *testing.T) {
	res := filter.Apply(sample(), filter.Criteria{Weekdays: filter.AllWeekdays}.WithSenderStatus("Alice", filter.Excluded))

	out := Messages(res, false, Options{NoColor: true, Location: time.UTC})
	assert.Equal(t, "Bob > 2023-02-01 14:06\n  Hi\n  how\tare you?\n", out)

	all := Messages(res, true, Options{NoColor: true, Location: time.UTC})
	assert.Contains(t, all, "Alice > 2023-02-01 14:05")
}

func TestSenderTable(t *testing.T) {
	msgs := sample()
	meta := metadata.Build(msgs, "chat.txt")
	c := filter.Criteria{Weekdays: filter.AllWeekdays}.WithSenderStatus("Bob", filter.Excluded)

	out := stripANSI(SenderTable(meta, c, nil, 20))
	assert.Contains(t, out, "SENDER")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "excluded")
	lines := strings.Split(out, "\n")
	var bobLine string
	for _, l := range lines {
		if strings.Contains(l, "Bob") {
			bobLine = l
		}
	}
	assert.Contains(t, bobLine, "no")
}

func TestSummary(t *testing.T) {
	meta := metadata.Build(sample(), "chat.txt")
	assert.Equal(t, "chat.txt: 2 messages from 2 senders, 2023-02-01 to 2023-02-01 (1 minute)", Summary(meta, nil))

	assert.Equal(t, "empty.txt: 0 messages from 0 senders", Summary(metadata.Build(nil, "empty.txt"), nil))
}

func TestWrapLineSkipsANSI(t *testing.T) {
	lines := wrapLine("\033[1mabcdef\033[0m", 3)
	require.Len(t, lines, 2)
	assert.Equal(t, "abc", stripANSI(lines[0]))
	assert.Equal(t, "def", stripANSI(lines[1]))

	assert.Equal(t, []string{"你好", "世界"}, wrapLine("你好世界", 4))
}

func TestHighlightKeywords(t *testing.T) {
	assert.Equal(t, "say "+colorBoldRed+"Hello"+colorReset+" now", highlightKeywords("say Hello now", "hello"))
	assert.Equal(t, "nothing", highlightKeywords("nothing", ""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
}
