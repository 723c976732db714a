package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Zuo-Peng/chatdash/internal/parse"
)

func msg(sender string, ts time.Time) parse.Message {
	return parse.Message{Sender: sender, Timestamp: ts, Body: "x"}
}

func TestBuild(t *testing.T) {
	t0 := time.Date(2023, 2, 1, 10, 0, 0, 0, time.UTC)
	messages := []parse.Message{
		msg("Bob", t0.Add(time.Hour)),
		msg("Alice", t0),
		msg("Bob", t0.Add(3*time.Hour)),
		msg("Carol Smith", t0.Add(2*time.Hour)),
	}

	meta := Build(messages, "chat.txt")

	assert.Equal(t, "chat.txt", meta.FileName)
	assert.Equal(t, 4, meta.Total)
	assert.Equal(t, map[string]int{"Bob": 2, "Alice": 1, "Carol Smith": 1}, meta.SenderCounts)
	assert.Equal(t, []string{"Bob", "Alice", "Carol Smith"}, meta.Senders)
	assert.True(t, meta.HasDateRange())
	assert.Equal(t, t0, meta.FirstTimestamp)
	assert.Equal(t, t0.Add(3*time.Hour), meta.LastTimestamp)
	assert.Equal(t, 50.0, meta.Share("Bob"))
	assert.Equal(t, "Carol", meta.ShortName("Carol Smith"))
}

func TestBuildEmpty(t *testing.T) {
	meta := Build(nil, "empty.txt")
	assert.Equal(t, 0, meta.Total)
	assert.Empty(t, meta.SenderCounts)
	assert.Empty(t, meta.Senders)
	assert.False(t, meta.HasDateRange())
	assert.Equal(t, 0.0, meta.Share("anyone"))
}

func TestBuildIsDeterministic(t *testing.T) {
	t0 := time.Date(2023, 2, 1, 10, 0, 0, 0, time.UTC)
	messages := []parse.Message{msg("B", t0), msg("A", t0), msg("C", t0)}
	a := Build(messages, "f")
	b := Build(messages, "f")
	assert.Equal(t, a, b)
	assert.Equal(t, []string{"A", "B", "C"}, a.Senders)
}

func TestShortNames(t *testing.T) {
	tests := []struct {
		name    string
		senders []string
		want    map[string]string
	}{
		{
			name:    "unique first names",
			senders: []string{"Alice Smith", "Bob"},
			want:    map[string]string{"Alice Smith": "Alice", "Bob": "Bob"},
		},
		{
			name:    "shared first name uses next initial",
			senders: []string{"Anna Berg", "Anna Klein", "Tom"},
			want:    map[string]string{"Anna Berg": "Anna B.", "Anna Klein": "Anna K.", "Tom": "Tom"},
		},
		{
			name:    "shared initial falls back to full name",
			senders: []string{"Anna Berg", "Anna Bauer"},
			want:    map[string]string{"Anna Berg": "Anna Berg", "Anna Bauer": "Anna Bauer"},
		},
		{
			name:    "single token collides with longer name",
			senders: []string{"Anna", "Anna Berg"},
			want:    map[string]string{"Anna": "Anna", "Anna Berg": "Anna B."},
		},
		{
			name:    "phone numbers stay whole and lose bidi marks",
			senders: []string{"\u202a+49 151 1234567\u202c", "+49 151 7654321"},
			want: map[string]string{
				"\u202a+49 151 1234567\u202c": "+49 151 1234567",
				"+49 151 7654321":             "+49 151 7654321",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShortNames(tt.senders))
		})
	}
}
