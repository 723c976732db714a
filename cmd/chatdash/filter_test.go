package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/Zuo-Peng/chatdash/internal/errors"
	"github.com/Zuo-Peng/chatdash/internal/filter"
	"github.com/Zuo-Peng/chatdash/internal/metadata"
	"github.com/Zuo-Peng/chatdash/internal/parse"
)

func testMeta() metadata.Metadata {
	day := func(d int) time.Time { return time.Date(2023, 2, d, 10, 0, 0, 0, time.UTC) }
	return metadata.Build([]parse.Message{
		{Timestamp: day(6), Sender: "Alice", Body: "a"},
		{Timestamp: day(7), Sender: "Bob", Body: "b"},
		{Timestamp: day(9), Sender: "Alice", Body: "c"},
	}, "chat.txt")
}

func TestFilterFlagsDefaults(t *testing.T) {
	meta := testMeta()
	c, err := filterFlags{minPct: 2.5}.criteria(meta, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, meta.FirstTimestamp, c.Start)
	assert.Equal(t, meta.LastTimestamp, c.End)
	assert.Equal(t, filter.AllWeekdays, c.Weekdays)
	assert.Equal(t, 2.5, c.MinPercentage)
}

func TestFilterFlagsRange(t *testing.T) {
	c, err := filterFlags{since: "2023-02-07"}.criteria(testMeta(), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 2, 7, 0, 0, 0, 0, time.UTC), c.Start)
	assert.True(t, c.End.IsZero())

	c, err = filterFlags{until: "2023-02-07"}.criteria(testMeta(), time.UTC)
	require.NoError(t, err)
	assert.True(t, c.Start.IsZero())
	assert.Equal(t, time.Date(2023, 2, 7, 23, 59, 59, 999999999, time.UTC), c.End)
}

func TestFilterFlagsOverrides(t *testing.T) {
	f := filterFlags{weekdays: "mon,thu", exclude: []string{"Bob"}, include: []string{"Carol"}}
	c, err := f.criteria(testMeta(), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, filter.Weekdays(time.Monday, time.Thursday), c.Weekdays)
	assert.Equal(t, filter.Excluded, c.Status("Bob"))
	assert.Equal(t, filter.Included, c.Status("Carol"))
	assert.Equal(t, filter.Auto, c.Status("Alice"))
}

func TestFilterFlagsInvalid(t *testing.T) {
	tests := []struct {
		name string
		f    filterFlags
	}{
		{"bad date", filterFlags{since: "07/02/2023"}},
		{"reversed range", filterFlags{since: "2023-02-09", until: "2023-02-06"}},
		{"bad weekday", filterFlags{weekdays: "funday"}},
		{"threshold", filterFlags{minPct: 101}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.f.criteria(testMeta(), time.UTC)
			require.Error(t, err)
			assert.True(t, cerrors.Is(err, cerrors.ErrCodeInvalidInput))
			assert.Equal(t, 2, exitCode(err))
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 3, exitCode(cerrors.UnrecognizedFormat(20, 0)))
	assert.Equal(t, 4, exitCode(cerrors.NotFound("transcript")))
	assert.Equal(t, 1, exitCode(assert.AnError))
}
