package parse

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/Zuo-Peng/chatdash/internal/errors"
)

func utcOptions() Options {
	opts := DefaultOptions()
	opts.Location = time.UTC
	return opts
}

func TestParseCanonicalSample(t *testing.T) {
	raw := "01.02.2023, 14:05 - Alice: Hello\n01.02.2023, 14:06 - Bob: Hi\nhow are you?"

	res, err := Parse(raw, utcOptions())
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)

	assert.Equal(t, "android-dmy-24h", res.Format.Name())
	assert.Equal(t, "Alice", res.Messages[0].Sender)
	assert.Equal(t, "Hello", res.Messages[0].Body)
	assert.Equal(t, time.Date(2023, 2, 1, 14, 5, 0, 0, time.UTC), res.Messages[0].Timestamp)
	assert.Equal(t, "14:05", res.Messages[0].Time)
	assert.Equal(t, 1, res.Messages[0].Line)

	assert.Equal(t, "Bob", res.Messages[1].Sender)
	assert.Equal(t, "Hi\nhow are you?", res.Messages[1].Body)
	assert.Equal(t, 2, res.Messages[1].Line)
	assert.Equal(t, 1, res.Stats.Continuations)
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		format string
		first  time.Time
		time   string
	}{
		{
			name:   "android us 12h",
			raw:    "1/15/23, 2:05 PM - Alice: Hi\n1/15/23, 11:30 PM - Bob: Night",
			format: "android-mdy-12h",
			first:  time.Date(2023, 1, 15, 14, 5, 0, 0, time.UTC),
			time:   "2:05 PM",
		},
		{
			name:   "android 12h midnight",
			raw:    "1/15/23, 12:10 am - Alice: late",
			format: "android-mdy-12h",
			first:  time.Date(2023, 1, 15, 0, 10, 0, 0, time.UTC),
			time:   "12:10 am",
		},
		{
			name:   "android dash separator without comma",
			raw:    "15-01-2023 09:00 - Alice: Morning",
			format: "android-dmy-24h",
			first:  time.Date(2023, 1, 15, 9, 0, 0, 0, time.UTC),
			time:   "09:00",
		},
		{
			name:   "android year first",
			raw:    "2023/01/15, 09:00 - Alice: Morning",
			format: "android-ymd-24h",
			first:  time.Date(2023, 1, 15, 9, 0, 0, 0, time.UTC),
			time:   "09:00",
		},
		{
			name:   "ios 24h with seconds",
			raw:    "[15.01.23, 14:05:33] Alice: Hi\n[15.01.23, 14:06:01] Bob: Hey",
			format: "ios-dmy-24h",
			first:  time.Date(2023, 1, 15, 14, 5, 33, 0, time.UTC),
			time:   "14:05:33",
		},
		{
			name:   "ios 12h narrow no-break space and marks",
			raw:    "\u200e[1/15/23, 2:05:33\u202fPM] Alice: Hi",
			format: "ios-mdy-12h",
			first:  time.Date(2023, 1, 15, 14, 5, 33, 0, time.UTC),
			time:   "2:05:33\u202fPM",
		},
		{
			name:   "spanish meridiem",
			raw:    "15/1/23, 2:05 p. m. - Ana: Hola",
			format: "android-dmy-12h",
			first:  time.Date(2023, 1, 15, 14, 5, 0, 0, time.UTC),
			time:   "2:05 p. m.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(tt.raw, utcOptions())
			require.NoError(t, err)
			require.NotEmpty(t, res.Messages)
			assert.Equal(t, tt.format, res.Format.Name())
			assert.Equal(t, tt.first, res.Messages[0].Timestamp)
			assert.Equal(t, tt.time, res.Messages[0].Time)
		})
	}
}

func TestParseUnrecognizedFormat(t *testing.T) {
	for _, raw := range []string{"", "hello\nworld\nno timestamps here", "2023 was a year\n- Alice: hi"} {
		res, err := Parse(raw, utcOptions())
		require.Error(t, err)
		assert.True(t, cerrors.Is(err, cerrors.ErrCodeUnrecognizedFormat))
		require.NotNil(t, res)
		assert.True(t, res.Format.IsUnknown())
		assert.Equal(t, "unknown", res.Format.Name())
		assert.Empty(t, res.Messages)
	}
}

func TestParseSkipsSystemAndIgnoredLines(t *testing.T) {
	raw := strings.Join([]string{
		"01.02.23, 10:00 - Nachrichten und Anrufe sind Ende-zu-Ende-verschlüsselt. Tippe, um mehr zu erfahren.",
		"01.02.23, 10:01 - Alice hat die Gruppe erstellt",
		"01.02.23, 10:02 - Alice: Hallo",
		"01.02.23, 10:03 - Bob: <Medien ausgeschlossen>",
		"stray line after a placeholder",
		"01.02.23, 10:04 - Bob: Hi",
	}, "\n")

	res, err := Parse(raw, utcOptions())
	require.NoError(t, err)

	assert.Equal(t, "de", res.Language)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "Hallo", res.Messages[0].Body)
	assert.Equal(t, "Hi", res.Messages[1].Body)
	assert.Equal(t, 2, res.Stats.SystemLines)
	assert.Equal(t, 1, res.Stats.Ignored)
	assert.Equal(t, 1, res.Stats.Orphans)
}

func TestParseDropsMalformedLine(t *testing.T) {
	raw := strings.Join([]string{
		"01.02.2023, 10:00 - Alice: one",
		"02.02.2023, 10:00 - Alice: two",
		"03.02.2023, 10:00 - Bob: three",
		"04.02.2023, 10:00 - Bob: four",
		"05.02.2023, 10:00 - Alice: five",
		"31.02.2023, 10:00 - Alice: impossible date",
		"continuation of the impossible one",
		"06.02.2023, 10:00 - Bob: six",
	}, "\n")

	res, err := Parse(raw, utcOptions())
	require.NoError(t, err)

	assert.Len(t, res.Messages, 6)
	assert.Equal(t, 1, res.Stats.Malformed)
	require.Len(t, res.Problems, 1)
	assert.True(t, cerrors.Is(res.Problems[0], cerrors.ErrCodeMalformedLine))
	for _, m := range res.Messages {
		assert.NotContains(t, m.Body, "impossible")
	}
}

func TestParseKeepsInputOrder(t *testing.T) {
	raw := "02.02.2023, 10:00 - A: later\n01.02.2023, 10:00 - B: earlier"
	res, err := Parse(raw, utcOptions())
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "later", res.Messages[0].Body)
}

func TestParseMultilineWithBlankLines(t *testing.T) {
	raw := "01.02.2023, 10:00 - A: first\n\nthird\r\n\n01.02.2023, 10:01 - B: next\n\n"
	res, err := Parse(raw, utcOptions())
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "first\n\nthird", res.Messages[0].Body)
	assert.Equal(t, "next", res.Messages[1].Body)
}

func TestParseLineEndings(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"lf", "01.02.2023, 14:05 - Alice: Hello\n01.02.2023, 14:06 - Bob: Hi\nhow are you?"},
		{"crlf", "01.02.2023, 14:05 - Alice: Hello\r\n01.02.2023, 14:06 - Bob: Hi\r\nhow are you?\r\n"},
		{"lone cr", "01.02.2023, 14:05 - Alice: Hello\r01.02.2023, 14:06 - Bob: Hi\rhow are you?"},
		{"mixed", "01.02.2023, 14:05 - Alice: Hello\r01.02.2023, 14:06 - Bob: Hi\r\nhow are you?\n"},
		{"bom and marks", "\ufeff\u200e01.02.2023, 14:05 - Alice: Hello\n\u200e01.02.2023, 14:06 - Bob: Hi\nhow are you?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(tt.raw, utcOptions())
			require.NoError(t, err)
			require.Len(t, res.Messages, 2)
			assert.Equal(t, "Alice", res.Messages[0].Sender)
			assert.Equal(t, "Hello", res.Messages[0].Body)
			assert.Equal(t, "Bob", res.Messages[1].Sender)
			assert.Equal(t, "Hi\nhow are you?", res.Messages[1].Body)
			assert.Equal(t, 2, res.Messages[1].Line)
		})
	}
}

func TestReadLinesSplitsCROneByteAtATime(t *testing.T) {
	// a \r landing at the end of the scanner buffer must not swallow the \n after it
	lines, err := readLines(iotest.OneByteReader(strings.NewReader("a\rb\r\nc\n\rd")))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "", "d"}, lines)
}

func TestParseEmptyBodyAndColonsInBody(t *testing.T) {
	raw := "01.02.2023, 10:00 - A: time is 10:00: ok\n01.02.2023, 10:01 - B:"
	res, err := Parse(raw, utcOptions())
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "time is 10:00: ok", res.Messages[0].Body)
	assert.Equal(t, "B", res.Messages[1].Sender)
	assert.Equal(t, "", res.Messages[1].Body)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "WhatsApp Chat with Bob.txt")
	require.NoError(t, os.WriteFile(path, []byte("\ufeff01.02.2023, 14:05 - Alice: Hello\n"), 0o644))

	res, err := ParseFile(path, utcOptions())
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "Alice", res.Messages[0].Sender)
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, f := range Formats() {
		got, err := ParseFormat(f.Name())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	got, err := ParseFormat("unknown")
	require.NoError(t, err)
	assert.True(t, got.IsUnknown())

	_, err = ParseFormat("palm-pilot")
	assert.Error(t, err)
}

func TestLoadIgnoreList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ignore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("xx:\n  android:\n    - \"[redacted]\"\n"), 0o644))

	list, err := LoadIgnoreList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"xx"}, list.Languages())

	opts := utcOptions()
	opts.Ignore = list
	opts.DefaultLanguage = "xx"
	res, err := Parse("01.02.2023, 10:00 - A: [redacted]\n01.02.2023, 10:01 - A: kept", opts)
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "kept", res.Messages[0].Body)
}
