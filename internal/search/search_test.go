package search

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/chatdash/internal/index"
	"github.com/Zuo-Peng/chatdash/internal/parse"
)

func seed(t *testing.T) (*index.DB, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := index.OpenDB(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	raw := "01.02.2023, 14:05 - Alice: Dinner at eight?\n" +
		"01.02.2023, 14:06 - Bob: Dinner sounds good\n" +
		"05.02.2023, 10:00 - Alice: 明天见\n" +
		"06.02.2023, 10:00 - Bob: (50% off) sale!"
	path := filepath.Join(dir, "chat.txt")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	opts := parse.DefaultOptions()
	opts.Location = time.UTC
	res, err := parse.Parse(raw, opts)
	require.NoError(t, err)
	key, err := index.IndexFile(db, path, res)
	require.NoError(t, err)
	return db, key
}

func TestSearchFTS(t *testing.T) {
	db, key := seed(t)

	results, err := Search(db, Options{Query: "dinner", Location: time.UTC})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, key, r.TranscriptKey)
		assert.Equal(t, "chat.txt", r.FileName)
		assert.Contains(t, r.Snippet, ">>>")
	}

	results, err = Search(db, Options{Query: "dinner", Sender: "Bob", Location: time.UTC})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Seq)
	assert.Equal(t, 2, results[0].Line)

	results, err = Search(db, Options{Query: "dinner", PerTranscript: true})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchPunctuationIsLiteral(t *testing.T) {
	db, _ := seed(t)
	results, err := Search(db, Options{Query: "(50% off)"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Bob", results[0].Sender)
}

func TestSearchCJKUsesLike(t *testing.T) {
	db, _ := seed(t)
	results, err := Search(db, Options{Query: "明天", Location: time.UTC})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ">>>明天<<<见", results[0].Snippet)
	assert.Equal(t, time.Date(2023, 2, 5, 10, 0, 0, 0, time.UTC), results[0].Timestamp)
}

func TestSearchSince(t *testing.T) {
	db, _ := seed(t)
	results, err := Search(db, Options{Query: "dinner", Since: time.Date(2023, 2, 2, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMakeSnippet(t *testing.T) {
	assert.Equal(t, "...bc >>>def<<< gh...", makeSnippet("xabc def ghix", "DEF", 3))
	assert.Equal(t, "a >>>b<<< c", makeSnippet("a b c", "b", 5))
	assert.Equal(t, "ab...", makeSnippet("abcdef", "zz", 1))
}
