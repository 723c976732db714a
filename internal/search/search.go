package search

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Zuo-Peng/chatdash/internal/index"
)

type Result struct {
	TranscriptKey string
	FileName      string
	Seq           int
	Timestamp     time.Time
	Sender        string
	Snippet       string
	Line          int
	Rank          float64
}

type Options struct {
	Query         string
	Sender        string    // "" = all
	TranscriptKey string    // "" = all
	Since         time.Time // zero = no filter
	Until         time.Time // zero = no filter
	Limit         int
	PerTranscript bool // keep only the best hit per transcript
	Location      *time.Location
}

// containsCJK returns true if the string contains any ideograph or kana.
// unicode61 does not segment these scripts, so FTS would only match whole runs.
func containsCJK(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
			return true
		}
	}
	return false
}

// ftsQuery quotes each term so punctuation in chat text is not read as
// FTS5 syntax. Terms are ANDed.
func ftsQuery(q string) string {
	fields := strings.Fields(q)
	for i, f := range fields {
		fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(fields, " ")
}

// makeSnippet extracts a snippet around the first occurrence of query in text.
func makeSnippet(text, query string, contextChars int) string {
	lower := strings.ToLower(text)
	qLower := strings.ToLower(query)
	idx := strings.Index(lower, qLower)
	runes := []rune(text)
	if idx < 0 || len(lower) != len(text) {
		// no match, or case folding moved byte offsets: return head
		if len(runes) > contextChars*2 {
			return string(runes[:contextChars*2]) + "..."
		}
		return text
	}
	qLen := len([]rune(query))
	runePos := len([]rune(text[:idx]))
	start := runePos - contextChars
	if start < 0 {
		start = 0
	}
	end := runePos + qLen + contextChars
	if end > len(runes) {
		end = len(runes)
	}
	prefix, suffix := "", ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	snippet := string(runes[start:runePos]) +
		">>>" + string(runes[runePos:runePos+qLen]) + "<<<" +
		string(runes[runePos+qLen:end])
	return prefix + snippet + suffix
}

func Search(db *index.DB, opts Options) ([]Result, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, nil
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	origLimit := opts.Limit
	if opts.PerTranscript {
		// fetch more before dedup so we still have enough after
		opts.Limit = origLimit * 3
	}

	var results []Result
	var err error
	if containsCJK(opts.Query) {
		results, err = searchLike(db, opts)
	} else {
		results, err = searchFTS(db, opts)
	}
	if err != nil {
		return nil, err
	}
	if !opts.PerTranscript {
		return results, nil
	}

	seen := make(map[string]bool)
	var deduped []Result
	for _, r := range results {
		if seen[r.TranscriptKey] {
			continue
		}
		seen[r.TranscriptKey] = true
		deduped = append(deduped, r)
		if len(deduped) >= origLimit {
			break
		}
	}
	return deduped, nil
}

func filters(opts Options) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}

	if opts.Sender != "" {
		conditions = append(conditions, "m.sender = ?")
		args = append(args, opts.Sender)
	}
	if opts.TranscriptKey != "" {
		conditions = append(conditions, "m.transcript_key = ?")
		args = append(args, opts.TranscriptKey)
	}
	if !opts.Since.IsZero() {
		conditions = append(conditions, "m.ts >= ?")
		args = append(args, opts.Since.Unix())
	}
	if !opts.Until.IsZero() {
		conditions = append(conditions, "m.ts <= ?")
		args = append(args, opts.Until.Unix())
	}
	return conditions, args
}

func searchFTS(db *index.DB, opts Options) ([]Result, error) {
	conditions := []string{"messages_fts MATCH ?"}
	args := []interface{}{ftsQuery(opts.Query)}
	more, moreArgs := filters(opts)
	conditions = append(conditions, more...)
	args = append(args, moreArgs...)

	query := fmt.Sprintf(`
		SELECT
			m.transcript_key,
			t.file_name,
			m.seq,
			m.ts,
			m.sender,
			snippet(messages_fts, 0, '>>>', '<<<', '...', 24) AS snip,
			m.line_number,
			bm25(messages_fts) AS rank
		FROM messages_fts
		JOIN messages m ON messages_fts.rowid = m.rowid
		JOIN transcripts t ON m.transcript_key = t.transcript_key
		WHERE %s
		ORDER BY rank
		LIMIT ?
	`, strings.Join(conditions, " AND "))
	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	return scanResults(rows, opts.Location)
}

func searchLike(db *index.DB, opts Options) ([]Result, error) {
	conditions := []string{"m.body LIKE ?"}
	args := []interface{}{"%" + opts.Query + "%"}
	more, moreArgs := filters(opts)
	conditions = append(conditions, more...)
	args = append(args, moreArgs...)

	query := fmt.Sprintf(`
		SELECT
			m.transcript_key,
			t.file_name,
			m.seq,
			m.ts,
			m.sender,
			m.body,
			m.line_number,
			0.0
		FROM messages m
		JOIN transcripts t ON m.transcript_key = t.transcript_key
		WHERE %s
		ORDER BY m.ts DESC
		LIMIT ?
	`, strings.Join(conditions, " AND "))
	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	results, err := scanResults(rows, opts.Location)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Snippet = makeSnippet(results[i].Snippet, opts.Query, 30)
	}
	return results, nil
}

func scanResults(rows *sql.Rows, loc *time.Location) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var r Result
		var ts int64
		if err := rows.Scan(
			&r.TranscriptKey, &r.FileName, &r.Seq, &ts,
			&r.Sender, &r.Snippet, &r.Line, &r.Rank,
		); err != nil {
			return nil, err
		}
		r.Timestamp = time.Unix(ts, 0).In(loc)
		results = append(results, r)
	}
	return results, rows.Err()
}
