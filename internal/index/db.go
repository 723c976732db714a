package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	cerrors "github.com/Zuo-Peng/chatdash/internal/errors"
	"github.com/Zuo-Peng/chatdash/internal/parse"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA cache_size = -64000;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS transcripts (
    transcript_key TEXT PRIMARY KEY,
    file_path      TEXT NOT NULL,
    file_name      TEXT NOT NULL DEFAULT '',
    format         TEXT NOT NULL DEFAULT 'unknown',
    language       TEXT NOT NULL DEFAULT '',
    message_count  INTEGER NOT NULL DEFAULT 0,
    sender_count   INTEGER NOT NULL DEFAULT 0,
    first_ts       INTEGER NOT NULL DEFAULT 0,
    last_ts        INTEGER NOT NULL DEFAULT 0,
    mtime          INTEGER NOT NULL DEFAULT 0,
    size           INTEGER NOT NULL DEFAULT 0,
    indexed_at     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
    transcript_key TEXT NOT NULL,
    seq            INTEGER NOT NULL,
    ts             INTEGER NOT NULL,
    time_text      TEXT NOT NULL DEFAULT '',
    sender         TEXT NOT NULL,
    body           TEXT NOT NULL,
    line_number    INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (transcript_key, seq)
);

-- files that parsed as no known format, skipped until they change
CREATE TABLE IF NOT EXISTS unrecognized (
    file_path TEXT PRIMARY KEY,
    mtime     INTEGER NOT NULL,
    size      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS messages_sender ON messages(transcript_key, sender);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    body,
    content=messages,
    content_rowid=rowid,
    tokenize='unicode61'
);

-- triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
    INSERT INTO messages_fts(rowid, body) VALUES (new.rowid, new.body);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
    INSERT INTO messages_fts(messages_fts, rowid, body) VALUES('delete', old.rowid, old.body);
END;

CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
    INSERT INTO messages_fts(messages_fts, rowid, body) VALUES('delete', old.rowid, old.body);
    INSERT INTO messages_fts(rowid, body) VALUES (new.rowid, new.body);
END;
`

type DB struct {
	db   *sql.DB
	path string
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	// schema version tracking for forced re-index
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("init meta: %w", err)
	}
	d := &DB{db: db, path: dbPath}
	d.migrateSchemaVersion()

	return d, nil
}

// schemaVersion should be bumped whenever parsing logic changes in a way
// that alters stored messages, to force a full re-index.
const schemaVersion = "1"

func (d *DB) migrateSchemaVersion() {
	var ver string
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver)
	if err != nil || ver != schemaVersion {
		// force re-index by resetting all transcript mtime/size to 0
		d.db.Exec("UPDATE transcripts SET mtime = 0, size = 0")
		d.db.Exec("DELETE FROM unrecognized")
		d.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion)
	}
}

func (d *DB) SchemaVersion() string {
	var ver string
	if err := d.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver); err != nil {
		return ""
	}
	return ver
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

func (d *DB) Path() string {
	return d.path
}

type FileState struct {
	Mtime int64
	Size  int64
}

func (d *DB) GetFileState(key string) (*FileState, error) {
	var st FileState
	err := d.db.QueryRow(
		"SELECT mtime, size FROM transcripts WHERE transcript_key = ?",
		key,
	).Scan(&st.Mtime, &st.Size)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// MarkUnrecognized remembers that path, at this mtime and size, is not a
// transcript.
func (d *DB) MarkUnrecognized(path string, mtime, size int64) error {
	_, err := d.db.Exec(
		"INSERT OR REPLACE INTO unrecognized (file_path, mtime, size) VALUES (?, ?, ?)",
		path, mtime, size,
	)
	return err
}

// IsUnrecognized reports whether path was marked at exactly this mtime and size.
func (d *DB) IsUnrecognized(path string, mtime, size int64) (bool, error) {
	var n int
	err := d.db.QueryRow(
		"SELECT COUNT(*) FROM unrecognized WHERE file_path = ? AND mtime = ? AND size = ?",
		path, mtime, size,
	).Scan(&n)
	return n > 0, err
}

func (d *DB) UnrecognizedPaths() ([]string, error) {
	rows, err := d.db.Query("SELECT file_path FROM unrecognized ORDER BY file_path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) ForgetUnrecognized(path string) error {
	_, err := d.db.Exec("DELETE FROM unrecognized WHERE file_path = ?", path)
	return err
}

func (d *DB) DeleteTranscript(key string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages WHERE transcript_key = ?", key); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM transcripts WHERE transcript_key = ?", key); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) TranscriptCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM transcripts").Scan(&n)
	return n, err
}

func (d *DB) MessageCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&n)
	return n, err
}

type TranscriptRow struct {
	Key          string
	FilePath     string
	FileName     string
	Format       string
	Language     string
	MessageCount int
	SenderCount  int
	FirstTs      int64
	LastTs       int64
	IndexedAt    int64
}

const transcriptColumns = "transcript_key, file_path, file_name, format, language, message_count, sender_count, first_ts, last_ts, indexed_at"

func scanTranscript(row interface{ Scan(...any) error }) (*TranscriptRow, error) {
	var t TranscriptRow
	err := row.Scan(&t.Key, &t.FilePath, &t.FileName, &t.Format, &t.Language,
		&t.MessageCount, &t.SenderCount, &t.FirstTs, &t.LastTs, &t.IndexedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *DB) GetTranscript(key string) (*TranscriptRow, error) {
	t, err := scanTranscript(d.db.QueryRow(
		"SELECT "+transcriptColumns+" FROM transcripts WHERE transcript_key = ?", key,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// ListTranscripts returns every cached transcript, most recent activity first.
func (d *DB) ListTranscripts() ([]TranscriptRow, error) {
	rows, err := d.db.Query("SELECT " + transcriptColumns + " FROM transcripts ORDER BY last_ts DESC, file_path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TranscriptRow
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ResolveKey expands a unique key prefix to the full transcript key.
func (d *DB) ResolveKey(prefix string) (string, error) {
	if prefix == "" {
		return "", cerrors.InvalidInput("empty transcript key")
	}
	rows, err := d.db.Query(
		"SELECT transcript_key FROM transcripts WHERE substr(transcript_key, 1, length(?)) = ? LIMIT 2",
		prefix, prefix,
	)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return "", err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(keys) {
	case 0:
		return "", cerrors.NotFound("transcript " + prefix)
	case 1:
		return keys[0], nil
	default:
		return "", cerrors.InvalidInput(fmt.Sprintf("transcript key %q is ambiguous", prefix))
	}
}

type MessageRow struct {
	Seq int
	parse.Message
}

const messageColumns = "seq, ts, time_text, sender, body, line_number"

func scanMessages(rows *sql.Rows, loc *time.Location) ([]MessageRow, error) {
	var out []MessageRow
	for rows.Next() {
		var m MessageRow
		var ts int64
		if err := rows.Scan(&m.Seq, &ts, &m.Time, &m.Sender, &m.Body, &m.Line); err != nil {
			return nil, err
		}
		m.Timestamp = time.Unix(ts, 0).In(loc)
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMessages returns all cached messages of a transcript in order, with
// timestamps in loc.
func (d *DB) GetMessages(key string, loc *time.Location) ([]MessageRow, error) {
	rows, err := d.db.Query(
		"SELECT "+messageColumns+" FROM messages WHERE transcript_key = ? ORDER BY seq",
		key,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows, loc)
}

// GetMessagesWindow returns a window of messages around a hit message.
// It only loads the necessary rows from the database instead of all messages.
// startPos is the number of messages before the returned window.
// totalCount is the total number of messages in the transcript.
func (d *DB) GetMessagesWindow(key string, hitSeq, context int, loc *time.Location) (msgs []MessageRow, hitIdx int, startPos int, totalCount int, err error) {
	err = d.db.QueryRow(
		"SELECT COUNT(*) FROM messages WHERE transcript_key = ?", key,
	).Scan(&totalCount)
	if err != nil {
		return nil, -1, 0, 0, err
	}

	// seq is dense and 0-based, so it is the position
	startPos = 0
	limit := totalCount
	if hitSeq >= 0 && hitSeq < totalCount {
		startPos = hitSeq - context
		if startPos < 0 {
			startPos = 0
		}
		endPos := hitSeq + context + 1
		if endPos > totalCount {
			endPos = totalCount
		}
		limit = endPos - startPos
	}

	rows, err := d.db.Query(
		"SELECT "+messageColumns+" FROM messages WHERE transcript_key = ? ORDER BY seq LIMIT ? OFFSET ?",
		key, limit, startPos,
	)
	if err != nil {
		return nil, -1, 0, 0, err
	}
	defer rows.Close()

	msgs, err = scanMessages(rows, loc)
	if err != nil {
		return nil, -1, 0, 0, err
	}
	hitIdx = -1
	for i, m := range msgs {
		if m.Seq == hitSeq {
			hitIdx = i
		}
	}
	return msgs, hitIdx, startPos, totalCount, nil
}

// LoadResult rebuilds a parse result from the cache. Stats only carry the
// message count.
func (d *DB) LoadResult(key string, loc *time.Location) (*TranscriptRow, *parse.Result, error) {
	t, err := d.GetTranscript(key)
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, cerrors.NotFound("transcript " + key)
	}
	rows, err := d.GetMessages(key, loc)
	if err != nil {
		return nil, nil, err
	}
	format, err := parse.ParseFormat(t.Format)
	if err != nil {
		return nil, nil, err
	}

	res := &parse.Result{
		Messages: make([]parse.Message, len(rows)),
		Format:   format,
		Language: t.Language,
	}
	for i, r := range rows {
		res.Messages[i] = r.Message
	}
	res.Stats.Messages = len(rows)
	return t, res, nil
}
