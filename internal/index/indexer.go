package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	cerrors "github.com/Zuo-Peng/chatdash/internal/errors"
	"github.com/Zuo-Peng/chatdash/internal/logging"
	"github.com/Zuo-Peng/chatdash/internal/metadata"
	"github.com/Zuo-Peng/chatdash/internal/parse"
	"github.com/Zuo-Peng/chatdash/internal/scan"
)

var log = logging.NewLogger("index")

// keySpace namespaces transcript keys derived from file paths.
var keySpace = uuid.MustParse("6f0c51d4-8a4e-4c53-9d55-1f3b2a7c9e10")

// KeyFor returns the stable transcript key for an absolute path.
func KeyFor(path string) string {
	return uuid.NewSHA1(keySpace, []byte(path)).String()
}

type Stats struct {
	Scanned      int
	Updated      int
	Skipped      int
	Unrecognized int
	Pruned       int
	Errors       int
}

func (s Stats) String() string {
	return fmt.Sprintf("scanned=%d updated=%d skipped=%d unrecognized=%d pruned=%d errors=%d",
		s.Scanned, s.Updated, s.Skipped, s.Unrecognized, s.Pruned, s.Errors)
}

type Options struct {
	Parse   parse.Options
	Workers int
}

// IndexAll caches every transcript found under roots. Files are parsed
// concurrently; writes are serialised since sqlite has a single writer.
func IndexAll(ctx context.Context, db *DB, opts Options, roots ...string) (Stats, error) {
	var stats Stats

	files, err := scan.Scan(roots...)
	if err != nil {
		return stats, fmt.Errorf("scan: %w", err)
	}
	stats.Scanned = len(files)

	var todo []scan.FileInfo
	for _, fi := range files {
		needs, err := needsUpdate(db, KeyFor(fi.Path), fi.Mtime, fi.Size)
		if err != nil {
			stats.Errors++
			log.WithError(err).WithField("path", fi.Path).Warn("read file state")
			continue
		}
		if needs {
			needs, err = needsRetry(db, fi)
			if err != nil {
				stats.Errors++
				log.WithError(err).WithField("path", fi.Path).Warn("read file state")
				continue
			}
		}
		if !needs {
			stats.Skipped++
			continue
		}
		todo = append(todo, fi)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	for _, fi := range todo {
		fi := fi
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := parse.ParseFile(fi.Path, opts.Parse)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case cerrors.Is(err, cerrors.ErrCodeUnrecognizedFormat):
				stats.Unrecognized++
				log.WithField("path", fi.Path).Debug("not a transcript")
				if err := db.MarkUnrecognized(fi.Path, fi.Mtime, fi.Size); err != nil {
					log.WithError(err).WithField("path", fi.Path).Warn("mark unrecognized")
				}
				return nil
			case err != nil:
				stats.Errors++
				log.WithError(err).WithField("path", fi.Path).Warn("parse")
				return nil
			}
			if err := storeTranscript(db, fi, res); err != nil {
				stats.Errors++
				log.WithError(err).WithField("path", fi.Path).Warn("index")
				return nil
			}
			if err := db.ForgetUnrecognized(fi.Path); err != nil {
				log.WithError(err).WithField("path", fi.Path).Warn("clear unrecognized")
			}
			stats.Updated++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	pruned, err := pruneMissing(db)
	if err != nil {
		return stats, fmt.Errorf("prune: %w", err)
	}
	stats.Pruned = pruned

	log.WithField("stats", stats.String()).Info("index complete")
	return stats, nil
}

// IndexFile caches one transcript and returns its key.
func IndexFile(db *DB, path string, res *parse.Result) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	fi := scan.FileInfo{Path: abs, Mtime: info.ModTime().Unix(), Size: info.Size()}
	if err := storeTranscript(db, fi, res); err != nil {
		return "", err
	}
	return KeyFor(abs), nil
}

// Lookup returns the key of a cached transcript whose file is unchanged.
func Lookup(db *DB, path string) (string, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", false, err
	}
	key := KeyFor(abs)
	needs, err := needsUpdate(db, key, info.ModTime().Unix(), info.Size())
	if err != nil {
		return "", false, err
	}
	return key, !needs, nil
}

// needsRetry is false for a file already found unrecognized at this mtime
// and size.
func needsRetry(db *DB, fi scan.FileInfo) (bool, error) {
	known, err := db.IsUnrecognized(fi.Path, fi.Mtime, fi.Size)
	if err != nil {
		return false, err
	}
	return !known, nil
}

func needsUpdate(db *DB, key string, mtime, size int64) (bool, error) {
	st, err := db.GetFileState(key)
	if err != nil {
		return false, err
	}
	if st == nil {
		return true, nil // new transcript
	}
	return st.Mtime != mtime || st.Size != size, nil
}

func storeTranscript(db *DB, fi scan.FileInfo, res *parse.Result) error {
	key := KeyFor(fi.Path)
	meta := metadata.Build(res.Messages, filepath.Base(fi.Path))

	// delete old data first
	if err := db.DeleteTranscript(key); err != nil {
		return err
	}

	tx, err := db.Raw().Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var first, last int64
	if meta.HasDateRange() {
		first, last = meta.FirstTimestamp.Unix(), meta.LastTimestamp.Unix()
	}
	_, err = tx.Exec(
		`INSERT INTO transcripts (transcript_key, file_path, file_name, format, language,
		     message_count, sender_count, first_ts, last_ts, mtime, size, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key,
		fi.Path,
		meta.FileName,
		res.Format.Name(),
		res.Language,
		meta.Total,
		len(meta.Senders),
		first,
		last,
		fi.Mtime,
		fi.Size,
		time.Now().Unix(),
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO messages (transcript_key, seq, ts, time_text, sender, body, line_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range res.Messages {
		if _, err := stmt.Exec(key, i, m.Timestamp.Unix(), m.Time, m.Sender, m.Body, m.Line); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// pruneMissing drops transcripts whose source file no longer exists.
func pruneMissing(db *DB) (int, error) {
	rows, err := db.ListTranscripts()
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, t := range rows {
		if _, err := os.Stat(t.FilePath); !os.IsNotExist(err) {
			continue
		}
		if err := db.DeleteTranscript(t.Key); err != nil {
			return pruned, err
		}
		pruned++
	}

	paths, err := db.UnrecognizedPaths()
	if err != nil {
		return pruned, err
	}
	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			continue
		}
		if err := db.ForgetUnrecognized(p); err != nil {
			return pruned, err
		}
	}
	return pruned, nil
}
