package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatdash/internal/config"
	"github.com/Zuo-Peng/chatdash/internal/index"
	"github.com/Zuo-Peng/chatdash/internal/scan"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify config, transcript root, DB and FTS5",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			fmt.Println("=== Config ===")
			if home, err := os.UserHomeDir(); err == nil {
				path := config.Path(home)
				if _, err := os.Stat(path); err != nil {
					fmt.Printf("  File:     %s (not found, using defaults)\n", path)
				} else {
					fmt.Printf("  File:     %s\n", path)
				}
			}
			fmt.Printf("  Timezone: %s\n", cfg.Timezone)
			fmt.Printf("  Language: %s\n", cfg.DefaultLanguage)
			if cfg.IgnoreList != "" {
				checkPath("Ignore list", cfg.IgnoreList, false)
			}
			fmt.Printf("  Worker:   background=%v timeout=%s cache=%d\n",
				cfg.Worker.Background, cfg.Worker.Timeout, cfg.Worker.CacheSize)

			fmt.Println("\n=== Transcripts ===")
			checkPath("Root", cfg.TranscriptRoot, true)
			files, err := scan.Scan(cfg.TranscriptRoot)
			if err != nil {
				fmt.Printf("  scan error: %v\n", err)
			} else {
				var total int64
				for _, f := range files {
					total += f.Size
				}
				fmt.Printf("  Files: %d (%s)\n", len(files), humanize.Bytes(uint64(total)))
			}

			fmt.Println("\n=== Database ===")
			fmt.Printf("  Path: %s\n", cfg.DBPath)
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (run 'chatdash index' first)")
				return nil
			}

			db, err := index.OpenDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			transcripts, err := db.TranscriptCount()
			if err != nil {
				return fmt.Errorf("count transcripts: %w", err)
			}
			messages, err := db.MessageCount()
			if err != nil {
				return fmt.Errorf("count messages: %w", err)
			}

			fmt.Printf("  Schema:      v%s\n", db.SchemaVersion())
			fmt.Printf("  Transcripts: %s\n", humanize.Comma(int64(transcripts)))
			fmt.Printf("  Messages:    %s\n", humanize.Comma(int64(messages)))
			if info, err := os.Stat(cfg.DBPath); err == nil {
				fmt.Printf("  Size:        %s\n", humanize.Bytes(uint64(info.Size())))
			}

			fmt.Println("\n=== FTS5 ===")
			var ftsCount int
			err = db.Raw().QueryRow("SELECT COUNT(*) FROM messages_fts").Scan(&ftsCount)
			if err != nil {
				fmt.Printf("  FTS5 error: %v\n", err)
			} else {
				fmt.Printf("  FTS5 entries: %s\n", humanize.Comma(int64(ftsCount)))
				if ftsCount == messages {
					fmt.Println("  Status: OK (synced)")
				} else {
					fmt.Printf("  Status: MISMATCH (messages=%d, fts=%d)\n", messages, ftsCount)
				}
			}

			return nil
		},
	}
}

func checkPath(name, path string, wantDir bool) {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	case wantDir && !info.IsDir():
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	default:
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}
