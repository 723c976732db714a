package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached transcripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			rows, err := db.ListTranscripts()
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(os.Stderr, "No transcripts cached (run 'chatdash index' first).")
				return nil
			}

			for _, t := range rows {
				span := "-"
				if t.MessageCount > 0 {
					span = time.Unix(t.FirstTs, 0).In(loc).Format("2006-01-02") + ".." +
						time.Unix(t.LastTs, 0).In(loc).Format("2006-01-02")
				}
				// key first so it can be cut for preview/open
				fmt.Printf("%s\t%s\t%s\t%s msgs\t%d senders\t%s\t%s\n",
					t.Key,
					t.FileName,
					t.Format,
					humanize.Comma(int64(t.MessageCount)),
					t.SenderCount,
					span,
					humanize.Time(time.Unix(t.IndexedAt, 0)),
				)
			}
			return nil
		},
	}
}
