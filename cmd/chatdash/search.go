package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/chatdash/internal/index"
	"github.com/Zuo-Peng/chatdash/internal/logging"
	"github.com/Zuo-Peng/chatdash/internal/search"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorBlue    = "\033[1;34m"
	sColorDim     = "\033[2m"
)

func colorizeSnippet(snippet string, color bool) string {
	if !color {
		snippet = strings.ReplaceAll(snippet, ">>>", "")
		return strings.ReplaceAll(snippet, "<<<", "")
	}
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	return strings.ReplaceAll(snippet, "<<<", sColorReset)
}

func searchCmd() *cobra.Command {
	var sender, since, until string
	var limit int
	var perTranscript, noRefresh bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across cached transcripts",
		Long: `Search cached messages. Output is TSV for fzf integration:
  transcriptKey, seq, timestamp, file, sender, snippet

Example:
  chatdash search "$*" | fzf \
    --ansi \
    --delimiter='\t' --with-nth=3.. \
    --preview 'chatdash preview {1} --hit {2} --context 5 --query {q}' \
    --preview-window=right:60%:wrap \
    --bind 'enter:execute(chatdash open {1} --hit {2})'`,
		Args: cobra.ExactArgs(1),
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

			if !noRefresh {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				opts, err := indexOptions(cfg)
				if err == nil {
					_, err = index.IndexAll(ctx, db, opts, cfg.TranscriptRoot)
				}
				stop()
				if err != nil {
					logging.NewLogger("cli").WithError(err).Warn("index refresh failed; searching cached data")
				}
			}

			opts := search.Options{
				Query:         args[0],
				Sender:        sender,
				Limit:         limit,
				PerTranscript: perTranscript,
				Location:      loc,
			}
			if opts.Since, err = parseDay("since", since, loc); err != nil {
				return err
			}
			u, err := parseDay("until", until, loc)
			if err != nil {
				return err
			}
			opts.Until = endOfDay(u)

			results, err := search.Search(db, opts)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "No results found.")
				return nil
			}

			color := term.IsTerminal(int(os.Stdout.Fd()))
			flat := strings.NewReplacer("\t", " ", "\n", " ")
			for _, r := range results {
				snippet := colorizeSnippet(flat.Replace(r.Snippet), color)
				ts := r.Timestamp.Format("2006-01-02 15:04")
				who := flat.Replace(r.Sender)
				if color {
					ts = sColorDim + ts + sColorReset
					who = sColorBlue + who + sColorReset
				}
				// first two fields stay plain for fzf {1} {2}
				fmt.Printf("%s\t%d\t%s\t%s\t%s\t%s\n",
					r.TranscriptKey,
					r.Seq,
					ts,
					r.FileName,
					who,
					snippet,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sender, "sender", "", "Only messages from this sender")
	cmd.Flags().StringVar(&since, "since", "", "Only messages on or after this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "Only messages on or before this day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Max results")
	cmd.Flags().BoolVar(&perTranscript, "per-transcript", false, "Keep only the best hit per transcript")
	cmd.Flags().BoolVar(&noRefresh, "no-refresh", false, "Skip re-indexing transcript_root before searching")

	return cmd
}
