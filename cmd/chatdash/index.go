package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatdash/internal/config"
	"github.com/Zuo-Peng/chatdash/internal/index"
)

func indexOptions(cfg *config.Config) (index.Options, error) {
	popts, err := cfg.ParseOptions()
	if err != nil {
		return index.Options{}, err
	}
	return index.Options{Parse: popts, Workers: cfg.Worker.IndexWorkers}, nil
}

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index [root|file...]",
		Short: "Parse transcripts and cache them for search",
		Long: `Scan the given roots (default: transcript_root from the config) for .txt
transcripts, parse the ones that changed since the last run and cache them.
Transcripts whose files disappeared are removed from the cache.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			opts, err := indexOptions(cfg)
			if err != nil {
				return err
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			roots := args
			if len(roots) == 0 {
				roots = []string{cfg.TranscriptRoot}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			fmt.Fprintf(os.Stderr, "Scanning roots...\n")
			for _, r := range roots {
				fmt.Fprintf(os.Stderr, "  %s\n", r)
			}

			stats, err := index.IndexAll(ctx, db, opts, roots...)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Done. %s\n", stats)
			return nil
		},
	}
}
