package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatdash/internal/render"
)

func previewCmd() *cobra.Command {
	var hitSeq int
	var context int
	var query string
	var noColor bool

	cmd := &cobra.Command{
		Use:   "preview <transcriptKey>",
		Short: "Preview a cached transcript with context around a hit",
		Args:  cobra.ExactArgs(1),
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

			key, err := db.ResolveKey(args[0])
			if err != nil {
				return err
			}

			out, _, err := render.RenderTranscript(db, key, render.Options{
				HitSeq:   hitSeq,
				Context:  context,
				Query:    query,
				Location: loc,
				NoColor:  noColor,
			})
			if err != nil {
				return err
			}

			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&hitSeq, "hit", -1, "Message number to highlight")
	cmd.Flags().IntVar(&context, "context", 10, "Messages before/after hit to show (-1 = all)")
	cmd.Flags().StringVar(&query, "query", "", "Search query for keyword highlighting")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable ANSI colors")

	return cmd
}
