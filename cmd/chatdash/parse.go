package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatdash/internal/config"
	"github.com/Zuo-Peng/chatdash/internal/filter"
	"github.com/Zuo-Peng/chatdash/internal/metadata"
	"github.com/Zuo-Peng/chatdash/internal/parse"
	"github.com/Zuo-Peng/chatdash/internal/render"
)

// parseTranscript reads and parses path with the configured options.
func parseTranscript(cfg *config.Config, path string) (*parse.Result, metadata.Metadata, error) {
	opts, err := cfg.ParseOptions()
	if err != nil {
		return nil, metadata.Metadata{}, err
	}
	res, err := parse.ParseFile(path, opts)
	if err != nil {
		return nil, metadata.Metadata{}, err
	}
	return res, metadata.Build(res.Messages, filepath.Base(path)), nil
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Detect a transcript's format and report what was parsed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			res, meta, err := parseTranscript(cfg, args[0])
			if err != nil {
				return err
			}

			st := res.Stats
			fmt.Println(render.Summary(meta, nil))
			fmt.Printf("  Format:        %s\n", res.Format)
			fmt.Printf("  Language:      %s\n", res.Language)
			fmt.Printf("  Lines:         %s\n", humanize.Comma(int64(st.Lines)))
			fmt.Printf("  Messages:      %s\n", humanize.Comma(int64(st.Messages)))
			fmt.Printf("  Continuations: %d\n", st.Continuations)
			fmt.Printf("  System lines:  %d\n", st.SystemLines)
			fmt.Printf("  Ignored:       %d\n", st.Ignored)
			fmt.Printf("  Malformed:     %d\n", st.Malformed)
			if st.Orphans > 0 {
				fmt.Printf("  Orphans:       %d\n", st.Orphans)
			}
			for _, p := range res.Problems {
				fmt.Printf("  ! %v\n", p)
			}
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	var minPct float64

	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Show per-sender message counts and shares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("min-pct") {
				minPct = cfg.Filter.MinPercentage
			}
			_, meta, err := parseTranscript(cfg, args[0])
			if err != nil {
				return err
			}

			c := filter.DefaultCriteria(meta, minPct)
			if err := c.Validate(); err != nil {
				return err
			}
			fmt.Println(render.Summary(meta, nil))
			fmt.Println(render.SenderTable(meta, c, nil, 32))
			return nil
		},
	}

	cmd.Flags().Float64Var(&minPct, "min-pct", 0, "Activity threshold in percent")

	return cmd
}
