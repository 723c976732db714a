package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/chatdash/internal/filter"
	"github.com/Zuo-Peng/chatdash/internal/metadata"
	"github.com/Zuo-Peng/chatdash/internal/render"
	"github.com/Zuo-Peng/chatdash/internal/worker"
)

type filterFlags struct {
	since, until string
	weekdays     string
	exclude      []string
	include      []string
	minPct       float64
	all          bool
}

func filterCmd() *cobra.Command {
	var f filterFlags

	cmd := &cobra.Command{
		Use:   "filter <file>",
		Short: "Print the messages that pass the filter criteria",
		Long: `Filter a transcript by date range, weekday and sender activity.

Output is TSV (timestamp, time, sender, body) when stdout is not a terminal,
so the result can be piped into other tools. On a terminal the messages are
rendered; --all also shows the inactive ones, dimmed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			wopts, err := cfg.WorkerOptions()
			if err != nil {
				return err
			}
			// one-shot run; nothing to keep responsive
			wopts.Background = false
			h, err := worker.New(wopts)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := h.ParseNow(string(raw), filepath.Base(args[0]))
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("min-pct") {
				f.minPct = cfg.Filter.MinPercentage
			}
			c, err := f.criteria(doc.Meta, wopts.ParseOptions.Location)
			if err != nil {
				return err
			}
			res, err := h.FilterNow(c)
			if err != nil {
				return err
			}

			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return render.TSV(os.Stdout, res.Result)
			}
			width, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil {
				width = 0
			}
			fmt.Print(render.Messages(res.Result, f.all, render.Options{Width: width}))
			fmt.Fprintln(os.Stderr, render.Summary(doc.Meta, &res.Result))
			return nil
		},
	}

	cmd.Flags().StringVar(&f.since, "since", "", "First day to keep (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.until, "until", "", "Last day to keep (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.weekdays, "weekdays", "", "Weekdays to keep, e.g. mon,tue,fri (default all)")
	cmd.Flags().StringArrayVar(&f.exclude, "exclude", nil, "Always drop this sender (repeatable)")
	cmd.Flags().StringArrayVar(&f.include, "include", nil, "Always keep this sender (repeatable)")
	cmd.Flags().Float64Var(&f.minPct, "min-pct", 0, "Drop senders below this share of messages, in percent")
	cmd.Flags().BoolVar(&f.all, "all", false, "Show inactive messages too (terminal output only)")

	return cmd
}

// criteria applies the flags on top of the transcript defaults.
func (f filterFlags) criteria(meta metadata.Metadata, loc *time.Location) (filter.Criteria, error) {
	c := filter.DefaultCriteria(meta, f.minPct)

	start, err := parseDay("since", f.since, loc)
	if err != nil {
		return c, err
	}
	end, err := parseDay("until", f.until, loc)
	if err != nil {
		return c, err
	}
	// an explicit bound leaves the other side open
	if !start.IsZero() || !end.IsZero() {
		c = c.WithRange(start, endOfDay(end))
	}

	if f.weekdays != "" {
		set, err := filter.ParseWeekdays(f.weekdays)
		if err != nil {
			return c, err
		}
		c = c.WithWeekdays(set)
	}
	for _, s := range f.exclude {
		c = c.WithSenderStatus(s, filter.Excluded)
	}
	for _, s := range f.include {
		c = c.WithSenderStatus(s, filter.Included)
	}
	return c, c.Validate()
}
