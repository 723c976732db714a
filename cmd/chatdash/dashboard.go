package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatdash/internal/config"
	"github.com/Zuo-Peng/chatdash/internal/filter"
	"github.com/Zuo-Peng/chatdash/internal/index"
	"github.com/Zuo-Peng/chatdash/internal/logging"
	"github.com/Zuo-Peng/chatdash/internal/tui"
	"github.com/Zuo-Peng/chatdash/internal/worker"
)

func dashboardCmd() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "dashboard <file>",
		Short: "Open the interactive filter dashboard for a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			// log lines would tear the alt screen
			if cfg.LogLevel != "debug" && cfg.LogLevel != "trace" && logLevel == "" {
				logging.Configure("error", os.Stderr)
			}

			wopts, err := cfg.WorkerOptions()
			if err != nil {
				return err
			}
			h, err := worker.New(wopts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			h.Start(ctx)
			defer h.Stop()

			doc, err := loadDocument(ctx, cfg, h, args[0], !noCache)
			if err != nil {
				return err
			}
			return tui.Run(h, filter.DefaultCriteria(doc.Meta, cfg.Filter.MinPercentage))
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Always re-parse instead of using the index")

	return cmd
}

// loadDocument hands the transcript at path to the harness. An unchanged
// transcript is taken from the index; otherwise it is parsed in the
// background and written back to the index.
func loadDocument(ctx context.Context, cfg *config.Config, h *worker.Harness, path string, useCache bool) (*worker.Document, error) {
	log := logging.NewLogger("cli")

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)

	var db *index.DB
	if useCache {
		db, err = openDB(cfg)
		if err != nil {
			log.WithError(err).Warn("index unavailable; parsing directly")
			db = nil
		} else {
			defer db.Close()
		}
	}

	if db != nil {
		if doc := cachedDocument(cfg, db, path, name, raw); doc != nil {
			return h.Load(doc), nil
		}
	}

	doc, err := h.SubmitParse(string(raw), name).Wait(ctx)
	if err != nil {
		return nil, err
	}
	if db != nil {
		if _, err := index.IndexFile(db, path, doc.Result); err != nil {
			log.WithError(err).Warn("could not cache transcript")
		}
	}
	return doc, nil
}

func cachedDocument(cfg *config.Config, db *index.DB, path, name string, raw []byte) *worker.Document {
	log := logging.NewLogger("cli")

	key, fresh, err := index.Lookup(db, path)
	if err != nil || !fresh {
		return nil
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil
	}
	_, res, err := db.LoadResult(key, loc)
	if err != nil {
		log.WithError(err).Debug("cached transcript unreadable")
		return nil
	}
	log.WithFields(logrus.Fields{"key": key, "messages": len(res.Messages)}).Debug("using cached transcript")
	return worker.NewDocument(res, name, worker.ContentHash(string(raw)))
}
