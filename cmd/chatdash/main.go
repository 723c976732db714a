package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatdash/internal/config"
	cerrors "github.com/Zuo-Peng/chatdash/internal/errors"
	"github.com/Zuo-Peng/chatdash/internal/index"
	"github.com/Zuo-Peng/chatdash/internal/logging"
)

var version = "dev"

var logLevel string

func main() {
	rootCmd := &cobra.Command{
		Use:           "chatdash",
		Short:         "Chat transcript dashboard - parse, filter and search exported chat logs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides config)")

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(filterCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(openCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(doctorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps error codes to process exit statuses so scripts can tell
// bad input from an unreadable transcript.
func exitCode(err error) int {
	switch cerrors.GetCode(err) {
	case cerrors.ErrCodeInvalidInput, cerrors.ErrCodeConfigInvalid:
		return 2
	case cerrors.ErrCodeUnrecognizedFormat:
		return 3
	case cerrors.ErrCodeNotFound:
		return 4
	default:
		return 1
	}
}

// setup loads the config and points logging at stderr.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	lvl := cfg.LogLevel
	if logLevel != "" {
		lvl = logLevel
	}
	logging.Configure(lvl, os.Stderr)
	return cfg, nil
}

func openDB(cfg *config.Config) (*index.DB, error) {
	db, err := index.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

// parseDay reads a YYYY-MM-DD flag value as midnight in loc.
func parseDay(flag, value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, cerrors.InvalidInput(fmt.Sprintf("--%s %q: want YYYY-MM-DD", flag, value))
	}
	return t, nil
}

// endOfDay turns an --until day into an inclusive upper bound.
func endOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
