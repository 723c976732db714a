package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	cerrors "github.com/Zuo-Peng/chatdash/internal/errors"
	"github.com/Zuo-Peng/chatdash/internal/parse"
	"github.com/Zuo-Peng/chatdash/internal/worker"
)

type Config struct {
	DBPath          string `toml:"db_path"          validate:"required"`
	TranscriptRoot  string `toml:"transcript_root"`
	Timezone        string `toml:"timezone"         validate:"required"`
	DefaultLanguage string `toml:"default_language" validate:"required"`
	IgnoreList      string `toml:"ignore_list"`
	LogLevel        string `toml:"log_level"        validate:"oneof=trace debug info warn warning error"`

	Detection Detection `toml:"detection"`
	Filter    Filter    `toml:"filter"`
	Worker    Worker    `toml:"worker"`
}

type Detection struct {
	SampleLines     int     `toml:"sample_lines"      validate:"min=1,max=1000"`
	MinMatchRatio   float64 `toml:"min_match_ratio"   validate:"gt=0,lte=1"`
	MinMatchedLines int     `toml:"min_matched_lines" validate:"min=1"`
}

type Filter struct {
	MinPercentage float64 `toml:"min_percentage" validate:"min=0,max=100"`
}

type Worker struct {
	Background   bool          `toml:"background"`
	Timeout      time.Duration `toml:"timeout"       validate:"min=1s,max=10m"`
	CacheSize    int           `toml:"cache_size"    validate:"min=1,max=256"`
	IndexWorkers int           `toml:"index_workers" validate:"min=1,max=64"`
}

// Default returns the configuration used when no file is present.
func Default(home string) *Config {
	return &Config{
		DBPath:          filepath.Join(home, ".config", "chatdash", "chatdash.db"),
		TranscriptRoot:  filepath.Join(home, "Downloads"),
		Timezone:        "Local",
		DefaultLanguage: "en",
		LogLevel:        "info",
		Detection: Detection{
			SampleLines:     20,
			MinMatchRatio:   0.8,
			MinMatchedLines: 1,
		},
		Filter: Filter{MinPercentage: 0},
		Worker: Worker{
			Background:   true,
			Timeout:      30 * time.Second,
			CacheSize:    8,
			IndexWorkers: 4,
		},
	}
}

// Path returns the config file location; CHATDASH_CONFIG overrides it.
func Path(home string) string {
	if p := os.Getenv("CHATDASH_CONFIG"); p != "" {
		return expandHome(p, home)
	}
	return filepath.Join(home, ".config", "chatdash", "config.toml")
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(Path(home), home)
}

// LoadFrom reads cfgPath over the defaults. A missing file is not an error.
func LoadFrom(cfgPath, home string) (*Config, error) {
	cfg := Default(home)

	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	// expand ~ in paths
	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.TranscriptRoot = expandHome(cfg.TranscriptRoot, home)
	cfg.IgnoreList = expandHome(cfg.IgnoreList, home)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return cerrors.Wrap(err, cerrors.ErrCodeConfigInvalid, "invalid configuration")
	}
	if _, err := c.Location(); err != nil {
		return cerrors.ConfigInvalid(fmt.Sprintf("timezone %q: %v", c.Timezone, err))
	}
	return nil
}

// Location resolves Timezone; "Local" and "" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ParseOptions builds parser options from the detection settings, loading
// the ignore list override when one is configured.
func (c *Config) ParseOptions() (parse.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return parse.Options{}, cerrors.ConfigInvalid(fmt.Sprintf("timezone %q: %v", c.Timezone, err))
	}
	opts := parse.DefaultOptions()
	opts.Location = loc
	opts.SampleLines = c.Detection.SampleLines
	opts.MinMatchRatio = c.Detection.MinMatchRatio
	opts.MinMatchedLines = c.Detection.MinMatchedLines
	opts.DefaultLanguage = c.DefaultLanguage
	if c.IgnoreList != "" {
		list, err := parse.LoadIgnoreList(c.IgnoreList)
		if err != nil {
			return parse.Options{}, err
		}
		opts.Ignore = list
	}
	return opts, nil
}

func (c *Config) WorkerOptions() (worker.Options, error) {
	popts, err := c.ParseOptions()
	if err != nil {
		return worker.Options{}, err
	}
	return worker.Options{
		Background:   c.Worker.Background,
		Timeout:      c.Worker.Timeout,
		CacheSize:    c.Worker.CacheSize,
		ParseOptions: popts,
	}, nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
