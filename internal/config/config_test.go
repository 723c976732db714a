package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/Zuo-Peng/chatdash/internal/errors"
)

func writeConfig(t *testing.T, body string) (string, string) {
	t.Helper()
	home := t.TempDir()
	path := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path, home
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	cfg, err := LoadFrom(filepath.Join(home, "nope.toml"), home)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".config", "chatdash", "chatdash.db"), cfg.DBPath)
	assert.Equal(t, 20, cfg.Detection.SampleLines)
	assert.Equal(t, 0.8, cfg.Detection.MinMatchRatio)
	assert.Equal(t, 30*time.Second, cfg.Worker.Timeout)
	assert.True(t, cfg.Worker.Background)
}

func TestLoadFromOverrides(t *testing.T) {
	path, home := writeConfig(t, `
db_path = "~/data/chat.db"
timezone = "Europe/Berlin"
log_level = "debug"

[detection]
sample_lines = 50
min_match_ratio = 0.9

[filter]
min_percentage = 0.5

[worker]
background = false
timeout = "5s"
`)
	cfg, err := LoadFrom(path, home)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "data", "chat.db"), cfg.DBPath)
	assert.Equal(t, 50, cfg.Detection.SampleLines)
	assert.Equal(t, 0.5, cfg.Filter.MinPercentage)
	assert.False(t, cfg.Worker.Background)
	assert.Equal(t, 5*time.Second, cfg.Worker.Timeout)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadFromRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"percentage above 100", "[filter]\nmin_percentage = 150\n"},
		{"zero ratio", "[detection]\nmin_match_ratio = 0.0\n"},
		{"unknown level", "log_level = \"loud\"\n"},
		{"unknown timezone", "timezone = \"Mars/Olympus\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, home := writeConfig(t, tt.body)
			_, err := LoadFrom(path, home)
			require.Error(t, err)
			assert.True(t, cerrors.Is(err, cerrors.ErrCodeConfigInvalid))
		})
	}
}

func TestPathHonoursEnv(t *testing.T) {
	t.Setenv("CHATDASH_CONFIG", "~/custom.toml")
	assert.Equal(t, filepath.Join("/home/u", "custom.toml"), Path("/home/u"))
}

func TestParseOptions(t *testing.T) {
	home := t.TempDir()
	ignore := filepath.Join(home, "ignore.yaml")
	require.NoError(t, os.WriteFile(ignore, []byte("xx:\n  ios:\n    - \"[gone]\"\n"), 0o644))
	path, _ := writeConfig(t, `
timezone = "UTC"
default_language = "xx"
ignore_list = "~/ignore.yaml"

[detection]
sample_lines = 50
`)

	cfg, err := LoadFrom(path, home)
	require.NoError(t, err)
	opts, err := cfg.ParseOptions()
	require.NoError(t, err)

	assert.Equal(t, time.UTC, opts.Location)
	assert.Equal(t, 50, opts.SampleLines)
	assert.Equal(t, "xx", opts.DefaultLanguage)
	assert.Equal(t, []string{"xx"}, opts.Ignore.Languages())

	wopts, err := cfg.WorkerOptions()
	require.NoError(t, err)
	assert.Equal(t, 8, wopts.CacheSize)
	assert.Equal(t, 50, wopts.ParseOptions.SampleLines)
}
