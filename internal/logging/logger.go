// Package logging provides per-component logrus loggers.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	level  = logrus.InfoLevel
	output io.Writer = os.Stderr
)

// Configure sets the level and sink for all component loggers, including
// ones created earlier. CHATDASH_LOG_LEVEL takes precedence over levelStr.
func Configure(levelStr string, w io.Writer) {
	if env := os.Getenv("CHATDASH_LOG_LEVEL"); env != "" {
		levelStr = env
	}
	lvl, err := logrus.ParseLevel(levelStr)
	if err != nil {
		lvl = logrus.InfoLevel
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()

	level = lvl
	if w != nil {
		output = w
	}
	for _, entry := range loggers {
		entry.Logger.SetLevel(level)
		entry.Logger.SetOutput(output)
	}
}

// NewLogger returns the logger for a component, creating it on first use.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(output)
	logger.SetFormatter(&TextFormatter{})

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// TextFormatter renders `[LEVEL] [component] message k=v`.
type TextFormatter struct {
	DisableComponent bool
}

func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder

	levelStr := entry.Level.String()
	if levelStr == "warning" {
		levelStr = "warn"
	}
	b.WriteString(fmt.Sprintf("[%s]", strings.ToUpper(levelStr)))

	if component, ok := entry.Data["component"]; ok && !f.DisableComponent {
		b.WriteString(fmt.Sprintf(" [%v]", component))
	}

	b.WriteString(" ")
	b.WriteString(entry.Message)

	// stable field order keeps log lines diffable
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != "component" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(" %s=%v", k, entry.Data[k]))
	}

	b.WriteString("\n")
	return []byte(b.String()), nil
}
