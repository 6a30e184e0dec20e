package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var base = logrus.New()

func init() {
	base.SetOutput(os.Stderr)
	base.SetLevel(logrus.WarnLevel)
}

// LevelForVerbosity maps the -v count onto a logrus level.
func LevelForVerbosity(verbosity int) logrus.Level {
	switch {
	case verbosity >= 2:
		return logrus.DebugLevel
	case verbosity == 1:
		return logrus.InfoLevel
	default:
		return logrus.WarnLevel
	}
}

// Setup configures the shared logger. The console only shows messages at
// the verbosity level; an optional log file receives everything from debug
// up as JSON.
func Setup(verbosity int, logFile string, color bool) error {
	console := LevelForVerbosity(verbosity)

	base.SetFormatter(&logrus.TextFormatter{
		ForceColors:      color && isatty.IsTerminal(os.Stderr.Fd()),
		DisableColors:    !color,
		DisableTimestamp: true,
	})

	base.ReplaceHooks(make(logrus.LevelHooks))
	if logFile == "" {
		base.SetOutput(os.Stderr)
		base.SetLevel(console)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	base.SetLevel(logrus.DebugLevel)
	base.SetOutput(io.Discard)
	base.AddHook(&writerHook{w: os.Stderr, levels: levelsUpTo(console), formatter: base.Formatter})
	base.AddHook(&writerHook{w: f, levels: logrus.AllLevels, formatter: &logrus.JSONFormatter{}})
	return nil
}

// New returns an entry tagged with the owning package, matching how every
// component carries its own logger.
func New(pkg string) *logrus.Entry {
	return logrus.NewEntry(base).WithFields(logrus.Fields{
		"package": pkg,
	})
}

func levelsUpTo(max logrus.Level) []logrus.Level {
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= max {
			levels = append(levels, l)
		}
	}
	return levels
}

type writerHook struct {
	w         io.Writer
	levels    []logrus.Level
	formatter logrus.Formatter
}

func (h *writerHook) Levels() []logrus.Level {
	return h.levels
}

func (h *writerHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.w.Write(line)
	return err
}
