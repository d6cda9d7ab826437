// Package logging configures the process-wide slog logger for the console.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Fantasim/p2pads/internal/config"
)

const dayLayout = "2006-01-02"

// Options controls Setup. Zero values fall back to the config defaults.
type Options struct {
	Level      string
	Dir        string
	MaxAgeDays int
	Console    io.Writer // defaults to os.Stdout
}

// Setup installs a JSON slog handler writing to Console and to a per-day file
// under Dir, then prunes day files older than MaxAgeDays. The returned closer
// releases the file.
func Setup(opts Options) (io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Dir == "" {
		opts.Dir = config.LogDir
	}
	if opts.MaxAgeDays <= 0 {
		opts.MaxAgeDays = config.LogMaxAgeDays
	}
	if opts.Console == nil {
		opts.Console = os.Stdout
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir %q: %w", opts.Dir, err)
	}

	now := time.Now()
	path := filepath.Join(opts.Dir, FileName(now))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %q: %w", path, err)
	}

	handler := slog.NewJSONHandler(io.MultiWriter(opts.Console, file), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler).With("app", config.AppName))

	slog.Info("logging initialized", "level", level.String(), "file", path)

	if n := CleanOldLogs(opts.Dir, now.AddDate(0, 0, -opts.MaxAgeDays)); n > 0 {
		slog.Info("pruned old log files", "removed", n, "maxAgeDays", opts.MaxAgeDays)
	}
	return file, nil
}

// FileName is the log file name for the day containing t.
func FileName(t time.Time) string {
	return fmt.Sprintf(config.LogFilePattern, t.Format(dayLayout))
}

// fileDay parses the day out of a log file name.
func fileDay(name string) (time.Time, bool) {
	prefix, suffix, _ := strings.Cut(config.LogFilePattern, "%s")
	day, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return time.Time{}, false
	}
	day, ok = strings.CutSuffix(day, suffix)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dayLayout, day, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CleanOldLogs removes the day files in dir whose day is before cutoff's day.
// Files not named after LogFilePattern are left alone. It returns the number
// of files removed.
func CleanOldLogs(dir string, cutoff time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("log cleanup: read dir", "dir", dir, "error", err)
		return 0
	}
	limit := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.Local)

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		day, ok := fileDay(e.Name())
		if !ok || !day.Before(limit) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			slog.Warn("log cleanup: remove", "file", e.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed
}

// ParseLevel accepts the slog level names in any case, plus "warning".
// An empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
