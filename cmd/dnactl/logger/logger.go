// Package logger holds the dnactl process logger. Records go to one JSON file
// per day under the log directory; without --debug everything is discarded.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the process logger. Library sessions derive their loggers from it, so
// their records carry the command attribute too.
var L = slog.New(slog.NewTextHandler(io.Discard, nil))

var file *os.File

const (
	logPrefix     = "dnactl-"
	logSuffix     = ".log"
	retentionDays = 30
)

// Options selects where and how much dnactl logs.
type Options struct {
	Enabled bool
	LogDir  string     // "" means ~/.dnactl/logs
	Level   slog.Level // zero value is slog.LevelInfo
	Command string     // recorded on every record, e.g. "convert"
}

// Init replaces L. A file opened by an earlier Init is closed first.
func Init(opts Options) error {
	if err := Close(); err != nil {
		return err
	}
	if !opts.Enabled {
		return nil
	}

	logDir := opts.LogDir
	if logDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		logDir = filepath.Join(home, ".dnactl", "logs")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}
	cleanOldLogs(logDir, time.Now())

	path := filepath.Join(logDir, logPrefix+time.Now().Format(time.DateOnly)+logSuffix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	file = f
	L = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: opts.Level})).
		With("command", opts.Command, "pid", os.Getpid())
	return nil
}

// Close restores the discard logger and closes the log file, if any.
func Close() error {
	L = slog.New(slog.NewTextHandler(io.Discard, nil))
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// cleanOldLogs deletes dnactl-YYYY-MM-DD.log files older than retentionDays.
// Files whose name does not parse are left alone.
func cleanOldLogs(logDir string, now time.Time) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	for _, entry := range entries {
		day, ok := strings.CutPrefix(entry.Name(), logPrefix)
		if !ok {
			continue
		}
		day, ok = strings.CutSuffix(day, logSuffix)
		if !ok {
			continue
		}
		if t, err := time.Parse(time.DateOnly, day); err == nil && t.Before(cutoff) {
			_ = os.Remove(filepath.Join(logDir, entry.Name()))
		}
	}
}

// Debug, Info, Warn and Error log through L.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

func Info(msg string, args ...any) { L.Info(msg, args...) }

func Warn(msg string, args ...any) { L.Warn(msg, args...) }

func Error(msg string, args ...any) { L.Error(msg, args...) }
