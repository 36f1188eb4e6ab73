// Package logging wires the process-wide structured logger: text output on
// stderr plus a rolling log file per operation kind (upload.log,
// download.log). Initialized once and injected; operations never build
// their own sink.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bilistream/bilistream/internal/config"
)

// Setup creates the logger for one operation kind. The returned close
// function flushes and closes the rolling file.
func Setup(cfg config.LogConfig, op string) (*slog.Logger, func() error) {
	roller := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, op+".log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}

	handler := slog.NewTextHandler(io.MultiWriter(os.Stderr, roller), &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	logger := slog.New(handler).With("op", op)
	slog.SetDefault(logger)

	return logger, roller.Close
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		fmt.Fprintf(os.Stderr, "unknown log level %q, using info\n", s)
		return slog.LevelInfo
	}
	return level
}
