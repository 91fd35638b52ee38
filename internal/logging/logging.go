package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level string
	// File enables an additional rotating JSON log file.
	File string
}

// New builds the process logger. Records always go to stdout; when a file
// is configured they are fanned out to a rotating log file as well.
func New(opts Options) (*slog.Logger, io.Closer) {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	stdout := slog.NewJSONHandler(os.Stdout, handlerOpts)

	if opts.File == "" {
		return slog.New(stdout), io.NopCloser(nil)
	}

	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	}
	logger := slog.New(slogmulti.Fanout(
		stdout,
		slog.NewJSONHandler(file, handlerOpts),
	))
	return logger, file
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
