package logger

import (
	"io"
	"log/slog"
	"os"
)

// InitJSONLogger configures and sets the default slog logger to use JSON format.
// Every record carries the name of the serving process; debug enables debug level.
func InitJSONLogger(process string, debug bool) {
	slog.SetDefault(New(os.Stdout, process, debug))
}

// New creates a JSON logger writing to w.
func New(w io.Writer, process string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler).With(slog.String("process", process))
}
