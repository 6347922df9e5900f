// Package logging builds the process logger from LoggingConfig.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gosocialchat/internal/config"
)

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

// New returns a logger writing to cfg.OutputPath in cfg.Format at cfg.Level.
// The returned closer releases the output file, if one was opened.
func New(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)

	switch strings.TrimSpace(cfg.OutputPath) {
	case "", "stdout":
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", cfg.OutputPath, err)
		}
		out, closer = f, f
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closer, nil
}

// Init builds the logger and installs it as the slog default. On a bad output
// path it falls back to stdout so the process can still report the problem.
func Init(cfg config.LoggingConfig) io.Closer {
	logger, closer, err := New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v, falling back to stdout\n", err)
		cfg.OutputPath = "stdout"
		logger, closer, _ = New(cfg)
	}
	slog.SetDefault(logger)
	return closer
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

// WithRequestID stores a request_id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// FromContext returns the default logger, tagged with the request_id if present.
func FromContext(ctx context.Context) *slog.Logger {
	reqID, _ := ctx.Value(ctxKeyRequestID).(string)
	if reqID == "" {
		return slog.Default()
	}
	return slog.Default().With("request_id", reqID)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
