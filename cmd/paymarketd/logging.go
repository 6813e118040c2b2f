package main

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

// setupLogging installs a JSON slog handler as the default logger and bridges
// the standard library logger onto it.
func setupLogging(env, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	logger := slog.New(handler).With(
		slog.String("service", "paymarketd"),
		slog.String("env", strings.TrimSpace(env)),
	)
	slog.SetDefault(logger)

	bridge := slog.NewLogLogger(handler, slog.LevelInfo)
	log.SetOutput(bridge.Writer())
	log.SetFlags(0)

	return logger
}
