package logger

import (
	"log/slog"
	"os"

	"github.com/golang-cz/devslog"
	"github.com/spf13/viper"

	"github.com/ferralda/mailsift/internal/types"
)

// Setup creates a logger for one configuration. The logging.level and
// logging.format viper keys, bound to the command line flags, override
// the per-config values.
func Setup(cfg *types.Config) *slog.Logger {
	level := cfg.Logging.Level
	if v := viper.GetString("logging.level"); v != "" {
		level = v
	}
	format := cfg.Logging.Format
	if v := viper.GetString("logging.format"); v != "" {
		format = v
	}
	return New(level, format, cfg.Logging.IncludeCaller)
}

// New builds a logger with an explicit level and format, for callers
// that have no configuration yet.
func New(level, format string, includeCaller bool) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: includeCaller,
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	case "dev":
		handler = devslog.NewHandler(os.Stdout, &devslog.Options{
			HandlerOptions:    opts,
			SortKeys:          true,
			NewLineAfterLog:   true,
			StringerFormatter: true,
		})
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
