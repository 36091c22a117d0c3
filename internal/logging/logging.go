// Package logging is the diagnostic sink used by the core for misuse
// warnings and poll errors, following fzft-go-mock-redis's log package: a
// single package-level *zap.Logger, swappable, defaulting to a no-op so the
// core is silent unless the embedder opts in.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop()

func init() {
	if os.Getenv("GLOOP_DEBUG") != "" {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if built, err := cfg.Build(); err == nil {
			logger = built
		}
	}
}

// Set installs a caller-provided logger, e.g. from gloop.SetLogger. Passing
// nil restores the no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// L returns the currently installed logger.
func L() *zap.Logger {
	return logger
}

// PollTraceEnabled reports whether GLOOP_DEBUG asked for verbose per-poll
// tracing (records, timeout, elapsed time, received bits).
func PollTraceEnabled() bool {
	return os.Getenv("GLOOP_DEBUG") != ""
}
