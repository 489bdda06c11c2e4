// Package telemetry wires structured logging at the edges of the engine:
// the CLI and the allocator's corruption path. The engine and page
// packages themselves stay free of logging, matching the teacher's
// separation between storage internals and the process that drives them.
package telemetry

import "go.uber.org/zap"

// New builds the process-wide logger. Debug builds want full development
// output (stack traces on Warn+); everyone else gets compact JSON on
// stderr, the shape an operator piping pagetreectl into a log collector
// would expect.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Fallback returns a logger guaranteed not to fail construction, for the
// rare path where building the configured logger itself errors out.
func Fallback() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// Sync flushes buffered log entries. Callers should defer it in main; the
// error is deliberately swallowed for stderr syncs, which return ENOTTY
// outside of a real terminal on some platforms.
func Sync(logger *zap.Logger) {
	_ = logger.Sync()
}
