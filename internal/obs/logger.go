// Package obs holds the engine's ambient observability stack: structured
// logging and prometheus metrics, shared by every component the way the
// teacher's keepers share sdkCtx.Logger() and a *DEXMetrics.
package obs

import (
	"os"

	"cosmossdk.io/log"
)

// Logger is the structured logger every package takes a dependency on.
type Logger = log.Logger

// NewLogger returns the default text logger, writing to stderr.
func NewLogger() Logger {
	return log.NewLogger(os.Stderr)
}

// NewNopLogger returns a logger that discards everything, for tests.
func NewNopLogger() Logger {
	return log.NewNopLogger()
}
