// Package xflags holds the cli.Flag category labels shared across the CLI
// and its sub-packages, so flags from different packages group together
// sensibly in --help output.
package xflags

const (
	// LoggingCategory groups verbosity, log format and log destination flags.
	LoggingCategory = "LOGGING AND DEBUGGING"

	// TelemetryCategory groups the optional metrics/pprof HTTP server flags.
	TelemetryCategory = "METRICS"

	// EngineCategory groups flags that affect engine behavior (worker count).
	EngineCategory = "ENGINE"
)
