package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for the CLI --verbosity flag (or -v counts).
//
// These levels control WHAT categories of output are shown, not just log severity.
// See output.go for the full category system.
//
// Example usage:
//
//	if logger.ShouldOutput(verbosity, logger.OutputPathTrace) {
//	    log.Debugw("Collecting paths", "symbol", name)
//	}
const (
	VerbositySilent   = 0 // no flag: results and errors only
	VerbosityProgress = 1 // -v: + stage progress
	VerbosityTrace    = 2 // -vv: + path trace through the grammar
)

// VerbosityToLevel maps verbosity to zap log levels
//
// Mapping:
//
//	0 (none) -> WarnLevel  (errors and warnings only)
//	1 (-v)   -> InfoLevel  (+ stage progress)
//	2+ (-vv) -> DebugLevel (+ path trace)
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbositySilent:
		return zapcore.WarnLevel
	case verbosity == VerbosityProgress:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// ClampVerbosity folds out-of-range values into the supported 0..2 range.
func ClampVerbosity(verbosity int) int {
	if verbosity < VerbositySilent {
		return VerbositySilent
	}
	if verbosity > VerbosityTrace {
		return VerbosityTrace
	}
	return verbosity
}

// LevelName returns a human-readable name for verbosity level
func LevelName(verbosity int) string {
	switch ClampVerbosity(verbosity) {
	case VerbositySilent:
		return "Silent"
	case VerbosityProgress:
		return "Progress (-v)"
	default:
		return "Trace (-vv)"
	}
}
