package logger

// Output controls what categories of information are shown at each verbosity level.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information are displayed regardless of severity.
//
// Verbosity Levels:
//
//	0 (default) - totals, validation errors and warnings
//	1 (-v)      - + stage progress ("Indexing grammar...", "Building a trie...")
//	2 (-vv)     - + every symbol and rule visited while collecting paths, stage timing

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults  OutputCategory = iota // Totals and lookup results
	OutputErrors                         // Validation errors with hints
	OutputWarnings                       // Validation warnings

	// Level 1 (-v) - Progress
	OutputProgress  // Stage announcements
	OutputArtifacts // Artifact paths written

	// Level 2 (-vv) - Trace
	OutputPathTrace // Symbol/rule visits during path collection
	OutputTiming    // Per-stage timing
	OutputConfig    // Config values loaded/applied
)

// categoryLevels maps each output category to its minimum verbosity level
var categoryLevels = map[OutputCategory]int{
	OutputResults:  VerbositySilent,
	OutputErrors:   VerbositySilent,
	OutputWarnings: VerbositySilent,

	OutputProgress:  VerbosityProgress,
	OutputArtifacts: VerbosityProgress,

	OutputPathTrace: VerbosityTrace,
	OutputTiming:    VerbosityTrace,
	OutputConfig:    VerbosityTrace,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		// Unknown category, default to highest verbosity required
		return verbosity >= VerbosityTrace
	}
	return verbosity >= minLevel
}

// categoryNames provides human-readable names for output categories
var categoryNames = map[OutputCategory]string{
	OutputResults:   "results",
	OutputErrors:    "errors",
	OutputWarnings:  "warnings",
	OutputProgress:  "progress",
	OutputArtifacts: "artifacts",
	OutputPathTrace: "path-trace",
	OutputTiming:    "timing",
	OutputConfig:    "config",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}

// VerbosityDescription returns a description of what's shown at each level
func VerbosityDescription(verbosity int) string {
	switch ClampVerbosity(verbosity) {
	case VerbositySilent:
		return "totals, errors and warnings only"
	case VerbosityProgress:
		return "above + stage progress"
	default:
		return "above + path trace and timing"
	}
}
