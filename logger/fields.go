package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across Reductionist.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldBuildID = "build_id"
	FieldBundle  = "bundle"

	// Components
	FieldComponent = "component"
	FieldStage     = "stage"

	// Grammar entities
	FieldSymbol = "symbol"
	FieldRule   = "rule"
	FieldTag    = "tag"
	FieldDepth  = "depth"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount    = "count"
	FieldSymbols  = "symbols"
	FieldRules    = "rules"
	FieldPaths    = "paths"
	FieldMeanings = "meanings"
	FieldOutputs  = "outputs"
	FieldBytes    = "bytes"

	// Files and paths
	FieldFile = "file"
	FieldDir  = "dir"
)

// Context keys for propagating logging context
type contextKey string

const (
	buildIDKey   contextKey = "logger_build_id"
	bundleKey    contextKey = "logger_bundle"
	componentKey contextKey = "logger_component"
)

// WithBuildID adds a build ID to the context for logging
func WithBuildID(ctx context.Context, buildID string) context.Context {
	return context.WithValue(ctx, buildIDKey, buildID)
}

// WithBundle adds a content-bundle name to the context for logging
func WithBundle(ctx context.Context, bundle string) context.Context {
	return context.WithValue(ctx, bundleKey, bundle)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for SugaredLogger.With.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if buildID, ok := ctx.Value(buildIDKey).(string); ok && buildID != "" {
		fields = append(fields, FieldBuildID, buildID)
	}
	if bundle, ok := ctx.Value(bundleKey).(string); ok && bundle != "" {
		fields = append(fields, FieldBundle, bundle)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	result, err := compiler.Compile(ctx, input, format, compiler.Options{
//	    Bundle: name,
//	    Logger: logger.ComponentLogger("compiler"),
//	})
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// OrNop returns l, or a no-op logger when l is nil.
// Packages accept an optional logger in their options and call this once.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
