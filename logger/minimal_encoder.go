package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// Color palettes for different themes
const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

type palette struct {
	fg     string
	time   string
	accent []string // rotated per component name
	number string
	id     string
	warn   string
	warnBg string
	err    string
	errBg  string
	trace  string
}

// Gruvbox Dark (warm, muted)
var gruvbox = palette{
	fg:     "\x1b[38;5;223m",
	time:   "\x1b[38;5;108m",
	accent: []string{"\x1b[38;5;208m", "\x1b[38;5;214m"},
	number: "\x1b[38;5;175m",
	id:     "\x1b[38;5;109m",
	warn:   "\x1b[38;5;214m",
	warnBg: "\x1b[48;5;58m",
	err:    "\x1b[38;5;167m",
	errBg:  "\x1b[48;5;88m",
	trace:  "\x1b[38;5;245m",
}

// Everforest Dark (forest greens)
var everforest = palette{
	fg:     "\x1b[38;5;223m",
	time:   "\x1b[38;5;107m",
	accent: []string{"\x1b[38;5;108m", "\x1b[38;5;65m", "\x1b[38;5;208m"},
	number: "\x1b[38;5;108m",
	id:     "\x1b[38;5;109m",
	warn:   "\x1b[38;5;179m",
	warnBg: "\x1b[48;5;58m",
	err:    "\x1b[38;5;167m",
	errBg:  "\x1b[48;5;52m",
	trace:  "\x1b[38;5;244m",
}

// Current active theme (set from config or REDUCTIONIST_LOG_THEME)
var currentTheme = "everforest"

// SetTheme configures the color scheme for log output
func SetTheme(theme string) {
	if theme == "everforest" || theme == "gruvbox" {
		currentTheme = theme
	}
}

func colors() palette {
	if currentTheme == "gruvbox" {
		return gruvbox
	}
	return everforest
}

func colorComponent(name string) string {
	// Hash for consistent color per component
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	accents := colors().accent
	return accents[hash%len(accents)]
}

// minimalEncoder implements a calm, compact console encoder with theme support
// Format: "13:04:35  paths  Collecting paths  symbol=Greeting depth=1"
type minimalEncoder struct {
	zapcore.Encoder // Embed a base encoder for With() field accumulation
}

func newMinimalEncoder() *minimalEncoder {
	return &minimalEncoder{
		Encoder: zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{Encoder: enc.Encoder.Clone()}
}

var bufferPool = buffer.NewPool()

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	c := colors()
	final := bufferPool.Get()

	final.AppendString(c.time)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	// Level: only shown for non-info entries
	if ent.Level != zapcore.InfoLevel {
		final.AppendString("  ")
		final.AppendString(levelColorString(ent.Level))
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(colorComponent(ent.LoggerName))
		final.AppendString(abbreviateName(ent.LoggerName))
		final.AppendString(colorReset)
	}

	final.AppendString("  ")
	if ent.Level == zapcore.DebugLevel {
		final.AppendString(c.trace)
	} else {
		final.AppendString(c.fg)
	}
	final.AppendString(ent.Message)
	final.AppendString(colorReset)

	if rendered := renderFields(fields); rendered != "" {
		final.AppendString("  ")
		final.AppendString(rendered)
	}

	final.AppendString("\n")
	return final, nil
}

// levelColorString returns bold + colored + background for non-info levels
func levelColorString(level zapcore.Level) string {
	c := colors()
	switch level {
	case zapcore.DebugLevel:
		return c.trace + "DEBUG" + colorReset
	case zapcore.WarnLevel:
		return colorBold + c.warnBg + c.warn + "WARN" + colorReset
	case zapcore.ErrorLevel:
		return colorBold + c.errBg + c.err + "ERROR" + colorReset
	default:
		return colorBold + c.errBg + c.err + level.CapitalString() + colorReset
	}
}

// abbreviateName shortens component names: compiler.paths -> c.paths
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 && parts[0] != "" {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

// fieldValue extracts the value from a zap field, handling different field types
func fieldValue(field zapcore.Field) string {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
		return fmt.Sprintf("%d", field.Integer)
	case zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", uint64(field.Integer))
	case zapcore.BoolType:
		return fmt.Sprintf("%t", field.Integer == 1)
	case zapcore.SkipType:
		return ""
	}

	// Everything else (floats, durations, arrays, errors) goes through a map encoder
	m := zapcore.NewMapObjectEncoder()
	field.AddTo(m)
	if v, ok := m.Fields[field.Key]; ok {
		return fmt.Sprintf("%v", v)
	}
	if field.Interface != nil {
		return fmt.Sprintf("%v", field.Interface)
	}
	return ""
}

// renderFields renders every field as key=value; no field is ever dropped.
// Identifiers and counts get theme colors.
func renderFields(fields []zapcore.Field) string {
	c := colors()
	var parts []string
	for _, field := range fields {
		if field.Type == zapcore.SkipType {
			continue
		}
		val := fieldValue(field)
		switch field.Key {
		case FieldBuildID, FieldBundle, FieldSymbol:
			val = c.id + val + colorReset
		case FieldCount, FieldPaths, FieldMeanings, FieldOutputs, FieldSymbols, FieldRules:
			val = c.number + val + colorReset
		case FieldDurationMS:
			val = c.number + val + colorReset + "ms"
		}
		parts = append(parts, field.Key+"="+val)
	}
	return strings.Join(parts, " ")
}
