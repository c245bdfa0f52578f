// Package progress reports compilation progress to a terminal or as JSON events.
package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/logger"
)

// Emitter receives pipeline progress.
//
// Implementations include:
// - CLIEmitter: pretty-printed terminal output using pterm
// - JSONEmitter: one JSON event per line for tooling
// - Nop: discards everything
type Emitter interface {
	// EmitStage announces the start of a pipeline stage
	EmitStage(stage string, message string)

	// EmitProgress announces a count produced by a stage, with optional metadata
	EmitProgress(count int, metadata map[string]interface{})

	// EmitWarning reports a non-fatal finding
	EmitWarning(message string)

	// EmitComplete announces successful completion with a summary
	EmitComplete(summary map[string]interface{})

	// EmitError announces a failure in a stage
	EmitError(stage string, err error)

	// EmitInfo emits a general informational message
	EmitInfo(message string)
}

// Event is a structured JSON progress event
type Event struct {
	Type      string                 `json:"type"` // "stage", "progress", "warning", "complete", "error", "info"
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// CLIEmitter prints progress for humans. What is shown follows logger.ShouldOutput.
type CLIEmitter struct {
	verbosity int
	out       io.Writer
}

// NewCLIEmitter creates a terminal emitter writing to stdout
func NewCLIEmitter(verbosity int) *CLIEmitter {
	return NewCLIEmitterTo(os.Stdout, verbosity)
}

// NewCLIEmitterTo creates a terminal emitter writing to w
func NewCLIEmitterTo(w io.Writer, verbosity int) *CLIEmitter {
	return &CLIEmitter{verbosity: verbosity, out: w}
}

// EmitStage prints a stage announcement
func (e *CLIEmitter) EmitStage(stage string, message string) {
	if !logger.ShouldOutput(e.verbosity, logger.OutputProgress) {
		return
	}
	pterm.Fprintln(e.out, fmt.Sprintf("%s %s: %s", pterm.Gray("›"), pterm.LightCyan(stage), message))
}

// EmitProgress prints a count, labelled by metadata["type"] when present
func (e *CLIEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	if !logger.ShouldOutput(e.verbosity, logger.OutputProgress) {
		return
	}
	label := "items"
	if itemType, ok := metadata["type"].(string); ok {
		label = itemType
	}
	pterm.Fprintln(e.out, fmt.Sprintf("  %s %s", pterm.Green(fmt.Sprintf("%d", count)), label))
}

// EmitWarning prints a warning
func (e *CLIEmitter) EmitWarning(message string) {
	if !logger.ShouldOutput(e.verbosity, logger.OutputWarnings) {
		return
	}
	pterm.Warning.WithWriter(e.out).Println(message)
}

// EmitComplete prints the completion summary
func (e *CLIEmitter) EmitComplete(summary map[string]interface{}) {
	if msg, ok := summary["message"].(string); ok {
		pterm.Success.WithWriter(e.out).Println(msg)
	} else {
		pterm.Success.WithWriter(e.out).Println("Compilation complete")
	}
	if !logger.ShouldOutput(e.verbosity, logger.OutputArtifacts) {
		return
	}
	for _, key := range sortedKeys(summary) {
		if key == "message" {
			continue
		}
		pterm.Fprintln(e.out, fmt.Sprintf("  %s: %v", key, summary[key]))
	}
}

// EmitError prints an error with any hints attached to it
func (e *CLIEmitter) EmitError(stage string, err error) {
	pterm.Error.WithWriter(e.out).Printfln("Error in %s: %v", stage, err)
	for _, hint := range errors.GetAllHints(err) {
		pterm.Fprintln(e.out, fmt.Sprintf("  hint: %s", hint))
	}
}

// EmitInfo prints an informational message
func (e *CLIEmitter) EmitInfo(message string) {
	if !logger.ShouldOutput(e.verbosity, logger.OutputProgress) {
		return
	}
	pterm.Info.WithWriter(e.out).Println(message)
}

// JSONEmitter writes one JSON event per line
type JSONEmitter struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewJSONEmitter creates a JSON emitter writing to stdout
func NewJSONEmitter() *JSONEmitter {
	return NewJSONEmitterTo(os.Stdout)
}

// NewJSONEmitterTo creates a JSON emitter writing to w
func NewJSONEmitterTo(w io.Writer) *JSONEmitter {
	return &JSONEmitter{encoder: json.NewEncoder(w)}
}

func (e *JSONEmitter) emit(eventType string, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.encoder.Encode(Event{Type: eventType, Timestamp: time.Now(), Data: data})
}

// EmitStage emits a stage event
func (e *JSONEmitter) EmitStage(stage string, message string) {
	e.emit("stage", map[string]interface{}{"stage": stage, "message": message})
}

// EmitProgress emits a progress event; metadata is merged into the data
func (e *JSONEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	data := map[string]interface{}{"count": count}
	for k, v := range metadata {
		data[k] = v
	}
	e.emit("progress", data)
}

// EmitWarning emits a warning event
func (e *JSONEmitter) EmitWarning(message string) {
	e.emit("warning", map[string]interface{}{"message": message})
}

// EmitComplete emits a completion event
func (e *JSONEmitter) EmitComplete(summary map[string]interface{}) {
	e.emit("complete", summary)
}

// EmitError emits an error event with hints
func (e *JSONEmitter) EmitError(stage string, err error) {
	data := map[string]interface{}{"stage": stage, "error": err.Error()}
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		data["hints"] = hints
	}
	e.emit("error", data)
}

// EmitInfo emits an info event
func (e *JSONEmitter) EmitInfo(message string) {
	e.emit("info", map[string]interface{}{"message": message})
}

// Nop discards all progress
type Nop struct{}

func (Nop) EmitStage(string, string)                 {}
func (Nop) EmitProgress(int, map[string]interface{}) {}
func (Nop) EmitWarning(string)                       {}
func (Nop) EmitComplete(map[string]interface{})      {}
func (Nop) EmitError(string, error)                  {}
func (Nop) EmitInfo(string)                          {}

// OrNop returns e, or Nop when e is nil
func OrNop(e Emitter) Emitter {
	if e == nil {
		return Nop{}
	}
	return e
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
