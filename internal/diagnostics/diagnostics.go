// Package diagnostics provides the categorized logger and the per-run
// diagnostics accumulator used across the pipeline. Log lines are for
// operators; diagnostics entries are for EngineResult.Diagnostics and are
// what spec.md §7 calls "warnings visible in diagnostics".
package diagnostics

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Category names a pipeline stage for structured log fields, mirroring the
// teacher's per-subsystem logging categories.
type Category string

const (
	CategoryBuilder    Category = "graph_builder"
	CategoryStyle      Category = "style_detector"
	CategoryCriteria   Category = "criteria_engine"
	CategoryEnrichment Category = "enrichment_engine"
	CategoryRules      Category = "rule_engine"
	CategoryLayer      Category = "layer_classifier"
	CategoryEngine     Category = "engine"
)

// Logger wraps a *zap.Logger scoped to a single run and category.
type Logger struct {
	z *zap.Logger
}

// New builds a Logger backed by a production zap configuration. Callers
// that want console-friendly output in tests may pass zap.NewNop() via
// NewWith.
func New() *Logger {
	z, err := zap.NewProduction()
	if err != nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// NewWith wraps a caller-supplied *zap.Logger (e.g. zap.NewNop() in tests).
func NewWith(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// For returns a child logger scoped to category.
func (l *Logger) For(category Category) *zap.Logger {
	return l.z.With(zap.String("category", string(category)))
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.z.Sync() }

// Severity mirrors the Violation severity ordinal but is reused for
// diagnostics entries so both channels share one vocabulary.
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// Entry is one diagnostics-channel record: a local (non-fatal) failure or
// informational note surfaced to the caller alongside the EngineResult.
type Entry struct {
	Severity Severity
	Stage    Category
	Message  string
}

// Diagnostics accumulates Entry values from every stage. It is safe for
// concurrent use by the parallel workers described in spec.md §5.
type Diagnostics struct {
	mu      sync.Mutex
	entries []Entry
}

// NewDiagnostics returns an empty accumulator.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Add records one diagnostics entry.
func (d *Diagnostics) Add(severity Severity, stage Category, format string, args ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, Entry{Severity: severity, Stage: stage, Message: fmt.Sprintf(format, args...)})
}

// Warn is shorthand for Add(SeverityWarn, ...), the degrade-gracefully path
// for CriterionError/EnricherError/RuleError.
func (d *Diagnostics) Warn(stage Category, format string, args ...interface{}) {
	d.Add(SeverityWarn, stage, format, args...)
}

// Entries returns a deterministically ordered (insertion order) copy of the
// accumulated entries. Insertion order is stable because every stage
// appends from a single post-barrier aggregation step, never from the
// in-flight parallel workers directly (see spec.md §5).
func (d *Diagnostics) Entries() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}
