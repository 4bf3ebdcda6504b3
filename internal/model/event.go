// Package model defines core data structures for trapflow.
package model

import "time"

// EventKind is the Evento.TipoEvento wire value for a state change.
// The numeric values are fixed by the Gestel database and must not change.
type EventKind int64

const (
	KindUnknown EventKind = 0
	KindDown    EventKind = 1
	KindUp      EventKind = 2
)

// String returns the kind name.
func (k EventKind) String() string {
	switch k {
	case KindDown:
		return "down"
	case KindUp:
		return "up"
	default:
		return "unknown"
	}
}

// Event is one state-change row destined for the Evento table.
// Events are immutable once built by the extractor.
type Event struct {
	// ObjectID is the Objeto.Id the trap line was resolved to.
	ObjectID int64

	// Kind is the TipoEvento value (down=1, up=2).
	Kind EventKind

	// OperatorID is the OperadorRegistro.Id recorded as the importer.
	OperatorID int64

	// Timestamp is the trap time parsed from the line's date field.
	Timestamp time.Time

	// Note is the optional Observaciones value. The batch importer
	// leaves it empty.
	Note string
}

// ProcessingError records a useful line that could not be turned into
// an event. It is written verbatim to the error report.
type ProcessingError struct {
	Line   string
	Reason string
}

// FileResult summarizes the processing of one trap file.
type FileResult struct {
	Filename   string
	EventCount int
	ErrorCount int
	SQLFile    string
	ErrorFile  string
	Elapsed    time.Duration

	// Skipped is set when the imported-file ledger already knew the file.
	Skipped bool

	// Failed marks a file-level failure (unreadable input, unwritable
	// output). The run continues with the remaining files.
	Failed     bool
	FailReason string
}

// RunSummary aggregates the FileResults of one pipeline invocation.
type RunSummary struct {
	RunID          string
	Success        bool
	Message        string
	FilesProcessed int
	FilesSkipped   int
	FilesFailed    int
	TotalEvents    int
	TotalErrors    int
	SQLFiles       []string
	ErrorFiles     []string
	Elapsed        time.Duration
	Files          []FileResult
}
