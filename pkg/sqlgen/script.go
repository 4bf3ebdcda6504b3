// Package sqlgen writes the per-file output artifacts: the
// transactional INSERT script handed to the DBA and the companion
// error report.
package sqlgen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charlymoron/trapflow/internal/model"
	trferrors "github.com/charlymoron/trapflow/pkg/errors"
)

// Artifact name prefixes are fixed by the legacy importer; operators
// have scripts and tooling keyed on them.
const (
	sqlPrefix   = "InsertSQLEventos-"
	errorPrefix = "ErroresImportant-"
)

const timestampLayout = "2006-01-02 15:04:05"

// Emitter writes run artifacts into a single output directory.
type Emitter struct {
	outputDir string
}

// NewEmitter creates an emitter rooted at outputDir.
func NewEmitter(outputDir string) *Emitter {
	return &Emitter{outputDir: outputDir}
}

// SQLPath returns the script path for a given input filename.
func (e *Emitter) SQLPath(baseFilename string) string {
	return filepath.Join(e.outputDir, sqlPrefix+baseFilename+".sql")
}

// ErrorPath returns the error report path for a given input filename.
func (e *Emitter) ErrorPath(baseFilename string) string {
	return filepath.Join(e.outputDir, errorPrefix+baseFilename)
}

// WriteSQL writes one transactional batch script for the deduplicated
// events of a file. The whole script is built in memory and written via
// a temp-file rename, so a cancelled or crashed run never leaves a
// script without its COMMIT. An empty event list still yields a valid
// empty transaction.
func (e *Emitter) WriteSQL(events []model.Event, baseFilename string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("BEGIN TRANSACTION;\n\n")

	for _, ev := range events {
		writeInsert(&buf, ev)
	}

	buf.WriteString("\nCOMMIT;\n")
	buf.WriteString("-- ROLLBACK;\n")

	path := e.SQLPath(baseFilename)
	if err := e.writeAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// WriteErrors writes the error report, one offending line per row.
// Nothing is written and "" is returned when there are no errors.
func (e *Emitter) WriteErrors(errs []model.ProcessingError, baseFilename string) (string, error) {
	if len(errs) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	for _, pe := range errs {
		buf.WriteString(pe.Reason)
		buf.WriteString(": ")
		buf.WriteString(pe.Line)
		buf.WriteByte('\n')
	}

	path := e.ErrorPath(baseFilename)
	if err := e.writeAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// writeAtomic creates the output directory if needed and replaces path
// in one rename.
func (e *Emitter) writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return trferrors.Wrap(err, trferrors.CodeOutputDirUnwritable,
			"failed to create output directory").WithContext("dir", e.outputDir)
	}

	tmp, err := os.CreateTemp(e.outputDir, filepath.Base(path)+".tmp*")
	if err != nil {
		return trferrors.Wrap(err, trferrors.CodeWriteFailed, "failed to create temp output")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return trferrors.Wrap(err, trferrors.CodeWriteFailed, "failed to write output").
			WithContext("path", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return trferrors.Wrap(err, trferrors.CodeWriteFailed, "failed to close output").
			WithContext("path", path)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return trferrors.Wrap(err, trferrors.CodeWriteFailed, "failed to publish output").
			WithContext("path", path)
	}
	return nil
}

// writeInsert renders one INSERT. Object and operator ids come from
// trusted lookups and the timestamp is formatted here, so inlined
// literals are safe; the optional note is the only free text and is
// quote-escaped.
func writeInsert(buf *bytes.Buffer, ev model.Event) {
	ts := ev.Timestamp.Format(timestampLayout)
	if ev.Note != "" {
		fmt.Fprintf(buf,
			"INSERT INTO Evento (ObjetoId, TipoEvento, OperadorRegistroId, Fecha, Observaciones) VALUES (%d, %d, %d, '%s', '%s');\n",
			ev.ObjectID, int64(ev.Kind), ev.OperatorID, ts, escapeString(ev.Note))
		return
	}
	fmt.Fprintf(buf,
		"INSERT INTO Evento (ObjetoId, TipoEvento, OperadorRegistroId, Fecha) VALUES (%d, %d, %d, '%s');\n",
		ev.ObjectID, int64(ev.Kind), ev.OperatorID, ts)
}

func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
