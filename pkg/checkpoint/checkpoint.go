// Package checkpoint tracks which trap files have already been
// imported, so watch mode and repeated batch runs do not re-emit
// scripts for the same inputs. The ledger is opt-in: a plain batch run
// without it stays fully stateless.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Ledger records imported input files.
type Ledger interface {
	// Seen reports whether the file was already imported.
	Seen(ctx context.Context, filename string) (bool, error)

	// Mark records the file as imported.
	Mark(ctx context.Context, filename string) error

	// Close flushes and releases the backend.
	Close() error
}

// ImportRecord is what the file backend stores per input file.
type ImportRecord struct {
	Filename   string    `json:"filename"`
	ImportedAt time.Time `json:"imported_at"`
}

// FileLedger persists the ledger as a single JSON document.
type FileLedger struct {
	mu      sync.Mutex
	path    string
	records map[string]ImportRecord
}

// OpenFileLedger loads (or initializes) a ledger at path.
func OpenFileLedger(path string) (*FileLedger, error) {
	l := &FileLedger{
		path:    path,
		records: make(map[string]ImportRecord),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if err := json.Unmarshal(data, &l.records); err != nil {
		return nil, fmt.Errorf("parse ledger %s: %w", path, err)
	}
	return l, nil
}

// Seen implements Ledger.
func (l *FileLedger) Seen(_ context.Context, filename string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.records[filename]
	return ok, nil
}

// Mark implements Ledger. The ledger file is rewritten on every mark;
// trap batches are small enough that this beats risking a lost update.
func (l *FileLedger) Mark(_ context.Context, filename string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[filename] = ImportRecord{
		Filename:   filename,
		ImportedAt: time.Now(),
	}
	return l.save()
}

func (l *FileLedger) save() error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(l.records, "", "  ")
	if err != nil {
		return err
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return os.Rename(tmp, l.path)
}

// Close implements Ledger.
func (l *FileLedger) Close() error {
	return nil
}

// Len returns the number of recorded files.
func (l *FileLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
