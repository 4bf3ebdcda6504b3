package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charlymoron/trapflow/pkg/logging"
	"github.com/charlymoron/trapflow/pkg/parser"
	"github.com/charlymoron/trapflow/pkg/sqlgen"
)

type stubResolver struct {
	ids map[string]int64
}

func (s *stubResolver) Resolve(_ context.Context, fragment string) (int64, bool) {
	for value, id := range s.ids {
		if strings.Contains(value, fragment) {
			return id, true
		}
	}
	return 0, false
}

func (s *stubResolver) ResolveByKnownIP(_ context.Context, _ string) (int64, bool) {
	return 0, false
}

func newTestProcessor(outputDir string, ids map[string]int64) *Processor {
	classifier := parser.NewClassifier()
	extractor := parser.NewExtractor(classifier, &stubResolver{ids: ids}, 1)
	return NewProcessor(classifier, extractor, sqlgen.NewEmitter(outputDir), logging.Nop())
}

func writeTrapFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")

	content := strings.Join([]string{
		"2025-3-1409:15:42.500\tInterface Tunnel T1, changed state to down",
		"device heartbeat, nothing interesting",
		"2025-3-1410:00:00\tTunnel T2 from LOADING to FULL on neighbor",
		"2025-3-1409:15:42.500\tInterface Tunnel T1, changed state to down",
		"2025-3-1411:11:11\tInterface Tunnel T9, changed state to down",
		"",
	}, "\n")

	path := writeTrapFile(t, dir, "traps_0314.txt", content)
	p := newTestProcessor(out, map[string]int64{
		"Tunnel T1": 42,
		"Tunnel T2": 7,
	})

	result := p.ProcessFile(context.Background(), path)

	if result.Failed {
		t.Fatalf("ProcessFile failed: %s", result.FailReason)
	}
	if result.EventCount != 2 {
		t.Errorf("EventCount = %d, want 2 (duplicate line must collapse)", result.EventCount)
	}
	if result.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", result.ErrorCount)
	}

	script, err := os.ReadFile(result.SQLFile)
	if err != nil {
		t.Fatalf("reading script: %v", err)
	}
	got := string(script)
	if inserts := strings.Count(got, "INSERT INTO Evento"); inserts != 2 {
		t.Errorf("script has %d INSERTs, want 2:\n%s", inserts, got)
	}
	if !strings.HasPrefix(got, "BEGIN TRANSACTION;\n") || !strings.Contains(got, "\nCOMMIT;\n") {
		t.Errorf("script is not a transaction:\n%s", got)
	}

	report, err := os.ReadFile(result.ErrorFile)
	if err != nil {
		t.Fatalf("reading error report: %v", err)
	}
	if !strings.Contains(string(report), "unresolved object") {
		t.Errorf("error report missing unresolved line: %q", report)
	}
	if lines := strings.Count(string(report), "\n"); lines != 1 {
		t.Errorf("error report has %d lines, want 1", lines)
	}
}

func TestProcessFileNoErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeTrapFile(t, dir, "clean.txt",
		"2025-3-1409:15:42\tInterface Tunnel T1, changed state to up\n")

	p := newTestProcessor(filepath.Join(dir, "out"), map[string]int64{"Tunnel T1": 42})
	result := p.ProcessFile(context.Background(), path)

	if result.Failed {
		t.Fatalf("ProcessFile failed: %s", result.FailReason)
	}
	if result.EventCount != 1 || result.ErrorCount != 0 {
		t.Fatalf("got %d events, %d errors", result.EventCount, result.ErrorCount)
	}
	if result.ErrorFile != "" {
		t.Errorf("error report written for a clean file: %s", result.ErrorFile)
	}
}

func TestProcessFileUnreadable(t *testing.T) {
	dir := t.TempDir()
	p := newTestProcessor(filepath.Join(dir, "out"), nil)

	result := p.ProcessFile(context.Background(), filepath.Join(dir, "missing.txt"))
	if !result.Failed {
		t.Fatal("expected a failed result for a missing file")
	}
	if result.FailReason == "" {
		t.Error("failed result carries no reason")
	}
}

func TestProcessFileUndecodableBytes(t *testing.T) {
	dir := t.TempDir()
	line := append([]byte("2025-3-1409:15:42\tInterface Tunnel T1"), 0xff, 0xfe)
	line = append(line, []byte(", changed state to down\n")...)
	path := writeTrapFile(t, dir, "mixed.txt", string(line))

	p := newTestProcessor(filepath.Join(dir, "out"), map[string]int64{"Tunnel T1": 42})
	result := p.ProcessFile(context.Background(), path)

	if result.Failed {
		t.Fatalf("undecodable bytes must not fail the file: %s", result.FailReason)
	}
	if result.EventCount != 1 {
		t.Errorf("EventCount = %d, want 1", result.EventCount)
	}
}
