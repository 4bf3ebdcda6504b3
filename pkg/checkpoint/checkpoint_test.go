package checkpoint

import (
	"context"
	"path/filepath"
	"testing"
)

func TestFileLedgerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imported.json")
	ctx := context.Background()

	l, err := OpenFileLedger(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	seen, err := l.Seen(ctx, "traps1.txt")
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if seen {
		t.Error("fresh ledger reports file as seen")
	}

	if err := l.Mark(ctx, "traps1.txt"); err != nil {
		t.Fatalf("mark: %v", err)
	}

	seen, _ = l.Seen(ctx, "traps1.txt")
	if !seen {
		t.Error("marked file not reported as seen")
	}

	// reopen from disk
	l2, err := OpenFileLedger(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	seen, _ = l2.Seen(ctx, "traps1.txt")
	if !seen {
		t.Error("mark did not survive reopen")
	}
	if l2.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l2.Len())
	}
}

func TestFileLedgerCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "imported.json")

	l, err := OpenFileLedger(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.Mark(context.Background(), "a.txt"); err != nil {
		t.Fatalf("mark: %v", err)
	}
}
