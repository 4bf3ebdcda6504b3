// Package tui renders run output for the terminal. Plain streaming
// prints, no interactive screens.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/charlymoron/trapflow/internal/model"
)

// Colors
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// PrintHeader prints the tool banner.
func PrintHeader(version string) {
	fmt.Println()
	fmt.Println(titleStyle.Render("  TRAPFLOW") + mutedStyle.Render(" "+version))
	fmt.Println(mutedStyle.Render("  Equipment trap log importer"))
	fmt.Println()
}

// PrintRunSummary prints the end-of-run report.
func PrintRunSummary(s model.RunSummary) {
	fmt.Println()
	if s.Success {
		fmt.Println(successStyle.Render("  ✓ IMPORT COMPLETE"))
	} else {
		fmt.Println(accentStyle.Render("  ✗ IMPORT INCOMPLETE"))
	}
	fmt.Println()
	fmt.Printf("  %s %s\n", mutedStyle.Render("Run:"), titleStyle.Render(s.RunID))
	fmt.Printf("  %s %d processed, %d skipped, %d failed\n",
		mutedStyle.Render("Files:"), s.FilesProcessed, s.FilesSkipped, s.FilesFailed)
	fmt.Printf("  %s %d imported, %d rejected lines\n",
		mutedStyle.Render("Events:"), s.TotalEvents, s.TotalErrors)
	fmt.Printf("  %s %s\n", mutedStyle.Render("Time:"), titleStyle.Render(formatDuration(s.Elapsed)))

	for _, f := range s.Files {
		switch {
		case f.Skipped:
			fmt.Printf("  %s %s\n", mutedStyle.Render("↷"), mutedStyle.Render(f.Filename+" (already imported)"))
		case f.Failed:
			fmt.Printf("  %s %s %s\n", accentStyle.Render("✗"), f.Filename, mutedStyle.Render(f.FailReason))
		default:
			fmt.Printf("  %s %s %s\n", successStyle.Render("✓"), f.Filename,
				mutedStyle.Render(fmt.Sprintf("(%d events, %d errors)", f.EventCount, f.ErrorCount)))
		}
	}

	if s.Message != "" {
		fmt.Println()
		fmt.Println(mutedStyle.Render("  " + s.Message))
	}
	fmt.Println()
}

// PrintFileResult prints a one-line update for watch mode.
func PrintFileResult(r model.FileResult) {
	if r.Failed {
		fmt.Printf("%s %s %s\n", accentStyle.Render("✗"), r.Filename, mutedStyle.Render(r.FailReason))
		return
	}
	fmt.Printf("%s %s %s\n", successStyle.Render("✓"), r.Filename,
		mutedStyle.Render(fmt.Sprintf("(%d events, %d errors, %s)",
			r.EventCount, r.ErrorCount, formatDuration(r.Elapsed))))
}

// ShowProgress creates the per-file progress bar for a batch run.
func ShowProgress(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
