package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/charlymoron/trapflow/internal/model"
	"github.com/charlymoron/trapflow/pkg/parser"
	"github.com/charlymoron/trapflow/pkg/sqlgen"
)

// maxLineSize bounds a single trap line; vendor logs occasionally glue
// records together and the scanner must not abort the whole file.
const maxLineSize = 1024 * 1024

// Processor runs the per-file stage: filter, extract, dedupe, emit.
type Processor struct {
	classifier *parser.Classifier
	extractor  *parser.Extractor
	emitter    *sqlgen.Emitter
	log        zerolog.Logger
}

// NewProcessor wires the per-file stage together.
func NewProcessor(classifier *parser.Classifier, extractor *parser.Extractor, emitter *sqlgen.Emitter, log zerolog.Logger) *Processor {
	return &Processor{
		classifier: classifier,
		extractor:  extractor,
		emitter:    emitter,
		log:        log,
	}
}

// ProcessFile processes one trap file end to end. Line-level problems
// become entries in the error report; only file-level I/O failures mark
// the result as failed, and even those never abort the caller's run.
func (p *Processor) ProcessFile(ctx context.Context, path string) model.FileResult {
	start := time.Now()
	filename := filepath.Base(path)
	result := model.FileResult{Filename: filename}

	log := p.log.With().Str("file", filename).Logger()
	log.Info().Msg("processing trap file")

	useful, err := p.usefulLines(path)
	if err != nil {
		log.Error().Err(err).Msg("failed to read trap file")
		result.Failed = true
		result.FailReason = err.Error()
		result.Elapsed = time.Since(start)
		return result
	}

	var (
		events []model.Event
		errs   []model.ProcessingError
	)
	for _, line := range useful {
		ev, reason := p.extractor.Extract(ctx, line)
		if reason != parser.FailNone {
			errs = append(errs, model.ProcessingError{Line: line, Reason: reason.String()})
			continue
		}
		events = append(events, ev)
	}

	unique := Dedupe(events)

	sqlPath, err := p.emitter.WriteSQL(unique, filename)
	if err != nil {
		log.Error().Err(err).Msg("failed to write SQL script")
		result.Failed = true
		result.FailReason = err.Error()
		result.Elapsed = time.Since(start)
		return result
	}

	errPath, err := p.emitter.WriteErrors(errs, filename)
	if err != nil {
		// the script is already out; keep the result but surface the miss
		log.Error().Err(err).Msg("failed to write error report")
		result.Failed = true
		result.FailReason = err.Error()
	}

	result.EventCount = len(unique)
	result.ErrorCount = len(errs)
	result.SQLFile = sqlPath
	result.ErrorFile = errPath
	result.Elapsed = time.Since(start)

	log.Info().
		Int("events", result.EventCount).
		Int("errors", result.ErrorCount).
		Dur("elapsed", result.Elapsed).
		Msg("trap file processed")

	return result
}

// usefulLines reads the file and keeps only lines carrying an up/down
// marker. Undecodable bytes are dropped rather than failing the file,
// matching how the feed's mixed encodings have always been handled.
func (p *Processor) usefulLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var useful []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		raw := scanner.Bytes()
		if !utf8.Valid(raw) {
			raw = bytes.ToValidUTF8(raw, nil)
		}
		line := strings.TrimSpace(string(raw))
		if line == "" {
			continue
		}
		if p.classifier.IsUseful(line) {
			useful = append(useful, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	p.log.Debug().Str("file", filepath.Base(path)).Int("useful_lines", len(useful)).Msg("file scanned")
	return useful, nil
}
