package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/charlymoron/trapflow/internal/model"
	"github.com/charlymoron/trapflow/pkg/catalog"
	"github.com/charlymoron/trapflow/pkg/checkpoint"
	"github.com/charlymoron/trapflow/pkg/errors"
	"github.com/charlymoron/trapflow/pkg/parser"
	"github.com/charlymoron/trapflow/pkg/sqlgen"
)

// Config holds the knobs for a pipeline run.
type Config struct {
	InputDir         string
	OutputDir        string
	Extension        string
	Workers          int
	OperatorID       int64
	IdentifierKindID int64
	SkipImported     bool
}

// Pipeline orchestrates a batch run over a directory of trap files.
type Pipeline struct {
	cfg       Config
	index     *catalog.Index
	processor *Processor
	ledger    checkpoint.Ledger
	tracer    trace.Tracer
	onFile    func(model.FileResult)
	log       zerolog.Logger
}

// New builds a pipeline bound to an identifier index.
func New(cfg Config, index *catalog.Index, log zerolog.Logger) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Extension == "" {
		cfg.Extension = ".txt"
	}
	classifier := parser.NewClassifier()
	extractor := parser.NewExtractor(classifier, index, cfg.OperatorID)
	emitter := sqlgen.NewEmitter(cfg.OutputDir)
	return &Pipeline{
		cfg:       cfg,
		index:     index,
		processor: NewProcessor(classifier, extractor, emitter, log),
		tracer:    noop.NewTracerProvider().Tracer(""),
		log:       log,
	}
}

// WithLedger enables skip-already-imported bookkeeping.
func (p *Pipeline) WithLedger(l checkpoint.Ledger) *Pipeline {
	p.ledger = l
	return p
}

// WithTracer attaches a tracer for the run and per-file spans.
func (p *Pipeline) WithTracer(t trace.Tracer) *Pipeline {
	if t != nil {
		p.tracer = t
	}
	return p
}

// WithFileCallback registers a hook invoked after each file finishes.
// Used by the CLI to drive the progress bar.
func (p *Pipeline) WithFileCallback(fn func(model.FileResult)) *Pipeline {
	p.onFile = fn
	return p
}

// Run executes a full batch over the input directory. Per-file failures
// are recorded and the run continues; only setup problems (catalogue
// unreachable, unreadable input, unwritable output) abort the run.
func (p *Pipeline) Run(ctx context.Context) (model.RunSummary, error) {
	start := time.Now()
	summary := model.RunSummary{RunID: uuid.New().String()}

	ctx, span := p.tracer.Start(ctx, "trapflow.run",
		trace.WithAttributes(attribute.String("run.id", summary.RunID)))
	defer span.End()

	log := p.log.With().Str("run_id", summary.RunID).Logger()

	if err := p.index.Load(ctx, p.cfg.IdentifierKindID); err != nil {
		summary.Message = "catalogue unavailable"
		summary.Elapsed = time.Since(start)
		return summary, err
	}

	files, err := p.DiscoverFiles()
	if err != nil {
		summary.Message = "input folder unreadable"
		summary.Elapsed = time.Since(start)
		return summary, err
	}
	if len(files) == 0 {
		summary.Message = "no trap files found to import"
		summary.Elapsed = time.Since(start)
		log.Warn().Str("dir", p.cfg.InputDir).Msg(summary.Message)
		return summary, nil
	}

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		summary.Message = "output folder unwritable"
		summary.Elapsed = time.Since(start)
		return summary, errors.Wrap(err, errors.CodeOutputDirUnwritable,
			fmt.Sprintf("cannot create output folder %s", p.cfg.OutputDir))
	}

	log.Info().Int("files", len(files)).Int("workers", p.cfg.Workers).Msg("starting batch run")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for _, path := range files {
		// honor cancellation between files; in-flight files run to completion
		if gctx.Err() != nil {
			break
		}
		path := path
		g.Go(func() error {
			result := p.processFile(gctx, path)
			mu.Lock()
			summary.Files = append(summary.Files, result)
			mu.Unlock()
			if p.onFile != nil {
				p.onFile(result)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("batch group error")
	}

	sort.Slice(summary.Files, func(i, j int) bool {
		return summary.Files[i].Filename < summary.Files[j].Filename
	})
	for _, r := range summary.Files {
		switch {
		case r.Skipped:
			summary.FilesSkipped++
		case r.Failed:
			summary.FilesFailed++
		default:
			summary.FilesProcessed++
			summary.TotalEvents += r.EventCount
			summary.TotalErrors += r.ErrorCount
			if r.SQLFile != "" {
				summary.SQLFiles = append(summary.SQLFiles, r.SQLFile)
			}
			if r.ErrorFile != "" {
				summary.ErrorFiles = append(summary.ErrorFiles, r.ErrorFile)
			}
		}
	}

	summary.Elapsed = time.Since(start)
	summary.Success = summary.FilesFailed == 0 && ctx.Err() == nil
	switch {
	case ctx.Err() != nil:
		summary.Message = "run interrupted; in-flight files were finished"
	case summary.FilesFailed > 0:
		summary.Message = fmt.Sprintf("completed with %d failed file(s)", summary.FilesFailed)
	default:
		summary.Message = fmt.Sprintf("imported %d event(s) from %d file(s)", summary.TotalEvents, summary.FilesProcessed)
	}

	span.SetAttributes(
		attribute.Int("files.processed", summary.FilesProcessed),
		attribute.Int("files.failed", summary.FilesFailed),
		attribute.Int("events.total", summary.TotalEvents),
	)

	log.Info().
		Int("processed", summary.FilesProcessed).
		Int("skipped", summary.FilesSkipped).
		Int("failed", summary.FilesFailed).
		Int("events", summary.TotalEvents).
		Int("errors", summary.TotalErrors).
		Dur("elapsed", summary.Elapsed).
		Msg("batch run finished")

	return summary, nil
}

// ProcessOne handles a single file, used by watch mode when a new trap
// file lands in the input folder. The index must already be loaded.
func (p *Pipeline) ProcessOne(ctx context.Context, path string) model.FileResult {
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return model.FileResult{
			Filename:   filepath.Base(path),
			Failed:     true,
			FailReason: err.Error(),
		}
	}
	return p.processFile(ctx, path)
}

// LoadIndex primes the identifier catalogue, for callers that process
// files incrementally instead of through Run.
func (p *Pipeline) LoadIndex(ctx context.Context) error {
	return p.index.Load(ctx, p.cfg.IdentifierKindID)
}

func (p *Pipeline) processFile(ctx context.Context, path string) model.FileResult {
	filename := filepath.Base(path)

	ctx, span := p.tracer.Start(ctx, "trapflow.file",
		trace.WithAttributes(attribute.String("file.name", filename)))
	defer span.End()

	if p.cfg.SkipImported && p.ledger != nil {
		seen, err := p.ledger.Seen(ctx, filename)
		if err != nil {
			p.log.Warn().Err(err).Str("file", filename).Msg("ledger lookup failed, processing anyway")
		} else if seen {
			p.log.Info().Str("file", filename).Msg("already imported, skipping")
			return model.FileResult{Filename: filename, Skipped: true}
		}
	}

	result := p.processor.ProcessFile(ctx, path)

	if !result.Failed && p.ledger != nil {
		if err := p.ledger.Mark(ctx, filename); err != nil {
			p.log.Warn().Err(err).Str("file", filename).Msg("failed to record import")
		}
	}

	span.SetAttributes(
		attribute.Int("file.events", result.EventCount),
		attribute.Int("file.errors", result.ErrorCount),
		attribute.Bool("file.failed", result.Failed),
	)
	return result
}

// DiscoverFiles lists importable trap files, non-recursively, sorted by
// name. Subdirectories and other extensions are ignored.
func (p *Pipeline) DiscoverFiles() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.InputDir)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInputDirUnreadable,
			fmt.Sprintf("cannot read traps folder %s", p.cfg.InputDir))
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(e.Name()), p.cfg.Extension) {
			continue
		}
		files = append(files, filepath.Join(p.cfg.InputDir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
