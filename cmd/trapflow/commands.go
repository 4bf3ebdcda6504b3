package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/charlymoron/trapflow/internal/model"
	"github.com/charlymoron/trapflow/pkg/catalog"
	"github.com/charlymoron/trapflow/pkg/checkpoint"
	"github.com/charlymoron/trapflow/pkg/config"
	trferrors "github.com/charlymoron/trapflow/pkg/errors"
	"github.com/charlymoron/trapflow/pkg/logging"
	"github.com/charlymoron/trapflow/pkg/pipeline"
	"github.com/charlymoron/trapflow/pkg/report"
	"github.com/charlymoron/trapflow/pkg/telemetry"
	"github.com/charlymoron/trapflow/pkg/tui"
	"github.com/charlymoron/trapflow/pkg/watch"
)

// loadConfig merges config files, env vars and CLI flags.
func loadConfig() (*config.Config, error) {
	mgr := config.NewManager()
	if err := mgr.Load(); err != nil {
		return nil, err
	}
	cfg := mgr.Get()

	if inputDir != "" {
		cfg.Input.Dir = inputDir
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if catalogDSN != "" {
		cfg.Catalog.DSN = catalogDSN
	}
	if snapshotPath != "" {
		cfg.Catalog.Snapshot = snapshotPath
	}
	if workers > 0 {
		cfg.Process.Workers = workers
	}
	if operatorID > 0 {
		cfg.Process.OperatorID = operatorID
	}
	if skipImported {
		cfg.Process.SkipImported = true
	}
	if writeReport {
		cfg.Output.Report = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logging.New(level, cfg.Log.File)
}

// openStore picks the catalogue backend. A CSV snapshot takes
// precedence over the live DSN so field laptops can run offline.
func openStore(ctx context.Context, cfg *config.Config) (catalog.Store, error) {
	if cfg.Catalog.Snapshot != "" {
		return catalog.OpenSnapshot(cfg.Catalog.Snapshot)
	}
	if cfg.Catalog.DSN != "" {
		return catalog.OpenSQLServer(ctx, cfg.Catalog.DSN)
	}
	return nil, trferrors.New(trferrors.CodeCatalogUnavailable,
		"no catalogue configured: set catalog.dsn or catalog.snapshot")
}

func openLedger(ctx context.Context, cfg *config.Config) (checkpoint.Ledger, error) {
	switch cfg.Checkpoint.Backend {
	case "redis":
		rc := checkpoint.DefaultRedisConfig(cfg.Checkpoint.Redis.Address)
		rc.Password = cfg.Checkpoint.Redis.Password
		rc.Database = cfg.Checkpoint.Redis.Database
		if cfg.Checkpoint.Redis.Prefix != "" {
			rc.Prefix = cfg.Checkpoint.Redis.Prefix
		}
		return checkpoint.OpenRedisLedger(ctx, rc)
	default:
		return checkpoint.OpenFileLedger(cfg.Checkpoint.Path)
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted, finishing in-flight files...")
		cancel()
	}()

	return ctx, cancel
}

func buildPipeline(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pipeline.Pipeline, func(), error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	ledger, err := openLedger(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	index := catalog.NewIndex(store, log)
	p := pipeline.New(pipeline.Config{
		InputDir:         cfg.Input.Dir,
		OutputDir:        cfg.Output.Dir,
		Extension:        cfg.Input.Extension,
		Workers:          cfg.Process.Workers,
		OperatorID:       cfg.Process.OperatorID,
		IdentifierKindID: cfg.Catalog.IdentifierKindID,
		SkipImported:     cfg.Process.SkipImported,
	}, index, log).WithLedger(ledger)

	cleanup := func() {
		ledger.Close()
		store.Close()
	}

	if cfg.Telemetry.Enabled {
		otlpCfg := telemetry.DefaultOTLPConfig(version)
		if cfg.Telemetry.Endpoint != "" {
			otlpCfg.Endpoint = cfg.Telemetry.Endpoint
		}
		exporter := telemetry.NewOTLPExporter(otlpCfg)
		shutdown, err := exporter.Init(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("telemetry disabled, exporter init failed")
		} else {
			p.WithTracer(exporter.Tracer())
			prev := cleanup
			cleanup = func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), otlpCfg.ExportTimeout)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("telemetry shutdown failed")
				}
				prev()
			}
		}
	}

	return p, cleanup, nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	p, cleanup, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	tui.PrintHeader(rootCmd.Version)

	files, err := p.DiscoverFiles()
	if err != nil {
		return err
	}
	bar := tui.ShowProgress(int64(len(files)), "importing")
	p.WithFileCallback(func(_ model.FileResult) {
		bar.Add(1)
	})

	summary, err := p.Run(ctx)
	bar.Finish()
	tui.PrintRunSummary(summary)
	if err != nil {
		return err
	}

	if cfg.Output.Report {
		reportPath := filepath.Join(cfg.Output.Dir, "RunReport-"+summary.RunID+".xlsx")
		if err := report.WriteRunReport(reportPath, summary); err != nil {
			log.Error().Err(err).Msg("failed to write run report")
		} else {
			fmt.Println("  Report:", reportPath)
		}
	}

	if !summary.Success {
		return fmt.Errorf("import incomplete: %s", summary.Message)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// watch mode always consults the ledger: the same upload can fire
	// several filesystem events
	cfg.Process.SkipImported = true
	log := newLogger(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	p, cleanup, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := p.LoadIndex(ctx); err != nil {
		return err
	}

	watcher, err := watch.NewWatcher(cfg.Input.Dir, cfg.Input.Extension)
	if err != nil {
		return err
	}
	defer watcher.Close()

	watcher.OnFile = func(path string) {
		result := p.ProcessOne(ctx, path)
		tui.PrintFileResult(result)
	}
	watcher.OnError = func(err error) {
		log.Error().Err(err).Msg("watch error")
	}

	tui.PrintHeader(rootCmd.Version)
	fmt.Printf("  Watching %s for %s files...\n\n", cfg.Input.Dir, cfg.Input.Extension)

	log.Info().Str("dir", cfg.Input.Dir).Msg("watch mode started")
	if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	ledger, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer ledger.Close()

	entries, err := os.ReadDir(cfg.Input.Dir)
	if err != nil {
		return trferrors.Wrap(err, trferrors.CodeInputDirUnreadable,
			fmt.Sprintf("cannot read traps folder %s", cfg.Input.Dir))
	}

	var pending, imported []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), cfg.Input.Extension) {
			continue
		}
		seen, err := ledger.Seen(ctx, e.Name())
		if err != nil {
			return err
		}
		if seen {
			imported = append(imported, e.Name())
		} else {
			pending = append(pending, e.Name())
		}
	}

	fmt.Printf("Traps folder:   %s\n", cfg.Input.Dir)
	fmt.Printf("Output folder:  %s\n", cfg.Output.Dir)
	fmt.Printf("Pending files:  %d\n", len(pending))
	fmt.Printf("Imported files: %d\n", len(imported))
	for _, name := range pending {
		fmt.Printf("  pending  %s\n", name)
	}
	return nil
}
