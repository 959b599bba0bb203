// Package main is the entry point for the proposal-extract CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/core"
	"github.com/joseph-ayodele/proposal-extractor/internal/core/pipeline"
	"github.com/joseph-ayodele/proposal-extractor/internal/core/raster"
	"github.com/joseph-ayodele/proposal-extractor/internal/ingest"
	"github.com/joseph-ayodele/proposal-extractor/internal/llm/backend"
	"github.com/joseph-ayodele/proposal-extractor/internal/repository"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "proposal-extract",
	Short: "Extract structured deal data from proposal PDFs and images",
	Long: `proposal-extract renders proposal documents to page images, asks a
vision-capable model for client, project and line-item fields, validates the
reply and reconciles line-item prices against the grand total.

Configuration comes from ./proposal-extract.yaml (or --config), a .env file
and PROPOSAL_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		c, err := common.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			c.Log.Level = lvl
		}
		cfg = c
		logger = common.NewLogger(os.Stderr, cfg.Log)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./proposal-extract.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "debug | info | warn | error (overrides config)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired collaborators a command needs.
type app struct {
	db        *repository.DB
	runs      repository.ExtractionRunRepository
	processor *core.Processor
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// newApp validates config and wires the pipeline. The journal is opened only
// when database.dsn is set.
func newApp(ctx context.Context) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	completer, err := backend.New(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("llm backend: %w", err)
	}
	rasterizer := raster.NewPDFRasterizer(raster.Config{
		Pdftoppm:      cfg.Raster.Pdftoppm,
		HeicConverter: cfg.Raster.HeicConverter,
		DPI:           cfg.Raster.DPI,
		ScratchDir:    cfg.Raster.ScratchDir,
	}, raster.ExecRunner{}, logger)
	p := pipeline.New(pipeline.Config{
		MaxPages:    cfg.Raster.MaxPages,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}, rasterizer, completer, logger)

	a := &app{}
	if cfg.Database.DSN != "" {
		db, err := openJournal(ctx)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.runs = repository.NewExtractionRunRepository(db, logger)
	}

	fetcher := ingest.NewFetcher(cfg.Storage, logger)
	a.processor = core.NewProcessor(logger, fetcher, p, a.runs, cfg.Raster.MaxPages)
	return a, nil
}

func openJournal(ctx context.Context) (*repository.DB, error) {
	db, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return db, nil
}

func newRunRepo(db *repository.DB) repository.ExtractionRunRepository {
	return repository.NewExtractionRunRepository(db, logger)
}
