package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/payables-ai/invoice-triage/internal/config"
	"github.com/payables-ai/invoice-triage/internal/export"
	"github.com/payables-ai/invoice-triage/internal/extract"
	openaiext "github.com/payables-ai/invoice-triage/internal/infrastructure/external/openai"
	"github.com/payables-ai/invoice-triage/internal/infrastructure/persistence/repository"
	"github.com/payables-ai/invoice-triage/internal/infrastructure/worker"
	httpiface "github.com/payables-ai/invoice-triage/internal/interfaces/http"
	"github.com/payables-ai/invoice-triage/internal/triage"
	"github.com/payables-ai/invoice-triage/internal/validation"
	"github.com/payables-ai/invoice-triage/internal/workflow"
	"github.com/payables-ai/invoice-triage/pkg/database"
	"github.com/payables-ai/invoice-triage/pkg/utils"
)

func main() {
	// Local .env for development; ignored when absent
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting invoice triage service",
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories and lookup stores
	instanceRepo := repository.NewInstanceRepository(db.DB, logger)
	if n, err := instanceRepo.ResetStaleClaims(context.Background()); err != nil {
		logger.Fatal("Failed to reset stale claims", zap.Error(err))
	} else if n > 0 {
		logger.Warn("Released stale instance claims from a previous run",
			zap.Int64("count", n))
	}
	resultRepo := repository.NewResultRepository(db.DB, logger)
	vendorRepo := repository.NewVendorRepository(db.DB, logger)
	poRepo := repository.NewPurchaseOrderRepository(db.DB, logger)
	invoiceRepo := repository.NewInvoiceRepository(db.DB, logger)

	// Validation pipeline
	catalog := validation.NewCatalog(validation.CatalogConfig{
		Tolerance:           decimal.NewFromFloat(cfg.Validation.Tolerance),
		RequiredFields:      cfg.Validation.RequiredFields,
		MaxLineItems:        cfg.Validation.MaxLineItems,
		TaxRates:            cfg.Validation.TaxRates,
		POTolerancePct:      cfg.Validation.POTolerancePct,
		GRNTolerancePct:     cfg.Validation.GRNTolerancePct,
		MaxAgeDays:          cfg.Validation.MaxAgeDays,
		AmountCeiling:       decimal.NewFromFloat(cfg.Validation.AmountCeiling),
		DuplicateConfidence: cfg.Validation.DuplicateConfidence,
		DisabledRules:       cfg.Validation.DisabledRules,
		Version:             cfg.Validation.RulesVersion,
	})
	executor := validation.NewExecutor(validation.Lookups{
		Vendors:  vendorRepo,
		Orders:   poRepo,
		Invoices: invoiceRepo,
	}, cfg.Validation.LookupTimeout, logger)
	mapper := validation.NewMapper(logger)
	aggregator := validation.NewAggregator(catalog, executor, mapper,
		cfg.Validation.StrictMode, cfg.Validation.MaxWorkers, logger)

	// Triage decision engine
	decider := triage.NewEngine(cfg.Triage.AutoApproveThreshold, cfg.Triage.ValidationThreshold)

	// LLM adapters
	extractor := extract.NewVisionExtractor(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger)
	patcher := openaiext.NewFieldPatcher(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Temperature, logger)

	// Export staging
	stager := export.NewProposalWriter(cfg.Export.OutputDir, vendorRepo, invoiceRepo, logger)

	// Workflow engine
	retry := &workflow.RetryStrategy{
		MaxRetries: cfg.Workflow.MaxRetries,
		BaseDelay:  cfg.Workflow.BaseBackoff,
		MaxDelay:   cfg.Workflow.MaxBackoff,
	}
	engine := workflow.NewEngine(
		extractor,
		aggregator,
		decider,
		patcher,
		instanceRepo,
		resultRepo,
		stager,
		retry,
		logger,
	)

	// Background workers
	manager := worker.NewManager(logger)
	manager.Register(worker.NewTriageWorker(worker.TriageWorkerConfig{
		PollInterval:   cfg.Worker.PollInterval,
		BatchSize:      cfg.Worker.ClaimBatch,
		Concurrency:    cfg.Worker.PoolSize,
		ProcessTimeout: cfg.OpenAI.Timeout,
	}, instanceRepo, engine, logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// HTTP server
	server := httpiface.NewServer(httpiface.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, engine, instanceRepo, resultRepo, cfg.Workflow.MaxRetries, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	cancel()
	if err := manager.StopAll(); err != nil {
		logger.Error("Failed to stop workers", zap.Error(err))
	}
	if err := server.Stop(); err != nil {
		logger.Error("Failed to stop server", zap.Error(err))
	}

	logger.Info("Server exited")
}
