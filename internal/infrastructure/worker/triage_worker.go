package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/payables-ai/invoice-triage/internal/application/port"
	"github.com/payables-ai/invoice-triage/internal/domain/entity"
	"github.com/payables-ai/invoice-triage/internal/workflow"
)

// TriageWorkerConfig holds configuration for the triage worker
type TriageWorkerConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	Concurrency    int
	ProcessTimeout time.Duration
}

// DefaultTriageWorkerConfig returns default configuration
func DefaultTriageWorkerConfig() TriageWorkerConfig {
	return TriageWorkerConfig{
		PollInterval:   10 * time.Second,
		BatchSize:      5,
		Concurrency:    3,
		ProcessTimeout: 120 * time.Second,
	}
}

// TriageWorker polls for received instances and drives each through the
// workflow engine. Instances are claimed before processing so multiple
// workers never share one.
type TriageWorker struct {
	config TriageWorkerConfig

	instances port.InstanceRepository
	engine    *workflow.Engine
	logger    *zap.Logger

	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	isRunning      bool
	processedCount int
	failedCount    int
	lastError      error
}

// NewTriageWorker creates a new triage worker
func NewTriageWorker(
	config TriageWorkerConfig,
	instances port.InstanceRepository,
	engine *workflow.Engine,
	logger *zap.Logger,
) *TriageWorker {
	return &TriageWorker{
		config:    config,
		instances: instances,
		engine:    engine,
		logger:    logger,
	}
}

// Start begins the worker polling loop
func (w *TriageWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("triage worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("TriageWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize),
		zap.Int("concurrency", w.config.Concurrency))

	go w.pollLoop()
	return nil
}

// Stop gracefully terminates the worker
func (w *TriageWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	w.logger.Info("TriageWorker stopped",
		zap.Int("processed_count", w.processedCount),
		zap.Int("failed_count", w.failedCount))
	return nil
}

// Name returns the worker name for identification
func (w *TriageWorker) Name() string {
	return "TriageWorker"
}

func (w *TriageWorker) pollLoop() {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Poll loop context cancelled")
			return

		case <-ticker.C:
			if err := w.processBatch(); err != nil {
				w.mu.Lock()
				w.lastError = err
				w.mu.Unlock()
				w.logger.Error("Failed to process batch", zap.Error(err))
			}
		}
	}
}

// processBatch claims pending instances and processes them with bounded
// concurrency.
func (w *TriageWorker) processBatch() error {
	claimed, err := w.instances.ClaimPending(w.ctx, w.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending instances: %w", err)
	}
	if len(claimed) == 0 {
		return nil
	}

	w.logger.Info("Claimed pending instances", zap.Int("count", len(claimed)))

	sem := make(chan struct{}, w.config.Concurrency)
	var wg sync.WaitGroup
	for _, inst := range claimed {
		wg.Add(1)
		go func(inst *entity.WorkflowInstance) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			w.processInstance(inst)
		}(inst)
	}
	wg.Wait()
	return nil
}

func (w *TriageWorker) processInstance(inst *entity.WorkflowInstance) {
	ctx, cancel := context.WithTimeout(w.ctx, w.config.ProcessTimeout)
	defer cancel()

	w.logger.Info("Processing instance",
		zap.String("instance_id", inst.ID),
		zap.String("document_path", inst.DocumentPath))

	err := w.engine.Process(ctx, inst)

	w.mu.Lock()
	if err != nil {
		w.failedCount++
		w.lastError = err
	} else {
		w.processedCount++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Instance processing failed",
			zap.String("instance_id", inst.ID),
			zap.Error(err))
		return
	}

	w.logger.Info("Instance processed",
		zap.String("instance_id", inst.ID),
		zap.String("state", string(inst.State)),
		zap.String("outcome", inst.Outcome))
}
