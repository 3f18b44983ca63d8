// Package repair drains the index repair queue in the background.
package repair

import (
	"context"
	"fmt"
	"time"

	"neuronote/application/ports"

	"go.uber.org/zap"
)

// Repairer reconciles one memory's vector record with its row.
type Repairer interface {
	Repair(ctx context.Context, userID, memoryID string) (string, error)
}

// Config tunes the processor loop.
type Config struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

// Processor polls the repair queue on a ticker and runs each pending repair.
// A repair is state based, so running one that was already satisfied is
// harmless.
type Processor struct {
	queue    ports.IndexRepairQueue
	repairer Repairer
	logger   *zap.Logger
	cfg      Config

	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewProcessor creates a processor. Zero config fields take defaults.
func NewProcessor(queue ports.IndexRepairQueue, repairer Repairer, cfg Config, logger *zap.Logger) *Processor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Processor{
		queue:       queue,
		repairer:    repairer,
		logger:      logger,
		cfg:         cfg,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start begins background processing.
func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("Starting index repair processor",
		zap.Int("batchSize", p.cfg.BatchSize),
		zap.Duration("interval", p.cfg.Interval),
	)
	go p.loop(ctx)
}

// Stop signals the loop and waits for the batch in flight.
func (p *Processor) Stop() {
	p.logger.Info("Stopping index repair processor")
	close(p.stopChan)
	<-p.stoppedChan
	p.logger.Info("Index repair processor stopped")
}

func (p *Processor) loop(ctx context.Context) {
	defer close(p.stoppedChan)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			if _, _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error("Error processing repair batch", zap.Error(err))
			}
		}
	}
}

// ProcessBatch runs one batch and reports how many repairs converged and
// how many failed.
func (p *Processor) ProcessBatch(ctx context.Context) (int, int, error) {
	pending, err := p.queue.Pending(ctx, p.cfg.BatchSize, p.cfg.MaxAttempts)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load pending repairs: %w", err)
	}

	repaired, failed := 0, 0
	for _, r := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := p.process(ctx, r); err != nil {
			failed++
			continue
		}
		repaired++
	}

	if len(pending) > 0 {
		p.logger.Debug("Completed repair batch",
			zap.Int("repaired", repaired),
			zap.Int("failed", failed),
		)
	}
	return repaired, failed, nil
}

// Drain runs batches until the queue has nothing left that can be retried.
func (p *Processor) Drain(ctx context.Context) (int, int, error) {
	total, totalFailed := 0, 0
	for {
		repaired, failed, err := p.ProcessBatch(ctx)
		total += repaired
		totalFailed += failed
		if err != nil {
			return total, totalFailed, err
		}
		if repaired+failed == 0 || ctx.Err() != nil {
			return total, totalFailed, ctx.Err()
		}
	}
}

func (p *Processor) process(ctx context.Context, r ports.IndexRepair) error {
	action, err := p.repairer.Repair(ctx, r.UserID, r.MemoryID)
	if err != nil {
		attempts := r.Attempts + 1
		if ferr := p.queue.Fail(ctx, r.ID, err.Error()); ferr != nil {
			p.logger.Error("Failed to record repair failure", zap.String("repairID", r.ID), zap.Error(ferr))
		}
		if attempts >= p.cfg.MaxAttempts {
			p.logger.Warn("Index repair abandoned after max attempts",
				zap.String("memoryID", r.MemoryID),
				zap.String("userID", r.UserID),
				zap.Int("attempts", attempts),
				zap.Error(err),
			)
		}
		return err
	}

	if err := p.queue.Complete(ctx, r.ID); err != nil {
		p.logger.Error("Failed to complete repair", zap.String("repairID", r.ID), zap.Error(err))
		return err
	}
	p.logger.Debug("Repair processed",
		zap.String("memoryID", r.MemoryID),
		zap.String("action", action),
	)
	return nil
}
