package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ResyncProcessorConfig holds configuration for the resync processor
type ResyncProcessorConfig struct {
	// PollInterval is how often to retry pending entries (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of pending entries to retry per cycle
	// (default: 10)
	BatchSize int
}

// DefaultResyncProcessorConfig returns sensible defaults
func DefaultResyncProcessorConfig() ResyncProcessorConfig {
	return ResyncProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
	}
}

// ResyncProcessor periodically retries pending ledger entries against the
// remote collaborator so entries retained after a failed create eventually
// become durable.
type ResyncProcessor struct {
	service *LedgerService
	config  ResyncProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewResyncProcessor creates a new resync processor
func NewResyncProcessor(service *LedgerService, config ResyncProcessorConfig) *ResyncProcessor {
	return &ResyncProcessor{
		service: service,
		config:  config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *ResyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("resync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Resync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ResyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Resync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Resync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *ResyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// runLoop is the main processing loop
func (p *ResyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.resyncBatch(ctx)
		}
	}
}

// resyncBatch retries one batch of pending entries
func (p *ResyncProcessor) resyncBatch(ctx context.Context) {
	if p.service.Store().PendingCount() == 0 {
		return
	}

	confirmed, err := p.service.Resync(ctx, p.config.BatchSize)
	if err != nil {
		slog.WarnContext(ctx, "Resync cycle incomplete",
			"confirmed", confirmed,
			"error", err)
		return
	}
	if confirmed > 0 {
		slog.InfoContext(ctx, "Resynced pending transactions", "confirmed", confirmed)
	}
}
