package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driving"
	"github.com/custodia-labs/leasequery/internal/logger"
)

// defaultSweepInterval is how often the pending list is rescanned for
// jobs whose notification was dropped.
const defaultSweepInterval = 30 * time.Second

// AutoProcessor processes admitted files one at a time, in admission order.
// It is the single consumer of the pending registry.
type AutoProcessor struct {
	mode      domain.IngestionMode
	registry  driving.RegistryService
	ingestion driving.IngestionService
	notifier  driving.NotificationService
	interval  time.Duration
	onResult  func(*domain.ProcessResult)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewAutoProcessor creates an auto processor running mode.
// onResult, if set, is called after every run.
func NewAutoProcessor(
	mode domain.IngestionMode,
	registry driving.RegistryService,
	ingestion driving.IngestionService,
	notifier driving.NotificationService,
	onResult func(*domain.ProcessResult),
) *AutoProcessor {
	return &AutoProcessor{
		mode:      mode,
		registry:  registry,
		ingestion: ingestion,
		notifier:  notifier,
		interval:  defaultSweepInterval,
		onResult:  onResult,
	}
}

// SetSweepInterval sets how often pending jobs are rescanned.
func (p *AutoProcessor) SetSweepInterval(d time.Duration) {
	if d > 0 {
		p.interval = d
	}
}

// Start runs the consumer loop. It blocks until Stop is called or ctx ends.
func (p *AutoProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil // Already running
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
		close(doneCh)
	}()

	var notes <-chan domain.Notification
	if p.notifier != nil {
		ch, cancel := p.notifier.Subscribe(16)
		defer cancel()
		notes = ch
	}

	logger.Info("Auto-processing new files in %s mode", p.mode)

	// Drain anything admitted before the loop started
	p.drain(ctx, stopCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-notes:
			p.drain(ctx, stopCh)
		case <-ticker.C:
			p.drain(ctx, stopCh)
		}
	}
}

// Stop ends the loop after the current run completes.
func (p *AutoProcessor) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopCh)
	doneCh := p.doneCh
	p.mu.Unlock()

	<-doneCh
	return nil
}

// drain processes every pending job in admission order.
func (p *AutoProcessor) drain(ctx context.Context, stopCh <-chan struct{}) {
	for _, job := range p.registry.ListPending() {
		if job.State != domain.JobStatePending {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		result := p.ingestion.Process(ctx, job.Path, p.mode, domain.ProcessOptions{})
		if p.onResult != nil {
			p.onResult(result)
		}
	}
}
