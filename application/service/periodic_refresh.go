package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner runs the pipeline for banks. *Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, banks []string) ([]BankRun, error)
}

// Invalidator drops a cached dataset. *Dashboard implements it.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// PeriodicRefresh re-runs the pipeline on a timer while the dashboard is
// served, then drops the cached dataset so the next page load reads the
// new rows.
type PeriodicRefresh struct {
	runner      Runner
	invalidator Invalidator
	banks       []string
	interval    time.Duration
	logger      *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPeriodicRefresh creates a PeriodicRefresh. A non-positive interval
// disables it. No banks means every bank the pipeline knows.
func NewPeriodicRefresh(runner Runner, invalidator Invalidator, banks []string, interval time.Duration, logger *slog.Logger) *PeriodicRefresh {
	return &PeriodicRefresh{
		runner:      runner,
		invalidator: invalidator,
		banks:       banks,
		interval:    interval,
		logger:      logger,
	}
}

// Enabled reports whether Start will schedule runs.
func (p *PeriodicRefresh) Enabled() bool { return p.interval > 0 }

// Start runs the pipeline in a background goroutine every interval. The
// first run waits one interval. If disabled, this is a no-op.
func (p *PeriodicRefresh) Start(ctx context.Context) {
	if !p.Enabled() {
		p.logger.Debug("periodic refresh disabled")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Go(func() {
		p.run(ctx)
	})

	p.logger.Info("periodic refresh started", slog.Duration("interval", p.interval))
}

// Stop cancels the background goroutine and waits for it to finish.
func (p *PeriodicRefresh) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
	p.logger.Info("periodic refresh stopped")
}

func (p *PeriodicRefresh) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh runs the pipeline once and invalidates the dataset when at least
// one bank stored new rows.
func (p *PeriodicRefresh) Refresh(ctx context.Context) {
	runs, err := p.runner.Run(ctx, p.banks)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.Warn("periodic refresh incomplete", slog.String("error", err.Error()))
	}

	inserted := 0
	for _, r := range runs {
		inserted += r.Inserted
	}
	if inserted == 0 {
		p.logger.Debug("periodic refresh stored nothing")
		return
	}
	if err := p.invalidator.Invalidate(ctx); err != nil {
		p.logger.Warn("periodic refresh failed to invalidate dataset", slog.String("error", err.Error()))
		return
	}
	p.logger.Info("periodic refresh finished", slog.Int("inserted", inserted))
}
