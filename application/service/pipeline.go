package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MekdelawitGebre/customer-experience-fintech/internal/log"
)

// BankRun reports one bank's trip through the pipeline.
type BankRun struct {
	Bank     string        `json:"bank"`
	Raw      string        `json:"raw,omitempty"`
	Clean    string        `json:"clean,omitempty"`
	Themes   string        `json:"themes,omitempty"`
	Inserted int           `json:"inserted"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Pipeline runs scrape, clean, analyze and insert for each bank in turn.
type Pipeline struct {
	scrape  *Scrape
	clean   *Clean
	analyze *Analyze
	ingest  *Ingest
	logger  *slog.Logger
}

// NewPipeline creates a Pipeline from its stages.
func NewPipeline(scrape *Scrape, clean *Clean, analyze *Analyze, ingest *Ingest, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		scrape:  scrape,
		clean:   clean,
		analyze: analyze,
		ingest:  ingest,
		logger:  logger,
	}
}

// Run processes banks sequentially. No banks means every bank with a known
// app. A failing bank is logged and the run moves on; the returned error
// reports how many banks failed.
func (p *Pipeline) Run(ctx context.Context, banks []string) ([]BankRun, error) {
	if len(banks) == 0 {
		banks = p.scrape.Banks()
	}
	ctx = log.NewCorrelationID(ctx)
	logger := p.logger.With(slog.String("correlation_id", log.CorrelationID(ctx)))

	runs := make([]BankRun, 0, len(banks))
	failed := 0
	for _, bank := range banks {
		if err := ctx.Err(); err != nil {
			return runs, err
		}
		run := p.RunBank(ctx, bank)
		if run.Err != nil {
			failed++
			logger.ErrorContext(ctx, "pipeline failed for bank",
				slog.String("bank", bank),
				slog.String("error", run.Err.Error()),
			)
		}
		runs = append(runs, run)
	}
	if failed > 0 {
		return runs, fmt.Errorf("pipeline: %d of %d banks failed", failed, len(banks))
	}
	return runs, nil
}

// RunBank takes one bank through every stage, stopping at the first error.
func (p *Pipeline) RunBank(ctx context.Context, bank string) (run BankRun) {
	start := time.Now()
	run.Bank = bank
	defer func() { run.Duration = time.Since(start) }()

	var err error
	if run.Raw, err = p.scrape.ScrapeBank(ctx, bank, 0); err != nil {
		run.Err = err
		return run
	}
	if run.Clean, err = p.clean.CleanBank(ctx, bank); err != nil {
		run.Err = err
		return run
	}
	if run.Themes, err = p.analyze.AnalyzeBank(ctx, bank); err != nil {
		run.Err = err
		return run
	}
	// Insert under the configured bank name rather than the lower-cased
	// file stem.
	if run.Inserted, err = p.ingest.IngestBank(ctx, bank, run.Themes); err != nil {
		run.Err = err
		return run
	}
	p.logger.InfoContext(ctx, "pipeline finished for bank",
		slog.String("bank", bank),
		slog.Int("inserted", run.Inserted),
	)
	return run
}
