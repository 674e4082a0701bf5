// Package embedding backfills report embeddings in the background. Reports
// whose in-line embedding failed at submission time, or whose vector was
// computed with an older model version, are picked up here.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/civiclens/civiclens/plugin/ai"
	"github.com/civiclens/civiclens/plugin/ai/dedup"
	"github.com/civiclens/civiclens/store"
)

// EmbeddingProvider hands out the embedding service once it is ready.
// *ai.Runtime satisfies it.
type EmbeddingProvider interface {
	Service() (ai.EmbeddingService, error)
}

type Runner struct {
	store     *store.Store
	runtime   EmbeddingProvider
	interval  time.Duration
	batchSize int

	// limiter spaces out provider calls so the backfill never starves
	// interactive duplicate checks.
	limiter *rate.Limiter
}

// NewRunner creates a report embedding runner.
func NewRunner(store *store.Store, runtime EmbeddingProvider) *Runner {
	return &Runner{
		store:     store,
		runtime:   runtime,
		interval:  2 * time.Minute,
		batchSize: 8,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Run starts the background task.
func (r *Runner) Run(ctx context.Context) {
	// Process once on startup
	r.processPendingReports(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.processPendingReports(ctx)
		case <-ctx.Done():
			slog.Info("embedding runner stopped")
			return
		}
	}
}

// RunOnce processes pending reports once (for manual trigger).
func (r *Runner) RunOnce(ctx context.Context) {
	r.processPendingReports(ctx)
}

func (r *Runner) processPendingReports(ctx context.Context) {
	embedding, err := r.runtime.Service()
	if err != nil {
		// Not ready yet; try again next tick.
		return
	}

	reports, err := r.store.ListReportsWithoutEmbedding(ctx, embedding.Version(), r.batchSize*20)
	if err != nil {
		slog.Error("failed to find reports without embedding", "error", err)
		return
	}
	if len(reports) == 0 {
		return
	}

	slog.Info("processing reports for embedding", "count", len(reports))

	for i := 0; i < len(reports); i += r.batchSize {
		select {
		case <-ctx.Done():
			slog.Info("embedding backfill cancelled", "processed", i, "total", len(reports))
			return
		default:
		}

		end := i + r.batchSize
		if end > len(reports) {
			end = len(reports)
		}
		batch := reports[i:end]

		if err := r.processBatch(ctx, embedding, batch); err != nil {
			slog.Error("failed to process batch", "error", err)
			continue
		}
		slog.Info("batch processed", "count", len(batch), "progress", fmt.Sprintf("%d/%d", end, len(reports)))
	}
}

func (r *Runner) processBatch(ctx context.Context, embedding ai.EmbeddingService, reports []*store.Report) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	texts := make([]string, len(reports))
	for i, report := range reports {
		texts[i] = dedup.BuildEmbeddingText(report.Title, report.Category, report.Description, report.Location)
	}

	vectors, err := embedding.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(reports) {
		return fmt.Errorf("embedding batch size mismatch: got %d vectors for %d reports", len(vectors), len(reports))
	}

	for i, report := range reports {
		err := r.store.UpdateReportEmbedding(ctx, &store.UpdateReportEmbedding{
			ID:               report.ID,
			Embedding:        vectors[i],
			EmbeddingVersion: embedding.Version(),
		})
		if err != nil {
			// Persistence is best-effort: log and move on, the report
			// stays pending for the next pass.
			slog.Error("failed to persist report embedding", "report", report.ID, "error", err)
		}
	}
	return nil
}
