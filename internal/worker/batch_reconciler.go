package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const ReconcileInterval = 15 * time.Minute

// BatchCounter recomputes denormalized batch question counts.
type BatchCounter interface {
	ReconcileCounts(ctx context.Context) (int64, error)
}

// BatchReconciler corrects upload_batches.question_count drift left by
// partial imports or question deletions, since imports run without a
// wrapping transaction.
type BatchReconciler struct {
	batches  BatchCounter
	interval time.Duration
	log      zerolog.Logger
}

// NewBatchReconciler creates a new BatchReconciler.
func NewBatchReconciler(batches BatchCounter, log zerolog.Logger) *BatchReconciler {
	return &BatchReconciler{
		batches:  batches,
		interval: ReconcileInterval,
		log:      log.With().Str("component", "batch_reconciler").Logger(),
	}
}

// Start begins the reconcile loop. Call in a goroutine.
func (w *BatchReconciler) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.reconcile(ctx)
		}
	}
}

func (w *BatchReconciler) reconcile(ctx context.Context) {
	fixed, err := w.batches.ReconcileCounts(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Batch count reconcile failed")
		return
	}
	if fixed > 0 {
		w.log.Info().Int64("fixed", fixed).Msg("Batch question counts corrected")
	}
}
