package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const TokenSweepInterval = 1 * time.Hour

// TokenStore deletes expired unused registration tokens.
type TokenStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenSweeper periodically deletes expired unused registration tokens
// so the token list stays short and leaked tokens go stale.
type TokenSweeper struct {
	tokens   TokenStore
	interval time.Duration
	log      zerolog.Logger
}

// NewTokenSweeper creates a new TokenSweeper.
func NewTokenSweeper(tokens TokenStore, log zerolog.Logger) *TokenSweeper {
	return &TokenSweeper{
		tokens:   tokens,
		interval: TokenSweepInterval,
		log:      log.With().Str("component", "token_sweeper").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *TokenSweeper) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *TokenSweeper) sweep(ctx context.Context) {
	deleted, err := w.tokens.DeleteExpired(ctx, time.Now())
	if err != nil {
		w.log.Error().Err(err).Msg("Token sweep failed")
		return
	}
	if deleted > 0 {
		w.log.Info().Int64("deleted", deleted).Msg("Expired registration tokens removed")
	}
}
