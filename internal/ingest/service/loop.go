package service

import (
	"context"
	"log/slog"
	"time"
)

// every runs fn immediately and then on each tick until ctx is done. Errors are
// logged and the loop continues.
func every(ctx context.Context, logger *slog.Logger, name string, interval time.Duration, fn func(ctx context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			logger.ErrorContext(ctx, name+" failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
