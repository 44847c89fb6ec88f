package wire

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyang/prompt-manager/internal/adapter/memory"
)

// startSweeper drops expired idempotency responses every interval until ctx ends.
func startSweeper(ctx context.Context, cache *memory.Cache, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := cache.Sweep(); n > 0 {
					slog.Debug("idempotency sweep", "removed", n)
				}
			}
		}
	}()
}
