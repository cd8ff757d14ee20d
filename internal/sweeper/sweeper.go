// Package sweeper runs the 60-second link-code expiry sweep as a
// background-ticker goroutine, driven by a context for shutdown instead
// of an internal cancel func.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/splenwilz/clipslot/internal/store"
)

const interval = 60 * time.Second

// Run sweeps expired link codes every interval until ctx is canceled.
// Intended to be started as `go sweeper.Run(ctx, st, log)` from main.
func Run(ctx context.Context, st *store.Store, log zerolog.Logger) {
	log = log.With().Str("component", "sweeper").Logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := st.SweepExpiredLinkCodes()
			if err != nil {
				log.Error().Err(err).Msg("failed to sweep expired link codes")
				continue
			}
			if n > 0 {
				log.Info().Int64("count", n).Msg("swept expired link codes")
			}
		}
	}
}
