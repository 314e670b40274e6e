package user

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const unverifiedMaxAge = 7 * 24 * time.Hour

// RunCleanupLoop aligns to the next UTC midnight, runs cleanup once, then repeats every 24 hours until ctx is
// cancelled. It deletes unverified accounts older than seven days and purges tombstoned rows, per §4.4's scheduled
// cleanup rule.
func RunCleanupLoop(ctx context.Context, repo *Repository, logger zerolog.Logger) {
	wait := time.Until(nextUTCMidnight(time.Now().UTC()))
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	runCleanupOnce(ctx, repo, logger)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCleanupOnce(ctx, repo, logger)
		}
	}
}

func nextUTCMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

func runCleanupOnce(ctx context.Context, repo *Repository, logger zerolog.Logger) {
	nowMS := time.Now().UnixMilli()
	deleted, err := repo.DeleteUnverified(ctx, nowMS, unverifiedMaxAge.Milliseconds())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to delete unverified users")
	} else if deleted > 0 {
		logger.Info().Int64("count", deleted).Msg("Deleted unverified users")
	}

	purged, err := repo.PurgeDeleted(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to purge tombstoned users")
	} else if purged > 0 {
		logger.Info().Int64("count", purged).Msg("Purged tombstoned users")
	}
}
