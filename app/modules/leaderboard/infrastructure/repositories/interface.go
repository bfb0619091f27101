package leaderboarddb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository is the read side the leaderboard is computed from.
type Repository interface {
	// ListStandingRows returns every ledger row joined with its run. No run filter.
	ListStandingRows(ctx context.Context, db bun.IDB) ([]StandingRow, error)
}
