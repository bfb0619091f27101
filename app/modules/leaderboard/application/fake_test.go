package leaderboardservice

import (
	"context"

	leaderboarddb "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Leaderboard Repo
// ------------------------

type FakeLeaderboardRepo struct {
	calls                int
	ListStandingRowsFunc func(ctx context.Context, db bun.IDB) ([]leaderboarddb.StandingRow, error)
}

func (f *FakeLeaderboardRepo) ListStandingRows(ctx context.Context, db bun.IDB) ([]leaderboarddb.StandingRow, error) {
	f.calls++
	if f.ListStandingRowsFunc != nil {
		return f.ListStandingRowsFunc(ctx, db)
	}
	return nil, nil
}

var _ leaderboarddb.Repository = (*FakeLeaderboardRepo)(nil)
