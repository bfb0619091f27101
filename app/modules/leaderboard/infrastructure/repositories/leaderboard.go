package leaderboarddb

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new leaderboard repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// ListStandingRows reads the whole ledger in one pass. Aggregation happens in Go
// so ranking and name resolution stay in one place.
func (r *Impl) ListStandingRows(ctx context.Context, db bun.IDB) ([]StandingRow, error) {
	db = r.resolveDB(db)
	var rows []StandingRow
	err := db.NewSelect().
		TableExpr("station_results AS sr").
		Join("JOIN game_runs AS gr ON gr.run_id = sr.run_id").
		ColumnExpr("sr.run_id, sr.station_key, sr.score, sr.updated_at").
		ColumnExpr("COALESCE(sr.meta->>'team_name', '') AS meta_team_name").
		ColumnExpr("gr.team_name AS run_team_name").
		ColumnExpr("gr.created_at AS run_created_at").
		OrderExpr("sr.run_id ASC, sr.updated_at ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list standing rows: %w", err)
	}
	return rows, nil
}
