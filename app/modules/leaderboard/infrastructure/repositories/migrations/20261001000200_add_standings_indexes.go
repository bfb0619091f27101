package leaderboardmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Adding standings query indexes...")

		// Grouping scan for the board
		_, err := db.NewRaw(`
			CREATE INDEX IF NOT EXISTS idx_station_results_run_updated
			ON station_results (run_id, updated_at ASC)
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("create idx_station_results_run_updated: %w", err)
		}

		// Team name lookups for search
		_, err = db.NewRaw(`
			CREATE INDEX IF NOT EXISTS idx_game_runs_team_name_lower
			ON game_runs (LOWER(team_name))
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("create idx_game_runs_team_name_lower: %w", err)
		}

		fmt.Println("Standings query indexes created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping standings query indexes...")

		_, _ = db.NewRaw("DROP INDEX IF EXISTS idx_station_results_run_updated").Exec(ctx)
		_, _ = db.NewRaw("DROP INDEX IF EXISTS idx_game_runs_team_name_lower").Exec(ctx)

		fmt.Println("Standings query indexes dropped successfully!")
		return nil
	})
}
