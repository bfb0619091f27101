package leaderboarddb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
)

// StandingRow is a projection of station_results joined with game_runs.
type StandingRow struct {
	RunID        uuid.UUID              `bun:"run_id,type:uuid"`
	StationKey   sharedtypes.StationKey `bun:"station_key"`
	Score        int                    `bun:"score"`
	MetaTeamName string                 `bun:"meta_team_name"`
	RunTeamName  string                 `bun:"run_team_name"`
	RunCreatedAt time.Time              `bun:"run_created_at"`
	UpdatedAt    time.Time              `bun:"updated_at"`
}
