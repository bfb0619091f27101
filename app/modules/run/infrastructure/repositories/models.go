package rundb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Run is a team's play-through. The row is created once and never renamed.
type Run struct {
	bun.BaseModel `bun:"table:game_runs,alias:gr"`

	RunID     uuid.UUID `bun:"run_id,pk,type:uuid"`
	TeamName  string    `bun:"team_name,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
