package stationdb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StationDef is a catalog row. The engine only reads it; operators seed it.
type StationDef struct {
	bun.BaseModel `bun:"table:station_defs,alias:sd"`

	StationKey sharedtypes.StationKey `bun:"station_key,pk"`
	Title      string                 `bun:"title,notnull"`
	MaxScore   int                    `bun:"max_score,notnull"`
	OrderIndex int                    `bun:"order_index,notnull"`
}

// StationResult is the ledger row for one (run, station) pair.
type StationResult struct {
	bun.BaseModel `bun:"table:station_results,alias:sr"`

	ID         int64                  `bun:"id,pk,autoincrement"`
	RunID      uuid.UUID              `bun:"run_id,type:uuid,notnull"`
	StationKey sharedtypes.StationKey `bun:"station_key,notnull"`
	Mode       sharedtypes.Mode       `bun:"mode,notnull"`
	Score      int                    `bun:"score,notnull"`
	KeyPart    *string                `bun:"key_part"`
	Meta       map[string]any         `bun:"meta,type:jsonb,nullzero"`
	CreatedAt  time.Time              `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt  time.Time              `bun:"updated_at,notnull,default:current_timestamp"`
}
