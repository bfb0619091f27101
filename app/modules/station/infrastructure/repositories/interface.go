package stationdb

import (
	"context"

	stationdomain "github.com/Black-And-White-Club/keyquest/app/modules/station/domain"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for catalog and ledger persistence.
type Repository interface {
	// ListDefinitions returns the catalog ordered by order_index.
	ListDefinitions(ctx context.Context, db bun.IDB) ([]StationDef, error)

	// UpsertDefinitions writes catalog rows, replacing title, max score and order.
	UpsertDefinitions(ctx context.Context, db bun.IDB, defs []StationDef) error

	// UpsertResult writes a ledger row atomically under the given policy and
	// returns the stored row. A missing run yields ErrRunMissing.
	UpsertResult(ctx context.Context, db bun.IDB, result *StationResult, policy stationdomain.WritePolicy) (*StationResult, error)

	// ListResultsForRun returns the run's rows in catalog order, skipping exclude.
	ListResultsForRun(ctx context.Context, db bun.IDB, runID uuid.UUID, exclude []sharedtypes.StationKey) ([]StationResult, error)

	// GetResult returns a single ledger row.
	GetResult(ctx context.Context, db bun.IDB, runID uuid.UUID, key sharedtypes.StationKey) (*StationResult, error)
}
