package stationdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	stationdomain "github.com/Black-And-White-Club/keyquest/app/modules/station/domain"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new station repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// ListDefinitions returns the catalog ordered by order_index.
func (r *Impl) ListDefinitions(ctx context.Context, db bun.IDB) ([]StationDef, error) {
	db = r.resolveDB(db)
	var defs []StationDef
	err := db.NewSelect().
		Model(&defs).
		OrderExpr("sd.order_index ASC, sd.station_key ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list station definitions: %w", err)
	}
	return defs, nil
}

// UpsertDefinitions writes catalog rows.
func (r *Impl) UpsertDefinitions(ctx context.Context, db bun.IDB, defs []StationDef) error {
	if len(defs) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(&defs).
		On("CONFLICT (station_key) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("max_score = EXCLUDED.max_score").
		Set("order_index = EXCLUDED.order_index").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert station definitions: %w", err)
	}
	return nil
}

// UpsertResult performs the whole write as one INSERT ... ON CONFLICT statement.
// An issued key_part is never replaced. Under PolicyKeepHigher the stored score is
// GREATEST(old, new) while mode and meta follow the latest write.
func (r *Impl) UpsertResult(ctx context.Context, db bun.IDB, result *StationResult, policy stationdomain.WritePolicy) (*StationResult, error) {
	db = r.resolveDB(db)
	now := time.Now().UTC()
	result.CreatedAt = now
	result.UpdatedAt = now

	scoreExpr := "score = EXCLUDED.score"
	if policy == stationdomain.PolicyKeepHigher {
		scoreExpr = "score = GREATEST(sr.score, EXCLUDED.score)"
	}

	_, err := db.NewInsert().
		Model(result).
		ExcludeColumn("id").
		On("CONFLICT (run_id, station_key) DO UPDATE").
		Set("mode = EXCLUDED.mode").
		Set(scoreExpr).
		Set("meta = EXCLUDED.meta").
		Set("key_part = COALESCE(sr.key_part, EXCLUDED.key_part)").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrRunMissing
		}
		return nil, fmt.Errorf("failed to upsert station result: %w", err)
	}
	return result, nil
}

// ListResultsForRun returns the run's rows in catalog order.
func (r *Impl) ListResultsForRun(ctx context.Context, db bun.IDB, runID uuid.UUID, exclude []sharedtypes.StationKey) ([]StationResult, error) {
	db = r.resolveDB(db)
	rows := make([]StationResult, 0)
	q := db.NewSelect().
		Model(&rows).
		Join("LEFT JOIN station_defs AS sd ON sd.station_key = sr.station_key").
		Where("sr.run_id = ?", runID)
	if len(exclude) > 0 {
		q = q.Where("sr.station_key NOT IN (?)", bun.In(exclude))
	}
	err := q.OrderExpr("COALESCE(sd.order_index, 2147483647) ASC, sr.station_key ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list station results: %w", err)
	}
	return rows, nil
}

// GetResult returns a single ledger row.
func (r *Impl) GetResult(ctx context.Context, db bun.IDB, runID uuid.UUID, key sharedtypes.StationKey) (*StationResult, error) {
	db = r.resolveDB(db)
	row := new(StationResult)
	err := db.NewSelect().
		Model(row).
		Where("sr.run_id = ?", runID).
		Where("sr.station_key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get station result: %w", err)
	}
	return row, nil
}
