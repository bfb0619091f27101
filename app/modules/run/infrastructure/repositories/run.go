package rundb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new run repository.
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

// EnsureRun inserts the run with ON CONFLICT DO NOTHING so an existing team name is
// never overwritten, then reads back whatever is stored.
func (r *Impl) EnsureRun(ctx context.Context, db bun.IDB, run *Run) (*Run, error) {
	db = r.resolveDB(db)
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := db.NewInsert().
		Model(run).
		On("CONFLICT (run_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	stored, err := r.GetByID(ctx, db, run.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back run: %w", err)
	}
	return stored, nil
}

// GetByID retrieves a run by its id.
func (r *Impl) GetByID(ctx context.Context, db bun.IDB, runID uuid.UUID) (*Run, error) {
	db = r.resolveDB(db)
	run := new(Run)
	err := db.NewSelect().
		Model(run).
		Where("run_id = ?", runID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}
