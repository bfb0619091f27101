package rundb

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for run persistence.
type Repository interface {
	// EnsureRun inserts the run if absent and returns the stored row.
	EnsureRun(ctx context.Context, db bun.IDB, run *Run) (*Run, error)

	// GetByID retrieves a run by its id.
	GetByID(ctx context.Context, db bun.IDB, runID uuid.UUID) (*Run, error)
}
