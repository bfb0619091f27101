package runservice

import (
	"context"
	"time"

	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
)

// Service is the run registry.
type Service interface {
	// EnsureRun creates the run on first sight and is a no-op afterwards.
	EnsureRun(ctx context.Context, session sharedtypes.Session) (*RunInfo, error)
	// GetRun returns the stored run or ErrRunNotFound.
	GetRun(ctx context.Context, runID uuid.UUID) (*RunInfo, error)
}

// RunInfo is the public view of a run.
type RunInfo struct {
	RunID     uuid.UUID `json:"run_id"`
	TeamName  string    `json:"team_name"`
	CreatedAt time.Time `json:"created_at"`
}
