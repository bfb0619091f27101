package runservice

import (
	"context"

	rundb "github.com/Black-And-White-Club/keyquest/app/modules/run/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Run Repo
// ------------------------

type FakeRunRepo struct {
	trace []string

	EnsureRunFunc func(ctx context.Context, db bun.IDB, run *rundb.Run) (*rundb.Run, error)
	GetByIDFunc   func(ctx context.Context, db bun.IDB, runID uuid.UUID) (*rundb.Run, error)
}

func NewFakeRunRepo() *FakeRunRepo {
	return &FakeRunRepo{trace: []string{}}
}

func (f *FakeRunRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeRunRepo) EnsureRun(ctx context.Context, db bun.IDB, run *rundb.Run) (*rundb.Run, error) {
	f.record("EnsureRun")
	if f.EnsureRunFunc != nil {
		return f.EnsureRunFunc(ctx, db, run)
	}
	return run, nil
}

func (f *FakeRunRepo) GetByID(ctx context.Context, db bun.IDB, runID uuid.UUID) (*rundb.Run, error) {
	f.record("GetByID")
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, db, runID)
	}
	return nil, rundb.ErrNotFound
}

func (f *FakeRunRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ rundb.Repository = (*FakeRunRepo)(nil)
