package runhandlers

import (
	"context"

	runservice "github.com/Black-And-White-Club/keyquest/app/modules/run/application"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
)

type FakeService struct {
	EnsureRunFunc func(ctx context.Context, session sharedtypes.Session) (*runservice.RunInfo, error)
	GetRunFunc    func(ctx context.Context, runID uuid.UUID) (*runservice.RunInfo, error)
}

func (f *FakeService) EnsureRun(ctx context.Context, session sharedtypes.Session) (*runservice.RunInfo, error) {
	if f.EnsureRunFunc != nil {
		return f.EnsureRunFunc(ctx, session)
	}
	return &runservice.RunInfo{RunID: session.RunID, TeamName: session.TeamName}, nil
}

func (f *FakeService) GetRun(ctx context.Context, runID uuid.UUID) (*runservice.RunInfo, error) {
	if f.GetRunFunc != nil {
		return f.GetRunFunc(ctx, runID)
	}
	return nil, runservice.ErrRunNotFound
}

var _ runservice.Service = (*FakeService)(nil)
