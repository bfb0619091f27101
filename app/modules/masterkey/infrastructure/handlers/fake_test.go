package masterkeyhandlers

import (
	"context"
	"time"

	masterkeyservice "github.com/Black-And-White-Club/keyquest/app/modules/masterkey/application"
	"github.com/google/uuid"
)

type FakeService struct {
	ValidateFunc func(ctx context.Context, req masterkeyservice.ValidateRequest) (*masterkeyservice.Outcome, error)
	PreviewFunc  func(ctx context.Context, runID uuid.UUID, startedAt time.Time) (*masterkeyservice.Preview, error)
}

func (f *FakeService) Validate(ctx context.Context, req masterkeyservice.ValidateRequest) (*masterkeyservice.Outcome, error) {
	if f.ValidateFunc != nil {
		return f.ValidateFunc(ctx, req)
	}
	return &masterkeyservice.Outcome{}, nil
}

func (f *FakeService) Preview(ctx context.Context, runID uuid.UUID, startedAt time.Time) (*masterkeyservice.Preview, error) {
	if f.PreviewFunc != nil {
		return f.PreviewFunc(ctx, runID, startedAt)
	}
	return &masterkeyservice.Preview{RunID: runID}, nil
}

var _ masterkeyservice.Service = (*FakeService)(nil)
