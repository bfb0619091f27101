package stationhandlers

import (
	"context"

	stationservice "github.com/Black-And-White-Club/keyquest/app/modules/station/application"
	stationdomain "github.com/Black-And-White-Club/keyquest/app/modules/station/domain"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
)

type FakeService struct {
	RecordFunc         func(ctx context.Context, req stationservice.RecordRequest) (*stationservice.StationResult, error)
	RecordIfHigherFunc func(ctx context.Context, req stationservice.RecordRequest) (*stationservice.StationResult, error)
	ListForRunFunc     func(ctx context.Context, runID uuid.UUID, exclude ...sharedtypes.StationKey) ([]stationservice.StationResult, error)
	GetResultFunc      func(ctx context.Context, runID uuid.UUID, key sharedtypes.StationKey) (*stationservice.StationResult, error)
	CompleteFunc       func(ctx context.Context, req stationservice.CompleteRequest) (*stationservice.Completion, error)
	ProgressFunc       func(ctx context.Context, runID uuid.UUID) (*stationservice.Progress, error)
	CatalogFunc        func(ctx context.Context) ([]stationdomain.Definition, error)
	SyncCatalogFunc    func(ctx context.Context, defs []stationdomain.Definition) error
}

func (f *FakeService) Record(ctx context.Context, req stationservice.RecordRequest) (*stationservice.StationResult, error) {
	if f.RecordFunc != nil {
		return f.RecordFunc(ctx, req)
	}
	return echo(req), nil
}

func (f *FakeService) RecordIfHigher(ctx context.Context, req stationservice.RecordRequest) (*stationservice.StationResult, error) {
	if f.RecordIfHigherFunc != nil {
		return f.RecordIfHigherFunc(ctx, req)
	}
	return echo(req), nil
}

func (f *FakeService) ListForRun(ctx context.Context, runID uuid.UUID, exclude ...sharedtypes.StationKey) ([]stationservice.StationResult, error) {
	if f.ListForRunFunc != nil {
		return f.ListForRunFunc(ctx, runID, exclude...)
	}
	return []stationservice.StationResult{}, nil
}

func (f *FakeService) GetResult(ctx context.Context, runID uuid.UUID, key sharedtypes.StationKey) (*stationservice.StationResult, error) {
	if f.GetResultFunc != nil {
		return f.GetResultFunc(ctx, runID, key)
	}
	return nil, stationservice.ErrResultNotFound
}

func (f *FakeService) Complete(ctx context.Context, req stationservice.CompleteRequest) (*stationservice.Completion, error) {
	if f.CompleteFunc != nil {
		return f.CompleteFunc(ctx, req)
	}
	return &stationservice.Completion{Result: &stationservice.StationResult{RunID: req.Session.RunID, StationKey: req.StationKey}}, nil
}

func (f *FakeService) Progress(ctx context.Context, runID uuid.UUID) (*stationservice.Progress, error) {
	if f.ProgressFunc != nil {
		return f.ProgressFunc(ctx, runID)
	}
	return &stationservice.Progress{RunID: runID}, nil
}

func (f *FakeService) Catalog(ctx context.Context) ([]stationdomain.Definition, error) {
	if f.CatalogFunc != nil {
		return f.CatalogFunc(ctx)
	}
	return stationdomain.DefaultDefinitions(), nil
}

func (f *FakeService) SyncCatalog(ctx context.Context, defs []stationdomain.Definition) error {
	if f.SyncCatalogFunc != nil {
		return f.SyncCatalogFunc(ctx, defs)
	}
	return nil
}

func echo(req stationservice.RecordRequest) *stationservice.StationResult {
	return &stationservice.StationResult{
		RunID:      req.Session.RunID,
		StationKey: req.StationKey,
		Mode:       req.Mode,
		Score:      req.Score,
		Meta:       req.Meta,
	}
}

var _ stationservice.Service = (*FakeService)(nil)
