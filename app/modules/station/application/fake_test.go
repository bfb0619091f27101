package stationservice

import (
	"context"
	"sync"

	feeddomain "github.com/Black-And-White-Club/keyquest/app/modules/feed/domain"
	runservice "github.com/Black-And-White-Club/keyquest/app/modules/run/application"
	stationdomain "github.com/Black-And-White-Club/keyquest/app/modules/station/domain"
	stationdb "github.com/Black-And-White-Club/keyquest/app/modules/station/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Station Repo
// ------------------------

type FakeStationRepo struct {
	mu    sync.Mutex
	trace []string

	ListDefinitionsFunc   func(ctx context.Context, db bun.IDB) ([]stationdb.StationDef, error)
	UpsertDefinitionsFunc func(ctx context.Context, db bun.IDB, defs []stationdb.StationDef) error
	UpsertResultFunc      func(ctx context.Context, db bun.IDB, result *stationdb.StationResult, policy stationdomain.WritePolicy) (*stationdb.StationResult, error)
	ListResultsForRunFunc func(ctx context.Context, db bun.IDB, runID uuid.UUID, exclude []sharedtypes.StationKey) ([]stationdb.StationResult, error)
	GetResultFunc         func(ctx context.Context, db bun.IDB, runID uuid.UUID, key sharedtypes.StationKey) (*stationdb.StationResult, error)
}

func NewFakeStationRepo() *FakeStationRepo {
	return &FakeStationRepo{trace: []string{}}
}

func (f *FakeStationRepo) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeStationRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeStationRepo) ListDefinitions(ctx context.Context, db bun.IDB) ([]stationdb.StationDef, error) {
	f.record("ListDefinitions")
	if f.ListDefinitionsFunc != nil {
		return f.ListDefinitionsFunc(ctx, db)
	}
	return defaultDefs(), nil
}

func (f *FakeStationRepo) UpsertDefinitions(ctx context.Context, db bun.IDB, defs []stationdb.StationDef) error {
	f.record("UpsertDefinitions")
	if f.UpsertDefinitionsFunc != nil {
		return f.UpsertDefinitionsFunc(ctx, db, defs)
	}
	return nil
}

func (f *FakeStationRepo) UpsertResult(ctx context.Context, db bun.IDB, result *stationdb.StationResult, policy stationdomain.WritePolicy) (*stationdb.StationResult, error) {
	f.record("UpsertResult")
	if f.UpsertResultFunc != nil {
		return f.UpsertResultFunc(ctx, db, result, policy)
	}
	return result, nil
}

func (f *FakeStationRepo) ListResultsForRun(ctx context.Context, db bun.IDB, runID uuid.UUID, exclude []sharedtypes.StationKey) ([]stationdb.StationResult, error) {
	f.record("ListResultsForRun")
	if f.ListResultsForRunFunc != nil {
		return f.ListResultsForRunFunc(ctx, db, runID, exclude)
	}
	return []stationdb.StationResult{}, nil
}

func (f *FakeStationRepo) GetResult(ctx context.Context, db bun.IDB, runID uuid.UUID, key sharedtypes.StationKey) (*stationdb.StationResult, error) {
	f.record("GetResult")
	if f.GetResultFunc != nil {
		return f.GetResultFunc(ctx, db, runID, key)
	}
	return nil, stationdb.ErrNotFound
}

var _ stationdb.Repository = (*FakeStationRepo)(nil)

func defaultDefs() []stationdb.StationDef {
	var rows []stationdb.StationDef
	for _, d := range stationdomain.DefaultDefinitions() {
		rows = append(rows, stationdb.StationDef{StationKey: d.Key, Title: d.Title, MaxScore: d.MaxScore, OrderIndex: d.OrderIndex})
	}
	return rows
}

// ------------------------
// Fake Run Registry
// ------------------------

type FakeRunRegistry struct {
	calls         int
	EnsureRunFunc func(ctx context.Context, session sharedtypes.Session) (*runservice.RunInfo, error)
}

func (f *FakeRunRegistry) EnsureRun(ctx context.Context, session sharedtypes.Session) (*runservice.RunInfo, error) {
	f.calls++
	if f.EnsureRunFunc != nil {
		return f.EnsureRunFunc(ctx, session)
	}
	return &runservice.RunInfo{RunID: session.RunID, TeamName: session.TeamName}, nil
}

// ------------------------
// Fake Issuer / Notifier
// ------------------------

type FakeIssuer struct {
	next  []string
	err   error
	calls int
}

func (f *FakeIssuer) Issue() (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.next) == 0 {
		return "ABCD", nil
	}
	out := f.next[0]
	f.next = f.next[1:]
	return out, nil
}

type FakeNotifier struct {
	mu     sync.Mutex
	events []feeddomain.Event
	err    error
}

func (f *FakeNotifier) Notify(ctx context.Context, event feeddomain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func (f *FakeNotifier) Events() []feeddomain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]feeddomain.Event, len(f.events))
	copy(out, f.events)
	return out
}
