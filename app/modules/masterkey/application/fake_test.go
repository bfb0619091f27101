package masterkeyservice

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"testing"

	stationservice "github.com/Black-And-White-Club/keyquest/app/modules/station/application"
	stationdomain "github.com/Black-And-White-Club/keyquest/app/modules/station/domain"
	stationdb "github.com/Black-And-White-Club/keyquest/app/modules/station/infrastructure/repositories"
	"github.com/Black-And-White-Club/keyquest/app/shared/metrics"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Ledger
// ------------------------

type FakeLedger struct {
	trace    []string
	recorded []stationservice.RecordRequest

	ListForRunFunc func(ctx context.Context, runID uuid.UUID, exclude ...sharedtypes.StationKey) ([]stationservice.StationResult, error)
	RecordFunc     func(ctx context.Context, req stationservice.RecordRequest) (*stationservice.StationResult, error)
}

func (f *FakeLedger) ListForRun(ctx context.Context, runID uuid.UUID, exclude ...sharedtypes.StationKey) ([]stationservice.StationResult, error) {
	f.trace = append(f.trace, "ListForRun")
	if f.ListForRunFunc != nil {
		return f.ListForRunFunc(ctx, runID, exclude...)
	}
	return nil, nil
}

func (f *FakeLedger) Record(ctx context.Context, req stationservice.RecordRequest) (*stationservice.StationResult, error) {
	f.trace = append(f.trace, "Record")
	f.recorded = append(f.recorded, req)
	if f.RecordFunc != nil {
		return f.RecordFunc(ctx, req)
	}
	return &stationservice.StationResult{
		RunID:      req.Session.RunID,
		StationKey: req.StationKey,
		Mode:       req.Mode,
		Score:      req.Score,
		Meta:       req.Meta,
	}, nil
}

var _ Ledger = (*FakeLedger)(nil)

// ------------------------
// In-memory Station Repo
// ------------------------

// memoryStationRepo keeps ledger rows in a map and applies the same
// overwrite, keep-higher and fragment-preserving rules as the SQL upsert.
type memoryStationRepo struct {
	mu   sync.Mutex
	defs []stationdb.StationDef
	rows map[uuid.UUID]map[sharedtypes.StationKey]stationdb.StationResult
}

func newMemoryLedger(t *testing.T) *stationservice.LedgerService {
	t.Helper()
	repo := &memoryStationRepo{rows: map[uuid.UUID]map[sharedtypes.StationKey]stationdb.StationResult{}}
	for _, d := range stationdomain.DefaultDefinitions() {
		repo.defs = append(repo.defs, stationdb.StationDef{StationKey: d.Key, Title: d.Title, MaxScore: d.MaxScore, OrderIndex: d.OrderIndex})
	}
	return stationservice.NewLedgerService(repo, nil, nil, nil, finalKey,
		slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.NewNoop(), nil, nil)
}

func (m *memoryStationRepo) ListDefinitions(ctx context.Context, db bun.IDB) ([]stationdb.StationDef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.defs), nil
}

func (m *memoryStationRepo) UpsertDefinitions(ctx context.Context, db bun.IDB, defs []stationdb.StationDef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defs = slices.Clone(defs)
	return nil
}

func (m *memoryStationRepo) UpsertResult(ctx context.Context, db bun.IDB, result *stationdb.StationResult, policy stationdomain.WritePolicy) (*stationdb.StationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byKey, ok := m.rows[result.RunID]
	if !ok {
		byKey = map[sharedtypes.StationKey]stationdb.StationResult{}
		m.rows[result.RunID] = byKey
	}
	next := *result
	if prev, ok := byKey[result.StationKey]; ok {
		if prev.KeyPart != nil {
			next.KeyPart = prev.KeyPart
		}
		if policy == stationdomain.PolicyKeepHigher {
			next.Score = max(prev.Score, next.Score)
		}
		next.CreatedAt = prev.CreatedAt
	}
	byKey[result.StationKey] = next
	return &next, nil
}

func (m *memoryStationRepo) ListResultsForRun(ctx context.Context, db bun.IDB, runID uuid.UUID, exclude []sharedtypes.StationKey) ([]stationdb.StationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order := make(map[sharedtypes.StationKey]int, len(m.defs))
	for _, d := range m.defs {
		order[d.StationKey] = d.OrderIndex
	}
	out := []stationdb.StationResult{}
	for key, r := range m.rows[runID] {
		if !slices.Contains(exclude, key) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i].StationKey] < order[out[j].StationKey] })
	return out, nil
}

func (m *memoryStationRepo) GetResult(ctx context.Context, db bun.IDB, runID uuid.UUID, key sharedtypes.StationKey) (*stationdb.StationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[runID][key]
	if !ok {
		return nil, stationdb.ErrNotFound
	}
	return &r, nil
}

var _ stationdb.Repository = (*memoryStationRepo)(nil)
