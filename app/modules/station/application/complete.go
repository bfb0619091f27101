package stationservice

import (
	"context"
	"errors"
	"fmt"
	"math"

	scoringdomain "github.com/Black-And-White-Club/keyquest/app/modules/scoring/domain"
	stationdomain "github.com/Black-And-White-Club/keyquest/app/modules/station/domain"
	stationdb "github.com/Black-And-White-Club/keyquest/app/modules/station/infrastructure/repositories"
	"github.com/Black-And-White-Club/keyquest/app/shared/attr"
	"github.com/Black-And-White-Club/keyquest/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Complete scores a finished mini-game, issues a fragment when one is earned and
// records the result. A fragment already stored for the station is kept and returned.
func (s *LedgerService) Complete(ctx context.Context, req CompleteRequest) (*Completion, error) {
	if req.StationKey == s.finalKey {
		return nil, ErrFinalStation
	}
	if !req.Mode.Valid() {
		return nil, sharedtypes.ErrInvalidMode
	}

	score, meta, earns, err := s.evaluate(req)
	if err != nil {
		s.logger.WarnContext(ctx, "Station completion rejected",
			attr.ExtractCorrelationID(ctx),
			attr.RunID("run_id", req.Session.RunID),
			attr.StationKey(string(req.StationKey)),
			attr.Error(err),
		)
		return nil, err
	}

	record := RecordRequest{
		Session:    req.Session,
		StationKey: req.StationKey,
		Mode:       req.Mode,
		Score:      score,
		Meta:       meta,
	}
	if earns {
		fragment, err := s.issuer.Issue()
		if err != nil {
			return nil, fmt.Errorf("failed to issue key fragment: %w", err)
		}
		record.KeyPart = &fragment
	}

	var stored *StationResult
	if req.Policy == stationdomain.PolicyKeepHigher {
		stored, err = s.RecordIfHigher(ctx, record)
	} else {
		stored, err = s.Record(ctx, record)
	}
	if err != nil {
		return nil, err
	}

	return &Completion{
		Result:   stored,
		Fragment: stored.KeyPart,
		Earned:   stored.KeyPart != nil,
	}, nil
}

func (s *LedgerService) evaluate(req CompleteRequest) (int, map[string]any, bool, error) {
	if req.Mode == sharedtypes.ModeInPerson {
		if req.ReportedScore < 0 {
			return 0, nil, false, scoringdomain.ErrNegativeSignal
		}
		return req.ReportedScore, map[string]any{"source": "staff"}, true, nil
	}

	calc, err := scoringdomain.CalculatorFor(req.StationKey)
	if err != nil {
		return 0, nil, false, err
	}
	eval, err := calc(req.Signals)
	if err != nil {
		return 0, nil, false, err
	}
	return eval.Score, eval.Meta, eval.EarnsFragment, nil
}

// Progress joins the catalog with the run's ledger rows.
func (s *LedgerService) Progress(ctx context.Context, runID uuid.UUID) (*Progress, error) {
	progressTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*Progress, error], error) {
		if runID == uuid.Nil {
			return results.FailureResult[*Progress, error](sharedtypes.ErrEmptyRunID), nil
		}
		catalog, err := s.loadCatalog(ctx, db)
		if err != nil {
			return results.OperationResult[*Progress, error]{}, err
		}
		rows, err := s.repo.ListResultsForRun(ctx, db, runID, nil)
		if err != nil {
			return results.OperationResult[*Progress, error]{}, fmt.Errorf("failed to list station results: %w", err)
		}
		return results.SuccessResult[*Progress, error](buildProgress(runID, catalog, rows)), nil
	}

	result, err := withTelemetry(s, ctx, "Progress", runID.String(), func(ctx context.Context) (results.OperationResult[*Progress, error], error) {
		return runInTx(s, ctx, progressTx)
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

func buildProgress(runID uuid.UUID, catalog *stationdomain.Catalog, rows []stationdb.StationResult) *Progress {
	byKey := make(map[string]stationdb.StationResult, len(rows))
	for _, r := range rows {
		byKey[string(r.StationKey)] = r
	}

	p := &Progress{RunID: runID, TotalMax: catalog.TotalMax()}
	for _, def := range catalog.Ordered() {
		sp := StationProgress{StationKey: def.Key, Title: def.Title, MaxScore: def.MaxScore}
		if r, ok := byKey[string(def.Key)]; ok {
			sp.Done = true
			sp.Score = r.Score
			sp.Mode = r.Mode
			sp.KeyPart = r.KeyPart
			p.StationsDone++
			p.TotalScore += r.Score
			if r.KeyPart != nil {
				p.FragmentsCollected++
			}
		}
		p.Stations = append(p.Stations, sp)
	}
	if p.TotalMax > 0 {
		p.Percent = int(math.Round(float64(p.TotalScore) * 100 / float64(p.TotalMax)))
	}
	return p
}

// Catalog returns the station definitions in play order.
func (s *LedgerService) Catalog(ctx context.Context) ([]stationdomain.Definition, error) {
	catalogTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[[]stationdomain.Definition, error], error) {
		catalog, err := s.loadCatalog(ctx, db)
		if err != nil {
			if errors.Is(err, stationdomain.ErrEmptyCatalog) {
				return results.SuccessResult[[]stationdomain.Definition, error]([]stationdomain.Definition{}), nil
			}
			return results.OperationResult[[]stationdomain.Definition, error]{}, err
		}
		return results.SuccessResult[[]stationdomain.Definition, error](catalog.Ordered()), nil
	}

	result, err := withTelemetry(s, ctx, "Catalog", "", func(ctx context.Context) (results.OperationResult[[]stationdomain.Definition, error], error) {
		return runInTx(s, ctx, catalogTx)
	})
	if err != nil {
		return nil, err
	}
	return *result.Success, nil
}

// SyncCatalog validates defs and upserts them into the store.
func (s *LedgerService) SyncCatalog(ctx context.Context, defs []stationdomain.Definition) error {
	catalog, err := stationdomain.NewCatalog(defs)
	if err != nil {
		return err
	}

	syncTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[int, error], error) {
		rows := make([]stationdb.StationDef, 0, len(defs))
		for _, d := range catalog.Ordered() {
			rows = append(rows, stationdb.StationDef{
				StationKey: d.Key,
				Title:      d.Title,
				MaxScore:   d.MaxScore,
				OrderIndex: d.OrderIndex,
			})
		}
		if err := s.repo.UpsertDefinitions(ctx, db, rows); err != nil {
			return results.OperationResult[int, error]{}, fmt.Errorf("failed to upsert station catalog: %w", err)
		}
		return results.SuccessResult[int, error](len(rows)), nil
	}

	result, err := withTelemetry(s, ctx, "SyncCatalog", "", func(ctx context.Context) (results.OperationResult[int, error], error) {
		return runInTx(s, ctx, syncTx)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Station catalog synced", attr.Int("stations", *result.Success))
	return nil
}
