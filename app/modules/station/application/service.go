package stationservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	feeddomain "github.com/Black-And-White-Club/keyquest/app/modules/feed/domain"
	keysdomain "github.com/Black-And-White-Club/keyquest/app/modules/keys/domain"
	stationdomain "github.com/Black-And-White-Club/keyquest/app/modules/station/domain"
	stationdb "github.com/Black-And-White-Club/keyquest/app/modules/station/infrastructure/repositories"
	"github.com/Black-And-White-Club/keyquest/app/shared/attr"
	"github.com/Black-And-White-Club/keyquest/app/shared/metrics"
	"github.com/Black-And-White-Club/keyquest/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "LedgerService"

// LedgerService implements the Service interface.
type LedgerService struct {
	repo     stationdb.Repository
	runs     RunRegistry
	issuer   FragmentIssuer
	notifier feeddomain.Notifier
	finalKey sharedtypes.StationKey
	logger   *slog.Logger
	metrics  metrics.OperationMetrics
	tracer   trace.Tracer
	db       *bun.DB
	now      func() time.Time
}

// NewLedgerService creates a new LedgerService. A nil notifier drops feed events.
func NewLedgerService(
	repo stationdb.Repository,
	runs RunRegistry,
	issuer FragmentIssuer,
	notifier feeddomain.Notifier,
	finalKey sharedtypes.StationKey,
	logger *slog.Logger,
	metrics metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = feeddomain.NopNotifier{}
	}
	return &LedgerService{
		repo:     repo,
		runs:     runs,
		issuer:   issuer,
		notifier: notifier,
		finalKey: finalKey,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		db:       db,
		now:      time.Now,
	}
}

// FinalStationKey is the station recorded by master key validation.
func (s *LedgerService) FinalStationKey() sharedtypes.StationKey { return s.finalKey }

// Record writes a result, last write wins.
func (s *LedgerService) Record(ctx context.Context, req RecordRequest) (*StationResult, error) {
	return s.write(ctx, "Record", req, stationdomain.PolicyOverwrite)
}

// RecordIfHigher writes a result keeping the greater of the stored and new score.
func (s *LedgerService) RecordIfHigher(ctx context.Context, req RecordRequest) (*StationResult, error) {
	return s.write(ctx, "RecordIfHigher", req, stationdomain.PolicyKeepHigher)
}

func (s *LedgerService) write(ctx context.Context, opName string, req RecordRequest, policy stationdomain.WritePolicy) (*StationResult, error) {
	writeTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*StationResult, error], error) {
		return s.writeLogic(ctx, db, req, policy)
	}

	result, err := withTelemetry(s, ctx, opName, req.Session.RunID.String(), func(ctx context.Context) (results.OperationResult[*StationResult, error], error) {
		res, err := runInTx(s, ctx, writeTx)
		if err == nil || !errors.Is(err, stationdb.ErrRunMissing) {
			return res, err
		}

		s.logger.InfoContext(ctx, "Run missing for station write, ensuring run and retrying",
			attr.ExtractCorrelationID(ctx),
			attr.RunID("run_id", req.Session.RunID),
			attr.StationKey(string(req.StationKey)),
		)
		if _, ensureErr := s.runs.EnsureRun(ctx, req.Session); ensureErr != nil {
			return results.OperationResult[*StationResult, error]{}, fmt.Errorf("failed to ensure run after foreign key violation: %w", ensureErr)
		}
		return runInTx(s, ctx, writeTx)
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}

	stored := *result.Success
	s.notify(ctx, feeddomain.Event{
		RunID:      stored.RunID,
		StationKey: stored.StationKey,
		Kind:       feeddomain.EventResultSaved,
		Score:      stored.Score,
		At:         s.now().UTC(),
	})
	return stored, nil
}

func (s *LedgerService) writeLogic(ctx context.Context, db bun.IDB, req RecordRequest, policy stationdomain.WritePolicy) (results.OperationResult[*StationResult, error], error) {
	if err := req.Session.Validate(); err != nil {
		return results.FailureResult[*StationResult, error](err), nil
	}
	if !req.Mode.Valid() {
		return results.FailureResult[*StationResult, error](sharedtypes.ErrInvalidMode), nil
	}

	catalog, err := s.loadCatalog(ctx, db)
	if err != nil {
		return results.OperationResult[*StationResult, error]{}, err
	}
	def, ok := catalog.Lookup(req.StationKey)
	if !ok {
		return results.FailureResult[*StationResult, error](fmt.Errorf("%w: %s", ErrUnknownStation, req.StationKey)), nil
	}

	var keyPart *string
	if req.KeyPart != nil {
		if normalized := keysdomain.Normalize(*req.KeyPart); normalized != "" {
			keyPart = &normalized
		}
	}

	now := s.now().UTC()
	row := &stationdb.StationResult{
		RunID:      req.Session.RunID,
		StationKey: def.Key,
		Mode:       req.Mode,
		Score:      def.ClampScore(req.Score),
		KeyPart:    keyPart,
		Meta:       buildMeta(req.Meta, req.Session),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	stored, err := s.repo.UpsertResult(ctx, db, row, policy)
	if err != nil {
		if errors.Is(err, stationdb.ErrRunMissing) {
			return results.OperationResult[*StationResult, error]{}, err
		}
		return results.OperationResult[*StationResult, error]{}, fmt.Errorf("failed to upsert station result: %w", err)
	}

	return results.SuccessResult[*StationResult, error](toStationResult(stored)), nil
}

// ListForRun returns the run's results in catalog order.
func (s *LedgerService) ListForRun(ctx context.Context, runID uuid.UUID, exclude ...sharedtypes.StationKey) ([]StationResult, error) {
	listTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[[]StationResult, error], error) {
		if runID == uuid.Nil {
			return results.FailureResult[[]StationResult, error](sharedtypes.ErrEmptyRunID), nil
		}
		rows, err := s.repo.ListResultsForRun(ctx, db, runID, exclude)
		if err != nil {
			return results.OperationResult[[]StationResult, error]{}, fmt.Errorf("failed to list station results: %w", err)
		}
		out := make([]StationResult, 0, len(rows))
		for i := range rows {
			out = append(out, *toStationResult(&rows[i]))
		}
		return results.SuccessResult[[]StationResult, error](out), nil
	}

	result, err := withTelemetry(s, ctx, "ListForRun", runID.String(), func(ctx context.Context) (results.OperationResult[[]StationResult, error], error) {
		return runInTx(s, ctx, listTx)
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

// GetResult returns the run's row for one station, or ErrResultNotFound.
func (s *LedgerService) GetResult(ctx context.Context, runID uuid.UUID, key sharedtypes.StationKey) (*StationResult, error) {
	getTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*StationResult, error], error) {
		if runID == uuid.Nil {
			return results.FailureResult[*StationResult, error](sharedtypes.ErrEmptyRunID), nil
		}
		row, err := s.repo.GetResult(ctx, db, runID, key)
		if err != nil {
			if errors.Is(err, stationdb.ErrNotFound) {
				return results.FailureResult[*StationResult, error](fmt.Errorf("%w: %s", ErrResultNotFound, key)), nil
			}
			return results.OperationResult[*StationResult, error]{}, fmt.Errorf("failed to get station result: %w", err)
		}
		return results.SuccessResult[*StationResult, error](toStationResult(row)), nil
	}

	result, err := withTelemetry(s, ctx, "GetResult", runID.String(), func(ctx context.Context) (results.OperationResult[*StationResult, error], error) {
		return runInTx(s, ctx, getTx)
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

func (s *LedgerService) loadCatalog(ctx context.Context, db bun.IDB) (*stationdomain.Catalog, error) {
	rows, err := s.repo.ListDefinitions(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to load station catalog: %w", err)
	}
	defs := make([]stationdomain.Definition, 0, len(rows))
	for _, r := range rows {
		defs = append(defs, toDefinition(r))
	}
	catalog, err := stationdomain.NewCatalog(defs)
	if err != nil {
		return nil, fmt.Errorf("invalid station catalog: %w", err)
	}
	return catalog, nil
}

func (s *LedgerService) notify(ctx context.Context, event feeddomain.Event) {
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish feed event",
			attr.ExtractCorrelationID(ctx),
			attr.RunID("run_id", event.RunID),
			attr.StationKey(string(event.StationKey)),
			attr.Error(err),
		)
	}
}

// buildMeta copies meta, stamps the session's team name and drops any fragment
// smuggled in through the free-form map.
func buildMeta(in map[string]any, session sharedtypes.Session) map[string]any {
	out := make(map[string]any, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	delete(out, "key_part")
	if name := session.NormalizedTeamName(); name != "" {
		out["team_name"] = name
	}
	return out
}

func toStationResult(row *stationdb.StationResult) *StationResult {
	meta := row.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	return &StationResult{
		RunID:      row.RunID,
		StationKey: row.StationKey,
		Mode:       row.Mode,
		Score:      row.Score,
		KeyPart:    row.KeyPart,
		Meta:       meta,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

func toDefinition(row stationdb.StationDef) stationdomain.Definition {
	return stationdomain.Definition{
		Key:        row.StationKey,
		Title:      row.Title,
		MaxScore:   row.MaxScore,
		OrderIndex: row.OrderIndex,
	}
}

// -----------------------------------------------------------------------------
// Generic Helpers
// -----------------------------------------------------------------------------

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *LedgerService,
	ctx context.Context,
	operationName string,
	runID string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("run_id", runID),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
		}
	}()

	s.logger.InfoContext(ctx, "Operation triggered", attr.ExtractCorrelationID(ctx), attr.String("operation", operationName))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("run_id", runID),
				attr.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("run_id", runID),
			attr.Error(wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("run_id", runID),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}

	return result, nil
}

// runInTx runs fn inside a transaction, or directly when no database is configured.
func runInTx[S any, F any](
	s *LedgerService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})

	return result, err
}
