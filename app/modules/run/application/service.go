package runservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	rundb "github.com/Black-And-White-Club/keyquest/app/modules/run/infrastructure/repositories"
	"github.com/Black-And-White-Club/keyquest/app/shared/attr"
	"github.com/Black-And-White-Club/keyquest/app/shared/metrics"
	"github.com/Black-And-White-Club/keyquest/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxTeamNameLength = 80

// RunService implements the Service interface.
type RunService struct {
	repo    rundb.Repository
	logger  *slog.Logger
	metrics metrics.OperationMetrics
	tracer  trace.Tracer
	db      *bun.DB
}

// NewRunService creates a new RunService.
func NewRunService(
	repo rundb.Repository,
	logger *slog.Logger,
	metrics metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *RunService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunService{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		db:      db,
	}
}

// EnsureRun inserts the run if absent. The stored team name wins over the session's.
func (s *RunService) EnsureRun(ctx context.Context, session sharedtypes.Session) (*RunInfo, error) {
	ensureTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*RunInfo, error], error) {
		return s.ensureRunLogic(ctx, db, session)
	}

	result, err := withTelemetry(s, ctx, "EnsureRun", session.RunID.String(), func(ctx context.Context) (results.OperationResult[*RunInfo, error], error) {
		return runInTx(s, ctx, ensureTx)
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

func (s *RunService) ensureRunLogic(ctx context.Context, db bun.IDB, session sharedtypes.Session) (results.OperationResult[*RunInfo, error], error) {
	if err := session.Validate(); err != nil {
		return results.FailureResult[*RunInfo, error](err), nil
	}
	name := session.NormalizedTeamName()
	if utf8.RuneCountInString(name) > maxTeamNameLength {
		return results.FailureResult[*RunInfo, error](ErrTeamNameTooLong), nil
	}

	run, err := s.repo.EnsureRun(ctx, db, &rundb.Run{
		RunID:    session.RunID,
		TeamName: name,
	})
	if err != nil {
		return results.OperationResult[*RunInfo, error]{}, fmt.Errorf("failed to ensure run: %w", err)
	}

	return results.SuccessResult[*RunInfo, error](toRunInfo(run)), nil
}

// GetRun retrieves a run by id.
func (s *RunService) GetRun(ctx context.Context, runID uuid.UUID) (*RunInfo, error) {
	getTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*RunInfo, error], error) {
		run, err := s.repo.GetByID(ctx, db, runID)
		if err != nil {
			if errors.Is(err, rundb.ErrNotFound) {
				return results.FailureResult[*RunInfo, error](ErrRunNotFound), nil
			}
			return results.OperationResult[*RunInfo, error]{}, fmt.Errorf("failed to get run: %w", err)
		}
		return results.SuccessResult[*RunInfo, error](toRunInfo(run)), nil
	}

	result, err := withTelemetry(s, ctx, "GetRun", runID.String(), func(ctx context.Context) (results.OperationResult[*RunInfo, error], error) {
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

func toRunInfo(run *rundb.Run) *RunInfo {
	return &RunInfo{
		RunID:     run.RunID,
		TeamName:  run.TeamName,
		CreatedAt: run.CreatedAt,
	}
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *RunService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("run_id", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, "RunService")
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, "RunService", time.Since(startTime))
		}
	}()

	s.logger.InfoContext(ctx, "Operation triggered", attr.ExtractCorrelationID(ctx), attr.String("operation", operationName))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("run_id", identifier),
				attr.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, "RunService")
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
			attr.String("run_id", identifier),
			attr.Error(wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, "RunService")
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("run_id", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, "RunService")
	}

	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *RunService,
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
