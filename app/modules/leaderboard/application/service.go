package leaderboardservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	leaderboarddomain "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/domain"
	leaderboarddb "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/infrastructure/repositories"
	"github.com/Black-And-White-Club/keyquest/app/shared/attr"
	"github.com/Black-And-White-Club/keyquest/app/shared/metrics"
	"github.com/Black-And-White-Club/keyquest/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "LeaderboardService"

// LeaderboardService implements the Service interface.
type LeaderboardService struct {
	repo     leaderboarddb.Repository
	tiers    *leaderboarddomain.TierTable
	finalKey sharedtypes.StationKey
	palette  ChartPalette
	logger   *slog.Logger
	metrics  metrics.OperationMetrics
	tracer   trace.Tracer
	db       *bun.DB
	now      func() time.Time
}

// NewLeaderboardService creates a new LeaderboardService. A nil tier table uses the defaults.
func NewLeaderboardService(
	repo leaderboarddb.Repository,
	tiers *leaderboarddomain.TierTable,
	finalKey sharedtypes.StationKey,
	logger *slog.Logger,
	metrics metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *LeaderboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if tiers == nil {
		tiers = leaderboarddomain.MustDefaultTierTable()
	}
	return &LeaderboardService{
		repo:     repo,
		tiers:    tiers,
		finalKey: finalKey,
		palette:  DefaultPalette(),
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		db:       db,
		now:      time.Now,
	}
}

// GetLeaderboard reads the whole ledger and ranks it.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, query string) (*Board, error) {
	query = strings.TrimSpace(query)
	result, err := withTelemetry(s, ctx, "GetLeaderboard", query, func(ctx context.Context) (results.OperationResult[*Board, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*Board, error], error) {
			standings, err := s.rank(ctx, db)
			if err != nil {
				return results.OperationResult[*Board, error]{}, err
			}
			filtered := leaderboarddomain.Filter(standings, query)
			return results.SuccessResult[*Board, error](&Board{
				Standings:   filtered,
				Teams:       len(standings),
				Query:       query,
				Tiers:       s.tiers.Tiers(),
				GeneratedAt: s.now().UTC(),
			}), nil
		})
	})
	if err != nil {
		return nil, err
	}
	return *result.Success, nil
}

// RenderChart draws the top limit standings. limit <= 0 draws ten.
func (s *LeaderboardService) RenderChart(ctx context.Context, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = 10
	}
	board, err := s.GetLeaderboard(ctx, "")
	if err != nil {
		return nil, err
	}
	top := board.Standings
	if len(top) > limit {
		top = top[:limit]
	}
	png, err := GenerateStandingsChart(top, s.tiers.MaxTotal(), s.palette)
	if err != nil {
		return nil, fmt.Errorf("failed to render leaderboard chart: %w", err)
	}
	return png, nil
}

// Export writes the board as an XLSX workbook.
func (s *LeaderboardService) Export(ctx context.Context, query string) ([]byte, error) {
	board, err := s.GetLeaderboard(ctx, query)
	if err != nil {
		return nil, err
	}
	out, err := WriteStandingsWorkbook(board.Standings, board.GeneratedAt)
	if err != nil {
		s.logger.ErrorContext(ctx, "Leaderboard export failed", attr.ExtractCorrelationID(ctx), attr.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	return out, nil
}

// Classify maps a total onto the tier table.
func (s *LeaderboardService) Classify(total int) leaderboarddomain.Tier {
	return s.tiers.Classify(total)
}

func (s *LeaderboardService) rank(ctx context.Context, db bun.IDB) ([]leaderboarddomain.Standing, error) {
	rows, err := s.repo.ListStandingRows(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to read standings: %w", err)
	}
	domainRows := make([]leaderboarddomain.Row, 0, len(rows))
	for _, r := range rows {
		domainRows = append(domainRows, leaderboarddomain.Row{
			RunID:        r.RunID,
			StationKey:   r.StationKey,
			Score:        r.Score,
			MetaTeamName: r.MetaTeamName,
			RunTeamName:  r.RunTeamName,
			RunCreatedAt: r.RunCreatedAt,
			UpdatedAt:    r.UpdatedAt,
		})
	}
	return leaderboarddomain.Aggregate(domainRows, s.finalKey, s.tiers), nil
}

// -----------------------------------------------------------------------------
// Generic Helpers
// -----------------------------------------------------------------------------

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *LeaderboardService,
	ctx context.Context,
	operationName string,
	query string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("query", query),
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

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("operation", operationName),
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
			attr.Error(wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}
	return result, nil
}

// runInTx runs fn in a read-only transaction, or directly when no database is configured.
func runInTx[S any, F any](
	s *LeaderboardService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := s.db.RunInTx(ctx, &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}
