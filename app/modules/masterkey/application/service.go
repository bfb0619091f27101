package masterkeyservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	keysdomain "github.com/Black-And-White-Club/keyquest/app/modules/keys/domain"
	masterkeydomain "github.com/Black-And-White-Club/keyquest/app/modules/masterkey/domain"
	scoringdomain "github.com/Black-And-White-Club/keyquest/app/modules/scoring/domain"
	stationservice "github.com/Black-And-White-Club/keyquest/app/modules/station/application"
	"github.com/Black-And-White-Club/keyquest/app/shared/attr"
	"github.com/Black-And-White-Club/keyquest/app/shared/metrics"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "MasterKeyService"

// MasterKeyService implements the Service interface.
type MasterKeyService struct {
	ledger  Ledger
	tiers   TierClassifier
	cfg     Config
	logger  *slog.Logger
	metrics metrics.OperationMetrics
	tracer  trace.Tracer
	now     func() time.Time
}

// NewMasterKeyService creates a new MasterKeyService.
func NewMasterKeyService(
	ledger Ledger,
	tiers TierClassifier,
	cfg Config,
	logger *slog.Logger,
	metrics metrics.OperationMetrics,
	tracer trace.Tracer,
) *MasterKeyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MasterKeyService{
		ledger:  ledger,
		tiers:   tiers,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		now:     time.Now,
	}
}

type snapshot struct {
	expected     []string
	stationTotal int
	elapsedSec   int
}

// Validate compares the submission with the issued fragments. On a match the
// final station is recorded with the bonus as its score. A run that earned no
// fragments matches an empty submission and gets the bonus for zero parts.
func (s *MasterKeyService) Validate(ctx context.Context, req ValidateRequest) (*Outcome, error) {
	return withTelemetry(s, ctx, "Validate", req.Session.RunID, func(ctx context.Context) (*Outcome, error) {
		if err := req.Session.Validate(); err != nil {
			return nil, err
		}
		mode := req.Mode
		if mode == "" {
			mode = sharedtypes.ModeWeb
		}

		snap, err := s.load(ctx, req.Session.RunID, req.StartedAt)
		if err != nil {
			return nil, err
		}
		out := &Outcome{
			Needed:       len(snap.expected),
			Submitted:    len(req.Fragments),
			StationTotal: snap.stationTotal,
			ElapsedSec:   snap.elapsedSec,
		}
		if !masterkeydomain.Matches(snap.expected, req.Fragments) {
			s.logger.InfoContext(ctx, "Master key mismatch",
				attr.ExtractCorrelationID(ctx),
				attr.RunID("run_id", req.Session.RunID),
				attr.Int("needed", out.Needed),
				attr.Int("submitted", out.Submitted),
			)
			return out, nil
		}

		bonus := scoringdomain.CompletionBonus(len(snap.expected), s.cfg.Bonus, snap.elapsedSec)
		display := scoringdomain.Clamp(snap.stationTotal+bonus.Total, 0, s.cfg.ScoreMax)
		tier := s.tiers.Classify(display)

		parts := make([]string, 0, len(req.Fragments))
		for _, f := range req.Fragments {
			parts = append(parts, keysdomain.Normalize(f))
		}

		stored, err := s.ledger.Record(ctx, stationservice.RecordRequest{
			Session:    req.Session,
			StationKey: s.cfg.FinalStationKey,
			Mode:       mode,
			Score:      bonus.Total,
			Meta: map[string]any{
				"parts":                     parts,
				"parts_count":               len(snap.expected),
				"elapsed_sec":               snap.elapsedSec,
				"bonus_breakdown":           bonus,
				"display_total_after_bonus": display,
				"level": map[string]any{
					"name":        tier.Name,
					"short_label": tier.ShortLabel,
					"range":       []int{tier.Min, tier.Max},
				},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to record final station: %w", err)
		}

		out.Valid = true
		out.Bonus = &bonus
		out.DisplayTotal = display
		out.Tier = &tier
		out.Result = stored
		return out, nil
	})
}

// Preview reports the bonus and tier the run would get if it validated now.
func (s *MasterKeyService) Preview(ctx context.Context, runID uuid.UUID, startedAt time.Time) (*Preview, error) {
	return withTelemetry(s, ctx, "Preview", runID, func(ctx context.Context) (*Preview, error) {
		if runID == uuid.Nil {
			return nil, sharedtypes.ErrEmptyRunID
		}
		snap, err := s.load(ctx, runID, startedAt)
		if err != nil {
			return nil, err
		}
		bonus := scoringdomain.CompletionBonus(len(snap.expected), s.cfg.Bonus, snap.elapsedSec)
		display := scoringdomain.Clamp(snap.stationTotal+bonus.Total, 0, s.cfg.ScoreMax)
		return &Preview{
			RunID:        runID,
			Needed:       len(snap.expected),
			StationTotal: snap.stationTotal,
			Bonus:        bonus,
			DisplayTotal: display,
			Tier:         s.tiers.Classify(display),
			ElapsedSec:   snap.elapsedSec,
			ScoreMax:     s.cfg.ScoreMax,
		}, nil
	})
}

func (s *MasterKeyService) load(ctx context.Context, runID uuid.UUID, startedAt time.Time) (snapshot, error) {
	rows, err := s.ledger.ListForRun(ctx, runID, s.cfg.FinalStationKey)
	if err != nil {
		return snapshot{}, fmt.Errorf("failed to read station results: %w", err)
	}

	var snap snapshot
	for _, r := range rows {
		snap.stationTotal += r.Score
		if r.KeyPart != nil && *r.KeyPart != "" {
			snap.expected = append(snap.expected, *r.KeyPart)
		}
	}
	if !startedAt.IsZero() {
		snap.elapsedSec = max(int(s.now().Sub(startedAt)/time.Second), 0)
	}
	return snap, nil
}

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[T any](
	s *MasterKeyService,
	ctx context.Context,
	operationName string,
	runID uuid.UUID,
	op func(ctx context.Context) (T, error),
) (result T, err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("run_id", runID.String()),
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
				attr.RunID("run_id", runID),
				attr.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			}
			span.RecordError(err)
			var zero T
			result = zero
		}
	}()

	result, err = op(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Operation failed",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.RunID("run_id", runID),
			attr.Error(err),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(err)
		return result, err
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}
	return result, nil
}
