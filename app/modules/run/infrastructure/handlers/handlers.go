package runhandlers

import (
	"errors"
	"log/slog"
	"net/http"

	runservice "github.com/Black-And-White-Club/keyquest/app/modules/run/application"
	"github.com/Black-And-White-Club/keyquest/app/shared/attr"
	"github.com/Black-And-White-Club/keyquest/app/shared/httpmw"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// RunHandlers serves the run registry over HTTP.
type RunHandlers struct {
	service runservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewRunHandlers creates a new RunHandlers instance.
func NewRunHandlers(service runservice.Service, logger *slog.Logger, tracer trace.Tracer) *RunHandlers {
	return &RunHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

type createRunRequest struct {
	RunID    string `json:"run_id,omitempty"`
	TeamName string `json:"team_name"`
}

// HandleCreateRun ensures a run exists. A missing run_id starts a new run.
func (h *RunHandlers) HandleCreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRunRequest
	if err := httpmw.DecodeJSON(r, &req); err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	runID := uuid.New()
	if req.RunID != "" {
		parsed, err := uuid.Parse(req.RunID)
		if err != nil {
			httpmw.WriteError(w, http.StatusBadRequest, "invalid run_id")
			return
		}
		runID = parsed
	}

	run, err := h.service.EnsureRun(ctx, sharedtypes.Session{RunID: runID, TeamName: req.TeamName})
	if err != nil {
		h.writeServiceError(w, r, "EnsureRun", err)
		return
	}
	httpmw.WriteJSON(w, http.StatusOK, run)
}

// HandleGetRun returns a single run.
func (h *RunHandlers) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := httpmw.RunIDParam(r)
	if err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		h.writeServiceError(w, r, "GetRun", err)
		return
	}
	httpmw.WriteJSON(w, http.StatusOK, run)
}

func (h *RunHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, runservice.ErrRunNotFound):
		httpmw.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sharedtypes.ErrEmptyRunID), errors.Is(err, runservice.ErrTeamNameTooLong):
		httpmw.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "Run request failed",
			attr.ExtractCorrelationID(r.Context()),
			attr.String("operation", op),
			attr.Error(err),
		)
		httpmw.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
