package masterkeyhandlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	masterkeyservice "github.com/Black-And-White-Club/keyquest/app/modules/masterkey/application"
	"github.com/Black-And-White-Club/keyquest/app/shared/attr"
	"github.com/Black-And-White-Club/keyquest/app/shared/httpmw"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"go.opentelemetry.io/otel/trace"
)

// MasterKeyHandlers serves the final station.
type MasterKeyHandlers struct {
	service masterkeyservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewMasterKeyHandlers creates a new MasterKeyHandlers instance.
func NewMasterKeyHandlers(service masterkeyservice.Service, logger *slog.Logger, tracer trace.Tracer) *MasterKeyHandlers {
	return &MasterKeyHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

type validateRequest struct {
	TeamName  string     `json:"team_name"`
	Mode      string     `json:"mode"`
	Fragments []string   `json:"fragments"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// HandlePreview returns the live bonus and tier. ?started_at= is RFC 3339.
func (h *MasterKeyHandlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	runID, err := httpmw.RunIDParam(r)
	if err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	var startedAt time.Time
	if raw := r.URL.Query().Get("started_at"); raw != "" {
		startedAt, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			httpmw.WriteError(w, http.StatusBadRequest, "started_at must be RFC 3339")
			return
		}
	}

	p, err := h.service.Preview(r.Context(), runID, startedAt)
	if err != nil {
		h.writeServiceError(w, r, "Preview", err)
		return
	}
	httpmw.WriteJSON(w, http.StatusOK, p)
}

// HandleValidate checks a master key submission. A mismatch is a 200 with valid=false.
func (h *MasterKeyHandlers) HandleValidate(w http.ResponseWriter, r *http.Request) {
	runID, err := httpmw.RunIDParam(r)
	if err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	var body validateRequest
	if err := httpmw.DecodeJSON(r, &body); err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode, err := sharedtypes.ParseMode(body.Mode)
	if err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := masterkeyservice.ValidateRequest{
		Session:   sharedtypes.Session{RunID: runID, TeamName: body.TeamName},
		Mode:      mode,
		Fragments: body.Fragments,
	}
	if body.StartedAt != nil {
		req.StartedAt = *body.StartedAt
	}

	out, err := h.service.Validate(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "Validate", err)
		return
	}
	httpmw.WriteJSON(w, http.StatusOK, out)
}

func (h *MasterKeyHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, sharedtypes.ErrEmptyRunID):
		httpmw.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "Master key request failed",
			attr.ExtractCorrelationID(r.Context()),
			attr.String("operation", op),
			attr.Error(err),
		)
		httpmw.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
