package stationhandlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	scoringdomain "github.com/Black-And-White-Club/keyquest/app/modules/scoring/domain"
	stationservice "github.com/Black-And-White-Club/keyquest/app/modules/station/application"
	stationdomain "github.com/Black-And-White-Club/keyquest/app/modules/station/domain"
	"github.com/Black-And-White-Club/keyquest/app/shared/attr"
	"github.com/Black-And-White-Club/keyquest/app/shared/httpmw"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

// StationHandlers serves the station catalog and result ledger over HTTP.
type StationHandlers struct {
	service  stationservice.Service
	finalKey sharedtypes.StationKey
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewStationHandlers creates a new StationHandlers instance.
func NewStationHandlers(service stationservice.Service, finalKey sharedtypes.StationKey, logger *slog.Logger, tracer trace.Tracer) *StationHandlers {
	return &StationHandlers{
		service:  service,
		finalKey: finalKey,
		logger:   logger,
		tracer:   tracer,
	}
}

type recordRequest struct {
	TeamName string         `json:"team_name"`
	Mode     string         `json:"mode"`
	Score    int            `json:"score"`
	Meta     map[string]any `json:"meta,omitempty"`
}

type completeRequest struct {
	TeamName string                `json:"team_name"`
	Mode     string                `json:"mode"`
	Signals  scoringdomain.Signals `json:"signals"`
	Score    int                   `json:"score,omitempty"`
}

// HandleListStations returns the catalog in play order.
func (h *StationHandlers) HandleListStations(w http.ResponseWriter, r *http.Request) {
	defs, err := h.service.Catalog(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Catalog", err)
		return
	}
	httpmw.WriteJSON(w, http.StatusOK, defs)
}

// HandleListResults returns the run's results. ?exclude=a,b skips stations.
func (h *StationHandlers) HandleListResults(w http.ResponseWriter, r *http.Request) {
	runID, err := httpmw.RunIDParam(r)
	if err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	var exclude []sharedtypes.StationKey
	for _, raw := range strings.Split(r.URL.Query().Get("exclude"), ",") {
		if k := strings.TrimSpace(raw); k != "" {
			exclude = append(exclude, sharedtypes.StationKey(k))
		}
	}

	rows, err := h.service.ListForRun(r.Context(), runID, exclude...)
	if err != nil {
		h.writeServiceError(w, r, "ListForRun", err)
		return
	}
	httpmw.WriteJSON(w, http.StatusOK, rows)
}

// HandleProgress returns the run's progress against the catalog.
func (h *StationHandlers) HandleProgress(w http.ResponseWriter, r *http.Request) {
	runID, err := httpmw.RunIDParam(r)
	if err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	p, err := h.service.Progress(r.Context(), runID)
	if err != nil {
		h.writeServiceError(w, r, "Progress", err)
		return
	}
	httpmw.WriteJSON(w, http.StatusOK, p)
}

// HandleGetResult returns one station's row. The final station is readable here.
func (h *StationHandlers) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	runID, err := httpmw.RunIDParam(r)
	if err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	key := sharedtypes.StationKey(strings.TrimSpace(chi.URLParam(r, "stationKey")))
	if key == "" {
		httpmw.WriteError(w, http.StatusBadRequest, sharedtypes.ErrEmptyStation.Error())
		return
	}

	row, err := h.service.GetResult(r.Context(), runID, key)
	if err != nil {
		h.writeServiceError(w, r, "GetResult", err)
		return
	}
	httpmw.WriteJSON(w, http.StatusOK, row)
}

// HandleRecord writes a station score. ?policy=best keeps the higher score.
func (h *StationHandlers) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID, err := httpmw.RunIDParam(r)
	if err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	key, ok := h.stationParam(w, r)
	if !ok {
		return
	}
	policy, err := stationdomain.ParsePolicy(r.URL.Query().Get("policy"))
	if err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body recordRequest
	if err := httpmw.DecodeJSON(r, &body); err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode, err := sharedtypes.ParseMode(body.Mode)
	if err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := stationservice.RecordRequest{
		Session:    sharedtypes.Session{RunID: runID, TeamName: body.TeamName},
		StationKey: key,
		Mode:       mode,
		Score:      body.Score,
		Meta:       body.Meta,
	}

	var stored *stationservice.StationResult
	if policy == stationdomain.PolicyKeepHigher {
		stored, err = h.service.RecordIfHigher(ctx, req)
	} else {
		stored, err = h.service.Record(ctx, req)
	}
	if err != nil {
		h.writeServiceError(w, r, "Record", err)
		return
	}
	httpmw.WriteJSON(w, http.StatusOK, stored)
}

// HandleComplete scores a finished mini-game and returns the stored fragment.
func (h *StationHandlers) HandleComplete(w http.ResponseWriter, r *http.Request) {
	runID, err := httpmw.RunIDParam(r)
	if err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	key, ok := h.stationParam(w, r)
	if !ok {
		return
	}
	policy, err := stationdomain.ParsePolicy(r.URL.Query().Get("policy"))
	if err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body completeRequest
	if err := httpmw.DecodeJSON(r, &body); err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode, err := sharedtypes.ParseMode(body.Mode)
	if err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.service.Complete(r.Context(), stationservice.CompleteRequest{
		Session:       sharedtypes.Session{RunID: runID, TeamName: body.TeamName},
		StationKey:    key,
		Mode:          mode,
		Signals:       body.Signals,
		ReportedScore: body.Score,
		Policy:        policy,
	})
	if err != nil {
		h.writeServiceError(w, r, "Complete", err)
		return
	}
	httpmw.WriteJSON(w, http.StatusOK, out)
}

func (h *StationHandlers) stationParam(w http.ResponseWriter, r *http.Request) (sharedtypes.StationKey, bool) {
	key := sharedtypes.StationKey(strings.TrimSpace(chi.URLParam(r, "stationKey")))
	if key == "" {
		httpmw.WriteError(w, http.StatusBadRequest, sharedtypes.ErrEmptyStation.Error())
		return "", false
	}
	if key == h.finalKey {
		httpmw.WriteError(w, http.StatusForbidden, stationservice.ErrFinalStation.Error())
		return "", false
	}
	return key, true
}

func (h *StationHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, stationservice.ErrUnknownStation),
		errors.Is(err, stationservice.ErrResultNotFound):
		httpmw.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, stationservice.ErrFinalStation):
		httpmw.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, sharedtypes.ErrEmptyRunID),
		errors.Is(err, sharedtypes.ErrInvalidMode),
		errors.Is(err, scoringdomain.ErrNoCalculator),
		errors.Is(err, scoringdomain.ErrPasswordCount),
		errors.Is(err, scoringdomain.ErrRepeatedPassword),
		errors.Is(err, scoringdomain.ErrNegativeSignal),
		errors.Is(err, scoringdomain.ErrTooManyAnswers),
		errors.Is(err, scoringdomain.ErrUnsupportedSignals):
		httpmw.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "Station request failed",
			attr.ExtractCorrelationID(r.Context()),
			attr.String("operation", op),
			attr.Error(err),
		)
		httpmw.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
