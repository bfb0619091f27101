package leaderboardhandlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	leaderboardservice "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/application"
	"github.com/Black-And-White-Club/keyquest/app/shared/attr"
	"github.com/Black-And-White-Club/keyquest/app/shared/httpmw"
	"go.opentelemetry.io/otel/trace"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// LeaderboardHandlers serves the computed leaderboard.
type LeaderboardHandlers struct {
	service leaderboardservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewLeaderboardHandlers creates a new LeaderboardHandlers instance.
func NewLeaderboardHandlers(service leaderboardservice.Service, logger *slog.Logger, tracer trace.Tracer) *LeaderboardHandlers {
	return &LeaderboardHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

// HandleGetLeaderboard returns the ranked board, filtered by ?q= when present.
func (h *LeaderboardHandlers) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.GetLeaderboard(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, "GetLeaderboard", err)
		return
	}
	httpmw.WriteJSON(w, http.StatusOK, board)
}

// HandleChart returns a PNG bar chart of the top ?limit= teams.
func (h *LeaderboardHandlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpmw.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	png, err := h.service.RenderChart(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "RenderChart", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// HandleExport streams the board as an XLSX attachment.
func (h *LeaderboardHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Export(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, "Export", err)
		return
	}
	name := fmt.Sprintf("leaderboard-%s.xlsx", time.Now().UTC().Format("20060102-1504"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (h *LeaderboardHandlers) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.ErrorContext(r.Context(), "Leaderboard request failed",
		attr.ExtractCorrelationID(r.Context()),
		attr.String("operation", op),
		attr.Error(err),
	)
	httpmw.WriteError(w, http.StatusInternalServerError, err.Error())
}
