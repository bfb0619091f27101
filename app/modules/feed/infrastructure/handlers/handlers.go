// Package feedhandlers streams feed events to browsers over websockets.
package feedhandlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	feeddomain "github.com/Black-And-White-Club/keyquest/app/modules/feed/domain"
	"github.com/Black-And-White-Club/keyquest/app/shared/attr"
	"github.com/Black-And-White-Club/keyquest/app/shared/httpmw"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Subscriber opens a stream of events for a topic. The stream closes when ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan feeddomain.Event, error)
}

// FeedHandlers upgrades requests to websockets and relays hub events.
type FeedHandlers struct {
	hub      Subscriber
	upgrader websocket.Upgrader
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewFeedHandlers creates handlers. With no allowed origins any origin may connect.
func NewFeedHandlers(hub Subscriber, allowedOrigins []string, logger *slog.Logger, tracer trace.Tracer) *FeedHandlers {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &FeedHandlers{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
		},
		logger: logger,
		tracer: tracer,
	}
}

// HandleRunFeed streams events for one run.
func (h *FeedHandlers) HandleRunFeed(w http.ResponseWriter, r *http.Request) {
	runID, err := httpmw.RunIDParam(r)
	if err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	h.serve(w, r, feeddomain.RunTopic(runID))
}

// HandleLeaderboardFeed streams every event so boards can refresh.
func (h *FeedHandlers) HandleLeaderboardFeed(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, feeddomain.LeaderboardTopic)
}

func (h *FeedHandlers) serve(w http.ResponseWriter, r *http.Request, topic string) {
	// After the upgrade the server no longer watches the connection; readPump
	// cancels ctx when the client goes away.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := h.hub.Subscribe(ctx, topic)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to subscribe to feed",
			attr.String("topic", topic),
			attr.Error(err),
		)
		httpmw.WriteError(w, http.StatusServiceUnavailable, "feed unavailable")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.DebugContext(ctx, "Websocket upgrade failed", attr.Error(err))
		return
	}
	defer conn.Close()

	h.logger.InfoContext(ctx, "Feed listener connected",
		attr.ExtractCorrelationID(r.Context()),
		attr.String("topic", topic),
	)

	go h.readPump(conn, cancel)
	h.writePump(ctx, conn, events)

	h.logger.InfoContext(ctx, "Feed listener disconnected", attr.String("topic", topic))
}

// readPump drains control frames and cancels the stream when the client goes away.
func (h *FeedHandlers) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("Feed websocket closed unexpectedly", attr.Error(err))
			}
			return
		}
	}
}

func (h *FeedHandlers) writePump(ctx context.Context, conn *websocket.Conn, events <-chan feeddomain.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case event, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
