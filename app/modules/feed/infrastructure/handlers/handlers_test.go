package feedhandlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	feeddomain "github.com/Black-And-White-Club/keyquest/app/modules/feed/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestServer(t *testing.T, sub *FakeSubscriber, origins []string) *httptest.Server {
	t.Helper()
	h := NewFeedHandlers(sub, origins, slog.New(slog.NewTextHandler(io.Discard, nil)), noop.NewTracerProvider().Tracer("test"))
	r := chi.NewRouter()
	r.Get("/api/runs/{runID}/feed", h.HandleRunFeed)
	r.Get("/api/leaderboard/feed", h.HandleLeaderboardFeed)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func waitSubscribed(t *testing.T, sub *FakeSubscriber) string {
	t.Helper()
	select {
	case topic := <-sub.subscribed:
		return topic
	case <-time.After(2 * time.Second):
		t.Fatal("handler never subscribed")
		return ""
	}
}

func TestHandleRunFeed_RelaysEvents(t *testing.T) {
	sub := NewFakeSubscriber()
	srv := newTestServer(t, sub, nil)
	runID := uuid.New()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/runs/"+runID.String()+"/feed"), nil)
	require.NoError(t, err)
	defer conn.Close()

	topic := waitSubscribed(t, sub)
	assert.Equal(t, feeddomain.RunTopic(runID), topic)

	sent := feeddomain.Event{RunID: runID, StationKey: "phishing", Kind: feeddomain.EventResultSaved, Score: 170}
	sub.Send(topic, sent)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got feeddomain.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, sent.RunID, got.RunID)
	assert.Equal(t, sent.StationKey, got.StationKey)
	assert.Equal(t, 170, got.Score)
}

func TestHandleLeaderboardFeed_Topic(t *testing.T) {
	sub := NewFakeSubscriber()
	srv := newTestServer(t, sub, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/leaderboard/feed"), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, feeddomain.LeaderboardTopic, waitSubscribed(t, sub))
}

func TestHandleRunFeed_Rejections(t *testing.T) {
	t.Run("bad run id", func(t *testing.T) {
		srv := newTestServer(t, NewFakeSubscriber(), nil)
		resp, err := http.Get(srv.URL + "/api/runs/nope/feed")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("hub unavailable", func(t *testing.T) {
		sub := NewFakeSubscriber()
		sub.err = errors.New("closed")
		srv := newTestServer(t, sub, nil)
		resp, err := http.Get(srv.URL + "/api/runs/" + uuid.NewString() + "/feed")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("origin not allowed", func(t *testing.T) {
		srv := newTestServer(t, NewFakeSubscriber(), []string{"https://play.example"})
		header := http.Header{"Origin": []string{"https://evil.example"}}
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/leaderboard/feed"), header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
