package stationhandlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	scoringdomain "github.com/Black-And-White-Club/keyquest/app/modules/scoring/domain"
	stationservice "github.com/Black-And-White-Club/keyquest/app/modules/station/application"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestRouter(svc *FakeService) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewStationHandlers(svc, "master_reset", logger, noop.NewTracerProvider().Tracer("test"))
	r := chi.NewRouter()
	r.Get("/api/stations", h.HandleListStations)
	r.Get("/api/runs/{runID}/results", h.HandleListResults)
	r.Get("/api/runs/{runID}/progress", h.HandleProgress)
	r.Get("/api/runs/{runID}/stations/{stationKey}", h.HandleGetResult)
	r.Put("/api/runs/{runID}/stations/{stationKey}", h.HandleRecord)
	r.Post("/api/runs/{runID}/stations/{stationKey}/complete", h.HandleComplete)
	return r
}

func TestStationHandlers_HandleRecord(t *testing.T) {
	runID := uuid.New()

	tests := []struct {
		name         string
		path         string
		body         string
		setupService func(*FakeService)
		wantStatus   int
		verify       func(t *testing.T, rr *httptest.ResponseRecorder)
	}{
		{
			name:       "overwrite by default",
			path:       "/api/runs/" + runID.String() + "/stations/phishing",
			body:       `{"team_name":"Orion","mode":"web","score":121,"meta":{"elapsed_sec":140}}`,
			wantStatus: http.StatusOK,
			setupService: func(s *FakeService) {
				s.RecordIfHigherFunc = func(ctx context.Context, req stationservice.RecordRequest) (*stationservice.StationResult, error) {
					t.Error("keep-higher must not be used without policy=best")
					return nil, nil
				}
			},
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var got stationservice.StationResult
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
				assert.Equal(t, 121, got.Score)
				assert.Equal(t, sharedtypes.ModeWeb, got.Mode)
			},
		},
		{
			name:       "policy best routes to keep-higher",
			path:       "/api/runs/" + runID.String() + "/stations/drones?policy=best",
			body:       `{"mode":"presencial","score":90}`,
			wantStatus: http.StatusOK,
			setupService: func(s *FakeService) {
				s.RecordIfHigherFunc = func(ctx context.Context, req stationservice.RecordRequest) (*stationservice.StationResult, error) {
					assert.Equal(t, sharedtypes.ModeInPerson, req.Mode)
					return &stationservice.StationResult{Score: 180}, nil
				}
			},
		},
		{
			name:       "final station is forbidden",
			path:       "/api/runs/" + runID.String() + "/stations/master_reset",
			body:       `{"mode":"web","score":100}`,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "unknown policy",
			path:       "/api/runs/" + runID.String() + "/stations/drones?policy=random",
			body:       `{"mode":"web","score":100}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown mode",
			path:       "/api/runs/" + runID.String() + "/stations/drones",
			body:       `{"mode":"vr","score":100}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field in body",
			path:       "/api/runs/" + runID.String() + "/stations/drones",
			body:       `{"mode":"web","score":100,"key_part":"AAAA"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad run id",
			path:       "/api/runs/not-a-uuid/stations/drones",
			body:       `{"mode":"web","score":100}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown station maps to 404",
			path: "/api/runs/" + runID.String() + "/stations/karaoke",
			body: `{"mode":"web","score":1}`,
			setupService: func(s *FakeService) {
				s.RecordFunc = func(ctx context.Context, req stationservice.RecordRequest) (*stationservice.StationResult, error) {
					return nil, stationservice.ErrUnknownStation
				}
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "store failure is a 500",
			path: "/api/runs/" + runID.String() + "/stations/drones",
			body: `{"mode":"web","score":1}`,
			setupService: func(s *FakeService) {
				s.RecordFunc = func(ctx context.Context, req stationservice.RecordRequest) (*stationservice.StationResult, error) {
					return nil, fmt.Errorf("failed to upsert station result: %w", errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"))
				}
			},
			wantStatus: http.StatusInternalServerError,
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var got map[string]string
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
				assert.Equal(t, "failed to upsert station result: dial tcp 10.0.0.5:5432: connect: connection refused", got["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &FakeService{}
			if tt.setupService != nil {
				tt.setupService(svc)
			}
			req := httptest.NewRequest(http.MethodPut, tt.path, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			newTestRouter(svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.verify != nil {
				tt.verify(t, rr)
			}
		})
	}
}

func TestStationHandlers_HandleComplete(t *testing.T) {
	runID := uuid.New()
	fragment := "QX7P"

	t.Run("returns the stored fragment", func(t *testing.T) {
		svc := &FakeService{
			CompleteFunc: func(ctx context.Context, req stationservice.CompleteRequest) (*stationservice.Completion, error) {
				assert.Equal(t, 20, req.Signals.Correct)
				assert.Equal(t, "Orion", req.Session.TeamName)
				return &stationservice.Completion{
					Result:   &stationservice.StationResult{Score: 144, KeyPart: &fragment},
					Fragment: &fragment,
					Earned:   true,
				}, nil
			},
		}
		body := `{"team_name":"Orion","mode":"web","signals":{"correct":20,"mistakes":2,"elapsed_sec":75}}`
		req := httptest.NewRequest(http.MethodPost, "/api/runs/"+runID.String()+"/stations/drones/complete", strings.NewReader(body))
		rr := httptest.NewRecorder()

		newTestRouter(svc).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var got stationservice.Completion
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		require.NotNil(t, got.Fragment)
		assert.Equal(t, fragment, *got.Fragment)
	})

	t.Run("invalid signals are a 400", func(t *testing.T) {
		svc := &FakeService{
			CompleteFunc: func(ctx context.Context, req stationservice.CompleteRequest) (*stationservice.Completion, error) {
				return nil, scoringdomain.ErrRepeatedPassword
			},
		}
		body := `{"mode":"web","signals":{"passwords":["a","a","b"]}}`
		req := httptest.NewRequest(http.MethodPost, "/api/runs/"+runID.String()+"/stations/passwords/complete", strings.NewReader(body))
		rr := httptest.NewRecorder()

		newTestRouter(svc).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestStationHandlers_Reads(t *testing.T) {
	runID := uuid.New()

	t.Run("exclude list is split and trimmed", func(t *testing.T) {
		svc := &FakeService{
			ListForRunFunc: func(ctx context.Context, id uuid.UUID, exclude ...sharedtypes.StationKey) ([]stationservice.StationResult, error) {
				assert.Equal(t, []sharedtypes.StationKey{"master_reset", "drones"}, exclude)
				return []stationservice.StationResult{{RunID: id, StationKey: "phishing", Score: 10}}, nil
			},
		}
		req := httptest.NewRequest(http.MethodGet, "/api/runs/"+runID.String()+"/results?exclude=master_reset,%20drones,", nil)
		rr := httptest.NewRecorder()

		newTestRouter(svc).ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		var got []stationservice.StationResult
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Len(t, got, 1)
	})

	t.Run("progress", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/"+runID.String()+"/progress", nil)
		rr := httptest.NewRecorder()
		newTestRouter(&FakeService{}).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("catalog", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/stations", nil)
		rr := httptest.NewRecorder()
		newTestRouter(&FakeService{}).ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"station_key":"phishing"`)
	})
	t.Run("single station result", func(t *testing.T) {
		fragment := "K7MQ"
		svc := &FakeService{
			GetResultFunc: func(ctx context.Context, id uuid.UUID, key sharedtypes.StationKey) (*stationservice.StationResult, error) {
				assert.Equal(t, runID, id)
				assert.Equal(t, sharedtypes.StationKey("firewall"), key)
				return &stationservice.StationResult{RunID: id, StationKey: key, Score: 120, KeyPart: &fragment}, nil
			},
		}
		req := httptest.NewRequest(http.MethodGet, "/api/runs/"+runID.String()+"/stations/firewall", nil)
		rr := httptest.NewRecorder()

		newTestRouter(svc).ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		var got stationservice.StationResult
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, 120, got.Score)
		require.NotNil(t, got.KeyPart)
		assert.Equal(t, fragment, *got.KeyPart)
	})

	t.Run("final station result is readable", func(t *testing.T) {
		svc := &FakeService{
			GetResultFunc: func(ctx context.Context, id uuid.UUID, key sharedtypes.StationKey) (*stationservice.StationResult, error) {
				return &stationservice.StationResult{RunID: id, StationKey: key, Score: 100}, nil
			},
		}
		req := httptest.NewRequest(http.MethodGet, "/api/runs/"+runID.String()+"/stations/master_reset", nil)
		rr := httptest.NewRecorder()

		newTestRouter(svc).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("missing station result is a 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/"+runID.String()+"/stations/drones", nil)
		rr := httptest.NewRecorder()

		newTestRouter(&FakeService{}).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
