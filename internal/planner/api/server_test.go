package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/endfield-planner-server/internal/planner/catalog"
	"github.com/rsned/endfield-planner-server/internal/planner/db"
	"github.com/rsned/endfield-planner-server/internal/planner/engine"
	"github.com/rsned/endfield-planner-server/internal/planner/metrics"
	"github.com/rsned/endfield-planner-server/internal/planner/state"
	"github.com/rsned/endfield-planner-server/pkg/planner"
)

type testAPI struct {
	handler http.Handler
	metrics *metrics.Metrics
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	ctx := context.Background()

	database, err := db.OpenAndInit(ctx, db.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := catalog.New(
		[]planner.ItemRecord{
			{Name: "열화의 검", Rarity: 6, Tags: []string{"힘 증가", "공격력 증가", "강공"}},
			{Name: "빙결의 창", Rarity: 6, Tags: []string{"지능 증가", "공격력 증가", "억제"}},
			{Name: "바람의 활", Rarity: 4, Tags: []string{"민첩 증가", "강공"}},
		},
		[]planner.LocationRecord{
			{Name: "Loc1", DropTable: []string{"열화의 검", "빙결의 창"}},
		},
		[]planner.TaskRecord{
			{ID: "d1", Type: planner.TaskDaily, Title: "Patrol", Steps: []string{"North", "South"}},
			{ID: "d2", Type: planner.TaskDaily, Title: "Shop", Desc: "Buy"},
		},
	)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	eng, err := engine.New(ctx, cat, state.NewStore(db.NewKVStore(database), logger), engine.Options{
		Logger:  logger,
		Metrics: m,
	})
	require.NoError(t, err)

	srv := NewServer(eng, Options{Metrics: m, Gatherer: reg, Logger: logger})
	return testAPI{handler: srv.Routes(), metrics: m}
}

func (a testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndRequestID(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestDecide(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/v1/decide", planner.DecisionRequest{
		ActiveTags: []string{"힘 증가", "공격력 증가", "강공"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[planner.DecisionResponse](t, rec)
	assert.Equal(t, planner.VerdictKeep, resp.Verdict)
	assert.Equal(t, "갈지마", resp.Headline)

	rec = a.do(t, http.MethodPost, "/api/v1/decide", planner.DecisionRequest{TargetRarity: 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errCodeValidation, decode[ErrorResponse](t, rec).Error)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/decide", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errCodeBadRequest, decode[ErrorResponse](t, rec).Error)
}

func TestItemStatusAndPlan(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/v1/items/status", ItemStatusRequest{Name: "열화의 검", Action: planner.ActionToggle})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, planner.StatusTarget, decode[ItemStatusResponse](t, rec).Status)

	rec = a.do(t, http.MethodPut, "/api/v1/plan/priority", PriorityRequest{Name: "열화의 검"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "열화의 검", decode[PriorityResponse](t, rec).Priority)

	rec = a.do(t, http.MethodGet, "/api/v1/plan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	plan := decode[planner.FarmingPlanResponse](t, rec)
	require.Len(t, plan.Plans, 1)
	assert.Equal(t, "Loc1", plan.Plans[0].LocationName)
	assert.Equal(t, "열화의 검", plan.Priority)

	q := url.Values{"item": {"열화의 검"}, "location": {"Loc1"}}
	rec = a.do(t, http.MethodGet, "/api/v1/plan/score?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Loc1", decode[planner.MatchScoreResponse](t, rec).LocationName)

	rec = a.do(t, http.MethodGet, "/api/v1/plan/score?item=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/v1/items/status", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[planner.CatalogStatus](t, rec)
	assert.Equal(t, 0, status.Targets)
	assert.Equal(t, 3, status.Items)
}

func TestUnknownItemIsNotFound(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/v1/items/status", ItemStatusRequest{Name: "열화의 겁", Action: planner.ActionOwn})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, errCodeNotFound, resp.Error)
	assert.Equal(t, []any{"열화의 검"}, resp.Details["suggestions"])

	rec = a.do(t, http.MethodPost, "/api/v1/items/status", ItemStatusRequest{Name: "열화의 검", Action: "burn"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPut, "/api/v1/plan/priority", PriorityRequest{Name: "없는 무기"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchAndTags(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/v1/items?q="+url.QueryEscape("검"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[[]planner.ItemView](t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, "열화의 검", items[0].Name)

	rec = a.do(t, http.MethodGet, "/api/v1/tags", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tags := decode[map[planner.Category][]string](t, rec)
	assert.NotEmpty(t, tags)
}

func TestTasks(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/v1/tasks/d1/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	todo := decode[planner.TodoState](t, rec)
	assert.True(t, todo.Completed["d1"])

	rec = a.do(t, http.MethodPost, "/api/v1/tasks/d2/subtasks/d2-sub-0/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/tasks?tab=daily", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[planner.TaskListResponse](t, rec)
	assert.Equal(t, 100, list.Progress)

	rec = a.do(t, http.MethodPost, "/api/v1/tasks/d2/hide", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, http.MethodGet, "/api/v1/tasks", nil)
	list = decode[planner.TaskListResponse](t, rec)
	require.Len(t, list.Tasks, 1)
	require.Len(t, list.Hidden, 1)

	rec = a.do(t, http.MethodPost, "/api/v1/tasks/d2/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPatch, "/api/v1/tasks/settings", map[string]any{"mode": "detail"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, planner.ModeDetail, decode[planner.TodoState](t, rec).Mode)

	rec = a.do(t, http.MethodPatch, "/api/v1/tasks/settings", map[string]any{"mode": "fancy"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/tasks/zzz/toggle", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/tasks?tab=monthly", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestAPI(t)

	a.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200")))

	rec := a.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "planner_http_requests_total")
}

func TestWriteEngineErrorStatus(t *testing.T) {
	srv := NewServer(nil, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"unknown item", &engine.UnknownItemError{Name: "x"}, http.StatusNotFound},
		{"unknown task", fmt.Errorf("%w: d9", engine.ErrUnknownTask), http.StatusNotFound},
		{"invalid tab", fmt.Errorf("%w: %q", engine.ErrInvalidTab, "monthly"), http.StatusBadRequest},
		{"invalid mode", fmt.Errorf("%w: %q", engine.ErrInvalidMode, "grid"), http.StatusBadRequest},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.writeEngineError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}
