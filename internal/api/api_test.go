package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyreward/rewardbook/internal/api"
	"github.com/studyreward/rewardbook/internal/catalog"
	"github.com/studyreward/rewardbook/internal/events"
	"github.com/studyreward/rewardbook/internal/schema"
	"github.com/studyreward/rewardbook/internal/service"
	"github.com/studyreward/rewardbook/internal/storage"
	"github.com/studyreward/rewardbook/internal/store"
)

var quiet = log.New(io.Discard, "", 0)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type env struct {
	url    string
	client *api.HTTP
	clock  *clock
	hub    *events.Hub
}

func newEnv(t *testing.T) *env {
	t.Helper()
	c := &clock{t: time.UnixMilli(1_720_000_000_000)}
	hub := events.NewHub(quiet)
	m := store.New(storage.NewMemory(quiet), store.Options{Logger: quiet, Now: c.Now})
	svc := service.New(m, service.Options{Logger: quiet, Notifier: hub})

	srv := httptest.NewServer(api.NewServer(svc, api.ServerOptions{Logger: quiet, Hub: hub, Metrics: true}))
	t.Cleanup(func() {
		_ = hub.Close()
		srv.Close()
	})
	return &env{
		url:    srv.URL,
		client: api.NewHTTP(srv.URL, api.HTTPOptions{Logger: quiet}),
		clock:  c,
		hub:    hub,
	}
}

func TestHTTP_ExecutionFlow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	tpl, err := e.client.CreateTemplate(ctx, service.CreateTemplateRequest{Name: "Reading", Description: "one chapter"})
	require.NoError(t, err)

	list, err := e.client.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(catalog.Templates())+1)

	exec, err := e.client.StartExecution(ctx, service.StartRequest{TaskTemplateID: tpl.ID})
	require.NoError(t, err)

	active, err := e.client.ActiveExecution(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, exec.ID, active.ID)

	e.clock.Advance(7*time.Minute + 10*time.Second)
	res, err := e.client.CompleteExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, 7.0, res.Reward)
	assert.Equal(t, 7, res.Execution.ActualDuration)

	active, err = e.client.ActiveExecution(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	points, err := e.client.Points(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7.0, points)

	page, err := e.client.PointRecords(ctx, service.RecordQuery{Type: "earn", PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 5, page.PageSize)

	err = e.client.DeleteTemplate(ctx, tpl.ID)
	assert.ErrorIs(t, err, service.ErrInUse)
}

func TestHTTP_ErrorKinds(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	name := "x"

	_, err := e.client.UpdateTemplate(ctx, "1", service.UpdateTemplateRequest{Name: &name})
	assert.ErrorIs(t, err, service.ErrPresetImmutable)

	_, err = e.client.Exchange(ctx, service.ExchangeRequest{ProductID: catalog.GoldProductID})
	require.ErrorIs(t, err, service.ErrInsufficientPoints)
	assert.Equal(t, "积分不足！当前积分: 0，需要: 4.8", err.Error())

	_, err = e.client.PauseExecution(ctx, "missing")
	assert.True(t, service.IsNotFound(err))

	_, err = e.client.Restore(ctx)
	assert.True(t, service.IsNotFound(err))

	_, err = e.client.CreateProduct(ctx, service.CreateProductRequest{Name: " "})
	assert.ErrorIs(t, err, service.ErrInvalid)
}

func TestServer_StatusCodes(t *testing.T) {
	e := newEnv(t)

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodDelete, "/api/products/1", "", http.StatusForbidden},
		{http.MethodDelete, "/api/products/nope", "", http.StatusNotFound},
		{http.MethodPost, "/api/task-templates", "{", http.StatusBadRequest},
		{http.MethodPost, "/api/task-templates", `{"name":"结构化","description":"dup"}`, http.StatusConflict},
		{http.MethodGet, "/api/user/point-records?page=abc", "", http.StatusBadRequest},
		{http.MethodPost, "/api/data/import", `{"nope":1}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, e.url+tc.path, strings.NewReader(tc.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestServer_ErrorEnvelope(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Post(e.url+"/api/task-executions/ghost/complete", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body api.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "NOT_FOUND", body.Code)
	assert.Equal(t, "Task execution not found", body.Error)
}

type brokenAdapter struct{ storage.Adapter }

func (brokenAdapter) Read(context.Context) (*schema.Document, error) {
	return nil, errors.New("disk on fire")
}

func TestServer_HidesInternalErrors(t *testing.T) {
	var logged strings.Builder
	m := store.New(brokenAdapter{}, store.Options{Logger: quiet})
	svc := service.New(m, service.Options{Logger: quiet})
	srv := httptest.NewServer(api.NewServer(svc, api.ServerOptions{Logger: log.New(&logged, "", 0)}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/user/points")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body api.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal error", body.Error)
	assert.Equal(t, "INTERNAL", body.Code)
	assert.Contains(t, logged.String(), "disk on fire")
}

func TestHTTP_ExportImport(t *testing.T) {
	ctx := context.Background()
	src := newEnv(t)
	dst := newEnv(t)

	_, err := src.client.CreateProduct(ctx, service.CreateProductRequest{Name: "Coffee", Price: 2, Unit: "cup"})
	require.NoError(t, err)

	data, err := src.client.Export(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"exportTime"`)

	res := dst.client.Import(ctx, data)
	require.True(t, res.Success, res.Message)
	require.NotNil(t, res.Stats)
	assert.Equal(t, 1, res.Stats.Added)

	products, err := dst.client.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, len(catalog.Products())+1)

	bad := dst.client.Import(ctx, []byte(`{"version":"1.2.0"}`))
	assert.False(t, bad.Success)
	assert.Equal(t, store.MsgInvalidFormat, bad.Message)
}

func TestHTTP_CustomStyle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.client.UpdateCustomStyle(ctx, map[string]any{"theme": "dark"})
	require.NoError(t, err)
	style, err := e.client.UpdateCustomStyle(ctx, map[string]any{"accent": "#f80"})
	require.NoError(t, err)
	assert.Equal(t, "dark", style["theme"])
	assert.Equal(t, "#f80", style["accent"])
}

func TestHTTP_RetriesIdempotentRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"points":42}}`))
	}))
	defer srv.Close()

	c := api.NewHTTP(srv.URL, api.HTTPOptions{Retries: 3, RetryDelay: time.Millisecond, Logger: quiet})
	points, err := c.Points(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42.0, points)
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(0)
	_, err = c.StartExecution(context.Background(), service.StartRequest{TaskTemplateID: "1"})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "POST must not be retried")
}

func TestServer_WebSocketEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e := newEnv(t)

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(e.url, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	readType := func() string {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var msg events.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg.Type
	}
	require.Equal(t, events.TypeConnected, readType())

	_, err = e.client.StartExecution(ctx, service.StartRequest{TaskTemplateID: "1"})
	require.NoError(t, err)
	assert.Equal(t, service.EventExecutionUpdate, readType())
}
