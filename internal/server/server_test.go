package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/multitimer/internal/engine"
	"github.com/roach88/multitimer/internal/render"
	"github.com/roach88/multitimer/internal/testutil"
)

type testServer struct {
	hub   *Hub
	eng   *engine.Engine
	ticks *engine.ManualTickSource
	http  *httptest.Server
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logger)
	go hub.Run(ctx)

	ticks := engine.NewManualTickSource()
	eng := engine.New(
		engine.WithIDGenerator(testutil.NewSequentialIDs("t")),
		engine.WithTickSource(ticks),
		engine.WithListener(hub),
		engine.WithNotifier(hub),
		engine.WithLogger(logger),
	)

	ts := httptest.NewServer(New(eng, hub, logger).Handler())
	t.Cleanup(func() {
		ts.Close()
		eng.Close()
		cancel()
	})
	return &testServer{hub: hub, eng: eng, ticks: ticks, http: ts}
}

func (s *testServer) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.http.URL+path, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCreateAndList(t *testing.T) {
	s := setupTestServer(t)

	resp := s.do(t, http.MethodPost, "/api/timers", `{"studentName":"Ana","examName":"Math","durationMinutes":45}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	row := decode[render.Row](t, resp)
	assert.Equal(t, 1, row.Index)
	assert.Equal(t, "t1", row.ID)
	assert.Equal(t, 2700, row.DurationSeconds)
	assert.Equal(t, "45 minutes", row.Duration)
	assert.Equal(t, render.NotStarted, row.TimeLeft)
	assert.Equal(t, render.ActionStart, row.Action)

	s.do(t, http.MethodPost, "/api/timers", `{"studentName":"Ben","examName":"Art","durationMinutes":0.5}`)

	resp = s.do(t, http.MethodGet, "/api/timers", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := decode[[]render.Row](t, resp)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ana", rows[0].StudentName)
	assert.Equal(t, "Ben", rows[1].StudentName)
	assert.Equal(t, 30, rows[1].DurationSeconds)
}

func TestCreate_Rejects(t *testing.T) {
	s := setupTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty student", `{"studentName":" ","examName":"Math","durationMinutes":5}`},
		{"zero minutes", `{"studentName":"Ana","examName":"Math","durationMinutes":0}`},
		{"missing minutes", `{"studentName":"Ana","examName":"Math"}`},
		{"unknown field", `{"studentName":"Ana","examName":"Math","durationMinutes":5,"color":"red"}`},
		{"not json", `Ana, Math, 5`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(t, http.MethodPost, "/api/timers", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := decode[errorBody](t, resp)
			assert.Equal(t, "VALIDATION", body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
	assert.Equal(t, 0, s.eng.Len())
}

func TestStartPause(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/timers", `{"studentName":"Ana","examName":"Math","durationMinutes":1}`)

	resp := s.do(t, http.MethodPost, "/api/timers/t1/start", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	row := decode[render.Row](t, resp)
	assert.True(t, row.IsRunning)
	assert.Equal(t, render.ActionPause, row.Action)

	s.ticks.Advance(5)

	resp = s.do(t, http.MethodPost, "/api/timers/t1/pause", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	row = decode[render.Row](t, resp)
	assert.False(t, row.IsRunning)
	assert.Equal(t, 55, row.RemainingSeconds)
	assert.Equal(t, "00:55", row.TimeLeft)
	assert.Equal(t, render.ActionResume, row.Action)
}

func TestNotFound(t *testing.T) {
	s := setupTestServer(t)

	for _, req := range []struct{ method, path string }{
		{http.MethodPost, "/api/timers/nope/start"},
		{http.MethodPost, "/api/timers/nope/pause"},
		{http.MethodDelete, "/api/timers/nope"},
		{http.MethodPost, "/api/timers/nope/alarms/end/ack"},
	} {
		resp := s.do(t, req.method, req.path, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, "%s %s", req.method, req.path)
		assert.Equal(t, "NOT_FOUND", decode[errorBody](t, resp).Error.Code)
	}
}

func TestDeleteAndClear(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/timers", `{"studentName":"Ana","examName":"Math","durationMinutes":1}`)
	s.do(t, http.MethodPost, "/api/timers", `{"studentName":"Ben","examName":"Art","durationMinutes":1}`)
	s.do(t, http.MethodPost, "/api/timers/t1/start", "")

	resp := s.do(t, http.MethodDelete, "/api/timers/t1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, s.eng.BoundCount())

	resp = s.do(t, http.MethodDelete, "/api/timers", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/timers", "")
	assert.Empty(t, decode[[]render.Row](t, resp))
}

func TestAck(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/timers", `{"studentName":"Ana","examName":"Math","durationMinutes":0.05}`)
	s.do(t, http.MethodPost, "/api/timers/t1/start", "")
	s.ticks.Advance(3)

	resp := s.do(t, http.MethodPost, "/api/timers/t1/alarms/bell/ack", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/timers/t1/alarms/end/ack", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "acknowledged", decode[render.Row](t, resp).EndAlarm)
}

func TestClosedEngine(t *testing.T) {
	s := setupTestServer(t)
	require.NoError(t, s.eng.Close())

	resp := s.do(t, http.MethodDelete, "/api/timers", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "UNAVAILABLE", decode[errorBody](t, resp).Error.Code)
}

// readUntil reads WebSocket messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(msg map[string]any) bool) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func ofType(typ string) func(map[string]any) bool {
	return func(msg map[string]any) bool { return msg["type"] == typ }
}

// firstRowRunning matches a snapshot whose first row is running.
func firstRowRunning(msg map[string]any) bool {
	if msg["type"] != TypeSnapshot {
		return false
	}
	rows, _ := msg["payload"].([]any)
	if len(rows) == 0 {
		return false
	}
	row, _ := rows[0].(map[string]any)
	return row["isRunning"] == true
}

func TestWebSocket_SnapshotsAndCues(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/timers", `{"studentName":"Ana","examName":"Math","durationMinutes":0.05}`)

	url := "ws" + strings.TrimPrefix(s.http.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	hello := readUntil(t, conn, ofType(TypeSnapshot))
	rows, ok := hello["payload"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ana", rows[0].(map[string]any)["studentName"])

	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	s.do(t, http.MethodPost, "/api/timers/t1/start", "")
	readUntil(t, conn, firstRowRunning)

	s.ticks.Advance(3)

	cue := readUntil(t, conn, ofType(TypeCue))
	payload := cue["payload"].(map[string]any)
	assert.Equal(t, "t1", payload["timerId"])
	assert.Equal(t, "end", payload["kind"])
	assert.Equal(t, "Ana", payload["studentName"])
}
