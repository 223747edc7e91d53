package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/dotmap"
	"github.com/aretw0/dotmap/pkg/adapters/memory"
	"github.com/aretw0/dotmap/pkg/idgen"
	"github.com/aretw0/dotmap/pkg/observability"
	"github.com/aretw0/dotmap/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	mgr := session.NewManager(memory.NewStore(), session.WithEditorOptions(
		dotmap.WithIDGenerator(idgen.NewSequence("")),
	))
	h, err := NewHandler(mgr, opts...)
	require.NoError(t, err)
	return h
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) Result {
	t.Helper()
	var res Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return res
}

func TestLoadOpenAPI(t *testing.T) {
	doc, err := LoadOpenAPI()
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/sessions/{id}/click"))
}

func TestServer_Meta(t *testing.T) {
	h := newTestHandler(t, WithVersion("9.9.9"))

	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/info", "")
	assert.Contains(t, w.Body.String(), `"version":"9.9.9"`)

	w = do(t, h, http.MethodGet, "/openapi.yaml", "")
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")

	w = do(t, h, http.MethodOptions, "/sessions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_SessionLifecycle(t *testing.T) {
	h := newTestHandler(t)

	w := do(t, h, http.MethodPost, "/sessions", `{"id":"s1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, h, http.MethodPost, "/sessions/s1/click", `{"x":10,"y":10}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeResult(t, w)
	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.View.Stats.Dots)

	w = do(t, h, http.MethodPost, "/sessions/s1/dot", `{"dot_id":"dot-1","label":"home","color":"#0af"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dot := decodeResult(t, w).View.Snapshot.Dots[0]
	assert.Equal(t, "home", dot.Label)
	assert.Equal(t, "#0af", dot.Color)

	w = do(t, h, http.MethodPost, "/sessions/s1/direction", `{"dot_id":"dot-1","degrees":450}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 90, decodeResult(t, w).View.Snapshot.Dots[0].Direction)

	w = do(t, h, http.MethodPost, "/sessions/s1/undo", "")
	res = decodeResult(t, w)
	assert.True(t, res.Changed)
	assert.True(t, res.View.CanRedo)

	w = do(t, h, http.MethodGet, "/sessions", "")
	assert.JSONEq(t, `{"sessions":["s1"]}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/sessions/s1/graph", "")
	assert.Contains(t, w.Body.String(), `dot_1(("home<br/>0°"))`)

	w = do(t, h, http.MethodDelete, "/sessions/s1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/sessions/s1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, "session_not_found", e.Code)
}

func TestServer_EditDotIsOneAction(t *testing.T) {
	h := newTestHandler(t)
	do(t, h, http.MethodPost, "/sessions", `{"id":"e"}`)
	do(t, h, http.MethodPost, "/sessions/e/click", `{"x":10,"y":10}`)
	before := decodeResult(t, do(t, h, http.MethodPost, "/sessions/e/click", `{"x":10,"y":10}`)).View.HistoryLength

	w := do(t, h, http.MethodPost, "/sessions/e/dot", `{"dot_id":"dot-1","label":" A\n","color":"RED"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decodeResult(t, w).View
	assert.Equal(t, before+1, view.HistoryLength)
	assert.Equal(t, "A", view.Snapshot.Dots[0].Label)
	assert.Equal(t, "red", view.Snapshot.Dots[0].Color)

	view = decodeResult(t, do(t, h, http.MethodPost, "/sessions/e/undo", "")).View
	assert.Empty(t, view.Snapshot.Dots[0].Label)
	assert.Empty(t, view.Snapshot.Dots[0].Color)

	w = do(t, h, http.MethodPost, "/sessions/e/dot", `{"dot_id":"dot-1","color":"#0AF"}`)
	dot := decodeResult(t, w).View.Snapshot.Dots[0]
	assert.Equal(t, "#0af", dot.Color)
	assert.Empty(t, dot.Label, "absent fields are left alone")
}

func TestServer_ConnectFlow(t *testing.T) {
	h := newTestHandler(t)
	do(t, h, http.MethodPost, "/sessions", `{"id":"c"}`)
	do(t, h, http.MethodPost, "/sessions/c/click", `{"x":0,"y":0}`)
	do(t, h, http.MethodPost, "/sessions/c/click", `{"x":100,"y":0}`)
	do(t, h, http.MethodPost, "/sessions/c/mode", `{"mode":"connect"}`)
	do(t, h, http.MethodPost, "/sessions/c/click", `{"x":0,"y":0}`)
	w := do(t, h, http.MethodPost, "/sessions/c/click", `{"x":100,"y":0}`)
	view := decodeResult(t, w).View
	require.Len(t, view.Snapshot.Connections, 1)

	w = do(t, h, http.MethodPost, "/sessions/c/connection", `{"connection_id":"conn-3","style":"dotted","label":"link"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	conn := decodeResult(t, w).View.Snapshot.Connections[0]
	assert.Equal(t, "dotted", string(conn.Style))
	assert.Equal(t, "link", conn.Label)

	w = do(t, h, http.MethodPost, "/sessions/c/select", `{"dot_id":"dot-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, http.MethodPost, "/sessions/c/delete-selected", "")
	view = decodeResult(t, w).View
	assert.Equal(t, 1, view.Stats.Dots)
	assert.Equal(t, 0, view.Stats.Connections)

	w = do(t, h, http.MethodPost, "/sessions/c/clear", "")
	assert.Equal(t, 0, decodeResult(t, w).View.Stats.Dots)
}

func TestServer_AdjustDrag(t *testing.T) {
	h := newTestHandler(t)
	do(t, h, http.MethodPost, "/sessions", `{"id":"a"}`)
	do(t, h, http.MethodPost, "/sessions/a/click", `{"x":50,"y":50}`)
	do(t, h, http.MethodPost, "/sessions/a/mode", `{"mode":"adjust"}`)

	w := do(t, h, http.MethodPost, "/sessions/a/pointer/down", `{"x":52,"y":50}`)
	res := decodeResult(t, w)
	require.NotNil(t, res.View.Gesture.Drag)

	w = do(t, h, http.MethodPost, "/sessions/a/pointer/move", `{"x":50,"y":150}`)
	assert.Equal(t, 90, decodeResult(t, w).View.Snapshot.Dots[0].Direction)

	w = do(t, h, http.MethodPost, "/sessions/a/pointer/leave", "")
	assert.Nil(t, decodeResult(t, w).View.Gesture.Drag)

	w = do(t, h, http.MethodPost, "/sessions/a/pointer/up", "")
	assert.False(t, decodeResult(t, w).Changed)
}

func TestServer_CreateWithoutID(t *testing.T) {
	h := newTestHandler(t)
	w := do(t, h, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var view session.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Len(t, view.ID, 36, "a uuid is assigned")
}

func TestServer_BadRequests(t *testing.T) {
	for _, validate := range []bool{true, false} {
		h := newTestHandler(t, WithRequestValidation(validate))
		do(t, h, http.MethodPost, "/sessions", `{"id":"s"}`)

		tests := []struct {
			name, method, path, body string
			status                   int
		}{
			{"non numeric x", http.MethodPost, "/sessions/s/click", `{"x":"a","y":1}`, http.StatusBadRequest},
			{"missing y", http.MethodPost, "/sessions/s/click", `{"x":1}`, http.StatusBadRequest},
			{"unknown mode", http.MethodPost, "/sessions/s/mode", `{"mode":"orbit"}`, http.StatusBadRequest},
			{"bad style", http.MethodPost, "/sessions/s/connection", `{"connection_id":"c","style":"wavy"}`, http.StatusBadRequest},
			{"bad session id", http.MethodGet, "/sessions/bad.id", "", http.StatusBadRequest},
			{"unknown session", http.MethodPost, "/sessions/nope/undo", "", http.StatusNotFound},
			{"color injection", http.MethodPost, "/sessions/s/dot", `{"dot_id":"dot-1","color":"red;stroke:#000"}`, http.StatusBadRequest},
			{"long label", http.MethodPost, "/sessions/s/connection", `{"connection_id":"c","label":"` + strings.Repeat("x", 257) + `"}`, http.StatusBadRequest},
		}
		for _, tt := range tests {
			w := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, "validate=%v %s: %s", validate, tt.name, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"), tt.name)
		}
	}
}

func TestServer_RestoreSnapshot(t *testing.T) {
	h := newTestHandler(t)
	do(t, h, http.MethodPost, "/sessions", `{"id":"r"}`)

	good := `{"dots":[{"id":"a","x":0,"y":0,"direction":0,"selected":false},{"id":"b","x":40,"y":0,"direction":180,"selected":true}],
	          "connections":[{"id":"ab","source_id":"a","target_id":"b"}]}`
	w := do(t, h, http.MethodPut, "/sessions/r/snapshot", good)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeResult(t, w)
	assert.Equal(t, 2, res.View.Stats.Dots)
	assert.False(t, res.View.CanUndo, "history restarts at the restored snapshot")

	bad := `{"dots":[{"id":"a","x":0,"y":0,"direction":0,"selected":false}],
	         "connections":[{"id":"aa","source_id":"a","target_id":"a"}]}`
	w = do(t, h, http.MethodPut, "/sessions/r/snapshot", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, "invalid_snapshot", e.Code)
}

func TestServer_Metrics(t *testing.T) {
	m := observability.NewMetrics("")
	h := newTestHandler(t, WithMetrics(m))
	do(t, h, http.MethodPost, "/sessions", `{"id":"m"}`)

	w := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dotmap_http_requests_total")
	assert.Contains(t, w.Body.String(), `status="201"`)
}

func TestSubscribeEvents_Session(t *testing.T) {
	h := newTestHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	post := func(path, body string) {
		resp, err := http.Post(srv.URL+path, "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		resp.Body.Close()
	}
	post("/sessions", `{"id":"live"}`)
	post("/sessions/live/click", `{"x":1,"y":1}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/live/events?watch=dots,mode", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	next := func() (string, Event) {
		var name string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				var e Event
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e))
				return name, e
			}
		}
	}

	name, e := next()
	assert.Equal(t, "snapshot", name)
	require.NotNil(t, e.Diff)
	assert.Len(t, e.Diff.UpsertedDots, 1)

	post("/sessions/live/click", `{"x":100,"y":100}`)
	name, e = next()
	assert.Equal(t, "update", name)
	require.NotNil(t, e.Diff)
	assert.Len(t, e.Diff.UpsertedDots, 2, "the old dot lost its selection, the new one appeared")

	post("/sessions/live/mode", `{"mode":"adjust"}`)
	_, e = next()
	assert.True(t, e.ModeChanged)
	assert.Equal(t, "adjust", e.Mode.String())
}
