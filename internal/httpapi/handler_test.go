package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
	"github.com/danielpatrickdp/calmbridge/internal/httpapi"
	"github.com/danielpatrickdp/calmbridge/internal/replay"
	"github.com/danielpatrickdp/calmbridge/internal/script"
	"github.com/danielpatrickdp/calmbridge/internal/session"
	"github.com/danielpatrickdp/calmbridge/internal/signals"
	"github.com/danielpatrickdp/calmbridge/internal/state"
	"github.com/danielpatrickdp/calmbridge/internal/triage"
)

func newTestServer(t *testing.T, origins ...string) http.Handler {
	t.Helper()

	store, err := state.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	catalog, err := script.LoadBundled(script.DefaultLanguage)
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	svc := session.NewService(store, coach.NewPipeline(coach.DefaultPipelineConfig(), catalog), logger)
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return httpapi.NewServer(svc, catalog, logger, origins)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body=%s", w.Body.String())
	return v
}

func createSession(t *testing.T, h http.Handler) session.View {
	t.Helper()
	w := do(t, h, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[session.View](t, w)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(httpapi.RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(httpapi.RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(httpapi.RequestIDHeader))
}

func TestAnchors(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/anchors?lang=es-MX", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Language  string   `json:"language"`
		Languages []string `json:"languages"`
		Anchors   []struct {
			Key   string `json:"key"`
			Emoji string `json:"emoji"`
		} `json:"anchors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "es", resp.Language)
	assert.ElementsMatch(t, []string{"en", "es"}, resp.Languages)
	require.Len(t, resp.Anchors, 3)
	assert.Equal(t, "pinwheel", resp.Anchors[0].Key)
}

func TestNarrate(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/narrate", `{"calmness":40,"step":"DRILL","anchor":"fox"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	f := decode[coach.Frame](t, w)
	assert.Equal(t, 38, f.RMSSD)
	assert.Equal(t, triage.StatusYellow, f.Status)
	assert.Equal(t, "Status: YELLOW (RMSSD≈38 ms)", f.StatusLabel)
	assert.Equal(t, "a friendly fox", f.Anchor)
	assert.Contains(t, f.Text, "a friendly fox")
}

func TestNarrate_BadInput(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/narrate", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/narrate", `{"calmness":40,"step":"SURGERY"}`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodGet, "/narrate", "").Code)
}

func TestSessionFlow(t *testing.T) {
	srv := newTestServer(t)
	v := createSession(t, srv)
	base := "/sessions/" + v.SessionID

	w := do(t, srv, http.MethodPost, base+"/actions", `{"type":"set_calmness","calmness":85}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	applied := decode[session.View](t, w)
	assert.Equal(t, triage.StatusGreen, applied.Frame.Status)
	assert.Equal(t, v.VersionID, applied.ParentID)

	w = do(t, srv, http.MethodPost, base+"/actions", `{"type":"pick_anchor","anchor":"cupcake"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a yummy cupcake", decode[session.View](t, w).Frame.Anchor)

	w = do(t, srv, http.MethodPost, base+"/undo", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, applied.VersionID, decode[session.View](t, w).VersionID)

	w = do(t, srv, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, applied.VersionID, decode[session.View](t, w).VersionID)

	w = do(t, srv, http.MethodGet, base+"/history?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[struct {
		Versions []session.Version `json:"versions"`
	}](t, w)
	assert.Len(t, history.Versions, 2)

	w = do(t, srv, http.MethodGet, base+"/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	fixture := decode[replay.Fixture](t, w)
	assert.Len(t, fixture.Events, 3)
	assert.Equal(t, v.SessionID, fixture.SessionID)

	w = do(t, srv, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Sessions []session.Summary `json:"sessions"`
	}](t, w)
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, 3, list.Sessions[0].Versions)
}

func TestCreateSession_WithBody(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/sessions", `{"language":"es","calmness":10,"step":"INJECTION"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	v := decode[session.View](t, w)
	assert.Equal(t, "/sessions/"+v.SessionID, w.Header().Get("Location"))
	assert.Equal(t, triage.StatusRed, v.Frame.Status)
	assert.Equal(t, "es", v.Frame.Language)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/sessions", `{"step":"SURGERY"}`).Code)
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	v := createSession(t, srv)
	base := "/sessions/" + v.SessionID

	tests := []struct {
		name, method, path, body string
		want                     int
	}{
		{"unknown session", http.MethodGet, "/sessions/nope", "", http.StatusNotFound},
		{"unknown session action", http.MethodPost, "/sessions/nope/actions", `{"type":"toggle_voice"}`, http.StatusNotFound},
		{"unknown action", http.MethodPost, base + "/actions", `{"type":"dance"}`, http.StatusBadRequest},
		{"missing action type", http.MethodPost, base + "/actions", `{}`, http.StatusBadRequest},
		{"bad step", http.MethodPost, base + "/actions", `{"type":"set_step","step":"SURGERY"}`, http.StatusBadRequest},
		{"nothing to undo", http.MethodPost, base + "/undo", "", http.StatusConflict},
		{"bad limit", http.MethodGet, base + "/history?limit=x", "", http.StatusBadRequest},
		{"unknown history", http.MethodGet, "/sessions/nope/history", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, "http://clinic.test")

	req := httptest.NewRequest(http.MethodOptions, "/narrate", nil)
	req.Header.Set("Origin", "http://clinic.test")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://clinic.test", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://elsewhere.test")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSensorSocket(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/sessions", "application/json", nil)
	require.NoError(t, err)
	var v session.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	resp.Body.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + v.SessionID + "/sensor"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var initial session.View
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, v.VersionID, initial.VersionID)

	for _, c := range []int{10, 60} {
		require.NoError(t, conn.WriteJSON(map[string]int{"calmness": c}))
		var got session.View
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, c, got.State.Calmness)
		assert.Equal(t, signals.SourceSensor, got.Frame.Signals.Source)
	}

	require.NoError(t, conn.WriteJSON(map[string]string{"mood": "great"}))
	var errResp map[string]string
	require.NoError(t, conn.ReadJSON(&errResp))
	assert.Equal(t, "calmness is required", errResp["error"])
}

func TestSensorSocket_UnknownSession(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/nope/sensor"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
