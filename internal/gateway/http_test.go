package gateway

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (http.Handler, *Service, *fakeLauncher) {
	t.Helper()
	svc, launcher, _ := newTestService(t, Options{})
	return NewHandler(svc, nil).Routes(), svc, launcher
}

func do(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func openSession(t *testing.T, h http.Handler) Session {
	t.Helper()
	rec := do(h, http.MethodPost, "/gateway/sessions", "", `{"user":"alice","term":"xterm-256color","cols":100,"rows":30}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var meta Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	require.NotEmpty(t, meta.Token)
	return meta
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["code"]
}

func TestHTTPSessionLifecycle(t *testing.T) {
	h, svc, launcher := newTestHandler(t)
	meta := openSession(t, h)
	assert.Equal(t, Size{Cols: 100, Rows: 30}, launcher.sizes[0])

	base := "/gateway/sessions/" + meta.ID
	input := base64.StdEncoding.EncodeToString([]byte("\x12"))
	rec := do(h, http.MethodPost, base+"/input", meta.Token, `{"data":"`+input+`"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "\x12", launcher.last().written())

	rec = do(h, http.MethodPost, base+"/resize", meta.Token, `{"cols":120,"rows":40}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, Size{Cols: 120, Rows: 40}, launcher.last().currentSize())

	rec = do(h, http.MethodPost, "/gateway/sessions/resume", meta.Token, `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resumed Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resumed))
	assert.Equal(t, meta.ID, resumed.ID)

	rec = do(h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, rec.Body.String())

	rec = do(h, http.MethodDelete, base, meta.Token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, svc.Active())

	rec = do(h, http.MethodDelete, base, meta.Token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", errorCode(t, rec))
}

func TestHTTPRejections(t *testing.T) {
	h, _, _ := newTestHandler(t)
	meta := openSession(t, h)
	base := "/gateway/sessions/" + meta.ID

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		body     string
		wantCode int
		wantErr  string
	}{
		{name: "unknown open field", method: http.MethodPost, path: "/gateway/sessions", body: `{"user":"alice","host":"x"}`, wantCode: http.StatusBadRequest, wantErr: "BAD_JSON"},
		{name: "trailing json", method: http.MethodPost, path: "/gateway/sessions", body: `{"user":"alice"}{}`, wantCode: http.StatusBadRequest, wantErr: "BAD_JSON"},
		{name: "invalid user", method: http.MethodPost, path: "/gateway/sessions", body: `{"user":"Robert'); DROP"}`, wantCode: http.StatusBadRequest, wantErr: "INVALID_REQUEST"},
		{name: "missing token", method: http.MethodPost, path: base + "/resize", body: `{"cols":1,"rows":1}`, wantCode: http.StatusUnauthorized, wantErr: "UNAUTHORIZED"},
		{name: "wrong token", method: http.MethodPost, path: base + "/resize", token: "nope", body: `{"cols":1,"rows":1}`, wantCode: http.StatusForbidden, wantErr: "FORBIDDEN"},
		{name: "bad session id", method: http.MethodDelete, path: "/gateway/sessions/not-a-uuid", token: meta.Token, wantCode: http.StatusBadRequest, wantErr: "INVALID_REQUEST"},
		{name: "bad base64", method: http.MethodPost, path: base + "/input", token: meta.Token, body: `{"data":"%%%"}`, wantCode: http.StatusBadRequest, wantErr: "BAD_INPUT"},
		{name: "zero resize", method: http.MethodPost, path: base + "/resize", token: meta.Token, body: `{"cols":0,"rows":10}`, wantCode: http.StatusBadRequest, wantErr: "BAD_RESIZE"},
		{name: "huge resize", method: http.MethodPost, path: base + "/resize", token: meta.Token, body: `{"cols":9000,"rows":10}`, wantCode: http.StatusBadRequest, wantErr: "INVALID_REQUEST"},
		{name: "resume without token", method: http.MethodPost, path: "/gateway/sessions/resume", body: `{}`, wantCode: http.StatusUnauthorized, wantErr: "UNAUTHORIZED"},
		{name: "resume unknown token", method: http.MethodPost, path: "/gateway/sessions/resume", token: "nope", body: `{}`, wantCode: http.StatusNotFound, wantErr: "SESSION_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantErr, errorCode(t, rec))
		})
	}

	rec := do(h, http.MethodGet, "/gateway/sessions", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTPCapacityMapsToServiceUnavailable(t *testing.T) {
	svc, _, _ := newTestService(t, Options{MaxSessions: 1})
	h := NewHandler(svc, nil).Routes()
	openSession(t, h)

	rec := do(h, http.MethodPost, "/gateway/sessions", "", `{"user":"bob"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "AT_CAPACITY", errorCode(t, rec))
}

func TestWebsocketStreamsBothWays(t *testing.T) {
	h, _, launcher := newTestHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	meta := openSession(t, h)
	proc := launcher.last()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/gateway/sessions/" + meta.ID + "/ws?access_token=" + meta.Token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	proc.out <- []byte("Lines: 1 | Characters: 0")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, "Lines: 1 | Characters: 0", string(data))

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("\x19")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"resize","cols":90,"rows":20}`)))
	require.Eventually(t, func() bool {
		return proc.written() == "\x19" && proc.currentSize() == Size{Cols: 90, Rows: 20}
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, proc.Close())
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestWebsocketRequiresToken(t *testing.T) {
	h, _, _ := newTestHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	meta := openSession(t, h)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/gateway/sessions/" + meta.ID + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServerSentEventsStreamOutput(t *testing.T) {
	h, _, launcher := newTestHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	meta := openSession(t, h)
	proc := launcher.last()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/gateway/sessions/"+meta.ID+"/output", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+meta.Token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	proc.out <- []byte("hi")
	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, "event: output\n", mustReadLine(t, reader))
	assert.Equal(t, "data: "+base64.StdEncoding.EncodeToString([]byte("hi"))+"\n", mustReadLine(t, reader))
	assert.Equal(t, "\n", mustReadLine(t, reader))

	require.NoError(t, proc.Close())
	assert.Equal(t, "event: exit\n", mustReadLine(t, reader))
}

func mustReadLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return line
}
