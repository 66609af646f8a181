package gateway

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	maxOpenBodyBytes   = 4 * 1024
	maxResumeBodyBytes = 1024
	maxResizeBodyBytes = 1024
	maxInputBodyBytes  = 128 * 1024
	maxInputBytes      = 64 * 1024
	wsWriteTimeout     = 10 * time.Second
)

type Handler struct {
	svc      *Service
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func NewHandler(svc *Service, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Handler{
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("POST /gateway/sessions", h.openSession)
	mux.HandleFunc("POST /gateway/sessions/resume", h.resumeSession)
	mux.HandleFunc("DELETE /gateway/sessions/{id}", h.closeSession)
	mux.HandleFunc("POST /gateway/sessions/{id}/input", h.writeInput)
	mux.HandleFunc("POST /gateway/sessions/{id}/resize", h.resize)
	mux.HandleFunc("GET /gateway/sessions/{id}/output", h.streamEvents)
	mux.HandleFunc("GET /gateway/sessions/{id}/ws", h.streamSocket)
	return h.instrument(mux)
}

func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		observer := &statusObserver{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(observer, r)
		h.logger.Info("gateway request",
			"event", "gateway_http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", observer.status,
			"duration_ms", time.Since(started).Milliseconds(),
			"remote", r.RemoteAddr,
		)
	})
}

type statusObserver struct {
	http.ResponseWriter
	status int
}

func (o *statusObserver) WriteHeader(status int) {
	o.status = status
	o.ResponseWriter.WriteHeader(status)
}

func (o *statusObserver) Flush() {
	if flusher, ok := o.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (o *statusObserver) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	o.status = http.StatusSwitchingProtocols
	return http.NewResponseController(o.ResponseWriter).Hijack()
}

func (o *statusObserver) Unwrap() http.ResponseWriter { return o.ResponseWriter }

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": h.svc.Active()})
}

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := decodeJSONBody(w, r, maxOpenBodyBytes, &req); err != nil {
		h.reject(r, "open_session", "bad_json", err.Error())
		return
	}
	meta, err := h.svc.OpenSession(r.Context(), req)
	if err != nil {
		h.reject(r, "open_session", "open_failed", err.Error())
		writeMappedErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

func (h *Handler) resumeSession(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		h.reject(r, "resume_session", "missing_bearer_token", "")
		writeErr(w, http.StatusUnauthorized, "UNAUTHORIZED", "bearer token is required")
		return
	}
	if err := decodeJSONBody(w, r, maxResumeBodyBytes, &struct{}{}); err != nil {
		h.reject(r, "resume_session", "bad_json", err.Error())
		return
	}
	meta, err := h.svc.ResumeSession(token)
	if err != nil {
		h.reject(r, "resume_session", "resume_failed", err.Error())
		writeMappedErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	sid, token, ok := h.sessionAuth(w, r, "close_session")
	if !ok {
		return
	}
	if err := h.svc.Close(sid, token); err != nil {
		h.reject(r, "close_session", "close_failed", err.Error())
		writeMappedErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeInput(w http.ResponseWriter, r *http.Request) {
	sid, token, ok := h.sessionAuth(w, r, "write_input")
	if !ok {
		return
	}
	var req struct {
		Data string `json:"data"`
	}
	if err := decodeJSONBody(w, r, maxInputBodyBytes, &req); err != nil {
		h.reject(r, "write_input", "bad_json", sid)
		return
	}
	payload, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		h.reject(r, "write_input", "bad_base64", sid)
		writeErr(w, http.StatusBadRequest, "BAD_INPUT", "input data must be base64 encoded")
		return
	}
	if len(payload) > maxInputBytes {
		h.reject(r, "write_input", "payload_too_large", sid)
		writeErr(w, http.StatusRequestEntityTooLarge, "INPUT_TOO_LARGE", "input payload exceeds max size")
		return
	}
	if err := h.svc.WriteInput(sid, token, payload); err != nil {
		h.reject(r, "write_input", "write_failed", err.Error())
		writeMappedErr(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) resize(w http.ResponseWriter, r *http.Request) {
	sid, token, ok := h.sessionAuth(w, r, "resize")
	if !ok {
		return
	}
	var req struct {
		Cols int `json:"cols"`
		Rows int `json:"rows"`
	}
	if err := decodeJSONBody(w, r, maxResizeBodyBytes, &req); err != nil {
		h.reject(r, "resize", "bad_json", sid)
		return
	}
	if req.Cols < 1 || req.Rows < 1 {
		h.reject(r, "resize", "out_of_range", sid)
		writeErr(w, http.StatusBadRequest, "BAD_RESIZE", "cols and rows must be between 1 and 4096")
		return
	}
	if err := h.svc.Resize(sid, token, req.Cols, req.Rows); err != nil {
		h.reject(r, "resize", "resize_failed", err.Error())
		writeMappedErr(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// streamEvents sends editor output as base64 server-sent events.
func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	sid, token, ok := h.sessionAuth(w, r, "stream_events")
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "STREAM_UNAVAILABLE", "streaming output is not available")
		return
	}
	updates, cancel, err := h.svc.Subscribe(sid, token)
	if err != nil {
		h.reject(r, "stream_events", "subscribe_failed", err.Error())
		writeMappedErr(w, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case chunk, ok := <-updates:
			if !ok {
				_, _ = fmt.Fprint(w, "event: exit\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			if _, err := fmt.Fprintf(w, "event: output\ndata: %s\n\n", base64.StdEncoding.EncodeToString(chunk)); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// socketControl is a text frame from the browser. Binary frames are raw
// keyboard input.
type socketControl struct {
	Type string `json:"type"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

// streamSocket carries output and input over one websocket. Browsers cannot
// set headers on websocket requests, so the token may also arrive as the
// access_token query parameter.
func (h *Handler) streamSocket(w http.ResponseWriter, r *http.Request) {
	sid, token, ok := h.sessionAuth(w, r, "stream_socket")
	if !ok {
		return
	}
	updates, cancel, err := h.svc.Subscribe(sid, token)
	if err != nil {
		h.reject(r, "stream_socket", "subscribe_failed", err.Error())
		writeMappedErr(w, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.reject(r, "stream_socket", "upgrade_failed", err.Error())
		return
	}
	defer conn.Close()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			switch kind {
			case websocket.BinaryMessage:
				err = h.svc.WriteInput(sid, token, data)
			case websocket.TextMessage:
				var ctl socketControl
				if jsonErr := json.Unmarshal(data, &ctl); jsonErr != nil || ctl.Type != "resize" {
					continue
				}
				err = h.svc.Resize(sid, token, ctl.Cols, ctl.Rows)
			}
			if err != nil {
				h.logger.Warn("gateway socket input failed", "event", "gateway_socket_input_failed", "session_id", sid, "err", err)
				if errors.Is(err, ErrSessionClosed) || errors.Is(err, ErrSessionNotFound) {
					return
				}
			}
		}
	}()

	for {
		select {
		case <-readDone:
			return
		case chunk, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "editor exited"))
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				return
			}
		}
	}
}

// sessionAuth validates the path id and extracts the caller's token.
func (h *Handler) sessionAuth(w http.ResponseWriter, r *http.Request, operation string) (string, string, bool) {
	sid := r.PathValue("id")
	if _, err := uuid.Parse(sid); err != nil {
		h.reject(r, operation, "invalid_session_id", sid)
		writeErr(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid session id format")
		return "", "", false
	}
	token, ok := bearerToken(r)
	if !ok {
		token = strings.TrimSpace(r.URL.Query().Get("access_token"))
		ok = token != ""
	}
	if !ok {
		h.reject(r, operation, "missing_bearer_token", sid)
		writeErr(w, http.StatusUnauthorized, "UNAUTHORIZED", "bearer token is required")
		return "", "", false
	}
	return sid, token, true
}

func (h *Handler) reject(r *http.Request, operation, reason, details string) {
	h.logger.Warn("gateway request rejected",
		"event", "gateway_request_rejected",
		"operation", operation,
		"method", r.Method,
		"path", r.URL.Path,
		"reason", reason,
		"details", details,
		"remote", r.RemoteAddr,
	)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, maxBytes int64, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(target); err != nil {
		var syntaxErr *json.SyntaxError
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &syntaxErr):
			writeErr(w, http.StatusBadRequest, "BAD_JSON", "request body must be valid JSON")
		case errors.As(err, &maxBytesErr):
			writeErr(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body exceeds max size")
		case strings.Contains(err.Error(), "unknown field"):
			writeErr(w, http.StatusBadRequest, "BAD_JSON", "request contains unknown fields")
		default:
			writeErr(w, http.StatusBadRequest, "BAD_JSON", "request body must be valid JSON")
		}
		return err
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeErr(w, http.StatusBadRequest, "BAD_JSON", "request body must contain exactly one JSON object")
		return errors.New("trailing data after JSON object")
	}
	return nil
}

func bearerToken(r *http.Request) (string, bool) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return token, token != ""
}

func writeMappedErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionClosed):
		writeErr(w, http.StatusNotFound, "SESSION_NOT_FOUND", "session could not be found or already closed")
		return
	case errors.Is(err, ErrInvalidRequest):
		writeErr(w, http.StatusBadRequest, "INVALID_REQUEST", "request is missing required fields or uses disallowed values")
		return
	case errors.Is(err, ErrUnauthorized):
		writeErr(w, http.StatusForbidden, "FORBIDDEN", "session token does not authorize this action")
		return
	case errors.Is(err, ErrSessionExpired):
		writeErr(w, http.StatusUnauthorized, "SESSION_EXPIRED", "session token has expired")
		return
	case errors.Is(err, ErrCapacity):
		writeErr(w, http.StatusServiceUnavailable, "AT_CAPACITY", "no editor sessions are available right now")
		return
	}
	var friendly *FriendlyError
	if errors.As(err, &friendly) {
		status := http.StatusBadGateway
		switch {
		case friendly.Code == "INPUT_RATE_LIMITED":
			status = http.StatusTooManyRequests
		case friendly.Code == "EDITOR_BINARY_NOT_FOUND":
			status = http.StatusServiceUnavailable
		case friendly.Code == "EDITOR_CLOSED":
			status = http.StatusGone
		}
		writeErr(w, status, friendly.Code, friendly.Message)
		return
	}
	writeErr(w, http.StatusInternalServerError, "INTERNAL_ERROR", "editor gateway internal error")
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message, "status": strconv.Itoa(status)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
