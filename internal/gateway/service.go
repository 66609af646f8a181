// Package gateway exposes the editor to browser terminals. Each browser
// session runs its own editor process under a pseudo terminal; output is
// streamed over a websocket (or server-sent events) and input, resize and
// close arrive over HTTP.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionClosed   = errors.New("session closed")
	ErrCapacity        = errors.New("gateway at capacity")
)

var (
	validUserPattern = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}$`)
	validTermPattern = regexp.MustCompile(`^[a-zA-Z0-9.+_-]{1,64}$`)
)

const (
	sessionTokenTTL        = 12 * time.Hour
	sessionIdleLimit       = 30 * time.Minute
	reapInterval           = time.Minute
	minSecretBytes         = 32
	envGatewaySecret       = "VIBE_GATEWAY_SECRET"
	defaultTerm            = "xterm-256color"
	defaultCols            = 120
	defaultRows            = 40
	maxDimension           = 4096
	maxInputBytesPerSecond = 256 * 1024
	subscriberBuffer       = 128
)

// Size is a terminal size in cells.
type Size struct {
	Cols uint16
	Rows uint16
}

type OpenRequest struct {
	User string `json:"user"`
	Term string `json:"term"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

// Session describes one browser editor session. Token is only populated in
// responses to the caller that opened or resumed the session.
type Session struct {
	ID         string    `json:"session_id"`
	Token      string    `json:"token,omitempty"`
	TokenHash  string    `json:"-"`
	User       string    `json:"user"`
	Term       string    `json:"term"`
	StartedAt  time.Time `json:"started_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type Process interface {
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	Resize(Size) error
	Close() error
	Done() <-chan error
}

type Launcher interface {
	Launch(context.Context, Session, Size) (Process, error)
}

// Options tune a Service. Zero values take defaults.
type Options struct {
	MaxSessions int
	Logger      *log.Logger
}

type Service struct {
	launcher    Launcher
	now         func() time.Time
	secret      []byte
	maxSessions int
	logger      *log.Logger

	mu       sync.RWMutex
	sessions map[string]*sessionState
	tokens   map[string]string
	// pending counts slots reserved by OpenSession calls still launching.
	pending int
}

type sessionState struct {
	meta   Session
	proc   Process
	cancel context.CancelFunc
	input  *rate.Limiter

	// subscribers is guarded by Service.mu. Only captureOutput sends on or
	// closes subscriber channels.
	subscribers  map[int]*subscriber
	nextSubID    int
	outputClosed bool
}

type subscriber struct {
	ch   chan []byte
	done chan struct{}
}

// NewService reads the token secret from VIBE_GATEWAY_SECRET. When the
// variable is unset a random secret is generated, so tokens do not survive a
// restart. A value shorter than 32 bytes is an error.
func NewService(launcher Launcher, opts Options) (*Service, error) {
	secret := os.Getenv(envGatewaySecret)
	if secret == "" {
		buf := make([]byte, minSecretBytes)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate gateway secret: %w", err)
		}
		if opts.Logger != nil {
			opts.Logger.Warn("gateway secret unset, using a random one", "event", "gateway_secret_generated", "env", envGatewaySecret)
		}
		return NewServiceWithSecret(launcher, buf, opts)
	}
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("%s must be at least %d bytes", envGatewaySecret, minSecretBytes)
	}
	return NewServiceWithSecret(launcher, []byte(secret), opts)
}

func NewServiceWithSecret(launcher Launcher, secret []byte, opts Options) (*Service, error) {
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("gateway secret must be at least %d bytes", minSecretBytes)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	maxSessions := opts.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 32
	}
	return &Service{
		launcher:    launcher,
		now:         time.Now,
		secret:      append([]byte(nil), secret...),
		maxSessions: maxSessions,
		logger:      logger,
		sessions:    map[string]*sessionState{},
		tokens:      map[string]string{},
	}, nil
}

// OpenSession starts an editor process. The process outlives ctx; it ends on
// Close, expiry, or when the editor exits.
func (s *Service) OpenSession(ctx context.Context, req OpenRequest) (Session, error) {
	if !validUserPattern.MatchString(req.User) {
		return Session{}, ErrInvalidRequest
	}
	if req.Term == "" {
		req.Term = defaultTerm
	}
	if !validTermPattern.MatchString(req.Term) {
		return Session{}, ErrInvalidRequest
	}
	size, err := sizeFrom(req.Cols, req.Rows)
	if err != nil {
		return Session{}, err
	}

	if !s.reserveSlot() {
		return Session{}, ErrCapacity
	}
	reserved := true
	defer func() {
		if reserved {
			s.mu.Lock()
			s.pending--
			s.mu.Unlock()
		}
	}()

	token, err := randomToken()
	if err != nil {
		return Session{}, fmt.Errorf("session token: %w", err)
	}
	now := s.now().UTC()
	meta := Session{
		ID:         uuid.NewString(),
		Token:      token,
		TokenHash:  s.tokenHash(token),
		User:       req.User,
		Term:       req.Term,
		StartedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(sessionTokenTTL),
	}

	procCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	proc, err := s.launcher.Launch(procCtx, meta, size)
	if err != nil {
		cancel()
		return Session{}, mapLaunchError(err)
	}
	st := &sessionState{
		meta:        meta,
		proc:        proc,
		cancel:      cancel,
		input:       rate.NewLimiter(rate.Limit(maxInputBytesPerSecond), maxInputBytesPerSecond),
		subscribers: map[int]*subscriber{},
	}

	s.mu.Lock()
	s.pending--
	reserved = false
	s.sessions[meta.ID] = st
	s.tokens[meta.TokenHash] = meta.ID
	s.mu.Unlock()

	s.logger.Info("gateway session opened", "event", "gateway_session_opened", "session_id", meta.ID, "user", meta.User, "term", meta.Term, "cols", size.Cols, "rows", size.Rows)
	go s.watch(meta.ID, proc)
	go s.captureOutput(st)
	return meta, nil
}

// reserveSlot counts a launch in progress against MaxSessions so concurrent
// opens cannot overshoot it.
func (s *Service) reserveSlot() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions)+s.pending >= s.maxSessions {
		return false
	}
	s.pending++
	return true
}

// ResumeSession looks up a live session by token, for a browser that
// reconnects after a reload.
func (s *Service) ResumeSession(token string) (Session, error) {
	tokenHash := s.tokenHash(strings.TrimSpace(token))
	s.mu.Lock()
	sid, ok := s.tokens[tokenHash]
	if !ok {
		s.mu.Unlock()
		return Session{}, ErrSessionNotFound
	}
	st, ok := s.sessions[sid]
	if !ok {
		s.mu.Unlock()
		return Session{}, ErrSessionNotFound
	}
	if s.isExpired(st.meta) {
		s.mu.Unlock()
		s.terminate(sid, "expired")
		return Session{}, ErrSessionExpired
	}
	st.meta.LastSeenAt = s.now().UTC()
	meta := st.meta
	s.mu.Unlock()
	meta.Token = strings.TrimSpace(token)
	return meta, nil
}

// Subscribe streams editor output. The channel is closed when the editor
// exits; cancel detaches early.
func (s *Service) Subscribe(sessionID, token string) (<-chan []byte, func(), error) {
	if _, err := s.authorize(sessionID, token); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	st, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return nil, nil, ErrSessionNotFound
	}
	if st.outputClosed {
		s.mu.Unlock()
		return nil, nil, ErrSessionClosed
	}
	id := st.nextSubID
	st.nextSubID++
	sub := &subscriber{ch: make(chan []byte, subscriberBuffer), done: make(chan struct{})}
	st.subscribers[id] = sub
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(st.subscribers, id)
			s.mu.Unlock()
			close(sub.done)
		})
	}

	s.touchSession(sessionID)
	return sub.ch, cancel, nil
}

func (s *Service) WriteInput(sessionID, token string, payload []byte) error {
	st, err := s.authorize(sessionID, token)
	if err != nil {
		return err
	}
	if !st.input.AllowN(s.now(), len(payload)) {
		return &FriendlyError{Code: "INPUT_RATE_LIMITED", Message: "Input throughput limit exceeded."}
	}
	if _, err := st.proc.Write(payload); err != nil {
		return mapLaunchError(err)
	}
	s.touchSession(sessionID)
	return nil
}

func (s *Service) Resize(sessionID, token string, cols, rows int) error {
	st, err := s.authorize(sessionID, token)
	if err != nil {
		return err
	}
	size, err := sizeFrom(cols, rows)
	if err != nil {
		return err
	}
	if err := st.proc.Resize(size); err != nil {
		return mapLaunchError(err)
	}
	s.touchSession(sessionID)
	return nil
}

func (s *Service) Close(sessionID, token string) error {
	if _, err := s.authorize(sessionID, token); err != nil {
		return err
	}
	if !s.terminate(sessionID, "closed") {
		return ErrSessionNotFound
	}
	return nil
}

// Active reports the number of live sessions.
func (s *Service) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Run reaps expired and idle sessions until ctx ends, then closes the rest.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case <-ticker.C:
			s.Reap()
		}
	}
}

// Reap terminates expired sessions and returns how many it closed.
func (s *Service) Reap() int {
	s.mu.RLock()
	var expired []string
	for id, st := range s.sessions {
		if s.isExpired(st.meta) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	n := 0
	for _, id := range expired {
		if s.terminate(id, "expired") {
			n++
		}
	}
	return n
}

func (s *Service) closeAll() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	for _, id := range ids {
		s.terminate(id, "shutdown")
	}
}

// terminate removes the session and stops its process. It reports whether
// the session was still registered.
func (s *Service) terminate(sessionID, reason string) bool {
	s.mu.Lock()
	st, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
		delete(s.tokens, st.meta.TokenHash)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	st.cancel()
	if err := st.proc.Close(); err != nil {
		s.logger.Warn("gateway process close failed", "event", "gateway_process_close_failed", "session_id", sessionID, "err", err)
	}
	s.logger.Info("gateway session ended", "event", "gateway_session_ended", "session_id", sessionID, "reason", reason)
	return true
}

func (s *Service) watch(sessionID string, proc Process) {
	err := <-proc.Done()
	if err != nil {
		s.logger.Debug("editor exited", "session_id", sessionID, "err", err)
	}
	s.terminate(sessionID, "editor_exit")
}

func (s *Service) captureOutput(st *sessionState) {
	buf := make([]byte, 4096)
	for {
		n, err := st.proc.Read(buf)
		if n > 0 {
			s.publish(st, append([]byte(nil), buf[:n]...))
		}
		if err != nil {
			s.closeSubscribers(st)
			return
		}
	}
}

func (s *Service) publish(st *sessionState, chunk []byte) {
	s.mu.RLock()
	subs := make([]*subscriber, 0, len(st.subscribers))
	for _, sub := range st.subscribers {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub.ch <- chunk:
		case <-sub.done:
		}
	}
}

func (s *Service) closeSubscribers(st *sessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.outputClosed = true
	for id, sub := range st.subscribers {
		close(sub.ch)
		delete(st.subscribers, id)
	}
}

func (s *Service) authorize(sessionID, token string) (*sessionState, error) {
	tokenHash := s.tokenHash(strings.TrimSpace(token))
	hashPrefix := tokenHash[:12]

	s.mu.RLock()
	sid, ok := s.tokens[tokenHash]
	st, active := s.sessions[sessionID]
	s.mu.RUnlock()

	switch {
	case !ok && !active:
		s.logger.Warn("gateway authorize failed", "event", "gateway_authorize_failed", "reason", "session_not_active", "session_id", sessionID, "token_hash_prefix", hashPrefix)
		return nil, ErrSessionClosed
	case !ok:
		s.logger.Warn("gateway authorize failed", "event", "gateway_authorize_failed", "reason", "token_not_found", "session_id", sessionID, "token_hash_prefix", hashPrefix)
		return nil, ErrUnauthorized
	case sid != sessionID:
		s.logger.Warn("gateway authorize failed", "event", "gateway_authorize_failed", "reason", "session_mismatch", "session_id", sessionID, "token_hash_prefix", hashPrefix)
		return nil, ErrUnauthorized
	case !active:
		return nil, ErrSessionNotFound
	}
	if s.isExpired(st.meta) {
		s.logger.Warn("gateway authorize failed", "event", "gateway_authorize_failed", "reason", "session_expired", "session_id", sessionID, "token_hash_prefix", hashPrefix)
		return nil, ErrSessionExpired
	}
	return st, nil
}

func (s *Service) touchSession(sessionID string) {
	lastSeen := s.now().UTC()
	s.mu.Lock()
	if current, ok := s.sessions[sessionID]; ok {
		current.meta.LastSeenAt = lastSeen
	}
	s.mu.Unlock()
}

func (s *Service) isExpired(meta Session) bool {
	now := s.now().UTC()
	if !meta.ExpiresAt.IsZero() && now.After(meta.ExpiresAt) {
		return true
	}
	return !meta.LastSeenAt.IsZero() && now.After(meta.LastSeenAt.Add(sessionIdleLimit))
}

func (s *Service) tokenHash(token string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

func sizeFrom(cols, rows int) (Size, error) {
	if cols == 0 && rows == 0 {
		return Size{Cols: defaultCols, Rows: defaultRows}, nil
	}
	if cols < 1 || rows < 1 || cols > maxDimension || rows > maxDimension {
		return Size{}, ErrInvalidRequest
	}
	return Size{Cols: uint16(cols), Rows: uint16(rows)}, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
