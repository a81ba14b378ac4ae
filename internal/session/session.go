// Package session keeps logged-in sessions in memory, each guarded by an
// idle monitor that logs the user out after a period of inactivity.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"zenbank/internal/cache"
	"zenbank/internal/core"
	"zenbank/internal/idle"
	"zenbank/internal/log"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

// Session is one login. Identity fields are immutable after Create.
type Session struct {
	Token     string
	UserID    string
	Username  string
	CreatedAt time.Time

	monitor *idle.Monitor

	mu  sync.Mutex
	seq map[core.TransactionType]uint64
}

// Idle returns the current countdown state.
func (s *Session) Idle() idle.Snapshot {
	return s.monitor.Snapshot()
}

// BeginSuggestion numbers a new suggestion request for t. Numbers only grow.
func (s *Session) BeginSuggestion(t core.TransactionType) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[t]++
	return s.seq[t]
}

// CommitSuggestion runs commit only if seq is still the latest request for
// t, and reports whether it did. Responses to superseded requests are
// dropped so they cannot overwrite newer state.
func (s *Session) CommitSuggestion(t core.TransactionType, seq uint64, commit func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq[t] != seq {
		return false
	}
	if commit != nil {
		commit()
	}
	return true
}

// Stats reports session counters for metrics.
type Stats struct {
	Active  int
	Created int64
	Expired int64
}

type Manager struct {
	cfg    idle.Config
	logger *log.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	// expired tokens are remembered for a while so clients can be told
	// why their token stopped working.
	tombstones *cache.LRUCache[string]

	created atomic.Int64
	expired atomic.Int64
}

func NewManager(cfg idle.Config, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		cfg:        cfg,
		logger:     logger.WithComponent(log.ComponentSession),
		sessions:   make(map[string]*Session),
		tombstones: cache.NewLRUCache[string](10000, time.Hour),
	}
}

// Create starts a session and its idle countdown.
func (m *Manager) Create(userID, username string) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	s := &Session{
		Token:     token,
		UserID:    userID,
		Username:  username,
		CreatedAt: time.Now().UTC(),
		seq:       make(map[core.TransactionType]uint64),
	}
	s.monitor = idle.New(m.cfg, func() { m.expire(token) })

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.New("session manager closed")
	}
	m.sessions[token] = s
	m.mu.Unlock()

	s.monitor.Start()
	m.created.Add(1)
	m.logger.Info("Session started", log.FieldUserID, userID)
	return s, nil
}

func (m *Manager) lookup(token string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[token]
	m.mu.Unlock()
	if ok {
		return s, nil
	}
	if _, gone := m.tombstones.Get(token); gone {
		return nil, ErrExpired
	}
	return nil, ErrNotFound
}

// Get returns the session without counting as activity.
func (m *Manager) Get(token string) (*Session, error) {
	s, err := m.lookup(token)
	if err != nil {
		return nil, err
	}
	if s.monitor.Snapshot().State == idle.Expired {
		return nil, ErrExpired
	}
	return s, nil
}

// Touch records activity on the session and returns it.
func (m *Manager) Touch(token string) (*Session, error) {
	s, err := m.lookup(token)
	if err != nil {
		return nil, err
	}
	if !s.monitor.Activity() {
		return nil, ErrExpired
	}
	return s, nil
}

// Destroy ends a session on logout. It reports whether the token existed.
func (m *Manager) Destroy(token string) bool {
	m.mu.Lock()
	s, ok := m.sessions[token]
	delete(m.sessions, token)
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.monitor.Stop()
	m.logger.Info("Session ended", log.FieldUserID, s.UserID, log.FieldOperation, log.OpLogout)
	return true
}

func (m *Manager) expire(token string) {
	m.mu.Lock()
	s, ok := m.sessions[token]
	delete(m.sessions, token)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.tombstones.Set(token, s.UserID)
	m.expired.Add(1)
	m.logger.Info("Session expired after inactivity", log.FieldUserID, s.UserID, log.FieldOperation, log.OpExpire)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) Stats() Stats {
	return Stats{Active: m.Len(), Created: m.created.Load(), Expired: m.expired.Load()}
}

// Tombstones exposes the expired-token cache for periodic cleanup.
func (m *Manager) Tombstones() cache.Cleaner {
	return m.tombstones
}

// Close stops every monitor. Sessions are dropped without firing callbacks.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.closed = true
	m.mu.Unlock()
	for _, s := range sessions {
		s.monitor.Stop()
	}
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
