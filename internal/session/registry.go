package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"barrier-router/internal/metrics"
	"barrier-router/internal/models"
)

// Factory builds a session for a new ID
type Factory func(id string, kind models.SolveKind, variant Variant) (Session, error)

// NewFactory returns a Factory that builds both screens from shared deps
func NewFactory(cfg Config, deps Deps) Factory {
	return func(id string, kind models.SolveKind, variant Variant) (Session, error) {
		switch kind {
		case models.SolveKindRoute:
			return NewRouteSession(id, variant, cfg, deps), nil
		case models.SolveKindServiceArea:
			return NewServiceAreaSession(id, cfg, deps), nil
		default:
			return nil, fmt.Errorf("unknown session kind %q", kind)
		}
	}
}

// Store manages live sessions in memory
type Store struct {
	sessions map[string]Session
	mu       sync.RWMutex
	factory  Factory
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewStore creates a new session store
func NewStore(factory Factory, m *metrics.Metrics, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sessions: make(map[string]Session),
		factory:  factory,
		metrics:  m,
		logger:   logger,
	}
}

// Create builds, starts and registers a session
func (s *Store) Create(kind models.SolveKind, variant Variant) (Session, error) {
	id := uuid.NewString()
	sess, err := s.factory(id, kind, variant)
	if err != nil {
		return nil, err
	}
	if err := sess.Start(); err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.mu.Lock()
	s.sessions[id] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SessionOpened(string(kind))
	s.logger.Info("[SESSION] Created session",
		zap.String("session_id", id),
		zap.String("kind", string(kind)),
		zap.String("variant", string(variant)),
		zap.Int("live", count))
	return sess, nil
}

func (s *Store) Get(id string) Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Delete closes and unregisters a session. It reports whether one existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	sess := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if sess == nil {
		return false
	}
	sess.Close()
	s.metrics.SessionClosed(string(sess.Kind()))
	s.logger.Info("[SESSION] Deleted session", zap.String("session_id", id))
	return true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CloseAll closes every session, cancelling in-flight solves
func (s *Store) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
		s.metrics.SessionClosed(string(sess.Kind()))
	}
	if len(sessions) > 0 {
		s.logger.Info("[SESSION] Closed all sessions", zap.Int("count", len(sessions)))
	}
}
