package server

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/copyleftdev/gradviz/internal/errors"
	"github.com/copyleftdev/gradviz/internal/logging"
	"github.com/copyleftdev/gradviz/internal/optimization"
	"github.com/copyleftdev/gradviz/internal/optimization/controller"
	"github.com/copyleftdev/gradviz/internal/optimization/descent"
)

// Session is one independent simulation: a controller with its own engine
// state, cadence and settings.
type Session struct {
	ID         string
	CreatedAt  time.Time
	Controller *controller.Controller
}

// SessionOptions are the optional settings of a new session.
type SessionOptions struct {
	Objective    string
	LearningRate *float64
	Speed        *int
}

// SessionManager owns the live sessions.
type SessionManager struct {
	registry         *optimization.Registry
	policy           descent.Policy
	scheduler        controller.Scheduler
	defaultObjective string
	defaultSpeed     int
	maxSessions      int
	logger           *logging.Logger
	metrics          *Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Create starts a new idle session.
func (m *SessionManager) Create(opts SessionOptions) (*Session, error) {
	name := opts.Objective
	if name == "" {
		name = m.defaultObjective
	}
	if _, err := m.registry.Get(name); err != nil {
		return nil, apperrors.Wrap(err, http.StatusBadRequest, apperrors.CodeInvalidParams, "create session")
	}

	speed := m.defaultSpeed
	if opts.Speed != nil {
		speed = *opts.Speed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.maxSessions {
		return nil, apperrors.TooManyRequests("session limit of %d reached", m.maxSessions)
	}

	id := uuid.New().String()
	sessionLogger := m.logger.WithField("session_id", id)
	ctrl, err := controller.New(m.registry, name,
		controller.WithScheduler(m.scheduler),
		controller.WithPolicy(m.policy),
		controller.WithSpeed(speed),
		controller.WithLogger(logging.NewZapLogger(sessionLogger).Named("controller")),
		controller.WithObserver(m.metrics.Observe),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, http.StatusBadRequest, apperrors.CodeInvalidParams, "create session")
	}
	if opts.LearningRate != nil {
		ctrl.SetLearningRate(*opts.LearningRate)
	}

	s := &Session{
		ID:         id,
		CreatedAt:  time.Now().UTC(),
		Controller: ctrl,
	}
	m.sessions[id] = s
	m.metrics.sessions.Set(float64(len(m.sessions)))

	sessionLogger.Info("Session created", map[string]interface{}{
		"objective": name,
	})
	return s, nil
}

// Get returns the session with the given id.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.NotFound("session %q not found", id)
	}
	return s, nil
}

// List returns all sessions, oldest first.
func (m *SessionManager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Close stops the session's cadence and forgets it.
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		m.metrics.sessions.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()

	if !ok {
		return apperrors.NotFound("session %q not found", id)
	}
	s.Controller.Stop()
	m.logger.Info("Session closed", map[string]interface{}{"session_id": id})
	return nil
}

// CloseAll stops and forgets every session.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.metrics.sessions.Set(0)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Controller.Stop()
	}
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
