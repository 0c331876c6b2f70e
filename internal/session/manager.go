package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Manager keeps the open sessions. A session that is not accessed for the
// idle period is evicted and closed.
type Manager struct {
	ctx      context.Context
	deps     Deps
	opts     Options
	sessions *cache.Cache
}

// NewManager creates a manager. ctx is the parent of every session it opens.
func NewManager(ctx context.Context, deps Deps, opts Options, idle time.Duration) *Manager {
	deps = deps.withDefaults()
	cleanup := idle / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	m := &Manager{
		ctx:      ctx,
		deps:     deps,
		opts:     opts,
		sessions: cache.New(idle, cleanup),
	}
	m.sessions.OnEvicted(func(id string, v interface{}) {
		if s, ok := v.(*Session); ok {
			s.Close()
			m.deps.Metrics.SessionClosed()
			m.deps.Logger.Info("session closed", "session", id)
		}
	})
	return m
}

// Open creates and starts a new session.
func (m *Manager) Open() (*Session, error) {
	s := New(uuid.NewString(), m.deps, m.opts)
	if err := s.Start(m.ctx); err != nil {
		s.Close()
		return nil, err
	}
	m.sessions.SetDefault(s.ID(), s)
	m.deps.Metrics.SessionOpened()
	m.deps.Logger.Info("session opened", "session", s.ID())
	return s, nil
}

// Get returns a session and resets its idle timer.
func (m *Manager) Get(id string) (*Session, error) {
	v, ok := m.sessions.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	m.sessions.SetDefault(id, v)
	return v.(*Session), nil
}

// Close closes and forgets a session.
func (m *Manager) Close(id string) error {
	if _, ok := m.sessions.Get(id); !ok {
		return ErrNotFound
	}
	m.sessions.Delete(id)
	return nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	return m.sessions.ItemCount()
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	for id := range m.sessions.Items() {
		m.sessions.Delete(id)
	}
}
