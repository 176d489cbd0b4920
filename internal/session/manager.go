package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ManagerConfig bounds session lifetimes so the registry cannot grow without
// limit under churn.
type ManagerConfig struct {
	// RetainFor keeps complete sessions around for replay.
	RetainFor time.Duration
	// MaxAge evicts any session regardless of state.
	MaxAge time.Duration
	// SweepEvery is the janitor interval. Zero disables the janitor.
	SweepEvery time.Duration
}

// DefaultConfig returns the lifetime policy used by the serve command.
func DefaultConfig() ManagerConfig {
	return ManagerConfig{
		RetainFor:  10 * time.Minute,
		MaxAge:     time.Hour,
		SweepEvery: time.Minute,
	}
}

// Manager is the registry of sessions. All map access happens under one
// mutex, which gives read-check-create atomicity per key.
type Manager struct {
	cfg  ManagerConfig
	log  zerolog.Logger
	stop chan struct{}

	mu    sync.Mutex
	byID  map[string]*Session
	byKey map[Key]*Session
}

// NewManager creates a registry and starts its janitor when configured.
func NewManager(cfg ManagerConfig, log zerolog.Logger) *Manager {
	m := &Manager{
		cfg:   cfg,
		log:   log,
		stop:  make(chan struct{}),
		byID:  make(map[string]*Session),
		byKey: make(map[Key]*Session),
	}
	if cfg.SweepEvery > 0 {
		go m.janitor()
	}
	return m
}

// Ensure returns the active session for key, creating one atomically when
// none exists. created reports whether a new session was started. A complete
// session for the key is superseded, never returned.
func (m *Manager) Ensure(key Key) (s *Session, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byKey[key]; ok && existing.State() != StateComplete {
		return existing, false
	}

	s = newSession(key)
	m.byID[s.ID] = s
	m.byKey[key] = s
	m.log.Debug().Str("session", s.ID).Str("project", key.ProjectPath).Msg("session created")
	return s, true
}

// Get returns a session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	return s, ok
}

// ActiveForKey returns the current non-complete session for a key, letting a
// new request choose between replaying it and starting fresh.
func (m *Manager) ActiveForKey(key Key) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byKey[key]
	if !ok || s.State() == StateComplete {
		return nil, false
	}
	return s, true
}

// Remove evicts a session from the registry, aborting it if still live.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.byID[id]
	if ok {
		delete(m.byID, id)
		if m.byKey[s.Key] == s {
			delete(m.byKey, s.Key)
		}
	}
	m.mu.Unlock()
	if ok {
		s.Abort()
	}
}

// Len returns the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// Close stops the janitor.
func (m *Manager) Close() {
	close(m.stop)
}

func (m *Manager) janitor() {
	ticker := time.NewTicker(m.cfg.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

// sweep evicts sessions past their lifetime. Complete sessions linger for
// RetainFor so late consumers can replay; everything dies at MaxAge.
func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	var evict []*Session
	for _, s := range m.byID {
		expired := m.cfg.MaxAge > 0 && now.Sub(s.StartedAt) > m.cfg.MaxAge
		done := false
		s.mu.Lock()
		if s.state == StateComplete && m.cfg.RetainFor > 0 {
			done = now.Sub(s.completedAt) > m.cfg.RetainFor
		}
		s.mu.Unlock()
		if expired || done {
			evict = append(evict, s)
		}
	}
	for _, s := range evict {
		delete(m.byID, s.ID)
		if m.byKey[s.Key] == s {
			delete(m.byKey, s.Key)
		}
	}
	m.mu.Unlock()

	for _, s := range evict {
		m.log.Debug().Str("session", s.ID).Msg("session evicted")
		s.Abort()
	}
}
