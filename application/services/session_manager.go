package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/application/history"
	"github.com/Widerk/shapesbonding/application/ports"
	"github.com/Widerk/shapesbonding/domain/geometry"
	"github.com/Widerk/shapesbonding/pkg/auth"
	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

// Gauge receives the number of open sessions
type Gauge interface {
	Set(float64)
}

type session struct {
	workbench *Workbench
	identity  *auth.RevocableIdentity
	unbind    func()
	lastSeen  time.Time
	pins      int
}

// SessionManager keeps one workbench per identity. Each workbench's history
// follows a revocable identity: revoking it disconnects the history.
type SessionManager struct {
	remote      ports.RemoteCollection
	engine      *geometry.Engine
	clock       ports.Clock
	metrics     ports.MetricsRecorder
	gauge       Gauge
	idleTimeout time.Duration
	logger      *zap.Logger

	// subscriptions outlive the request that opened them
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionManager creates a manager; gauge may be nil
func NewSessionManager(
	remote ports.RemoteCollection,
	engine *geometry.Engine,
	clock ports.Clock,
	metrics ports.MetricsRecorder,
	gauge Gauge,
	idleTimeout time.Duration,
	logger *zap.Logger,
) *SessionManager {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionManager{
		remote:      remote,
		engine:      engine,
		clock:       clock,
		metrics:     metrics,
		gauge:       gauge,
		idleTimeout: idleTimeout,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		sessions:    make(map[string]*session),
	}
}

// Acquire returns the workbench for identity, opening a session if needed.
// The history subscription is established before Acquire returns.
func (m *SessionManager) Acquire(identity string) (*Workbench, error) {
	if identity == "" {
		return nil, pkgerrors.NewIdentityMissingError("acquire session")
	}

	m.mu.Lock()
	if s, ok := m.sessions[identity]; ok {
		s.lastSeen = m.clock.Now()
		m.mu.Unlock()
		return s.workbench, nil
	}
	m.mu.Unlock()

	cache := history.NewCache(m.remote, m.clock, m.metrics, m.logger)
	if err := cache.Connect(m.ctx, identity); err != nil {
		return nil, err
	}
	provider := auth.NewRevocableIdentity(identity)
	unbind := cache.Bind(m.ctx, provider)

	s := &session{
		workbench: NewWorkbench(m.engine, cache),
		identity:  provider,
		unbind:    unbind,
		lastSeen:  m.clock.Now(),
	}

	m.mu.Lock()
	if existing, ok := m.sessions[identity]; ok {
		// lost a race with another Acquire for the same identity
		existing.lastSeen = m.clock.Now()
		m.mu.Unlock()
		s.close()
		return existing.workbench, nil
	}
	m.sessions[identity] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.setGauge(n)
	m.logger.Info("Session opened", zap.String("identity", identity))
	return s.workbench, nil
}

// Pin acquires the workbench for identity and keeps its session from idle
// expiry until release is called. Long-lived connections pin their session
// for as long as they are open. release may be called more than once.
func (m *SessionManager) Pin(identity string) (*Workbench, func(), error) {
	for {
		wb, err := m.Acquire(identity)
		if err != nil {
			return nil, nil, err
		}

		m.mu.Lock()
		s, ok := m.sessions[identity]
		if !ok || s.workbench != wb {
			// swept between Acquire and pinning
			m.mu.Unlock()
			continue
		}
		s.pins++
		m.mu.Unlock()

		var once sync.Once
		release := func() {
			once.Do(func() { m.unpin(s) })
		}
		return wb, release, nil
	}
}

func (m *SessionManager) unpin(s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.pins > 0 {
		s.pins--
	}
	s.lastSeen = m.clock.Now()
}

// Get returns an open session without creating one
func (m *SessionManager) Get(identity string) (*Workbench, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[identity]
	if !ok {
		return nil, false
	}
	s.lastSeen = m.clock.Now()
	return s.workbench, true
}

// Revoke ends the session for identity and clears its history
func (m *SessionManager) Revoke(identity string) bool {
	m.mu.Lock()
	s, ok := m.sessions[identity]
	if ok {
		delete(m.sessions, identity)
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.close()
	m.setGauge(n)
	m.logger.Info("Session revoked", zap.String("identity", identity))
	return true
}

// Len reports the number of open sessions
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep revokes every unpinned session idle for longer than the idle timeout
func (m *SessionManager) Sweep() int {
	if m.idleTimeout <= 0 {
		return 0
	}
	cutoff := m.clock.Now().Add(-m.idleTimeout)

	m.mu.Lock()
	var expired []string
	for identity, s := range m.sessions {
		if s.pins == 0 && s.lastSeen.Before(cutoff) {
			expired = append(expired, identity)
		}
	}
	m.mu.Unlock()

	for _, identity := range expired {
		m.Revoke(identity)
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is done
func (m *SessionManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Info("Expired idle sessions", zap.Int("count", n))
			}
		}
	}
}

// Close revokes every session
func (m *SessionManager) Close() {
	m.mu.Lock()
	identities := make([]string, 0, len(m.sessions))
	for identity := range m.sessions {
		identities = append(identities, identity)
	}
	m.mu.Unlock()

	for _, identity := range identities {
		m.Revoke(identity)
	}
	m.cancel()
}

func (m *SessionManager) setGauge(n int) {
	if m.gauge != nil {
		m.gauge.Set(float64(n))
	}
}

func (s *session) close() {
	s.identity.Revoke()
	s.unbind()
}
