// Package session owns the per-session profile state. One Session is the
// single logical owner of its profile and signal log: all mutation is
// serialized through the session lock, so concurrent submissions from
// multiple origins become a FIFO before they reach the profile engine.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/tailor/internal/profile"
	"github.com/thebtf/tailor/pkg/models"
)

// Store is the persistence collaborator for session state blobs.
type Store interface {
	Load(ctx context.Context, sessionID string) (*models.SessionState, error)
	Save(ctx context.Context, sessionID string, state *models.SessionState) error
	Delete(ctx context.Context, sessionID string) error
}

// SessionTimeout is how long an idle session stays in memory.
const SessionTimeout = 30 * time.Minute

// CleanupInterval is how often stale in-memory sessions are evicted.
// Persisted state survives eviction; the session rehydrates on next use.
const CleanupInterval = 5 * time.Minute

// Session is the in-memory actor for one visitor session.
type Session struct {
	ID string

	mu         sync.Mutex
	engine     *profile.Engine
	lastActive time.Time
}

// Manager manages session lifecycles and hydration.
type Manager struct {
	store    Store
	mu       sync.RWMutex
	sessions map[string]*Session
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewManager creates a session manager backed by the given store. A nil
// store means in-memory-only sessions.
func NewManager(store Store) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:    store,
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
	}
	go m.cleanupLoop()
	return m
}

// Close stops the cleanup loop.
func (m *Manager) Close() {
	m.cancel()
}

// get returns the in-memory session, hydrating from the store on first
// touch. Hydration replays the persisted signal log through a fresh
// engine so the confidence score is reconstructed from raw signals, never
// trusted from the blob.
func (m *Manager) get(ctx context.Context, sessionID string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		return s
	}

	s = &Session{ID: sessionID, engine: profile.NewEngine(), lastActive: time.Now()}
	if m.store != nil {
		state, err := m.store.Load(ctx, sessionID)
		if err != nil {
			log.Warn().Err(err).Str("sessionId", sessionID).Msg("Session load failed, starting empty")
		} else if state != nil {
			state = models.NormalizedState(state)
			s.engine.Rebuild(state.Signals)
			log.Debug().
				Str("sessionId", sessionID).
				Int("signals", len(state.Signals)).
				Float64("confidence", s.engine.Profile().ConfidenceScore).
				Msg("Session hydrated from store")
		}
	}
	m.sessions[sessionID] = s
	return s
}

// AddSignal ingests a classified signal into the session's profile engine
// and persists the updated state. FIFO with respect to other mutations on
// the same session.
func (m *Manager) AddSignal(ctx context.Context, sessionID string, sig *models.Signal) (*models.Profile, error) {
	s := m.get(ctx, sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.engine.AddSignal(sig)
	s.lastActive = time.Now()
	m.persist(ctx, s)
	return snapshotProfile(p), nil
}

// ReweightDwell revises a page-view signal's weight for dwell time.
func (m *Manager) ReweightDwell(ctx context.Context, sessionID, signalID string, dwellSeconds int) (*models.Profile, error) {
	s := m.get(ctx, sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine.ReweightDwell(signalID, dwellSeconds) {
		m.persist(ctx, s)
	}
	s.lastActive = time.Now()
	return snapshotProfile(s.engine.Profile()), nil
}

// Profile returns a snapshot of the session's current profile.
func (m *Manager) Profile(ctx context.Context, sessionID string) *models.Profile {
	s := m.get(ctx, sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotProfile(s.engine.Profile())
}

// Confidence returns the session's current confidence score.
func (m *Manager) Confidence(ctx context.Context, sessionID string) float64 {
	s := m.get(ctx, sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Profile().ConfidenceScore
}

// Reset clears the session back to the empty profile and deletes the
// persisted state. Serialized with in-flight AddSignal calls on the same
// session, so a clear cannot silently lose a concurrently-arriving signal.
func (m *Manager) Reset(ctx context.Context, sessionID string) error {
	s := m.get(ctx, sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Reset()
	s.lastActive = time.Now()
	if m.store != nil {
		if err := m.store.Delete(ctx, sessionID); err != nil {
			return err
		}
	}
	log.Info().Str("sessionId", sessionID).Msg("Session reset")
	return nil
}

// SessionCount returns how many sessions are resident in memory.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) persist(ctx context.Context, s *Session) {
	if m.store == nil {
		return
	}
	state := &models.SessionState{
		Profile: s.engine.Profile(),
		Signals: s.engine.Signals(),
	}
	if err := m.store.Save(ctx, s.ID, state); err != nil {
		log.Warn().Err(err).Str("sessionId", s.ID).Msg("Session persist failed")
	}
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.evictStale()
		}
	}
}

func (m *Manager) evictStale() {
	cutoff := time.Now().Add(-SessionTimeout)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.mu.Lock()
		stale := s.lastActive.Before(cutoff)
		s.mu.Unlock()
		if stale {
			delete(m.sessions, id)
			log.Debug().Str("sessionId", id).Msg("Evicted idle session from memory")
		}
	}
}

// snapshotProfile copies the profile so callers outside the session lock
// never observe concurrent mutation.
func snapshotProfile(p *models.Profile) *models.Profile {
	cp := *p
	cp.Segments = append([]string(nil), p.Segments...)
	cp.UseCases = append([]string(nil), p.UseCases...)
	cp.ProductsConsidered = append([]string(nil), p.ProductsConsidered...)
	return &cp
}
