package autosave

import (
	"context"
	"sync"
	"time"

	"scene-store/internal/platform"
	"scene-store/internal/shared/eventbus"
	"scene-store/internal/shared/logger"
)

// Manager owns the autosave sessions of open scenes, one Controller per
// scene id. Sessions start on first use and live until closed explicitly or
// on shutdown.
type Manager struct {
	scenes   SceneAccess
	notify   platform.Notifier
	bus      *eventbus.Bus
	log      logger.Logger
	debounce time.Duration

	mu       sync.Mutex
	sessions map[string]*Controller
}

// NewManager creates a session manager. bus is optional.
func NewManager(scenes SceneAccess, notify platform.Notifier, bus *eventbus.Bus, log logger.Logger, debounce time.Duration) *Manager {
	return &Manager{
		scenes:   scenes,
		notify:   notify,
		bus:      bus,
		log:      log.WithComponent("autosave-manager"),
		debounce: debounce,
		sessions: make(map[string]*Controller),
	}
}

// Session returns the running session for a scene, starting one on first
// use. The session outlives the request that opened it, so only the
// request's values travel into it, not its cancellation.
func (m *Manager) Session(ctx context.Context, sceneID string) (*Controller, error) {
	m.mu.Lock()
	if existing, ok := m.sessions[sceneID]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.mu.Unlock()

	session := New(m.scenes, m.notify, m.bus, m.log, sceneID, m.debounce)
	if err := session.Start(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[sceneID]; ok {
		// Lost the open race; keep the session that got registered first.
		session.Close()
		return existing, nil
	}
	m.sessions[sceneID] = session
	m.log.Infof("opened autosave session for scene %s", sceneID)
	return session, nil
}

// CloseSession flushes pending edits and stops the session of a scene.
// Closing a scene with no session is not an error.
func (m *Manager) CloseSession(ctx context.Context, sceneID string) {
	m.mu.Lock()
	session, ok := m.sessions[sceneID]
	delete(m.sessions, sceneID)
	m.mu.Unlock()

	if !ok {
		return
	}
	session.Flush(ctx)
	session.Close()
	m.log.Infof("closed autosave session for scene %s", sceneID)
}

// CloseAll flushes and stops every open session. Called on shutdown so tail
// edits are not lost to the quiet window.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*Controller, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.sessions = make(map[string]*Controller)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Flush(ctx)
		session.Close()
	}
}
