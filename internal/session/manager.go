package session

import (
	"context"
	"sync"
	"time"

	"github.com/nantokaworks/chzzk-games/internal/game"
	"github.com/nantokaworks/chzzk-games/internal/shared/logger"
	"github.com/nantokaworks/chzzk-games/internal/types"
	"go.uber.org/zap"
)

// Manager はチャンネルIDごとのactorを管理する。チャンネル間に共有可変
// 状態はなく、actor同士は一切協調しない。
type Manager struct {
	mu     sync.Mutex
	actors map[string]*Actor

	configFn    func() game.Config
	publish     func(channelID string, snap game.Snapshot)
	clientCount func(channelID string) int
}

// NewManager creates a manager. configFn is consulted once per new
// channel session; publish receives every snapshot to fan out.
func NewManager(configFn func() game.Config, publish func(channelID string, snap game.Snapshot)) *Manager {
	if configFn == nil {
		configFn = game.DefaultConfig
	}
	if publish == nil {
		publish = func(string, game.Snapshot) {}
	}
	return &Manager{
		actors:      make(map[string]*Actor),
		configFn:    configFn,
		publish:     publish,
		clientCount: func(string) int { return 0 },
	}
}

// SetClientCounter wires in the display-surface connection count used
// by the idle reaper. Must be called before StartJanitor.
func (m *Manager) SetClientCounter(fn func(channelID string) int) {
	if fn != nil {
		m.clientCount = fn
	}
}

// Get returns the channel's actor, creating it on first use.
func (m *Manager) Get(channelID string) *Actor {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.actors[channelID]; ok {
		return a
	}

	publish := m.publish
	a := newActor(channelID, m.configFn(), func(snap game.Snapshot) {
		publish(channelID, snap)
	})
	m.actors[channelID] = a
	logger.Info("Channel session created", zap.String("channel_id", channelID))
	return a
}

// Lookup returns the channel's actor without creating one.
func (m *Manager) Lookup(channelID string) (*Actor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actors[channelID]
	return a, ok
}

// Ingest routes one upstream event to its channel. Events for channels
// with no running session are dropped; chat noise must not spawn actors.
func (m *Manager) Ingest(channelID string, ev types.Event) {
	if a, ok := m.Lookup(channelID); ok {
		a.Ingest(ev)
	}
}

// StartJanitor reaps sessions that have no connected display surfaces,
// no active game, and no recent activity.
func (m *Manager) StartJanitor(ctx context.Context, interval, idleAfter time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.reapIdle(ctx, idleAfter)
			}
		}
	}()
}

func (m *Manager) reapIdle(ctx context.Context, idleAfter time.Duration) {
	m.mu.Lock()
	candidates := make([]*Actor, 0, len(m.actors))
	for _, a := range m.actors {
		candidates = append(candidates, a)
	}
	m.mu.Unlock()

	for _, a := range candidates {
		if time.Since(a.LastActive()) < idleAfter {
			continue
		}
		if m.clientCount(a.ChannelID()) > 0 {
			continue
		}

		snap, err := a.Snapshot(ctx)
		if err != nil || snap.ActiveMode != game.ModeNone {
			continue
		}

		m.mu.Lock()
		delete(m.actors, a.ChannelID())
		m.mu.Unlock()
		a.Close()
		logger.Info("Idle channel session reaped", zap.String("channel_id", a.ChannelID()))
	}
}

// Shutdown stops every actor.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	actors := make([]*Actor, 0, len(m.actors))
	for _, a := range m.actors {
		actors = append(actors, a)
	}
	m.actors = make(map[string]*Actor)
	m.mu.Unlock()

	for _, a := range actors {
		a.Close()
	}
}
