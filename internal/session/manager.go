package session

import (
	"errors"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/geobuffer/internal/cache/exportcache"
	"github.com/mohammed-shakir/geobuffer/internal/core/model"
	"github.com/mohammed-shakir/geobuffer/internal/core/observability"
	"github.com/mohammed-shakir/geobuffer/internal/logger"
	"github.com/mohammed-shakir/geobuffer/internal/sessionevents"
)

var ErrNotFound = errors.New("session not found")

const DefaultMaxSessions = 1024

type Options struct {
	MaxSessions   int
	DefaultConfig model.BufferConfig
	Events        sessionevents.Publisher
	Exports       *exportcache.Cache
	Logger        *slog.Logger
}

// Manager keeps the most recently used sessions in memory. The least
// recently used session is dropped once MaxSessions is reached.
type Manager struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *Session]
	opts     Options
	newID    func() string
	deleting string
}

func NewManager(opts Options) (*Manager, error) {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.DefaultConfig.Shape == "" {
		opts.DefaultConfig = model.DefaultBufferConfig()
	}
	if opts.DefaultConfig.Unit == "" {
		opts.DefaultConfig.Unit = model.UnitMeters
	}
	if opts.Events == nil {
		opts.Events = sessionevents.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	m := &Manager{opts: opts, newID: logger.NewID}
	c, err := lru.NewWithEvict(opts.MaxSessions, func(id string, _ *Session) {
		// Remove also lands here; only capacity drops count as evictions.
		if id == m.deleting {
			return
		}
		observability.IncSessionEvicted()
		opts.Logger.Info("session evicted", "session_id", id)
	})
	if err != nil {
		return nil, err
	}
	m.sessions = c
	return m, nil
}

func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newID()
	for m.sessions.Contains(id) {
		id = m.newID()
	}
	s := newSession(id, m.opts.DefaultConfig, m.opts.Events, m.opts.Exports, m.opts.Logger)
	m.sessions.Add(id, s)
	observability.SetSessionsActive(m.sessions.Len())
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	s, ok := m.sessions.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleting = id
	removed := m.sessions.Remove(id)
	m.deleting = ""
	if !removed {
		return ErrNotFound
	}
	observability.SetSessionsActive(m.sessions.Len())
	return nil
}

func (m *Manager) Len() int { return m.sessions.Len() }
