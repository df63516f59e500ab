package session

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/ports"
)

type entry struct {
	mu sync.Mutex
	s  *Session
}

// Manager owns every live session. Calls on one session run one at a time
// under that session's lock; different sessions proceed in parallel.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	defaults Options
	store    ports.PlanStore
	newID    func() string

	// OnPersistError observes snapshot writes the plan store rejected.
	OnPersistError func(sessionID string, err error)
}

// NewManager creates sessions with defaults as their options. store may be nil.
func NewManager(defaults Options, store ports.PlanStore) *Manager {
	if defaults.Registry == nil {
		defaults.Registry = NewCourierRegistry()
	}
	if defaults.Clock == nil {
		defaults.Clock = time.Now
	}
	return &Manager{
		sessions: make(map[string]*entry),
		defaults: defaults,
		store:    store,
		newID:    uuid.NewString,
	}
}

func (m *Manager) Registry() *CourierRegistry { return m.defaults.Registry }

// Create opens a DRAFT session. An empty id gets a random one; a zero date
// means today.
func (m *Manager) Create(id string, date time.Time) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = m.newID()
	}
	if date.IsZero() {
		date = m.defaults.Clock()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		return "", domain.Errorf(domain.CodeDuplicateSession, "session %q already exists", id)
	}
	m.sessions[id] = &entry{s: New(id, date, m.defaults)}
	return id, nil
}

// IDs lists the live sessions.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, domain.Errorf(domain.CodeUnknownSession, "session %q does not exist", id)
	}
	return e, nil
}

// View runs fn with exclusive access to the session.
func (m *Manager) View(id string, fn func(*Session) error) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.s)
}

// Update runs fn like View, then snapshots the session to the plan store once
// it has routes. Snapshot failures go to OnPersistError and do not fail fn.
func (m *Manager) Update(ctx context.Context, id string, fn func(*Session) error) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := fn(e.s); err != nil {
		return err
	}
	if m.store == nil || e.s.State() == domain.StateDraft {
		return nil
	}
	if err := m.persist(ctx, e.s); err != nil && m.OnPersistError != nil {
		m.OnPersistError(id, err)
	}
	return nil
}

func (m *Manager) persist(ctx context.Context, s *Session) error {
	b, err := json.Marshal(s.Snapshot())
	if err != nil {
		return fmt.Errorf("persist session %q: marshal: %w", s.ID(), err)
	}
	if err := m.store.SavePlan(ctx, s.ID(), b); err != nil {
		return fmt.Errorf("persist session %q: %w", s.ID(), err)
	}
	return nil
}

// Snapshot returns the live view of a session, falling back to the last
// stored snapshot for sessions this process does not hold.
func (m *Manager) Snapshot(ctx context.Context, id string) (PlannedSession, error) {
	var ps PlannedSession
	err := m.View(id, func(s *Session) error {
		ps = s.Snapshot()
		return nil
	})
	if err == nil || m.store == nil || domain.CodeOf(err) != domain.CodeUnknownSession {
		return ps, err
	}

	b, lerr := m.store.LoadPlan(ctx, id)
	if lerr != nil {
		if domain.CodeOf(lerr) == domain.CodeNotFound {
			return PlannedSession{}, err
		}
		return PlannedSession{}, fmt.Errorf("snapshot %q: %w", id, lerr)
	}
	if err := json.Unmarshal(b, &ps); err != nil {
		return PlannedSession{}, fmt.Errorf("snapshot %q: decode stored plan: %w", id, err)
	}
	return ps, nil
}
