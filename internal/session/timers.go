package session

import (
	"sync"
	"time"
)

// Modifiers holds the transient per-turn stat/finance/skill deltas shown to
// the player. Each publication is an expiring entry (values + expiry
// timestamp); readers prune on access, so no background timer callback ever
// mutates shared state.
type Modifiers struct {
	mu  sync.Mutex
	now func() time.Time

	stat      modifierEntry
	financial modifierEntry
	skill     modifierEntry
}

type modifierEntry struct {
	values    map[string]float64
	expiresAt time.Time
}

func (e *modifierEntry) set(values map[string]float64, expiresAt time.Time) {
	if len(values) == 0 {
		return
	}
	e.values = values
	e.expiresAt = expiresAt
}

func (e *modifierEntry) active(now time.Time) map[string]float64 {
	if e.values == nil {
		return nil
	}
	if now.After(e.expiresAt) {
		e.values = nil
		return nil
	}
	return e.values
}

// NewModifiers creates a modifier window over the given time source.
func NewModifiers(now func() time.Time) *Modifiers {
	if now == nil {
		now = time.Now
	}
	return &Modifiers{now: now}
}

// Publish records the turn's delta maps for display. Nil or empty maps
// leave the corresponding slot untouched.
func (m *Modifiers) Publish(stat, financial, skill map[string]float64, window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt := m.now().Add(window)
	m.stat.set(stat, expiresAt)
	m.financial.set(financial, expiresAt)
	m.skill.set(skill, expiresAt)
}

// Active returns the currently visible delta maps, pruning expired entries.
func (m *Modifiers) Active() (stat, financial, skill map[string]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	return m.stat.active(now), m.financial.active(now), m.skill.active(now)
}

// Clear discards all pending entries, used by the hard restart.
func (m *Modifiers) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stat = modifierEntry{}
	m.financial = modifierEntry{}
	m.skill = modifierEntry{}
}
