package engine

// Event categories.
const (
	CategoryEconomy   = "economy"
	CategorySocial    = "social"
	CategoryDisaster  = "disaster"
	CategoryDiplomacy = "diplomacy"
	CategoryWar       = "war"
	CategoryVoyage    = "voyage"
)

// Event is a notable occurrence in the world.
type Event struct {
	Tick        uint64 `json:"tick" db:"tick"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"`
	CityID      int    `json:"city_id,omitempty" db:"city_id"`
	KingdomID   int    `json:"kingdom_id,omitempty" db:"kingdom_id"`
}

// eventLog keeps the newest events in a ring and queues everything emitted
// since the last drain for persistence.
type eventLog struct {
	ring    []Event
	head    int
	count   int
	pending []Event
}

func newEventLog(size int) *eventLog {
	return &eventLog{ring: make([]Event, size)}
}

func (l *eventLog) add(e Event) {
	l.ring[l.head] = e
	l.head = (l.head + 1) % len(l.ring)
	if l.count < len(l.ring) {
		l.count++
	}
	// Unsaved events are bounded by the ring too; a long outage drops the oldest.
	if len(l.pending) >= len(l.ring) {
		l.pending = l.pending[1:]
	}
	l.pending = append(l.pending, e)
}

func (l *eventLog) len() int { return l.count }

// recent returns up to n events, newest first.
func (l *eventLog) recent(n int) []Event {
	n = min(max(n, 0), l.count)
	out := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, l.ring[(l.head-i+len(l.ring))%len(l.ring)])
	}
	return out
}

func (l *eventLog) drain() []Event {
	out := l.pending
	l.pending = nil
	return out
}

// EmitEvent records an event. Callers hold the write lock.
func (s *Simulation) EmitEvent(e Event) {
	s.events.add(e)
	if s.onEvent != nil {
		s.onEvent(e)
	}
}
