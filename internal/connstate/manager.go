package connstate

import (
	"log/slog"
	"sync"
	"time"
)

// Manager is the lifecycle state machine for a single outbound connection.
// It holds no connection resource itself; the dialer drives it and anything
// interested in connection health subscribes to its transitions.
type Manager struct {
	mu sync.Mutex

	state             State
	quality           Quality
	connectionID      string
	latency           time.Duration
	reconnectAttempts int
	lastConnectedAt   time.Time
	lastError         ErrorKind
	lastErrorMessage  string

	subs      []subscription
	nextSubID int
}

type subscription struct {
	id int
	fn func(ChangeEvent)
}

func NewManager() *Manager {
	return &Manager{
		state:   StateDisconnected,
		quality: QualityGood,
	}
}

// SetState transitions to s. Calling it with the current state is a strict
// no-op: nothing mutates and no event is delivered.
func (m *Manager) SetState(s State) {
	m.setState(s, "", "")
}

// SetStateWithError transitions to s carrying a structured failure. The error
// pair is stored only when entering StateFailed; the event carries it either
// way.
func (m *Manager) SetStateWithError(s State, kind ErrorKind, msg string) {
	m.setState(s, kind, msg)
}

func (m *Manager) setState(s State, kind ErrorKind, msg string) {
	m.mu.Lock()
	if s == m.state {
		m.mu.Unlock()
		return
	}

	prev := m.state
	m.state = s

	switch s {
	case StateConnected:
		m.lastConnectedAt = time.Now()
		m.reconnectAttempts = 0
		m.lastError = ""
		m.lastErrorMessage = ""
	case StateReconnecting:
		m.reconnectAttempts++
	case StateFailed:
		m.lastError = kind
		m.lastErrorMessage = msg
	}

	ev := ChangeEvent{
		Previous:     prev,
		Current:      s,
		Timestamp:    time.Now(),
		ConnectionID: m.connectionID,
		Error:        kind,
		ErrorMessage: msg,
	}
	subs := make([]subscription, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, sub := range subs {
		notify(sub, ev)
	}
}

// notify isolates one subscriber; a panicking callback must not stop
// delivery to the rest.
func notify(sub subscription, ev ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("state change subscriber panicked", "previous", ev.Previous, "current", ev.Current, "panic", r)
		}
	}()
	sub.fn(ev)
}

// Subscribe registers cb for every future transition, in registration order.
// The returned function removes exactly this registration and is safe to call
// more than once.
func (m *Manager) Subscribe(cb func(ChangeEvent)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subs = append(m.subs, subscription{id: id, fn: cb})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, sub := range m.subs {
			if sub.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) SetConnectionQuality(q Quality) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quality = q
}

func (m *Manager) ConnectionQuality() Quality {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quality
}

func (m *Manager) SetConnectionID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectionID = id
}

func (m *Manager) ConnectionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectionID
}

func (m *Manager) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

func (m *Manager) Latency() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latency
}

func (m *Manager) ReconnectAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnectAttempts
}

// ResetReconnectAttempts zeroes the counter without touching the state.
func (m *Manager) ResetReconnectAttempts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnectAttempts = 0
}

func (m *Manager) LastConnectedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastConnectedAt
}

// LastError returns the stored failure pair from the most recent entry into
// StateFailed, or empty values if it was cleared since.
func (m *Manager) LastError() (ErrorKind, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError, m.lastErrorMessage
}

func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

func (m *Manager) IsConnecting() bool {
	s := m.State()
	return s == StateConnecting || s == StateReconnecting
}

func (m *Manager) HasFailed() bool {
	return m.State() == StateFailed
}

func (m *Manager) IsOffline() bool {
	return m.State() == StateOffline
}

// Reset returns every field to its initial value without delivering an
// event. Used for full teardown, not as a normal transition.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateDisconnected
	m.quality = QualityGood
	m.connectionID = ""
	m.latency = 0
	m.reconnectAttempts = 0
	m.lastConnectedAt = time.Time{}
	m.lastError = ""
	m.lastErrorMessage = ""
}
