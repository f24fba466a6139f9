package connstate

import "time"

// State is the lifecycle phase of one outbound connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
	StateOffline
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateFailed:
		return "FAILED"
	case StateOffline:
		return "OFFLINE"
	default:
		return "UNKNOWN"
	}
}

// Quality is a coarse health grade set by latency heuristics, independent of
// the lifecycle state.
type Quality int

const (
	QualityGood Quality = iota
	QualityPoor
	QualityBad
)

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "GOOD"
	case QualityPoor:
		return "POOR"
	case QualityBad:
		return "BAD"
	default:
		return "UNKNOWN"
	}
}

// ErrorKind is a structured failure classification carried alongside a
// human-readable message.
type ErrorKind string

const (
	ErrorTimeout        ErrorKind = "TIMEOUT"
	ErrorRefused        ErrorKind = "CONNECTION_REFUSED"
	ErrorConnectionLost ErrorKind = "CONNECTION_LOST"
)

// ChangeEvent records one accepted state transition. It is delivered to every
// subscriber and never mutated afterwards.
type ChangeEvent struct {
	Previous     State
	Current      State
	Timestamp    time.Time
	ConnectionID string
	Error        ErrorKind
	ErrorMessage string
}
