package presence

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pixil98/go-arena/internal/protocol"
)

// Subjects presence events are published on.
const (
	SubjectJoin  = "presence.join"
	SubjectLeave = "presence.leave"
)

// Broker is the publish side of a message bus.
type Broker interface {
	Publish(subject string, data []byte) error
}

// Publisher pushes roster changes onto the bus for out-of-process consumers.
// It satisfies the registry's PresenceSink. Publish failures are logged and
// swallowed; presence delivery is best-effort and never blocks the registry.
type Publisher struct {
	broker Broker
}

func NewPublisher(broker Broker) *Publisher {
	return &Publisher{broker: broker}
}

type joinEvent struct {
	Player protocol.Player `json:"player"`
	At     time.Time       `json:"at"`
}

type leaveEvent struct {
	ID       string    `json:"id"`
	Username string    `json:"username,omitempty"`
	At       time.Time `json:"at"`
}

func (p *Publisher) PlayerJoined(player protocol.Player) {
	p.publish(SubjectJoin, joinEvent{Player: player, At: time.Now()})
}

func (p *Publisher) PlayerLeft(id, username string) {
	p.publish(SubjectLeave, leaveEvent{ID: id, Username: username, At: time.Now()})
}

func (p *Publisher) publish(subject string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshaling presence event", "subject", subject, "error", err)
		return
	}
	if err := p.broker.Publish(subject, data); err != nil {
		slog.Warn("publishing presence event", "subject", subject, "error", err)
	}
}
