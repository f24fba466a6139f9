package registry

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pixil98/go-arena/internal/protocol"
)

// Conn is the write side of one live connection. The transport adapter
// implements it; the registry never sees transport internals.
type Conn interface {
	Send(data []byte) error
}

// PresenceSink receives roster changes for delivery outside the process
// (leaderboards and other collaborators consume these).
type PresenceSink interface {
	PlayerJoined(p protocol.Player)
	PlayerLeft(id, username string)
}

// Registry is the authoritative mapping of connection identity to player
// state. Connections are tracked in insertion order so broadcasts go out in
// increasing connection age. A connection has no player, and is invisible to
// everyone else, until its join message is processed.
type Registry struct {
	mu       sync.Mutex
	conns    map[string]*connRecord
	order    []string
	presence PresenceSink
	newID    func() string
}

type connRecord struct {
	id     string
	conn   Conn
	player *protocol.Player
}

type RegistryOpt func(*Registry)

// WithPresenceSink publishes roster changes to the given sink.
func WithPresenceSink(sink PresenceSink) RegistryOpt {
	return func(r *Registry) {
		r.presence = sink
	}
}

// WithIDGenerator overrides how connection identities are minted.
func WithIDGenerator(gen func() string) RegistryOpt {
	return func(r *Registry) {
		r.newID = gen
	}
}

func NewRegistry(opts ...RegistryOpt) *Registry {
	r := &Registry{
		conns: map[string]*connRecord{},
		newID: uuid.NewString,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Accept registers a new connection and returns its assigned identity. The
// caller holds only the identity from here on.
func (r *Registry) Accept(conn Conn) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	r.conns[id] = &connRecord{id: id, conn: conn}
	r.order = append(r.order, id)

	slog.Info("connection accepted", "connId", id, "connections", len(r.conns))
	return id
}

// HandleMessage parses one inbound payload and applies it. Malformed or
// unknown payloads are dropped; the connection stays open either way.
func (r *Registry) HandleMessage(connID string, raw []byte) {
	msg, err := protocol.DecodeClientMessage(raw)
	if err != nil {
		slog.Warn("discarding malformed message", "connId", connID, "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeJoin:
		r.handleJoin(connID, msg)
	case protocol.TypeUpdate:
		r.handleUpdate(connID, msg)
	default:
		slog.Warn("ignoring message with unknown type", "connId", connID, "type", msg.Type)
	}
}

func (r *Registry) handleJoin(connID string, msg *protocol.ClientMessage) {
	if msg.Username == "" {
		slog.Warn("discarding join without username", "connId", connID)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.conns[connID]
	if !ok {
		return
	}

	// A second join on a live connection keeps the assigned identity and is
	// treated as an implicit update.
	if rec.player != nil {
		rec.player.Username = msg.Username
		if msg.X != nil {
			rec.player.X = *msg.X
		}
		if msg.Y != nil {
			rec.player.Y = *msg.Y
		}
		slog.Info("duplicate join treated as update", "connId", connID, "username", msg.Username)
		r.broadcastLocked(connID, protocol.NewPlayerUpdateMessage(*rec.player))
		return
	}

	player := &protocol.Player{
		ID:        connID,
		Username:  msg.Username,
		Animation: protocol.DefaultAnimation,
	}
	if msg.X != nil {
		player.X = *msg.X
	}
	if msg.Y != nil {
		player.Y = *msg.Y
	}
	rec.player = player

	slog.Info("player joined", "connId", connID, "username", player.Username)

	r.sendLocked(rec, protocol.NewConnectMessage(*player))
	r.sendLocked(rec, protocol.NewPlayersMessage(r.rosterLocked()))
	r.broadcastLocked(connID, protocol.NewPlayerJoinedMessage(*player))

	if r.presence != nil {
		r.presence.PlayerJoined(*player)
	}
}

func (r *Registry) handleUpdate(connID string, msg *protocol.ClientMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.conns[connID]
	if !ok || rec.player == nil {
		slog.Warn("ignoring update from connection without player", "connId", connID)
		return
	}

	if msg.X != nil {
		rec.player.X = *msg.X
	}
	if msg.Y != nil {
		rec.player.Y = *msg.Y
	}
	if msg.Animation != nil {
		rec.player.Animation = *msg.Animation
	}

	r.broadcastLocked(connID, protocol.NewPlayerUpdateMessage(*rec.player))
}

// Disconnect removes a connection. If it had joined, the remaining
// connections are told; otherwise nothing happens.
func (r *Registry) Disconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.conns[connID]
	if !ok {
		return
	}

	delete(r.conns, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if rec.player == nil {
		return
	}

	slog.Info("player disconnected", "connId", connID, "username", rec.player.Username)
	r.broadcastLocked("", protocol.NewPlayerDisconnectMessage(connID, rec.player.Username))

	if r.presence != nil {
		r.presence.PlayerLeft(connID, rec.player.Username)
	}
}

// Roster returns the current players in connection-age order.
func (r *Registry) Roster() []protocol.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rosterLocked()
}

func (r *Registry) rosterLocked() []protocol.Player {
	players := make([]protocol.Player, 0, len(r.conns))
	for _, id := range r.order {
		if rec := r.conns[id]; rec.player != nil {
			players = append(players, *rec.player)
		}
	}
	return players
}

// broadcastLocked serializes msg once and delivers it to every connection
// except excludeID, in insertion order. A failed send is logged and skipped;
// the transport's own close detection cleans the connection up.
func (r *Registry) broadcastLocked(excludeID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshaling broadcast", "error", err)
		return
	}

	for _, id := range r.order {
		if id == excludeID {
			continue
		}
		if err := r.conns[id].conn.Send(data); err != nil {
			slog.Warn("broadcast send failed", "connId", id, "error", err)
		}
	}
}

func (r *Registry) sendLocked(rec *connRecord, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshaling message", "error", err)
		return
	}
	if err := rec.conn.Send(data); err != nil {
		slog.Warn("send failed", "connId", rec.id, "error", err)
	}
}
