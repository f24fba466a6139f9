package protocol

import (
	"encoding/json"
	"fmt"
)

// DefaultAnimation is the animation tag assigned to a player on join.
const DefaultAnimation = "idle-down"

// Message type tags shared by both sides of the connection.
const (
	TypeJoin             = "join"
	TypeUpdate           = "update"
	TypeConnect          = "connect"
	TypePlayers          = "players"
	TypePlayerJoined     = "playerJoined"
	TypePlayerUpdate     = "playerUpdate"
	TypePlayerDisconnect = "playerDisconnect"
)

// Player is the state tracked for one live connection.
type Player struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Animation string  `json:"animation"`
}

// ClientMessage is the decode target for every inbound payload. Optional
// fields are pointers so an absent field can be told apart from a zero value.
// Fields that aren't part of the contract are dropped by the decoder.
type ClientMessage struct {
	Type      string   `json:"type"`
	Username  string   `json:"username,omitempty"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	Animation *string  `json:"animation,omitempty"`
}

// DecodeClientMessage parses a raw inbound payload.
func DecodeClientMessage(raw []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decoding client message: %w", err)
	}
	return &msg, nil
}

type ConnectMessage struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Player Player `json:"player"`
}

type PlayersMessage struct {
	Type    string   `json:"type"`
	Players []Player `json:"players"`
}

type PlayerJoinedMessage struct {
	Type   string `json:"type"`
	Player Player `json:"player"`
}

type PlayerUpdateMessage struct {
	Type   string `json:"type"`
	Player Player `json:"player"`
}

type PlayerDisconnectMessage struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

func NewConnectMessage(p Player) ConnectMessage {
	return ConnectMessage{Type: TypeConnect, ID: p.ID, Player: p}
}

func NewPlayersMessage(players []Player) PlayersMessage {
	return PlayersMessage{Type: TypePlayers, Players: players}
}

func NewPlayerJoinedMessage(p Player) PlayerJoinedMessage {
	return PlayerJoinedMessage{Type: TypePlayerJoined, Player: p}
}

func NewPlayerUpdateMessage(p Player) PlayerUpdateMessage {
	return PlayerUpdateMessage{Type: TypePlayerUpdate, Player: p}
}

func NewPlayerDisconnectMessage(id, username string) PlayerDisconnectMessage {
	return PlayerDisconnectMessage{Type: TypePlayerDisconnect, ID: id, Username: username}
}

// ServerMessage is the uniform decode target used by clients for payloads
// coming back from the registry.
type ServerMessage struct {
	Type     string   `json:"type"`
	ID       string   `json:"id,omitempty"`
	Username string   `json:"username,omitempty"`
	Player   *Player  `json:"player,omitempty"`
	Players  []Player `json:"players,omitempty"`
}

// DecodeServerMessage parses a payload sent by the registry.
func DecodeServerMessage(raw []byte) (*ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decoding server message: %w", err)
	}
	return &msg, nil
}
