package ws

import (
	"encoding/json"
	"time"

	"github.com/victornm/showdown/internal/domain"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgJoin           MessageType = "player:join"
	MsgStartRound     MessageType = "game:start"
	MsgCreateQuestion MessageType = "question:create"
	MsgSubmitAnswer   MessageType = "answer:submit"
	MsgPing           MessageType = "ping"
)

// Server → Client message types. Session broadcasts keep their own kind as type.
const (
	MsgConnected MessageType = "connected"
	MsgReply     MessageType = "reply"
	MsgError     MessageType = "error"
	MsgPong      MessageType = "pong"
	MsgGameState MessageType = MessageType(domain.KindGameState)
)

// Error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
)

// ClientMessage represents a message from client to server. Ref is echoed in the reply.
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Ref       string      `json:"ref,omitempty"`
	Payload   any         `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewServerMessage creates a new server message with current timestamp
func NewServerMessage(msgType MessageType, payload any) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

type JoinPayload struct {
	Name     string `json:"name"`
	IsMaster bool   `json:"isMaster"`
}

type QuestionPayload struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type AnswerPayload struct {
	Answer string `json:"answer"`
}

// ReplyPayload carries the outcome of a request: OK, or the reason of the rejection.
type ReplyPayload struct {
	OK    bool   `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`
}

type ConnectedPayload struct {
	PlayerID string       `json:"playerId"`
	State    domain.State `json:"state"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
