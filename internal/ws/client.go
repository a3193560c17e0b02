package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/victornm/showdown/internal/domain"
	"github.com/victornm/showdown/internal/errors"
	"github.com/victornm/showdown/internal/session"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256
)

// Session is the part of the session service used by websocket clients.
type Session interface {
	Join(ctx context.Context, req session.JoinRequest) ([]domain.Broadcast, error)
	Leave(ctx context.Context, playerID string) []domain.Broadcast
	SetQuestion(ctx context.Context, req session.SetQuestionRequest) ([]domain.Broadcast, error)
	StartRound(ctx context.Context, playerID string) ([]domain.Broadcast, error)
	SubmitAnswer(ctx context.Context, req session.SubmitAnswerRequest) []domain.Broadcast
	State() domain.State
}

// Client is one websocket connection.
type Client struct {
	id      string
	conn    *websocket.Conn
	session Session
	hub     *Hub
	send    chan []byte
	done    chan struct{}
	mu      sync.Mutex
	closed  bool
}

func NewClient(conn *websocket.Conn, s Session, hub *Hub, id string) *Client {
	return &Client{
		id:      id,
		conn:    conn,
		session: s,
		hub:     hub,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Send marshals and enqueues a message for this connection only.
func (c *Client) Send(msg *ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("ws: marshal message failed", "type", msg.Type, "error", err)
		return
	}

	c.enqueue(data)
}

func (c *Client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		slog.Warn("ws: send buffer full, message dropped", "client_id", c.id)
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the write pump and blocks on the read pump until the connection is gone.
func (c *Client) Run(ctx context.Context) {
	go c.writePump()
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c.id)
		c.session.Leave(ctx, c.id)
		_ = c.Close()
		c.hub.wg.Done()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.DebugContext(ctx, "ws: read failed", "client_id", c.id, "error", err)
			}
			return
		}

		c.handleMessage(ctx, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(ctx context.Context, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("Invalid message format")
		return
	}

	switch msg.Type {
	case MsgJoin:
		var p JoinPayload
		if !c.decode(msg, &p) {
			return
		}

		_, err := c.session.Join(ctx, session.JoinRequest{
			PlayerID:    c.id,
			Name:        p.Name,
			WantsMaster: p.IsMaster,
		})
		c.Send(NewServerMessage(MsgGameState, c.session.State()))
		c.reply(msg.Ref, err)

	case MsgStartRound:
		_, err := c.session.StartRound(ctx, c.id)
		c.reply(msg.Ref, err)

	case MsgCreateQuestion:
		var p QuestionPayload
		if !c.decode(msg, &p) {
			return
		}

		_, err := c.session.SetQuestion(ctx, session.SetQuestionRequest{
			PlayerID: c.id,
			Question: p.Question,
			Answer:   p.Answer,
		})
		c.reply(msg.Ref, err)

	case MsgSubmitAnswer:
		var p AnswerPayload
		if !c.decode(msg, &p) {
			return
		}

		c.session.SubmitAnswer(ctx, session.SubmitAnswerRequest{
			PlayerID: c.id,
			Answer:   p.Answer,
		})

	case MsgPing:
		c.Send(NewServerMessage(MsgPong, nil))

	default:
		c.sendError("Unknown message type")
	}
}

// decode reads the payload of msg into v. A missing payload leaves v untouched.
func (c *Client) decode(msg ClientMessage, v any) bool {
	if len(msg.Payload) == 0 {
		return true
	}

	if err := json.Unmarshal(msg.Payload, v); err != nil {
		c.sendError("Invalid payload")
		return false
	}

	return true
}

func (c *Client) reply(ref string, err error) {
	p := ReplyPayload{OK: true}
	if err != nil {
		p = ReplyPayload{Error: errors.Reason(err)}
	}

	msg := NewServerMessage(MsgReply, p)
	msg.Ref = ref
	c.Send(msg)
}

func (c *Client) sendError(message string) {
	c.Send(NewServerMessage(MsgError, &ErrorPayload{
		Code:    ErrCodeInvalidMessage,
		Message: message,
	}))
}
