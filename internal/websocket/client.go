package websocket

import (
	"errors"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"trivia-service/internal/constants"
	"trivia-service/internal/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 256
)

// Dispatcher is the session a socket feeds its commands into.
type Dispatcher interface {
	Enqueue(cmd game.Command) error
}

type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	Session   Dispatcher
	SessionID string
	ClientID  string
	Role      string

	limiter *rate.Limiter
	mu      sync.Mutex
	closed  bool
}

// NewClient wraps an upgraded socket. messagesPerSecond bounds inbound
// frames; bursts of twice that are tolerated.
func NewClient(hub *Hub, conn *websocket.Conn, session Dispatcher, sessionID, clientID, role string, messagesPerSecond int) *Client {
	if messagesPerSecond <= 0 {
		messagesPerSecond = 20
	}
	return &Client{
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, sendBuffer),
		Session:   session,
		SessionID: sessionID,
		ClientID:  clientID,
		Role:      role,
		limiter:   rate.NewLimiter(rate.Limit(messagesPerSecond), messagesPerSecond*2),
	}
}

func (c *Client) IsHost() bool {
	return c.Role == constants.RoleHost
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("session_id", c.SessionID).Str("client_id", c.ClientID).Msg("websocket read error")
			}
			break
		}
		receivedAt := time.Now()

		if !c.limiter.Allow() {
			c.SendError("rate_limited", "too many messages")
			continue
		}

		if !c.handleFrame(message, receivedAt) {
			break
		}
	}
}

// handleFrame decodes and forwards one frame. It returns false once the
// session has gone away.
func (c *Client) handleFrame(message []byte, receivedAt time.Time) bool {
	var msg InboundMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.SendError("invalid_message", "invalid message format")
		return true
	}

	if msg.Type == MessageTypePing {
		c.SendMessage(MessageTypePong, nil)
		return true
	}

	cmd, err := ToCommand(msg, c.Role, c.ClientID, receivedAt)
	if err != nil {
		c.SendError("invalid_message", err.Error())
		return true
	}

	if err := c.Session.Enqueue(cmd); err != nil {
		if errors.Is(err, game.ErrSessionClosed) {
			c.SendError(game.ErrorCode(err), err.Error())
			return false
		}
		log.Error().Err(err).Str("session_id", c.SessionID).Msg("failed to enqueue command")
	}
	return true
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("client_id", c.ClientID).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage queues a frame without blocking. A client that cannot keep up
// is disconnected.
func (c *Client) SendMessage(msgType MessageType, payload any) bool {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("type", string(msgType)).Msg("failed to marshal message")
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		log.Warn().Str("session_id", c.SessionID).Str("client_id", c.ClientID).Msg("client send buffer full, closing connection")
		c.closed = true
		close(c.Send)
		return false
	}
}

func (c *Client) SendError(code, message string) {
	c.SendMessage(MessageTypeError, ErrorPayload{Code: code, Message: message})
}

// Close stops the write pump, which closes the socket. Safe to call repeatedly.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}
