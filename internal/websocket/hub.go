package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"trivia-service/internal/game"
)

// room holds the live sockets of one session: at most one host and one
// socket per player client id.
type room struct {
	host    *Client
	players map[string]*Client
}

func (r *room) empty() bool {
	return r.host == nil && len(r.players) == 0
}

// outbox carries one session's connect and disconnect commands in order. It
// is drained off the hub goroutine, so a full session queue only stalls its
// own room.
type outbox struct {
	pending  []delivery
	draining bool
}

type delivery struct {
	client *Client
	cmd    game.Command
}

type Hub struct {
	rooms      map[string]*room
	outboxes   map[string]*outbox
	Register   chan *Client
	Unregister chan *Client

	mu   sync.RWMutex
	quit chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]*room),
		outboxes:   make(map[string]*outbox),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.quit)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)
		}
	}
}

// Attach hands an upgraded socket to the hub. The hub starts its pumps.
func (h *Hub) Attach(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.quit:
		client.Conn.Close()
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.quit:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	r := h.rooms[client.SessionID]
	if r == nil {
		r = &room{players: make(map[string]*Client)}
		h.rooms[client.SessionID] = r
	}

	var replaced *Client
	if client.IsHost() {
		replaced, r.host = r.host, client
	} else {
		replaced = r.players[client.ClientID]
		r.players[client.ClientID] = client
	}
	h.mu.Unlock()

	if replaced != nil {
		notice := MessageTypeConnectionReplaced
		if client.IsHost() {
			notice = MessageTypeHostReplaced
		}
		replaced.SendMessage(notice, ReplacedPayload{Reason: "a newer connection took over"})
		replaced.Close()
		log.Info().Str("session_id", client.SessionID).Str("client_id", client.ClientID).Msg("connection replaced")
	}

	kind := game.CmdPlayerConnect
	if client.IsHost() {
		kind = game.CmdHostConnect
	}
	connect := game.Command{Kind: kind, Role: client.Role, ClientID: client.ClientID, ReceivedAt: time.Now()}

	go client.WritePump()
	h.deliver(client, connect)
}

// unregisterClient forgets a socket. The session only hears about it when
// the socket was still the current one for its identity.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	current := false
	if r := h.rooms[client.SessionID]; r != nil {
		if client.IsHost() && r.host == client {
			r.host = nil
			current = true
		} else if !client.IsHost() && r.players[client.ClientID] == client {
			delete(r.players, client.ClientID)
			current = true
		}
		if r.empty() {
			delete(h.rooms, client.SessionID)
		}
	}
	h.mu.Unlock()

	client.Close()
	if !current {
		return
	}

	kind := game.CmdDisconnect
	if client.IsHost() {
		kind = game.CmdHostDisconnect
	}
	h.deliver(client, game.Command{Kind: kind, Role: client.Role, ClientID: client.ClientID, ReceivedAt: time.Now()})
}

// deliver queues a lifecycle command behind earlier ones for the same session.
func (h *Hub) deliver(client *Client, cmd game.Command) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ob := h.outboxes[client.SessionID]
	if ob == nil {
		ob = &outbox{}
		h.outboxes[client.SessionID] = ob
	}
	ob.pending = append(ob.pending, delivery{client: client, cmd: cmd})
	if !ob.draining {
		ob.draining = true
		go h.drain(client.SessionID, ob)
	}
}

func (h *Hub) drain(sessionID string, ob *outbox) {
	for {
		h.mu.Lock()
		if len(ob.pending) == 0 {
			ob.draining = false
			if h.outboxes[sessionID] == ob {
				delete(h.outboxes, sessionID)
			}
			h.mu.Unlock()
			return
		}
		d := ob.pending[0]
		ob.pending = ob.pending[1:]
		h.mu.Unlock()

		h.apply(d)
	}
}

// apply hands one lifecycle command to the session. A socket only starts
// reading once its connect has been accepted.
func (h *Hub) apply(d delivery) {
	c := d.client
	err := c.Session.Enqueue(d.cmd)

	switch d.cmd.Kind {
	case game.CmdHostConnect, game.CmdPlayerConnect:
		if err != nil {
			c.SendError(game.ErrorCode(err), err.Error())
			h.unregister(c)
			return
		}
		go c.ReadPump()
		log.Info().Str("session_id", c.SessionID).Str("client_id", c.ClientID).Str("role", c.Role).Msg("client registered")
	default:
		if err != nil {
			log.Debug().Err(err).Str("session_id", c.SessionID).Str("client_id", c.ClientID).Msg("disconnect not delivered")
			return
		}
		log.Info().Str("session_id", c.SessionID).Str("client_id", c.ClientID).Msg("client unregistered")
	}
}

func (h *Hub) host(sessionID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r := h.rooms[sessionID]; r != nil {
		return r.host
	}
	return nil
}

func (h *Hub) player(sessionID, clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r := h.rooms[sessionID]; r != nil {
		return r.players[clientID]
	}
	return nil
}

// CloseRoom drops every socket of a session without notifying it.
func (h *Hub) CloseRoom(sessionID string) {
	h.mu.Lock()
	r := h.rooms[sessionID]
	delete(h.rooms, sessionID)
	h.mu.Unlock()

	if r == nil {
		return
	}
	if r.host != nil {
		r.host.Close()
	}
	for _, c := range r.players {
		c.Close()
	}
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.CloseRoom(id)
	}
}

// ConnectionCount reports the live sockets across all sessions.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, r := range h.rooms {
		n += len(r.players)
		if r.host != nil {
			n++
		}
	}
	return n
}
